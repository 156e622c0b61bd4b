package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/godilite/booth-feedback/internal/events"
	"github.com/godilite/booth-feedback/internal/feedback"
	"github.com/godilite/booth-feedback/internal/repository"
	"github.com/godilite/booth-feedback/internal/repository/models"
)

const (
	dbTimeout  = 2 * time.Second
	sttTimeout = 30 * time.Second
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNoFeedback      = errors.New("no feedback found")
	ErrStorageFailure  = errors.New("storage failure")
	ErrRecognition     = errors.New("speech recognition failed")
	ErrEmptyTranscript = errors.New("transcription result was empty")
)

// InputError describes a rejected request in terms the client can show.
type InputError struct {
	Message string
	Detail  string
}

func (e *InputError) Error() string {
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

// FeedbackService stores feedback, aggregates it per booth and transcribes
// recordings.
type FeedbackService struct {
	storage    FeedbackRepository
	recognizer Recognizer
	summarizer Summarizer
	publisher  EventPublisher
	logger     *zap.Logger
	now        func() time.Time
}

// NewFeedbackService creates a new FeedbackService instance.
func NewFeedbackService(storage FeedbackRepository, recognizer Recognizer, summarizer Summarizer, publisher EventPublisher, logger *zap.Logger) *FeedbackService {
	if storage == nil {
		panic("storage must not be nil")
	}
	if recognizer == nil {
		panic("recognizer must not be nil")
	}
	if summarizer == nil {
		panic("summarizer must not be nil")
	}
	if publisher == nil {
		panic("publisher must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackService{
		storage:    storage,
		recognizer: recognizer,
		summarizer: summarizer,
		publisher:  publisher,
		logger:     logger.Named("feedback-service"),
		now:        time.Now,
	}
}

// Submit validates and stores one feedback record, then announces it.
// Booth id and visitor attribute are stored lower-cased and trimmed; the
// summary starts empty and unprocessed.
func (s *FeedbackService) Submit(ctx context.Context, req feedback.SubmitRequest) (Submission, error) {
	praise, errP := parseRatio(req.PraiseRatio)
	advice, errA := parseRatio(req.AdviceRatio)
	if errP != nil || errA != nil {
		return Submission{}, &InputError{
			Message: "Invalid ratio data",
			Detail:  "praise_ratio and advice_ratio must be integers between 0 and 100",
		}
	}

	rec := models.FeedbackRecord{
		BoothID:          strings.ToLower(strings.TrimSpace(req.BoothID)),
		PraiseRatio:      praise,
		AdviceRatio:      advice,
		RawText:          req.RawText,
		VisitorAttribute: strings.ToLower(strings.TrimSpace(req.VisitorAttribute)),
	}

	var missing []string
	if rec.BoothID == "" {
		missing = append(missing, "booth_id")
	}
	if strings.TrimSpace(rec.RawText) == "" {
		missing = append(missing, "raw_text")
	}
	if rec.VisitorAttribute == "" {
		missing = append(missing, "visitor_attribute")
	}
	if len(missing) > 0 {
		return Submission{}, &InputError{
			Message: "Missing required fields",
			Detail:  strings.Join(missing, ", "),
		}
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	id, err := s.storage.InsertFeedback(dbCtx, rec)
	if err != nil {
		return Submission{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	s.logger.Info("feedback stored",
		zap.Int64("id", id),
		zap.String("booth_id", rec.BoothID),
		zap.String("visitor_attribute", rec.VisitorAttribute))

	ev := events.FeedbackSubmitted{
		ID:               id,
		BoothID:          rec.BoothID,
		VisitorAttribute: rec.VisitorAttribute,
		PraiseRatio:      rec.PraiseRatio,
		AdviceRatio:      rec.AdviceRatio,
		RawText:          rec.RawText,
		SubmittedAt:      s.now().UTC(),
	}
	if err := s.publisher.PublishSubmitted(ctx, ev); err != nil {
		s.logger.Warn("failed to publish submitted event", zap.Int64("id", id), zap.Error(err))
	}

	return Submission{ID: id, BoothID: rec.BoothID}, nil
}

// ResolveMember finds the team membership for an email. Unknown emails
// yield ErrNoFeedback since there is nothing to show for them.
func (s *FeedbackService) ResolveMember(ctx context.Context, email string) (Member, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return Member{}, &InputError{Message: "Email is required"}
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	m, err := s.storage.FindMemberByEmail(dbCtx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Member{}, ErrNoFeedback
		}
		return Member{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return toMember(m), nil
}

// AggregateBooth collects every record for the booth. The average score is
// the mean praise ratio.
func (s *FeedbackService) AggregateBooth(ctx context.Context, boothID, teamName string) (Aggregation, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	records, err := s.storage.ListFeedbackByBooth(dbCtx, boothID)
	if err != nil {
		return Aggregation{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if len(records) == 0 {
		return Aggregation{}, ErrNoFeedback
	}

	members, err := s.storage.ListTeamMembers(dbCtx, boothID)
	if err != nil {
		return Aggregation{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	booths, err := s.storage.CountBooths(dbCtx)
	if err != nil {
		return Aggregation{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	items := make([]FeedbackItem, 0, len(records))
	var sum float64
	for _, r := range records {
		sum += float64(r.PraiseRatio)
		items = append(items, FeedbackItem{
			ID:               r.ID,
			VisitorAttribute: r.VisitorAttribute,
			RawText:          r.RawText,
			SummaryText:      r.SummaryText,
			IsProcessed:      r.IsProcessed,
			Score:            float64(r.PraiseRatio),
		})
	}
	avg := sum / float64(len(records))

	team := make([]Member, 0, len(members))
	for _, m := range members {
		team = append(team, toMember(m))
	}

	s.logger.Info("aggregated booth feedback",
		zap.String("booth_id", boothID),
		zap.Int("count", len(items)),
		zap.Float64("average", avg))

	return Aggregation{
		TeamName:        teamName,
		BoothID:         boothID,
		AverageScore:    &avg,
		TotalCount:      len(items),
		TotalTeamsCount: booths,
		TeamMembers:     team,
		Feedbacks:       items,
	}, nil
}

// Transcribe decodes the base64 recording, recognizes it and summarizes the
// transcript.
func (s *FeedbackService) Transcribe(ctx context.Context, in TranscribeInput) (Transcription, error) {
	if in.AudioData == "" {
		return Transcription{}, &InputError{Message: "No audio_data provided"}
	}
	audio, err := base64.StdEncoding.DecodeString(in.AudioData)
	if err != nil {
		return Transcription{}, &InputError{Message: "audio_data is not valid base64", Detail: err.Error()}
	}

	sttCtx, cancel := context.WithTimeout(ctx, sttTimeout)
	defer cancel()

	start := s.now()
	text, err := s.recognizer.Recognize(sttCtx, audio, in.MimeType)
	if err != nil {
		return Transcription{}, fmt.Errorf("%w: %v", ErrRecognition, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Transcription{}, ErrEmptyTranscript
	}

	s.logger.Info("transcribed recording",
		zap.String("booth_id", in.BoothID),
		zap.String("mime_type", in.MimeType),
		zap.Int("audio_bytes", len(audio)),
		zap.Duration("duration", s.now().Sub(start)))

	return Transcription{Text: text, Summary: s.summarizer.Summarize(text)}, nil
}

// SaveSummary stores the pipeline's summary for a record, marks it processed
// and returns the record's booth id.
func (s *FeedbackService) SaveSummary(ctx context.Context, id int64, summary string) (string, error) {
	if id <= 0 {
		return "", &InputError{Message: "Invalid feedback id"}
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", &InputError{Message: "Missing required fields", Detail: "summary_text"}
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	boothID, err := s.storage.MarkProcessed(dbCtx, id, summary)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNoFeedback
		}
		return "", fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	s.logger.Info("summary stored", zap.Int64("id", id), zap.String("booth_id", boothID))
	return boothID, nil
}

func parseRatio(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > 100 {
		return 0, fmt.Errorf("ratio %d out of range", n)
	}
	return n, nil
}

func toMember(m models.Member) Member {
	return Member{Email: m.Email, Name: m.Name, BoothID: m.BoothID, TeamName: m.TeamName}
}
