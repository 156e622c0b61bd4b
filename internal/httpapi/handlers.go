// Package httpapi serves the kiosk's JSON API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/godilite/booth-feedback/internal/feedback"
	"github.com/godilite/booth-feedback/internal/service"
)

const (
	defaultCacheDuration  = 10 * time.Minute
	defaultRequestTimeout = 10 * time.Second
	transcribeTimeout     = 45 * time.Second
)

const (
	msgSubmitted     = "Feedback stored successfully."
	msgNoFeedback    = "No feedback yet. Present at your booth and collect feedback first."
	msgStorageError  = "A database error occurred."
	msgInvalidJSON   = "Invalid JSON data"
	msgUnexpected    = "An unexpected server error occurred."
	msgEmptySTT      = "The transcription result was empty."
	msgRecognition   = "A speech-to-text error occurred."
	msgSummarySaved  = "Summary stored."
	msgRequestCancel = "Request canceled"
	msgTimeout       = "Request timed out"
)

// statusClientClosedRequest is logged when the kiosk gave up first.
const statusClientClosedRequest = 499

type CacheKeyType string

const cacheKeyBoothAggregation CacheKeyType = "aggregation:booth"

func boothKey(boothID string) string {
	return string(cacheKeyBoothAggregation) + ":" + boothID
}

// Handlers implements the HTTP endpoints on top of FeedbackService.
type Handlers struct {
	feedback FeedbackService
	cache    Cacher
	logger   *zap.Logger
	sfGroup  singleflight.Group
	versions *keyVersions
	cacheTTL time.Duration
}

// NewHandlers initializes the HTTP handlers.
func NewHandlers(svc FeedbackService, cache Cacher, logger *zap.Logger, ttl time.Duration) *Handlers {
	if svc == nil {
		panic("nil FeedbackService provided to NewHandlers")
	}
	if cache == nil {
		panic("nil Cacher provided to NewHandlers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultCacheDuration
	}
	return &Handlers{
		feedback: svc,
		cache:    cache,
		logger:   logger.Named("http-handler"),
		versions: newKeyVersions(),
		cacheTTL: ttl,
	}
}

func (h *Handlers) handleError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	switch ctx.Err() {
	case context.Canceled:
		h.logger.Warn("request canceled", zap.String("op", op))
		h.errorResponse(w, statusClientClosedRequest, msgRequestCancel, "")
		return
	case context.DeadlineExceeded:
		h.logger.Warn("request timeout", zap.String("op", op))
		h.errorResponse(w, http.StatusGatewayTimeout, msgTimeout, "")
		return
	}

	var inErr *service.InputError
	switch {
	case errors.As(err, &inErr):
		h.logger.Info("invalid request", zap.String("op", op), zap.Error(err))
		h.errorResponse(w, http.StatusBadRequest, inErr.Message, inErr.Detail)
	case errors.Is(err, service.ErrNoFeedback):
		h.logger.Info("no feedback found", zap.String("op", op))
		h.jsonResponse(w, http.StatusNotFound, notFoundResponse{Message: msgNoFeedback})
	case errors.Is(err, service.ErrEmptyTranscript):
		h.logger.Warn("empty transcript", zap.String("op", op))
		h.errorResponse(w, http.StatusInternalServerError, msgEmptySTT, "")
	case errors.Is(err, service.ErrRecognition):
		h.logger.Error("speech recognition failed", zap.String("op", op), zap.Error(err))
		h.errorResponse(w, http.StatusInternalServerError, msgRecognition, err.Error())
	case errors.Is(err, service.ErrStorageFailure):
		h.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
		h.errorResponse(w, http.StatusInternalServerError, msgStorageError, "")
	default:
		h.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		h.errorResponse(w, http.StatusInternalServerError, msgUnexpected, "")
	}
}

// Transcribe handles POST /api/transcribe.
func (h *Handlers) Transcribe(w http.ResponseWriter, r *http.Request) {
	var req feedback.TranscribeRequest
	if err := parseJSONBody(w, r, &req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, msgInvalidJSON, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), transcribeTimeout)
	defer cancel()

	out, err := h.feedback.Transcribe(ctx, service.TranscribeInput{
		AudioData: req.AudioData,
		MimeType:  req.MimeType,
		BoothID:   req.BoothID,
	})
	if err != nil {
		h.handleError(ctx, w, "Transcribe", err)
		return
	}

	h.jsonResponse(w, http.StatusOK, feedback.TranscribeResponse{Text: out.Text, Summary: out.Summary})
}

// SubmitFeedback handles POST /api/submit_feedback.
func (h *Handlers) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedback.SubmitRequest
	if err := parseJSONBody(w, r, &req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, msgInvalidJSON, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), defaultRequestTimeout)
	defer cancel()

	sub, err := h.feedback.Submit(ctx, req)
	if err != nil {
		h.handleError(ctx, w, "SubmitFeedback", err)
		return
	}

	invalidate(ctx, h.cache, &h.sfGroup, h.versions, h.logger, boothKey(sub.BoothID))

	h.jsonResponse(w, http.StatusCreated, feedback.SubmitResponse{
		Message:    msgSubmitted,
		Status:     "success",
		InsertedID: feedback.RecordID(strconv.FormatInt(sub.ID, 10)),
	})
}

// GetFeedback handles GET /api/feedback/{identity}. The identity is a team
// member's email; the aggregation is cached per booth.
func (h *Handlers) GetFeedback(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")
	if unescaped, err := url.PathUnescape(identity); err == nil {
		identity = unescaped
	}

	ctx, cancel := context.WithTimeout(r.Context(), defaultRequestTimeout)
	defer cancel()

	member, err := h.feedback.ResolveMember(ctx, identity)
	if err != nil {
		h.handleError(ctx, w, "GetFeedback", err)
		return
	}

	agg, err := FindAndCache(ctx, h.cache, &h.sfGroup, h.versions, boothKey(member.BoothID), h.cacheTTL, h.logger, func(fetchCtx context.Context) (service.Aggregation, error) {
		return h.feedback.AggregateBooth(fetchCtx, member.BoothID, member.TeamName)
	})
	if err != nil {
		h.handleError(ctx, w, "GetFeedback", err)
		return
	}

	h.jsonResponse(w, http.StatusOK, toAggregationResponse(agg))
}

type summaryRequest struct {
	SummaryText string `json:"summary_text"`
}

// SaveSummary handles POST /api/feedback/{id}/summary.
func (h *Handlers) SaveSummary(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid feedback id", err.Error())
		return
	}

	var req summaryRequest
	if err := parseJSONBody(w, r, &req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, msgInvalidJSON, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), defaultRequestTimeout)
	defer cancel()

	boothID, err := h.feedback.SaveSummary(ctx, id, req.SummaryText)
	if err != nil {
		h.handleError(ctx, w, "SaveSummary", err)
		return
	}

	invalidate(ctx, h.cache, &h.sfGroup, h.versions, h.logger, boothKey(boothID))
	h.jsonResponse(w, http.StatusOK, messageResponse{Message: msgSummarySaved})
}

type memberResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type feedbackItemResponse struct {
	ID               int64   `json:"id"`
	VisitorAttribute string  `json:"visitor_attribute"`
	RawText          string  `json:"raw_text"`
	SummaryText      string  `json:"summary_text"`
	IsProcessed      bool    `json:"is_processed"`
	Score            float64 `json:"score"`
}

type aggregationResponse struct {
	TeamName        string                 `json:"team_name"`
	BoothID         string                 `json:"booth_id"`
	AverageScore    *float64               `json:"average_score"`
	TotalCount      int                    `json:"total_count"`
	TotalTeamsCount int                    `json:"total_teams_count"`
	TeamMembers     []memberResponse       `json:"team_members"`
	Feedbacks       []feedbackItemResponse `json:"feedbacks"`
}

func toAggregationResponse(agg service.Aggregation) aggregationResponse {
	members := make([]memberResponse, 0, len(agg.TeamMembers))
	for _, m := range agg.TeamMembers {
		members = append(members, memberResponse{Name: m.Name, Email: m.Email})
	}
	items := make([]feedbackItemResponse, 0, len(agg.Feedbacks))
	for _, f := range agg.Feedbacks {
		items = append(items, feedbackItemResponse{
			ID:               f.ID,
			VisitorAttribute: f.VisitorAttribute,
			RawText:          f.RawText,
			SummaryText:      f.SummaryText,
			IsProcessed:      f.IsProcessed,
			Score:            f.Score,
		})
	}
	return aggregationResponse{
		TeamName:        agg.TeamName,
		BoothID:         agg.BoothID,
		AverageScore:    agg.AverageScore,
		TotalCount:      agg.TotalCount,
		TotalTeamsCount: agg.TotalTeamsCount,
		TeamMembers:     members,
		Feedbacks:       items,
	}
}
