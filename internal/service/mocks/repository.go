package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/godilite/booth-feedback/internal/events"
	"github.com/godilite/booth-feedback/internal/repository/models"
)

// MockFeedbackRepository is a mock implementation of the FeedbackRepository
// interface for testing the service layer.
type MockFeedbackRepository struct {
	InsertFeedbackFunc      func(ctx context.Context, rec models.FeedbackRecord) (int64, error)
	ListFeedbackByBoothFunc func(ctx context.Context, boothID string) ([]models.FeedbackRecord, error)
	CountBoothsFunc         func(ctx context.Context) (int, error)
	MarkProcessedFunc       func(ctx context.Context, id int64, summary string) (string, error)
	FindMemberByEmailFunc   func(ctx context.Context, email string) (models.Member, error)
	ListTeamMembersFunc     func(ctx context.Context, boothID string) ([]models.Member, error)
}

func (m *MockFeedbackRepository) InsertFeedback(ctx context.Context, rec models.FeedbackRecord) (int64, error) {
	if m.InsertFeedbackFunc != nil {
		return m.InsertFeedbackFunc(ctx, rec)
	}
	return 0, errors.New("InsertFeedbackFunc not implemented")
}

func (m *MockFeedbackRepository) ListFeedbackByBooth(ctx context.Context, boothID string) ([]models.FeedbackRecord, error) {
	if m.ListFeedbackByBoothFunc != nil {
		return m.ListFeedbackByBoothFunc(ctx, boothID)
	}
	return nil, errors.New("ListFeedbackByBoothFunc not implemented")
}

func (m *MockFeedbackRepository) CountBooths(ctx context.Context) (int, error) {
	if m.CountBoothsFunc != nil {
		return m.CountBoothsFunc(ctx)
	}
	return 0, errors.New("CountBoothsFunc not implemented")
}

func (m *MockFeedbackRepository) MarkProcessed(ctx context.Context, id int64, summary string) (string, error) {
	if m.MarkProcessedFunc != nil {
		return m.MarkProcessedFunc(ctx, id, summary)
	}
	return "", errors.New("MarkProcessedFunc not implemented")
}

func (m *MockFeedbackRepository) FindMemberByEmail(ctx context.Context, email string) (models.Member, error) {
	if m.FindMemberByEmailFunc != nil {
		return m.FindMemberByEmailFunc(ctx, email)
	}
	return models.Member{}, errors.New("FindMemberByEmailFunc not implemented")
}

func (m *MockFeedbackRepository) ListTeamMembers(ctx context.Context, boothID string) ([]models.Member, error) {
	if m.ListTeamMembersFunc != nil {
		return m.ListTeamMembersFunc(ctx, boothID)
	}
	return nil, errors.New("ListTeamMembersFunc not implemented")
}

// MockPublisher records published events.
type MockPublisher struct {
	Err error

	mu     sync.Mutex
	events []events.FeedbackSubmitted
}

func (m *MockPublisher) PublishSubmitted(_ context.Context, ev events.FeedbackSubmitted) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return m.Err
}

// Events returns a copy of every event passed to PublishSubmitted.
func (m *MockPublisher) Events() []events.FeedbackSubmitted {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.FeedbackSubmitted(nil), m.events...)
}

// MockRecognizer is a function-based Recognizer.
type MockRecognizer struct {
	RecognizeFunc func(ctx context.Context, audio []byte, mimeType string) (string, error)
}

func (m *MockRecognizer) Recognize(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if m.RecognizeFunc != nil {
		return m.RecognizeFunc(ctx, audio, mimeType)
	}
	return "", errors.New("RecognizeFunc not implemented")
}

// MockSummarizer is a function-based Summarizer. Without a func it echoes the
// input.
type MockSummarizer struct {
	SummarizeFunc func(text string) string
}

func (m *MockSummarizer) Summarize(text string) string {
	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(text)
	}
	return text
}
