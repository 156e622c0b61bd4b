package mocks

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/godilite/booth-feedback/internal/feedback"
	"github.com/godilite/booth-feedback/internal/service"
)

// MockFeedbackService is a mock implementation of the FeedbackService
// interface for testing the handler layer.
type MockFeedbackService struct {
	SubmitFunc         func(ctx context.Context, req feedback.SubmitRequest) (service.Submission, error)
	ResolveMemberFunc  func(ctx context.Context, email string) (service.Member, error)
	AggregateBoothFunc func(ctx context.Context, boothID, teamName string) (service.Aggregation, error)
	TranscribeFunc     func(ctx context.Context, in service.TranscribeInput) (service.Transcription, error)
	SaveSummaryFunc    func(ctx context.Context, id int64, summary string) (string, error)

	aggregateCalls atomic.Int32
}

func (m *MockFeedbackService) Submit(ctx context.Context, req feedback.SubmitRequest) (service.Submission, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, req)
	}
	return service.Submission{}, errors.New("SubmitFunc not implemented")
}

func (m *MockFeedbackService) ResolveMember(ctx context.Context, email string) (service.Member, error) {
	if m.ResolveMemberFunc != nil {
		return m.ResolveMemberFunc(ctx, email)
	}
	return service.Member{}, errors.New("ResolveMemberFunc not implemented")
}

func (m *MockFeedbackService) AggregateBooth(ctx context.Context, boothID, teamName string) (service.Aggregation, error) {
	m.aggregateCalls.Add(1)
	if m.AggregateBoothFunc != nil {
		return m.AggregateBoothFunc(ctx, boothID, teamName)
	}
	return service.Aggregation{}, errors.New("AggregateBoothFunc not implemented")
}

func (m *MockFeedbackService) Transcribe(ctx context.Context, in service.TranscribeInput) (service.Transcription, error) {
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, in)
	}
	return service.Transcription{}, errors.New("TranscribeFunc not implemented")
}

func (m *MockFeedbackService) SaveSummary(ctx context.Context, id int64, summary string) (string, error) {
	if m.SaveSummaryFunc != nil {
		return m.SaveSummaryFunc(ctx, id, summary)
	}
	return "", errors.New("SaveSummaryFunc not implemented")
}

// AggregateCalls returns how many times AggregateBooth ran.
func (m *MockFeedbackService) AggregateCalls() int {
	return int(m.aggregateCalls.Load())
}
