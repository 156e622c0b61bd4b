package mocks

import (
	"context"
	"sync/atomic"

	"github.com/godilite/booth-feedback/internal/feedback"
)

// MockSubmitter is a function-based Submitter that counts its calls.
type MockSubmitter struct {
	SubmitFeedbackFunc func(ctx context.Context, req feedback.SubmitRequest) (feedback.SubmitResponse, error)

	calls atomic.Int32
}

func (m *MockSubmitter) SubmitFeedback(ctx context.Context, req feedback.SubmitRequest) (feedback.SubmitResponse, error) {
	m.calls.Add(1)
	if m.SubmitFeedbackFunc != nil {
		return m.SubmitFeedbackFunc(ctx, req)
	}
	return feedback.SubmitResponse{Message: "ok", InsertedID: "1"}, nil
}

// Calls returns how many times SubmitFeedback was invoked.
func (m *MockSubmitter) Calls() int {
	return int(m.calls.Load())
}
