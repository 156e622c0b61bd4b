package httpapi

import (
	"context"
	"time"

	"github.com/godilite/booth-feedback/internal/feedback"
	"github.com/godilite/booth-feedback/internal/service"
)

// Cacher defines the interface for cache operations.
type Cacher interface {
	Close() error
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// FeedbackService is the domain behaviour behind the HTTP endpoints.
type FeedbackService interface {
	Submit(ctx context.Context, req feedback.SubmitRequest) (service.Submission, error)
	ResolveMember(ctx context.Context, email string) (service.Member, error)
	AggregateBooth(ctx context.Context, boothID, teamName string) (service.Aggregation, error)
	Transcribe(ctx context.Context, in service.TranscribeInput) (service.Transcription, error)
	SaveSummary(ctx context.Context, id int64, summary string) (string, error)
}

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}
