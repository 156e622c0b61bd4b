package service

import (
	"context"

	"github.com/godilite/booth-feedback/internal/events"
	"github.com/godilite/booth-feedback/internal/repository/models"
)

// FeedbackRepository defines the storage operations the service needs.
type FeedbackRepository interface {
	InsertFeedback(ctx context.Context, rec models.FeedbackRecord) (int64, error)
	ListFeedbackByBooth(ctx context.Context, boothID string) ([]models.FeedbackRecord, error)
	CountBooths(ctx context.Context) (int, error)
	MarkProcessed(ctx context.Context, id int64, summary string) (string, error)
	FindMemberByEmail(ctx context.Context, email string) (models.Member, error)
	ListTeamMembers(ctx context.Context, boothID string) ([]models.Member, error)
}

// EventPublisher announces stored feedback to the summarization pipeline.
type EventPublisher interface {
	PublishSubmitted(ctx context.Context, ev events.FeedbackSubmitted) error
}

// Recognizer converts encoded audio into text.
type Recognizer interface {
	Recognize(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Summarizer produces the short summary shown next to a transcript.
type Summarizer interface {
	Summarize(text string) string
}
