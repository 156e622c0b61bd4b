// Package submission sends a feedback draft to the backend at most once at a
// time and tells the caller which screen to show next.
package submission

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/godilite/booth-feedback/internal/feedback"
	"github.com/godilite/booth-feedback/internal/screen"
	"github.com/godilite/booth-feedback/pkg/fetch"
)

// GenericFailureMessage is shown when the server gave no usable message.
const GenericFailureMessage = "Could not reach the server. Please check your connection and try again."

// Status is the result class of one Submit call.
type Status int

const (
	// StatusIgnored means another submission was still in flight.
	StatusIgnored Status = iota
	// StatusRejected means the draft failed validation; nothing was sent.
	StatusRejected
	StatusSubmitted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIgnored:
		return "ignored"
	case StatusRejected:
		return "rejected"
	case StatusSubmitted:
		return "submitted"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome describes what happened and where the caller should go next.
type Outcome struct {
	Status     Status
	Next       screen.Transition
	InsertedID feedback.RecordID
	Message    string
	Detail     string
}

// Submitter stores one feedback record.
type Submitter interface {
	SubmitFeedback(ctx context.Context, req feedback.SubmitRequest) (feedback.SubmitResponse, error)
}

// Orchestrator serializes submissions behind a single-slot latch.
type Orchestrator struct {
	submitter Submitter
	logger    *zap.Logger
	inFlight  *semaphore.Weighted
}

// NewOrchestrator creates an Orchestrator. It panics if submitter is nil.
func NewOrchestrator(submitter Submitter, logger *zap.Logger) *Orchestrator {
	if submitter == nil {
		panic("nil Submitter provided to NewOrchestrator")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		submitter: submitter,
		logger:    logger.Named("submission"),
		inFlight:  semaphore.NewWeighted(1),
	}
}

// InFlight reports whether a submission is currently pending.
func (o *Orchestrator) InFlight() bool {
	if o.inFlight.TryAcquire(1) {
		o.inFlight.Release(1)
		return false
	}
	return true
}

// Submit validates draft and sends it. A call made while another is in flight
// returns StatusIgnored and a nil error. Validation failures return
// StatusRejected with a *feedback.ValidationError and make no network call.
// On any other failure the draft is left untouched so the caller can retry.
func (o *Orchestrator) Submit(ctx context.Context, draft feedback.Draft) (Outcome, error) {
	if !o.inFlight.TryAcquire(1) {
		o.logger.Debug("submission already in flight, ignoring")
		return Outcome{Status: StatusIgnored, Next: screen.Stay}, nil
	}
	defer o.inFlight.Release(1)

	if err := draft.Validate(); err != nil {
		return Outcome{
			Status:  StatusRejected,
			Next:    screen.Stay,
			Message: err.Error(),
		}, err
	}

	resp, err := o.submitter.SubmitFeedback(ctx, draft.Request())
	if err != nil {
		out := Outcome{Status: StatusFailed, Next: screen.Stay, Message: GenericFailureMessage}
		var protoErr *fetch.ProtocolError
		if errors.As(err, &protoErr) && protoErr.FromServer {
			out.Message = protoErr.Message
			out.Detail = protoErr.Detail
		}
		o.logger.Warn("feedback submission failed",
			zap.String("booth_id", draft.BoothID),
			zap.Error(err),
		)
		return out, err
	}

	o.logger.Info("feedback submitted",
		zap.String("booth_id", draft.BoothID),
		zap.String("inserted_id", string(resp.InsertedID)),
	)
	return Outcome{
		Status:     StatusSubmitted,
		Next:       screen.ToDashboard,
		InsertedID: resp.InsertedID,
		Message:    resp.Message,
	}, nil
}
