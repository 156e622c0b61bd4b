package recording

import (
	"context"
	"io"

	"github.com/godilite/booth-feedback/internal/feedback"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	InputFormat string
	InputDevice string
	SampleRate  int
	Channels    int
}

// AudioSession is a live capture. Read yields encoded audio until Stop.
type AudioSession interface {
	io.Reader
	Stop() error
}

// AudioCapture opens the microphone. Refusal to grant access must be
// reported with an error wrapping ErrPermissionDenied.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// Transcriber performs the transcription round-trip.
type Transcriber interface {
	Transcribe(ctx context.Context, req feedback.TranscribeRequest) (feedback.TranscribeResponse, error)
}

// Form is the text input the controller drives. Methods are called with the
// controller's lock held and must not call back into the Controller.
type Form interface {
	SetRawText(text string)
	SetInputEnabled(enabled bool)
	Notify(message string)
	RecordingStateChanged(state State)
}
