package recording

import (
	"errors"
	"fmt"
)

// State is the recording lifecycle.
//
//	Idle → Recording → Uploading → Processing → Ready
//	                                         └→ Error
//
// Ready and Error return to Idle on the next Start.
type State string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateUploading  State = "uploading"
	StateProcessing State = "processing"
	StateReady      State = "ready"
	StateError      State = "error"
)

// busy reports whether a capture or round-trip is in progress.
func (s State) busy() bool {
	return s == StateRecording || s == StateUploading || s == StateProcessing
}

// Texts shown in place of the raw text while the controller owns it.
const (
	PlaceholderRecording  = "Recording... press stop when you are done."
	PlaceholderProcessing = "Processing audio, please wait..."
	TextTranscriptionFail = "Transcription failed. Please type your feedback manually."

	NoticePermissionDenied = "Microphone access was denied. Please type your feedback instead."
	NoticeCaptureFailed    = "Could not start recording. Please type your feedback instead."
)

var (
	// ErrPermissionDenied is wrapped by capture errors caused by refused
	// microphone access.
	ErrPermissionDenied = errors.New("microphone permission denied")

	// ErrStaleSession is returned when a result belongs to a session that
	// is no longer current.
	ErrStaleSession = errors.New("recording session is no longer current")

	// ErrNoAudio is returned when a recording produced no bytes.
	ErrNoAudio = errors.New("no audio captured")
)

// PermissionDeniedError is returned by Start when the microphone is refused.
type PermissionDeniedError struct {
	Err error
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("start recording: %v", e.Err)
}

func (e *PermissionDeniedError) Unwrap() error { return e.Err }
