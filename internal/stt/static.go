package stt

import "context"

// StaticRecognizer returns a fixed transcript for any non-empty recording.
// It stands in for a cloud recognizer during local development.
type StaticRecognizer struct {
	Text string
}

func (s StaticRecognizer) Recognize(_ context.Context, audio []byte, _ string) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}
	return s.Text, nil
}

func (StaticRecognizer) Close() error { return nil }
