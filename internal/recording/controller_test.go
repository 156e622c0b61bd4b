package recording_test

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/godilite/booth-feedback/internal/client"
	"github.com/godilite/booth-feedback/internal/feedback"
	"github.com/godilite/booth-feedback/internal/recording"
	"github.com/godilite/booth-feedback/internal/recording/mocks"
	"github.com/godilite/booth-feedback/pkg/fetch"
)

func sessionCapture(chunks ...string) (*mocks.MockCapture, *[]*mocks.MockAudioSession) {
	var sessions []*mocks.MockAudioSession
	capture := &mocks.MockCapture{
		StartFunc: func(ctx context.Context, cfg recording.AudioConfig) (recording.AudioSession, error) {
			s := mocks.NewMockAudioSession(chunks...)
			sessions = append(sessions, s)
			return s, nil
		},
	}
	return capture, &sessions
}

func TestNewController(t *testing.T) {
	capture := &mocks.MockCapture{}
	tr := &mocks.MockTranscriber{}
	form := mocks.NewMockForm()

	t.Run("valid dependencies", func(t *testing.T) {
		c := recording.NewController(capture, tr, form, recording.Config{}, nil)
		assert.Equal(t, recording.StateIdle, c.State())
	})

	t.Run("nil capture panics", func(t *testing.T) {
		assert.Panics(t, func() { recording.NewController(nil, tr, form, recording.Config{}, nil) })
	})

	t.Run("nil transcriber panics", func(t *testing.T) {
		assert.Panics(t, func() { recording.NewController(capture, nil, form, recording.Config{}, nil) })
	})

	t.Run("nil form panics", func(t *testing.T) {
		assert.Panics(t, func() { recording.NewController(capture, tr, nil, recording.Config{}, nil) })
	})
}

func TestControllerRecordAndTranscribe(t *testing.T) {
	ctx := context.Background()
	capture, sessions := sessionCapture("abc", "def")
	tr := &mocks.MockTranscriber{
		TranscribeFunc: func(ctx context.Context, req feedback.TranscribeRequest) (feedback.TranscribeResponse, error) {
			return feedback.TranscribeResponse{Text: "great booth", Summary: "positive"}, nil
		},
	}
	form := mocks.NewMockForm()
	c := recording.NewController(capture, tr, form, recording.Config{}, zaptest.NewLogger(t))

	require.NoError(t, c.Start(ctx))
	assert.Equal(t, recording.StateRecording, c.State())
	assert.Equal(t, recording.PlaceholderRecording, form.RawText())

	require.NoError(t, c.Stop(ctx, "A01"))

	assert.Equal(t, recording.StateReady, c.State())
	assert.Equal(t, "great booth", form.RawText())
	assert.True(t, form.InputEnabled())
	assert.Equal(t, []string{"positive"}, form.Notices())
	assert.Equal(t, []recording.State{
		recording.StateRecording,
		recording.StateUploading,
		recording.StateProcessing,
		recording.StateReady,
	}, form.States())

	reqs := tr.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("abcdef")), reqs[0].AudioData)
	assert.Equal(t, recording.DefaultMimeType, reqs[0].MimeType)
	assert.Equal(t, "A01", reqs[0].BoothID)

	require.Len(t, *sessions, 1)
	assert.Equal(t, 1, (*sessions)[0].StopCalls())
}

func TestControllerStartFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("permission denied", func(t *testing.T) {
		capture := &mocks.MockCapture{
			StartFunc: func(ctx context.Context, cfg recording.AudioConfig) (recording.AudioSession, error) {
				return nil, fmt.Errorf("open default: %w", recording.ErrPermissionDenied)
			},
		}
		form := mocks.NewMockForm()
		c := recording.NewController(capture, &mocks.MockTranscriber{}, form, recording.Config{}, zaptest.NewLogger(t))

		err := c.Start(ctx)

		var denied *recording.PermissionDeniedError
		require.ErrorAs(t, err, &denied)
		assert.ErrorIs(t, err, recording.ErrPermissionDenied)
		assert.Equal(t, recording.StateIdle, c.State())
		assert.Equal(t, []string{recording.NoticePermissionDenied}, form.Notices())
		assert.Empty(t, form.States())
	})

	t.Run("device failure", func(t *testing.T) {
		capture := &mocks.MockCapture{}
		form := mocks.NewMockForm()
		c := recording.NewController(capture, &mocks.MockTranscriber{}, form, recording.Config{}, zaptest.NewLogger(t))

		err := c.Start(ctx)

		require.Error(t, err)
		assert.NotErrorIs(t, err, recording.ErrPermissionDenied)
		assert.Equal(t, recording.StateIdle, c.State())
		assert.Equal(t, []string{recording.NoticeCaptureFailed}, form.Notices())
	})
}

func TestControllerNoOps(t *testing.T) {
	ctx := context.Background()

	t.Run("stop while idle", func(t *testing.T) {
		tr := &mocks.MockTranscriber{}
		form := mocks.NewMockForm()
		c := recording.NewController(&mocks.MockCapture{}, tr, form, recording.Config{}, zaptest.NewLogger(t))

		require.NoError(t, c.Stop(ctx, "A01"))

		assert.Empty(t, tr.Requests())
		assert.Empty(t, form.States())
	})

	t.Run("start while recording", func(t *testing.T) {
		capture, _ := sessionCapture("abc")
		c := recording.NewController(capture, &mocks.MockTranscriber{}, mocks.NewMockForm(), recording.Config{}, zaptest.NewLogger(t))

		require.NoError(t, c.Start(ctx))
		require.NoError(t, c.Start(ctx))

		assert.Equal(t, 1, capture.Calls())
		assert.Equal(t, recording.StateRecording, c.State())
	})
}

func TestControllerTranscriptionFailure(t *testing.T) {
	ctx := context.Background()
	capture, _ := sessionCapture("abc")
	tr := &mocks.MockTranscriber{
		TranscribeFunc: func(ctx context.Context, req feedback.TranscribeRequest) (feedback.TranscribeResponse, error) {
			return feedback.TranscribeResponse{}, errors.New("HTTP Error 500")
		},
	}
	form := mocks.NewMockForm()
	c := recording.NewController(capture, tr, form, recording.Config{}, zaptest.NewLogger(t))

	require.NoError(t, c.Start(ctx))
	err := c.Stop(ctx, "A01")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP Error 500")
	assert.Equal(t, recording.StateError, c.State())
	assert.Equal(t, recording.TextTranscriptionFail, form.RawText())
	assert.True(t, form.InputEnabled())

	require.NoError(t, c.Start(ctx))
	assert.Equal(t, recording.StateRecording, c.State())
	assert.Equal(t, 2, capture.Calls())
	states := form.States()
	assert.Equal(t, []recording.State{recording.StateIdle, recording.StateRecording}, states[len(states)-2:])
}

func TestControllerEmptyRecording(t *testing.T) {
	ctx := context.Background()
	capture, _ := sessionCapture()
	tr := &mocks.MockTranscriber{}
	c := recording.NewController(capture, tr, mocks.NewMockForm(), recording.Config{}, zaptest.NewLogger(t))

	require.NoError(t, c.Start(ctx))
	err := c.Stop(ctx, "A01")

	assert.ErrorIs(t, err, recording.ErrNoAudio)
	assert.Empty(t, tr.Requests())
	assert.Equal(t, recording.StateError, c.State())
}

func TestControllerDiscard(t *testing.T) {
	ctx := context.Background()

	t.Run("while recording", func(t *testing.T) {
		capture, sessions := sessionCapture("abc")
		tr := &mocks.MockTranscriber{}
		form := mocks.NewMockForm()
		c := recording.NewController(capture, tr, form, recording.Config{}, zaptest.NewLogger(t))

		require.NoError(t, c.Start(ctx))
		c.Discard()

		assert.Equal(t, recording.StateIdle, c.State())
		assert.Equal(t, "", form.RawText())
		assert.Equal(t, 1, (*sessions)[0].StopCalls())

		require.NoError(t, c.Stop(ctx, "A01"))
		assert.Empty(t, tr.Requests())
	})

	t.Run("stale transcription is dropped", func(t *testing.T) {
		capture, _ := sessionCapture("abc")
		entered := make(chan struct{})
		release := make(chan struct{})
		tr := &mocks.MockTranscriber{
			TranscribeFunc: func(ctx context.Context, req feedback.TranscribeRequest) (feedback.TranscribeResponse, error) {
				if req.BoothID == "old" {
					close(entered)
					<-release
					return feedback.TranscribeResponse{Text: "stale text"}, nil
				}
				return feedback.TranscribeResponse{Text: "fresh text"}, nil
			},
		}
		form := mocks.NewMockForm()
		c := recording.NewController(capture, tr, form, recording.Config{}, zaptest.NewLogger(t))

		require.NoError(t, c.Start(ctx))
		errCh := make(chan error, 1)
		go func() { errCh <- c.Stop(ctx, "old") }()
		<-entered

		assert.Equal(t, recording.StateProcessing, c.State())
		assert.False(t, form.InputEnabled())
		require.NoError(t, c.Start(ctx))
		assert.Equal(t, 1, capture.Calls(), "start is ignored while processing")

		c.Discard()
		assert.Equal(t, recording.StateIdle, c.State())
		assert.True(t, form.InputEnabled())

		require.NoError(t, c.Start(ctx))
		close(release)

		assert.ErrorIs(t, <-errCh, recording.ErrStaleSession)
		assert.Equal(t, recording.StateRecording, c.State())
		assert.Equal(t, recording.PlaceholderRecording, form.RawText())

		require.NoError(t, c.Stop(ctx, "new"))
		assert.Equal(t, "fresh text", form.RawText())
	})
}

func TestControllerTranscribeNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"not found"}`))
	}))
	defer srv.Close()

	capture, _ := sessionCapture("audio")
	form := mocks.NewMockForm()
	api := client.New(fetch.New(fetch.WithMaxRetries(1)), srv.URL)
	c := recording.NewController(capture, api, form, recording.Config{}, zaptest.NewLogger(t))

	require.NoError(t, c.Start(context.Background()))
	err := c.Stop(context.Background(), "A01")

	var perr *fetch.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusNotFound, perr.Status)
	assert.Equal(t, recording.StateError, c.State())
	assert.Equal(t, recording.TextTranscriptionFail, form.RawText())
	assert.True(t, form.InputEnabled())
}
