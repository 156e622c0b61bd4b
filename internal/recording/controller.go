// Package recording drives microphone capture and the transcription round-trip
// for the feedback form.
package recording

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/godilite/booth-feedback/internal/feedback"
)

const (
	DefaultMimeType  = "audio/webm;codecs=opus"
	DefaultChunkSize = 4096
)

// Config holds controller settings.
type Config struct {
	Audio     AudioConfig
	MimeType  string
	ChunkSize int
}

// Controller owns at most one recording session at a time.
type Controller struct {
	capture     AudioCapture
	transcriber Transcriber
	form        Form
	cfg         Config
	logger      *zap.Logger
	newID       func() string

	mu        sync.Mutex
	state     State
	current   *session
	activeID  string
	acquiring bool
	gen       uint64
}

// NewController creates a Controller. It panics on nil dependencies.
func NewController(capture AudioCapture, transcriber Transcriber, form Form, cfg Config, logger *zap.Logger) *Controller {
	if capture == nil {
		panic("nil AudioCapture provided to NewController")
	}
	if transcriber == nil {
		panic("nil Transcriber provided to NewController")
	}
	if form == nil {
		panic("nil Form provided to NewController")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MimeType == "" {
		cfg.MimeType = DefaultMimeType
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	return &Controller{
		capture:     capture,
		transcriber: transcriber,
		form:        form,
		cfg:         cfg,
		logger:      logger.Named("recording"),
		newID:       uuid.NewString,
		state:       StateIdle,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the id of the session whose result is still pending, or
// "" when there is none.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeID
}

// Start acquires the microphone and begins buffering audio. It is a no-op
// while a capture or round-trip is already in progress.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.acquiring || c.state.busy() {
		c.mu.Unlock()
		return nil
	}
	if c.state != StateIdle {
		c.setState(StateIdle)
	}
	c.acquiring = true
	gen := c.gen
	c.mu.Unlock()

	audio, err := c.capture.Start(ctx, c.cfg.Audio)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.acquiring = false

	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			c.logger.Warn("microphone access denied", zap.Error(err))
			c.form.Notify(NoticePermissionDenied)
			return &PermissionDeniedError{Err: err}
		}
		c.logger.Error("failed to start capture", zap.Error(err))
		c.form.Notify(NoticeCaptureFailed)
		return fmt.Errorf("start recording: %w", err)
	}

	if gen != c.gen {
		// Discarded while the device was opening.
		s := newSession("", audio)
		go s.pump(c.cfg.ChunkSize)
		go s.finish(c.logger)
		return ErrStaleSession
	}

	s := newSession(c.newID(), audio)
	go s.pump(c.cfg.ChunkSize)

	c.current = s
	c.activeID = s.id
	c.setState(StateRecording)
	c.form.SetRawText(PlaceholderRecording)

	c.logger.Info("recording started", zap.String("session_id", s.id))
	return nil
}

// Stop ends the capture, uploads the audio and applies the transcript to the
// form. It is a no-op unless a recording is in progress. Results for a
// session that was discarded in the meantime are dropped with ErrStaleSession.
func (c *Controller) Stop(ctx context.Context, boothID string) error {
	c.mu.Lock()
	if c.state != StateRecording || c.current == nil {
		c.mu.Unlock()
		return nil
	}
	s := c.current
	c.current = nil
	c.setState(StateUploading)
	c.mu.Unlock()

	payload := s.finish(c.logger)

	c.mu.Lock()
	if c.activeID != s.id {
		c.mu.Unlock()
		return ErrStaleSession
	}
	c.setState(StateProcessing)
	c.form.SetInputEnabled(false)
	c.form.SetRawText(PlaceholderProcessing)
	c.mu.Unlock()

	var (
		resp feedback.TranscribeResponse
		err  error
	)
	if len(payload) == 0 {
		err = ErrNoAudio
	} else {
		resp, err = c.transcriber.Transcribe(ctx, feedback.TranscribeRequest{
			AudioData: base64.StdEncoding.EncodeToString(payload),
			MimeType:  c.cfg.MimeType,
			BoothID:   boothID,
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeID != s.id {
		c.logger.Info("discarding stale transcription", zap.String("session_id", s.id))
		return ErrStaleSession
	}
	c.activeID = ""

	if err != nil {
		c.logger.Error("transcription failed", zap.String("session_id", s.id), zap.Error(err))
		c.setState(StateError)
		c.form.SetRawText(TextTranscriptionFail)
		c.form.SetInputEnabled(true)
		return fmt.Errorf("transcribe session %s: %w", s.id, err)
	}

	c.setState(StateReady)
	c.form.SetRawText(resp.Text)
	c.form.SetInputEnabled(true)
	if resp.Summary != "" {
		c.form.Notify(resp.Summary)
	}
	c.logger.Info("transcription applied",
		zap.String("session_id", s.id),
		zap.Int("audio_bytes", len(payload)),
	)
	return nil
}

// Discard abandons any capture or pending round-trip and returns to Idle.
// Call it when the form is left.
func (c *Controller) Discard() {
	c.mu.Lock()
	c.gen++
	s := c.current
	c.current = nil
	c.activeID = ""
	wasBusy := c.state.busy()
	if c.state != StateIdle {
		c.setState(StateIdle)
	}
	if wasBusy {
		c.form.SetRawText("")
		c.form.SetInputEnabled(true)
	}
	c.mu.Unlock()

	if s != nil {
		s.finish(c.logger)
		c.logger.Info("recording discarded", zap.String("session_id", s.id))
	}
}

// setState must be called with mu held.
func (c *Controller) setState(state State) {
	c.state = state
	c.form.RecordingStateChanged(state)
}

type session struct {
	id    string
	audio AudioSession

	done    chan struct{}
	buf     bytes.Buffer
	readErr error
	stopped sync.Once
}

func newSession(id string, audio AudioSession) *session {
	return &session{
		id:    id,
		audio: audio,
		done:  make(chan struct{}),
	}
}

// pump buffers chunks until the audio source ends.
func (s *session) pump(chunkSize int) {
	defer close(s.done)
	chunk := make([]byte, chunkSize)
	for {
		n, err := s.audio.Read(chunk)
		if n > 0 {
			s.buf.Write(chunk[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.readErr = err
			}
			return
		}
	}
}

// finish stops the source, waits for the pump and returns the buffered audio.
func (s *session) finish(logger *zap.Logger) []byte {
	s.stopped.Do(func() {
		if err := s.audio.Stop(); err != nil {
			logger.Warn("failed to stop capture", zap.String("session_id", s.id), zap.Error(err))
		}
	})
	<-s.done
	if s.readErr != nil {
		logger.Warn("capture ended with error", zap.String("session_id", s.id), zap.Error(s.readErr))
	}
	return s.buf.Bytes()
}
