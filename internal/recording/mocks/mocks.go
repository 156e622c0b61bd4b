package mocks

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/godilite/booth-feedback/internal/feedback"
	"github.com/godilite/booth-feedback/internal/recording"
)

// MockCapture is a function-based AudioCapture.
type MockCapture struct {
	StartFunc func(ctx context.Context, cfg recording.AudioConfig) (recording.AudioSession, error)

	mu    sync.Mutex
	calls int
}

func (m *MockCapture) Start(ctx context.Context, cfg recording.AudioConfig) (recording.AudioSession, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.StartFunc != nil {
		return m.StartFunc(ctx, cfg)
	}
	return nil, errors.New("no capture device")
}

// Calls returns how many times Start was invoked.
func (m *MockCapture) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockAudioSession yields its chunks, then blocks until Stop and reports EOF.
type MockAudioSession struct {
	StopErr error

	mu        sync.Mutex
	chunks    [][]byte
	stopCalls int
	stopped   chan struct{}
	once      sync.Once
}

func NewMockAudioSession(chunks ...string) *MockAudioSession {
	s := &MockAudioSession{stopped: make(chan struct{})}
	for _, c := range chunks {
		s.chunks = append(s.chunks, []byte(c))
	}
	return s
}

func (m *MockAudioSession) Read(p []byte) (int, error) {
	m.mu.Lock()
	if len(m.chunks) > 0 {
		n := copy(p, m.chunks[0])
		m.chunks[0] = m.chunks[0][n:]
		if len(m.chunks[0]) == 0 {
			m.chunks = m.chunks[1:]
		}
		m.mu.Unlock()
		return n, nil
	}
	m.mu.Unlock()

	<-m.stopped
	return 0, io.EOF
}

func (m *MockAudioSession) Stop() error {
	m.once.Do(func() { close(m.stopped) })
	m.mu.Lock()
	m.stopCalls++
	m.mu.Unlock()
	return m.StopErr
}

// StopCalls returns how many times Stop was invoked.
func (m *MockAudioSession) StopCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCalls
}

// MockTranscriber is a function-based Transcriber.
type MockTranscriber struct {
	TranscribeFunc func(ctx context.Context, req feedback.TranscribeRequest) (feedback.TranscribeResponse, error)

	mu       sync.Mutex
	requests []feedback.TranscribeRequest
}

func (m *MockTranscriber) Transcribe(ctx context.Context, req feedback.TranscribeRequest) (feedback.TranscribeResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, req)
	}
	return feedback.TranscribeResponse{}, errors.New("transcription unavailable")
}

// Requests returns a copy of every request received.
func (m *MockTranscriber) Requests() []feedback.TranscribeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]feedback.TranscribeRequest(nil), m.requests...)
}

// MockForm records what the controller writes to the form.
type MockForm struct {
	mu           sync.Mutex
	rawText      string
	inputEnabled bool
	notices      []string
	states       []recording.State
}

func NewMockForm() *MockForm {
	return &MockForm{inputEnabled: true}
}

func (m *MockForm) SetRawText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rawText = text
}

func (m *MockForm) SetInputEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputEnabled = enabled
}

func (m *MockForm) Notify(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, message)
}

func (m *MockForm) RecordingStateChanged(state recording.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, state)
}

func (m *MockForm) RawText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rawText
}

func (m *MockForm) InputEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inputEnabled
}

func (m *MockForm) Notices() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.notices...)
}

func (m *MockForm) States() []recording.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recording.State(nil), m.states...)
}
