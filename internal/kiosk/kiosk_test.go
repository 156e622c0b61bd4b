package kiosk

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/godilite/booth-feedback/internal/dashboard"
	"github.com/godilite/booth-feedback/internal/feedback"
	"github.com/godilite/booth-feedback/internal/recording"
	recmocks "github.com/godilite/booth-feedback/internal/recording/mocks"
	"github.com/godilite/booth-feedback/internal/screen"
	"github.com/godilite/booth-feedback/internal/submission"
)

type submitterFunc func(ctx context.Context, d feedback.Draft) (submission.Outcome, error)

func (f submitterFunc) Submit(ctx context.Context, d feedback.Draft) (submission.Outcome, error) {
	return f(ctx, d)
}

type loaderFunc func(ctx context.Context, identity string) (dashboard.AggregationResult, error)

func (f loaderFunc) Load(ctx context.Context, identity string) (dashboard.AggregationResult, error) {
	return f(ctx, identity)
}

type fakeRecorder struct {
	mu       sync.Mutex
	state    recording.State
	discards int
}

func (r *fakeRecorder) Start(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = recording.StateRecording
	return nil
}

func (r *fakeRecorder) Stop(context.Context, string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = recording.StateReady
	return nil
}

func (r *fakeRecorder) Discard() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discards++
	r.state = recording.StateIdle
}

func (r *fakeRecorder) State() recording.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func emptyLoader() loaderFunc {
	return func(context.Context, string) (dashboard.AggregationResult, error) {
		return dashboard.AggregationResult{}, nil
	}
}

func newTestKiosk(t *testing.T, sub Submitter, loader DashboardLoader) (*Kiosk, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	if sub == nil {
		sub = submitterFunc(func(context.Context, feedback.Draft) (submission.Outcome, error) {
			return submission.Outcome{}, errors.New("unexpected submit")
		})
	}
	if loader == nil {
		loader = emptyLoader()
	}
	return New(sub, loader, "ann@example.com", out, zaptest.NewLogger(t)), out
}

func run(k *Kiosk, lines ...string) {
	for _, l := range lines {
		k.Handle(context.Background(), l)
	}
}

func TestNewPanics(t *testing.T) {
	assert.Panics(t, func() { New(nil, emptyLoader(), "", &bytes.Buffer{}, nil) })
	assert.Panics(t, func() {
		New(submitterFunc(func(context.Context, feedback.Draft) (submission.Outcome, error) {
			return submission.Outcome{}, nil
		}), nil, "", &bytes.Buffer{}, nil)
	})
}

func TestFormEditing(t *testing.T) {
	k, out := newTestKiosk(t, nil, nil)

	run(k, "form", "booth A-01", "attr 2", "praise 72", "text Loved the live demo")

	d := k.Draft()
	assert.Equal(t, screen.Form, k.Screen())
	assert.Equal(t, "A-01", d.BoothID)
	assert.Equal(t, feedback.AttributeStudent, d.VisitorAttribute)
	assert.Equal(t, 70, d.PraiseRatio)
	assert.Equal(t, 30, d.AdviceRatio)
	assert.Equal(t, "Loved the live demo", d.RawText)
	assert.Contains(t, out.String(), "Praise:    70%  Advice: 30%")

	run(k, "attr robot", "praise lots")
	assert.Contains(t, out.String(), "Choose one of: 1=industry_professional")
	assert.Contains(t, out.String(), "Praise must be a number")
	assert.Equal(t, feedback.AttributeStudent, k.Draft().VisitorAttribute)
}

func TestSnapToStep(t *testing.T) {
	tests := map[int]int{0: 0, 2: 0, 3: 5, 72: 70, 73: 75, 100: 100, -4: 0}
	for in, want := range tests {
		assert.Equal(t, want, snapToStep(in), "snapToStep(%d)", in)
	}
}

func TestSubmit(t *testing.T) {
	t.Run("success moves to the dashboard and keeps the booth", func(t *testing.T) {
		var sent feedback.Draft
		sub := submitterFunc(func(_ context.Context, d feedback.Draft) (submission.Outcome, error) {
			sent = d
			return submission.Outcome{Status: submission.StatusSubmitted, Next: screen.ToDashboard, InsertedID: "42"}, nil
		})
		var loadedFor string
		loader := loaderFunc(func(_ context.Context, identity string) (dashboard.AggregationResult, error) {
			loadedFor = identity
			return dashboard.AggregationResult{TeamName: "Alpha", Message: "No feedback yet for Alpha."}, nil
		})
		k, out := newTestKiosk(t, sub, loader)

		run(k, "form", "booth a-01", "text great", "submit")

		assert.Equal(t, "great", sent.RawText)
		assert.Equal(t, screen.Dashboard, k.Screen())
		assert.Equal(t, "ann@example.com", loadedFor)
		assert.Contains(t, out.String(), "Feedback #42 was recorded")
		assert.Equal(t, "a-01", k.Draft().BoothID)
		assert.Empty(t, k.Draft().RawText)
	})

	t.Run("rejected stays on the form", func(t *testing.T) {
		sub := submitterFunc(func(context.Context, feedback.Draft) (submission.Outcome, error) {
			err := &feedback.ValidationError{Fields: []string{"raw_text"}}
			return submission.Outcome{Status: submission.StatusRejected, Next: screen.Stay, Message: err.Error()}, err
		})
		k, out := newTestKiosk(t, sub, nil)

		run(k, "form", "submit")

		assert.Equal(t, screen.Form, k.Screen())
		assert.Contains(t, out.String(), "Cannot submit:")
	})

	t.Run("failure shows server message and keeps the draft", func(t *testing.T) {
		sub := submitterFunc(func(context.Context, feedback.Draft) (submission.Outcome, error) {
			return submission.Outcome{
				Status:  submission.StatusFailed,
				Next:    screen.Stay,
				Message: "Invalid ratio data",
				Detail:  "praise_ratio must be an integer",
			}, errors.New("http 400")
		})
		k, out := newTestKiosk(t, sub, nil)

		run(k, "form", "booth a-01", "text keep me", "submit")

		assert.Equal(t, screen.Form, k.Screen())
		assert.Contains(t, out.String(), "Invalid ratio data (praise_ratio must be an integer)")
		assert.Equal(t, "keep me", k.Draft().RawText)
	})

	t.Run("blocked while recording", func(t *testing.T) {
		k, out := newTestKiosk(t, nil, nil)
		rec := &fakeRecorder{state: recording.StateRecording}
		k.UseRecorder(rec)

		run(k, "form", "submit")

		assert.Contains(t, out.String(), "Please wait for the recording to finish.")
	})
}

func TestTextDisabledWhileProcessing(t *testing.T) {
	k, out := newTestKiosk(t, nil, nil)
	run(k, "form", "text before")

	k.SetInputEnabled(false)
	run(k, "text during")

	assert.Equal(t, "before", k.Draft().RawText)
	assert.Contains(t, out.String(), "being transcribed")
}

func TestLeavingFormDiscardsRecording(t *testing.T) {
	k, _ := newTestKiosk(t, nil, nil)
	rec := &fakeRecorder{}
	k.UseRecorder(rec)

	run(k, "form", "record", "home")

	assert.Equal(t, screen.Home, k.Screen())
	assert.Equal(t, 1, rec.discards)
	assert.Equal(t, recording.StateIdle, rec.State())
}

func TestDashboardWithoutIdentity(t *testing.T) {
	out := &syncBuffer{}
	k := New(submitterFunc(func(context.Context, feedback.Draft) (submission.Outcome, error) {
		return submission.Outcome{}, nil
	}), loaderFunc(func(_ context.Context, identity string) (dashboard.AggregationResult, error) {
		if identity == "" {
			return dashboard.AggregationResult{}, dashboard.ErrNoIdentity
		}
		return dashboard.AggregationResult{TeamName: "Alpha"}, nil
	}), "", out, nil)

	run(k, "dashboard")
	assert.Contains(t, out.String(), "Sign in first")

	run(k, "identity ann@example.com")
	assert.Contains(t, out.String(), "== Alpha ==")
}

func TestRecordingRoundTrip(t *testing.T) {
	k, out := newTestKiosk(t, nil, nil)

	capture := &recmocks.MockCapture{
		StartFunc: func(context.Context, recording.AudioConfig) (recording.AudioSession, error) {
			return recmocks.NewMockAudioSession("opus-", "bytes"), nil
		},
	}
	transcriber := &recmocks.MockTranscriber{
		TranscribeFunc: func(_ context.Context, req feedback.TranscribeRequest) (feedback.TranscribeResponse, error) {
			return feedback.TranscribeResponse{Text: "dictated feedback", Summary: "dictated"}, nil
		},
	}
	ctrl := recording.NewController(capture, transcriber, k, recording.Config{}, zaptest.NewLogger(t))
	k.UseRecorder(ctrl)

	run(k, "form", "booth a-01", "record")
	assert.Equal(t, recording.PlaceholderRecording, k.Draft().RawText)

	run(k, "stop")
	k.pending.Wait()

	assert.Equal(t, recording.StateReady, ctrl.State())
	assert.Equal(t, "dictated feedback", k.Draft().RawText)
	assert.Contains(t, out.String(), "[processing]")
	assert.Contains(t, out.String(), "* dictated")

	reqs := transcriber.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "a-01", reqs[0].BoothID)
}

func TestRun(t *testing.T) {
	k, out := newTestKiosk(t, nil, nil)
	rec := &fakeRecorder{}
	k.UseRecorder(rec)

	err := k.Run(context.Background(), strings.NewReader("form\nbooth a-01\nquit\nbooth ignored\n"))

	require.NoError(t, err)
	assert.Equal(t, "a-01", k.Draft().BoothID)
	assert.Equal(t, 1, rec.discards)
	assert.Contains(t, out.String(), "form> ")
}

func TestRunCancelled(t *testing.T) {
	k, _ := newTestKiosk(t, nil, nil)
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := k.Run(ctx, pr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanLinesStopsWhenDone(t *testing.T) {
	done := make(chan struct{})
	close(done)

	lines, _ := scanLines(strings.NewReader("help\nquit\nform\n"), done)

	var received []string
	require.Eventually(t, func() bool {
		select {
		case line, ok := <-lines:
			if ok {
				received = append(received, line)
				return false
			}
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)
	assert.Empty(t, received)
}

func TestFormatDashboard(t *testing.T) {
	score := func(v float64) *float64 { return &v }

	t.Run("empty shows server message", func(t *testing.T) {
		got := FormatDashboard(dashboard.AggregationResult{Message: "Present first."})
		assert.Equal(t, "== Your team ==\nPresent first.\n", got)
	})

	t.Run("items with bands", func(t *testing.T) {
		got := FormatDashboard(dashboard.AggregationResult{
			TeamName:        "Alpha",
			BoothID:         "a-01",
			AverageScore:    score(72.5),
			TotalCount:      2,
			TotalTeamsCount: 4,
			TeamMembers: []dashboard.Member{
				{Name: "Ann", Email: "ann@example.com", IsCurrentUser: true},
				{Email: "bob@example.com"},
			},
			Items: []dashboard.Item{
				{AttributeLabel: "Student", Score: score(85), RawText: "great", SummaryText: "great", IsProcessed: true},
				{AttributeLabel: "Visitor 2", RawText: "ok"},
			},
		})

		assert.Contains(t, got, "== Alpha (booth a-01) ==")
		assert.Contains(t, got, "Average score: 72.5 [mid]  Feedback: 2  Teams: 4")
		assert.Contains(t, got, "Members: Ann (you), bob@example.com")
		assert.Contains(t, got, "-- Student [high] 85.0\n   great\n   summary: great\n")
		assert.Contains(t, got, "-- Visitor 2 [unknown] -\n   ok\n")
	})
	t.Run("legacy score without comments is shown", func(t *testing.T) {
		res, err := dashboard.Normalize([]byte(`{"team_name":"T","score":90,"comments":[]}`), "")
		require.NoError(t, err)

		got := FormatDashboard(res)

		assert.Equal(t, "== T ==\nAverage score: 90.0 [high]  Feedback: 0\n", got)
		assert.NotContains(t, got, "No feedback yet.")
	})
}
