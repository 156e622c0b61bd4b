// Package kiosk is the booth's line-oriented terminal front-end: a home
// screen, the feedback form and the team dashboard.
package kiosk

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/godilite/booth-feedback/internal/dashboard"
	"github.com/godilite/booth-feedback/internal/feedback"
	"github.com/godilite/booth-feedback/internal/recording"
	"github.com/godilite/booth-feedback/internal/screen"
	"github.com/godilite/booth-feedback/internal/submission"
)

// Recorder is the recording controller as seen by the form.
type Recorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context, boothID string) error
	Discard()
	State() recording.State
}

// Submitter sends a draft.
type Submitter interface {
	Submit(ctx context.Context, draft feedback.Draft) (submission.Outcome, error)
}

// DashboardLoader loads the dashboard for an identity.
type DashboardLoader interface {
	Load(ctx context.Context, identity string) (dashboard.AggregationResult, error)
}

// Kiosk implements recording.Form for its own feedback form.
type Kiosk struct {
	submitter Submitter
	loader    DashboardLoader
	logger    *zap.Logger

	recorder Recorder
	pending  sync.WaitGroup

	outMu sync.Mutex
	out   io.Writer

	mu           sync.Mutex
	router       screen.Router
	draft        feedback.Draft
	identity     string
	inputEnabled bool
	recState     recording.State
}

// New creates a Kiosk writing to out. Call UseRecorder before Run.
func New(submitter Submitter, loader DashboardLoader, identity string, out io.Writer, logger *zap.Logger) *Kiosk {
	if submitter == nil {
		panic("nil Submitter provided to kiosk.New")
	}
	if loader == nil {
		panic("nil DashboardLoader provided to kiosk.New")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Kiosk{
		submitter:    submitter,
		loader:       loader,
		logger:       logger.Named("kiosk"),
		out:          out,
		router:       screen.NewRouter(),
		draft:        feedback.NewDraft(),
		identity:     strings.TrimSpace(identity),
		inputEnabled: true,
		recState:     recording.StateIdle,
	}
}

// UseRecorder attaches the recording controller driving this form.
func (k *Kiosk) UseRecorder(r Recorder) {
	k.recorder = r
}

// Screen returns the screen being shown.
func (k *Kiosk) Screen() screen.Screen {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.router.Current()
}

// Draft returns a copy of the form's draft.
func (k *Kiosk) Draft() feedback.Draft {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.draft
}

// Run reads commands from in until EOF, "quit" or ctx is done.
func (k *Kiosk) Run(ctx context.Context, in io.Reader) error {
	k.renderScreen(ctx)
	k.prompt()

	done := make(chan struct{})
	defer close(done)
	lines, scanErr := scanLines(in, done)

	defer k.pending.Wait()
	for {
		select {
		case <-ctx.Done():
			k.leaveForm()
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				k.leaveForm()
				return <-scanErr
			}
			if quit := k.Handle(ctx, line); quit {
				k.leaveForm()
				return nil
			}
			k.prompt()
		}
	}
}

// scanLines feeds lines from in until EOF or until done is closed. The
// error channel is buffered and only written on EOF.
func scanLines(in io.Reader, done <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
		scanErr <- sc.Err()
	}()
	return lines, scanErr
}

// Handle executes one command line and reports whether the kiosk should exit.
func (k *Kiosk) Handle(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	cmd = strings.ToLower(cmd)
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "":
		return false
	case "quit", "exit":
		return true
	case "help", "?":
		k.printHelp()
		return false
	case "home", "back":
		k.navigate(ctx, screen.ToHome)
		return false
	case "form", "new":
		k.navigate(ctx, screen.ToForm)
		return false
	case "dashboard", "dash":
		k.navigate(ctx, screen.ToDashboard)
		return false
	case "identity":
		k.setIdentity(ctx, arg)
		return false
	}

	switch k.Screen() {
	case screen.Form:
		k.handleForm(ctx, cmd, arg)
	case screen.Dashboard:
		if cmd == "refresh" {
			k.renderDashboard(ctx)
		} else {
			k.printf("Unknown command %q. Type help.\n", cmd)
		}
	default:
		k.printf("Unknown command %q. Type help.\n", cmd)
	}
	return false
}

func (k *Kiosk) navigate(ctx context.Context, t screen.Transition) {
	k.mu.Lock()
	from := k.router.Current()
	k.router = k.router.Apply(t)
	to := k.router.Current()
	k.mu.Unlock()

	if from == to {
		k.renderScreen(ctx)
		return
	}
	if from == screen.Form {
		k.leaveForm()
	}
	k.logger.Debug("screen changed", zap.String("from", string(from)), zap.String("to", string(to)))
	k.renderScreen(ctx)
}

// leaveForm drops any recording in progress.
func (k *Kiosk) leaveForm() {
	if k.recorder != nil {
		k.recorder.Discard()
	}
}

func (k *Kiosk) setIdentity(ctx context.Context, identity string) {
	k.mu.Lock()
	k.identity = identity
	current := k.router.Current()
	k.mu.Unlock()

	if identity == "" {
		k.printf("Signed out.\n")
	} else {
		k.printf("Signed in as %s.\n", identity)
	}
	if current == screen.Dashboard {
		k.renderDashboard(ctx)
	}
}

func (k *Kiosk) handleForm(ctx context.Context, cmd, arg string) {
	switch cmd {
	case "booth":
		k.mu.Lock()
		k.draft.BoothID = arg
		k.mu.Unlock()
	case "attr", "attribute":
		attr, ok := parseAttribute(arg)
		if !ok {
			k.printf("Choose one of: %s\n", attributeChoices())
			return
		}
		k.mu.Lock()
		k.draft.VisitorAttribute = attr
		k.mu.Unlock()
	case "praise":
		n, err := strconv.Atoi(arg)
		if err != nil {
			k.printf("Praise must be a number from 0 to 100.\n")
			return
		}
		k.mu.Lock()
		k.draft.SetPraiseRatio(snapToStep(n))
		k.mu.Unlock()
	case "text":
		k.mu.Lock()
		enabled := k.inputEnabled
		if enabled {
			k.draft.RawText = arg
		}
		k.mu.Unlock()
		if !enabled {
			k.printf("Please wait, your recording is being transcribed.\n")
			return
		}
	case "record":
		k.startRecording(ctx)
		return
	case "stop":
		k.stopRecording(ctx)
		return
	case "submit":
		k.submit(ctx)
		return
	case "show":
	default:
		k.printf("Unknown command %q. Type help.\n", cmd)
		return
	}
	k.renderForm()
}

func (k *Kiosk) startRecording(ctx context.Context) {
	if k.recorder == nil {
		k.printf("Recording is not available on this kiosk.\n")
		return
	}
	err := k.recorder.Start(ctx)
	var denied *recording.PermissionDeniedError
	switch {
	case err == nil:
	case errors.As(err, &denied):
		k.logger.Warn("microphone permission denied", zap.Error(err))
	case errors.Is(err, recording.ErrStaleSession):
	default:
		k.logger.Error("failed to start recording", zap.Error(err))
	}
}

// stopRecording runs the transcription round-trip in the background so the
// form stays responsive and can still be left.
func (k *Kiosk) stopRecording(ctx context.Context) {
	if k.recorder == nil || k.recorder.State() != recording.StateRecording {
		k.printf("Not recording.\n")
		return
	}
	booth := strings.TrimSpace(k.Draft().BoothID)

	k.pending.Add(1)
	go func() {
		defer k.pending.Done()
		err := k.recorder.Stop(ctx, booth)
		switch {
		case err == nil, errors.Is(err, recording.ErrStaleSession):
		case errors.Is(err, recording.ErrNoAudio):
			k.printf("No audio was captured.\n")
		default:
			k.logger.Warn("transcription round-trip failed", zap.Error(err))
		}
		if err == nil {
			k.renderForm()
		}
	}()
}

func (k *Kiosk) submit(ctx context.Context) {
	if k.recorder != nil && isBusy(k.recorder.State()) {
		k.printf("Please wait for the recording to finish.\n")
		return
	}

	out, err := k.submitter.Submit(ctx, k.Draft())
	switch out.Status {
	case submission.StatusIgnored:
		return
	case submission.StatusRejected:
		k.printf("Cannot submit: %s\n", out.Message)
		return
	case submission.StatusFailed:
		k.logger.Warn("submission failed", zap.Error(err))
		if out.Detail != "" {
			k.printf("%s (%s)\n", out.Message, out.Detail)
		} else {
			k.printf("%s\n", out.Message)
		}
		return
	}

	k.printf("Thank you! Feedback #%s was recorded.\n", out.InsertedID)
	k.mu.Lock()
	booth := k.draft.BoothID
	k.draft = feedback.NewDraft()
	k.draft.BoothID = booth
	k.mu.Unlock()
	k.navigate(ctx, out.Next)
}

func isBusy(s recording.State) bool {
	return s == recording.StateRecording || s == recording.StateUploading || s == recording.StateProcessing
}

func parseAttribute(arg string) (feedback.VisitorAttribute, bool) {
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(feedback.Attributes) {
		return feedback.Attributes[n-1], true
	}
	return feedback.ParseVisitorAttribute(arg)
}

func attributeChoices() string {
	parts := make([]string, len(feedback.Attributes))
	for i, a := range feedback.Attributes {
		parts[i] = fmt.Sprintf("%d=%s", i+1, a)
	}
	return strings.Join(parts, ", ")
}

// snapToStep rounds to the slider step.
func snapToStep(n int) int {
	step := feedback.RatioStep
	if n < 0 {
		return 0
	}
	return (n + step/2) / step * step
}

// SetRawText implements recording.Form.
func (k *Kiosk) SetRawText(text string) {
	k.mu.Lock()
	k.draft.RawText = text
	k.mu.Unlock()
}

// SetInputEnabled implements recording.Form.
func (k *Kiosk) SetInputEnabled(enabled bool) {
	k.mu.Lock()
	k.inputEnabled = enabled
	k.mu.Unlock()
}

// Notify implements recording.Form.
func (k *Kiosk) Notify(message string) {
	k.printf("* %s\n", message)
}

// RecordingStateChanged implements recording.Form.
func (k *Kiosk) RecordingStateChanged(state recording.State) {
	k.mu.Lock()
	k.recState = state
	k.mu.Unlock()

	switch state {
	case recording.StateRecording:
		k.printf("[recording] type stop when you are done\n")
	case recording.StateProcessing:
		k.printf("[processing] transcribing your feedback...\n")
	case recording.StateError:
		k.printf("[error] %s\n", recording.TextTranscriptionFail)
	}
}

func (k *Kiosk) printf(format string, args ...any) {
	k.outMu.Lock()
	defer k.outMu.Unlock()
	fmt.Fprintf(k.out, format, args...)
}

func (k *Kiosk) prompt() {
	k.printf("%s> ", k.Screen())
}
