// Package audio captures microphone input as WebM/Opus through ffmpeg.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/godilite/booth-feedback/internal/recording"
)

const (
	DefaultCommand    = "ffmpeg"
	DefaultSampleRate = 48000

	startupGrace = 250 * time.Millisecond
	stopTimeout  = 1200 * time.Millisecond
)

var permissionMarkers = []string{
	"permission denied",
	"operation not permitted",
	"access denied",
}

// FFMPEGCapture records the default input device into an Opus stream in a
// WebM container written to ffmpeg's stdout.
type FFMPEGCapture struct {
	command string
}

func NewFFMPEGCapture(command string) *FFMPEGCapture {
	if command == "" {
		command = DefaultCommand
	}
	return &FFMPEGCapture{command: command}
}

func (c *FFMPEGCapture) Start(ctx context.Context, cfg recording.AudioConfig) (recording.AudioSession, error) {
	cmd := exec.CommandContext(ctx, c.command, Args(cfg)...)
	cmd.WaitDelay = stopTimeout

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// Wait only returns once everything written to pw has been consumed,
	// so the reader sees the full stream before EOF.
	pr, pw := io.Pipe()
	cmd.Stdout = pw

	if err := cmd.Start(); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("failed to start %s: %w: %w", c.command, recording.ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("failed to start %s: %w", c.command, err)
	}

	waitErr := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		_ = pw.Close()
		waitErr <- err
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		detail := trimSpace(stderr.String())
		if isPermissionError(detail) {
			return nil, fmt.Errorf("ffmpeg exited before capture started: %w: %s", recording.ErrPermissionDenied, detail)
		}
		if err != nil {
			return nil, fmt.Errorf("ffmpeg exited before capture started: %w: %s", err, detail)
		}
		return nil, errors.New("ffmpeg exited before capture started")
	case <-time.After(startupGrace):
	}

	return &ffmpegSession{
		stdout:  pr,
		stderr:  &stderr,
		process: cmd.Process,
		waitErr: waitErr,
	}, nil
}

// Args builds the ffmpeg argument list for cfg, filling defaults.
func Args(cfg recording.AudioConfig) []string {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-c:a", "libopus",
		"-f", "webm",
		"-",
	}
}

type ffmpegSession struct {
	stdout *io.PipeReader
	stderr *bytes.Buffer

	process *os.Process
	waitErr <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (s *ffmpegSession) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

// Stop interrupts ffmpeg so it can finalize the container, killing it if it
// does not exit in time. Read keeps returning buffered output until EOF.
func (s *ffmpegSession) Stop() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		var (
			err error
			ok  bool
		)
		select {
		case err, ok = <-s.waitErr:
		case <-time.After(stopTimeout):
			if s.process != nil {
				_ = s.process.Kill()
			}
			err, ok = <-s.waitErr
		}
		if ok {
			s.stopErr = normalizeStopErr(err)
		}

		if s.stopErr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, trimSpace(s.stderr.String()))
		}
	})
	return s.stopErr
}

func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func isPermissionError(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, marker := range permissionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func trimSpace(input string) string {
	if input == "" {
		return input
	}
	return strings.TrimSpace(input)
}
