package audio

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godilite/booth-feedback/internal/recording"
)

func TestFFMPEGCaptureStartReadAndStop(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "capture.sh", "#!/usr/bin/env bash\nprintf 'hello'\nexec sleep 5\n")
	session, err := NewFFMPEGCapture(script).Start(context.Background(), recording.AudioConfig{})
	require.NoError(t, err)

	read := make(chan []byte, 1)
	go func() {
		b, _ := io.ReadAll(session)
		read <- b
	}()

	require.NoError(t, session.Stop())

	select {
	case b := <-read:
		assert.Equal(t, "hello", string(b))
	case <-time.After(5 * time.Second):
		t.Fatal("reader did not reach EOF after stop")
	}
}

func TestFFMPEGCaptureStartEarlyExit(t *testing.T) {
	t.Parallel()

	t.Run("generic failure", func(t *testing.T) {
		script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho 'boom' 1>&2\nexit 1\n")

		_, err := NewFFMPEGCapture(script).Start(context.Background(), recording.AudioConfig{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "exited before capture started")
		assert.Contains(t, err.Error(), "boom")
		assert.NotErrorIs(t, err, recording.ErrPermissionDenied)
	})

	t.Run("permission denied", func(t *testing.T) {
		script := writeScript(t, "denied.sh", "#!/usr/bin/env bash\necho 'default: Permission denied' 1>&2\nexit 1\n")

		_, err := NewFFMPEGCapture(script).Start(context.Background(), recording.AudioConfig{})

		require.Error(t, err)
		assert.ErrorIs(t, err, recording.ErrPermissionDenied)
	})

	t.Run("missing binary", func(t *testing.T) {
		_, err := NewFFMPEGCapture(filepath.Join(t.TempDir(), "nope")).Start(context.Background(), recording.AudioConfig{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to start")
	})
}

func TestArgs(t *testing.T) {
	t.Parallel()

	args := Args(recording.AudioConfig{})
	assert.Equal(t, []string{
		"-nostdin", "-hide_banner", "-loglevel", "warning",
		"-f", "pulse", "-i", "default",
		"-ac", "1", "-ar", "48000",
		"-c:a", "libopus", "-f", "webm", "-",
	}, args)

	args = Args(recording.AudioConfig{InputFormat: "alsa", InputDevice: "hw:1", SampleRate: 16000, Channels: 2})
	assert.Contains(t, args, "alsa")
	assert.Contains(t, args, "hw:1")
	assert.Contains(t, args, "16000")
	assert.Contains(t, args, "2")
}

func TestNormalizeStopErrExitErrorIsIgnored(t *testing.T) {
	t.Parallel()

	err := exec.Command("bash", "-c", "exit 1").Run()
	require.Error(t, err)
	assert.NoError(t, normalizeStopErr(err))
}

func TestIsPermissionError(t *testing.T) {
	t.Parallel()

	assert.True(t, isPermissionError("[alsa] cannot open audio device: Operation not permitted"))
	assert.False(t, isPermissionError("Device or resource busy"))
	assert.False(t, isPermissionError(""))
}

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o700))
	return path
}
