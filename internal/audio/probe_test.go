package audio

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeProbeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script probe stubs require a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "ffprobe.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestProberParsesDuration(t *testing.T) {
	t.Parallel()

	p := &Prober{Command: writeProbeScript(t, "echo 2.5\n")}
	require.Equal(t, 2.5, p.Duration(context.Background(), "/tmp/audio.wav"))
}

func TestProberNonNumericOutput(t *testing.T) {
	t.Parallel()

	p := &Prober{Command: writeProbeScript(t, "echo N/A\n")}
	require.Zero(t, p.Duration(context.Background(), "/tmp/audio.wav"))
}

func TestProberCommandFailure(t *testing.T) {
	t.Parallel()

	p := &Prober{Command: writeProbeScript(t, "echo 'no such file' >&2\nexit 1\n")}
	require.Zero(t, p.Duration(context.Background(), "/tmp/audio.wav"))
}

func TestProberMissingCommand(t *testing.T) {
	t.Parallel()

	p := &Prober{Command: filepath.Join(t.TempDir(), "does-not-exist")}
	require.Zero(t, p.Duration(context.Background(), "/tmp/audio.wav"))
}
