package audio

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Prober obtains audio duration by shelling out to a media-inspection
// utility. Probing is explicitly best-effort: a missing binary, a
// non-zero exit or unparsable output all degrade to 0 with a warning,
// never a failed request.
type Prober struct {
	Command string // defaults to "ffprobe"
	Logger  *zap.Logger
}

// Duration returns the audio duration in seconds, or 0 when the probe
// fails for any reason.
func (p *Prober) Duration(ctx context.Context, audioPath string) float64 {
	command := p.Command
	if strings.TrimSpace(command) == "" {
		command = "ffprobe"
	}

	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cmd := exec.CommandContext(ctx, command,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioPath,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		logger.Warn("duration probe failed",
			zap.String("audio", audioPath),
			zap.Error(err),
			zap.String("stderr", strings.TrimSpace(stderr.String())),
		)
		return 0
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		logger.Warn("duration probe produced unparsable output",
			zap.String("audio", audioPath),
			zap.String("output", strings.TrimSpace(stdout.String())),
		)
		return 0
	}

	return seconds
}
