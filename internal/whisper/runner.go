package whisper

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultRunnerExecutable = "whisperd-runner"

	// First start may pull model weights into the cache directory, so the
	// handshake window is generous.
	defaultStartupTimeout = 10 * time.Minute

	maxEventLineSize = 4 * 1024 * 1024
)

// RunnerConfig describes how to start the inference runner process.
type RunnerConfig struct {
	Executable     string
	ModelRef       string // model name, or a local model directory
	Device         string
	ComputeType    string
	CPUThreads     int
	CacheDir       string
	StartupTimeout time.Duration
}

// Runner drives the inference engine through a long-lived helper process.
// The process loads the model once at startup and answers transcription
// requests over a newline-delimited JSON protocol on stdin/stdout: zero or
// more "segment" events per request, terminated by a single "info" or
// "error" event. The process is never restarted; it lives until whisperd
// exits.
type Runner struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	out    *bufio.Scanner
	stderr *tailBuffer
	logger *zap.Logger

	// One request on the pipe at a time. Inference is CPU-bound and the
	// engine processes a single file per invocation anyway.
	mu sync.Mutex
}

type runnerEvent struct {
	Event    string  `json:"event"`
	ID       int     `json:"id"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Error    string  `json:"error"`
}

type runnerRequest struct {
	Audio        string `json:"audio"`
	BeamSize     int    `json:"beam_size"`
	VADFilter    bool   `json:"vad_filter"`
	MinSilenceMS int    `json:"min_silence_ms"`
	Language     string `json:"language,omitempty"`
}

// StartRunner launches the helper process and waits for its ready
// handshake. A handshake failure of any kind reports an error; the
// fallback policy on top of this lives in the Manager.
func StartRunner(cfg RunnerConfig, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.ModelRef) == "" {
		return nil, errors.New("model reference is required")
	}

	executable := cfg.Executable
	if strings.TrimSpace(executable) == "" {
		executable = defaultRunnerExecutable
	}

	args := []string{
		"--model", cfg.ModelRef,
		"--device", cfg.Device,
		"--compute-type", cfg.ComputeType,
		"--threads", strconv.Itoa(cfg.CPUThreads),
	}
	if cfg.CacheDir != "" {
		args = append(args, "--cache-dir", cfg.CacheDir)
	}

	cmd := exec.Command(executable, args...)
	stderr := &tailBuffer{}
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open runner stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open runner stdout: %w", err)
	}

	logger.Debug("starting inference runner", zap.String("executable", executable), zap.Strings("args", args))
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start runner %s: %w", executable, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxEventLineSize)

	r := &Runner{
		cmd:    cmd,
		stdin:  stdin,
		out:    scanner,
		stderr: stderr,
		logger: logger,
	}

	timeout := cfg.StartupTimeout
	if timeout <= 0 {
		timeout = defaultStartupTimeout
	}

	if err := r.awaitReady(timeout); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}

	return r, nil
}

func (r *Runner) awaitReady(timeout time.Duration) error {
	type outcome struct {
		event runnerEvent
		err   error
	}

	done := make(chan outcome, 1)
	go func() {
		event, err := r.readEvent()
		done <- outcome{event: event, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return fmt.Errorf("runner handshake: %w", o.err)
		}
		switch o.event.Event {
		case "ready":
			return nil
		case "fatal":
			return fmt.Errorf("runner initialization failed: %s", o.event.Error)
		default:
			return fmt.Errorf("unexpected handshake event %q", o.event.Event)
		}
	case <-time.After(timeout):
		return fmt.Errorf("runner did not become ready within %s", timeout)
	}
}

// Transcribe sends one request down the pipe and drains the segment
// stream eagerly into an ordered list. The engine produces segments
// lazily, but callers need the total text and segment count up front.
func (r *Runner) Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	request := runnerRequest{
		Audio:        audioPath,
		BeamSize:     opts.BeamSize,
		VADFilter:    opts.VADFilter,
		MinSilenceMS: opts.MinSilenceMS,
		Language:     opts.Language,
	}
	payload, err := json.Marshal(request)
	if err != nil {
		return nil, &TranscriptionError{Err: fmt.Errorf("encode request: %w", err)}
	}
	if _, err := r.stdin.Write(append(payload, '\n')); err != nil {
		return nil, &TranscriptionError{Err: fmt.Errorf("write request: %w (%s)", err, r.stderr.Tail())}
	}

	var (
		segments  []Segment
		textParts []string
	)

	for {
		event, err := r.readEvent()
		if err != nil {
			return nil, &TranscriptionError{Err: fmt.Errorf("read engine output: %w (%s)", err, r.stderr.Tail())}
		}

		switch event.Event {
		case "segment":
			segments = append(segments, Segment{
				ID:    event.ID,
				Start: event.Start,
				End:   event.End,
				Text:  strings.TrimSpace(event.Text),
			})
			textParts = append(textParts, event.Text)
		case "info":
			return &Result{
				Text:     strings.TrimSpace(strings.Join(textParts, "")),
				Language: event.Language,
				Duration: event.Duration,
				Segments: segments,
			}, nil
		case "error":
			return nil, &TranscriptionError{Err: errors.New(event.Error)}
		default:
			r.logger.Debug("ignoring unknown runner event", zap.String("event", event.Event))
		}
	}
}

// Close terminates the runner process. The service never calls this;
// the runner lives until the process exits.
func (r *Runner) Close() error {
	_ = r.stdin.Close()
	if r.cmd.Process != nil {
		_ = r.cmd.Process.Kill()
	}
	return r.cmd.Wait()
}

func (r *Runner) readEvent() (runnerEvent, error) {
	if !r.out.Scan() {
		if err := r.out.Err(); err != nil {
			return runnerEvent{}, err
		}
		return runnerEvent{}, errors.New("runner exited unexpectedly")
	}

	var event runnerEvent
	if err := json.Unmarshal(r.out.Bytes(), &event); err != nil {
		return runnerEvent{}, fmt.Errorf("decode event %q: %w", truncateLine(r.out.Text()), err)
	}
	return event, nil
}

func truncateLine(line string) string {
	const limit = 200
	if len(line) <= limit {
		return line
	}
	return line[:limit] + "..."
}

// tailBuffer keeps the last chunk of the runner's stderr for error
// reporting without growing unbounded.
type tailBuffer struct {
	mu   sync.Mutex
	data []byte
}

const tailBufferSize = 8 * 1024

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = append(b.data, p...)
	if len(b.data) > tailBufferSize {
		b.data = b.data[len(b.data)-tailBufferSize:]
	}
	return len(p), nil
}

func (b *tailBuffer) Tail() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return strings.TrimSpace(string(b.data))
}
