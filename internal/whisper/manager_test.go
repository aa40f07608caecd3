package whisper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEngine struct {
	computeType string
}

func (f *fakeEngine) Transcribe(_ context.Context, _ string, _ Options) (*Result, error) {
	return &Result{}, nil
}

func newTestManager(cfg RunnerConfig, start func(RunnerConfig, *zap.Logger) (Engine, error)) *Manager {
	m := NewManager(cfg, zap.NewNop())
	m.start = start
	return m
}

func TestManagerGetIsIdempotent(t *testing.T) {
	t.Parallel()

	loads := 0
	m := newTestManager(RunnerConfig{ModelRef: "small", Device: "cpu", ComputeType: "int8"},
		func(cfg RunnerConfig, _ *zap.Logger) (Engine, error) {
			loads++
			return &fakeEngine{computeType: cfg.ComputeType}, nil
		})

	first, err := m.Get()
	require.NoError(t, err)
	second, err := m.Get()
	require.NoError(t, err)

	require.Same(t, first, second)
	require.Equal(t, 1, loads)
}

func TestManagerDowngradesFloat16OnCPU(t *testing.T) {
	t.Parallel()

	var used string
	m := newTestManager(RunnerConfig{ModelRef: "small", Device: "cpu", ComputeType: "float16"},
		func(cfg RunnerConfig, _ *zap.Logger) (Engine, error) {
			used = cfg.ComputeType
			return &fakeEngine{}, nil
		})

	_, err := m.Get()
	require.NoError(t, err)
	require.Equal(t, "int8", used)
}

func TestManagerKeepsFloat16OnGPU(t *testing.T) {
	t.Parallel()

	var used string
	m := newTestManager(RunnerConfig{ModelRef: "small", Device: "cuda", ComputeType: "float16"},
		func(cfg RunnerConfig, _ *zap.Logger) (Engine, error) {
			used = cfg.ComputeType
			return &fakeEngine{}, nil
		})

	_, err := m.Get()
	require.NoError(t, err)
	require.Equal(t, "float16", used)
}

func TestManagerFallsBackToFloat32(t *testing.T) {
	t.Parallel()

	var attempts []string
	m := newTestManager(RunnerConfig{ModelRef: "small", Device: "cpu", ComputeType: "int8"},
		func(cfg RunnerConfig, _ *zap.Logger) (Engine, error) {
			attempts = append(attempts, cfg.ComputeType)
			if cfg.ComputeType != "float32" {
				return nil, errors.New("int8 not supported")
			}
			return &fakeEngine{computeType: cfg.ComputeType}, nil
		})

	engine, err := m.Get()
	require.NoError(t, err)
	require.Equal(t, []string{"int8", "float32"}, attempts)
	require.Equal(t, "float32", engine.(*fakeEngine).computeType)
}

func TestManagerFailedFallbackIsFatal(t *testing.T) {
	t.Parallel()

	attempts := 0
	m := newTestManager(RunnerConfig{ModelRef: "small", Device: "cpu", ComputeType: "int8"},
		func(cfg RunnerConfig, _ *zap.Logger) (Engine, error) {
			attempts++
			return nil, errors.New("no backend available")
		})

	_, err := m.Get()
	var loadErr *ModelLoadError
	require.ErrorAs(t, err, &loadErr)
	require.Equal(t, 2, attempts)

	// The failure is cached; Get never retries the load.
	_, again := m.Get()
	require.ErrorAs(t, again, &loadErr)
	require.Equal(t, 2, attempts)
}

func TestManagerNoThirdAttemptWhenPrimaryIsFloat32(t *testing.T) {
	t.Parallel()

	attempts := 0
	m := newTestManager(RunnerConfig{ModelRef: "small", Device: "cpu", ComputeType: "float32"},
		func(cfg RunnerConfig, _ *zap.Logger) (Engine, error) {
			attempts++
			return nil, errors.New("boom")
		})

	_, err := m.Get()
	var loadErr *ModelLoadError
	require.ErrorAs(t, err, &loadErr)
	require.Equal(t, 1, attempts)
}
