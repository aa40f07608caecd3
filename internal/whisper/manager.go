package whisper

import (
	"sync"

	"go.uber.org/zap"
)

const fallbackComputeType = "float32"

// Manager owns the process-wide inference engine. The engine is loaded
// lazily on first use; the load is serialized so concurrent first
// requests cannot race into duplicate loads. Whatever the first load
// produces, handle or error, is cached for the process lifetime.
type Manager struct {
	cfg    RunnerConfig
	logger *zap.Logger

	start func(RunnerConfig, *zap.Logger) (Engine, error)

	mu     sync.Mutex
	loaded bool
	engine Engine
	err    error
}

// NewManager prepares a manager; nothing is loaded until Get is called.
// A lazy load trades a slower first request for not requiring the
// configured quantization to be available at deploy time.
func NewManager(cfg RunnerConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		cfg:    cfg,
		logger: logger,
	}
	m.start = func(cfg RunnerConfig, logger *zap.Logger) (Engine, error) {
		return StartRunner(cfg, logger)
	}
	return m
}

// Get returns the loaded engine, initializing it on first call. It is
// idempotent: subsequent calls return the cached handle (or the cached
// *ModelLoadError) without re-running initialization.
func (m *Manager) Get() (Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return m.engine, m.err
	}

	m.engine, m.err = m.load()
	m.loaded = true
	return m.engine, m.err
}

func (m *Manager) load() (Engine, error) {
	cfg := m.cfg

	// float16 is unsupported on CPU.
	if cfg.Device == "cpu" && cfg.ComputeType == "float16" {
		m.logger.Warn("float16 is not supported on cpu, downgrading to int8")
		cfg.ComputeType = "int8"
	}

	m.logger.Info("loading model",
		zap.String("model", cfg.ModelRef),
		zap.String("device", cfg.Device),
		zap.String("compute_type", cfg.ComputeType),
		zap.Int("threads", cfg.CPUThreads),
		zap.String("cache_dir", cfg.CacheDir),
	)

	engine, err := m.start(cfg, m.logger)
	if err == nil {
		m.logger.Info("model loaded", zap.String("compute_type", cfg.ComputeType))
		return engine, nil
	}

	if cfg.ComputeType == fallbackComputeType {
		return nil, &ModelLoadError{Err: err}
	}

	// Retry exactly once with the maximum-compatibility compute type.
	m.logger.Warn("model load failed, retrying with float32",
		zap.String("compute_type", cfg.ComputeType),
		zap.Error(err),
	)
	cfg.ComputeType = fallbackComputeType

	engine, retryErr := m.start(cfg, m.logger)
	if retryErr != nil {
		return nil, &ModelLoadError{Err: retryErr}
	}

	m.logger.Info("model loaded", zap.String("compute_type", cfg.ComputeType))
	return engine, nil
}
