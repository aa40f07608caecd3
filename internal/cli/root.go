package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/whisperd/whisperd/internal/audio"
	"github.com/whisperd/whisperd/internal/config"
	"github.com/whisperd/whisperd/internal/logging"
	"github.com/whisperd/whisperd/internal/server"
	"github.com/whisperd/whisperd/internal/transcribe"
	"github.com/whisperd/whisperd/internal/version"
	"github.com/whisperd/whisperd/internal/whisper"
)

type appState struct {
	verbose    bool
	jsonLogs   bool
	noProgress bool
	preload    bool

	cfg    *config.Config
	logger *zap.Logger
}

func NewRootCmd() *cobra.Command {
	app := &appState{cfg: config.FromEnv()}

	cmd := &cobra.Command{
		Use:           "whisperd",
		Short:         "Speech-to-text HTTP service backed by a faster-whisper engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logger, err := logging.New(logging.Options{Verbose: app.verbose, JSON: app.jsonLogs})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			app.logger = logger
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runServe(cmd.Context())
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	bindLoggingFlags(cmd, app)
	bindModelFlags(cmd, app)
	bindServerFlags(cmd, app)
	cmd.Flags().BoolVar(&app.preload, "preload", false, "Load the model at startup instead of on the first request")

	cmd.AddCommand(newDownloadCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func bindLoggingFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	cmd.PersistentFlags().BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
}

func bindModelFlags(cmd *cobra.Command, app *appState) {
	cfg := app.cfg
	cmd.PersistentFlags().StringVar(&cfg.ModelName, "model", cfg.ModelName, "Model name (tiny|base|small|medium|large-v3)")
	cmd.PersistentFlags().StringVar(&cfg.LocalModelPath, "local-model-path", cfg.LocalModelPath, "Local model directory; takes precedence over --model")
	cmd.PersistentFlags().StringVar(&cfg.ModelDir, "model-dir", cfg.ModelDir, "Directory where models are cached")
	cmd.Flags().StringVar(&cfg.Device, "device", cfg.Device, "Inference device (cpu|cuda)")
	cmd.Flags().StringVar(&cfg.ComputeType, "compute-type", cfg.ComputeType, "Compute type (int8|float16|float32)")
	cmd.Flags().IntVar(&cfg.CPUThreads, "threads", cfg.CPUThreads, "CPU threads for inference")
	cmd.Flags().StringVar(&cfg.RunnerPath, "runner", cfg.RunnerPath, "Path to the inference runner executable")
}

func bindServerFlags(cmd *cobra.Command, app *appState) {
	cfg := app.cfg
	cmd.Flags().StringVar(&cfg.Host, "host", cfg.Host, "Listen address")
	cmd.Flags().IntVar(&cfg.Port, "port", cfg.Port, "Listen port")
	cmd.Flags().StringVar(&cfg.TempDir, "temp-dir", cfg.TempDir, "Directory for per-request audio files")
	cmd.Flags().Int64Var(&cfg.MaxFileSize, "max-file-size", cfg.MaxFileSize, "Maximum upload size in bytes")
}

func (a *appState) runServe(ctx context.Context) error {
	cfg := a.cfg
	logger := a.log()

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	logger.Info("whisperd starting",
		zap.String("model", cfg.ModelRef()),
		zap.String("device", cfg.Device),
		zap.String("compute_type", cfg.ComputeType),
		zap.Int("threads", cfg.CPUThreads),
		zap.String("model_dir", cfg.ModelDir),
		zap.String("temp_dir", cfg.TempDir),
		zap.String("addr", cfg.Addr()),
	)

	manager := whisper.NewManager(whisper.RunnerConfig{
		Executable:  cfg.RunnerPath,
		ModelRef:    cfg.ModelRef(),
		Device:      cfg.Device,
		ComputeType: cfg.ComputeType,
		CPUThreads:  cfg.CPUThreads,
		CacheDir:    cfg.ModelDir,
	}, logger)

	if a.preload {
		if _, err := manager.Get(); err != nil {
			return fmt.Errorf("preload model: %w", err)
		}
	}

	resolver := &audio.Resolver{
		TempDir:           cfg.TempDir,
		MaxUploadBytes:    cfg.MaxFileSize,
		AllowedExtensions: cfg.AllowedExtensions,
		FetchTimeout:      cfg.DownloadTimeout,
		Logger:            logger,
	}
	prober := &audio.Prober{Logger: logger}
	service := transcribe.NewService(manager, resolver, prober, logger)

	httpServer := &http.Server{
		Addr:    cfg.Addr(),
		Handler: server.New(cfg, service, logger).Router(),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}
