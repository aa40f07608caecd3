package transcribe

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/whisperd/whisperd/internal/audio"
	"github.com/whisperd/whisperd/internal/whisper"
)

// Levels below this suggest the upload is mostly silence. The engine's
// VAD still decides what to skip; this only produces a warning.
const nearSilentThresholdDBFS = -65.0

// ModelSource yields the shared inference engine. Satisfied by
// *whisper.Manager.
type ModelSource interface {
	Get() (whisper.Engine, error)
}

// Outcome is what one pipeline run produced: the engine result plus the
// best-effort probed duration (0 when the probe failed).
type Outcome struct {
	Result         *whisper.Result
	ProbedDuration float64
}

// Service runs the request-to-result pipeline: materialize audio, probe
// duration, run inference, normalize. The temp file is removed on every
// exit path, success or failure.
type Service struct {
	models   ModelSource
	resolver *audio.Resolver
	prober   *audio.Prober
	logger   *zap.Logger
}

func NewService(models ModelSource, resolver *audio.Resolver, prober *audio.Prober, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		models:   models,
		resolver: resolver,
		prober:   prober,
		logger:   logger,
	}
}

// IsAllowed exposes the resolver's extension check to the transport
// layer.
func (s *Service) IsAllowed(filename string) bool {
	return s.resolver.IsAllowed(filename)
}

// TranscribeUpload runs the pipeline over uploaded bytes.
func (s *Service) TranscribeUpload(ctx context.Context, data []byte, filename, language string) (*Outcome, error) {
	tmp, err := s.resolver.FromUpload(data, filename)
	if err != nil {
		return nil, err
	}
	s.logger.Info("upload received",
		zap.String("filename", filename),
		zap.Float64("size_mb", float64(len(data))/1024/1024),
	)
	return s.run(ctx, tmp, language)
}

// TranscribeURL fetches the remote audio and runs the pipeline over it.
func (s *Service) TranscribeURL(ctx context.Context, rawURL, language string) (*Outcome, error) {
	s.logger.Info("url transcription requested", zap.String("url", rawURL))
	tmp, err := s.resolver.FromURL(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, tmp, language)
}

func (s *Service) run(ctx context.Context, tmp *audio.TempFile, language string) (*Outcome, error) {
	defer tmp.Remove()

	s.warnIfNearSilent(tmp.Path)

	probed := s.prober.Duration(ctx, tmp.Path)
	if probed > 0 {
		s.logger.Info("audio duration probed", zap.Float64("seconds", probed))
	}

	engine, err := s.models.Get()
	if err != nil {
		return nil, err
	}

	s.logger.Info("transcribing", zap.String("audio", tmp.Path), zap.String("language", languageOrAuto(language)))
	started := time.Now()

	result, err := engine.Transcribe(ctx, tmp.Path, whisper.DefaultOptions(language))
	if err != nil {
		s.logger.Warn("transcription failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return nil, err
	}

	elapsed := time.Since(started)
	s.logger.Info("transcription finished",
		zap.Duration("elapsed", elapsed),
		zap.String("language", result.Language),
		zap.Int("segments", len(result.Segments)),
		zap.Int("text_length", len(result.Text)),
	)
	if probed > 0 {
		s.logger.Info("real-time factor", zap.Float64("rtf", elapsed.Seconds()/probed))
	}

	return &Outcome{Result: result, ProbedDuration: probed}, nil
}

func (s *Service) warnIfNearSilent(path string) {
	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		return
	}

	metrics, err := audio.AnalyzeWAVLevel(path)
	if err != nil {
		s.logger.Debug("wav level analysis skipped", zap.String("audio", path), zap.Error(err))
		return
	}

	if metrics.NearSilent(nearSilentThresholdDBFS) {
		s.logger.Warn("audio appears near-silent",
			zap.String("audio", path),
			zap.Float64("rms_dbfs", metrics.RMSdBFS),
			zap.Float64("peak_dbfs", metrics.PeakdBFS),
		)
	}
}

func languageOrAuto(language string) string {
	if strings.TrimSpace(language) == "" {
		return "auto"
	}
	return language
}
