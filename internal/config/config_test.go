package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	require.Equal(t, "small", cfg.ModelName)
	require.Equal(t, DeviceCPU, cfg.Device)
	require.Equal(t, "int8", cfg.ComputeType)
	require.Equal(t, 4, cfg.CPUThreads)
	require.Equal(t, "0.0.0.0", cfg.Host)
	require.Equal(t, 8000, cfg.Port)
	require.Equal(t, int64(100*1024*1024), cfg.MaxFileSize)
	require.Equal(t, 60*time.Second, cfg.DownloadTimeout)
	require.Contains(t, cfg.AllowedExtensions, "mp3")
	require.Contains(t, cfg.AllowedExtensions, "webm")
	require.Len(t, cfg.AllowedExtensions, 10)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("WHISPER_MODEL", "large-v3")
	t.Setenv("WHISPER_DEVICE", "cuda")
	t.Setenv("WHISPER_COMPUTE_TYPE", "float16")
	t.Setenv("WHISPER_CPU_THREADS", "8")
	t.Setenv("API_HOST", "127.0.0.1")
	t.Setenv("API_PORT", "9090")
	t.Setenv("MAX_FILE_SIZE", "1048576")

	cfg := FromEnv()

	require.Equal(t, "large-v3", cfg.ModelName)
	require.Equal(t, DeviceCUDA, cfg.Device)
	require.Equal(t, "float16", cfg.ComputeType)
	require.Equal(t, 8, cfg.CPUThreads)
	require.Equal(t, "127.0.0.1:9090", cfg.Addr())
	require.Equal(t, int64(1048576), cfg.MaxFileSize)
}

func TestFromEnvIgnoresUnparsableNumbers(t *testing.T) {
	t.Setenv("API_PORT", "not-a-port")
	t.Setenv("MAX_FILE_SIZE", "lots")

	cfg := FromEnv()

	require.Equal(t, 8000, cfg.Port)
	require.Equal(t, int64(100*1024*1024), cfg.MaxFileSize)
}

func TestModelRefPrefersLocalPath(t *testing.T) {
	t.Parallel()

	cfg := &Config{ModelName: "small"}
	require.Equal(t, "small", cfg.ModelRef())

	cfg.LocalModelPath = "/models/custom"
	require.Equal(t, "/models/custom", cfg.ModelRef())
}

func TestEnsureDirs(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	cfg := &Config{
		TempDir:  filepath.Join(base, "temp"),
		ModelDir: filepath.Join(base, "models", "nested"),
	}

	require.NoError(t, cfg.EnsureDirs())
	require.DirExists(t, cfg.TempDir)
	require.DirExists(t, cfg.ModelDir)
}
