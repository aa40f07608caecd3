package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
)

// Config holds everything the service reads at startup. It is populated
// once from the environment (optionally overridden by CLI flags) and
// treated as immutable afterwards.
type Config struct {
	// Model settings.
	ModelName      string
	LocalModelPath string
	Device         string
	ComputeType    string
	CPUThreads     int
	ModelDir       string
	RunnerPath     string

	// Server settings.
	Host string
	Port int

	// File handling.
	TempDir           string
	MaxFileSize       int64
	AllowedExtensions []string

	// Remote audio fetch.
	DownloadTimeout time.Duration
}

// FromEnv builds a Config from environment variables, applying defaults
// for anything unset.
func FromEnv() *Config {
	return &Config{
		ModelName:      envString("WHISPER_MODEL", "small"),
		LocalModelPath: envString("WHISPER_LOCAL_MODEL_PATH", ""),
		Device:         envString("WHISPER_DEVICE", DeviceCPU),
		ComputeType:    envString("WHISPER_COMPUTE_TYPE", "int8"),
		CPUThreads:     envInt("WHISPER_CPU_THREADS", 4),
		ModelDir:       envString("WHISPER_MODEL_DIR", "./models"),
		RunnerPath:     envString("WHISPER_RUNNER_PATH", "whisperd-runner"),
		Host:           envString("API_HOST", "0.0.0.0"),
		Port:           envInt("API_PORT", 8000),
		TempDir:        envString("TEMP_DIR", "./temp"),
		MaxFileSize:    envInt64("MAX_FILE_SIZE", 100*1024*1024),
		AllowedExtensions: []string{
			"mp3", "wav", "m4a", "flac", "ogg",
			"wma", "aac", "opus", "webm", "mp4",
		},
		DownloadTimeout: 60 * time.Second,
	}
}

// ModelRef returns the model reference handed to the inference engine:
// a local path when configured, the model name otherwise.
func (c *Config) ModelRef() string {
	if c.LocalModelPath != "" {
		return c.LocalModelPath
	}
	return c.ModelName
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// EnsureDirs creates the temp and model directories if they are missing.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.TempDir, c.ModelDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt64(key string, fallback int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
