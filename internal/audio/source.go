package audio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/whisperd/whisperd/internal/download"
)

// Request-shape violations. The transport layer maps these to client
// errors instead of business failures.
var (
	ErrNoFilename          = errors.New("no filename provided")
	ErrDisallowedExtension = errors.New("unsupported file extension")
	ErrFileTooLarge        = errors.New("file exceeds maximum size")
)

// defaultURLExtension is assumed when a URL path carries no extension.
const defaultURLExtension = "mp3"

// TempFile is a per-request audio file under the temp directory. It is
// exclusively owned by the request that created it and must be removed
// on every exit path of the pipeline.
type TempFile struct {
	Path   string
	logger *zap.Logger
}

// Remove deletes the file. Safe to call via defer regardless of how the
// pipeline exited; a failed removal is logged, not returned.
func (t *TempFile) Remove() {
	if t == nil || t.Path == "" {
		return
	}
	if err := os.Remove(t.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		t.logger.Warn("failed to remove temp audio file", zap.String("path", t.Path), zap.Error(err))
		return
	}
	t.logger.Debug("temp audio file removed", zap.String("path", t.Path))
}

// Resolver materializes request audio as local files: uploaded bytes via
// FromUpload, remote URLs via FromURL.
type Resolver struct {
	TempDir           string
	MaxUploadBytes    int64
	AllowedExtensions []string
	FetchTimeout      time.Duration
	HTTPClient        *http.Client
	Logger            *zap.Logger
}

func (r *Resolver) log() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// IsAllowed reports whether the filename carries an extension from the
// allow-list. A filename without an extension is never allowed.
func (r *Resolver) IsAllowed(filename string) bool {
	ext := extensionOf(filename)
	if ext == "" {
		return false
	}
	for _, allowed := range r.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// FromUpload validates the filename and size, then writes the uploaded
// bytes to a freshly named temp path. Names carry a per-request unique
// id, so concurrent requests never collide.
func (r *Resolver) FromUpload(data []byte, filename string) (*TempFile, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, ErrNoFilename
	}
	if !r.IsAllowed(filename) {
		return nil, fmt.Errorf("%w: %q (allowed: %s)", ErrDisallowedExtension, filename, strings.Join(r.AllowedExtensions, ", "))
	}
	if r.MaxUploadBytes > 0 && int64(len(data)) > r.MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes (maximum %d)", ErrFileTooLarge, len(data), r.MaxUploadBytes)
	}

	path := r.tempPath("upload", extensionOf(filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write uploaded audio: %w", err)
	}

	r.log().Debug("upload saved", zap.String("path", path), zap.Int("bytes", len(data)))
	return &TempFile{Path: path, logger: r.log()}, nil
}

// FromURL downloads the audio behind rawURL to a temp path, following
// redirects with a bounded timeout. A non-2xx status or network failure
// reports a *download.Error.
func (r *Resolver) FromURL(ctx context.Context, rawURL string) (*TempFile, error) {
	ext := urlExtension(rawURL)
	path := r.tempPath("download", ext)

	timeout := r.FetchTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	if err := download.Fetch(ctx, rawURL, path, timeout, r.HTTPClient); err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	info, err := os.Stat(path)
	if err == nil {
		r.log().Debug("remote audio fetched", zap.String("path", path), zap.Int64("bytes", info.Size()))
	}

	return &TempFile{Path: path, logger: r.log()}, nil
}

func (r *Resolver) tempPath(kind, ext string) string {
	name := fmt.Sprintf("%s_%s.%s", kind, uuid.NewString(), ext)
	return filepath.Join(r.TempDir, name)
}

func extensionOf(filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// urlExtension derives a file extension from the URL path, ignoring the
// query string.
func urlExtension(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err == nil {
		if ext := extensionOf(parsed.Path); ext != "" {
			return ext
		}
		return defaultURLExtension
	}

	trimmed := rawURL
	if idx := strings.IndexByte(trimmed, '?'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	if ext := extensionOf(trimmed); ext != "" {
		return ext
	}
	return defaultURLExtension
}
