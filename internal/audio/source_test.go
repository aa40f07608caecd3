package audio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/whisperd/whisperd/internal/download"
)

var testExtensions = []string{"mp3", "wav", "m4a", "flac", "ogg", "wma", "aac", "opus", "webm", "mp4"}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	return &Resolver{
		TempDir:           t.TempDir(),
		MaxUploadBytes:    1024,
		AllowedExtensions: testExtensions,
		FetchTimeout:      10 * time.Second,
	}
}

func TestIsAllowed(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t)
	for _, ext := range testExtensions {
		require.True(t, r.IsAllowed("sample."+ext), "extension %s should be allowed", ext)
		require.True(t, r.IsAllowed("SAMPLE."+strings.ToUpper(ext)), "extension check should be case-insensitive")
	}

	require.False(t, r.IsAllowed("sample.xyz"))
	require.False(t, r.IsAllowed("sample.txt"))
	require.False(t, r.IsAllowed("noextension"))
	require.False(t, r.IsAllowed(""))
}

func TestFromUploadWritesTempFile(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t)
	tmp, err := r.FromUpload([]byte("riff-data"), "sample.wav")
	require.NoError(t, err)

	require.True(t, strings.HasSuffix(tmp.Path, ".wav"))
	require.Equal(t, r.TempDir, filepath.Dir(tmp.Path))

	onDisk, err := os.ReadFile(tmp.Path)
	require.NoError(t, err)
	require.Equal(t, []byte("riff-data"), onDisk)

	tmp.Remove()
	_, statErr := os.Stat(tmp.Path)
	require.True(t, os.IsNotExist(statErr))
}

func TestFromUploadUniqueNames(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t)
	first, err := r.FromUpload([]byte("a"), "sample.wav")
	require.NoError(t, err)
	second, err := r.FromUpload([]byte("b"), "sample.wav")
	require.NoError(t, err)

	require.NotEqual(t, first.Path, second.Path)
}

func TestFromUploadRejections(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t)

	tests := []struct {
		name     string
		data     []byte
		filename string
		want     error
	}{
		{name: "missing filename", data: []byte("x"), filename: "  ", want: ErrNoFilename},
		{name: "disallowed extension", data: []byte("x"), filename: "sample.xyz", want: ErrDisallowedExtension},
		{name: "no extension", data: []byte("x"), filename: "sample", want: ErrDisallowedExtension},
		{name: "oversize payload", data: make([]byte, 2048), filename: "sample.wav", want: ErrFileTooLarge},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.FromUpload(tc.data, tc.filename)
			require.ErrorIs(t, err, tc.want)
		})
	}

	entries, err := os.ReadDir(r.TempDir)
	require.NoError(t, err)
	require.Empty(t, entries, "rejected uploads must not leave files behind")
}

func TestFromUploadRejectionCitesAllowList(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t)
	_, err := r.FromUpload([]byte("x"), "sample.xyz")
	require.Error(t, err)
	for _, ext := range testExtensions {
		require.Contains(t, err.Error(), ext)
	}
}

func TestFromURLFetchesAudio(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("remote-audio"))
	}))
	defer server.Close()

	r := newTestResolver(t)
	tmp, err := r.FromURL(context.Background(), server.URL+"/clip.ogg?token=abc")
	require.NoError(t, err)
	defer tmp.Remove()

	require.True(t, strings.HasSuffix(tmp.Path, ".ogg"), "extension should come from the url path, not the query")

	onDisk, err := os.ReadFile(tmp.Path)
	require.NoError(t, err)
	require.Equal(t, []byte("remote-audio"), onDisk)
}

func TestFromURLStatusFailureLeavesNoFile(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	r := newTestResolver(t)
	_, err := r.FromURL(context.Background(), server.URL+"/missing.mp3")

	var dlErr *download.Error
	require.ErrorAs(t, err, &dlErr)
	require.Contains(t, err.Error(), "404")

	entries, readErr := os.ReadDir(r.TempDir)
	require.NoError(t, readErr)
	require.Empty(t, entries)
}

func TestURLExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
	}{
		{url: "https://example.com/a/b/clip.flac", want: "flac"},
		{url: "https://example.com/clip.MP3?sig=x", want: "mp3"},
		{url: "https://example.com/stream", want: "mp3"},
		{url: "https://example.com/", want: "mp3"},
	}

	for _, tc := range tests {
		require.Equal(t, tc.want, urlExtension(tc.url), "url %s", tc.url)
	}
}
