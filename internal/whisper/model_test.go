package whisper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveModelNameDefault(t *testing.T) {
	t.Parallel()

	spec, err := ResolveModelName("")
	require.NoError(t, err)
	require.Equal(t, DefaultModel, spec.Name)
}

func TestResolveModelNameUnknown(t *testing.T) {
	t.Parallel()

	_, err := ResolveModelName("super-huge")
	require.Error(t, err)
	require.Contains(t, err.Error(), "known models")
}

func TestModelFileURL(t *testing.T) {
	t.Parallel()

	spec, ok := LookupModel("small")
	require.True(t, ok)
	require.Equal(t, "https://huggingface.co/Systran/faster-whisper-small/resolve/main/model.bin", spec.FileURL("model.bin"))
}

func TestModelLocalDir(t *testing.T) {
	t.Parallel()

	spec, ok := LookupModel("large-v3")
	require.True(t, ok)
	require.Equal(t, filepath.Join("/cache", "models--Systran--faster-whisper-large-v3"), spec.LocalDir("/cache"))
}

func TestModelIsDownloaded(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	spec, ok := LookupModel("tiny")
	require.True(t, ok)

	downloaded, err := spec.IsDownloaded(cacheDir)
	require.NoError(t, err)
	require.False(t, downloaded)

	modelDir := spec.LocalDir(cacheDir)
	require.NoError(t, os.MkdirAll(modelDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(modelDir, "model.bin"), []byte("weights"), 0o644))

	downloaded, err = spec.IsDownloaded(cacheDir)
	require.NoError(t, err)
	require.True(t, downloaded)
}

func TestModelNamesSorted(t *testing.T) {
	t.Parallel()

	names := ModelNames()
	require.Equal(t, []string{"base", "large-v3", "medium", "small", "tiny"}, names)
}
