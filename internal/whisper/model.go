package whisper

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const DefaultModel = "small"

// ModelSpec describes a named CTranslate2 model hosted on Hugging Face.
type ModelSpec struct {
	Name string
	Repo string
}

// ModelFiles are the artifacts that make up a CTranslate2 model
// directory. The weights file dominates the download.
var ModelFiles = []string{
	"model.bin",
	"config.json",
	"tokenizer.json",
	"vocabulary.txt",
}

var registry = map[string]ModelSpec{
	"tiny":     {Name: "tiny", Repo: "Systran/faster-whisper-tiny"},
	"base":     {Name: "base", Repo: "Systran/faster-whisper-base"},
	"small":    {Name: "small", Repo: "Systran/faster-whisper-small"},
	"medium":   {Name: "medium", Repo: "Systran/faster-whisper-medium"},
	"large-v3": {Name: "large-v3", Repo: "Systran/faster-whisper-large-v3"},
}

func ModelNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func LookupModel(name string) (ModelSpec, bool) {
	spec, ok := registry[name]
	return spec, ok
}

// FileURL returns the download URL for one model artifact.
func (m ModelSpec) FileURL(file string) string {
	return fmt.Sprintf("https://huggingface.co/%s/resolve/main/%s", m.Repo, file)
}

// LocalDir returns the directory the model occupies under cacheDir. The
// layout matches what the inference engine itself uses when it downloads
// by name, so pre-downloaded and engine-downloaded models coexist.
func (m ModelSpec) LocalDir(cacheDir string) string {
	return filepath.Join(cacheDir, "models--"+strings.ReplaceAll(m.Repo, "/", "--"))
}

// IsDownloaded reports whether the weights file already exists under
// cacheDir.
func (m ModelSpec) IsDownloaded(cacheDir string) (bool, error) {
	_, err := os.Stat(filepath.Join(m.LocalDir(cacheDir), "model.bin"))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat model weights: %w", err)
}

// ResolveModelName validates a model name against the registry, falling
// back to the default when empty.
func ResolveModelName(name string) (ModelSpec, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultModel
	}
	spec, ok := LookupModel(name)
	if !ok {
		return ModelSpec{}, fmt.Errorf("unknown model %q (known models: %s)", name, strings.Join(ModelNames(), ", "))
	}
	return spec, nil
}
