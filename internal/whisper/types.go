package whisper

import "context"

// Segment is a time-bounded span of recognized speech.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is a fully materialized transcription. Text is the trimmed
// concatenation of the raw segment texts in emission order, with no
// separators added.
type Result struct {
	Text     string
	Language string
	Duration float64
	Segments []Segment
}

// Options control a single transcription run. The zero value is not
// useful; build them with DefaultOptions.
type Options struct {
	BeamSize     int
	VADFilter    bool
	MinSilenceMS int
	Language     string // empty means auto-detect
}

// DefaultOptions returns the fixed per-request options: beam size 5 and
// VAD filtering with a 500ms minimum silence gap. Language is forced only
// when the caller supplied one.
func DefaultOptions(language string) Options {
	return Options{
		BeamSize:     5,
		VADFilter:    true,
		MinSilenceMS: 500,
		Language:     language,
	}
}

// Engine is a loaded inference model. Transcribe blocks until the whole
// audio file has been processed; there is no mid-run cancellation beyond
// the passed context killing the underlying engine.
type Engine interface {
	Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error)
}
