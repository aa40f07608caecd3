package whisper

import "fmt"

// ModelLoadError means both the primary and the float32 fallback
// initialization failed. It is fatal for the process's transcription
// capability; every request fails with it until restart.
type ModelLoadError struct {
	Err error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("model load failed: %v", e.Err)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

// TranscriptionError means the engine rejected or failed on a specific
// audio file. It is a per-request business failure, never fatal.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed: %v", e.Err)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}
