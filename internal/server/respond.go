package server

import (
	"github.com/whisperd/whisperd/internal/transcribe"
	"github.com/whisperd/whisperd/internal/whisper"
)

// Response shaping: every pipeline outcome or failure becomes one of the
// two response shapes. The probed duration is preferred, the engine's
// reported duration fills in when the probe degraded to zero, and the
// field stays null when neither is known.

func flatSuccess(outcome *transcribe.Outcome) FlatResponse {
	return FlatResponse{
		Success:  true,
		Text:     outcome.Result.Text,
		Language: optionalString(outcome.Result.Language),
		Duration: durationOf(outcome),
	}
}

func flatFailure(err error) FlatResponse {
	message := err.Error()
	return FlatResponse{
		Success: false,
		Text:    "",
		Error:   &message,
	}
}

func detailSuccess(outcome *transcribe.Outcome) DetailResponse {
	segments := outcome.Result.Segments
	if segments == nil {
		segments = []whisper.Segment{}
	}
	return DetailResponse{
		Success:  true,
		Text:     outcome.Result.Text,
		Language: optionalString(outcome.Result.Language),
		Duration: durationOf(outcome),
		Segments: segments,
	}
}

func detailFailure(err error) DetailResponse {
	message := err.Error()
	return DetailResponse{
		Success:  false,
		Text:     "",
		Segments: []whisper.Segment{},
		Error:    &message,
	}
}

func durationOf(outcome *transcribe.Outcome) *float64 {
	if outcome.ProbedDuration > 0 {
		return optionalDuration(outcome.ProbedDuration)
	}
	return optionalDuration(outcome.Result.Duration)
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func optionalDuration(seconds float64) *float64 {
	if seconds <= 0 {
		return nil
	}
	return &seconds
}
