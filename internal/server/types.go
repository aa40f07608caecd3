package server

import "github.com/whisperd/whisperd/internal/whisper"

// FlatResponse is the plain transcription result. Business failures are
// reported in-band: success=false with an error message and an empty
// text, never a transport-level error status.
type FlatResponse struct {
	Success  bool     `json:"success"`
	Text     string   `json:"text"`
	Language *string  `json:"language"`
	Duration *float64 `json:"duration"`
	Error    *string  `json:"error"`
}

// DetailResponse additionally carries the ordered segment list.
type DetailResponse struct {
	Success  bool              `json:"success"`
	Text     string            `json:"text"`
	Language *string           `json:"language"`
	Duration *float64          `json:"duration"`
	Segments []whisper.Segment `json:"segments"`
	Error    *string           `json:"error"`
}

// URLRequest is the JSON body of POST /transcribe/url.
type URLRequest struct {
	URL      string `json:"url" binding:"required"`
	Language string `json:"language"`
}

// HealthResponse reports service status and the configured model.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Model   string `json:"model"`
	Device  string `json:"device"`
}

// ErrorResponse is the body of a request-shape rejection (bad filename,
// disallowed extension, oversize payload).
type ErrorResponse struct {
	Error string `json:"error"`
}
