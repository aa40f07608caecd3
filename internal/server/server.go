package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/whisperd/whisperd/internal/audio"
	"github.com/whisperd/whisperd/internal/config"
	"github.com/whisperd/whisperd/internal/transcribe"
)

// Pipeline is the transcription pipeline the handlers delegate to.
// Satisfied by *transcribe.Service.
type Pipeline interface {
	IsAllowed(filename string) bool
	TranscribeUpload(ctx context.Context, data []byte, filename, language string) (*transcribe.Outcome, error)
	TranscribeURL(ctx context.Context, rawURL, language string) (*transcribe.Outcome, error)
}

// Server wires the transcription pipeline to its HTTP surface.
type Server struct {
	cfg      *config.Config
	pipeline Pipeline
	logger   *zap.Logger
}

func New(cfg *config.Config, pipeline Pipeline, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{cfg: cfg, pipeline: pipeline, logger: logger}
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(s.logger))
	router.Use(cors.Default())
	router.MaxMultipartMemory = s.cfg.MaxFileSize

	router.GET("/", s.handleHealth)
	router.POST("/transcribe", s.handleTranscribe)
	router.POST("/transcribe/url", s.handleTranscribeURL)
	router.POST("/transcribe/detail", s.handleTranscribeDetail)

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Message: "whisperd is running",
		Model:   s.cfg.ModelName,
		Device:  s.cfg.Device,
	})
}

func (s *Server) handleTranscribe(c *gin.Context) {
	outcome, err := s.transcribeMultipart(c)
	if err != nil {
		if rejected(c, err) {
			return
		}
		c.JSON(http.StatusOK, flatFailure(err))
		return
	}
	c.JSON(http.StatusOK, flatSuccess(outcome))
}

func (s *Server) handleTranscribeDetail(c *gin.Context) {
	outcome, err := s.transcribeMultipart(c)
	if err != nil {
		if rejected(c, err) {
			return
		}
		c.JSON(http.StatusOK, detailFailure(err))
		return
	}
	c.JSON(http.StatusOK, detailSuccess(outcome))
}

func (s *Server) handleTranscribeURL(c *gin.Context) {
	var req URLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: url is required"})
		return
	}

	outcome, err := s.pipeline.TranscribeURL(c.Request.Context(), req.URL, req.Language)
	if err != nil {
		c.JSON(http.StatusOK, flatFailure(err))
		return
	}
	c.JSON(http.StatusOK, flatSuccess(outcome))
}

// transcribeMultipart pulls the uploaded file and optional language out
// of the form and runs the pipeline. Request-shape violations surface as
// the audio package's sentinel errors.
func (s *Server) transcribeMultipart(c *gin.Context) (*transcribe.Outcome, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return nil, audio.ErrNoFilename
	}

	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	return s.pipeline.TranscribeUpload(c.Request.Context(), data, header.Filename, c.PostForm("language"))
}

// rejected writes a client-error response for request-shape violations
// and reports whether it did so. Anything else is a business failure the
// caller reports in-band.
func rejected(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, audio.ErrNoFilename), errors.Is(err, audio.ErrDisallowedExtension):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return true
	case errors.Is(err, audio.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: err.Error()})
		return true
	}
	return false
}
