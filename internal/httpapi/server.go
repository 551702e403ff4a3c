// Package httpapi exposes the voice workflows over HTTP.
//
// Routes:
//
//	POST /api/conversation  script → one stitched audio/mpeg artifact
//	POST /api/tts           single utterance → audio/mpeg attachment
//	POST /api/stt           multipart audio upload → transcript JSON
//	POST /api/process       text → summarised, translated or processed text
//	GET  /api/languages     supported languages
//
// Successful synthesis responses are binary; every failure is JSON with a
// classified kind, so clients can tell them apart by status and content type.
package httpapi

import (
	"context"
	"net/http"

	"github.com/rs/cors"

	"github.com/MrWong99/nexusvoice/internal/observe"
	"github.com/MrWong99/nexusvoice/internal/render"
	"github.com/MrWong99/nexusvoice/internal/textproc"
	"github.com/MrWong99/nexusvoice/internal/transcribe"
	"github.com/MrWong99/nexusvoice/internal/voice"
)

// Body size limits.
const (
	maxJSONBody   = 1 << 20
	maxUploadBody = 25 << 20
)

// Renderer renders conversation scripts and single utterances.
type Renderer interface {
	Render(ctx context.Context, turns []render.Turn) (*render.Result, error)
	Speak(ctx context.Context, u render.Utterance) (*render.Result, error)
}

// Transcriber turns uploaded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, req transcribe.Request) (*transcribe.Result, error)
}

// Processor runs text processing prompts.
type Processor interface {
	Process(ctx context.Context, req textproc.Request) (*textproc.Result, error)
}

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	voices      *voice.Registry
	renderer    Renderer
	transcriber Transcriber
	processor   Processor

	metrics        *observe.Metrics
	poolSize       int
	allowedOrigins []string
	extra          []func(*http.ServeMux)
}

// Option configures a [Server].
type Option func(*Server)

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithWorkerPool bounds concurrently processed /api requests. Default: 16.
func WithWorkerPool(size int) Option {
	return func(s *Server) {
		if size > 0 {
			s.poolSize = size
		}
	}
}

// WithAllowedOrigins sets the CORS allow-list. Empty allows every origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.allowedOrigins = origins }
}

// WithRoutes registers additional routes, such as health or metrics
// endpoints, on the server's mux. They bypass the worker pool.
func WithRoutes(register func(*http.ServeMux)) Option {
	return func(s *Server) { s.extra = append(s.extra, register) }
}

// New creates a Server.
func New(voices *voice.Registry, r Renderer, t Transcriber, p Processor, opts ...Option) *Server {
	s := &Server{
		voices:      voices,
		renderer:    r,
		transcriber: t,
		processor:   p,
		poolSize:    16,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	pool := newWorkerPool(s.poolSize, s.metrics)

	mux := http.NewServeMux()
	mux.Handle("POST /api/conversation", pool.wrap(http.HandlerFunc(s.handleConversation)))
	mux.Handle("POST /api/tts", pool.wrap(http.HandlerFunc(s.handleTTS)))
	mux.Handle("POST /api/stt", pool.wrap(http.HandlerFunc(s.handleSTT)))
	mux.Handle("POST /api/process", pool.wrap(http.HandlerFunc(s.handleProcess)))
	mux.HandleFunc("GET /api/languages", s.handleLanguages)
	for _, register := range s.extra {
		register(mux)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "traceparent", "tracestate"},
		ExposedHeaders: []string{"Content-Disposition", observe.CorrelationHeader},
	})
	return observe.Middleware(s.metrics)(c.Handler(mux))
}
