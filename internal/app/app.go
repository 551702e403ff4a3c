// Package app wires the Nexus Voice subsystems into a running HTTP service.
//
// New builds the voice tables, resilience wrappers, synthesis cache and
// workflow adapters around the injected providers. Run serves HTTP until its
// context is cancelled, and Shutdown drains in-flight requests.
//
// Providers are injected by the caller, so tests can pass the mocks from
// pkg/provider/*/mock instead of real vendor clients.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/MrWong99/nexusvoice/internal/config"
	"github.com/MrWong99/nexusvoice/internal/health"
	"github.com/MrWong99/nexusvoice/internal/httpapi"
	"github.com/MrWong99/nexusvoice/internal/observe"
	"github.com/MrWong99/nexusvoice/internal/render"
	"github.com/MrWong99/nexusvoice/internal/resilience"
	"github.com/MrWong99/nexusvoice/internal/synth"
	"github.com/MrWong99/nexusvoice/internal/textproc"
	"github.com/MrWong99/nexusvoice/internal/transcribe"
	"github.com/MrWong99/nexusvoice/internal/voice"
	"github.com/MrWong99/nexusvoice/pkg/provider/llm"
	"github.com/MrWong99/nexusvoice/pkg/provider/stt"
	"github.com/MrWong99/nexusvoice/pkg/provider/tts"
)

// ServiceName is reported on /health.
const ServiceName = "Nexus Voice AI"

// Providers holds the vendor clients for each capability. Fallback slices
// line up by index with the matching config.ProvidersConfig fallback entries,
// which supply their names.
type Providers struct {
	STT          stt.Transcriber
	STTFallbacks []stt.Transcriber
	TTS          tts.Provider
	LLM          llm.TextGenerator
	LLMFallbacks []llm.TextGenerator
}

// App owns the service's components and the HTTP server lifecycle.
type App struct {
	cfg     *config.Config
	voices  *voice.Registry
	cache   *synth.Cache
	speech  *resilience.TTSBreaker
	hearing *resilience.STTFallback
	writing *resilience.LLMFallback

	metrics        *observe.Metrics
	metricsHandler http.Handler
	version        string
	breakerConfig  resilience.CircuitBreakerConfig

	handler  http.Handler
	srv      *http.Server
	stopOnce sync.Once
}

// Option configures an [App].
type Option func(*App)

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithMetricsHandler serves h on GET /metrics, typically the handler returned by observe.InitProvider.
func WithMetricsHandler(h http.Handler) Option {
	return func(a *App) { a.metricsHandler = h }
}

// WithVersion sets the version reported on /health. Default: "1.0.0".
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

// WithBreakerConfig tunes every provider circuit breaker. Names are set per
// provider and ignored here.
func WithBreakerConfig(cfg resilience.CircuitBreakerConfig) Option {
	return func(a *App) { a.breakerConfig = cfg }
}

// New validates that every provider slot is filled and assembles the service.
func New(cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is nil")
	}
	if providers == nil || providers.STT == nil || providers.TTS == nil || providers.LLM == nil {
		return nil, errors.New("app: stt, tts and llm providers are required")
	}
	if len(providers.STTFallbacks) > len(cfg.Providers.STTFallbacks) {
		return nil, fmt.Errorf("app: %d stt fallbacks but %d configured", len(providers.STTFallbacks), len(cfg.Providers.STTFallbacks))
	}
	if len(providers.LLMFallbacks) > len(cfg.Providers.LLMFallbacks) {
		return nil, fmt.Errorf("app: %d llm fallbacks but %d configured", len(providers.LLMFallbacks), len(cfg.Providers.LLMFallbacks))
	}

	a := &App{cfg: cfg, version: "1.0.0"}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	voices, err := voice.New(cfg.VoiceConfig())
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.voices = voices

	cache, err := synth.NewCache(cfg.Cache.Capacity, synth.WithCacheMetrics(a.metrics))
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.cache = cache

	a.speech = resilience.NewTTSBreaker(providers.TTS, a.breaker(cfg.Providers.TTS.Name))

	a.hearing = resilience.NewSTTFallback(providers.STT, cfg.Providers.STT.Name, resilience.FallbackConfig{CircuitBreaker: a.breakerConfig})
	for i, t := range providers.STTFallbacks {
		a.hearing.AddFallback(cfg.Providers.STTFallbacks[i].Name, t)
	}

	a.writing = resilience.NewLLMFallback(providers.LLM, cfg.Providers.LLM.Name, resilience.FallbackConfig{CircuitBreaker: a.breakerConfig})
	for i, g := range providers.LLMFallbacks {
		a.writing.AddFallback(cfg.Providers.LLMFallbacks[i].Name, g)
	}

	unit := synth.NewUnit(a.speech,
		synth.WithTimeout(cfg.Render.ProviderTimeout),
		synth.WithProviderName(cfg.Providers.TTS.Name),
		synth.WithUnitMetrics(a.metrics),
	)
	renderer := render.New(voices, cache, unit,
		render.WithConcurrency(cfg.Render.Concurrency),
		render.WithPause(cfg.Render.Pause),
		render.WithMetrics(a.metrics),
	)
	transcriber := transcribe.New(a.hearing, voices,
		transcribe.WithProviderName(cfg.Providers.STT.Name),
		transcribe.WithMetrics(a.metrics),
	)
	processor := textproc.New(a.writing, voices,
		textproc.WithProviderName(cfg.Providers.LLM.Name),
		textproc.WithMetrics(a.metrics),
	)

	server := httpapi.New(voices, renderer, transcriber, processor,
		httpapi.WithMetrics(a.metrics),
		httpapi.WithWorkerPool(cfg.Server.WorkerPoolSize),
		httpapi.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		httpapi.WithRoutes(a.registerOps),
	)
	a.handler = server.Handler()
	a.srv = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

func (a *App) breaker(name string) resilience.CircuitBreakerConfig {
	c := a.breakerConfig
	c.Name = name
	return c
}

// registerOps mounts the health and metrics endpoints.
func (a *App) registerOps(mux *http.ServeMux) {
	h := health.New(health.Info{
		Service: ServiceName,
		Version: a.version,
		Details: a.healthDetails,
	},
		health.BreakerChecker("tts:"+a.speech.Name(), func() bool {
			return a.speech.State() == resilience.StateOpen
		}),
		health.BreakerChecker("stt", func() bool { return allOpen(a.hearing.Status()) }),
		health.BreakerChecker("llm", func() bool { return allOpen(a.writing.Status()) }),
	)
	h.Register(mux)

	if a.metricsHandler != nil {
		mux.Handle("GET /metrics", a.metricsHandler)
	}
}

func (a *App) healthDetails() map[string]any {
	breakers := map[string]string{"tts:" + a.speech.Name(): a.speech.State().String()}
	for _, s := range a.hearing.Status() {
		breakers["stt:"+s.Name] = s.State.String()
	}
	for _, s := range a.writing.Status() {
		breakers["llm:"+s.Name] = s.State.String()
	}
	st := a.cache.Stats()
	return map[string]any{
		"supported_languages": a.voices.SupportedLanguages(),
		"breakers":            breakers,
		"cache": map[string]any{
			"hits":      st.Hits,
			"misses":    st.Misses,
			"evictions": st.Evictions,
			"len":       st.Len,
			"capacity":  st.Capacity,
		},
	}
}

// allOpen reports whether no provider in a fallback group can take calls.
func allOpen(statuses []resilience.BreakerStatus) bool {
	for _, s := range statuses {
		if s.State != resilience.StateOpen {
			return false
		}
	}
	return len(statuses) > 0
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Voices returns the voice registry in use.
func (a *App) Voices() *voice.Registry { return a.voices }

// Run listens on the configured address and serves until ctx is cancelled,
// then returns ctx.Err(). Call [App.Shutdown] afterwards to drain requests.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("app: listen on %s: %w", a.cfg.Server.ListenAddr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is like [App.Run] on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- a.srv.Serve(ln) }()

	slog.Info("http server listening", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	}
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires. It is safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down")
		if err := a.srv.Shutdown(ctx); err != nil {
			slog.Warn("http shutdown incomplete", "err", err)
			shutdownErr = fmt.Errorf("app: shutdown: %w", err)
			return
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}
