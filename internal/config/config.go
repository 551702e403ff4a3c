// Package config provides the configuration schema, loader, and provider registry
// for the Nexus Voice service.
package config

import (
	"log/slog"
	"time"

	"github.com/MrWong99/nexusvoice/internal/voice"
)

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level converts l to a [slog.Level]. Unknown values map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Defaults applied by [ApplyDefaults] to zero-valued fields.
const (
	DefaultListenAddr      = ":5000"
	DefaultWorkerPoolSize  = 16
	DefaultCacheCapacity   = 100
	DefaultConcurrency     = 4
	DefaultProviderTimeout = 30 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
)

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Cache     CacheConfig     `yaml:"cache"`
	Render    RenderConfig    `yaml:"render"`

	// Voices replaces the built-in language and speaker tables. When nil the
	// built-in tables are used.
	Voices *voice.Config `yaml:"voices"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":5000").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Hot-reloadable.
	LogLevel LogLevel `yaml:"log_level"`

	// WorkerPoolSize bounds the number of API requests processed at once.
	// Excess requests wait for a free slot.
	WorkerPoolSize int `yaml:"worker_pool_size"`

	// AllowedOrigins is the CORS allow-list. Empty allows every origin.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ProvidersConfig declares which provider implementation to use for each
// upstream capability. Each entry selects a named provider registered in the
// [Registry]. Fallback entries are tried in order when the primary's circuit
// is open or its call fails.
type ProvidersConfig struct {
	STT          ProviderEntry   `yaml:"stt"`
	STTFallbacks []ProviderEntry `yaml:"stt_fallbacks"`
	TTS          ProviderEntry   `yaml:"tts"`
	LLM          ProviderEntry   `yaml:"llm"`
	LLMFallbacks []ProviderEntry `yaml:"llm_fallbacks"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai", "deepgram").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4", "nova-2").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above.
	Options map[string]any `yaml:"options"`
}

// CacheConfig sizes the synthesis cache.
type CacheConfig struct {
	// Capacity is the maximum number of cached utterances.
	Capacity int `yaml:"capacity"`
}

// RenderConfig tunes conversation rendering.
type RenderConfig struct {
	// Concurrency bounds the per-render synthesis fan-out.
	Concurrency int `yaml:"concurrency"`

	// Pause is the silence inserted between turns. Zero disables it.
	Pause time.Duration `yaml:"pause"`

	// ProviderTimeout bounds each synthesis call.
	ProviderTimeout time.Duration `yaml:"provider_timeout"`
}

// ApplyDefaults fills zero-valued fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.WorkerPoolSize == 0 {
		cfg.Server.WorkerPoolSize = DefaultWorkerPoolSize
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Providers.STT.Name == "" {
		cfg.Providers.STT.Name = "deepgram"
	}
	if cfg.Providers.TTS.Name == "" {
		cfg.Providers.TTS.Name = "elevenlabs"
	}
	if cfg.Providers.LLM.Name == "" {
		cfg.Providers.LLM.Name = "openai"
	}
	if cfg.Providers.LLM.Model == "" && cfg.Providers.LLM.Name == "openai" {
		cfg.Providers.LLM.Model = "gpt-4"
	}
	if cfg.Cache.Capacity == 0 {
		cfg.Cache.Capacity = DefaultCacheCapacity
	}
	if cfg.Render.Concurrency == 0 {
		cfg.Render.Concurrency = DefaultConcurrency
	}
	if cfg.Render.ProviderTimeout == 0 {
		cfg.Render.ProviderTimeout = DefaultProviderTimeout
	}
}

// VoiceConfig returns the configured voice tables, or the built-in ones.
func (c *Config) VoiceConfig() voice.Config {
	if c.Voices != nil {
		return *c.Voices
	}
	return voice.DefaultConfig()
}
