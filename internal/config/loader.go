package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/MrWong99/nexusvoice/internal/voice"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt": {"deepgram", "whisper"},
	"tts": {"elevenlabs", "openai"},
	"llm": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
}

// keyedProviders lists the providers whose credential must be present at
// startup, per kind. The any-llm backends read their own environment
// variables and are not listed.
var keyedProviders = map[string][]string{
	"stt": {"deepgram"},
	"tts": {"elevenlabs", "openai"},
	"llm": {"openai"},
}

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped. With no arguments it reads ".env".
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %q: %w", p, err)
		}
	}
	return nil
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults and environment overrides applied. An empty path
// skips the file and builds the config from defaults and the environment.
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromReader(strings.NewReader(""))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and process
// environment overrides, and validates the result.
func LoadFromReader(r io.Reader) (*Config, error) {
	return Decode(r, os.Getenv)
}

// Decode is [LoadFromReader] with an explicit environment lookup. A nil
// getenv disables environment overrides.
func Decode(r io.Reader, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if getenv != nil {
		if err := ApplyEnv(cfg, getenv); err != nil {
			return nil, err
		}
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with values from the environment. Set variables
// win over the file. Credentials apply to every entry of the matching
// provider, fallbacks included.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	var errs []error

	if v := getenv("DEEPGRAM_API_KEY"); v != "" {
		setKey(v, "deepgram", &cfg.Providers.STT)
		for i := range cfg.Providers.STTFallbacks {
			setKey(v, "deepgram", &cfg.Providers.STTFallbacks[i])
		}
	}
	if v := getenv("ELEVENLABS_API_KEY"); v != "" {
		setKey(v, "elevenlabs", &cfg.Providers.TTS)
	}
	if v := getenv("OPENAI_API_KEY"); v != "" {
		setKey(v, "openai", &cfg.Providers.TTS)
		setKey(v, "openai", &cfg.Providers.LLM)
		for i := range cfg.Providers.LLMFallbacks {
			setKey(v, "openai", &cfg.Providers.LLMFallbacks[i])
		}
	}

	if v := getenv("PORT"); v != "" {
		if _, err := strconv.ParseUint(v, 10, 16); err != nil {
			errs = append(errs, fmt.Errorf("PORT %q is not a valid port", v))
		} else {
			cfg.Server.ListenAddr = ":" + v
		}
	}
	if v := getenv("WORKER_POOL_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("WORKER_POOL_SIZE %q is not an integer", v))
		} else {
			cfg.Server.WorkerPoolSize = n
		}
	}
	if v := getenv("CACHE_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CACHE_CAPACITY %q is not an integer", v))
		} else {
			cfg.Cache.Capacity = n
		}
	}
	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for o := range strings.SplitSeq(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.AllowedOrigins = origins
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = LogLevel(strings.ToLower(v))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	return nil
}

func setKey(key, provider string, e *ProviderEntry) {
	if e.Name == provider {
		e.APIKey = key
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.WorkerPoolSize < 1 {
		errs = append(errs, fmt.Errorf("server.worker_pool_size %d must be at least 1", cfg.Server.WorkerPoolSize))
	}
	if cfg.Server.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout %s must not be negative", cfg.Server.ShutdownTimeout))
	}

	// Providers
	errs = append(errs, validateProvider("stt", "providers.stt", cfg.Providers.STT)...)
	for i, e := range cfg.Providers.STTFallbacks {
		errs = append(errs, validateProvider("stt", fmt.Sprintf("providers.stt_fallbacks[%d]", i), e)...)
	}
	errs = append(errs, validateProvider("tts", "providers.tts", cfg.Providers.TTS)...)
	errs = append(errs, validateProvider("llm", "providers.llm", cfg.Providers.LLM)...)
	for i, e := range cfg.Providers.LLMFallbacks {
		errs = append(errs, validateProvider("llm", fmt.Sprintf("providers.llm_fallbacks[%d]", i), e)...)
	}

	// Cache and render
	if cfg.Cache.Capacity < 1 {
		errs = append(errs, fmt.Errorf("cache.capacity %d must be at least 1", cfg.Cache.Capacity))
	}
	if cfg.Render.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("render.concurrency %d must be at least 1", cfg.Render.Concurrency))
	}
	if cfg.Render.Pause < 0 {
		errs = append(errs, fmt.Errorf("render.pause %s must not be negative", cfg.Render.Pause))
	}
	if cfg.Render.ProviderTimeout < 0 {
		errs = append(errs, fmt.Errorf("render.provider_timeout %s must not be negative", cfg.Render.ProviderTimeout))
	}

	// Voices
	if cfg.Voices != nil {
		if _, err := voice.New(*cfg.Voices); err != nil {
			errs = append(errs, fmt.Errorf("voices: %w", err))
		}
	}

	return errors.Join(errs...)
}

// validateProvider checks one provider entry. Unknown names only warn;
// the registry rejects them when the provider is built.
func validateProvider(kind, path string, e ProviderEntry) []error {
	var errs []error
	if e.Name == "" {
		return []error{fmt.Errorf("%s.name is required", path)}
	}
	validateProviderName(kind, e.Name)
	if slices.Contains(keyedProviders[kind], e.Name) && e.APIKey == "" {
		errs = append(errs, fmt.Errorf("%s: %s requires an API key (set %s)", path, e.Name, envKeyFor(e.Name)))
	}
	if kind == "stt" && e.Name == "whisper" && e.BaseURL == "" {
		errs = append(errs, fmt.Errorf("%s.base_url is required for whisper", path))
	}
	if kind == "llm" && e.Model == "" {
		errs = append(errs, fmt.Errorf("%s.model is required", path))
	}
	return errs
}

func envKeyFor(provider string) string {
	return strings.ToUpper(provider) + "_API_KEY"
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
