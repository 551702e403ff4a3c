package config_test

import (
	"slices"
	"testing"
	"time"

	"github.com/MrWong99/nexusvoice/internal/config"
	"github.com/MrWong99/nexusvoice/internal/voice"
)

func baseConfig() *config.Config {
	cfg := &config.Config{
		Providers: config.ProvidersConfig{
			STT: config.ProviderEntry{Name: "deepgram", APIKey: "dg"},
			TTS: config.ProviderEntry{Name: "elevenlabs", APIKey: "el"},
			LLM: config.ProviderEntry{Name: "openai", APIKey: "sk"},
		},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestDiff_NoChanges(t *testing.T) {
	d := config.Diff(baseConfig(), baseConfig())
	if d.Changed() {
		t.Errorf("expected no changes, got %+v", d)
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	old, new := baseConfig(), baseConfig()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Errorf("diff = %+v", d)
	}
	if len(d.RestartRequired) != 0 {
		t.Errorf("log level alone should not need a restart, got %v", d.RestartRequired)
	}
}

func TestDiff_RestartRequired(t *testing.T) {
	old, new := baseConfig(), baseConfig()
	new.Server.ListenAddr = ":9000"
	new.Server.AllowedOrigins = []string{"https://x.example"}
	new.Providers.LLM.Model = "gpt-4o"
	new.Render.Pause = time.Second
	vc := voice.DefaultConfig()
	new.Voices = &vc

	d := config.Diff(old, new)
	want := []string{"server.listen_addr", "server.allowed_origins", "providers", "render", "voices"}
	if !slices.Equal(d.RestartRequired, want) {
		t.Errorf("RestartRequired = %v, want %v", d.RestartRequired, want)
	}
	if d.LogLevelChanged {
		t.Error("log level did not change")
	}
}

func TestDiff_CacheAndPool(t *testing.T) {
	old, new := baseConfig(), baseConfig()
	new.Cache.Capacity = 5
	new.Server.WorkerPoolSize = 2

	d := config.Diff(old, new)
	want := []string{"server.worker_pool_size", "cache"}
	if !slices.Equal(d.RestartRequired, want) {
		t.Errorf("RestartRequired = %v, want %v", d.RestartRequired, want)
	}
}
