package config_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/MrWong99/nexusvoice/internal/config"
)

const credentialsYAML = `
providers:
  stt: {name: deepgram, api_key: dg}
  tts: {name: elevenlabs, api_key: el}
  llm: {name: openai, api_key: sk}
`

func TestApplyEnv_Overrides(t *testing.T) {
	cfg, err := config.Decode(strings.NewReader(credentialsYAML), envMap(map[string]string{
		"PORT":             "7000",
		"WORKER_POOL_SIZE": "4",
		"CACHE_CAPACITY":   "12",
		"ALLOWED_ORIGINS":  "https://a.example, https://b.example ,",
		"LOG_LEVEL":        "WARN",
		"OPENAI_API_KEY":   "sk-env",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddr != ":7000" {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.WorkerPoolSize != 4 || cfg.Cache.Capacity != 12 {
		t.Errorf("pool=%d cache=%d", cfg.Server.WorkerPoolSize, cfg.Cache.Capacity)
	}
	if want := []string{"https://a.example", "https://b.example"}; !slices.Equal(cfg.Server.AllowedOrigins, want) {
		t.Errorf("allowed_origins = %v, want %v", cfg.Server.AllowedOrigins, want)
	}
	if cfg.Server.LogLevel != config.LogWarn {
		t.Errorf("log_level = %q", cfg.Server.LogLevel)
	}
	if cfg.Providers.LLM.APIKey != "sk-env" {
		t.Errorf("llm api key = %q, want env value", cfg.Providers.LLM.APIKey)
	}
}

func TestApplyEnv_KeysFollowProviderNames(t *testing.T) {
	cfg := &config.Config{Providers: config.ProvidersConfig{
		STT:          config.ProviderEntry{Name: "whisper"},
		STTFallbacks: []config.ProviderEntry{{Name: "deepgram"}},
		TTS:          config.ProviderEntry{Name: "openai"},
		LLM:          config.ProviderEntry{Name: "anthropic"},
		LLMFallbacks: []config.ProviderEntry{{Name: "openai"}},
	}}
	err := config.ApplyEnv(cfg, envMap(map[string]string{
		"DEEPGRAM_API_KEY":   "dg",
		"ELEVENLABS_API_KEY": "el",
		"OPENAI_API_KEY":     "sk",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	p := cfg.Providers
	if p.STT.APIKey != "" || p.STTFallbacks[0].APIKey != "dg" {
		t.Errorf("stt keys: primary=%q fallback=%q", p.STT.APIKey, p.STTFallbacks[0].APIKey)
	}
	if p.TTS.APIKey != "sk" {
		t.Errorf("openai tts key = %q", p.TTS.APIKey)
	}
	if p.LLM.APIKey != "" || p.LLMFallbacks[0].APIKey != "sk" {
		t.Errorf("llm keys: primary=%q fallback=%q", p.LLM.APIKey, p.LLMFallbacks[0].APIKey)
	}
}

func TestApplyEnv_InvalidNumbers(t *testing.T) {
	cfg := &config.Config{}
	err := config.ApplyEnv(cfg, envMap(map[string]string{
		"PORT":             "http",
		"WORKER_POOL_SIZE": "many",
		"CACHE_CAPACITY":   "1.5",
	}))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"PORT", "WORKER_POOL_SIZE", "CACHE_CAPACITY"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestValidate_FallbackEntries(t *testing.T) {
	const yml = `
providers:
  stt: {name: deepgram, api_key: dg}
  stt_fallbacks: [{name: whisper}]
  tts: {name: elevenlabs, api_key: el}
  llm: {name: openai, api_key: sk}
  llm_fallbacks: [{name: anthropic}]
`
	_, err := config.Decode(strings.NewReader(yml), noEnv)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"providers.stt_fallbacks[0].base_url", "providers.llm_fallbacks[0].model"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestValidate_MissingCredentials(t *testing.T) {
	_, err := config.Decode(strings.NewReader(""), noEnv)
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
	for _, want := range []string{"DEEPGRAM_API_KEY", "ELEVENLABS_API_KEY", "OPENAI_API_KEY"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"log level", "server: {log_level: bananas}", "server.log_level"},
		{"worker pool", "server: {worker_pool_size: -1}", "server.worker_pool_size"},
		{"cache capacity", "cache: {capacity: -3}", "cache.capacity"},
		{"concurrency", "render: {concurrency: -1}", "render.concurrency"},
		{"pause", "render: {pause: -1s}", "render.pause"},
		{"voices", "voices: {default_language: en, default_speaker: X, languages: [{code: en}]}", "voices:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Decode(strings.NewReader(credentialsYAML+tt.yaml+"\n"), noEnv)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := &config.Config{}
	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("expected errors for zero config")
	}
	// Zero config: three provider names, pool size, cache, concurrency.
	if n := strings.Count(err.Error(), "\n") + 1; n < 6 {
		t.Errorf("expected at least 6 joined errors, got %d: %v", n, err)
	}
}

func TestLoad_File(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, credentialsYAML+"server: {listen_addr: ':9999'}\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.ListenAddr != ":9999" {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want not-exist", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	writeFile(t, path, "NEXUSVOICE_TEST_A=from-file\nNEXUSVOICE_TEST_B=from-file\n")
	t.Setenv("NEXUSVOICE_TEST_A", "")
	os.Unsetenv("NEXUSVOICE_TEST_A")
	t.Setenv("NEXUSVOICE_TEST_B", "preset")

	if err := config.LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("NEXUSVOICE_TEST_A"); got != "from-file" {
		t.Errorf("A = %q, want from-file", got)
	}
	if got := os.Getenv("NEXUSVOICE_TEST_B"); got != "preset" {
		t.Errorf("B = %q, want preset (existing values win)", got)
	}
}

func TestValidProviderNames(t *testing.T) {
	for _, kind := range []string{"stt", "tts", "llm"} {
		if len(config.ValidProviderNames[kind]) == 0 {
			t.Errorf("no known providers for %s", kind)
		}
	}
}
