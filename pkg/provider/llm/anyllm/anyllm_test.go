package anyllm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/nexusvoice/pkg/provider/llm"
)

func TestConvertMessage(t *testing.T) {
	got := convertMessage(llm.Message{Role: "user", Content: "Hello!", Name: "alice"})
	if got.Role != "user" {
		t.Errorf("expected role user, got %q", got.Role)
	}
	if got.ContentString() != "Hello!" {
		t.Errorf("expected content %q, got %q", "Hello!", got.ContentString())
	}
	if got.Name != "alice" {
		t.Errorf("expected name alice, got %q", got.Name)
	}
}

func TestBuildParams(t *testing.T) {
	p := &Provider{model: "claude-3-5-haiku-latest"}
	params := p.buildParams(llm.Request{
		SystemPrompt: "be brief",
		Messages:     []llm.Message{{Role: "user", Content: "hi"}},
		Temperature:  0.7,
		MaxTokens:    1000,
	})
	if params.Model != "claude-3-5-haiku-latest" {
		t.Errorf("model = %q", params.Model)
	}
	if len(params.Messages) != 2 || params.Messages[0].Role != anyllmlib.RoleSystem {
		t.Fatalf("messages = %+v", params.Messages)
	}
	if params.Temperature == nil || *params.Temperature != 0.7 {
		t.Errorf("temperature = %v", params.Temperature)
	}
	if params.MaxTokens == nil || *params.MaxTokens != 1000 {
		t.Errorf("max tokens = %v", params.MaxTokens)
	}
}

func TestBuildParams_ZeroValuesOmitted(t *testing.T) {
	p := &Provider{model: "llama3"}
	params := p.buildParams(llm.Prompt("hi"))
	if params.Temperature != nil || params.MaxTokens != nil {
		t.Errorf("expected nil temperature and max tokens, got %v %v", params.Temperature, params.MaxTokens)
	}
}

func TestGenerate_OpenAICompatibleBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Resumen"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 4, "completion_tokens": 1, "total_tokens": 5}
		}`))
	}))
	defer srv.Close()

	p, err := New("openai", "gpt-4o-mini", anyllmlib.WithAPIKey("sk-test"), anyllmlib.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp, err := p.Generate(context.Background(), llm.Prompt("Summarize this"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != "Resumen" {
		t.Errorf("text = %q, want Resumen", resp.Text)
	}
}

func TestGenerate_NoMessages(t *testing.T) {
	p := &Provider{model: "llama3"}
	if _, err := p.Generate(context.Background(), llm.Request{}); err == nil {
		t.Fatal("expected error for empty request")
	}
}

// ── Constructor ───────────────────────────────────────────────────────────────

func TestNew_Validation(t *testing.T) {
	if _, err := New("", "gpt-4o"); err == nil {
		t.Error("expected error for empty providerName")
	}
	if _, err := New("openai", ""); err == nil {
		t.Error("expected error for empty model")
	}
	if _, err := New("fakecloud", "some-model", anyllmlib.WithAPIKey("dummy")); err == nil {
		t.Error("expected error for unsupported provider")
	}
}

func TestNew_Backends(t *testing.T) {
	tests := []struct {
		provider, model string
		opts            []anyllmlib.Option
	}{
		{"openai", "gpt-4o", []anyllmlib.Option{anyllmlib.WithAPIKey("sk-test")}},
		{"anthropic", "claude-3-5-sonnet-latest", []anyllmlib.Option{anyllmlib.WithAPIKey("sk-ant-test")}},
		{"ollama", "llama3", nil},
		{"llamacpp", "llama3", nil},
		{"llamafile", "llama3", nil},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := New(tt.provider, tt.model, tt.opts...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Model() != tt.model {
				t.Errorf("model = %q, want %q", p.Model(), tt.model)
			}
		})
	}
}

// TestNew_OpenAI_MissingAPIKey relies on OPENAI_API_KEY being cleared.
func TestNew_OpenAI_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := New("openai", "gpt-4o"); err == nil {
		t.Fatal("expected error for missing API key")
	}
}
