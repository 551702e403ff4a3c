package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/nexusvoice/pkg/provider/llm"
	llmmock "github.com/MrWong99/nexusvoice/pkg/provider/llm/mock"
)

func TestLLMFallback_PrimarySuccess(t *testing.T) {
	primary := &llmmock.Generator{Response: &llm.Response{Text: "summary"}}
	secondary := &llmmock.Generator{}

	fb := NewLLMFallback(primary, "openai", FallbackConfig{})
	fb.AddFallback("anthropic", secondary)

	resp, err := fb.Generate(context.Background(), llm.Prompt("Summarize"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "summary" {
		t.Errorf("text = %q", resp.Text)
	}
	if secondary.CallCount() != 0 {
		t.Errorf("secondary called %d times, want 0", secondary.CallCount())
	}
}

func TestLLMFallback_Failover(t *testing.T) {
	primary := &llmmock.Generator{Err: errors.New("rate limited")}
	secondary := &llmmock.Generator{Response: &llm.Response{Text: "from anthropic"}}

	fb := NewLLMFallback(primary, "openai", FallbackConfig{})
	fb.AddFallback("anthropic", secondary)

	resp, err := fb.Generate(context.Background(), llm.Prompt("Translate"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "from anthropic" {
		t.Errorf("text = %q", resp.Text)
	}
	if got := secondary.Calls[0].Req.Messages[0].Content; got != "Translate" {
		t.Errorf("forwarded prompt = %q", got)
	}
}

func TestLLMFallback_OpenPrimaryIsSkipped(t *testing.T) {
	primary := &llmmock.Generator{Err: errors.New("down")}
	secondary := &llmmock.Generator{Response: &llm.Response{Text: "ok"}}

	fb := NewLLMFallback(primary, "openai", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1},
	})
	fb.AddFallback("anthropic", secondary)

	for range 3 {
		if _, err := fb.Generate(context.Background(), llm.Prompt("x")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if primary.CallCount() != 1 {
		t.Errorf("primary called %d times, want 1 before its breaker opened", primary.CallCount())
	}
	if fb.Status()[0].State != StateOpen {
		t.Errorf("primary state = %v, want open", fb.Status()[0].State)
	}
}
