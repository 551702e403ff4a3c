package resilience

import (
	"context"

	"github.com/MrWong99/nexusvoice/pkg/provider/llm"
)

// LLMFallback implements [llm.TextGenerator] with failover across several
// generation backends. Each backend has its own circuit breaker; when the
// primary fails or its breaker is open, the next healthy backend is tried.
type LLMFallback struct {
	group *FallbackGroup[llm.TextGenerator]
}

var _ llm.TextGenerator = (*LLMFallback)(nil)

// NewLLMFallback creates an [LLMFallback] with primary as the preferred backend.
func NewLLMFallback(primary llm.TextGenerator, primaryName string, cfg FallbackConfig) *LLMFallback {
	return &LLMFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional backend.
func (f *LLMFallback) AddFallback(name string, g llm.TextGenerator) {
	f.group.AddFallback(name, g)
}

// Status reports the breaker state of every backend.
func (f *LLMFallback) Status() []BreakerStatus { return f.group.Status() }

// Generate sends the request to the first healthy backend.
func (f *LLMFallback) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return ExecuteWithResult(ctx, f.group, func(g llm.TextGenerator) (*llm.Response, error) {
		return g.Generate(ctx, req)
	})
}
