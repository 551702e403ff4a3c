// Package mock provides a test double for the llm.TextGenerator interface.
//
// Use Generator in unit tests to verify that callers build the right prompt
// and to feed controlled responses without a live LLM backend.
//
// Example:
//
//	g := &mock.Generator{Response: &llm.Response{Text: "Hola"}}
//	resp, err := g.Generate(ctx, llm.Prompt("Translate hello"))
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/nexusvoice/pkg/provider/llm"
)

// GenerateCall records a single invocation of Generate.
type GenerateCall struct {
	// Ctx is the context passed to Generate.
	Ctx context.Context
	// Req is the Request passed to Generate.
	Req llm.Request
}

// Generator is a mock implementation of llm.TextGenerator. A nil Response
// with a nil Err yields an empty response.
type Generator struct {
	mu sync.Mutex

	// Response is returned by Generate when Err is nil.
	Response *llm.Response

	// Err, if non-nil, is returned from Generate.
	Err error

	// GenerateFunc, if set, overrides Response and Err.
	GenerateFunc func(ctx context.Context, req llm.Request) (*llm.Response, error)

	// Calls records every call to Generate in order.
	Calls []GenerateCall
}

// Generate records the call and returns the configured result.
func (g *Generator) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	g.mu.Lock()
	g.Calls = append(g.Calls, GenerateCall{Ctx: ctx, Req: req})
	fn, resp, err := g.GenerateFunc, g.Response, g.Err
	g.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return &llm.Response{}, nil
	}
	out := *resp
	return &out, nil
}

// CallCount returns the number of Generate calls. Thread-safe.
func (g *Generator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Calls)
}

// Reset clears all recorded calls. Thread-safe.
func (g *Generator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls = nil
}

var _ llm.TextGenerator = (*Generator)(nil)
