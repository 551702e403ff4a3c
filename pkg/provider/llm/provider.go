// Package llm defines the capability interface for Large Language Model
// backends.
//
// An LLM provider wraps a remote or local model API (e.g., OpenAI GPT-4,
// Anthropic Claude, or a local Ollama instance) behind one blocking call so
// the text processing adapter can generate text without coupling to any SDK.
//
// Implementations must be safe for concurrent use.
package llm

import "context"

// TextGenerator is the abstraction over any LLM backend.
type TextGenerator interface {
	// Generate sends req to the model and waits for the full response.
	//
	// Returns an error if the request fails, the model returns no choices, or
	// ctx is cancelled before the completion arrives.
	Generate(ctx context.Context, req Request) (*Response, error)
}
