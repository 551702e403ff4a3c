package resilience

import (
	"context"

	"github.com/MrWong99/nexusvoice/pkg/provider/stt"
)

// STTFallback implements [stt.Transcriber] over an ordered list of
// transcription backends, each behind its own circuit breaker.
type STTFallback struct {
	group *FallbackGroup[stt.Transcriber]
}

var _ stt.Transcriber = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred backend.
func NewSTTFallback(primary stt.Transcriber, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional backend.
func (f *STTFallback) AddFallback(name string, t stt.Transcriber) {
	f.group.AddFallback(name, t)
}

// Status reports the breaker state of every backend.
func (f *STTFallback) Status() []BreakerStatus { return f.group.Status() }

// Transcribe sends audio to the first healthy backend.
func (f *STTFallback) Transcribe(ctx context.Context, audio []byte, opts stt.Options) (*stt.Result, error) {
	return ExecuteWithResult(ctx, f.group, func(t stt.Transcriber) (*stt.Result, error) {
		return t.Transcribe(ctx, audio, opts)
	})
}
