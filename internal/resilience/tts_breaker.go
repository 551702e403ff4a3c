package resilience

import (
	"context"
	"errors"

	"github.com/MrWong99/nexusvoice/pkg/provider/tts"
)

// TTSBreaker guards a single [tts.Synthesizer] with a circuit breaker. Voice
// IDs belong to one vendor, so synthesis is never failed over to another
// backend; an open breaker fails calls immediately instead of letting every
// turn of a render wait out the provider timeout.
type TTSBreaker struct {
	inner   tts.Synthesizer
	breaker *CircuitBreaker
}

var _ tts.Provider = (*TTSBreaker)(nil)

// NewTTSBreaker wraps s. cfg.Name labels the breaker.
func NewTTSBreaker(s tts.Synthesizer, cfg CircuitBreakerConfig) *TTSBreaker {
	return &TTSBreaker{inner: s, breaker: NewCircuitBreaker(cfg)}
}

// Synthesize forwards to the wrapped synthesizer unless the breaker is open.
func (b *TTSBreaker) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	var audio []byte
	err := b.breaker.Execute(func() error {
		var err error
		audio, err = b.inner.Synthesize(ctx, text, voiceID)
		return err
	})
	return audio, err
}

// ListVoices forwards to the wrapped synthesizer when it can list voices.
// Listing does not touch the breaker.
func (b *TTSBreaker) ListVoices(ctx context.Context) ([]tts.VoiceProfile, error) {
	lister, ok := b.inner.(tts.VoiceLister)
	if !ok {
		return nil, errors.New("resilience: synthesizer does not list voices")
	}
	return lister.ListVoices(ctx)
}

// State reports the breaker state.
func (b *TTSBreaker) State() State { return b.breaker.State() }

// Name returns the breaker label.
func (b *TTSBreaker) Name() string { return b.breaker.Name() }
