// Package mock provides a test double for the tts.Provider interface.
//
// Use Synthesizer to feed controlled audio payloads to the rendering pipeline
// and to verify which text and voice IDs reached the TTS backend. By default
// every call returns Audio; set SynthesizeFunc for per-call behaviour such as
// voice-specific marker bytes or injected latency.
//
// Example:
//
//	s := &mock.Synthesizer{
//	    SynthesizeFunc: func(_ context.Context, text, voiceID string) ([]byte, error) {
//	        return []byte("<" + voiceID + ">"), nil
//	    },
//	}
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/nexusvoice/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Ctx is the context passed to Synthesize.
	Ctx context.Context
	// Text is the text passed to Synthesize.
	Text string
	// VoiceID is the voice identifier passed to Synthesize.
	VoiceID string
}

// ListVoicesCall records a single invocation of ListVoices.
type ListVoicesCall struct {
	// Ctx is the context passed to ListVoices.
	Ctx context.Context
}

// Synthesizer is a mock implementation of tts.Provider.
type Synthesizer struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// Audio is returned (as a copy) by Synthesize when SynthesizeFunc is nil
	// and Err is nil.
	Audio []byte

	// Err, if non-nil, is returned from Synthesize when SynthesizeFunc is nil.
	Err error

	// SynthesizeFunc, if set, computes the result of each call. It runs
	// outside the mock's lock so it may block.
	SynthesizeFunc func(ctx context.Context, text, voiceID string) ([]byte, error)

	// ListVoicesResult is returned by ListVoices.
	ListVoicesResult []tts.VoiceProfile

	// ListVoicesErr, if non-nil, is returned as the error from ListVoices.
	ListVoicesErr error

	// --- Call records ---

	// SynthesizeCalls records every call to Synthesize in order of arrival.
	SynthesizeCalls []SynthesizeCall

	// ListVoicesCalls records every call to ListVoices in order.
	ListVoicesCalls []ListVoicesCall
}

// Synthesize records the call and returns the configured payload.
func (s *Synthesizer) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	s.mu.Lock()
	s.SynthesizeCalls = append(s.SynthesizeCalls, SynthesizeCall{Ctx: ctx, Text: text, VoiceID: voiceID})
	fn, audio, err := s.SynthesizeFunc, s.Audio, s.Err
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, text, voiceID)
	}
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), audio...), nil
}

// ListVoices records the call and returns ListVoicesResult, ListVoicesErr.
func (s *Synthesizer) ListVoices(ctx context.Context) ([]tts.VoiceProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ListVoicesCalls = append(s.ListVoicesCalls, ListVoicesCall{Ctx: ctx})
	return s.ListVoicesResult, s.ListVoicesErr
}

// CallCount returns the number of Synthesize calls. Thread-safe.
func (s *Synthesizer) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.SynthesizeCalls)
}

// Calls returns a snapshot of the recorded Synthesize calls. Thread-safe.
func (s *Synthesizer) Calls() []SynthesizeCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SynthesizeCall, len(s.SynthesizeCalls))
	copy(out, s.SynthesizeCalls)
	return out
}

// Reset clears all recorded calls. Thread-safe.
func (s *Synthesizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SynthesizeCalls = nil
	s.ListVoicesCalls = nil
}

// Ensure Synthesizer implements tts.Provider at compile time.
var _ tts.Provider = (*Synthesizer)(nil)
