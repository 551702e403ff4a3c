// Package tts defines the capability interfaces for Text-to-Speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g., ElevenLabs or the
// OpenAI speech endpoint) and presents one blocking call: text plus an opaque
// voice identifier in, one complete encoded audio payload out. Callers that
// stitch several payloads together rely on every call of one provider
// returning the same container format.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Synthesizer is the narrow capability the rendering pipeline depends on.
type Synthesizer interface {
	// Synthesize converts text into one complete audio payload spoken by the
	// voice identified by voiceID.
	//
	// A nil error with a zero-length payload is possible; it is the caller's
	// job to treat that as a failure. Returns an error if the request cannot
	// be made, the upstream rejects it, or ctx is cancelled.
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// VoiceLister is implemented by providers that can enumerate their voices.
type VoiceLister interface {
	// ListVoices returns all voice profiles available from this provider. The
	// list reflects the provider's current catalogue and may change between
	// calls.
	ListVoices(ctx context.Context) ([]VoiceProfile, error)
}

// Provider is a synthesizer that can also list its voices.
type Provider interface {
	Synthesizer
	VoiceLister
}
