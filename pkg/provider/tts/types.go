package tts

// VoiceProfile describes one voice offered by a TTS provider.
type VoiceProfile struct {
	// ID is the provider-specific voice identifier.
	ID string `json:"id"`

	// Name is the human-readable voice name.
	Name string `json:"name"`

	// Provider identifies which TTS provider this voice belongs to.
	Provider string `json:"provider"`

	// Metadata holds provider-specific voice attributes (gender, age, accent, etc.).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ContentTypeMPEG is the media type of MP3 payloads.
const ContentTypeMPEG = "audio/mpeg"
