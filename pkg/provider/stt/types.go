package stt

import "time"

// Result is a provider response for one audio file.
type Result struct {
	// Channels holds one entry per audio channel. Most providers return a
	// single channel for mono input.
	Channels []Channel

	// Duration is the length of the processed audio, when reported.
	Duration time.Duration
}

// Channel holds the ranked recognition alternatives for one audio channel.
type Channel struct {
	// Alternatives are ordered best first.
	Alternatives []Alternative

	// DetectedLanguage is set when the provider auto-detected the language.
	DetectedLanguage string
}

// Alternative is one candidate transcript.
type Alternative struct {
	// Transcript is the transcribed speech content.
	Transcript string

	// Confidence is the overall confidence score (0.0–1.0). Zero when the
	// provider does not report confidence.
	Confidence float64

	// Words contains per-word detail when available. May be nil.
	Words []WordDetail
}

// WordDetail holds per-word metadata from providers that support it.
type WordDetail struct {
	Word       string
	Start      time.Duration
	End        time.Duration
	Confidence float64

	// Speaker is the diarization label. -1 when diarization was not applied.
	Speaker int
}
