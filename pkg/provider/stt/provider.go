// Package stt defines the capability interface for Speech-to-Text backends.
//
// An STT provider wraps a pre-recorded transcription service (e.g., Deepgram
// or a local whisper.cpp server). One call takes a complete encoded audio
// file and returns the provider's channel/alternative result structure, so
// callers can pick the alternative they trust and read diarization data when
// the provider supplies it.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// Options carries recognition hints for one transcription call.
type Options struct {
	// Language is the short language code for recognition (e.g., "en", "de").
	// An empty string lets the provider use its default.
	Language string

	// MimeType is the media type of the audio payload (e.g., "audio/wav").
	// Empty means the provider default.
	MimeType string

	// Diarize requests speaker labels on words, when supported.
	Diarize bool
}

// Transcriber is the abstraction over any STT backend.
type Transcriber interface {
	// Transcribe sends a complete audio file for recognition and waits for
	// the result.
	//
	// Returns an error if the request cannot be made, the upstream rejects
	// it, or ctx is cancelled. A successful call may still return a result
	// with no channels; interpreting that is the caller's concern.
	Transcribe(ctx context.Context, audio []byte, opts Options) (*Result, error)
}
