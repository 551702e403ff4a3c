// Package mock provides a test double for the stt.Transcriber interface.
//
// Example:
//
//	tr := &mock.Transcriber{Result: mock.TextResult("hello", 0.9)}
//	res, _ := tr.Transcribe(ctx, audio, stt.Options{Language: "en"})
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/nexusvoice/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// Audio is a copy of the audio passed to Transcribe.
	Audio []byte
	// Opts is the Options passed to Transcribe.
	Opts stt.Options
}

// Transcriber is a mock implementation of stt.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// Result is returned by Transcribe when Err is nil. May be nil.
	Result *stt.Result

	// Err, if non-nil, is returned from Transcribe.
	Err error

	// Calls records every call to Transcribe in order.
	Calls []TranscribeCall
}

// Transcribe records the call and returns Result, Err.
func (m *Transcriber) Transcribe(ctx context.Context, audio []byte, opts stt.Options) (*stt.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, TranscribeCall{Ctx: ctx, Audio: append([]byte(nil), audio...), Opts: opts})
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

// CallCount returns the number of Transcribe calls. Thread-safe.
func (m *Transcriber) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// TextResult builds a single-channel, single-alternative result.
func TextResult(transcript string, confidence float64) *stt.Result {
	return &stt.Result{Channels: []stt.Channel{{
		Alternatives: []stt.Alternative{{Transcript: transcript, Confidence: confidence}},
	}}}
}

var _ stt.Transcriber = (*Transcriber)(nil)
