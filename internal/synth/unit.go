// Package synth turns text into speech audio for one voice.
//
// [Unit] performs a single bounded provider call and classifies its outcome.
// [Cache] sits in front of it so that identical requests are synthesised
// once: concurrent callers share one upstream call and later callers are
// served from a bounded LRU.
package synth

import (
	"context"
	"strings"
	"time"

	"github.com/MrWong99/nexusvoice/internal/fault"
	"github.com/MrWong99/nexusvoice/internal/observe"
	"github.com/MrWong99/nexusvoice/pkg/provider/tts"
)

// DefaultTimeout bounds one provider call when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Request is one unit of synthesis work and the cache key for its result.
// Construct it with [NewRequest] so equivalent inputs compare equal.
type Request struct {
	Text    string
	VoiceID string
}

// NewRequest trims surrounding whitespace from text. Interior whitespace and
// case are preserved.
func NewRequest(text, voiceID string) Request {
	return Request{Text: strings.TrimSpace(text), VoiceID: voiceID}
}

// key is the singleflight key for r.
func (r Request) key() string {
	return r.VoiceID + "\x00" + r.Text
}

// Unit calls a [tts.Synthesizer] once per request. It neither retries nor
// logs; outcomes surface as classified errors and metrics.
type Unit struct {
	synth    tts.Synthesizer
	provider string
	timeout  time.Duration
	metrics  *observe.Metrics
}

// UnitOption configures a [Unit].
type UnitOption func(*Unit)

// WithTimeout sets the per-call deadline. Non-positive values keep
// [DefaultTimeout].
func WithTimeout(d time.Duration) UnitOption {
	return func(u *Unit) {
		if d > 0 {
			u.timeout = d
		}
	}
}

// WithProviderName sets the provider label used on metrics.
func WithProviderName(name string) UnitOption {
	return func(u *Unit) { u.provider = name }
}

// WithUnitMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithUnitMetrics(m *observe.Metrics) UnitOption {
	return func(u *Unit) { u.metrics = m }
}

// NewUnit wraps s.
func NewUnit(s tts.Synthesizer, opts ...UnitOption) *Unit {
	u := &Unit{
		synth:    s,
		provider: "tts",
		timeout:  DefaultTimeout,
	}
	for _, o := range opts {
		o(u)
	}
	if u.metrics == nil {
		u.metrics = observe.DefaultMetrics()
	}
	return u
}

// Synthesize returns the audio for req.
//
// A failed call, including one that ran past the deadline, yields a
// [fault.KindProvider] error. A call that succeeds with zero bytes yields
// [fault.KindEmptyPayload].
func (u *Unit) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	const op = "synth.synthesize"
	if req.Text == "" {
		return nil, fault.Validation(op, "text is empty")
	}
	if req.VoiceID == "" {
		return nil, fault.Validation(op, "voice id is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	start := time.Now()
	audio, err := u.synth.Synthesize(ctx, req.Text, req.VoiceID)
	u.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())

	switch {
	case err != nil:
		u.metrics.RecordProviderRequest(ctx, u.provider, "tts", "error")
		u.metrics.RecordProviderError(ctx, u.provider, "tts")
		return nil, fault.Provider(op, err)
	case len(audio) == 0:
		u.metrics.RecordProviderRequest(ctx, u.provider, "tts", "empty")
		return nil, fault.EmptyPayload(op, "provider returned no audio for voice %q", req.VoiceID)
	}
	u.metrics.RecordProviderRequest(ctx, u.provider, "tts", "ok")
	return audio, nil
}
