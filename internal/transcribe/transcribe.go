// Package transcribe adapts a speech-to-text provider to the service's
// request and result shapes.
package transcribe

import (
	"context"
	"strings"
	"time"

	"github.com/MrWong99/nexusvoice/internal/fault"
	"github.com/MrWong99/nexusvoice/internal/observe"
	"github.com/MrWong99/nexusvoice/internal/voice"
	"github.com/MrWong99/nexusvoice/pkg/provider/stt"
)

// DefaultMimeType is assumed when the upload does not declare one.
const DefaultMimeType = "audio/wav"

// Request is one transcription job. An empty Language selects the registry
// default.
type Request struct {
	Audio    []byte
	MimeType string
	Language string
}

// Result is the transcript of the first channel's best alternative, with
// the language echoed back for display.
type Result struct {
	Text         string  `json:"text"`
	Confidence   float64 `json:"confidence"`
	Language     string  `json:"language"`
	LanguageName string  `json:"language_name"`
	LanguageFlag string  `json:"language_flag"`
}

// Adapter calls an [stt.Transcriber] and extracts the transcript.
type Adapter struct {
	stt      stt.Transcriber
	voices   *voice.Registry
	provider string
	diarize  bool
	metrics  *observe.Metrics
}

// Option configures an [Adapter].
type Option func(*Adapter)

// WithProviderName sets the provider label used on metrics.
func WithProviderName(name string) Option {
	return func(a *Adapter) { a.provider = name }
}

// WithDiarize asks the provider to label speakers. Default: true.
func WithDiarize(on bool) Option {
	return func(a *Adapter) { a.diarize = on }
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

// New creates an Adapter.
func New(t stt.Transcriber, voices *voice.Registry, opts ...Option) *Adapter {
	a := &Adapter{stt: t, voices: voices, provider: "stt", diarize: true}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	return a
}

// Transcribe runs req through the provider.
//
// Empty audio is a validation error and an unknown language is a
// not-supported error; neither reaches the provider. A failed call is a
// provider error, and a result without a channel or alternative is an
// internal error.
func (a *Adapter) Transcribe(ctx context.Context, req Request) (res *Result, err error) {
	const op = "transcribe"
	ctx, span := observe.StartSpan(ctx, op)
	defer func() { observe.EndSpan(span, err) }()

	if len(req.Audio) == 0 {
		return nil, fault.Validation(op, "no audio provided")
	}
	code := req.Language
	if code == "" {
		code = a.voices.DefaultLanguage()
	}
	lang, err := a.voices.ResolveLanguage(code)
	if err != nil {
		return nil, err
	}
	mime := strings.TrimSpace(req.MimeType)
	if mime == "" || mime == "application/octet-stream" {
		mime = DefaultMimeType
	}

	start := time.Now()
	out, err := a.stt.Transcribe(ctx, req.Audio, stt.Options{
		Language: lang.Code,
		MimeType: mime,
		Diarize:  a.diarize,
	})
	a.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		a.metrics.RecordProviderRequest(ctx, a.provider, "stt", "error")
		a.metrics.RecordProviderError(ctx, a.provider, "stt")
		return nil, fault.Provider(op, err)
	}
	a.metrics.RecordProviderRequest(ctx, a.provider, "stt", "ok")

	if out == nil || len(out.Channels) == 0 || len(out.Channels[0].Alternatives) == 0 {
		observe.Logger(ctx).Error("transcription result has unexpected shape", "provider", a.provider)
		return nil, fault.Internal(op, nil, "transcription result has no alternatives")
	}
	best := out.Channels[0].Alternatives[0]
	return &Result{
		Text:         best.Transcript,
		Confidence:   best.Confidence,
		Language:     lang.Code,
		LanguageName: lang.Name,
		LanguageFlag: lang.Flag,
	}, nil
}
