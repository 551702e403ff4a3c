// Package render assembles multi-speaker conversation scripts into a single
// audio track.
//
// A render validates the whole script up front, synthesises the turns with
// bounded fan-out through the shared synthesis cache, and concatenates the
// payloads in script order. Any turn failure aborts the render; the error
// names the failing turn and no partial audio is returned.
package render

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/nexusvoice/internal/fault"
	"github.com/MrWong99/nexusvoice/internal/observe"
	"github.com/MrWong99/nexusvoice/internal/synth"
	"github.com/MrWong99/nexusvoice/internal/voice"
	"github.com/MrWong99/nexusvoice/pkg/provider/tts"
)

// DefaultConcurrency is the number of turns synthesised at once per render.
const DefaultConcurrency = 4

// Turn is one line of a conversation script.
type Turn struct {
	Speaker  string `json:"speaker"`
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// Utterance is a single-voice synthesis request. An empty VoiceID selects
// the default speaker's voice for Language.
type Utterance struct {
	Text     string
	Language string
	VoiceID  string
}

// Result is an assembled audio artifact.
type Result struct {
	Audio       []byte
	ContentType string

	// Offsets[i] is the byte offset at which turn i starts in Audio.
	Offsets []int
}

// Synthesizer produces audio for one request. [*synth.Unit] implements it.
type Synthesizer interface {
	Synthesize(ctx context.Context, req synth.Request) ([]byte, error)
}

// Renderer turns scripts into audio. It is safe for concurrent use.
type Renderer struct {
	voices      *voice.Registry
	cache       *synth.Cache
	synth       Synthesizer
	concurrency int
	pause       time.Duration
	metrics     *observe.Metrics
}

// Option configures a [Renderer].
type Option func(*Renderer)

// WithConcurrency bounds the number of turns synthesised at once. Values
// below 1 keep [DefaultConcurrency].
func WithConcurrency(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithPause inserts d of silence between consecutive turns. Zero disables
// it. The silent frames copy the sample rate, bitrate and channel mode of the
// preceding turn's first MP3 frame.
func WithPause(d time.Duration) Option {
	return func(r *Renderer) { r.pause = d }
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Renderer) { r.metrics = m }
}

// New creates a Renderer. Cache misses are computed by s.
func New(voices *voice.Registry, cache *synth.Cache, s Synthesizer, opts ...Option) *Renderer {
	r := &Renderer{
		voices:      voices,
		cache:       cache,
		synth:       s,
		concurrency: DefaultConcurrency,
	}
	for _, o := range opts {
		o(r)
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	return r
}

// Render synthesises every turn and returns the concatenated audio.
//
// Errors for a specific turn are [*fault.TurnError] values. When several
// dispatched turns fail, the one with the lowest index is reported. Turns
// not yet dispatched when a failure occurs are never synthesised.
func (r *Renderer) Render(ctx context.Context, turns []Turn) (res *Result, err error) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "render.conversation",
		trace.WithAttributes(attribute.Int("render.turns", len(turns))))
	defer func() {
		status := "ok"
		switch {
		case err != nil && ctx.Err() != nil:
			status = "cancelled"
		case err != nil:
			status = fault.KindOf(err).String()
		}
		r.metrics.RecordRender(ctx, status, len(turns), time.Since(start))
		observe.EndSpan(span, err)
	}()

	reqs, err := r.plan(turns)
	if err != nil {
		return nil, err
	}
	payloads, err := r.synthesizeAll(ctx, turns, reqs)
	if err != nil {
		return nil, err
	}
	return r.assemble(payloads), nil
}

// plan validates the script and resolves every turn to a synthesis request
// without calling any provider.
func (r *Renderer) plan(turns []Turn) ([]synth.Request, error) {
	const op = "render.validate"
	if len(turns) == 0 {
		return nil, fault.Validation(op, "script has no turns")
	}

	reqs := make([]synth.Request, len(turns))
	for i, t := range turns {
		if strings.TrimSpace(t.Speaker) == "" {
			return nil, fault.AtTurn(i, t.Speaker, fault.Validation(op, "speaker is required"))
		}
		text := strings.TrimSpace(t.Text)
		if text == "" {
			return nil, fault.AtTurn(i, t.Speaker, fault.Validation(op, "text is empty"))
		}
		lang := t.Language
		if lang == "" {
			lang = r.voices.DefaultLanguage()
		}
		voiceID, err := r.voices.ResolveVoice(t.Speaker, lang)
		if err != nil {
			return nil, fault.AtTurn(i, t.Speaker, err)
		}
		reqs[i] = synth.NewRequest(text, voiceID)
	}
	return reqs, nil
}

// synthesizeAll fetches every payload with at most r.concurrency turns in
// flight. Dispatched turns run on ctx rather than the group context, so a
// failure stops later turns without abandoning earlier running ones. Every
// turn before the reported failure is therefore attempted.
func (r *Renderer) synthesizeAll(ctx context.Context, turns []Turn, reqs []synth.Request) ([][]byte, error) {
	payloads := make([][]byte, len(reqs))
	errs := make([]error, len(reqs))

	var firstFailed atomic.Int64
	firstFailed.Store(int64(len(reqs)))
	markFailed := func(i int) {
		for {
			cur := firstFailed.Load()
			if int64(i) >= cur || firstFailed.CompareAndSwap(cur, int64(i)) {
				return
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, req := range reqs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if int64(i) > firstFailed.Load() {
				return nil
			}
			audio, err := r.synthesizeTurn(ctx, i, turns[i].Speaker, req)
			if err != nil {
				errs[i] = err
				markFailed(i)
				return err
			}
			payloads[i] = audio
			return nil
		})
	}
	_ = g.Wait()

	// A caller that went away gets its own cancellation back rather than
	// whichever turn noticed it first.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, err := range errs {
		if err != nil {
			return nil, fault.AtTurn(i, turns[i].Speaker, err)
		}
	}
	for i, p := range payloads {
		if p == nil {
			return nil, fault.AtTurn(i, turns[i].Speaker,
				fault.Internal("render.synthesize", nil, "turn was never synthesised"))
		}
	}
	return payloads, nil
}

func (r *Renderer) synthesizeTurn(ctx context.Context, index int, speaker string, req synth.Request) (audio []byte, err error) {
	ctx, span := observe.StartSpan(ctx, "render.turn", trace.WithAttributes(
		attribute.Int("turn.index", index),
		attribute.String("turn.speaker", speaker),
		attribute.String("turn.voice_id", req.VoiceID),
	))
	defer func() { observe.EndSpan(span, err) }()

	return r.cache.GetOrCompute(ctx, req, r.synth.Synthesize)
}

// assemble concatenates payloads in script order with the configured gap
// between consecutive turns.
func (r *Renderer) assemble(payloads [][]byte) *Result {
	gaps := r.gaps(payloads)
	size := 0
	for i, p := range payloads {
		size += len(p) + len(gaps[i])
	}

	audio := make([]byte, 0, size)
	offsets := make([]int, len(payloads))
	for i, p := range payloads {
		if i > 0 {
			audio = append(audio, gaps[i-1]...)
		}
		offsets[i] = len(audio)
		audio = append(audio, p...)
	}
	return &Result{Audio: audio, ContentType: tts.ContentTypeMPEG, Offsets: offsets}
}

// gaps returns the silence to place after each payload; the last is empty.
func (r *Renderer) gaps(payloads [][]byte) [][]byte {
	out := make([][]byte, len(payloads))
	if r.pause <= 0 || len(payloads) < 2 {
		return out
	}
	byFormat := map[[4]byte][]byte{}
	for i, p := range payloads[:len(payloads)-1] {
		f, ok := parseFormat(p)
		if !ok {
			f = defaultFormat
		}
		g, seen := byFormat[f.header]
		if !seen {
			g = f.silence(r.pause)
			byFormat[f.header] = g
		}
		out[i] = g
	}
	return out
}

// Speak synthesises a single utterance through the shared cache.
func (r *Renderer) Speak(ctx context.Context, u Utterance) (res *Result, err error) {
	const op = "render.speak"
	ctx, span := observe.StartSpan(ctx, op)
	defer func() { observe.EndSpan(span, err) }()

	text := strings.TrimSpace(u.Text)
	if text == "" {
		return nil, fault.Validation(op, "text is required")
	}
	lang := u.Language
	if lang == "" {
		lang = r.voices.DefaultLanguage()
	}
	if _, err := r.voices.ResolveLanguage(lang); err != nil {
		return nil, err
	}
	voiceID := u.VoiceID
	if voiceID == "" {
		if voiceID, err = r.voices.ResolveVoice(r.voices.DefaultSpeaker(), lang); err != nil {
			return nil, err
		}
	}

	audio, err := r.cache.GetOrCompute(ctx, synth.NewRequest(text, voiceID), r.synth.Synthesize)
	if err != nil {
		return nil, err
	}
	return &Result{Audio: audio, ContentType: tts.ContentTypeMPEG, Offsets: []int{0}}, nil
}
