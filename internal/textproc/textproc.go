// Package textproc runs summarise, translate and free-form processing
// prompts against a text generator.
package textproc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrWong99/nexusvoice/internal/fault"
	"github.com/MrWong99/nexusvoice/internal/observe"
	"github.com/MrWong99/nexusvoice/internal/voice"
	"github.com/MrWong99/nexusvoice/pkg/provider/llm"
)

// Type selects the prompt template.
type Type string

const (
	Summarize Type = "summarize"
	Translate Type = "translate"
)

// Request is one processing job. An empty Type means [Summarize]; any type
// other than summarize or translate uses a generic processing prompt.
type Request struct {
	Text     string
	Language string
	Type     Type
}

// Result echoes the input alongside the generated text.
type Result struct {
	OriginalText   string `json:"original_text"`
	ProcessedText  string `json:"processed_text"`
	Language       string `json:"language"`
	LanguageName   string `json:"language_name"`
	LanguageFlag   string `json:"language_flag"`
	ProcessingType Type   `json:"processing_type"`
}

// Processor builds prompts and calls an [llm.TextGenerator].
type Processor struct {
	llm      llm.TextGenerator
	voices   *voice.Registry
	provider string
	metrics  *observe.Metrics
}

// Option configures a [Processor].
type Option func(*Processor)

// WithProviderName sets the provider label used on metrics.
func WithProviderName(name string) Option {
	return func(p *Processor) { p.provider = name }
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// New creates a Processor.
func New(g llm.TextGenerator, voices *voice.Registry, opts ...Option) *Processor {
	p := &Processor{llm: g, voices: voices, provider: "llm"}
	for _, o := range opts {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	return p
}

// Prompt renders the instruction for typ in the named language.
func Prompt(typ Type, languageName, text string) string {
	switch typ {
	case Summarize, "":
		return fmt.Sprintf("Summarize the following text in %s:\n\n%s", languageName, text)
	case Translate:
		return fmt.Sprintf("Translate the following text to %s:\n\n%s", languageName, text)
	default:
		return fmt.Sprintf("Process the following text in %s:\n\n%s", languageName, text)
	}
}

// Process validates req and generates the processed text.
func (p *Processor) Process(ctx context.Context, req Request) (res *Result, err error) {
	const op = "textproc.process"
	ctx, span := observe.StartSpan(ctx, op)
	defer func() { observe.EndSpan(span, err) }()

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fault.Validation(op, "no text provided")
	}
	code := req.Language
	if code == "" {
		code = p.voices.DefaultLanguage()
	}
	lang, err := p.voices.ResolveLanguage(code)
	if err != nil {
		return nil, err
	}
	typ := req.Type
	if typ == "" {
		typ = Summarize
	}

	start := time.Now()
	resp, err := p.llm.Generate(ctx, llm.Prompt(Prompt(typ, lang.Name, text)))
	p.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordProviderRequest(ctx, p.provider, "llm", "error")
		p.metrics.RecordProviderError(ctx, p.provider, "llm")
		return nil, fault.Provider(op, err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		p.metrics.RecordProviderRequest(ctx, p.provider, "llm", "empty")
		return nil, fault.EmptyPayload(op, "generator returned no text")
	}
	p.metrics.RecordProviderRequest(ctx, p.provider, "llm", "ok")

	return &Result{
		OriginalText:   text,
		ProcessedText:  resp.Text,
		Language:       lang.Code,
		LanguageName:   lang.Name,
		LanguageFlag:   lang.Flag,
		ProcessingType: typ,
	}, nil
}
