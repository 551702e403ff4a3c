// Package deepgram provides a Deepgram-backed STT provider using the Deepgram
// pre-recorded REST API. It implements the stt.Transcriber interface.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrWong99/nexusvoice/pkg/provider/stt"
)

const (
	deepgramEndpoint = "https://api.deepgram.com/v1/listen"
	defaultModel     = "nova-2"
	defaultLanguage  = "en"
	defaultMimeType  = "audio/wav"

	// maxErrorBody bounds how much of an error response is kept for the
	// error message.
	maxErrorBody = 2 << 10
)

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model to use (e.g., "nova-2", "nova-3").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the fallback language code used when a call does not
// supply one.
func WithLanguage(language string) Option {
	return func(p *Provider) {
		p.language = language
	}
}

// WithEndpoint overrides the listen endpoint. Used in tests.
func WithEndpoint(endpoint string) Option {
	return func(p *Provider) {
		p.endpoint = endpoint
	}
}

// WithHTTPClient sets the HTTP client. The default has a 60s timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements stt.Transcriber backed by the Deepgram REST API.
type Provider struct {
	apiKey     string
	model      string
	language   string
	endpoint   string
	httpClient *http.Client
}

var _ stt.Transcriber = (*Provider)(nil)

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		model:      defaultModel,
		language:   defaultLanguage,
		endpoint:   deepgramEndpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe uploads audio to Deepgram and returns the parsed result.
func (p *Provider) Transcribe(ctx context.Context, audio []byte, opts stt.Options) (*stt.Result, error) {
	endpoint, err := p.buildURL(opts)
	if err != nil {
		return nil, fmt.Errorf("deepgram: build URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(audio))
	if err != nil {
		return nil, fmt.Errorf("deepgram: create request: %w", err)
	}
	mime := opts.MimeType
	if mime == "" {
		mime = defaultMimeType
	}
	req.Header.Set("Authorization", "Token "+p.apiKey)
	req.Header.Set("Content-Type", mime)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepgram: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("deepgram: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("deepgram: read response body: %w", err)
	}
	result, err := parseDeepgramResponse(data)
	if err != nil {
		return nil, fmt.Errorf("deepgram: parse response: %w", err)
	}
	return result, nil
}

// buildURL constructs the listen endpoint URL for the given options.
func (p *Provider) buildURL(opts stt.Options) (string, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return "", err
	}

	lang := opts.Language
	if lang == "" {
		lang = p.language
	}

	q := u.Query()
	q.Set("model", p.model)
	q.Set("language", lang)
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	if opts.Diarize {
		q.Set("diarize", "true")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// deepgramResponse is the JSON structure returned by the pre-recorded API.
type deepgramResponse struct {
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
	Results *struct {
		Channels []struct {
			DetectedLanguage string `json:"detected_language"`
			Alternatives     []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
				Words      []struct {
					Word       string  `json:"word"`
					Start      float64 `json:"start"`
					End        float64 `json:"end"`
					Confidence float64 `json:"confidence"`
					Speaker    *int    `json:"speaker"`
				} `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// parseDeepgramResponse converts a raw response body into an stt.Result. A
// body without a results object is an error; empty channel lists are not.
func parseDeepgramResponse(data []byte) (*stt.Result, error) {
	var resp deepgramResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return nil, errors.New("response has no results object")
	}

	out := &stt.Result{
		Duration: seconds(resp.Metadata.Duration),
		Channels: make([]stt.Channel, 0, len(resp.Results.Channels)),
	}
	for _, ch := range resp.Results.Channels {
		c := stt.Channel{DetectedLanguage: ch.DetectedLanguage}
		for _, alt := range ch.Alternatives {
			a := stt.Alternative{
				Transcript: alt.Transcript,
				Confidence: alt.Confidence,
				Words:      make([]stt.WordDetail, 0, len(alt.Words)),
			}
			for _, w := range alt.Words {
				speaker := -1
				if w.Speaker != nil {
					speaker = *w.Speaker
				}
				a.Words = append(a.Words, stt.WordDetail{
					Word:       w.Word,
					Start:      seconds(w.Start),
					End:        seconds(w.End),
					Confidence: w.Confidence,
					Speaker:    speaker,
				})
			}
			c.Alternatives = append(c.Alternatives, a)
		}
		out.Channels = append(out.Channels, c)
	}
	return out, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
