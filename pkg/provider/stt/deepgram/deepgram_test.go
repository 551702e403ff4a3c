package deepgram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/nexusvoice/pkg/provider/stt"
)

const sampleResponse = `{
	"metadata": {"duration": 2.5},
	"results": {
		"channels": [{
			"alternatives": [{
				"transcript": "hello there",
				"confidence": 0.97,
				"words": [
					{"word": "hello", "start": 0.1, "end": 0.5, "confidence": 0.99, "speaker": 0},
					{"word": "there", "start": 0.6, "end": 1.0, "confidence": 0.95, "speaker": 1}
				]
			}]
		}]
	}
}`

func TestBuildURL_Defaults(t *testing.T) {
	p, _ := New("key")
	raw, err := p.buildURL(stt.Options{})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}
	u, _ := url.Parse(raw)
	q := u.Query()
	if !strings.HasPrefix(raw, "https://api.deepgram.com/v1/listen") {
		t.Errorf("unexpected endpoint: %s", raw)
	}
	for k, want := range map[string]string{
		"model":        "nova-2",
		"language":     "en",
		"punctuate":    "true",
		"smart_format": "true",
	} {
		if got := q.Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	if q.Has("diarize") {
		t.Error("diarize should be absent unless requested")
	}
}

func TestBuildURL_OptionsOverride(t *testing.T) {
	p, _ := New("key", WithModel("nova-3"), WithLanguage("de"))
	raw, _ := p.buildURL(stt.Options{Language: "fr", Diarize: true})
	q, _ := url.ParseQuery(raw[strings.Index(raw, "?")+1:])
	if q.Get("model") != "nova-3" || q.Get("language") != "fr" || q.Get("diarize") != "true" {
		t.Errorf("query = %v", q)
	}
}

func TestParseDeepgramResponse(t *testing.T) {
	res, err := parseDeepgramResponse([]byte(sampleResponse))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.Duration != 2500*time.Millisecond {
		t.Errorf("duration = %v", res.Duration)
	}
	if len(res.Channels) != 1 || len(res.Channels[0].Alternatives) != 1 {
		t.Fatalf("shape = %+v", res)
	}
	alt := res.Channels[0].Alternatives[0]
	if alt.Transcript != "hello there" || alt.Confidence != 0.97 {
		t.Errorf("alt = %+v", alt)
	}
	if len(alt.Words) != 2 || alt.Words[1].Speaker != 1 {
		t.Errorf("words = %+v", alt.Words)
	}
}

func TestParseDeepgramResponse_MissingSpeaker(t *testing.T) {
	res, err := parseDeepgramResponse([]byte(`{"results":{"channels":[{"alternatives":[{"transcript":"x","words":[{"word":"x"}]}]}]}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := res.Channels[0].Alternatives[0].Words[0].Speaker; got != -1 {
		t.Errorf("speaker = %d, want -1", got)
	}
}

func TestParseDeepgramResponse_EmptyChannels(t *testing.T) {
	res, err := parseDeepgramResponse([]byte(`{"results":{"channels":[]}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(res.Channels) != 0 {
		t.Errorf("channels = %d, want 0", len(res.Channels))
	}
}

func TestParseDeepgramResponse_NoResults(t *testing.T) {
	if _, err := parseDeepgramResponse([]byte(`{"metadata":{}}`)); err == nil {
		t.Error("expected error for missing results")
	}
}

func TestParseDeepgramResponse_InvalidJSON(t *testing.T) {
	if _, err := parseDeepgramResponse([]byte(`{invalid`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestTranscribe_RoundTrip(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Token secret" {
			http.Error(w, `{"err_msg":"bad key"}`, http.StatusUnauthorized)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "audio/webm" {
			t.Errorf("content type = %q", ct)
		}
		if r.URL.Query().Get("language") != "es" {
			t.Errorf("language = %q", r.URL.Query().Get("language"))
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "RIFFDATA" {
			t.Errorf("body = %q", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, sampleResponse)
	}))
	t.Cleanup(srv.Close)

	p, _ := New("secret", WithEndpoint(srv.URL+"/v1/listen"))
	res, err := p.Transcribe(context.Background(), []byte("RIFFDATA"), stt.Options{Language: "es", MimeType: "audio/webm"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Channels[0].Alternatives[0].Transcript != "hello there" {
		t.Errorf("result = %+v", res)
	}
}

func TestTranscribe_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"err_msg":"Invalid credentials."}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	p, _ := New("wrong", WithEndpoint(srv.URL))
	_, err := p.Transcribe(context.Background(), []byte("x"), stt.Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "Invalid credentials") {
		t.Errorf("error = %v", err)
	}
}

func TestNew_EmptyAPIKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("expected error for empty API key")
	}
}
