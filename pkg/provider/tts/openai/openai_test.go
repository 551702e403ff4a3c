package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSynthesize_SendsSpeechRequest(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/speech") {
			http.NotFound(w, r)
			return
		}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &got)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3mp3"))
	}))
	defer srv.Close()

	p, err := New("sk-test", WithBaseURL(srv.URL), WithModel("tts-1-hd"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	audio, err := p.Synthesize(context.Background(), "Hello", "nova")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !bytes.Equal(audio, []byte("ID3mp3")) {
		t.Errorf("audio = %q", audio)
	}
	if got["input"] != "Hello" || got["voice"] != "nova" || got["model"] != "tts-1-hd" || got["response_format"] != "mp3" {
		t.Errorf("request body = %v", got)
	}
}

func TestSynthesize_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad voice"}}`))
	}))
	defer srv.Close()

	p, _ := New("sk-test", WithBaseURL(srv.URL))
	if _, err := p.Synthesize(context.Background(), "Hello", "bogus"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSynthesize_EmptyVoice(t *testing.T) {
	p, _ := New("sk-test")
	if _, err := p.Synthesize(context.Background(), "Hello", ""); err == nil {
		t.Fatal("expected error for empty voice")
	}
}

func TestListVoices(t *testing.T) {
	p, _ := New("sk-test")
	voices, err := p.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(voices) != len(builtinVoices) || voices[0].Provider != "openai" {
		t.Errorf("voices = %+v", voices)
	}
}

func TestNew_MissingAPIKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty API key")
	}
}
