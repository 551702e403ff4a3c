package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/nexusvoice/pkg/provider/tts"
	ttsmock "github.com/MrWong99/nexusvoice/pkg/provider/tts/mock"
)

type synthOnly struct{}

func (synthOnly) Synthesize(context.Context, string, string) ([]byte, error) {
	return []byte("x"), nil
}

func TestTTSBreaker_PassesThrough(t *testing.T) {
	inner := &ttsmock.Synthesizer{Audio: []byte("ID3")}
	b := NewTTSBreaker(inner, CircuitBreakerConfig{Name: "elevenlabs"})

	audio, err := b.Synthesize(context.Background(), "Hello", "voice-1")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "ID3" {
		t.Errorf("audio = %q", audio)
	}
	if c := inner.Calls()[0]; c.Text != "Hello" || c.VoiceID != "voice-1" {
		t.Errorf("call = %+v", c)
	}
	if b.Name() != "elevenlabs" || b.State() != StateClosed {
		t.Errorf("name=%q state=%v", b.Name(), b.State())
	}
}

func TestTTSBreaker_OpensAndFailsFast(t *testing.T) {
	inner := &ttsmock.Synthesizer{Err: errors.New("503")}
	b := NewTTSBreaker(inner, CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour})

	for range 2 {
		_, _ = b.Synthesize(context.Background(), "a", "v")
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
	if _, err := b.Synthesize(context.Background(), "a", "v"); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if inner.CallCount() != 2 {
		t.Errorf("inner called %d times, want 2", inner.CallCount())
	}
}

func TestTTSBreaker_ListVoices(t *testing.T) {
	inner := &ttsmock.Synthesizer{ListVoicesResult: []tts.VoiceProfile{{ID: "v1"}}}
	b := NewTTSBreaker(inner, CircuitBreakerConfig{})

	voices, err := b.ListVoices(context.Background())
	if err != nil || len(voices) != 1 {
		t.Fatalf("ListVoices = %v, %v", voices, err)
	}

	if _, err := NewTTSBreaker(synthOnly{}, CircuitBreakerConfig{}).ListVoices(context.Background()); err == nil {
		t.Error("expected error for synthesizer without voice listing")
	}
}
