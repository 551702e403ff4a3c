package render

import (
	"bytes"
	"testing"
	"time"
)

func TestFrames(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{-time.Second, 0},
		{time.Millisecond, 1},
		{26 * time.Millisecond, 1},
		{27 * time.Millisecond, 2},
		{100 * time.Millisecond, 4},
		{time.Second, 39},
	}
	for _, tt := range tests {
		if got := defaultFormat.frames(tt.d); got != tt.want {
			t.Errorf("frames(%v) = %d, want %d", tt.d, got, tt.want)
		}
	}
}

func TestSilence_FrameLayout(t *testing.T) {
	f := defaultFormat
	out := f.silence(60 * time.Millisecond)
	if len(out)%f.frameSize != 0 {
		t.Fatalf("len = %d, not a multiple of %d", len(out), f.frameSize)
	}
	for off := 0; off < len(out); off += f.frameSize {
		frame := out[off : off+f.frameSize]
		if !bytes.Equal(frame[:4], f.header[:]) {
			t.Errorf("frame at %d header = % x", off, frame[:4])
		}
		if !bytes.Equal(frame[4:], make([]byte, f.frameSize-4)) {
			t.Errorf("frame at %d has non-zero body", off)
		}
	}
	if len(f.silence(0)) != 0 {
		t.Error("zero pause produced bytes")
	}
}

func TestParseFormat(t *testing.T) {
	id3 := append([]byte("ID3\x04\x00\x00\x00\x00\x00\x05"), make([]byte, 5)...)

	tests := []struct {
		name       string
		audio      []byte
		ok         bool
		header     [4]byte
		frameSize  int
		samples    int
		sampleRate int
	}{
		{
			name:  "mpeg1 44.1k 128k mono",
			audio: []byte{0xFF, 0xFB, 0x90, 0xC0},
			ok:    true, header: [4]byte{0xFF, 0xFB, 0x90, 0xC0},
			frameSize: 417, samples: 1152, sampleRate: 44100,
		},
		{
			name:  "mpeg2 24k 64k mono",
			audio: []byte{0xFF, 0xF3, 0x84, 0xC0},
			ok:    true, header: [4]byte{0xFF, 0xF3, 0x84, 0xC0},
			frameSize: 192, samples: 576, sampleRate: 24000,
		},
		{
			name:  "crc and padding are dropped",
			audio: []byte{0xFF, 0xFA, 0x92, 0x44},
			ok:    true, header: [4]byte{0xFF, 0xFB, 0x90, 0x44},
			frameSize: 417, samples: 1152, sampleRate: 44100,
		},
		{
			name:  "after id3 tag",
			audio: append(append([]byte{}, id3...), 0xFF, 0xFB, 0xB0, 0x00),
			ok:    true, header: [4]byte{0xFF, 0xFB, 0xB0, 0x00},
			frameSize: 626, samples: 1152, sampleRate: 44100,
		},
		{name: "not audio", audio: []byte("<voice|text>")},
		{name: "layer ii", audio: []byte{0xFF, 0xFD, 0x90, 0xC0}},
		{name: "free bitrate", audio: []byte{0xFF, 0xFB, 0x00, 0xC0}},
		{name: "truncated tag", audio: id3[:12]},
		{name: "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := parseFormat(tt.audio)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if f.header != tt.header {
				t.Errorf("header = % x, want % x", f.header, tt.header)
			}
			if f.frameSize != tt.frameSize || f.samples != tt.samples || f.sampleRate != tt.sampleRate {
				t.Errorf("format = %d bytes, %d samples, %d Hz", f.frameSize, f.samples, f.sampleRate)
			}
		})
	}
}
