package render

import "time"

// mp3Format describes the Layer III frames of one payload. A frame whose
// side information and main data are all zero decodes to silence, so a
// pause is a run of headers followed by zero bytes.
type mp3Format struct {
	header     [4]byte // no CRC, no padding
	frameSize  int
	samples    int
	sampleRate int
}

// defaultFormat is ElevenLabs' mp3_44100_128 output: MPEG-1 Layer III,
// 128 kbit/s, 44.1 kHz, mono. Used when a payload has no readable header.
var defaultFormat = mp3Format{
	header:     [4]byte{0xFF, 0xFB, 0x90, 0xC0},
	frameSize:  417, // 144 * 128000 / 44100, rounded down
	samples:    1152,
	sampleRate: 44100,
}

// Layer III bitrates in kbit/s by bitrate index.
var (
	mpeg1Bitrates = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}
	mpeg2Bitrates = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0}
)

// Sample rates by version bits (0 = MPEG-2.5, 2 = MPEG-2, 3 = MPEG-1) and
// sample rate index.
var sampleRates = [4][3]int{
	0: {11025, 12000, 8000},
	2: {22050, 24000, 16000},
	3: {44100, 48000, 32000},
}

// parseFormat reads the first frame header of audio, skipping a leading
// ID3v2 tag. It reports false for anything but an MPEG Layer III frame.
func parseFormat(audio []byte) (mp3Format, bool) {
	off := 0
	if len(audio) >= 10 && string(audio[:3]) == "ID3" {
		size := int(audio[6]&0x7F)<<21 | int(audio[7]&0x7F)<<14 | int(audio[8]&0x7F)<<7 | int(audio[9]&0x7F)
		off = 10 + size
		if audio[5]&0x10 != 0 {
			off += 10
		}
	}
	if off+4 > len(audio) {
		return mp3Format{}, false
	}
	h := audio[off : off+4]
	if h[0] != 0xFF || h[1]&0xE0 != 0xE0 {
		return mp3Format{}, false
	}

	version := (h[1] >> 3) & 0x03
	layer := (h[1] >> 1) & 0x03
	brIdx := h[2] >> 4
	srIdx := (h[2] >> 2) & 0x03
	if version == 1 || layer != 1 || srIdx == 3 || brIdx == 0 || brIdx == 15 {
		return mp3Format{}, false
	}

	f := mp3Format{
		header:     [4]byte{0xFF, h[1] | 0x01, h[2] &^ 0x03, h[3]},
		sampleRate: sampleRates[version][srIdx],
	}
	if version == 3 {
		f.samples = 1152
		f.frameSize = 144 * mpeg1Bitrates[brIdx] * 1000 / f.sampleRate
	} else {
		f.samples = 576
		f.frameSize = 72 * mpeg2Bitrates[brIdx] * 1000 / f.sampleRate
	}
	return f, true
}

// frames returns the number of frames needed to cover d.
func (f mp3Format) frames(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	perFrame := int64(time.Second) * int64(f.samples)
	return int((int64(d)*int64(f.sampleRate) + perFrame - 1) / perFrame)
}

// silence returns at least d worth of silent frames in format f.
func (f mp3Format) silence(d time.Duration) []byte {
	n := f.frames(d)
	out := make([]byte, n*f.frameSize)
	for i := range n {
		copy(out[i*f.frameSize:], f.header[:])
	}
	return out
}
