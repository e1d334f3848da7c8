// Package mixer implements the weighted-sum PCM mixing primitive used
// by a sink's render path. It is a synchronous, stateless call: given
// already-peeked chunks and their volumes it produces one mixed
// buffer.
//
// Modeled on a frame-accumulating mixer that sums per-input frames
// channel-by-sample, but adapted to sum synchronously across chunks
// already collected by the caller and apply PCM saturation instead of
// an average, matching the semantics a real audio mixer needs.
package mixer

import (
	"math"

	"github.com/audiocore/sink/cvolume"
)

// MaxInputs is the mix input cap: at most this many streams are mixed
// per render call.
const MaxInputs = 32

// Input is one stream's contribution to a mix: its PCM bytes (signed
// 16-bit little-endian, interleaved by channel) and its per-stream
// volume.
type Input struct {
	Samples []byte
	Volume  cvolume.CVolume
}

// Mix sums len(inputs) (at most MaxInputs) S16LE interleaved buffers,
// applying each input's own volume and a global (soft) volume and
// mute, and writes the saturated result into out. All buffers must be
// the same length; out must be at least that length. Mix returns the
// number of bytes written.
//
// The sink's render path calls Mix for 2 or more inputs, and for a
// single input when the soft volume is not unity or soft mute is on;
// Mix does not special-case the input count, it simply sums whatever
// it is given.
func Mix(inputs []Input, numChannels int, soft cvolume.CVolume, softMuted bool, out []byte) int {
	if len(inputs) > MaxInputs {
		inputs = inputs[:MaxInputs]
	}
	length := len(out)
	for _, in := range inputs {
		if len(in.Samples) < length {
			length = len(in.Samples)
		}
	}
	if softMuted || length == 0 {
		for i := 0; i < length; i++ {
			out[i] = 0
		}
		return length
	}

	const bytesPerSample = 2
	samples := length / bytesPerSample
	for s := 0; s < samples; s++ {
		ch := s % numChannels
		softGain := soft.Factor(ch)
		var sum float64
		for _, in := range inputs {
			v := int16(uint16(in.Samples[s*2]) | uint16(in.Samples[s*2+1])<<8)
			gain := in.Volume.Factor(ch) * softGain
			sum += float64(v) * gain
		}
		clipped := clip16(sum)
		out[s*2] = byte(clipped)
		out[s*2+1] = byte(clipped >> 8)
	}
	return samples * bytesPerSample
}

func clip16(v float64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
