package sink

import (
	"errors"
	"fmt"

	"github.com/go-audio/audio"
)

// SampleFormat identifies the PCM sample encoding.
type SampleFormat int

const (
	// SampleFormatInvalid is the zero value; it never appears on a
	// constructed Sink.
	SampleFormatInvalid SampleFormat = iota
	// SampleFormatU8 is unsigned 8-bit PCM.
	SampleFormatU8
	// SampleFormatS16LE is signed 16-bit little-endian PCM.
	SampleFormatS16LE
	// SampleFormatS24LE is signed 24-bit little-endian PCM, packed in 3 bytes.
	SampleFormatS24LE
	// SampleFormatS32LE is signed 32-bit little-endian PCM.
	SampleFormatS32LE
	// SampleFormatFloat32LE is 32-bit little-endian float PCM.
	SampleFormatFloat32LE
)

// BytesPerSample returns the frame size contribution of one channel's
// sample in this format.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case SampleFormatU8:
		return 1
	case SampleFormatS16LE:
		return 2
	case SampleFormatS24LE:
		return 3
	case SampleFormatS32LE, SampleFormatFloat32LE:
		return 4
	default:
		return 0
	}
}

func (f SampleFormat) String() string {
	switch f {
	case SampleFormatU8:
		return "u8"
	case SampleFormatS16LE:
		return "s16le"
	case SampleFormatS24LE:
		return "s24le"
	case SampleFormatS32LE:
		return "s32le"
	case SampleFormatFloat32LE:
		return "float32le"
	default:
		return "invalid"
	}
}

// SampleSpec describes a sink's immutable wire format: encoding, rate
// and channel count. Rate and channel count are carried in an
// embedded audio.Format, matching the way upstream PCM buffers already
// describe themselves.
type SampleSpec struct {
	Encoding SampleFormat
	audio.Format
}

// Valid reports whether s is usable: a known format, a positive
// sample rate and at least one channel.
func (s SampleSpec) Valid() bool {
	return s.Encoding != SampleFormatInvalid && s.SampleRate > 0 && s.NumChannels > 0
}

// FrameSize is the number of bytes occupied by one sample across all
// channels. Render/Skip lengths must be multiples of it.
func (s SampleSpec) FrameSize() int {
	return s.Encoding.BytesPerSample() * s.NumChannels
}

// FrameAlign rounds length down to the nearest multiple of FrameSize,
// so a render or skip length never splits a frame across calls.
func (s SampleSpec) FrameAlign(length int) int {
	fs := s.FrameSize()
	if fs <= 0 {
		return length
	}
	return (length / fs) * fs
}

// ErrInvalidSampleSpec is returned when a sink is constructed with an
// unusable sample spec.
var ErrInvalidSampleSpec = errors.New("sink: invalid sample spec")

// ChannelPosition identifies the speaker position of one channel.
type ChannelPosition int

// Channel position constants, enough to round-trip the common cases;
// drivers may define further positions out of band.
const (
	ChannelMono ChannelPosition = iota
	ChannelFrontLeft
	ChannelFrontRight
	ChannelFrontCenter
	ChannelRearLeft
	ChannelRearRight
	ChannelLFE
)

// ChannelMap assigns a speaker position to each channel. Its length
// must always agree with the owning sink's channel count.
type ChannelMap []ChannelPosition

// DefaultChannelMap derives a conventional map for n channels: mono,
// stereo, or front-left, front-right, front-center, LFE, rear-left and
// rear-right for anything wider; channels past the sixth take
// ChannelPosition(i) for their index i.
func DefaultChannelMap(n int) ChannelMap {
	switch n {
	case 1:
		return ChannelMap{ChannelMono}
	case 2:
		return ChannelMap{ChannelFrontLeft, ChannelFrontRight}
	default:
		m := make(ChannelMap, n)
		stock := []ChannelPosition{ChannelFrontLeft, ChannelFrontRight, ChannelFrontCenter, ChannelLFE, ChannelRearLeft, ChannelRearRight}
		for i := range m {
			if i < len(stock) {
				m[i] = stock[i]
			} else {
				m[i] = ChannelPosition(i)
			}
		}
		return m
	}
}

// Valid reports whether the map's length agrees with the given
// channel count.
func (m ChannelMap) Valid(channels int) bool {
	return len(m) == channels
}

func validateSpecAndMap(spec SampleSpec, channelMap ChannelMap) (ChannelMap, error) {
	if !spec.Valid() {
		return nil, ErrInvalidSampleSpec
	}
	if channelMap == nil {
		channelMap = DefaultChannelMap(spec.NumChannels)
	}
	if !channelMap.Valid(spec.NumChannels) {
		return nil, fmt.Errorf("sink: channel map has %d channels, sample spec has %d", len(channelMap), spec.NumChannels)
	}
	return channelMap, nil
}
