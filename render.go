package sink

import (
	"github.com/audiocore/sink/cvolume"
	"github.com/audiocore/sink/memchunk"
	"github.com/audiocore/sink/mixer"
	"github.com/audiocore/sink/sinkinput"
)

// mixInfo is one input's contribution to a single render pass: the
// chunk it produced for this call and the per-channel volume to apply
// when mixing it.
type mixInfo struct {
	input sinkinput.Input
	chunk memchunk.Memchunk
	vol   cvolume.CVolume
}

// defaultRenderLength is the render target used when a caller asks
// for an unspecified amount of audio, the same role a page-sized
// default buffer plays for an allocating render call.
const defaultRenderLength = 4096

// fillMixInfo peeks up to length bytes from every attached input,
// dropping any that returned ErrNoData, any that were silent and any
// past the mixer's input cap. The returned slice never holds more than
// mixer.MaxInputs entries. The caller must Release every chunk once
// done mixing.
func (ti *threadInfo) fillMixInfo(length int) []mixInfo {
	var infos []mixInfo
	for _, idx := range ti.order {
		if len(infos) >= mixer.MaxInputs {
			break
		}
		in, ok := ti.inputs[idx]
		if !ok {
			continue
		}
		if c, ok := in.(sinkinput.Corked); ok && c.Corked() {
			continue
		}
		chunk, vol, err := in.Peek(length)
		if err != nil {
			continue
		}
		if chunk.Length == 0 {
			chunk.Release()
			continue
		}
		if chunk.IsSilence() {
			chunk.Release()
			continue
		}
		infos = append(infos, mixInfo{input: in, chunk: chunk, vol: vol})
	}
	return infos
}

// inputsDropLocked advances every mixed input past the bytes actually
// consumed this render, and releases the chunk references fillMixInfo
// took out.
func inputsDropLocked(infos []mixInfo, length int) {
	for _, mi := range infos {
		mi.input.Drop(length)
		mi.chunk.Release()
	}
}

// RenderInto fills buf with up to len(buf) bytes of mixed post-volume
// PCM and returns the number of bytes written. It consumes any
// pending rewind request before mixing, so history invalidated since
// the previous render never reaches this pass.
//
//   - 0 attached inputs: writes silence and returns len(buf).
//   - 1 attached input at unity soft volume and not soft-muted: copies
//     its chunk with its own volume applied, skipping the mixer.
//   - 2+ attached inputs (up to mixer.MaxInputs), or 1 input under a
//     non-unity soft volume or soft mute: mixes through mixer.Mix.
func (s *Sink) RenderInto(buf []byte) int {
	ti := s.threadInfo
	ti.mu.Lock()
	defer ti.mu.Unlock()

	ti.consumeRewindLocked()

	length := len(buf)
	if max := s.pool.MaxBlockSize(); max > 0 && length > max {
		length = s.sampleSpec.FrameAlign(max)
		buf = buf[:length]
	}

	// A sink not currently RUNNING contributes no mixed audio even
	// with inputs attached: IDLE/SUSPENDED render silence.
	var infos []mixInfo
	if ti.state == StateRunning {
		infos = ti.fillMixInfo(length)
	}
	consumed := 0
	defer func() { inputsDropLocked(infos, consumed) }()

	n := renderMixToBuf(s, ti, infos, buf[:length])
	consumed = n
	s.pushMonitor(buf[:n])
	return n
}

// renderMixToBuf writes infos' mixed contribution (or silence, for no
// inputs) into buf and returns the number of bytes written. It never
// touches infos' or buf's ownership beyond reading/writing bytes, so
// both RenderInto (which must always copy into a caller-owned buffer)
// and Render's allocating fallback share it.
func renderMixToBuf(s *Sink, ti *threadInfo, infos []mixInfo, buf []byte) int {
	if len(infos) == 0 {
		for i := range buf {
			buf[i] = 0
		}
		return len(buf)
	}

	if len(infos) == 1 && ti.softVolume.IsNorm() && !ti.softMuted {
		mi := infos[0]
		if !mi.vol.IsNorm() {
			s.log.Debugf("sink %d (%s): adjusting volume of single input %d", s.index, s.tag, mi.input.Index())
		}
		return copy(buf, applyVolume(mi.chunk.Slice(), mi.vol))
	}

	mixInputs := make([]mixer.Input, len(infos))
	for i, mi := range infos {
		mixInputs[i] = mixer.Input{Samples: mi.chunk.Slice(), Volume: mi.vol}
	}
	return mixer.Mix(mixInputs, s.sampleSpec.NumChannels, ti.softVolume, ti.softMuted, buf)
}

// pushMonitor forwards a rendered span to the monitor tap, skipping
// the copy entirely when nobody is listening.
func (s *Sink) pushMonitor(buf []byte) {
	if !s.monitor.HasConsumers() {
		return
	}
	s.monitor.push(monitorChunk(buf))
}

// monitorChunk copies buf into a block the monitor tap owns
// independently of the caller's render buffer, since a caller is free
// to reuse or overwrite buf immediately after RenderInto returns.
func monitorChunk(buf []byte) memchunk.Memchunk {
	cp := make([]byte, len(buf))
	copy(cp, buf)
	return memchunk.Memchunk{Memblock: memchunk.NewMemblock(cp), Offset: 0, Length: len(cp)}
}

// applyVolume scales a single-input PCM buffer by vol in place on a
// fresh copy, used on the single-input fast path where mixer.Mix would
// otherwise be doing unnecessary summation work over one operand.
func applyVolume(pcm []byte, vol cvolume.CVolume) []byte {
	out := make([]byte, len(pcm))
	copy(out, pcm)
	if vol.IsNorm() {
		return out
	}
	numChannels := len(vol)
	if numChannels == 0 {
		return out
	}
	samples := len(out) / 2
	for s := 0; s < samples; s++ {
		ch := s % numChannels
		gain := vol.Factor(ch)
		v := int16(uint16(out[s*2]) | uint16(out[s*2+1])<<8)
		scaled := float64(v) * gain
		if scaled > 32767 {
			scaled = 32767
		}
		if scaled < -32768 {
			scaled = -32768
		}
		clipped := int16(scaled)
		out[s*2] = byte(clipped)
		out[s*2+1] = byte(clipped >> 8)
	}
	return out
}

// Render returns a Memchunk of up to length bytes (or defaultRenderLength
// frame-aligned down if length is unset, clamped to the sink's pool's
// maximum block size) carrying the same content RenderInto would
// produce. Two cases are satisfied by reference, with no copy at all:
//
//   - 0 attached inputs (or a sink not currently RUNNING): a reference
//     to the sink's cached silence block, when that block covers
//     length; a longer request gets a freshly allocated zeroed block.
//   - exactly 1 attached input, at unity soft volume and input volume
//     and unmuted: the input's own chunk, handed off directly.
//
// Any other case (2+ inputs, or a volume adjustment that must be
// applied) allocates from the pool and mixes into it, same as
// RenderInto.
func (s *Sink) Render(length int) memchunk.Memchunk {
	if length <= 0 {
		length = s.sampleSpec.FrameAlign(defaultRenderLength)
	}
	if max := s.pool.MaxBlockSize(); max > 0 && length > max {
		length = s.sampleSpec.FrameAlign(max)
	}

	ti := s.threadInfo
	ti.mu.Lock()
	ti.consumeRewindLocked()

	var infos []mixInfo
	if ti.state == StateRunning {
		infos = ti.fillMixInfo(length)
	}

	if len(infos) == 0 {
		ti.mu.Unlock()
		return s.silenceChunk(length)
	}

	if len(infos) == 1 && ti.softVolume.IsNorm() && !ti.softMuted && infos[0].vol.IsNorm() {
		mi := infos[0]
		n := mi.chunk.Length
		if n > length {
			n = length
		}
		mi.input.Drop(n)
		ti.mu.Unlock()
		out := mi.chunk
		out.Length = n
		s.pushMonitor(out.Slice())
		return out
	}

	block := s.pool.Alloc(length)
	n := renderMixToBuf(s, ti, infos, block.Bytes())
	inputsDropLocked(infos, n)
	ti.mu.Unlock()
	s.pushMonitor(block.Bytes()[:n])
	return memchunk.Memchunk{Memblock: block, Offset: 0, Length: n}
}

// silenceChunk returns length bytes of silence: a reference against the
// sink's cached silence block when it's large enough to cover length,
// or a fresh zeroed allocation otherwise.
func (s *Sink) silenceChunk(length int) memchunk.Memchunk {
	var out memchunk.Memchunk
	if length <= s.silence.Length {
		out = s.silence.Ref()
		out.Length = length
	} else {
		out = memchunk.Memchunk{Memblock: s.pool.Alloc(length), Offset: 0, Length: length}
	}
	s.pushMonitor(out.Slice())
	return out
}

// RenderIntoFull fills the whole of buf by repeatedly calling
// RenderInto until buf is exhausted. Each underlying call is
// independently subject to the pool's maximum
// block size, so RenderIntoFull may perform more than one render pass
// for a single long buffer.
func (s *Sink) RenderIntoFull(buf []byte) {
	off := 0
	for off < len(buf) {
		n := s.RenderInto(buf[off:])
		if n == 0 {
			break
		}
		off += n
	}
}

// RenderFull is the allocating counterpart of RenderIntoFull: it
// returns a single Memchunk of exactly length bytes. It tries Render's
// single pass for the whole length first; only when that pass returns
// fewer than length bytes (an input's buffered chunk ran out partway)
// does it copy the partial result into a freshly allocated block and
// fill the remainder via RenderIntoFull.
func (s *Sink) RenderFull(length int) memchunk.Memchunk {
	length = s.sampleSpec.FrameAlign(length)
	if length == 0 {
		return memchunk.Memchunk{Memblock: memchunk.NewMemblock(make([]byte, 0)), Offset: 0, Length: 0}
	}

	first := s.Render(length)
	if first.Length >= length {
		return first
	}

	block := memchunk.NewMemblock(make([]byte, length))
	n := copy(block.Bytes(), first.Slice())
	first.Release()
	if n < length {
		s.RenderIntoFull(block.Bytes()[n:])
	}
	return memchunk.Memchunk{Memblock: block, Offset: 0, Length: length}
}

// Skip advances every attached input by length bytes without mixing,
// the driver's way of discarding audio it already knows it won't use
// (e.g. a hardware buffer underrun recovery). If the monitor currently
// has consumers, Skip mixes anyway so the monitor tap stays continuous.
func (s *Sink) Skip(length int) {
	length = s.sampleSpec.FrameAlign(length)
	if s.monitor.HasConsumers() {
		buf := make([]byte, length)
		s.RenderIntoFull(buf)
		return
	}
	ti := s.threadInfo
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.consumeRewindLocked()
	for _, idx := range ti.order {
		if in, ok := ti.inputs[idx]; ok {
			in.Drop(length)
		}
	}
}
