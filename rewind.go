package sink

import "context"

// requestChunkRewindLocked merges a rewind request into the
// thread_info's pending window and forwards it to the driver. A
// nbytes of 0 is a sentinel for "as much as possible", substituted
// with the sink's current max rewind; any request above that is
// clamped down to it. The window only grows between renders, "latched
// until consumed" rather than a direct command the driver must act on
// immediately.
func (ti *threadInfo) requestChunkRewindLocked(nbytes int) {
	if nbytes <= 0 {
		nbytes = ti.maxRewind
	}
	if nbytes > ti.maxRewind {
		nbytes = ti.maxRewind
	}
	if nbytes > ti.rewindNBytes {
		ti.rewindNBytes = nbytes
	}
	if ti.sink.hooks.RequestRewind != nil {
		ti.sink.hooks.RequestRewind(ti.rewindNBytes)
	}
}

// RequestRewind asks the sink to invalidate nbytes of already-rendered
// history on its next render pass. Called by an input (or the driver
// itself) when upstream data before the current read position has
// changed.
func (s *Sink) RequestRewind(nbytes int) {
	s.threadInfo.mu.Lock()
	defer s.threadInfo.mu.Unlock()
	s.threadInfo.requestChunkRewindLocked(nbytes)
}

// SetMaxRewind updates the sink-wide maximum rewindable window and
// propagates it to every attached input so each can size its own
// history buffer accordingly.
func (s *Sink) SetMaxRewind(ctx context.Context, nbytes int) {
	s.threadInfo.mu.Lock()
	s.threadInfo.maxRewind = nbytes
	s.threadInfo.mu.Unlock()
	for _, in := range s.threadInfo.snapshotInputs() {
		in.UpdateMaxRewind(nbytes)
	}
	s.monitor.UpdateMaxRewind(nbytes)
}

// consumeRewindLocked drains and clears the pending rewind window,
// invalidating that many bytes of history on every attached input
// before a render pass begins. It returns the number of bytes that
// were invalidated.
func (ti *threadInfo) consumeRewindLocked() int {
	n := ti.rewindNBytes
	ti.rewindNBytes = 0
	if n == 0 {
		return 0
	}
	for _, idx := range ti.order {
		if in, ok := ti.inputs[idx]; ok {
			in.ProcessRewind(n)
		}
	}
	ti.sink.monitor.ProcessRewind(n)
	return n
}

// ProcessRewind is the driver-facing entry point for invalidating
// nbytes of already-rendered output: it merges nbytes into the
// pending window and immediately drains it against every attached
// input, matching the direct (non-message) calling convention render
// operations use.
func (s *Sink) ProcessRewind(nbytes int) {
	s.threadInfo.mu.Lock()
	defer s.threadInfo.mu.Unlock()
	s.threadInfo.requestChunkRewindLocked(nbytes)
	s.threadInfo.consumeRewindLocked()
}

// Latency returns the sink's current output latency in microseconds:
// the driver's own hook if set, otherwise a round trip through the IO
// thread's GET_LATENCY message.
func (s *Sink) Latency(ctx context.Context) (int64, error) {
	if s.hooks.GetLatency != nil {
		return s.hooks.GetLatency()
	}
	if s.queue != nil {
		res := s.queue.send(&message{code: msgGetLatency})
		if !res.ok {
			return 0, ErrIOFailure
		}
		return res.usec, nil
	}
	s.threadInfo.mu.Lock()
	defer s.threadInfo.mu.Unlock()
	return s.threadInfo.driverLatencyLocked(), nil
}

// invalidateRequestedLatencyLocked marks the cached requested latency
// stale; the next RequestedLatency call recomputes it from the
// attached inputs.
func (ti *threadInfo) invalidateRequestedLatencyLocked() {
	ti.requestedLatencyValid = false
	if ti.sink.hooks.UpdateRequestedLatency != nil {
		ti.sink.hooks.UpdateRequestedLatency(0, false)
	}
}

// requestedLatencyLocked returns the sink's effective requested
// latency: the minimum of every attached input's own request (the
// tightest constraint wins), clamped to [minLatency, maxLatency]. An
// empty input set or an input set with no preference leaves the
// latency unset.
func (ti *threadInfo) requestedLatencyLocked() (int64, bool) {
	if ti.requestedLatencyValid {
		return ti.requestedLatency, true
	}
	var result int64
	found := false
	for _, idx := range ti.order {
		in, ok := ti.inputs[idx]
		if !ok {
			continue
		}
		usec, valid := in.RequestedLatency()
		if !valid {
			continue
		}
		if !found || usec < result {
			result = usec
			found = true
		}
	}
	if !found {
		ti.requestedLatencyValid = false
		return 0, false
	}
	if ti.sink.maxLatency > 0 && result > ti.sink.maxLatency {
		result = ti.sink.maxLatency
	}
	if ti.sink.minLatency > 0 && result < ti.sink.minLatency {
		result = ti.sink.minLatency
	}
	ti.requestedLatency = result
	ti.requestedLatencyValid = true
	return result, true
}

// RequestedLatency returns the sink's current effective requested
// latency in microseconds, computed synchronously against the
// attached input set rather than going through the message queue — a
// driver calls it from the IO thread alongside render.
func (s *Sink) RequestedLatency() (int64, bool) {
	s.threadInfo.mu.Lock()
	defer s.threadInfo.mu.Unlock()
	return s.threadInfo.requestedLatencyLocked()
}

// InvalidateRequestedLatency forces the next RequestedLatency call to
// recompute from scratch. A driver or input calls this after a change
// that could move the effective value.
func (s *Sink) InvalidateRequestedLatency() {
	s.threadInfo.mu.Lock()
	defer s.threadInfo.mu.Unlock()
	s.threadInfo.invalidateRequestedLatencyLocked()
}
