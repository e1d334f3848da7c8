package sink

import (
	"context"
	"sync"

	"github.com/audiocore/sink/cvolume"
	"github.com/audiocore/sink/sinkinput"
)

// threadInfo is the IO-thread-visible view of a sink. A real-time
// audio thread would own every field here with no lock needed; this
// lets a driver run its poll loop (Render/Skip/ProcessRewind/...) and
// its message dispatch (the goroutine started by Sink.Run) as two
// separate goroutines rather than forcing one physical OS thread to
// interleave both, so a mutex stands in for "one real thread, no
// concurrent writers" — the single-writer discipline still holds
// logically, the lock only makes it safe under Go's more liberal
// scheduling.
type threadInfo struct {
	mu sync.Mutex

	sink *Sink

	inputs map[uint32]sinkinput.Input
	order  []uint32

	softVolume cvolume.CVolume
	softMuted  bool

	state SinkState

	rewindNBytes int
	maxRewind    int

	requestedLatencyValid bool
	requestedLatency      int64
}

func newThreadInfo(s *Sink) *threadInfo {
	return &threadInfo{
		sink:       s,
		inputs:     make(map[uint32]sinkinput.Input),
		softVolume: s.volume.Clone(),
		softMuted:  s.muted,
		state:      StateInit,
	}
}

// Run starts the sink's IO-thread message loop: it drains the async
// queue and dispatches each message to processMessage until ctx is
// cancelled or the queue is shut down. A driver calls Run once it has
// wired the queue; render/skip/process_rewind are called directly by
// the driver from the same logical IO thread, outside this loop.
func (s *Sink) Run(ctx context.Context) {
	if s.queue == nil {
		return
	}
	defer s.queue.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.queue.c:
			if !ok {
				return
			}
			res := s.threadInfo.processMessage(msg)
			if msg.reply != nil {
				msg.reply <- res
			}
			if msg.destructor != nil {
				msg.destructor()
			}
		}
	}
}

func (ti *threadInfo) processMessage(msg *message) msgResult {
	ti.mu.Lock()
	defer ti.mu.Unlock()

	switch msg.code {
	case msgAddInput:
		ti.addInputLocked(msg.input)
		return msgResult{ok: true}
	case msgRemoveInput:
		if err := ti.removeInputLocked(msg.input); err != nil {
			return msgResult{ok: false, err: err}
		}
		return msgResult{ok: true}
	case msgRemoveInputAndBuffer:
		ti.removeInputAndBufferLocked(msg.move)
		return msgResult{ok: true}
	case msgSetState:
		ti.state = msg.state
		return msgResult{ok: true}
	case msgSetVolume:
		ti.softVolume = msg.volume
		ti.requestChunkRewindLocked(0)
		return msgResult{ok: true}
	case msgSetMute:
		ti.softMuted = msg.mute
		ti.requestChunkRewindLocked(0)
		return msgResult{ok: true}
	case msgGetVolume:
		return msgResult{ok: true, volume: ti.softVolume.Clone()}
	case msgGetMute:
		return msgResult{ok: true, mute: ti.softMuted}
	case msgGetLatency:
		return msgResult{ok: true, usec: ti.driverLatencyLocked()}
	case msgGetRequestedLatency:
		usec, valid := ti.requestedLatencyLocked()
		return msgResult{ok: true, usec: usec, valid: valid}
	case msgDetach:
		ti.detachAllLocked()
		return msgResult{ok: true}
	case msgAttach:
		ti.attachAllLocked()
		return msgResult{ok: true}
	default:
		return msgResult{ok: false}
	}
}

func (ti *threadInfo) driverLatencyLocked() int64 {
	return 0
}

func (ti *threadInfo) addInput(input sinkinput.Input) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.addInputLocked(input)
}

func (ti *threadInfo) addInputLocked(input sinkinput.Input) {
	idx := input.Index()
	ti.inputs[idx] = input
	ti.order = append(ti.order, idx)

	input.UpdateMaxRewind(ti.maxRewind)
	input.Attach()

	ti.invalidateRequestedLatencyLocked()

	// Marking ignore_rewind/since_underrun on the input is a concern of
	// the concrete Input implementation; the sink side is limited to
	// requesting the 0-byte sentinel rewind.
	ti.requestChunkRewindLocked(0)
}

// removeInputLocked returns ErrSyncPointersStillSet rather than
// repatching a sync group around the departing input: the control
// side is required to have already unlinked input from its sync group
// before REMOVE_INPUT is sent. A departing input still linked into a
// sync group is treated as a hard error rather than silently repatched.
func (ti *threadInfo) removeInputLocked(input sinkinput.Input) error {
	if input == nil {
		return nil
	}
	idx := input.Index()
	if _, ok := ti.inputs[idx]; !ok {
		return nil
	}
	if input.SyncPrev() != nil || input.SyncNext() != nil {
		return ErrSyncPointersStillSet
	}
	input.Detach()
	delete(ti.inputs, idx)
	for i, v := range ti.order {
		if v == idx {
			ti.order = append(ti.order[:i], ti.order[i+1:]...)
			break
		}
	}
	ti.invalidateRequestedLatencyLocked()
	ti.requestChunkRewindLocked(0)
	return nil
}

func (ti *threadInfo) detachAllLocked() {
	for _, idx := range ti.order {
		if in, ok := ti.inputs[idx]; ok {
			in.Detach()
		}
	}
	ti.sink.monitor.detach()
}

func (ti *threadInfo) attachAllLocked() {
	for _, idx := range ti.order {
		if in, ok := ti.inputs[idx]; ok {
			in.Attach()
		}
	}
	ti.sink.monitor.attach()
}

// snapshotInputs returns a stable-ordered copy of the attached input
// list, so a caller iterating it outside ti.mu (SetMaxRewind) does not
// observe later mutation of ti.inputs.
func (ti *threadInfo) snapshotInputs() []sinkinput.Input {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	out := make([]sinkinput.Input, 0, len(ti.order))
	for _, idx := range ti.order {
		if in, ok := ti.inputs[idx]; ok {
			out = append(out, in)
		}
	}
	return out
}
