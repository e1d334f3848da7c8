package sink

import (
	"context"
	"errors"

	"github.com/audiocore/sink/corefacing"
	"github.com/audiocore/sink/sinkinput"
)

var (
	// ErrInvalidState is returned when a state transition makes no
	// sense from the sink's current state.
	ErrInvalidState = errors.New("sink: invalid state transition")
	// ErrDriverRejected is returned when the driver's SetState hook
	// refuses a transition.
	ErrDriverRejected = errors.New("sink: driver rejected state change")
	// ErrIOFailure is returned when a synchronous message to the IO
	// thread fails.
	ErrIOFailure = errors.New("sink: IO thread rejected message")
	// ErrAlreadyAttached is returned by AddInput for a duplicate index.
	ErrAlreadyAttached = errors.New("sink: input index already attached")
	// ErrNotAttached is returned by RemoveInput for an unknown index.
	ErrNotAttached = errors.New("sink: input index not attached")
	// ErrSyncPointersStillSet is returned when REMOVE_INPUT reaches
	// the IO thread for an input still linked into a sync group.
	ErrSyncPointersStillSet = errors.New("sink: input still has sync group pointers set")
)

// isOpenState reports whether buffers are live in this state: "open"
// means IDLE, RUNNING or SUSPENDED.
func isOpenState(s SinkState) bool {
	return s == StateIdle || s == StateRunning || s == StateSuspended
}

// setStateInternal performs the full state-change protocol: call the
// driver hook, send SET_STATE to the IO thread synchronously, only
// then commit the control-side state, and notify inputs on a
// suspend-boundary crossing.
func (s *Sink) setStateInternal(ctx context.Context, target SinkState) error {
	if target == s.state {
		return nil
	}
	suspendChange := isOpenState(s.state) && isOpenState(target) &&
		(s.state == StateSuspended) != (target == StateSuspended)

	if s.hooks.SetState != nil {
		if err := s.hooks.SetState(target); err != nil {
			return ErrDriverRejected
		}
	}

	if s.queue != nil {
		res := s.queue.send(&message{code: msgSetState, state: target})
		if !res.ok {
			return ErrIOFailure
		}
	} else {
		// No IO thread wired yet (construction-time transitions):
		// mutate thread_info directly, the same effect a round trip
		// through the queue would have.
		s.threadInfo.state = target
	}

	s.state = target

	if suspendChange {
		suspended := target == StateSuspended
		for _, idx := range s.order {
			if in, ok := s.inputs[idx]; ok {
				in.Suspend(suspended)
			}
		}
	}
	if target != StateUnlinked {
		_ = s.hookBus.Fire(ctx, corefacing.HookSinkStateChanged, s)
	}
	return nil
}

// SetState is the public entry point for an explicit state change
// request (e.g. a driver observing cork/uncork at the protocol
// layer). It rejects INIT as a target: a sink only reaches INIT via
// construction, never as an explicit transition.
func (s *Sink) SetState(ctx context.Context, target SinkState) error {
	if target == StateInit {
		return ErrInvalidState
	}
	return s.setStateInternal(ctx, target)
}

// UpdateStatus moves the sink between IDLE and RUNNING according to
// usedBy, leaving SUSPENDED alone.
func (s *Sink) UpdateStatus(ctx context.Context) error {
	if s.state == StateSuspended || s.state == StateInit || s.state == StateUnlinked {
		return nil
	}
	if s.usedBy() > 0 {
		return s.setStateInternal(ctx, StateRunning)
	}
	return s.setStateInternal(ctx, StateIdle)
}

// Suspend transitions the sink into or out of SUSPENDED. Leaving
// SUSPENDED restores RUNNING or IDLE according to usedBy.
func (s *Sink) Suspend(ctx context.Context, suspend bool) error {
	if suspend {
		return s.setStateInternal(ctx, StateSuspended)
	}
	if s.usedBy() > 0 {
		return s.setStateInternal(ctx, StateRunning)
	}
	return s.setStateInternal(ctx, StateIdle)
}

// LinkedBy returns the number of clients that constitute linkage for
// teardown purposes: attached inputs plus the monitor's own clients.
func (s *Sink) LinkedBy() int {
	n := len(s.inputs)
	if s.monitor != nil {
		n += s.monitor.LinkedBy()
	}
	return n
}

// usedBy returns the number of non-corked attached inputs. Monitor
// clients do not count — the load-bearing asymmetry with LinkedBy.
func (s *Sink) usedBy() int {
	return len(s.inputs) - s.nCorked
}

// UsedBy is the exported form of usedBy.
func (s *Sink) UsedBy() int {
	return s.usedBy()
}

// AddInput attaches input to the sink: registers it in the
// control-side set and sends a synchronous ADD_INPUT message so the
// IO thread picks it up for the next render.
func (s *Sink) AddInput(ctx context.Context, input sinkinput.Input) error {
	idx := input.Index()
	if _, ok := s.inputs[idx]; ok {
		return ErrAlreadyAttached
	}
	if s.inputs == nil {
		s.inputs = make(map[uint32]sinkinput.Input)
	}
	s.inputs[idx] = input
	s.order = append(s.order, idx)

	if s.queue != nil {
		res := s.queue.send(&message{code: msgAddInput, input: input})
		if !res.ok {
			return ErrIOFailure
		}
	} else {
		s.threadInfo.addInput(input)
	}
	return s.UpdateStatus(ctx)
}

// RemoveInput detaches input idx from the sink: sends a synchronous
// REMOVE_INPUT message and drops it from the control-side set. A
// client calls this directly when an input finishes or disconnects on
// its own, outside of a full sink teardown.
func (s *Sink) RemoveInput(ctx context.Context, idx uint32) error {
	input, ok := s.inputs[idx]
	if !ok {
		return ErrNotAttached
	}
	wasCorked := false
	if c, ok := input.(sinkinput.Corked); ok {
		wasCorked = c.Corked()
	}
	delete(s.inputs, idx)
	for i, v := range s.order {
		if v == idx {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if wasCorked && s.nCorked > 0 {
		s.nCorked--
	}

	if s.queue != nil {
		res := s.queue.send(&message{code: msgRemoveInput, input: input})
		if res.err != nil {
			return res.err
		}
		if !res.ok {
			return ErrIOFailure
		}
	} else {
		s.threadInfo.mu.Lock()
		err := s.threadInfo.removeInputLocked(input)
		s.threadInfo.mu.Unlock()
		if err != nil {
			return err
		}
	}
	return s.UpdateStatus(ctx)
}

// DetachIO tells the IO thread to detach every attached input and the
// monitor without touching the control-side set, the driver's way of
// pausing hardware delivery without tearing anything down.
func (s *Sink) DetachIO(ctx context.Context) error {
	if s.queue == nil {
		s.threadInfo.mu.Lock()
		s.threadInfo.detachAllLocked()
		s.threadInfo.mu.Unlock()
		return nil
	}
	res := s.queue.send(&message{code: msgDetach})
	if !res.ok {
		return ErrIOFailure
	}
	return nil
}

// AttachIO is the converse of DetachIO.
func (s *Sink) AttachIO(ctx context.Context) error {
	if s.queue == nil {
		s.threadInfo.mu.Lock()
		s.threadInfo.attachAllLocked()
		s.threadInfo.mu.Unlock()
		return nil
	}
	res := s.queue.send(&message{code: msgAttach})
	if !res.ok {
		return ErrIOFailure
	}
	return nil
}

// SetInputCorked records a cork-state change for an already-attached
// input, maintaining nCorked and re-running UpdateStatus.
func (s *Sink) SetInputCorked(ctx context.Context, idx uint32, corked bool) error {
	if _, ok := s.inputs[idx]; !ok {
		return ErrNotAttached
	}
	was := false
	if c, ok := s.inputs[idx].(sinkinput.Corked); ok {
		was = c.Corked()
	}
	if was == corked {
		return nil
	}
	if corked {
		s.nCorked++
	} else if s.nCorked > 0 {
		s.nCorked--
	}
	if s.nCorked > len(s.inputs) {
		s.nCorked = len(s.inputs)
	}
	return s.UpdateStatus(ctx)
}
