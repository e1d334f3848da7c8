package sink

import (
	"context"
	"errors"

	"github.com/audiocore/sink/memchunk"
	"github.com/audiocore/sink/sinkinput"
)

// moveBufferBytes bounds how much already-rendered-but-unread audio a
// departing input's ghost carries across a move. The drain stops at
// this many bytes; anything past it stays unread on the departing
// input.
const moveBufferBytes = 1 << 18

// ErrSyncGroupMove is returned when MoveInput is asked to move an
// input that belongs to a sync group: sync group members move
// together or not at all.
var ErrSyncGroupMove = errors.New("sink: cannot move a synced input alone")

// MoveInput detaches input from the sink with buffering: a ghost
// takes its place in the mix so in-flight audio already accepted for
// this render cycle keeps playing out, while input itself is freed to
// attach to its destination sink. bufferBytes caps how much
// already-rendered-but-unread audio is drained into the ghost's queue;
// 0 or negative substitutes moveBufferBytes. The caller is responsible
// for calling AddInput(destination, input) once this returns; the move
// sequence is caller-orchestrated, the sink only guarantees its own
// half stays continuous.
func (s *Sink) MoveInput(ctx context.Context, idx uint32, bufferBytes int) error {
	input, ok := s.inputs[idx]
	if !ok {
		return ErrNotAttached
	}
	if input.SyncPrev() != nil || input.SyncNext() != nil {
		return ErrSyncGroupMove
	}
	if bufferBytes <= 0 {
		bufferBytes = moveBufferBytes
	}

	queue := memchunk.NewQueue(bufferBytes)
	ghost := sinkinput.NewGhost(idx, queue, s.sampleSpec.NumChannels)

	// idx keeps its existing slot in s.order: only the concrete Input
	// behind it changes identity, from the departing input to its
	// ghost.
	s.inputs[idx] = ghost

	if s.queue != nil {
		res := s.queue.send(&message{
			code: msgRemoveInputAndBuffer,
			move: moveInfo{input: input, ghost: ghost, queue: queue, bufferBytes: bufferBytes},
		})
		if !res.ok {
			return ErrIOFailure
		}
	} else {
		s.threadInfo.removeInputAndBufferLocked(moveInfo{input: input, ghost: ghost, queue: queue, bufferBytes: bufferBytes})
	}
	return s.UpdateStatus(ctx)
}

// FinishMove drops the ghost standing in for a moved input once its
// buffered audio has drained. A driver or the destination sink calls
// this after confirming the source side no longer needs continuity.
// While the ghost still holds buffered audio, FinishMove returns nil
// and leaves it attached; nothing else removes a drained ghost.
func (s *Sink) FinishMove(ctx context.Context, idx uint32) error {
	in, ok := s.inputs[idx]
	if !ok {
		return ErrNotAttached
	}
	if g, ok := in.(*sinkinput.Ghost); ok && !g.Drained() {
		return nil
	}
	return s.RemoveInput(ctx, idx)
}

// removeInputAndBufferLocked performs the IO-side half of a buffered
// move: it drains up to m.bufferBytes of whatever is still sitting in
// the departing input's render pipeline into queue, swaps ghost into
// the input's slot, and detaches the original.
func (ti *threadInfo) removeInputAndBufferLocked(m moveInfo) {
	idx := m.input.Index()
	if _, ok := ti.inputs[idx]; ok {
		remaining := m.bufferBytes
		for remaining > 0 {
			peekLen := 4096
			if remaining < peekLen {
				peekLen = remaining
			}
			chunk, vol, err := m.input.Peek(peekLen)
			if err != nil || chunk.Length == 0 {
				if chunk.Memblock != nil {
					chunk.Release()
				}
				break
			}
			if !vol.IsNorm() {
				chunk = memchunk.MakeWritable(chunk, ti.sink.pool)
				copy(chunk.Slice(), applyVolume(chunk.Slice(), vol))
			}
			if pushErr := m.queue.Push(chunk); pushErr != nil {
				chunk.Release()
				break
			}
			m.input.Drop(chunk.Length)
			remaining -= chunk.Length
		}
	}
	m.input.Detach()
	ti.inputs[idx] = m.ghost
	m.ghost.Attach()
	ti.invalidateRequestedLatencyLocked()
}
