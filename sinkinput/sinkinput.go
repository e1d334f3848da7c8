// Package sinkinput defines the contract a sink expects from its
// upstream streams, along with the sync-group linkage and the
// move-with-buffering ghost input.
package sinkinput

import (
	"errors"

	"github.com/audiocore/sink/cvolume"
	"github.com/audiocore/sink/memchunk"
)

// ErrNoData is returned by Peek to mean "no data; skip this render",
// a normal, non-fatal condition.
var ErrNoData = errors.New("sinkinput: no data")

// Input is the contract a sink input implements. Index is a dense,
// sink-scoped key used by thread_info's input map.
type Input interface {
	Index() uint32

	// Peek returns up to length bytes of already-rendered PCM plus
	// the per-channel volume to apply to it. Returning ErrNoData
	// means "skip this render", not a fatal error.
	Peek(length int) (memchunk.Memchunk, cvolume.CVolume, error)
	// Drop advances the input's read position by length bytes,
	// releasing whatever Peek returned for that span.
	Drop(length int)

	// ProcessRewind invalidates length bytes of this input's
	// already-rendered history.
	ProcessRewind(length int)
	// UpdateMaxRewind informs the input of the sink's current
	// maximum rewindable window.
	UpdateMaxRewind(length int)

	// Kill tells the input its sink is going away: a terminal
	// notification, not a request. The sink itself removes the input
	// from its attached set; Kill only gives the input a chance to
	// release upstream resources or wake a blocked producer.
	Kill()

	// Attach/Detach/Suspend are optional lifecycle notifications; a
	// no-op implementation is a valid Input.
	Attach()
	Detach()
	Suspend(bool)

	// RequestedLatency is the input's desired sink latency in
	// microseconds, or (0, false) if unset.
	RequestedLatency() (int64, bool)

	// Sync group linkage. Inputs in the same sync group must render
	// at identical offsets and cannot be individually moved.
	SyncPrev() Input
	SyncNext() Input
}

// Corked reports cork state for inputs that support it; used by
// used_by accounting.
type Corked interface {
	Corked() bool
}
