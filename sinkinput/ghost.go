package sinkinput

import (
	"sync"

	"github.com/audiocore/sink/cvolume"
	"github.com/audiocore/sink/memchunk"
)

// Ghost is the placeholder Input a sink installs in a departing
// input's slot during a buffered move: it has no producer of its own,
// it only drains whatever was buffered into its queue at move time.
type Ghost struct {
	mu      sync.Mutex
	index   uint32
	queue   *memchunk.Queue
	volume  cvolume.CVolume
	drained bool
}

// NewGhost returns a ghost standing in for the input at idx, draining
// queue at numChannels' worth of unity volume.
func NewGhost(idx uint32, queue *memchunk.Queue, numChannels int) *Ghost {
	return &Ghost{
		index:  idx,
		queue:  queue,
		volume: cvolume.NewIdentity(numChannels),
	}
}

// Index returns the slot the ghost occupies, the same index its
// departed input held.
func (g *Ghost) Index() uint32 { return g.index }

// Peek drains from the buffered queue. Once the queue empties, Peek
// returns ErrNoData permanently: a ghost never refills.
func (g *Ghost) Peek(length int) (memchunk.Memchunk, cvolume.CVolume, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.queue.Peek(length)
	if !ok {
		g.drained = true
		return memchunk.Memchunk{}, nil, ErrNoData
	}
	return c, g.volume, nil
}

// Drop advances the queue's read position.
func (g *Ghost) Drop(length int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queue.Drop(length)
	if g.queue.Len() == 0 {
		g.drained = true
	}
}

// Drained reports whether the ghost's buffer has been fully consumed,
// the condition under which the sink is free to remove it outright.
func (g *Ghost) Drained() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.drained || g.queue.Len() == 0
}

// ProcessRewind, UpdateMaxRewind, Kill, Attach, Detach and Suspend are
// all no-ops: a ghost has no upstream producer to rewind, resize or
// notify.
func (g *Ghost) ProcessRewind(int)   {}
func (g *Ghost) UpdateMaxRewind(int) {}
func (g *Ghost) Kill()               {}
func (g *Ghost) Attach()             {}
func (g *Ghost) Detach()             {}
func (g *Ghost) Suspend(bool)        {}

// RequestedLatency reports no preference: the ghost is transient and
// should never move the sink's negotiated latency.
func (g *Ghost) RequestedLatency() (int64, bool) { return 0, false }

// SyncPrev and SyncNext are always nil: a ghost never joins a sync
// group, matching the source input it stands in for (MoveInput
// refuses to move a synced input in the first place).
func (g *Ghost) SyncNext() Input { return nil }
func (g *Ghost) SyncPrev() Input { return nil }

var _ Input = (*Ghost)(nil)
