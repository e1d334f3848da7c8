package sinkinput

import (
	"sync"

	"github.com/audiocore/sink/cvolume"
	"github.com/audiocore/sink/memchunk"
)

// Fake is a configurable Input used by sink tests and by anything
// driving a Sink outside of a real audio driver. Its data comes from
// a plain byte slice rather than a live producer; Peek/Drop walk that
// slice the way a real input would walk its own memblockq.
//
// Fake is not safe for concurrent use by more than one goroutine at a
// time, matching the single-IO-thread assumption every Input
// implementation is allowed to make.
type Fake struct {
	mu sync.Mutex

	index  uint32
	Volume cvolume.CVolume
	Data   []byte

	ErrorOnPeek error

	corked    bool
	maxRewind int

	PeekCount    int
	DropCount    int
	KillCount    int
	RewindCount  int
	AttachCount  int
	DetachCount  int
	SuspendCalls []bool

	ReqLatencyUsec int64
	ReqLatencyOK   bool

	syncPrev, syncNext Input
}

// NewFake returns a Fake occupying index, carrying data at unity
// volume for numChannels.
func NewFake(index uint32, numChannels int, data []byte) *Fake {
	return &Fake{
		index:  index,
		Volume: cvolume.NewIdentity(numChannels),
		Data:   data,
	}
}

// Index returns the input's sink-scoped slot.
func (f *Fake) Index() uint32 { return f.index }

// Peek returns up to length bytes from the front of Data.
func (f *Fake) Peek(length int) (memchunk.Memchunk, cvolume.CVolume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PeekCount++
	if f.ErrorOnPeek != nil {
		return memchunk.Memchunk{}, nil, f.ErrorOnPeek
	}
	if len(f.Data) == 0 {
		return memchunk.Memchunk{}, nil, ErrNoData
	}
	if length > len(f.Data) {
		length = len(f.Data)
	}
	block := memchunk.NewMemblock(f.Data[:length])
	return memchunk.Memchunk{Memblock: block, Offset: 0, Length: length}, f.Volume.Clone(), nil
}

// Drop advances past length bytes already returned by Peek.
func (f *Fake) Drop(length int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DropCount++
	if length > len(f.Data) {
		length = len(f.Data)
	}
	f.Data = f.Data[length:]
}

// ProcessRewind records the call; Fake has no history to actually
// restore since it is backed by a flat, already-known buffer.
func (f *Fake) ProcessRewind(length int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RewindCount++
}

// UpdateMaxRewind records the sink's current rewind window.
func (f *Fake) UpdateMaxRewind(length int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maxRewind = length
}

// MaxRewind returns the most recently recorded UpdateMaxRewind value.
func (f *Fake) MaxRewind() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxRewind
}

// Kill records that the sink notified this input of teardown.
func (f *Fake) Kill() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.KillCount++
}

// Attach records an ATTACH notification.
func (f *Fake) Attach() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AttachCount++
}

// Detach records a DETACH notification.
func (f *Fake) Detach() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DetachCount++
}

// Suspend records a suspend-state change.
func (f *Fake) Suspend(suspended bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SuspendCalls = append(f.SuspendCalls, suspended)
}

// RequestedLatency returns the configured ReqLatencyUsec/ReqLatencyOK.
func (f *Fake) RequestedLatency() (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ReqLatencyUsec, f.ReqLatencyOK
}

// SetCorked sets the cork flag Corked reports.
func (f *Fake) SetCorked(c bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.corked = c
}

// Corked implements sinkinput.Corked.
func (f *Fake) Corked() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.corked
}

// SetSync links f and next as adjacent members of a sync group.
func (f *Fake) SetSync(next *Fake) {
	f.syncNext = next
	if next != nil {
		next.syncPrev = f
	}
}

// SyncPrev returns the preceding sync group member, if any.
func (f *Fake) SyncPrev() Input { return f.syncPrev }

// SyncNext returns the following sync group member, if any.
func (f *Fake) SyncNext() Input { return f.syncNext }

var _ Input = (*Fake)(nil)
var _ Corked = (*Fake)(nil)
