package sinkinput_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/audiocore/sink/memchunk"
	"github.com/audiocore/sink/sinkinput"
)

func TestFakePeekDrop(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := sinkinput.NewFake(1, 2, []byte{1, 2, 3, 4, 5, 6})
	c, vol, err := f.Peek(4)
	assert.NoError(t, err)
	assert.True(t, vol.IsNorm())
	assert.Equal(t, []byte{1, 2, 3, 4}, c.Slice())

	f.Drop(4)
	c, _, err = f.Peek(4)
	assert.NoError(t, err)
	assert.Equal(t, []byte{5, 6}, c.Slice())

	f.Drop(2)
	_, _, err = f.Peek(4)
	assert.ErrorIs(t, err, sinkinput.ErrNoData)

	assert.Equal(t, 3, f.PeekCount)
	assert.Equal(t, 2, f.DropCount)
}

func TestFakeErrorOnPeek(t *testing.T) {
	f := sinkinput.NewFake(1, 2, []byte{1, 2})
	want := sinkinput.ErrNoData
	f.ErrorOnPeek = want
	_, _, err := f.Peek(2)
	assert.ErrorIs(t, err, want)
}

func TestFakeLifecycleCounters(t *testing.T) {
	f := sinkinput.NewFake(1, 1, nil)
	f.Kill()
	f.Attach()
	f.Attach()
	f.Detach()
	f.Suspend(true)
	f.Suspend(false)
	f.ProcessRewind(128)
	f.UpdateMaxRewind(4096)

	assert.Equal(t, 1, f.KillCount)
	assert.Equal(t, 2, f.AttachCount)
	assert.Equal(t, 1, f.DetachCount)
	assert.Equal(t, []bool{true, false}, f.SuspendCalls)
	assert.Equal(t, 1, f.RewindCount)
}

func TestFakeCorked(t *testing.T) {
	f := sinkinput.NewFake(1, 1, nil)
	assert.False(t, f.Corked())
	f.SetCorked(true)
	assert.True(t, f.Corked())
}

func TestFakeSyncLinkage(t *testing.T) {
	a := sinkinput.NewFake(1, 1, nil)
	b := sinkinput.NewFake(2, 1, nil)
	assert.Nil(t, a.SyncNext())
	assert.Nil(t, b.SyncPrev())

	a.SetSync(b)
	assert.Same(t, sinkinput.Input(b), a.SyncNext())
	assert.Same(t, sinkinput.Input(a), b.SyncPrev())
}

func TestFakeRequestedLatency(t *testing.T) {
	f := sinkinput.NewFake(1, 1, nil)
	usec, ok := f.RequestedLatency()
	assert.False(t, ok)
	assert.Equal(t, int64(0), usec)

	f.ReqLatencyUsec = 20000
	f.ReqLatencyOK = true
	usec, ok = f.RequestedLatency()
	assert.True(t, ok)
	assert.Equal(t, int64(20000), usec)
}

func TestGhostDrainsThenReturnsNoData(t *testing.T) {
	q := memchunk.NewQueue(1024)
	assert.NoError(t, q.Push(memchunk.Memchunk{Memblock: memchunk.NewMemblock([]byte{1, 2, 3, 4}), Length: 4}))

	g := sinkinput.NewGhost(7, q, 2)
	assert.Equal(t, uint32(7), g.Index())
	assert.False(t, g.Drained())

	c, vol, err := g.Peek(4)
	assert.NoError(t, err)
	assert.True(t, vol.IsNorm())
	assert.Equal(t, []byte{1, 2, 3, 4}, c.Slice())

	g.Drop(4)
	assert.True(t, g.Drained())

	_, _, err = g.Peek(4)
	assert.ErrorIs(t, err, sinkinput.ErrNoData)
}

func TestGhostNoSyncGroupAndNoopLifecycle(t *testing.T) {
	q := memchunk.NewQueue(64)
	g := sinkinput.NewGhost(1, q, 1)
	assert.Nil(t, g.SyncPrev())
	assert.Nil(t, g.SyncNext())

	usec, ok := g.RequestedLatency()
	assert.Equal(t, int64(0), usec)
	assert.False(t, ok)

	// must not panic
	g.Kill()
	g.Attach()
	g.Detach()
	g.Suspend(true)
	g.ProcessRewind(10)
	g.UpdateMaxRewind(10)
}

func TestGhostDrainedOnEmptyQueueFromStart(t *testing.T) {
	q := memchunk.NewQueue(64)
	g := sinkinput.NewGhost(1, q, 1)
	assert.True(t, g.Drained())
}
