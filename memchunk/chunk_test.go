package memchunk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/audiocore/sink/memchunk"
)

func TestMemblockRefUnref(t *testing.T) {
	b := memchunk.NewMemblock([]byte{1, 2, 3, 4})
	assert.True(t, b.IsWritable())

	b.Ref()
	assert.False(t, b.IsWritable(), "a second reference makes the block non-exclusive")
	b.Unref()
	assert.True(t, b.IsWritable())
}

func TestMemchunkSliceAndRelease(t *testing.T) {
	b := memchunk.NewMemblock([]byte{0xAA, 0xBB, 0xCC, 0xDD})
	c := memchunk.Memchunk{Memblock: b, Offset: 1, Length: 2}
	assert.Equal(t, []byte{0xBB, 0xCC}, c.Slice())
	c.Release()
}

func TestIsSilence(t *testing.T) {
	zero := memchunk.Memchunk{Memblock: memchunk.NewMemblock([]byte{0, 0, 0, 0}), Length: 4}
	assert.True(t, zero.IsSilence())

	nonzero := memchunk.Memchunk{Memblock: memchunk.NewMemblock([]byte{0, 0, 1, 0}), Length: 4}
	assert.False(t, nonzero.IsSilence())
}

func TestMakeWritableClonesSharedBlock(t *testing.T) {
	pool := memchunk.New(4, 4096)
	b := pool.Alloc(4)
	copy(b.Bytes(), []byte{1, 2, 3, 4})
	shared := memchunk.Memchunk{Memblock: b.Ref(), Offset: 0, Length: 4}

	writable := memchunk.MakeWritable(shared, pool)
	assert.True(t, writable.Memblock.IsWritable())
	assert.Equal(t, []byte{1, 2, 3, 4}, writable.Slice())

	writable.Slice()[0] = 99
	assert.Equal(t, byte(1), b.Bytes()[0], "mutating the writable copy must not touch the original block")
}

func TestMakeWritableIsNoopWhenAlreadyExclusive(t *testing.T) {
	b := memchunk.NewMemblock([]byte{1, 2, 3, 4})
	c := memchunk.Memchunk{Memblock: b, Offset: 0, Length: 4}
	w := memchunk.MakeWritable(c, nil)
	assert.Same(t, b, w.Memblock)
}
