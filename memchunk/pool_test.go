package memchunk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/audiocore/sink/memchunk"
)

func TestPoolAllocZeroesReusedBlock(t *testing.T) {
	pool := memchunk.New(4, 4096)

	b1 := pool.Alloc(4)
	copy(b1.Bytes(), []byte{9, 9, 9, 9})
	b1.Unref()

	b2 := pool.Alloc(4)
	assert.Equal(t, []byte{0, 0, 0, 0}, b2.Bytes(), "a reused block must come back zeroed")
}

func TestPoolAllocMismatchedSizeIsNotPooled(t *testing.T) {
	pool := memchunk.New(4, 4096)
	b := pool.Alloc(8)
	assert.Len(t, b.Bytes(), 8)
	b.Unref() // size mismatch: pool.put silently drops it, never panics
}

func TestPoolMaxBlockSize(t *testing.T) {
	pool := memchunk.New(4, 65536)
	assert.Equal(t, 65536, pool.MaxBlockSize())
}
