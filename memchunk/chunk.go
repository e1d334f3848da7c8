// Package memchunk provides the reference-counted PCM buffer contract
// the sink core consumes. Real deployments back Memblock with a
// shared-memory allocator; this package supplies a concrete,
// pool-backed implementation good enough for drivers, tests and the
// in-tree mocks.
package memchunk

import "sync/atomic"

// Memblock is a reference-counted, possibly shared byte buffer.
// Unless IsWritable is true, callers must not mutate Bytes in place —
// clone via MakeWritable first.
type Memblock struct {
	data     []byte
	refs     int32
	writable bool
	pool     *Pool
}

// NewMemblock wraps data in a ref-counted block with a single
// reference. The block is not pooled and Unref simply drops it.
func NewMemblock(data []byte) *Memblock {
	return &Memblock{data: data, refs: 1, writable: true}
}

// Bytes returns the block's underlying storage. Do not retain beyond
// the reference you hold.
func (b *Memblock) Bytes() []byte {
	return b.data
}

// Ref increments the reference count and returns the same block, the
// idiom used whenever a chunk is handed to a second owner (mix-info
// entries, the monitor tap, a ghost input).
func (b *Memblock) Ref() *Memblock {
	atomic.AddInt32(&b.refs, 1)
	return b
}

// Unref decrements the reference count, returning the block to its
// pool (or discarding it) once it reaches zero. Calling Unref more
// times than the block was referenced is a programmer error.
func (b *Memblock) Unref() {
	if atomic.AddInt32(&b.refs, -1) == 0 {
		if b.pool != nil {
			b.pool.put(b)
		}
	}
}

// IsWritable reports whether this reference is safe to mutate.
func (b *Memblock) IsWritable() bool {
	return b.writable && atomic.LoadInt32(&b.refs) == 1
}

// Memchunk is a (memblock, offset, length) triple referring to a
// region of a ref-counted buffer.
type Memchunk struct {
	Memblock *Memblock
	Offset   int
	Length   int
}

// Ref returns a copy of the chunk with an additional reference taken
// on its underlying block.
func (c Memchunk) Ref() Memchunk {
	c.Memblock = c.Memblock.Ref()
	return c
}

// Release drops the chunk's reference on its underlying block.
func (c Memchunk) Release() {
	if c.Memblock != nil {
		c.Memblock.Unref()
	}
}

// Slice returns the byte region this chunk refers to.
func (c Memchunk) Slice() []byte {
	return c.Memblock.Bytes()[c.Offset : c.Offset+c.Length]
}

// IsSilence reports whether every byte in the chunk's region is zero.
// Used by fillMixInfo to drop known-silent inputs from the mix
// without allocating.
func (c Memchunk) IsSilence() bool {
	for _, b := range c.Slice() {
		if b != 0 {
			return false
		}
	}
	return true
}

// MakeWritable returns a chunk backed by a block this caller
// exclusively owns, cloning the data if necessary. This is the only
// path by which a shared chunk becomes mutable: blocks are
// reference-counted and immutable by default.
func MakeWritable(c Memchunk, pool *Pool) Memchunk {
	if c.Memblock.IsWritable() {
		return c
	}
	var nb *Memblock
	if pool != nil {
		nb = pool.Alloc(c.Length)
	} else {
		nb = NewMemblock(make([]byte, c.Length))
	}
	copy(nb.data, c.Slice())
	c.Memblock.Unref()
	return Memchunk{Memblock: nb, Offset: 0, Length: c.Length}
}
