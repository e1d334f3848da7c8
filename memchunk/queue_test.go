package memchunk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/audiocore/sink/memchunk"
)

func chunk(data string) memchunk.Memchunk {
	b := memchunk.NewMemblock([]byte(data))
	return memchunk.Memchunk{Memblock: b, Offset: 0, Length: len(data)}
}

func TestQueuePushPeekDrop(t *testing.T) {
	q := memchunk.NewQueue(1024)
	assert.NoError(t, q.Push(chunk("hello")))
	assert.NoError(t, q.Push(chunk("world")))
	assert.Equal(t, 10, q.Len())

	c, ok := q.Peek(3)
	assert.True(t, ok)
	assert.Equal(t, "hel", string(c.Slice()))

	q.Drop(3)
	assert.Equal(t, 7, q.Len())

	c, ok = q.Peek(10)
	assert.True(t, ok)
	assert.Equal(t, "loworld", string(c.Slice()))
}

func TestQueueDropAcrossChunkBoundary(t *testing.T) {
	q := memchunk.NewQueue(1024)
	assert.NoError(t, q.Push(chunk("ab")))
	assert.NoError(t, q.Push(chunk("cd")))
	q.Drop(3)
	c, ok := q.Peek(1)
	assert.True(t, ok)
	assert.Equal(t, "d", string(c.Slice()))
}

func TestQueueFull(t *testing.T) {
	q := memchunk.NewQueue(4)
	assert.NoError(t, q.Push(chunk("abcd")))
	assert.ErrorIs(t, q.Push(chunk("e")), memchunk.ErrQueueFull)
}

func TestQueuePeekEmpty(t *testing.T) {
	q := memchunk.NewQueue(4)
	_, ok := q.Peek(4)
	assert.False(t, ok)
}

func TestQueueDropTail(t *testing.T) {
	q := memchunk.NewQueue(1024)
	assert.NoError(t, q.Push(chunk("hello")))
	assert.NoError(t, q.Push(chunk("world")))

	q.DropTail(3)
	assert.Equal(t, 7, q.Len())

	c, ok := q.Peek(7)
	assert.True(t, ok)
	assert.Equal(t, "hellowo", string(c.Slice()))
}

func TestQueueDropTailAcrossChunkBoundary(t *testing.T) {
	q := memchunk.NewQueue(1024)
	assert.NoError(t, q.Push(chunk("ab")))
	assert.NoError(t, q.Push(chunk("cd")))

	q.DropTail(3)
	c, ok := q.Peek(1)
	assert.True(t, ok)
	assert.Equal(t, "a", string(c.Slice()))
}

func TestQueueDropTailMoreThanLen(t *testing.T) {
	q := memchunk.NewQueue(1024)
	assert.NoError(t, q.Push(chunk("ab")))
	q.DropTail(10)
	assert.Equal(t, 0, q.Len())
	_, ok := q.Peek(1)
	assert.False(t, ok)
}
