package memchunk

import "errors"

// ErrQueueFull is returned by Push once the queue has reached its
// configured byte capacity. A move-with-buffering drain halts on the
// first such failure rather than growing the queue further.
var ErrQueueFull = errors.New("memchunk: queue full")

// Queue is a simple FIFO of chunks bounded by total byte length, the
// "memblockq" the move-with-buffering protocol drains a departing
// input into and a ghost input later drains from.
type Queue struct {
	maxBytes int
	length   int
	chunks   []Memchunk
}

// NewQueue returns an empty queue with capacity maxBytes.
func NewQueue(maxBytes int) *Queue {
	return &Queue{maxBytes: maxBytes}
}

// Push appends chunk to the tail, failing once the queue is full.
func (q *Queue) Push(c Memchunk) error {
	if q.length+c.Length > q.maxBytes {
		return ErrQueueFull
	}
	q.chunks = append(q.chunks, c)
	q.length += c.Length
	return nil
}

// Len returns the total buffered bytes.
func (q *Queue) Len() int {
	return q.length
}

// Peek returns up to length bytes from the head of the queue without
// removing them. A span that fits in the head chunk is returned as that
// chunk; a longer span is copied across chunk boundaries into a fresh
// block.
func (q *Queue) Peek(length int) (Memchunk, bool) {
	if len(q.chunks) == 0 {
		return Memchunk{}, false
	}
	head := q.chunks[0]
	if head.Length >= length || len(q.chunks) == 1 {
		if head.Length > length {
			head.Length = length
		}
		return head, true
	}
	if length > q.length {
		length = q.length
	}
	data := make([]byte, 0, length)
	for _, c := range q.chunks {
		if len(data) >= length {
			break
		}
		s := c.Slice()
		if n := length - len(data); len(s) > n {
			s = s[:n]
		}
		data = append(data, s...)
	}
	return Memchunk{Memblock: NewMemblock(data), Offset: 0, Length: len(data)}, true
}

// DropTail discards up to length bytes from the tail of the queue,
// most recent first, releasing any chunk reference that becomes fully
// consumed. It is the rewind counterpart to Drop: a rewind invalidates
// data not yet read by a consumer, which sits at the tail rather than
// the head.
func (q *Queue) DropTail(length int) {
	for length > 0 && len(q.chunks) > 0 {
		tail := &q.chunks[len(q.chunks)-1]
		if tail.Length <= length {
			length -= tail.Length
			q.length -= tail.Length
			tail.Release()
			q.chunks = q.chunks[:len(q.chunks)-1]
		} else {
			tail.Length -= length
			q.length -= length
			length = 0
		}
	}
}

// Drop removes length bytes from the head of the queue, releasing any
// chunk reference that becomes fully consumed.
func (q *Queue) Drop(length int) {
	for length > 0 && len(q.chunks) > 0 {
		head := &q.chunks[0]
		if head.Length <= length {
			length -= head.Length
			q.length -= head.Length
			head.Release()
			q.chunks = q.chunks[1:]
		} else {
			head.Offset += length
			head.Length -= length
			q.length -= length
			length = 0
		}
	}
}
