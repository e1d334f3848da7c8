package sink

import (
	"github.com/audiocore/sink/cvolume"
	"github.com/audiocore/sink/memchunk"
	"github.com/audiocore/sink/sinkinput"
)

// msgCode identifies a message's purpose.
type msgCode int

const (
	msgAddInput msgCode = iota
	msgRemoveInput
	msgRemoveInputAndBuffer
	msgSetState
	msgSetVolume
	msgSetMute
	msgGetVolume
	msgGetMute
	msgGetLatency
	msgGetRequestedLatency
	msgDetach
	msgAttach
)

// moveInfo is the payload of REMOVE_INPUT_AND_BUFFER: the departing
// input, the ghost input taking its place, and the queue that carries
// buffered-but-unread audio between them.
type moveInfo struct {
	input       sinkinput.Input
	ghost       sinkinput.Input
	queue       *memchunk.Queue
	bufferBytes int
}

// message is what flows over the sink's async queue. Only the fields
// relevant to msgCode are populated. destructor, when set, is invoked
// on the IO thread after the message is consumed — a payload plus a
// destructor closure applied by a single consumer.
type message struct {
	code       msgCode
	input      sinkinput.Input
	state      SinkState
	volume     cvolume.CVolume
	mute       bool
	move       moveInfo
	destructor func()

	// reply, when non-nil, makes this a synchronous send: the IO
	// thread writes its result here and the caller blocks on it.
	reply chan msgResult
}

// msgResult carries a synchronous message's outcome back to the
// control thread.
type msgResult struct {
	err    error
	volume cvolume.CVolume
	mute   bool
	usec   int64
	valid  bool
	ok     bool
}

// msgQueue is the asynchronous, multi-producer single-consumer
// channel a sink's control side uses to reach its IO thread. Sends are
// FIFO; there is no cross-queue ordering guarantee and none is needed
// since a sink owns exactly one queue.
type msgQueue struct {
	c      chan *message
	closed chan struct{}
}

func newMsgQueue() *msgQueue {
	return &msgQueue{
		c:      make(chan *message, 64),
		closed: make(chan struct{}),
	}
}

// NewMsgQueue returns a new async message queue for a driver to wire
// into a Sink via SetQueue before calling Put. The returned value's
// type is intentionally unexported: a driver only ever needs to carry
// it between NewMsgQueue and SetQueue, never to inspect it.
func NewMsgQueue() *msgQueue {
	return newMsgQueue()
}

// post enqueues msg without waiting for it to be processed.
func (q *msgQueue) post(msg *message) {
	select {
	case q.c <- msg:
	case <-q.closed:
	}
}

// send enqueues msg and blocks until the IO thread has processed it,
// returning its result. If the queue has been shut down, send returns
// a zero result with ok == false, which callers treat as failure.
func (q *msgQueue) send(msg *message) msgResult {
	msg.reply = make(chan msgResult, 1)
	select {
	case q.c <- msg:
	case <-q.closed:
		return msgResult{}
	}
	select {
	case res := <-msg.reply:
		return res
	case <-q.closed:
		return msgResult{}
	}
}

// shutdown stops accepting new messages. In-flight sends unblock with
// a failure result.
func (q *msgQueue) shutdown() {
	close(q.closed)
}
