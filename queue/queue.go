// Package queue implements the bounded producer/consumer transport
// collaborator spec.md §5 and §6.3 name as sitting on top of the codec:
// a producer pushes Go values, a consumer pops them back out, the codec
// in between staying completely oblivious to how the bytes travel.
//
// The ring of pending messages and its two counting semaphores (one
// counting free slots, one counting filled ones) are grounded on the
// teacher's internal/pool byte-buffer/slice pools: same "fixed capacity,
// reused storage, no per-item allocation once warmed up" shape, just
// guarding queue slots instead of scratch buffers. Buffered channels play
// the counting-semaphore role directly, the common Go substitute for the
// semaphore spec.md's concurrency model describes.
package queue

import (
	"context"
	"sync"

	"github.com/arloliu/objectwire/config"
	"github.com/arloliu/objectwire/errs"
	"github.com/arloliu/objectwire/reader"
	"github.com/arloliu/objectwire/writer"
)

// Queue is a fixed-capacity ring of encoded messages. One Queue may have
// any number of concurrent Push and Pop callers; the two semaphore
// channels and the mutex guarding the ring together make that safe, but
// each message is consumed by exactly one Pop call, same as an
// unbuffered pipe.
type Queue struct {
	cfg *config.Configuration

	ringMu sync.Mutex
	ring   [][]byte
	head   int
	tail   int

	freeSlots chan struct{} // one token per empty ring slot
	filled    chan struct{} // one token per ring slot holding a message

	// wMu/rMu each guard one non-concurrency-safe codec value (Writer and
	// Reader are single-use-per-stream, not safe for concurrent Encode/
	// Decode calls), letting Push and Pop still run concurrently with
	// each other.
	wMu sync.Mutex
	w   *writer.Writer
	rMu sync.Mutex
	r   *reader.Reader

	closeOnce sync.Once
	closed    chan struct{}
}

// New returns a Queue with room for capacity pending messages, encoding
// and decoding through cfg (which may be nil to use defaults). capacity
// below 1 is treated as 1.
func New(cfg *config.Configuration, capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}

	q := &Queue{
		cfg:       cfg,
		ring:      make([][]byte, capacity),
		freeSlots: make(chan struct{}, capacity),
		filled:    make(chan struct{}, capacity),
		w:         writer.New(cfg),
		r:         reader.New(cfg),
		closed:    make(chan struct{}),
	}
	for i := 0; i < capacity; i++ {
		q.freeSlots <- struct{}{}
	}

	return q
}

// Push encodes v and enqueues its wire bytes, blocking until a slot is
// free, ctx is done, or the queue is closed.
func (q *Queue) Push(ctx context.Context, v any) error {
	select {
	case <-q.closed:
		return errs.ErrQueueClosed
	default:
	}

	select {
	case <-q.freeSlots:
	case <-q.closed:
		return errs.ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	q.wMu.Lock()
	data, err := q.w.Encode(v)
	q.wMu.Unlock()
	if err != nil {
		q.freeSlots <- struct{}{} // give the slot back, nothing was enqueued

		return err
	}

	q.ringMu.Lock()
	q.ring[q.tail] = data
	q.tail = (q.tail + 1) % len(q.ring)
	q.ringMu.Unlock()

	select {
	case q.filled <- struct{}{}:
		return nil
	case <-q.closed:
		return errs.ErrQueueClosed
	}
}

// Pop dequeues the next message and decodes it into target, blocking
// until a message arrives, ctx is done, or Close is called. A Pop racing
// Close may return errs.ErrQueueClosed even with messages still pending;
// callers that need every enqueued message delivered should stop calling
// Push and let the consumer drain the queue before calling Close.
func (q *Queue) Pop(ctx context.Context, target any) error {
	select {
	case <-q.filled:
	case <-q.closed:
		return errs.ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	q.ringMu.Lock()
	data := q.ring[q.head]
	q.ring[q.head] = nil
	q.head = (q.head + 1) % len(q.ring)
	q.ringMu.Unlock()

	q.freeSlots <- struct{}{}

	q.rMu.Lock()
	defer q.rMu.Unlock()

	return q.r.Decode(data, target)
}

// Close wakes every blocked Push and Pop with errs.ErrQueueClosed. Safe
// to call more than once; only the first call has effect.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.closed) })
}
