// Package dispatch implements an unbounded multi-producer, single-consumer
// queue with cloneable senders.
//
// Design:
//   - Send never blocks (items are appended to a growable slice)
//   - Recv blocks on a sync.Cond until an item arrives or every sender is closed
//   - The receiver observes "closed" only after all senders are released AND
//     the queue is drained, so items in flight at shutdown are still delivered
package dispatch

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrDisconnected is returned by Send when the receiver has gone away or the
// sender itself was already released.
var ErrDisconnected = errors.New("dispatch: channel disconnected")

type queue[T any] struct {
	mu             sync.Mutex
	cond           *sync.Cond
	items          []T
	senders        int
	receiverClosed bool
}

// Sender is one producer handle. Clone it once per producer; Close it when
// the producer is done.
type Sender[T any] struct {
	q      *queue[T]
	closed atomic.Bool
}

// Receiver is the single consumer handle.
type Receiver[T any] struct {
	q *queue[T]
}

// New creates a queue with one live sender.
func New[T any]() (*Sender[T], *Receiver[T]) {
	q := &queue[T]{senders: 1}
	q.cond = sync.NewCond(&q.mu)
	return &Sender[T]{q: q}, &Receiver[T]{q: q}
}

// Clone returns a new sender attached to the same queue. Cloning a released
// sender returns a released sender.
func (s *Sender[T]) Clone() *Sender[T] {
	clone := &Sender[T]{q: s.q}
	if s.closed.Load() {
		clone.closed.Store(true)
		return clone
	}

	s.q.mu.Lock()
	s.q.senders++
	s.q.mu.Unlock()

	return clone
}

// Send enqueues v without blocking.
func (s *Sender[T]) Send(v T) error {
	if s.closed.Load() {
		return ErrDisconnected
	}

	s.q.mu.Lock()
	defer s.q.mu.Unlock()

	if s.q.receiverClosed {
		return ErrDisconnected
	}

	s.q.items = append(s.q.items, v)
	s.q.cond.Signal()

	return nil
}

// Close releases this sender. Idempotent.
func (s *Sender[T]) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}

	s.q.mu.Lock()
	s.q.senders--
	if s.q.senders == 0 {
		// Wake the receiver so it can observe end-of-stream.
		s.q.cond.Broadcast()
	}
	s.q.mu.Unlock()
}

// Recv blocks until an item is available. ok is false once every sender has
// been closed and the queue is empty.
func (r *Receiver[T]) Recv() (v T, ok bool) {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()

	for len(r.q.items) == 0 {
		if r.q.senders == 0 || r.q.receiverClosed {
			return v, false
		}
		r.q.cond.Wait()
	}

	v = r.q.items[0]
	var zero T
	r.q.items[0] = zero
	r.q.items = r.q.items[1:]
	if len(r.q.items) == 0 {
		r.q.items = nil
	}

	return v, true
}

// Close drops every pending item; later sends fail with ErrDisconnected.
func (r *Receiver[T]) Close() {
	r.q.mu.Lock()
	r.q.receiverClosed = true
	r.q.items = nil
	r.q.cond.Broadcast()
	r.q.mu.Unlock()
}

// Len returns the number of queued items.
func (r *Receiver[T]) Len() int {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	return len(r.q.items)
}
