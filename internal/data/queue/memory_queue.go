package queue

import (
	"context"
	"io"
	"sync"

	"github.com/gammazero/deque"
)

// MemoryQueue is an unbounded multi-producer multi-consumer FIFO. Enqueue
// never blocks; Dequeue blocks until an item arrives or the queue is closed
// and drained.
type MemoryQueue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  *deque.Deque[T]
	closed bool
}

func NewMemoryQueue[T any]() *MemoryQueue[T] {
	q := &MemoryQueue[T]{items: deque.New[T]()}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends item. It reports false when the queue is already closed.
func (q *MemoryQueue[T]) Enqueue(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items.PushBack(item)
	q.cond.Signal()
	return true
}

// Dequeue returns the oldest item. It returns io.EOF once the queue is closed
// and empty, or ctx.Err() if ctx ends first.
func (q *MemoryQueue[T]) Dequeue(ctx context.Context) (T, error) {
	var zero T
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for q.items.Len() == 0 {
		if q.closed {
			return zero, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		q.cond.Wait()
	}
	return q.items.PopFront(), nil
}

// Close stops new items from being accepted. Items already queued remain
// available to Dequeue.
func (q *MemoryQueue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	q.cond.Broadcast()
	return nil
}

func (q *MemoryQueue[T]) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}
