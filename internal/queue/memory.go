// Package queue provides the bounded in-memory work queue shared by the
// session workers.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashwatch/trendtap/internal/crawler"
)

// Memory is a bounded FIFO with blocking dequeue and drain detection.
//
// Drain accounting counts every enqueued item as outstanding until the
// consumer acknowledges it via Done. Once Seal has been called and the
// outstanding count reaches zero, the queue is drained and all blocked
// Dequeue calls return ok=false. Tracking outstanding rather than buffered
// items means an in-flight item can still be requeued after Seal.
type Memory struct {
	ch      chan crawler.WorkItem
	mu      sync.Mutex
	pending int
	sealed  bool
	drained chan struct{}
}

// NewMemory constructs a queue with the provided capacity.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 1
	}
	return &Memory{
		ch:      make(chan crawler.WorkItem, capacity),
		drained: make(chan struct{}),
	}
}

// Enqueue pushes an item into the queue or returns if the context ends.
func (q *Memory) Enqueue(ctx context.Context, item crawler.WorkItem) error {
	q.mu.Lock()
	if q.isDrainedLocked() {
		q.mu.Unlock()
		return fmt.Errorf("enqueue %q: queue already drained", item.Key)
	}
	q.pending++
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		q.forget()
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- item:
		return nil
	}
}

// Dequeue pops the next item, respecting context cancellation. ok is false
// once the queue has fully drained.
func (q *Memory) Dequeue(ctx context.Context) (crawler.WorkItem, bool, error) {
	select {
	case <-ctx.Done():
		return crawler.WorkItem{}, false, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case item := <-q.ch:
		return item, true, nil
	case <-q.drained:
		// A buffered item would still count as outstanding, so the
		// buffer is empty whenever drained is closed.
		return crawler.WorkItem{}, false, nil
	}
}

// Done acknowledges completion of a dequeued item. Every dequeued item must
// be acknowledged exactly once.
func (q *Memory) Done() {
	q.forget()
}

// Seal marks seeding complete. The queue drains once every outstanding item
// has been acknowledged.
func (q *Memory) Seal() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sealed = true
	q.maybeDrainLocked()
}

// Drained reports whether the queue is empty with no outstanding items.
func (q *Memory) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.isDrainedLocked()
}

func (q *Memory) forget() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending--
	q.maybeDrainLocked()
}

func (q *Memory) maybeDrainLocked() {
	if q.sealed && q.pending == 0 {
		select {
		case <-q.drained:
		default:
			close(q.drained)
		}
	}
}

func (q *Memory) isDrainedLocked() bool {
	select {
	case <-q.drained:
		return true
	default:
		return false
	}
}
