package orchestration

import (
	"context"
	"sync"
	"sync/atomic"
)

// OverflowPolicy decides what happens to a send once the channel is full.
type OverflowPolicy string

const (
	// DropOldest evicts the longest-resident unconsumed item and enqueues
	// the incoming one. Used where stale items are worse than a gap.
	DropOldest OverflowPolicy = "drop_oldest"
	// DropNewest discards the incoming item and keeps the queue as is.
	DropNewest OverflowPolicy = "drop_newest"
)

// bounded is a fixed-capacity multi-producer/multi-consumer queue. It is the
// only shared-mutable handoff point between the real-time and cooperative
// domains: Send and TryReceive never block beyond the mutex critical
// section, so they are safe to call from device callbacks. Receive suspends
// the calling goroutine, never a real-time thread.
//
// FIFO order holds among items that are not dropped.
type bounded[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	policy   OverflowPolicy
	closed   bool

	dropped atomic.Uint64

	updateSignal chan struct{}
	done         chan struct{}
}

func newBounded[T any](capacity int, policy OverflowPolicy) *bounded[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &bounded[T]{
		capacity:     capacity,
		policy:       policy,
		updateSignal: make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
}

// Send enqueues item or applies the overflow policy. It reports whether the
// item was accepted; under DropNewest a refused item yields false.
func (c *bounded[T]) Send(item T) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}

	if len(c.items) >= c.capacity {
		switch c.policy {
		case DropOldest:
			c.items = c.items[1:]
			c.dropped.Add(1)
		default:
			c.mu.Unlock()
			c.dropped.Add(1)
			return false
		}
	}
	c.items = append(c.items, item)
	c.mu.Unlock()

	c.signalUpdate()
	return true
}

// TryReceive pops the oldest item without blocking. The render callback uses
// it on the real-time thread.
func (c *bounded[T]) TryReceive() (T, bool) {
	c.mu.Lock()
	item, ok, more := c.popLocked()
	c.mu.Unlock()

	if more {
		c.signalUpdate()
	}
	return item, ok
}

// Receive blocks until an item is available, the channel is closed and
// drained, or ctx is done.
func (c *bounded[T]) Receive(ctx context.Context) (T, bool) {
	for {
		c.mu.Lock()
		item, ok, more := c.popLocked()
		closed := c.closed
		c.mu.Unlock()

		if ok {
			if more {
				c.signalUpdate()
			}
			return item, true
		}
		if closed {
			var zero T
			return zero, false
		}

		select {
		case <-c.updateSignal:
		case <-c.done:
		case <-ctx.Done():
			var zero T
			return zero, false
		}
	}
}

func (c *bounded[T]) popLocked() (item T, ok bool, more bool) {
	if len(c.items) == 0 {
		return item, false, false
	}
	item = c.items[0]
	c.items = c.items[1:]
	return item, true, len(c.items) > 0
}

// Close is idempotent and wakes all waiters. Items already queued remain
// receivable; further sends are refused.
func (c *bounded[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
}

func (c *bounded[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Dropped reports how many items were lost to the overflow policy.
func (c *bounded[T]) Dropped() uint64 {
	return c.dropped.Load()
}

func (c *bounded[T]) signalUpdate() {
	select {
	case c.updateSignal <- struct{}{}:
	default:
	}
}
