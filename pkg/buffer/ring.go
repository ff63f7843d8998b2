package buffer

import (
	"sync"

	"github.com/c360/feedpulse/errors"
)

// ring is a thread-safe ring buffer with configurable overflow policies.
type ring[T any] struct {
	mu       sync.RWMutex
	items    []T
	capacity int
	size     int
	head     int // Next write position
	tail     int // Next read position
	stats    *Statistics
	metrics  *bufferMetrics // Optional Prometheus metrics
	opts     *bufferOptions[T]
	closed   bool
}

// newRing creates a new ring buffer instance.
func newRing[T any](capacity int, opts *bufferOptions[T]) (*ring[T], error) {
	if capacity <= 0 {
		capacity = 1 // Minimum capacity
	}

	// Stats are always collected; metrics export is opt-in
	var metrics *bufferMetrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newBufferMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "buffer", "newRing", "metrics registration")
		}
	}

	return &ring[T]{
		items:    make([]T, capacity),
		capacity: capacity,
		stats:    NewStatistics(),
		metrics:  metrics,
		opts:     opts,
	}, nil
}

// Write adds an item to the buffer according to the overflow policy.
func (rb *ring[T]) Write(item T) error {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.closed {
		return errors.WrapInvalid(errors.ErrShuttingDown, "buffer", "Write", "buffer closed")
	}

	if rb.size == rb.capacity {
		switch rb.opts.overflowPolicy {
		case DropOldest:
			dropped := rb.items[rb.tail]
			rb.tail = (rb.tail + 1) % rb.capacity
			rb.size--

			rb.stats.Overflow()
			rb.stats.Drop()
			if rb.metrics != nil {
				rb.metrics.recordOverflow()
				rb.metrics.recordDrop()
			}

			if rb.opts.dropCallback != nil {
				// Run the callback outside the lock to avoid deadlock
				defer rb.opts.dropCallback(dropped)
			}

		case DropNewest:
			rb.stats.Overflow()
			rb.stats.Drop()
			if rb.metrics != nil {
				rb.metrics.recordOverflow()
				rb.metrics.recordDrop()
			}

			if rb.opts.dropCallback != nil {
				defer rb.opts.dropCallback(item)
			}
			return nil
		}
	}

	rb.items[rb.head] = item
	rb.head = (rb.head + 1) % rb.capacity
	rb.size++

	rb.stats.Write()
	rb.stats.UpdateSize(int64(rb.size))
	if rb.metrics != nil {
		rb.metrics.recordWrite(rb.size, rb.capacity)
	}

	return nil
}

// Read retrieves and removes the oldest item from the buffer.
func (rb *ring[T]) Read() (T, bool) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	var zero T

	if rb.size == 0 {
		return zero, false
	}

	item := rb.items[rb.tail]
	rb.items[rb.tail] = zero // Clear for GC
	rb.tail = (rb.tail + 1) % rb.capacity
	rb.size--

	rb.stats.Read()
	rb.stats.UpdateSize(int64(rb.size))
	if rb.metrics != nil {
		rb.metrics.recordRead(rb.size, rb.capacity)
	}

	return item, true
}

// ReadBatch retrieves and removes up to max items in FIFO order.
func (rb *ring[T]) ReadBatch(max int) []T {
	if max <= 0 {
		return nil
	}

	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.size == 0 {
		return nil
	}

	readCount := max
	if readCount > rb.size {
		readCount = rb.size
	}

	result := make([]T, readCount)
	var zero T

	for i := 0; i < readCount; i++ {
		result[i] = rb.items[rb.tail]
		rb.items[rb.tail] = zero // Clear for GC
		rb.tail = (rb.tail + 1) % rb.capacity
		rb.size--

		rb.stats.Read()
	}

	rb.stats.UpdateSize(int64(rb.size))
	if rb.metrics != nil {
		rb.metrics.updateSize(rb.size, rb.capacity)
	}

	return result
}

// Peek retrieves the oldest item without removing it.
func (rb *ring[T]) Peek() (T, bool) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	var zero T

	if rb.size == 0 {
		return zero, false
	}

	return rb.items[rb.tail], true
}

// Size returns the current number of items in the buffer.
func (rb *ring[T]) Size() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size
}

// Capacity returns the maximum number of items the buffer can hold.
func (rb *ring[T]) Capacity() int {
	return rb.capacity // Immutable, no lock needed
}

// IsFull returns true if the buffer is at maximum capacity.
func (rb *ring[T]) IsFull() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size == rb.capacity
}

// IsEmpty returns true if the buffer contains no items.
func (rb *ring[T]) IsEmpty() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size == 0
}

// Clear removes all items from the buffer.
func (rb *ring[T]) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	var zero T

	if rb.opts.dropCallback != nil {
		itemsToDrop := make([]T, rb.size)
		for i := 0; i < rb.size; i++ {
			idx := (rb.tail + i) % rb.capacity
			itemsToDrop[i] = rb.items[idx]
		}
		// Callbacks run outside the lock
		defer func() {
			for _, item := range itemsToDrop {
				rb.opts.dropCallback(item)
			}
		}()
	}

	for i := 0; i < rb.capacity; i++ {
		rb.items[i] = zero
	}

	rb.head = 0
	rb.tail = 0
	rb.size = 0

	rb.stats.UpdateSize(0)
	if rb.metrics != nil {
		rb.metrics.updateSize(0, rb.capacity)
	}
}

// Stats returns buffer statistics.
func (rb *ring[T]) Stats() *Statistics {
	return rb.stats
}

// Close shuts down the buffer.
func (rb *ring[T]) Close() error {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.closed = true
	return nil
}
