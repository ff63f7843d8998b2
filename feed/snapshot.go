package feed

import (
	"github.com/google/uuid"
)

// Snapshot is a point-in-time, read-only view of a feed's complete
// observable state. The Items slice is a copy and safe to retain.
type Snapshot[T any] struct {
	Name        string
	Status      Status
	Health      Health
	Paused      bool
	Items       []T
	LastError   string
	Metrics     Metrics
	Diagnostics Diagnostics
}

// Snapshot returns the feed's current observable state.
func (f *Feed[T]) Snapshot() Snapshot[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Feed[T]) snapshotLocked() Snapshot[T] {
	items := make([]T, len(f.items))
	copy(items, f.items)

	lastError := ""
	if f.lastErr != nil {
		lastError = f.lastErr.Error()
	}

	return Snapshot[T]{
		Name:        f.cfg.Name,
		Status:      f.status,
		Health:      f.diag.Health,
		Paused:      f.paused,
		Items:       items,
		LastError:   lastError,
		Metrics:     f.metrics,
		Diagnostics: f.diag,
	}
}

// Watch subscribes to state-change notifications. The channel has a
// buffer of one and coalesces: a slow consumer always observes the
// latest snapshot, never a backlog. The returned cancel detaches the
// watcher and closes the channel.
func (f *Feed[T]) Watch() (<-chan Snapshot[T], func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan Snapshot[T], 1)
	f.watchers[id] = ch

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if existing, ok := f.watchers[id]; ok {
			delete(f.watchers, id)
			close(existing)
		}
	}
	return ch, cancel
}

// Items returns a copy of the retained item list, most recent first.
func (f *Feed[T]) Items() []T {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]T, len(f.items))
	copy(items, f.items)
	return items
}

// Status returns the current connection status.
func (f *Feed[T]) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Health returns the current derived health classification.
func (f *Feed[T]) Health() Health {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.diag.Health
}

// Paused reports whether ingestion is redirected to the pause buffer.
func (f *Feed[T]) Paused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

// LastError returns the most recent transport error, or nil.
func (f *Feed[T]) LastError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Metrics returns a copy of the ingestion metrics.
func (f *Feed[T]) Metrics() Metrics {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.metrics
}

// Diagnostics returns a copy of the connection diagnostics.
func (f *Feed[T]) Diagnostics() Diagnostics {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.diag
}
