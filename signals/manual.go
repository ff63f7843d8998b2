package signals

import (
	"sync"

	"github.com/google/uuid"
)

// Manual is a Signals implementation driven explicitly by the host (or a
// test). It starts online and visible.
type Manual struct {
	mu           sync.Mutex
	online       bool
	hidden       bool
	connectivity map[string]func(online bool)
	visibility   map[string]func(hidden bool)
}

var _ Signals = (*Manual)(nil)

// NewManual creates a Manual signal source, online and visible.
func NewManual() *Manual {
	return &Manual{
		online:       true,
		connectivity: make(map[string]func(online bool)),
		visibility:   make(map[string]func(hidden bool)),
	}
}

// IsOnline implements Signals.
func (m *Manual) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// IsHidden implements Signals.
func (m *Manual) IsHidden() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hidden
}

// OnConnectivityChange implements Signals.
func (m *Manual) OnConnectivityChange(fn func(online bool)) func() {
	m.mu.Lock()
	id := uuid.NewString()
	m.connectivity[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.connectivity, id)
		m.mu.Unlock()
	}
}

// OnVisibilityChange implements Signals.
func (m *Manual) OnVisibilityChange(fn func(hidden bool)) func() {
	m.mu.Lock()
	id := uuid.NewString()
	m.visibility[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.visibility, id)
		m.mu.Unlock()
	}
}

// SetOnline updates connectivity and notifies subscribers on transition.
func (m *Manual) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]func(bool), 0, len(m.connectivity))
	for _, fn := range m.connectivity {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	// Callbacks run outside the lock so they may resubscribe or query state
	for _, fn := range subs {
		fn(online)
	}
}

// SetHidden updates visibility and notifies subscribers on transition.
func (m *Manual) SetHidden(hidden bool) {
	m.mu.Lock()
	if m.hidden == hidden {
		m.mu.Unlock()
		return
	}
	m.hidden = hidden
	subs := make([]func(bool), 0, len(m.visibility))
	for _, fn := range m.visibility {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(hidden)
	}
}
