// Package signals provides process-wide connectivity and visibility
// signals consumed by the feed engine.
package signals

// Signals is the capability interface the engine consumes. Browser hosts
// back it with navigator.onLine/visibilitychange equivalents; server
// hosts use a network probe; tests use Manual.
type Signals interface {
	// IsOnline reports current network connectivity.
	IsOnline() bool

	// IsHidden reports whether the host considers the process hidden
	// (backgrounded tab, suspended app). Headless hosts return false.
	IsHidden() bool

	// OnConnectivityChange registers a callback fired on every
	// connectivity transition. The returned cancel func detaches it.
	OnConnectivityChange(fn func(online bool)) (cancel func())

	// OnVisibilityChange registers a callback fired on every visibility
	// transition. The returned cancel func detaches it.
	OnVisibilityChange(fn func(hidden bool)) (cancel func())
}
