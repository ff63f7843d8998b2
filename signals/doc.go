// Package signals wraps host connectivity and visibility state behind a
// small capability interface instead of an implicit global singleton.
//
// The feed engine uses these signals two ways: connectivity loss forces
// active feeds into the offline state and gates reconnection until
// connectivity returns, and visibility loss suspends diagnostics
// sampling so throttled background timers cannot skew stall detection.
//
// Implementations:
//
//   - Manual: host- or test-driven. The embedder calls SetOnline and
//     SetHidden when its platform reports transitions.
//   - Probe: headless hosts. Connectivity is sampled by dialing a
//     well-known address on an interval; visibility is always visible.
//
// Subscription callbacks fire only on transitions, outside any internal
// lock, and are detached via the returned cancel func.
package signals
