// Package backoff provides the reconnect delay schedule used by the
// feed connection manager.
//
// Unlike a retry loop, this package only computes delays: scheduling,
// cancellation, and the attempt counter belong to the connection state
// machine, which must be able to cancel a pending reconnect synchronously
// on Stop. The computation is pure apart from jitter, which draws from a
// process-wide, mutex-guarded random source.
//
// The schedule is the classic capped exponential with uniform jitter:
//
//	delay(n) = min(initial * 2^n + U[0, jitter), max)
//
// With the defaults (1s initial, 500ms jitter, 30s cap) attempts 1..5
// yield roughly 2s, 4s, 8s, 16s, 30s.
package backoff
