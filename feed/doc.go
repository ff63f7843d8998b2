// Package feed implements the per-stream ingestion engine: a connection
// state machine with jittered exponential reconnection, a parse,
// validate, dedup, bound pipeline feeding a most-recent-first item
// list, a pause buffer with arrival-order flush, and periodic health
// diagnostics.
//
// A Feed is generic over its event type; the image and text feeds are
// two Config values over the same machinery, not two implementations.
// Transport, connectivity/visibility signals, logging, and metrics are
// injected, so the engine runs identically against live SSE or
// websocket endpoints and against the in-memory fake used in tests.
//
// States: idle, connecting, connected, paused, offline, error,
// reconnecting. Transport failures and connectivity loss are retryable
// and drive backoff; malformed payloads, schema failures, and
// duplicates are expected noise from a public best-effort broadcast,
// counted and dropped without surfacing an error. Nothing here returns
// a failure to its caller; every failure mode degrades to observable
// status and diagnostics.
package feed
