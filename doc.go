// Package feedpulse provides a resilient real-time feed ingestion engine.
//
// # Overview
//
// FeedPulse consumes long-lived, unidirectional JSON event streams from
// public broadcast endpoints and exposes each stream as read-only state
// plus an imperative control surface. Two feed types are built in: an
// image feed and a text feed. Their state machines evolve independently;
// they share only the process-wide connectivity/visibility watchers and
// the transport factory.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│            Engine                   │  Facade: two feeds,
//	│   (start, stop, shutdown, watch)    │  shared runtime signals
//	└─────────────────────────────────────┘
//	           ↓ owns
//	┌─────────────────────────────────────┐
//	│             Feed                    │  Connection state machine,
//	│ (connect, ingest, dedup, pause,     │  backoff scheduler, pause
//	│  health sampling, snapshots)        │  buffer, diagnostics
//	└─────────────────────────────────────┘
//	           ↓ reads from
//	┌─────────────────────────────────────┐
//	│           Transport                 │  SSE or WebSocket client
//	│   (open, message, error, close)     │  behind a Factory interface
//	└─────────────────────────────────────┘
//
// # Packages
//
//   - engine: public facade and lifecycle orchestration
//   - feed: per-feed state machine, ingestion pipeline, diagnostics
//   - transport: streaming connection abstraction + SSE/WebSocket clients
//   - signals: process-wide connectivity and visibility watchers
//   - metric: Prometheus registry and exposition handler
//   - config: YAML configuration with defaults and validation
//   - errors: classified error handling (transient/invalid/fatal)
//   - pkg/backoff: jittered exponential reconnect delays
//   - pkg/buffer: bounded generic buffers with overflow policies
//
// # Design Principles
//
//   - Never block the caller: connection setup, reconnection, and
//     diagnostics sampling are asynchronous and surface through state.
//   - Degrade, don't fail: malformed payloads, duplicates, and transport
//     errors are expected noise from a best-effort public feed. They are
//     counted and dropped; nothing here throws to its consumer.
//   - Deterministic teardown: Stop and Shutdown synchronously cancel
//     timers and close connections so no callback fires afterwards.
package feedpulse
