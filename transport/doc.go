// Package transport abstracts the streaming connection behind the feed
// engine so the connection state machine never depends on a concrete
// streaming API.
//
// A Factory turns a URL into a Conn; progress is reported through the
// Handler callbacks (OnOpen, OnMessage, OnError) rather than return
// values, mirroring browser EventSource semantics: Dial never blocks,
// and failure to connect surfaces as OnError, not as a dial error.
//
// Two real implementations ship here:
//
//   - SSEFactory: Server-Sent Events over HTTP. One JSON object per
//     `data:` line; comments, event names, and blank separators are
//     skipped. This is the default transport for public broadcast feeds.
//   - WSFactory: WebSocket via gorilla/websocket. One JSON object per
//     frame.
//
// Fake provides a scripted factory for deterministic unit tests of the
// state machine: the test controls exactly when a connection opens,
// what it delivers, and when it fails.
//
// Reconnection is intentionally not handled here. A dead Conn stays
// dead; scheduling a replacement with backoff is the feed connection
// manager's job.
package transport
