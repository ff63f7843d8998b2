// Package transport provides the streaming connection abstraction used by
// the feed engine, with SSE and WebSocket client implementations.
package transport

// Handler carries the callbacks a connection invokes as it progresses.
// Callbacks are invoked from the connection's reader goroutine, one at a
// time, and never after Close returns a connection to the idle state.
type Handler struct {
	// OnOpen fires once when the stream is confirmed established.
	OnOpen func()

	// OnMessage fires for each discrete text message delivered by the
	// stream. The byte slice is only valid for the duration of the call.
	OnMessage func(data []byte)

	// OnError fires when the connection fails to establish or dies.
	// At most one OnError is delivered per connection.
	OnError func(err error)
}

// Conn is an open (or opening) streaming connection.
type Conn interface {
	// Close tears the connection down and suppresses further callbacks.
	// Safe to call multiple times.
	Close() error
}

// Factory opens streaming connections to a URL.
//
// Dial returns immediately; connection establishment is asynchronous and
// reported through the handler (OnOpen on success, OnError on failure).
// This mirrors browser EventSource/WebSocket semantics and keeps the
// caller's state machine free of blocking calls.
type Factory interface {
	Dial(url string, h Handler) Conn
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(url string, h Handler) Conn

// Dial implements Factory.
func (f FactoryFunc) Dial(url string, h Handler) Conn {
	return f(url, h)
}
