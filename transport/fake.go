package transport

import (
	"encoding/json"
	"sync"
)

// Fake is an in-memory Factory for deterministic tests. Dial records the
// connection and returns it without opening; the test drives the
// handlers explicitly via Open, Emit, and Fail.
type Fake struct {
	mu    sync.Mutex
	conns []*FakeConn
}

// NewFake creates a fake transport factory.
func NewFake() *Fake {
	return &Fake{}
}

// Dial implements Factory.
func (f *Fake) Dial(url string, h Handler) Conn {
	conn := &FakeConn{URL: url, handler: h}

	f.mu.Lock()
	f.conns = append(f.conns, conn)
	f.mu.Unlock()

	return conn
}

// DialCount returns how many connections have been dialed.
func (f *Fake) DialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

// Last returns the most recently dialed connection, or nil.
func (f *Fake) Last() *FakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.conns) == 0 {
		return nil
	}
	return f.conns[len(f.conns)-1]
}

// Conns returns a copy of all dialed connections.
func (f *Fake) Conns() []*FakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*FakeConn, len(f.conns))
	copy(out, f.conns)
	return out
}

// FakeConn is a scripted connection handed out by Fake.
type FakeConn struct {
	URL string

	handler Handler

	mu     sync.Mutex
	closed bool
}

// Open fires the OnOpen callback.
func (c *FakeConn) Open() {
	if c.isClosed() || c.handler.OnOpen == nil {
		return
	}
	c.handler.OnOpen()
}

// Emit delivers one raw message.
func (c *FakeConn) Emit(data []byte) {
	if c.isClosed() || c.handler.OnMessage == nil {
		return
	}
	c.handler.OnMessage(data)
}

// EmitJSON marshals v and delivers it as one message.
// Marshal failures panic: a test scripting bad fixtures is a test bug.
func (c *FakeConn) EmitJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	c.Emit(data)
}

// Fail fires the OnError callback.
func (c *FakeConn) Fail(err error) {
	if c.isClosed() || c.handler.OnError == nil {
		return
	}
	c.handler.OnError(err)
}

// Close implements Conn.
func (c *FakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// Closed reports whether Close has been called.
func (c *FakeConn) Closed() bool {
	return c.isClosed()
}

func (c *FakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
