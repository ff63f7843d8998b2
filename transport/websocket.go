package transport

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/feedpulse/errors"
)

// WSFactory dials WebSocket endpoints. Each received text or binary
// frame is delivered as one message.
type WSFactory struct {
	// HandshakeTimeout bounds the dial. Defaults to 45s.
	HandshakeTimeout time.Duration

	// Header is sent with the upgrade request.
	Header http.Header
}

// Dial implements Factory.
func (f *WSFactory) Dial(url string, h Handler) Conn {
	conn := &wsConn{
		done: make(chan struct{}),
	}

	timeout := f.HandshakeTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}

	dialer := &websocket.Dialer{
		HandshakeTimeout: timeout,
	}

	go conn.run(dialer, url, f.Header, h)

	return conn
}

type wsConn struct {
	mu     sync.Mutex
	ws     *websocket.Conn
	closed bool
	done   chan struct{}
}

// Close implements Conn.
func (c *wsConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	ws := c.ws
	close(c.done)
	c.mu.Unlock()

	if ws != nil {
		return ws.Close()
	}
	return nil
}

// deliverError forwards a failure unless the connection was closed locally.
func (c *wsConn) deliverError(h Handler, err error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed || h.OnError == nil {
		return
	}
	h.OnError(err)
}

// run dials and pumps frames until the socket dies or Close is called.
func (c *wsConn) run(dialer *websocket.Dialer, url string, header http.Header, h Handler) {
	ws, _, err := dialer.Dial(url, header)
	if err != nil {
		c.deliverError(h, errors.WrapTransient(err, "transport", "Dial", "websocket handshake"))
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		ws.Close()
		return
	}
	c.ws = ws
	c.mu.Unlock()

	if h.OnOpen != nil {
		h.OnOpen()
	}

	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, message, err := ws.ReadMessage()
		if err != nil {
			c.deliverError(h, errors.WrapTransient(err, "transport", "run", "read frame"))
			return
		}

		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		if h.OnMessage != nil {
			h.OnMessage(message)
		}
	}
}
