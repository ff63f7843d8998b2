package transport

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/c360/feedpulse/errors"
)

const (
	// sseHandshakeTimeout bounds the initial request, not the stream.
	sseHandshakeTimeout = 45 * time.Second

	// sseMaxLineSize bounds a single event line; public feeds embed
	// base64 thumbnails on occasion, so this is generous.
	sseMaxLineSize = 1 << 20
)

// SSEFactory dials Server-Sent Events endpoints (text/event-stream).
// Each `data:` line is delivered as one message.
type SSEFactory struct {
	// Client is the HTTP client used for streaming requests. If nil,
	// a client without timeouts is used (a deadline would kill the
	// long-lived stream).
	Client *http.Client

	// Header is merged into every streaming request.
	Header http.Header
}

// Dial implements Factory.
func (f *SSEFactory) Dial(url string, h Handler) Conn {
	ctx, cancel := context.WithCancel(context.Background())

	conn := &sseConn{
		cancel: cancel,
	}

	client := f.Client
	if client == nil {
		client = &http.Client{}
	}

	go conn.run(ctx, client, url, f.Header, h)

	return conn
}

type sseConn struct {
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// Close implements Conn.
func (c *sseConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
	return nil
}

// deliverError forwards a failure unless the connection was closed locally.
func (c *sseConn) deliverError(h Handler, err error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed || h.OnError == nil {
		return
	}
	h.OnError(err)
}

// run performs the request and pumps events until the stream dies or the
// connection is closed.
func (c *sseConn) run(ctx context.Context, client *http.Client, url string, header http.Header, h Handler) {
	reqCtx, cancelHandshake := context.WithTimeout(ctx, sseHandshakeTimeout)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		cancelHandshake()
		c.deliverError(h, errors.WrapInvalid(err, "transport", "Dial", "build request"))
		return
	}

	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := client.Do(req)
	cancelHandshake()
	if err != nil {
		c.deliverError(h, errors.WrapTransient(err, "transport", "Dial", "open stream"))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.deliverError(h, errors.WrapTransient(
			fmt.Errorf("unexpected status %d", resp.StatusCode),
			"transport", "Dial", "open stream"))
		return
	}

	// Rebind the body to the connection context so Close interrupts reads
	// after the handshake deadline is gone.
	go func() {
		<-ctx.Done()
		resp.Body.Close()
	}()

	if h.OnOpen != nil {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		h.OnOpen()
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), sseMaxLineSize)

	for scanner.Scan() {
		line := scanner.Text()

		// SSE framing: ignore comments, event names, and blank separators.
		// Only data lines carry payload.
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		payload := strings.TrimPrefix(line, "data:")
		payload = strings.TrimPrefix(payload, " ")
		if payload == "" {
			continue
		}

		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		if h.OnMessage != nil {
			h.OnMessage([]byte(payload))
		}
	}

	// Stream ended: either a read error or server-side EOF. Both are
	// transport failures from the consumer's point of view.
	err = scanner.Err()
	if err == nil {
		err = errors.ErrConnectionLost
	}
	c.deliverError(h, errors.WrapTransient(err, "transport", "run", "read stream"))
}
