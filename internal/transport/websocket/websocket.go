// Package websocket implements conn.Dialer on top of gorilla/websocket.
// Each JSON message travels as one text frame.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vk/tensorscope/internal/conn"
)

const closeGracePeriod = time.Second

// Dialer opens websocket channels to a fixed URL.
type Dialer struct {
	URL    string
	Header http.Header

	dialer *websocket.Dialer
}

// NewDialer returns a Dialer for url. A positive timeout bounds the
// handshake.
func NewDialer(url string, timeout time.Duration) *Dialer {
	d := *websocket.DefaultDialer
	if timeout > 0 {
		d.HandshakeTimeout = timeout
	}
	return &Dialer{URL: url, dialer: &d}
}

// Dial implements conn.Dialer.
func (d *Dialer) Dial(ctx context.Context) (conn.Channel, error) {
	c, resp, err := d.dialer.DialContext(ctx, d.URL, d.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial %s: %w (status %d)", d.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("websocket dial %s: %w", d.URL, err)
	}
	return newChannel(c), nil
}

type channel struct {
	conn *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

func newChannel(c *websocket.Conn) *channel {
	return &channel{conn: c, closed: make(chan struct{})}
}

// Send writes one text frame. Writes are serialized.
func (c *channel) Send(ctx context.Context, data []byte) error {
	select {
	case <-c.closed:
		return conn.ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	deadline, _ := ctx.Deadline()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Receive reads the next data frame. Cancelling ctx tears the connection
// down since gorilla reads cannot be interrupted otherwise.
func (c *channel) Receive(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			select {
			case <-c.closed:
				return nil, conn.ErrClosed
			default:
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return nil, fmt.Errorf("server closed the connection: %w", err)
			}
			return nil, err
		}
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			return data, nil
		}
	}
}

// Close sends a close frame and releases the connection.
func (c *channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGracePeriod))
		err = c.conn.Close()
	})
	return err
}
