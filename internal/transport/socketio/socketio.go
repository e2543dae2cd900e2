// Package socketio implements conn.Dialer over a socket.io connection.
//
// Messages travel as the "message" event carrying the JSON text. The
// library's own reconnection is switched off by disconnecting as soon as
// the socket reports a drop; retrying is left to conn.Manager.
package socketio

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/tensorscope/internal/conn"
	"github.com/vk/tensorscope/internal/ctxlog"
)

// MessageEvent is the event name used in both directions.
const MessageEvent = "message"

const defaultConnectTimeout = 15 * time.Second

// Dialer opens socket.io channels.
type Dialer struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// NewDialer returns a Dialer for rawURL; the URL path becomes the socket.io
// path.
func NewDialer(rawURL string, timeout time.Duration) *Dialer {
	return &Dialer{URL: rawURL, ConnectTimeout: timeout}
}

// Dial implements conn.Dialer.
func (d *Dialer) Dial(ctx context.Context) (conn.Channel, error) {
	logger := ctxlog.FromContext(ctx).With("transport", "socketio", "url", d.URL)

	parsedURL, err := url.Parse(d.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if d.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", httpScheme(parsedURL.Scheme), parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(d.Namespace, opts)

	ch := &channel{
		io:      io,
		inbound: make(chan []byte, 64),
		dropped: make(chan struct{}),
		closed:  make(chan struct{}),
	}

	connectChan := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Debug("Connected", "sid", io.Id())
		select {
		case connectChan <- nil:
		default:
		}
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case connectChan <- err:
		default:
		}
	})
	io.On(types.EventName(MessageEvent), func(args ...any) {
		if len(args) == 0 {
			return
		}
		data, err := payload(args[0])
		if err != nil {
			logger.Error("Unreadable socket.io payload", "error", err)
			return
		}
		select {
		case ch.inbound <- data:
		case <-ch.closed:
		}
	})
	io.On(types.EventName("disconnect"), func(reason ...any) {
		logger.Debug("Socket dropped", "reason", reason)
		ch.drop()
		go io.Disconnect()
	})

	io.Connect()

	timeout := d.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return ch, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-timer.C:
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
}

type channel struct {
	io      *socket.Socket
	inbound chan []byte

	dropOnce  sync.Once
	dropped   chan struct{}
	closeOnce sync.Once
	closed    chan struct{}
}

// Send emits the JSON text as a message event.
func (c *channel) Send(_ context.Context, data []byte) error {
	select {
	case <-c.closed:
		return conn.ErrClosed
	case <-c.dropped:
		return fmt.Errorf("socket.io: %w", conn.ErrClosed)
	default:
	}
	c.io.Emit(MessageEvent, string(data))
	return nil
}

// Receive returns the next message payload.
func (c *channel) Receive(ctx context.Context) ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case <-c.dropped:
		return nil, fmt.Errorf("socket.io disconnected")
	case <-c.closed:
		return nil, conn.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close disconnects the socket.
func (c *channel) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.io.Disconnect()
	})
	return nil
}

func (c *channel) drop() {
	c.dropOnce.Do(func() { close(c.dropped) })
}

// payload turns an event argument back into JSON bytes. Servers may emit
// the text itself or an already decoded object.
func payload(arg any) ([]byte, error) {
	switch v := arg.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return sonic.Marshal(v)
	}
}

func httpScheme(scheme string) string {
	switch scheme {
	case "ws":
		return "http"
	case "wss":
		return "https"
	}
	return scheme
}
