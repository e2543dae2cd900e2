// Package conn keeps a duplex channel to the server alive.
//
// A Manager owns one retry loop: it dials, reads until the channel breaks,
// waits a fixed interval and dials again, giving up after a configurable
// number of consecutive failures. Outbound messages are written only while
// the channel is up; anything sent at another time is dropped, never queued.
package conn

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotConnected is returned by Send when there is no live channel.
	ErrNotConnected = errors.New("not connected")
	// ErrClosed is returned by channels used after Close.
	ErrClosed = errors.New("channel closed")
)

// State is the connection state exposed to the rest of the client.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Channel is one established duplex connection carrying JSON payloads.
type Channel interface {
	Send(ctx context.Context, data []byte) error
	// Receive blocks until a payload arrives, the channel breaks or ctx is
	// done.
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// Dialer opens channels.
type Dialer interface {
	Dial(ctx context.Context) (Channel, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context) (Channel, error)

// Dial calls f(ctx).
func (f DialerFunc) Dial(ctx context.Context) (Channel, error) {
	return f(ctx)
}

const (
	DefaultMaxReconnectAttempts = 10
	DefaultReconnectInterval    = 3 * time.Second
)

// Config holds the retry policy.
type Config struct {
	// MaxReconnectAttempts is the number of consecutive failed dials or
	// drops, the initial dial included, after which the manager gives up.
	MaxReconnectAttempts int
	// ReconnectInterval is the fixed wait before each retry.
	ReconnectInterval time.Duration
}

// DefaultConfig returns the default retry policy.
func DefaultConfig() Config {
	return Config{
		MaxReconnectAttempts: DefaultMaxReconnectAttempts,
		ReconnectInterval:    DefaultReconnectInterval,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxReconnectAttempts < 0 {
		c.MaxReconnectAttempts = 0
	}
	if c.ReconnectInterval <= 0 {
		c.ReconnectInterval = DefaultReconnectInterval
	}
	return c
}
