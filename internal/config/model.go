package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Transport names accepted by Server.Transport.
const (
	TransportWebSocket = "websocket"
	TransportSocketIO  = "socketio"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads the given files in order on top of base. Later files win.
	Load(ctx context.Context, base *Model, paths ...string) (*Model, error)
}

// Model is the unified, format-agnostic representation of the client
// configuration.
type Model struct {
	Server     Server
	Connection Connection
	Pipeline   Pipeline
	Layout     Layout
	Log        Log
	Status     Status
	// Parameters are initial overrides applied to every scenario that
	// declares a parameter of the same name.
	Parameters map[string]any
}

// Server locates the backend.
type Server struct {
	URL       string
	WSURL     string
	Transport string
	Timeout   time.Duration
}

// Connection tunes the reconnect state machine.
type Connection struct {
	MaxReconnectAttempts int
	ReconnectInterval    time.Duration
}

// Pipeline tunes the parameter update pipeline.
type Pipeline struct {
	Debounce time.Duration
}

// Layout holds the layer and row spacing.
type Layout struct {
	HorizontalSpacing float64
	VerticalSpacing   float64
}

// Log selects the slog handler.
type Log struct {
	Level  string
	Format string
}

// Status configures the optional status server. Port 0 disables it.
type Status struct {
	Port int
}

// Default returns the built-in configuration.
func Default() *Model {
	return &Model{
		Server: Server{
			URL:       "http://localhost:8000",
			WSURL:     "ws://localhost:8000/ws",
			Transport: TransportWebSocket,
			Timeout:   10 * time.Second,
		},
		Connection: Connection{
			MaxReconnectAttempts: 10,
			ReconnectInterval:    3 * time.Second,
		},
		Pipeline:   Pipeline{Debounce: 150 * time.Millisecond},
		Layout:     Layout{HorizontalSpacing: 250, VerticalSpacing: 100},
		Log:        Log{Level: "info", Format: "text"},
		Parameters: map[string]any{},
	}
}

// Clone returns a copy that shares nothing mutable with m.
func (m *Model) Clone() *Model {
	c := *m
	c.Parameters = make(map[string]any, len(m.Parameters))
	for k, v := range m.Parameters {
		c.Parameters[k] = v
	}
	return &c
}

// Validate checks the model. Every error wraps ErrInvalid.
func (m *Model) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(validURL(m.Server.URL, "http", "https"), "server.url %q must be an http(s) URL", m.Server.URL)
	switch m.Server.Transport {
	case TransportWebSocket:
		check(validURL(m.Server.WSURL, "ws", "wss"), "server.ws_url %q must be a ws(s) URL", m.Server.WSURL)
	case TransportSocketIO:
		check(validURL(m.Server.WSURL, "http", "https", "ws", "wss"), "server.ws_url %q is not a valid URL", m.Server.WSURL)
	default:
		check(false, "server.transport %q must be %q or %q", m.Server.Transport, TransportWebSocket, TransportSocketIO)
	}
	check(m.Server.Timeout > 0, "server.timeout must be positive")
	check(m.Connection.MaxReconnectAttempts >= 0, "connection.max_reconnect_attempts must not be negative")
	check(m.Connection.ReconnectInterval > 0, "connection.reconnect_interval must be positive")
	check(m.Pipeline.Debounce > 0, "pipeline.debounce must be positive")
	check(m.Layout.HorizontalSpacing > 0 && m.Layout.VerticalSpacing > 0, "layout spacing must be positive")
	switch m.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		check(false, "log.level %q must be 'debug', 'info', 'warn', or 'error'", m.Log.Level)
	}
	check(m.Log.Format == "text" || m.Log.Format == "json", "log.format %q must be 'text' or 'json'", m.Log.Format)
	check(m.Status.Port >= 0 && m.Status.Port <= 65535, "status.port %d is out of range", m.Status.Port)

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

func validURL(raw string, schemes ...string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return true
		}
	}
	return false
}
