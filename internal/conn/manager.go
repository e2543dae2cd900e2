package conn

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vk/tensorscope/internal/ctxlog"
	"github.com/vk/tensorscope/internal/protocol"
)

const streamBuffer = 64

// Manager runs the connection state machine.
type Manager struct {
	dialer Dialer
	cfg    Config

	mu       sync.Mutex
	pubMu    sync.Mutex
	logger   *slog.Logger
	state    State
	channel  Channel
	attempts int
	cancel   context.CancelFunc
	done     chan struct{}

	messages chan protocol.ServerMessage
	states   chan State
}

// NewManager creates a Manager in the disconnected state.
func NewManager(dialer Dialer, cfg Config) *Manager {
	return &Manager{
		dialer:   dialer,
		cfg:      cfg.withDefaults(),
		logger:   slog.Default(),
		state:    Disconnected,
		messages: make(chan protocol.ServerMessage, streamBuffer),
		states:   make(chan State, streamBuffer),
	}
}

// Messages returns the stream of decoded inbound messages.
func (m *Manager) Messages() <-chan protocol.ServerMessage {
	return m.messages
}

// States returns the stream of state transitions.
func (m *Manager) States() <-chan State {
	return m.states
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Attempts returns the number of consecutive failed dials or drops.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Start launches the retry loop. It is a no-op while a loop is running; a
// manager that reached Failed can be started again.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		select {
		case <-m.done:
			m.cancel()
		default:
			m.mu.Unlock()
			return
		}
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.attempts = 0
	m.logger = ctxlog.FromContext(ctx).With("component", "conn")
	done := m.done
	m.mu.Unlock()

	go m.run(loopCtx, done)
}

// Close stops the retry loop, cancels any pending retry timer and closes
// the live channel. The manager stays disconnected until Start is called
// again.
func (m *Manager) Close() {
	m.mu.Lock()
	cancel, done, ch := m.cancel, m.done, m.channel
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if ch != nil {
		_ = ch.Close()
	}
	<-done
	m.setState(Disconnected)
}

// Send encodes and writes a message if the channel is up.
func (m *Manager) Send(ctx context.Context, msg protocol.ClientMessage) error {
	m.mu.Lock()
	ch, state, logger := m.channel, m.state, m.logger
	m.mu.Unlock()

	if state != Connected || ch == nil {
		logger.Warn("Dropping outbound message", "type", msg.Type(), "state", state.String())
		return fmt.Errorf("send %s: %w", msg.Type(), ErrNotConnected)
	}

	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	if err := ch.Send(ctx, data); err != nil {
		return fmt.Errorf("send %s: %w", msg.Type(), err)
	}
	logger.Debug("Sent message", "type", msg.Type())
	return nil
}

// Subscribe asks for updates of one tensor.
func (m *Manager) Subscribe(ctx context.Context, tensorID, view string) error {
	return m.Send(ctx, protocol.Subscribe{TensorID: tensorID, View: view})
}

// Unsubscribe stops updates of one tensor.
func (m *Manager) Unsubscribe(ctx context.Context, tensorID string) error {
	return m.Send(ctx, protocol.Unsubscribe{TensorID: tensorID})
}

// UpdateParam pushes one parameter change to the server.
func (m *Manager) UpdateParam(ctx context.Context, scenarioID, name string, value any) error {
	return m.Send(ctx, protocol.UpdateParam{ScenarioID: scenarioID, Param: name, Value: value})
}

func (m *Manager) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	logger := m.log()

	for {
		m.setState(Connecting)
		ch, err := m.dialer.Dial(ctx)
		if ctx.Err() != nil {
			if ch != nil {
				_ = ch.Close()
			}
			return
		}

		if err == nil {
			m.mu.Lock()
			m.channel = ch
			m.attempts = 0
			m.mu.Unlock()
			m.setState(Connected)

			err = m.read(ctx, ch)

			m.mu.Lock()
			m.channel = nil
			m.mu.Unlock()
			_ = ch.Close()
			if ctx.Err() != nil {
				return
			}
			logger.Warn("Connection lost", "error", err)
		} else {
			logger.Warn("Dial failed", "error", err)
		}

		m.mu.Lock()
		m.attempts++
		attempt := m.attempts
		m.mu.Unlock()
		if attempt >= m.cfg.MaxReconnectAttempts {
			logger.Error("Giving up on reconnecting", "attempts", attempt)
			m.setState(Failed)
			return
		}

		m.setState(Reconnecting)
		logger.Debug("Scheduling reconnect", "attempt", attempt, "max", m.cfg.MaxReconnectAttempts, "in", m.cfg.ReconnectInterval)

		timer := time.NewTimer(m.cfg.ReconnectInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// read pumps inbound payloads until the channel breaks.
func (m *Manager) read(ctx context.Context, ch Channel) error {
	logger := m.log()
	for {
		data, err := ch.Receive(ctx)
		if err != nil {
			return err
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			logger.Error("Discarding inbound message", "error", err)
			continue
		}
		select {
		case m.messages <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	if m.state == s {
		m.mu.Unlock()
		return
	}
	prev := m.state
	m.state = s
	logger := m.logger
	m.mu.Unlock()

	logger.Info("Connection state changed", "from", prev.String(), "to", s.String())
	m.publish(s)
}

// publish queues s on the state stream. When the stream is full the oldest
// queued transition is dropped so the latest state always gets through.
func (m *Manager) publish(s State) {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()
	for {
		select {
		case m.states <- s:
			return
		default:
		}
		select {
		case old := <-m.states:
			m.log().Warn("State stream is full, dropping transition", "state", old.String())
		default:
		}
	}
}

func (m *Manager) log() *slog.Logger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logger
}
