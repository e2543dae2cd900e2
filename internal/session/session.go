// Package session drives one interactive exploration: it owns the store and
// runs every state transition on a single event-loop goroutine.
//
// Network calls never run on the loop. An operation dispatches its
// "requested" action, starts the call on a helper goroutine and the helper
// posts the outcome back as another event. Between two events the store is
// only touched by the loop, so each event is atomic with respect to state.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vk/tensorscope/internal/conn"
	"github.com/vk/tensorscope/internal/ctxlog"
	"github.com/vk/tensorscope/internal/debounce"
	"github.com/vk/tensorscope/internal/layout"
	"github.com/vk/tensorscope/internal/model"
	"github.com/vk/tensorscope/internal/protocol"
	"github.com/vk/tensorscope/internal/store"
)

var (
	// ErrInvalidParameter is returned for unknown parameters and values
	// outside a parameter's domain.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrNoScenario is returned by operations that need a current scenario.
	ErrNoScenario = errors.New("no scenario selected")
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session closed")
)

// Backend is the REST surface the session needs.
type Backend interface {
	ListScenarios(ctx context.Context) ([]model.ScenarioInfo, error)
	GetScenario(ctx context.Context, id string) (*model.ScenarioDetail, error)
	RunScenario(ctx context.Context, id string, params map[string]any) (*model.RunResult, error)
}

// Connection is the duplex channel surface the session needs. *conn.Manager
// implements it.
type Connection interface {
	Start(ctx context.Context)
	Close()
	State() conn.State
	Messages() <-chan protocol.ServerMessage
	States() <-chan conn.State
	Subscribe(ctx context.Context, tensorID, view string) error
	Unsubscribe(ctx context.Context, tensorID string) error
	UpdateParam(ctx context.Context, scenarioID, name string, value any) error
}

// Options tunes a Session.
type Options struct {
	// Debounce is the per-parameter quiet window.
	Debounce time.Duration
	// Layout is passed to every layout computation.
	Layout []layout.Option
	// Overrides are applied on top of the defaults of every scenario that
	// declares a parameter of the same name.
	Overrides map[string]any
	// View is sent with every subscription.
	View string
}

type event func()

// Session is the client core.
type Session struct {
	backend Backend
	conn    Connection
	store   *store.Store
	opts    Options

	events    chan event
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	startOnce sync.Once

	// Owned by the loop goroutine.
	ctx        context.Context
	logger     *slog.Logger
	debouncers map[string]*debounce.Debouncer[any]
	watching   []string
}

// New creates a Session. Nothing happens until Run is called.
func New(backend Backend, connection Connection, opts Options) *Session {
	if opts.Debounce <= 0 {
		opts.Debounce = debounce.DefaultWindow
	}
	return &Session{
		backend:    backend,
		conn:       connection,
		store:      store.New(store.Initial()),
		opts:       opts,
		events:     make(chan event, 64),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		ctx:        context.Background(),
		logger:     slog.Default(),
		debouncers: make(map[string]*debounce.Debouncer[any]),
	}
}

// Store exposes the state for readers and listeners.
func (s *Session) Store() *store.Store {
	return s.store
}

// Snapshot is shorthand for Store().Snapshot().
func (s *Session) Snapshot() store.State {
	return s.store.Snapshot()
}

// Run starts the connection and executes events until ctx is cancelled or
// Close is called. It may be called once.
func (s *Session) Run(ctx context.Context) error {
	started := false
	s.startOnce.Do(func() { started = true })
	if !started {
		return errors.New("session already started or closed")
	}
	defer close(s.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.ctx = ctx
	s.logger = ctxlog.FromContext(ctx).With("component", "session")
	s.logger.Debug("Session loop starting")

	s.conn.Start(ctx)
	defer s.teardown()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.quit:
			return nil
		case ev := <-s.events:
			s.safely("event", ev)
		case msg := <-s.conn.Messages():
			s.safely("message", func() { s.handleMessage(msg) })
		case st := <-s.conn.States():
			s.safely("state", func() { s.handleState(st) })
		}
	}
}

// Close stops the loop, the debouncers and the connection. It waits for a
// running loop to exit.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.quit) })
	running := true
	s.startOnce.Do(func() { running = false })
	if running {
		<-s.done
		return
	}
	s.conn.Close()
}

func (s *Session) teardown() {
	for name, d := range s.debouncers {
		d.Stop()
		delete(s.debouncers, name)
	}
	s.conn.Close()
	s.logger.Debug("Session loop stopped")
}

// post queues fn on the loop. It reports false once the session is closed.
func (s *Session) post(fn event) bool {
	select {
	case s.events <- fn:
		return true
	case <-s.quit:
		return false
	}
}

// safely runs fn and turns a panic into a logged error.
func (s *Session) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered from panic", "in", what, "panic", r)
		}
	}()
	fn()
}

// spawn runs fn on a helper goroutine; a panic is reported through fail.
func (s *Session) spawn(fn func(), fail func(error)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				fail(fmt.Errorf("panic: %v", r))
			}
		}()
		fn()
	}()
}

// call posts fn with a completion channel and waits for the result.
func (s *Session) call(ctx context.Context, fn func(done func(error))) error {
	result := make(chan error, 1)
	var once sync.Once
	done := func(err error) {
		once.Do(func() { result <- err })
	}
	if !s.post(func() { fn(done) }) {
		return ErrClosed
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.quit:
		return ErrClosed
	}
}
