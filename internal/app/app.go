package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/tensorscope/internal/backend"
	"github.com/vk/tensorscope/internal/config"
	"github.com/vk/tensorscope/internal/conn"
	"github.com/vk/tensorscope/internal/ctxlog"
	"github.com/vk/tensorscope/internal/layout"
	"github.com/vk/tensorscope/internal/session"
)

// App encapsulates the client's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	ctx     context.Context
	config  *config.Model
	backend *backend.Client
	conn    *conn.Manager
	session *session.Session

	httpServer *http.Server
}

// NewApp validates cfg and builds every component. No network activity
// happens until Run.
func NewApp(outW io.Writer, cfg *config.Model) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := newLogger(cfg.Log, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	client, err := backend.New(cfg.Server.URL, cfg.Server.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	dialer, err := newDialer(cfg.Server)
	if err != nil {
		return nil, err
	}
	manager := conn.NewManager(dialer, conn.Config{
		MaxReconnectAttempts: cfg.Connection.MaxReconnectAttempts,
		ReconnectInterval:    cfg.Connection.ReconnectInterval,
	})
	logger.Debug("Connection manager created.", "transport", cfg.Server.Transport, "url", cfg.Server.WSURL)

	sess := session.New(client, manager, session.Options{
		Debounce:  cfg.Pipeline.Debounce,
		Layout:    layoutOptions(cfg),
		Overrides: cfg.Parameters,
	})

	return &App{
		outW:    outW,
		logger:  logger,
		ctx:     ctx,
		config:  cfg,
		backend: client,
		conn:    manager,
		session: sess,
	}, nil
}

// Logger returns the application's logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Context returns a background context carrying the application's logger.
func (a *App) Context() context.Context {
	return a.ctx
}

// Config returns the validated configuration.
func (a *App) Config() *config.Model {
	return a.config
}

// Backend returns the REST client.
func (a *App) Backend() *backend.Client {
	return a.backend
}

// Session returns the interactive session.
func (a *App) Session() *session.Session {
	return a.session
}

// LayoutOptions returns the configured layout spacing.
func (a *App) LayoutOptions() []layout.Option {
	return layoutOptions(a.config)
}

func layoutOptions(cfg *config.Model) []layout.Option {
	return []layout.Option{layout.WithSpacing(cfg.Layout.HorizontalSpacing, cfg.Layout.VerticalSpacing)}
}
