package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/tensorscope/internal/ctxlog"
	"github.com/vk/tensorscope/internal/session"
)

// Run starts the status server and the session loop, then calls fn with the
// running session. After fn returns nil, Run keeps the session alive until
// ctx is cancelled or its deadline passes. An error from fn stops everything
// and is returned.
func (a *App) Run(ctx context.Context, fn func(ctx context.Context, s *session.Session) error) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if port := a.config.Status.Port; port > 0 {
		if _, err := a.startStatusServer(port); err != nil {
			return err
		}
		defer a.closeStatusServer()
	}
	defer a.backend.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopErr := make(chan error, 1)
	go func() { loopErr <- a.session.Run(ctx) }()

	if fn != nil {
		if err := fn(ctx, a.session); err != nil {
			cancel()
			<-loopErr
			return err
		}
	}

	err := <-loopErr
	a.logger.Debug("App.Run method finished.")
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("session stopped: %w", err)
	}
	return nil
}
