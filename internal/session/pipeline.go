package session

import (
	"context"
	"errors"

	"github.com/vk/tensorscope/internal/conn"
	"github.com/vk/tensorscope/internal/debounce"
)

// SetParameter is the interactive path for a parameter edit: the value is
// validated and stored locally right away, then sent to the server once no
// further edit of the same parameter arrived for the debounce window.
func (s *Session) SetParameter(ctx context.Context, name string, value any) error {
	return s.call(ctx, func(done func(error)) {
		if err := s.setLocal(name, value); err != nil {
			done(err)
			return
		}
		s.debouncer(name).Push(value)
		done(nil)
	})
}

// FlushParameters sends every pending parameter edit immediately.
func (s *Session) FlushParameters(ctx context.Context) error {
	return s.call(ctx, func(done func(error)) {
		// Already on the loop: deliver inline rather than posting back.
		for name, d := range s.debouncers {
			if v, ok := d.Take(); ok {
				s.sendParameter(name, v)
			}
		}
		done(nil)
	})
}

func (s *Session) debouncer(name string) *debounce.Debouncer[any] {
	if d, ok := s.debouncers[name]; ok {
		return d
	}
	d := debounce.New(s.opts.Debounce, func(v any) {
		s.post(func() { s.sendParameter(name, v) })
	})
	s.debouncers[name] = d
	return d
}

// stopPipeline drops every pending edit. Called when the scenario changes.
func (s *Session) stopPipeline() {
	for name, d := range s.debouncers {
		d.Stop()
		delete(s.debouncers, name)
	}
}

func (s *Session) sendParameter(name string, value any) {
	st := s.store.Snapshot()
	if st.Scenario == nil {
		return
	}
	scenarioID := st.Scenario.ID
	logger := s.logger.With("scenario", scenarioID, "param", name)
	if state := s.conn.State(); state != conn.Connected {
		logger.Warn("Dropping parameter update, not connected", "state", state.String())
		return
	}

	ctx := s.ctx
	s.spawn(func() {
		if err := s.conn.UpdateParam(ctx, scenarioID, name, value); err != nil {
			if errors.Is(err, conn.ErrNotConnected) {
				return
			}
			logger.Error("Failed to send parameter update", "error", err)
			return
		}
		logger.Debug("Parameter update sent", "value", value)
	}, func(err error) {
		logger.Error("Failed to send parameter update", "error", err)
	})
}
