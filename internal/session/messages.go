package session

import (
	"fmt"
	"slices"

	"github.com/vk/tensorscope/internal/conn"
	"github.com/vk/tensorscope/internal/layout"
	"github.com/vk/tensorscope/internal/protocol"
	"github.com/vk/tensorscope/internal/store"
)

func (s *Session) handleMessage(msg protocol.ServerMessage) {
	switch m := msg.(type) {
	case protocol.TensorUpdate:
		s.store.Dispatch(store.TensorUpdated{ID: m.TensorID, Summary: m.Summary})
	case protocol.TensorsUpdate:
		s.store.Dispatch(store.TensorsReplaced{Tensors: m.Tensors})
	case protocol.GraphUpdate:
		res := layout.Compute(m.Graph, s.opts.Layout...)
		s.logWarnings(res)
		s.store.Dispatch(store.GraphUpdated{Graph: m.Graph, Layout: res})
	case protocol.ErrorMessage:
		s.logger.Warn("Server reported an error", "message", m.Message)
		s.store.Dispatch(store.ServerError{Message: m.Message})
	default:
		s.logger.Error("Unhandled server message", "type", fmt.Sprintf("%T", msg))
	}
}

func (s *Session) handleState(state conn.State) {
	s.store.Dispatch(store.ConnectionChanged{State: state})
	if state == conn.Connected {
		s.subscribe(s.watching)
	}
}

// watch adds ids to the watched set and subscribes to the new ones when
// connected.
func (s *Session) watch(ids []string) {
	var added []string
	for _, id := range ids {
		if id == "" || slices.Contains(s.watching, id) {
			continue
		}
		s.watching = append(s.watching, id)
		added = append(added, id)
	}
	if s.conn.State() == conn.Connected {
		s.sync(nil, added)
	}
}

// rewatch replaces the watched set, unsubscribing from tensors that left it.
func (s *Session) rewatch(ids []string) {
	var removed []string
	for _, id := range s.watching {
		if !slices.Contains(ids, id) {
			removed = append(removed, id)
		}
	}
	var added []string
	for _, id := range ids {
		if id != "" && !slices.Contains(added, id) {
			added = append(added, id)
		}
	}
	s.watching = slices.Clone(added)
	if s.conn.State() == conn.Connected {
		s.sync(removed, added)
	}
}

func (s *Session) subscribe(ids []string) {
	s.sync(nil, ids)
}

// sync sends the unsubscribes, then the subscribes, in order on one helper
// goroutine.
func (s *Session) sync(removed, added []string) {
	if len(removed) == 0 && len(added) == 0 {
		return
	}
	removed, added = slices.Clone(removed), slices.Clone(added)
	ctx, logger, view := s.ctx, s.logger, s.opts.View
	s.spawn(func() {
		for _, id := range removed {
			if err := s.conn.Unsubscribe(ctx, id); err != nil {
				logger.Debug("Unsubscribe failed", "tensor", id, "error", err)
				return
			}
		}
		for _, id := range added {
			if err := s.conn.Subscribe(ctx, id, view); err != nil {
				logger.Debug("Subscribe failed", "tensor", id, "error", err)
				return
			}
		}
		logger.Debug("Subscriptions updated", "subscribed", added, "unsubscribed", removed)
	}, func(err error) {
		logger.Error("Subscription update failed", "error", err)
	})
}
