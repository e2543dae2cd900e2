package session

import (
	"context"
	"fmt"
	"maps"

	"github.com/vk/tensorscope/internal/layout"
	"github.com/vk/tensorscope/internal/model"
	"github.com/vk/tensorscope/internal/store"
)

// LoadScenarios fetches the scenario catalog.
func (s *Session) LoadScenarios(ctx context.Context) error {
	return s.call(ctx, func(done func(error)) {
		s.store.Dispatch(store.ScenariosRequested{})
		s.spawn(func() {
			list, err := s.backend.ListScenarios(s.ctx)
			if !s.post(func() {
				if err != nil {
					s.store.Dispatch(store.ScenariosFailed{Err: err.Error()})
					done(fmt.Errorf("failed to load scenarios: %w", err))
					return
				}
				s.store.Dispatch(store.ScenariosLoaded{Scenarios: list})
				done(nil)
			}) {
				done(ErrClosed)
			}
		}, done)
	})
}

// SelectScenario makes id the current scenario: it drops the previous
// scenario's state, fetches the detail, seeds the default parameters,
// computes the layout, subscribes to the probes and runs the scenario. It
// returns once the run finished. If the detail cannot be fetched no scenario
// is left selected and the previous probes are unsubscribed.
func (s *Session) SelectScenario(ctx context.Context, id string) error {
	return s.call(ctx, func(done func(error)) {
		s.stopPipeline()
		s.store.Dispatch(store.ScenarioRequested{ID: id})

		s.spawn(func() {
			detail, err := s.backend.GetScenario(s.ctx, id)
			var res *layout.Result
			if err == nil {
				res = layout.Compute(detail.GraphOrEmpty(), s.opts.Layout...)
			}
			if !s.post(func() { s.scenarioFetched(id, detail, res, err, done) }) {
				done(ErrClosed)
			}
		}, done)
	})
}

func (s *Session) scenarioFetched(id string, detail *model.ScenarioDetail, res *layout.Result, err error, done func(error)) {
	if s.store.Snapshot().CurrentScenarioID != id {
		s.logger.Debug("Discarding detail of a scenario that is no longer current", "scenario", id)
		done(fmt.Errorf("scenario %q was replaced before it loaded", id))
		return
	}
	if err != nil {
		s.store.Dispatch(store.ScenarioFailed{ID: id, Err: err.Error()})
		s.rewatch(nil)
		done(fmt.Errorf("failed to load scenario %q: %w", id, err))
		return
	}
	if detail.ID == "" {
		detail.ID = id
	}

	s.logWarnings(res)
	s.store.Dispatch(store.ScenarioLoaded{Scenario: detail, Layout: res})
	s.applyOverrides(detail)
	s.rewatch(detail.ProbeKeys())
	s.startRun(done)
}

// RunCurrentScenario runs the current scenario with the local parameters.
// On failure the previous tensors are kept.
func (s *Session) RunCurrentScenario(ctx context.Context) error {
	return s.call(ctx, func(done func(error)) {
		if s.store.Snapshot().Scenario == nil {
			done(ErrNoScenario)
			return
		}
		s.startRun(done)
	})
}

func (s *Session) startRun(done func(error)) {
	st := s.store.Dispatch(store.RunRequested{})
	id, seq := st.CurrentScenarioID, st.RunSeq
	params := maps.Clone(st.Parameters)
	logger := s.logger.With("scenario", id, "run", seq)
	logger.Debug("Running scenario")

	s.spawn(func() {
		result, err := s.backend.RunScenario(s.ctx, id, params)
		if !s.post(func() {
			if err != nil {
				s.store.Dispatch(store.RunFailed{ScenarioID: id, Seq: seq, Err: err.Error()})
				done(fmt.Errorf("failed to run scenario %q: %w", id, err))
				return
			}
			if cur := s.store.Snapshot(); cur.CurrentScenarioID != id || cur.RunSeq != seq {
				logger.Debug("Ignoring stale run result")
			}
			s.store.Dispatch(store.RunSucceeded{ScenarioID: id, Seq: seq, Result: result})
			done(nil)
		}) {
			done(ErrClosed)
		}
	}, done)
}

// UpdateParameter validates value and stores it locally. Nothing is sent.
func (s *Session) UpdateParameter(ctx context.Context, name string, value any) error {
	return s.call(ctx, func(done func(error)) {
		done(s.setLocal(name, value))
	})
}

// SelectTensor changes the inspected tensor and subscribes to it.
func (s *Session) SelectTensor(ctx context.Context, id string) error {
	return s.call(ctx, func(done func(error)) {
		s.store.Dispatch(store.TensorSelected{ID: id})
		if id != "" {
			s.watch([]string{id})
		}
		done(nil)
	})
}

// Watch subscribes to extra tensors on top of the probes.
func (s *Session) Watch(ctx context.Context, ids ...string) error {
	return s.call(ctx, func(done func(error)) {
		s.watch(ids)
		done(nil)
	})
}

// setLocal validates a parameter value against the current scenario and
// dispatches it.
func (s *Session) setLocal(name string, value any) error {
	detail := s.store.Snapshot().Scenario
	if detail == nil {
		return ErrNoScenario
	}
	p, ok := detail.Parameter(name)
	if !ok {
		return fmt.Errorf("%w: scenario %q has no parameter %q", ErrInvalidParameter, detail.ID, name)
	}
	if err := p.Validate(value); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}
	s.store.Dispatch(store.ParameterUpdated{Name: name, Value: value})
	return nil
}

func (s *Session) applyOverrides(detail *model.ScenarioDetail) {
	for _, p := range detail.Parameters {
		v, ok := s.opts.Overrides[p.Name]
		if !ok {
			continue
		}
		if err := s.setLocal(p.Name, v); err != nil {
			s.logger.Warn("Ignoring parameter override", "param", p.Name, "error", err)
		}
	}
}

func (s *Session) logWarnings(res *layout.Result) {
	if res == nil {
		return
	}
	for _, w := range res.Warnings {
		s.logger.Warn("Graph integrity warning", "edge", w.EdgeIndex, "error", w.Error())
	}
	if len(res.Unresolved) > 0 {
		s.logger.Debug("Graph has cycles, using fallback layer", "nodes", res.Unresolved)
	}
}
