// Package store holds the client's view of the server: the scenario catalog,
// the current scenario with its parameters and the latest tensor summaries.
//
// State changes only through Reduce, one enumerated Action at a time. The
// reducer is pure; Store adds serialization and change notification on top.
package store

import (
	"maps"

	"github.com/vk/tensorscope/internal/conn"
	"github.com/vk/tensorscope/internal/layout"
	"github.com/vk/tensorscope/internal/model"
)

// State is an immutable snapshot. Reduce never mutates its input; maps and
// slices reachable from a State must be treated as read-only.
type State struct {
	Scenarios         []model.ScenarioInfo
	CurrentScenarioID string
	Scenario          *model.ScenarioDetail
	Graph             model.Graph
	Layout            *layout.Result

	Parameters       map[string]any
	Tensors          map[string]model.TensorSummary
	SelectedTensorID string

	IsLoadingScenarios bool
	IsLoadingScenario  bool
	IsRunningScenario  bool

	// Error is the last data-fetch failure.
	Error string
	// Notice is the last application error reported by the server.
	Notice string

	Connection conn.State
	// RunSeq identifies the latest run request; results carrying an older
	// value are ignored.
	RunSeq uint64
}

// Initial returns the empty state.
func Initial() State {
	return State{
		Parameters: map[string]any{},
		Tensors:    map[string]model.TensorSummary{},
		Connection: conn.Disconnected,
	}
}

// Tensor returns one tensor summary.
func (s State) Tensor(id string) (model.TensorSummary, bool) {
	t, ok := s.Tensors[id]
	return t, ok
}

// SelectedTensor returns the summary of the selected tensor, if loaded.
func (s State) SelectedTensor() (model.TensorSummary, bool) {
	if s.SelectedTensorID == "" {
		return model.TensorSummary{}, false
	}
	return s.Tensor(s.SelectedTensorID)
}

// Busy reports whether any fetch is in flight.
func (s State) Busy() bool {
	return s.IsLoadingScenarios || s.IsLoadingScenario || s.IsRunningScenario
}

func (s State) withParameter(name string, value any) State {
	params := maps.Clone(s.Parameters)
	if params == nil {
		params = map[string]any{}
	}
	params[name] = value
	s.Parameters = params
	return s
}

func (s State) withTensor(id string, summary model.TensorSummary) State {
	tensors := maps.Clone(s.Tensors)
	if tensors == nil {
		tensors = map[string]model.TensorSummary{}
	}
	tensors[id] = summary
	s.Tensors = tensors
	return s
}
