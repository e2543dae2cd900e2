package store

import (
	"github.com/vk/tensorscope/internal/conn"
	"github.com/vk/tensorscope/internal/layout"
	"github.com/vk/tensorscope/internal/model"
)

// Action is one of the transitions declared in this file.
type Action interface {
	action()
}

type (
	// ScenariosRequested starts a catalog fetch.
	ScenariosRequested struct{}
	// ScenariosLoaded delivers the catalog.
	ScenariosLoaded struct{ Scenarios []model.ScenarioInfo }
	// ScenariosFailed ends a catalog fetch with an error.
	ScenariosFailed struct{ Err string }

	// ScenarioRequested makes ID the current scenario and starts fetching
	// its detail. Runs in flight for any scenario become stale.
	ScenarioRequested struct{ ID string }
	// ScenarioLoaded installs the detail of the current scenario: graph,
	// layout and default parameters replace the previous ones, tensors and
	// selection are cleared.
	ScenarioLoaded struct {
		Scenario *model.ScenarioDetail
		Layout   *layout.Result
	}
	// ScenarioFailed ends a detail fetch with an error.
	ScenarioFailed struct {
		ID  string
		Err string
	}

	// RunRequested starts a run of the current scenario and advances RunSeq.
	RunRequested struct{}
	// RunSucceeded replaces the tensor set with a run result. Seq must be
	// the RunSeq observed right after RunRequested.
	RunSucceeded struct {
		ScenarioID string
		Seq        uint64
		Result     *model.RunResult
	}
	// RunFailed ends a run with an error; tensors are kept.
	RunFailed struct {
		ScenarioID string
		Seq        uint64
		Err        string
	}

	// ParameterUpdated sets one local parameter value.
	ParameterUpdated struct {
		Name  string
		Value any
	}
	// TensorSelected changes the inspected tensor.
	TensorSelected struct{ ID string }

	// TensorUpdated overwrites one tensor summary.
	TensorUpdated struct {
		ID      string
		Summary model.TensorSummary
	}
	// TensorsReplaced replaces the whole tensor set.
	TensorsReplaced struct{ Tensors map[string]model.TensorSummary }
	// GraphUpdated replaces the graph of the current scenario.
	GraphUpdated struct {
		Graph  model.Graph
		Layout *layout.Result
	}

	// ServerError records an application error pushed by the server.
	ServerError struct{ Message string }
	// ConnectionChanged mirrors the connection state.
	ConnectionChanged struct{ State conn.State }
	// ErrorCleared dismisses Error and Notice.
	ErrorCleared struct{}
)

func (ScenariosRequested) action() {}
func (ScenariosLoaded) action()    {}
func (ScenariosFailed) action()    {}
func (ScenarioRequested) action()  {}
func (ScenarioLoaded) action()     {}
func (ScenarioFailed) action()     {}
func (RunRequested) action()       {}
func (RunSucceeded) action()       {}
func (RunFailed) action()          {}
func (ParameterUpdated) action()   {}
func (TensorSelected) action()     {}
func (TensorUpdated) action()      {}
func (TensorsReplaced) action()    {}
func (GraphUpdated) action()       {}
func (ServerError) action()        {}
func (ConnectionChanged) action()  {}
func (ErrorCleared) action()       {}
