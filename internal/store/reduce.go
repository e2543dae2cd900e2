package store

import (
	"maps"

	"github.com/vk/tensorscope/internal/model"
)

// Reduce applies one action. It returns s unchanged for actions that no
// longer apply, such as results for a scenario that is not current.
//
// Requesting a scenario drops everything that belonged to the previous one,
// and server pushes are ignored until the new scenario has loaded, so a
// state never pairs one scenario's id with another's data.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case ScenariosRequested:
		s.IsLoadingScenarios = true
		s.Error = ""
	case ScenariosLoaded:
		s.Scenarios = a.Scenarios
		s.IsLoadingScenarios = false
	case ScenariosFailed:
		s.Error = a.Err
		s.IsLoadingScenarios = false

	case ScenarioRequested:
		s.CurrentScenarioID = a.ID
		s.Scenario = nil
		s.Graph = model.Graph{}
		s.Layout = nil
		s.Parameters = map[string]any{}
		s.Tensors = map[string]model.TensorSummary{}
		s.SelectedTensorID = ""
		s.IsLoadingScenario = true
		s.IsRunningScenario = false
		s.Error = ""
		s.RunSeq++
	case ScenarioLoaded:
		if a.Scenario == nil || a.Scenario.ID != s.CurrentScenarioID {
			return s
		}
		s.Scenario = a.Scenario
		s.Graph = a.Scenario.GraphOrEmpty()
		s.Layout = a.Layout
		s.Parameters = model.Defaults(a.Scenario.Parameters)
		s.Tensors = map[string]model.TensorSummary{}
		s.SelectedTensorID = ""
		s.IsLoadingScenario = false
	case ScenarioFailed:
		if a.ID != s.CurrentScenarioID {
			return s
		}
		s.Error = a.Err
		s.IsLoadingScenario = false

	case RunRequested:
		s.RunSeq++
		s.IsRunningScenario = true
		s.Error = ""
	case RunSucceeded:
		if !s.currentRun(a.ScenarioID, a.Seq) {
			return s
		}
		tensors := map[string]model.TensorSummary{}
		if a.Result != nil {
			tensors = maps.Clone(a.Result.Tensors)
			if tensors == nil {
				tensors = map[string]model.TensorSummary{}
			}
		}
		s.Tensors = tensors
		s.IsRunningScenario = false
	case RunFailed:
		if !s.currentRun(a.ScenarioID, a.Seq) {
			return s
		}
		s.Error = a.Err
		s.IsRunningScenario = false

	case ParameterUpdated:
		s = s.withParameter(a.Name, a.Value)
	case TensorSelected:
		s.SelectedTensorID = a.ID

	case TensorUpdated:
		if s.IsLoadingScenario {
			return s
		}
		s = s.withTensor(a.ID, a.Summary)
	case TensorsReplaced:
		if s.IsLoadingScenario {
			return s
		}
		tensors := maps.Clone(a.Tensors)
		if tensors == nil {
			tensors = map[string]model.TensorSummary{}
		}
		s.Tensors = tensors
	case GraphUpdated:
		if s.IsLoadingScenario {
			return s
		}
		s.Graph = a.Graph
		s.Layout = a.Layout

	case ServerError:
		s.Notice = a.Message
	case ConnectionChanged:
		s.Connection = a.State
	case ErrorCleared:
		s.Error = ""
		s.Notice = ""
	}
	return s
}

func (s State) currentRun(scenarioID string, seq uint64) bool {
	return scenarioID == s.CurrentScenarioID && seq == s.RunSeq
}
