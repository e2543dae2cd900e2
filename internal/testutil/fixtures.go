// Package testutil provides shared fixtures for tests that need a running
// tensor backend or configuration files on disk.
package testutil

import "github.com/vk/tensorscope/internal/model"

func ptr(f float64) *float64 { return &f }

// Diamond returns the A -> {B, C} -> D scenario. Node A also reads from the
// _input pseudo-node, which the layout reports as a warning.
func Diamond() *model.ScenarioDetail {
	edge := func(from, to string) model.GraphEdge {
		return model.GraphEdge{FromNode: from, FromOutput: "out", ToNode: to, ToInput: "x_" + from}
	}
	node := func(id string) model.GraphNode {
		return model.GraphNode{ID: id, Name: id, Outputs: []string{"out"}}
	}
	return &model.ScenarioDetail{
		ID:          "diamond",
		Name:        "Diamond",
		Description: "Two branches joined again",
		Parameters: []model.Parameter{
			{Name: "n", DisplayName: "Size", Type: model.ParamContinuous, Default: 1.0, Min: ptr(0), Max: ptr(10), Step: ptr(1)},
			{Name: "solver", DisplayName: "Solver", Type: model.ParamDiscrete, Default: "qr", Options: []any{"qr", "svd"}},
		},
		Probes: []model.Probe{{Key: "D.out", DisplayName: "Result"}},
		Graph: &model.Graph{
			Nodes: []model.GraphNode{node("A"), node("B"), node("C"), node("D")},
			Edges: []model.GraphEdge{
				{FromNode: "_input", FromOutput: "x", ToNode: "A", ToInput: "x"},
				edge("A", "B"), edge("A", "C"), edge("B", "D"), edge("C", "D"),
			},
		},
	}
}

// Summary builds a vector summary whose "source" statistic records what
// produced it.
func Summary(id string, source any) model.TensorSummary {
	return model.TensorSummary{
		ID:    id,
		Name:  id,
		Kind:  model.KindVector,
		Shape: []int{3},
		DType: "float64",
		Stats: map[string]any{"source": source},
	}
}
