// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the scenario records exchanged over the REST interface.
package model

// ScenarioInfo is the catalog entry for one scenario.
type ScenarioInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Probe marks a tensor of the scenario as available for inspection.
type Probe struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
}

// ScenarioDetail is everything the client needs to drive one scenario.
type ScenarioDetail struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	Probes      []Probe     `json:"probes"`
	Graph       *Graph      `json:"graph,omitempty"`
}

// Parameter looks up a parameter definition by name.
func (s *ScenarioDetail) Parameter(name string) (Parameter, bool) {
	if s == nil {
		return Parameter{}, false
	}
	for _, p := range s.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// ProbeKeys returns the tensor keys of all probes in declaration order.
func (s *ScenarioDetail) ProbeKeys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.Probes))
	for _, p := range s.Probes {
		keys = append(keys, p.Key)
	}
	return keys
}

// GraphOrEmpty returns the scenario graph, or an empty graph when the
// scenario declares none.
func (s *ScenarioDetail) GraphOrEmpty() Graph {
	if s == nil || s.Graph == nil {
		return Graph{}
	}
	return *s.Graph
}

// RunResult is the response to a scenario run request.
type RunResult struct {
	ScenarioID string                   `json:"scenario_id"`
	Parameters map[string]any           `json:"parameters"`
	Tensors    map[string]TensorSummary `json:"tensors"`
}
