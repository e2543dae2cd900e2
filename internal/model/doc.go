// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model provides the Go representation of everything the tensorscope
// server hands to a client: operator graphs, scenario definitions, parameters,
// probes and tensor summaries.
//
// # Core Concepts
//
//   - Graph: the operator graph of a scenario. Nodes are operators with named
//     input and output ports; edges carry one tensor from an output port to an
//     input port. A Graph is a plain value and may contain cycles, self-loops and
//     disconnected components. Nothing in this package rejects such shapes.
//
//   - ScenarioDetail: the full description of one scenario (graph, parameters,
//     probes). It is replaced wholesale whenever the user switches scenarios.
//
//   - Parameter: the legal input domain of one scenario knob, either continuous
//     (min/max/step) or discrete (a list of options).
//
//   - TensorSummary: lightweight statistics for a computed tensor. The client
//     treats it as an opaque value keyed by id.
//
// The JSON field names follow the server wire schema exactly, so the same
// structs are used by the REST client and the duplex protocol codec.
package model
