// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the operator graph as it arrives from the server.
//
// Why no validation on construction?
//
// A partially malformed graph should still render what it can. Validate
// reports the problems it finds as values; it never refuses the graph. The
// layout engine applies the same policy to edges that reference unknown nodes.
package model

import (
	"fmt"
	"strings"
)

// GraphNode is a single operator in the graph.
type GraphNode struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Inputs  []string `json:"inputs"`
	Outputs []string `json:"outputs"`
	Tags    []string `json:"tags"`
}

// HasTag reports whether the node carries the given tag.
func (n GraphNode) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// GraphEdge is a directed tensor flow from one node's output port to another
// node's input port.
type GraphEdge struct {
	FromNode   string `json:"from_node"`
	FromOutput string `json:"from_output"`
	ToNode     string `json:"to_node"`
	ToInput    string `json:"to_input"`
}

// IsSelfLoop reports whether the edge starts and ends at the same node.
func (e GraphEdge) IsSelfLoop() bool {
	return e.FromNode == e.ToNode
}

// TensorKey returns the "node.output" key of the tensor carried by the edge.
func (e GraphEdge) TensorKey() string {
	return TensorKey(e.FromNode, e.FromOutput)
}

// String implements fmt.Stringer.
func (e GraphEdge) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s", e.FromNode, e.FromOutput, e.ToNode, e.ToInput)
}

// Graph is an operator graph: a set of nodes and an ordered list of edges.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Empty reports whether the graph has no nodes.
func (g Graph) Empty() bool {
	return len(g.Nodes) == 0
}

// Node looks up a node by id. The first node wins when ids are duplicated.
func (g Graph) Node(id string) (GraphNode, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return GraphNode{}, false
}

// NodeIDs returns the distinct node ids in declaration order.
func (g Graph) NodeIDs() []string {
	seen := make(map[string]struct{}, len(g.Nodes))
	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := seen[n.ID]; dup {
			continue
		}
		seen[n.ID] = struct{}{}
		ids = append(ids, n.ID)
	}
	return ids
}

// Issue describes one data-integrity problem found in a graph.
type Issue struct {
	// Edge is the index of the offending edge, or -1 for node problems.
	Edge   int
	NodeID string
	Reason string
}

// Error implements the error interface so issues can be logged or wrapped.
func (i Issue) Error() string {
	if i.Edge >= 0 {
		return fmt.Sprintf("edge #%d: %s", i.Edge, i.Reason)
	}
	return fmt.Sprintf("node %q: %s", i.NodeID, i.Reason)
}

// Validate reports duplicate node ids, edges that reference unknown nodes and
// input ports that receive more than one producer. An empty result means the
// graph is well formed.
func (g Graph) Validate() []Issue {
	var issues []Issue
	known := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			issues = append(issues, Issue{Edge: -1, NodeID: n.ID, Reason: "empty node id"})
			continue
		}
		if _, dup := known[n.ID]; dup {
			issues = append(issues, Issue{Edge: -1, NodeID: n.ID, Reason: "duplicate node id"})
			continue
		}
		known[n.ID] = struct{}{}
	}

	producers := make(map[string]int)
	for i, e := range g.Edges {
		if _, ok := known[e.FromNode]; !ok {
			issues = append(issues, Issue{Edge: i, Reason: fmt.Sprintf("unknown source node %q", e.FromNode)})
		}
		if _, ok := known[e.ToNode]; !ok {
			issues = append(issues, Issue{Edge: i, Reason: fmt.Sprintf("unknown target node %q", e.ToNode)})
			continue
		}
		port := e.ToNode + "." + e.ToInput
		if prev, taken := producers[port]; taken {
			issues = append(issues, Issue{Edge: i, Reason: fmt.Sprintf("input %s already fed by edge #%d", port, prev)})
			continue
		}
		producers[port] = i
	}
	return issues
}

// TensorKey joins a node id and an output port name into the key the server
// uses for the tensor produced on that port.
func TensorKey(nodeID, output string) string {
	return nodeID + "." + output
}

// SplitTensorKey is the inverse of TensorKey. Node ids may not contain dots;
// the output name is everything after the first one.
func SplitTensorKey(key string) (nodeID, output string, ok bool) {
	nodeID, output, ok = strings.Cut(key, ".")
	if !ok || nodeID == "" || output == "" {
		return "", "", false
	}
	return nodeID, output, true
}

// Position is a 2D coordinate assigned by the layout engine.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
