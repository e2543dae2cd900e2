package dag

import (
	"errors"
	"sync"
)

var (
	// ErrNodeNotFound is returned when an edge or query names an unknown node.
	ErrNodeNotFound = errors.New("node not found")
	// ErrSelfLoop is returned by AddEdge for an edge from a node to itself.
	// The loop is still recorded on the node.
	ErrSelfLoop = errors.New("self-referential edge")
	// ErrCycle is wrapped by DetectCycles.
	ErrCycle = errors.New("cycle detected")
)

// Graph is a collection of nodes and their directed edges.
// All operations on the graph are concurrency-safe.
type Graph struct {
	// mutex protects the nodes map and order slice during concurrent access.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by their unique ID.
	nodes map[string]*node
	// order lists node IDs in insertion order.
	order []string
}

// node represents a single vertex in the graph. It is un-exported to
// enforce interaction with the graph via the public API (using string IDs),
// not by direct struct manipulation.
type node struct {
	// id is the unique identifier for the node.
	id string
	// index is the insertion position of the node.
	index int
	// deps holds the distinct predecessors in first-seen edge order.
	deps []*node
	// dependents holds the distinct successors in first-seen edge order.
	dependents []*node
	// depSet and dependentSet deduplicate parallel edges.
	depSet       map[string]struct{}
	dependentSet map[string]struct{}
	// selfLoop is set when at least one edge starts and ends at this node.
	selfLoop bool
}
