package dag

import (
	"fmt"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing and returns false.
func (g *Graph) AddNode(id string) bool {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return false
	}

	g.nodes[id] = &node{
		id:           id,
		index:        len(g.order),
		depSet:       make(map[string]struct{}),
		dependentSet: make(map[string]struct{}),
	}
	g.order = append(g.order, id)
	return true
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// Parallel edges collapse into one. An edge from a node to itself is recorded
// as a self-loop and reported with ErrSelfLoop; it never becomes a dependency.
func (g *Graph) AddEdge(fromID, toID string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source %w: %s", ErrNodeNotFound, fromID)
	}

	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination %w: %s", ErrNodeNotFound, toID)
	}

	if fromID == toID {
		fromNode.selfLoop = true
		return fmt.Errorf("%w: %s -> %s", ErrSelfLoop, fromID, fromID)
	}

	if _, dup := toNode.depSet[fromID]; dup {
		return nil
	}
	toNode.depSet[fromID] = struct{}{}
	toNode.deps = append(toNode.deps, fromNode)
	fromNode.dependentSet[toID] = struct{}{}
	fromNode.dependents = append(fromNode.dependents, toNode)

	return nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.order)
}

// Nodes returns all node IDs in insertion order.
func (g *Graph) Nodes() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Index returns the insertion position of a node.
func (g *Graph) Index(id string) (int, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return -1, false
	}
	return n.index, true
}

// Dependencies returns the IDs of the nodes the given node depends on, in the
// order their edges were added.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return ids(n.deps), nil
}

// Dependents returns the IDs of the nodes that depend on the given node, in
// the order their edges were added.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return ids(n.dependents), nil
}

// InDegree returns the number of distinct predecessors, self-loops excluded.
func (g *Graph) InDegree(id string) int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	if n, ok := g.nodes[id]; ok {
		return len(n.deps)
	}
	return 0
}

// HasSelfLoop reports whether a self-loop was added for the node.
func (g *Graph) HasSelfLoop(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	n, ok := g.nodes[id]
	return ok && n.selfLoop
}

// DetectCycles checks the graph for any cycles. It returns a non-nil error
// if a cycle is found, indicating the first node involved in the detected cycle.
// Self-loops are not reported; they are tracked separately.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	// Use classic depth-first search with three sets of nodes:
	// permanent: nodes that have been fully visited and are not part of a cycle.
	// temporary: nodes currently in the recursion stack for the current traversal.
	// unvisited: all other nodes.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n.id] {
			return nil
		}
		if temporary[n.id] {
			return fmt.Errorf("%w involving node '%s'", ErrCycle, n.id)
		}

		temporary[n.id] = true

		for _, dependent := range n.dependents {
			if err := visit(dependent); err != nil {
				return err
			}
		}

		delete(temporary, n.id)
		permanent[n.id] = true

		return nil
	}

	// Visit in insertion order so the reported node is stable.
	for _, id := range g.order {
		n := g.nodes[id]
		if !permanent[n.id] {
			if err := visit(n); err != nil {
				return err
			}
		}
	}

	return nil
}

func ids(nodes []*node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.id
	}
	return out
}
