package dag

import (
	"errors"
	"fmt"

	"github.com/vk/tensorscope/internal/model"
)

// EdgeError describes an edge of the operator graph that could not be turned
// into a dependency.
type EdgeError struct {
	Index int
	Edge  model.GraphEdge
	Err   error
}

// Error implements the error interface.
func (e *EdgeError) Error() string {
	return fmt.Sprintf("edge #%d (%s): %v", e.Index, e.Edge, e.Err)
}

// Unwrap exposes the underlying sentinel.
func (e *EdgeError) Unwrap() error {
	return e.Err
}

// Build indexes an operator graph. Nodes keep their declaration order and
// duplicate IDs keep the first occurrence. Edges that reference unknown
// nodes are skipped and returned as EdgeErrors; self-loops are recorded on
// their node and are not reported.
func Build(g model.Graph) (*Graph, []*EdgeError) {
	graph := New()
	for _, n := range g.Nodes {
		graph.AddNode(n.ID)
	}

	var dropped []*EdgeError
	for i, e := range g.Edges {
		err := graph.AddEdge(e.FromNode, e.ToNode)
		switch {
		case err == nil, errors.Is(err, ErrSelfLoop):
		default:
			dropped = append(dropped, &EdgeError{Index: i, Edge: e, Err: err})
		}
	}
	return graph, dropped
}
