package layout

import (
	"slices"

	"github.com/vk/tensorscope/internal/model"
)

// Highlight returns the nodes and edge indices touched by the tensor named
// by key ("node.output"): the producing node, every consumer and the edges
// carrying the tensor. Node ids are returned in declaration order.
func Highlight(g model.Graph, key string) (nodes []string, edges []int) {
	producer, output, ok := model.SplitTensorKey(key)
	if !ok {
		return nil, nil
	}

	touched := make(map[string]bool)
	for i, e := range g.Edges {
		if e.FromNode != producer || e.FromOutput != output {
			continue
		}
		edges = append(edges, i)
		touched[e.FromNode] = true
		touched[e.ToNode] = true
	}
	if n, found := g.Node(producer); found && slices.Contains(n.Outputs, output) {
		touched[producer] = true
	}

	for _, n := range g.Nodes {
		if touched[n.ID] && !slices.Contains(nodes, n.ID) {
			nodes = append(nodes, n.ID)
		}
	}
	return nodes, edges
}
