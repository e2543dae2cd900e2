package layout

import (
	"slices"

	"github.com/vk/tensorscope/internal/model"
)

// state is a mutable layer assignment plus the order inside each layer.
type state struct {
	layerOf []int   // node -> layer
	layers  [][]int // layer -> nodes, top to bottom
	pos     []int   // node -> index inside its layer
}

// assignLayers peels the graph breadth-first. Each round frees the nodes
// whose remaining in-degree dropped to zero; at most len(ids) rounds run.
// Whatever is left afterwards goes into one fallback layer.
func assignLayers(ix *index) (*state, []int) {
	n := len(ix.ids)
	st := &state{
		layerOf: make([]int, n),
		pos:     make([]int, n),
	}
	indeg := make([]int, n)
	for v := range ix.ids {
		indeg[v] = len(ix.preds[v])
		st.layerOf[v] = -1
	}

	var current []int
	for v := range ix.ids {
		if indeg[v] == 0 {
			current = append(current, v)
		}
	}

	for len(current) > 0 {
		layer := len(st.layers)
		// Declaration order inside the layer; the sweeps reorder later.
		slices.Sort(current)
		for _, v := range current {
			st.layerOf[v] = layer
		}
		st.layers = append(st.layers, current)

		var next []int
		for _, u := range current {
			for _, v := range ix.succs[u] {
				indeg[v]--
				if indeg[v] == 0 {
					next = append(next, v)
				}
			}
		}
		current = next
	}

	var unresolved []int
	for v := range ix.ids {
		if st.layerOf[v] < 0 {
			unresolved = append(unresolved, v)
		}
	}
	if len(unresolved) > 0 {
		layer := len(st.layers)
		for _, v := range unresolved {
			st.layerOf[v] = layer
		}
		st.layers = append(st.layers, slices.Clone(unresolved))
	}

	st.reindexAll()
	return st, unresolved
}

func (st *state) reindexAll() {
	for _, layer := range st.layers {
		st.reindex(layer)
	}
}

func (st *state) reindex(layer []int) {
	for i, v := range layer {
		st.pos[v] = i
	}
}

// fill converts the state into coordinates on res.
func (st *state) fill(ix *index, res *Result) {
	tallest := 0
	for _, layer := range st.layers {
		if len(layer) > tallest {
			tallest = len(layer)
		}
	}

	h, vs := res.opts.HorizontalSpacing, res.opts.VerticalSpacing
	res.Order = make([][]string, len(st.layers))
	for l, layer := range st.layers {
		offset := float64(tallest-len(layer)) * vs / 2
		res.Order[l] = make([]string, len(layer))
		for i, v := range layer {
			id := ix.ids[v]
			res.Order[l][i] = id
			res.Layers[id] = l
			res.Positions[id] = model.Position{
				X: float64(l) * h,
				Y: float64(i)*vs + offset,
			}
		}
	}
}

// stateFromResult rebuilds a state from a previous Result. It fails when the
// result does not cover exactly the graph's nodes.
func stateFromResult(ix *index, res *Result) (*state, bool) {
	if res == nil {
		return nil, false
	}
	n := len(ix.ids)
	st := &state{
		layerOf: make([]int, n),
		pos:     make([]int, n),
		layers:  make([][]int, len(res.Order)),
	}
	seen := 0
	for l, ids := range res.Order {
		for _, id := range ids {
			v, ok := ix.pos[id]
			if !ok {
				return nil, false
			}
			st.layerOf[v] = l
			st.layers[l] = append(st.layers[l], v)
			seen++
		}
	}
	if seen != n {
		return nil, false
	}
	st.reindexAll()
	return st, true
}
