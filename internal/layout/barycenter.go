package layout

import "slices"

// forwardSweep orders each layer by the mean index of its predecessors in
// earlier layers.
func (st *state) forwardSweep(ix *index) {
	for l := range st.layers {
		st.orderBy(l, ix.preds, func(other, own int) bool { return other < own })
	}
}

// backwardSweep orders each layer by the mean index of its successors in
// later layers, starting from the bottom.
func (st *state) backwardSweep(ix *index) {
	for l := len(st.layers) - 1; l >= 0; l-- {
		st.orderBy(l, ix.succs, func(other, own int) bool { return other > own })
	}
}

func (st *state) orderBy(l int, adj [][]int, counts func(other, own int) bool) {
	layer := st.layers[l]
	keys := make(map[int]float64, len(layer))
	for _, v := range layer {
		sum, n := 0.0, 0
		for _, u := range adj[v] {
			if counts(st.layerOf[u], l) {
				sum += float64(st.pos[u])
				n++
			}
		}
		if n == 0 {
			keys[v] = float64(st.pos[v])
			continue
		}
		keys[v] = sum / float64(n)
	}

	before := st.crossingsAround(ix, l)
	prev := slices.Clone(layer)
	slices.SortStableFunc(layer, func(a, b int) int {
		switch ka, kb := keys[a], keys[b]; {
		case ka < kb:
			return -1
		case ka > kb:
			return 1
		}
		return 0
	})
	st.reindex(layer)

	// Barycenters look past adjacent layers, so a reorder can still add
	// crossings next to l. Such a reorder is rolled back.
	if st.crossingsAround(ix, l) > before {
		copy(layer, prev)
		st.reindex(layer)
	}
}

// crossings counts pairwise crossings of edges that join adjacent layers.
func (st *state) crossings(ix *index) int {
	total := 0
	for l := 0; l+1 < len(st.layers); l++ {
		total += st.pairCrossings(ix, l)
	}
	return total
}

// crossingsAround counts the crossings that depend on the order of layer l.
func (st *state) crossingsAround(ix *index, l int) int {
	n := st.pairCrossings(ix, l)
	if l > 0 {
		n += st.pairCrossings(ix, l-1)
	}
	return n
}

// pairCrossings counts crossings among edges from layer l to layer l+1.
func (st *state) pairCrossings(ix *index, l int) int {
	if l+1 >= len(st.layers) {
		return 0
	}
	type span struct{ top, bottom int }
	var spans []span
	for _, u := range st.layers[l] {
		for _, v := range ix.succs[u] {
			if st.layerOf[v] == l+1 {
				spans = append(spans, span{st.pos[u], st.pos[v]})
			}
		}
	}

	total := 0
	for i := range spans {
		for j := i + 1; j < len(spans); j++ {
			a, b := spans[i], spans[j]
			if (a.top < b.top && a.bottom > b.bottom) || (a.top > b.top && a.bottom < b.bottom) {
				total++
			}
		}
	}
	return total
}
