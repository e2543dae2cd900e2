package layout

import (
	"github.com/vk/tensorscope/internal/dag"
	"github.com/vk/tensorscope/internal/model"
)

const (
	// DefaultHorizontalSpacing is the distance between two layers.
	DefaultHorizontalSpacing = 250.0
	// DefaultVerticalSpacing is the distance between two nodes of a layer.
	DefaultVerticalSpacing = 100.0
)

// Options controls coordinate assignment.
type Options struct {
	HorizontalSpacing float64
	VerticalSpacing   float64
}

// Option mutates Options.
type Option func(*Options)

// WithSpacing overrides both spacing constants. Non-positive values keep the
// defaults.
func WithSpacing(horizontal, vertical float64) Option {
	return func(o *Options) {
		if horizontal > 0 {
			o.HorizontalSpacing = horizontal
		}
		if vertical > 0 {
			o.VerticalSpacing = vertical
		}
	}
}

func newOptions(opts []Option) Options {
	o := Options{
		HorizontalSpacing: DefaultHorizontalSpacing,
		VerticalSpacing:   DefaultVerticalSpacing,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// IntegrityWarning reports an edge that was left out of the layout math.
type IntegrityWarning struct {
	EdgeIndex int
	Edge      model.GraphEdge
	Reason    string
}

// Error implements the error interface so warnings can be logged directly.
func (w IntegrityWarning) Error() string {
	return "edge " + w.Edge.String() + ": " + w.Reason
}

// Result is the output of Compute.
type Result struct {
	// Positions maps every declared node id to its coordinates.
	Positions map[string]model.Position
	// Layers maps every declared node id to its layer index.
	Layers map[string]int
	// Order lists node ids per layer, top to bottom.
	Order [][]string
	// Unresolved lists the nodes placed in the fallback layer because the
	// topological peel never freed them, in declaration order.
	Unresolved []string
	// Warnings lists edges that were dropped from the layout math.
	Warnings []IntegrityWarning

	opts Options
}

// Bounds returns the extent of the drawing measured between node anchors.
func (r *Result) Bounds() (width, height float64) {
	if r == nil || len(r.Order) == 0 {
		return 0, 0
	}
	tallest := 0
	for _, layer := range r.Order {
		if len(layer) > tallest {
			tallest = len(layer)
		}
	}
	return float64(len(r.Order)-1) * r.opts.HorizontalSpacing,
		float64(tallest-1) * r.opts.VerticalSpacing
}

// Compute lays out the graph.
func Compute(g model.Graph, opts ...Option) *Result {
	o := newOptions(opts)
	ix, dropped := newIndex(g)

	res := &Result{
		Positions: make(map[string]model.Position, len(ix.ids)),
		Layers:    make(map[string]int, len(ix.ids)),
		opts:      o,
	}
	for _, d := range dropped {
		res.Warnings = append(res.Warnings, IntegrityWarning{
			EdgeIndex: d.Index,
			Edge:      d.Edge,
			Reason:    d.Err.Error(),
		})
	}
	if len(ix.ids) == 0 {
		return res
	}

	st, unresolved := assignLayers(ix)
	st.forwardSweep(ix)
	st.backwardSweep(ix)

	for _, v := range unresolved {
		res.Unresolved = append(res.Unresolved, ix.ids[v])
	}
	st.fill(ix, res)
	return res
}

// Refine runs one extra forward and backward barycenter pass over an existing
// result. The refined order is kept only if it does not add edge crossings,
// so the crossing count of the returned Result never exceeds the input's.
func Refine(g model.Graph, prev *Result) *Result {
	if prev == nil {
		return Compute(g)
	}
	ix, _ := newIndex(g)
	st, ok := stateFromResult(ix, prev)
	if !ok {
		return Compute(g, WithSpacing(prev.opts.HorizontalSpacing, prev.opts.VerticalSpacing))
	}

	before := st.crossings(ix)
	st.forwardSweep(ix)
	st.backwardSweep(ix)
	if st.crossings(ix) > before {
		return prev
	}

	res := &Result{
		Positions:  make(map[string]model.Position, len(ix.ids)),
		Layers:     make(map[string]int, len(ix.ids)),
		Unresolved: prev.Unresolved,
		Warnings:   prev.Warnings,
		opts:       prev.opts,
	}
	st.fill(ix, res)
	return res
}

// CountCrossings returns the number of edge crossings between adjacent
// layers of a result.
func CountCrossings(g model.Graph, res *Result) int {
	ix, _ := newIndex(g)
	st, ok := stateFromResult(ix, res)
	if !ok {
		return 0
	}
	return st.crossings(ix)
}

// index is the integer form of the graph used by the sweeps.
type index struct {
	ids   []string
	pos   map[string]int
	preds [][]int
	succs [][]int
}

func newIndex(g model.Graph) (*index, []*dag.EdgeError) {
	adj, dropped := dag.Build(g)
	ids := adj.Nodes()

	ix := &index{
		ids:   ids,
		pos:   make(map[string]int, len(ids)),
		preds: make([][]int, len(ids)),
		succs: make([][]int, len(ids)),
	}
	for i, id := range ids {
		ix.pos[id] = i
	}
	for i, id := range ids {
		deps, _ := adj.Dependencies(id)
		for _, d := range deps {
			ix.preds[i] = append(ix.preds[i], ix.pos[d])
		}
		dependents, _ := adj.Dependents(id)
		for _, d := range dependents {
			ix.succs[i] = append(ix.succs[i], ix.pos[d])
		}
	}
	return ix, dropped
}
