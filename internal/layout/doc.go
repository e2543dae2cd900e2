// Package layout places the nodes of an operator graph on a 2D canvas.
//
// # Algorithm
//
// The engine is a small Sugiyama-style pipeline:
//
//  1. Layering. A breadth-first topological peel assigns layer 0 to every node
//     without predecessors, then repeatedly removes the current layer's
//     outgoing edges and puts the nodes whose in-degree dropped to zero into the
//     next layer. Nodes that are never freed (members of a cycle and anything
//     downstream of one) share a single fallback layer after the last resolved
//     layer. Self-loops never block a node.
//
//  2. Initial order. Every layer starts in graph declaration order.
//
//  3. Crossing reduction. One forward sweep orders each layer by the barycenter
//     (mean position index) of its predecessors in earlier layers, one backward
//     sweep does the same with successors in later layers. The sort is stable.
//     A node without such neighbors keeps its current index as its key rather
//     than 0: with a key of 0 the backward sweep would move isolated layer-0
//     nodes in front of the connected ones, while they must keep continuing
//     the declaration order of layer 0. A reorder that would add crossings
//     between the layer and its neighbors is rolled back, so a sweep never
//     increases the crossing count.
//
//  4. Coordinates. x = layer * horizontal spacing; y = index * vertical
//     spacing, shifted so every layer is centered against the tallest one.
//
// Crossing minimization is NP-hard; the result is reduced, not minimal.
//
// # Guarantees
//
// Compute is a pure function. The same graph always yields the same Result,
// every declared node gets exactly one position and malformed edges (unknown
// endpoints) are dropped from the math and reported as warnings, never as
// errors.
package layout
