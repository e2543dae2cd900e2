// Package dag is the adjacency index behind the layout engine. It turns the
// edge list of an operator graph into ordered predecessor and successor sets,
// records self-loops separately from ordinary edges and reports edges that
// reference unknown nodes instead of failing.
//
// Despite the name, the graph held here may contain cycles; DetectCycles
// reports the first one it finds so callers can log it.
//
// Iteration order is always insertion order, never map order. The layout
// engine depends on this for deterministic output.
package dag
