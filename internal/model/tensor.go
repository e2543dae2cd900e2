// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the tensor records produced by the numeric layer. The
// client never computes them; it only stores, merges and displays them.
package model

import "fmt"

// TensorKind classifies a tensor for visualization selection.
type TensorKind string

const (
	KindVector       TensorKind = "vector"
	KindMatrix       TensorKind = "matrix"
	KindImage        TensorKind = "image"
	KindSparseMatrix TensorKind = "sparse_matrix"
	KindPointCloud   TensorKind = "pointcloud"
)

// Valid reports whether k is one of the known kinds.
func (k TensorKind) Valid() bool {
	switch k {
	case KindVector, KindMatrix, KindImage, KindSparseMatrix, KindPointCloud:
		return true
	}
	return false
}

// TensorSummary is the lightweight statistics record for one computed tensor.
type TensorSummary struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Kind             TensorKind     `json:"kind"`
	Tags             []string       `json:"tags"`
	Shape            []int          `json:"shape"`
	DType            string         `json:"dtype"`
	Stats            map[string]any `json:"stats"`
	RecommendedViews []string       `json:"recommended_views"`
}

// Size returns the number of elements implied by Shape.
func (s TensorSummary) Size() int {
	if len(s.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range s.Shape {
		n *= d
	}
	return n
}

// ShapeString renders the shape like "3x2".
func (s TensorSummary) ShapeString() string {
	out := ""
	for i, d := range s.Shape {
		if i > 0 {
			out += "x"
		}
		out += fmt.Sprint(d)
	}
	return out
}

// Stat returns a numeric statistic, if present.
func (s TensorSummary) Stat(name string) (float64, bool) {
	v, ok := s.Stats[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// TensorData is the full numeric payload of a small tensor. Data holds the
// nested lists exactly as decoded from JSON.
type TensorData struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Shape []int  `json:"shape"`
	DType string `json:"dtype"`
	Data  []any  `json:"data"`
}

// SliceRequest selects a row/column window of a 1D or 2D tensor. A nil end
// means "to the end of the axis".
type SliceRequest struct {
	RowStart int
	RowEnd   *int
	ColStart int
	ColEnd   *int
}

// TensorSlice is the payload returned for a SliceRequest.
type TensorSlice struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	FullShape  []int  `json:"full_shape"`
	SliceShape []int  `json:"slice_shape"`
	RowRange   [2]int `json:"row_range"`
	ColRange   [2]int `json:"col_range"`
	Data       []any  `json:"data"`
}
