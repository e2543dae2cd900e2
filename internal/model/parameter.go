// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines scenario parameters and the rules for checking a value
// against a parameter's declared domain.
//
// Why keep values as `any`?
//
// The server accepts floats, ints and strings for parameter values and echoes
// them back untouched. Keeping the dynamic type avoids lossy conversions; the
// helpers below normalize numbers to float64 where a comparison is needed.
package model

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ParamType distinguishes slider-style from dropdown-style parameters.
type ParamType string

const (
	ParamContinuous ParamType = "continuous"
	ParamDiscrete   ParamType = "discrete"
)

// ErrOutOfDomain is wrapped by every validation failure.
var ErrOutOfDomain = errors.New("value outside parameter domain")

// Parameter is one tunable knob of a scenario.
type Parameter struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Type        ParamType `json:"type"`
	Default     any       `json:"default"`
	Description string    `json:"description"`
	Min         *float64  `json:"min,omitempty"`
	Max         *float64  `json:"max,omitempty"`
	Step        *float64  `json:"step,omitempty"`
	Options     []any     `json:"options,omitempty"`
}

// DisplayLabel returns DisplayName, falling back to a title-cased Name
// ("noise_level" -> "Noise Level").
func (p Parameter) DisplayLabel() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	words := strings.Split(p.Name, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Validate checks value against the parameter's domain.
func (p Parameter) Validate(value any) error {
	switch p.Type {
	case ParamDiscrete:
		if p.Options == nil {
			return nil
		}
		for _, opt := range p.Options {
			if sameValue(opt, value) {
				return nil
			}
		}
		return fmt.Errorf("%w: %s=%v not in options %v", ErrOutOfDomain, p.Name, value, p.Options)
	default:
		f, ok := AsFloat(value)
		if !ok {
			return fmt.Errorf("%w: %s expects a number, got %T", ErrOutOfDomain, p.Name, value)
		}
		if p.Min != nil && f < *p.Min {
			return fmt.Errorf("%w: %s=%v is below minimum %v", ErrOutOfDomain, p.Name, f, *p.Min)
		}
		if p.Max != nil && f > *p.Max {
			return fmt.Errorf("%w: %s=%v is above maximum %v", ErrOutOfDomain, p.Name, f, *p.Max)
		}
		return nil
	}
}

// Coerce turns a raw string (for example from a command line flag) into a
// value of the parameter's type. Discrete values resolve to the matching
// option itself so the original type is preserved.
func (p Parameter) Coerce(raw string) (any, error) {
	if p.Type == ParamDiscrete {
		for _, opt := range p.Options {
			if fmt.Sprint(opt) == raw {
				return opt, nil
			}
		}
		if p.Options == nil {
			return raw, nil
		}
		return nil, fmt.Errorf("%w: %s=%q not in options %v", ErrOutOfDomain, p.Name, raw, p.Options)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s expects a number: %v", ErrOutOfDomain, p.Name, err)
	}
	return f, nil
}

// Defaults maps each parameter name to its declared default.
func Defaults(params []Parameter) map[string]any {
	out := make(map[string]any, len(params))
	for _, p := range params {
		out[p.Name] = p.Default
	}
	return out
}

// AsFloat normalizes the numeric types JSON and config decoders produce.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func sameValue(a, b any) bool {
	fa, aok := AsFloat(a)
	fb, bok := AsFloat(b)
	if aok && bok {
		return fa == fb
	}
	return reflect.DeepEqual(a, b)
}
