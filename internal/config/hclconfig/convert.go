package hclconfig

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/tensorscope/internal/config"
)

// decodeParameters evaluates the parameters attribute. It must be an object
// or a map; variables and functions are not available.
func decodeParameters(expr hcl.Expression) (map[string]any, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: parameters: %w", config.ErrInvalid, diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, fmt.Errorf("%w: parameters must be an object, got %s", config.ErrInvalid, val.Type().FriendlyName())
	}
	out, err := ctyToGo(val)
	if err != nil {
		return nil, fmt.Errorf("%w: parameters: %w", config.ErrInvalid, err)
	}
	return out.(map[string]any), nil
}

// ctyToGo converts a cty.Value into the Go values a JSON decoder would
// produce: numbers become float64.
func ctyToGo(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), nil
	case ty == cty.Number:
		f, _ := val.AsBigFloat().Float64()
		return f, nil
	case ty == cty.Bool:
		return val.True(), nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			converted, err := ctyToGo(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = converted
		}
		return out, nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := []any{}
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			converted, err := ctyToGo(v)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type: %s", ty.FriendlyName())
	}
}
