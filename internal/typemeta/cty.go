// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package typemeta

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// ToCty converts a scalar builtin's host-facing value into its cty.Value
// representation, the host-value bridge format used at persistence and
// CLI-reporting boundaries (§2.2 DOMAIN STACK: "scalar kinds borrow
// cty.Type/cty.Value as the host-value bridge"). Only the four builtin
// scalar kinds registered by RegisterBuiltins are supported; a
// user-declared Bundle/Set/Map TypeMeta has no canonical cty shape of its
// own and is out of scope for this bridge.
func ToCty(tm *TypeMeta, hv HostValue) (cty.Value, error) {
	if tm.Kind() != KindScalar {
		return cty.NilVal, fmt.Errorf("typemeta: ToCty only supports scalar kinds, got %s", tm.Kind())
	}
	switch v := hv.(type) {
	case int64:
		return cty.NumberIntVal(v), nil
	case float64:
		return cty.NumberFloatVal(v), nil
	case bool:
		return cty.BoolVal(v), nil
	case string:
		return cty.StringVal(v), nil
	default:
		return cty.NilVal, fmt.Errorf("typemeta: ToCty: unsupported host value type %T", hv)
	}
}

// CtyType returns the cty.Type a builtin scalar TypeMeta bridges to, for
// callers (internal/recordable) that need a cty.Type to pair with
// ctyjson.Marshal/Unmarshal.
func CtyType(tm *TypeMeta) (cty.Type, error) {
	if tm.Kind() != KindScalar {
		return cty.NilType, fmt.Errorf("typemeta: CtyType only supports scalar kinds, got %s", tm.Kind())
	}
	switch tm.Name() {
	case "int", "float":
		return cty.Number, nil
	case "bool":
		return cty.Bool, nil
	case "string":
		return cty.String, nil
	default:
		return cty.NilType, fmt.Errorf("typemeta: CtyType: unsupported builtin type %q", tm.Name())
	}
}

// FromCty converts a cty.Value back into the host-facing representation
// expected by tm's FromHost op.
func FromCty(tm *TypeMeta, v cty.Value) (HostValue, error) {
	if tm.Kind() != KindScalar {
		return nil, fmt.Errorf("typemeta: FromCty only supports scalar kinds, got %s", tm.Kind())
	}
	if v.IsNull() {
		return nil, fmt.Errorf("typemeta: FromCty: null value has no host representation")
	}
	switch tm.Name() {
	case "int":
		i, _ := v.AsBigFloat().Int64()
		return i, nil
	case "float":
		f, _ := v.AsBigFloat().Float64()
		return f, nil
	case "bool":
		return v.True(), nil
	case "string":
		return v.AsString(), nil
	default:
		return nil, fmt.Errorf("typemeta: FromCty: unsupported builtin type %q", tm.Name())
	}
}
