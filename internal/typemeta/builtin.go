// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package typemeta

import (
	"fmt"
	"reflect"
)

// Builtins holds the canonical TypeMetas for the primitive scalar kinds
// every HGraph program can use without declaring its own schema, mirroring
// cty's Number/String/Bool primitive types.
type Builtins struct {
	Int    *TypeMeta
	Float  *TypeMeta
	Bool   *TypeMeta
	String *TypeMeta
	// Ref is the canonical Ref TypeMeta. A Ref carries no element payload
	// of its own (its Children are themselves typed by whatever output
	// they ultimately resolve to), so one canonical instance suffices
	// for every Ref-kind Value in a process.
	Ref *TypeMeta
}

// RegisterBuiltins registers the primitive scalar TypeMetas against r and
// returns them. Safe to call more than once; signatures canonicalize.
func RegisterBuiltins(r *Registry) Builtins {
	return Builtins{
		Int:    r.MustRegister(scalarBuilder[int64]("int")),
		Float:  r.MustRegister(scalarBuilder[float64]("float")),
		Bool:   r.MustRegister(scalarBuilder[bool]("bool")),
		String: r.MustRegister(scalarBuilder[string]("string")),
		Ref:    r.MustRegister(Builder{Kind: KindRef, Name: "ref"}),
	}
}

func scalarBuilder[T comparable](name string) Builder {
	var zero T
	return Builder{
		Kind: KindScalar,
		Name: name,
		Caps: CapEquatable | CapHashable | CapTriviallyCopyable,
		Size: reflect.TypeOf(zero).Size(),
		Ops: Ops{
			Construct:     func() any { return zero },
			CopyConstruct: func(src any) any { return src },
			Equals: func(a, b any) bool {
				av, aok := a.(T)
				bv, bok := b.(T)
				return aok && bok && av == bv
			},
			Hash: func(a any) uint64 {
				v, _ := a.(T)
				return fnv64(fmt.Sprint(v))
			},
			ToHost:   func(a any) HostValue { return a },
			FromHost: func(hv HostValue) (any, error) { return coerceScalar[T](hv) },
			ToString: func(a any) string { return fmt.Sprint(a) },
		},
	}
}

func coerceScalar[T comparable](hv HostValue) (any, error) {
	if v, ok := hv.(T); ok {
		return v, nil
	}
	var zero T
	return nil, fmt.Errorf("typemeta: cannot convert %T to %T", hv, zero)
}

// fnv64 is a small dependency-free string hash used only for scalar
// TypeMeta.Hash; it is not exposed and is not meant to be cryptographic.
func fnv64(s string) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}
