// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package value

import (
	"hgraph/internal/addrs"
	"hgraph/internal/typemeta"
)

// RefState is the sealed variant set a Ref value can be in (§3.3): it is
// never modeled as a derived type, only as a tag plus payload.
type RefState uint8

const (
	RefEmpty RefState = iota
	RefPeered
	RefNonPeered
)

// Ref is the value carried by a Ref-kind Value: either nothing, a single
// resolvable Path, or a vector of nested Refs (for a collection-shaped
// reference target).
type Ref struct {
	State    RefState
	Path     addrs.Path
	Children []Ref
}

// EmptyRef is the zero Ref, equivalent to RefState Empty.
var EmptyRef = Ref{State: RefEmpty}

// PeeredRef constructs a Ref resolving to a single path.
func PeeredRef(p addrs.Path) Ref { return Ref{State: RefPeered, Path: p} }

// NonPeeredRef constructs a Ref wrapping element-wise child refs.
func NonPeeredRef(children []Ref) Ref { return Ref{State: RefNonPeered, Children: children} }

// Equal reports structural equality between two Refs, used by
// TSRefTargetLink to decide whether a rebind actually changed anything.
func (r Ref) Equal(other Ref) bool {
	if r.State != other.State {
		return false
	}
	switch r.State {
	case RefEmpty:
		return true
	case RefPeered:
		return r.Path.Equal(other.Path)
	case RefNonPeered:
		if len(r.Children) != len(other.Children) {
			return false
		}
		for i := range r.Children {
			if !r.Children[i].Equal(other.Children[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

type refStorage struct {
	ref Ref
}

func newRefStorage(tm *typemeta.TypeMeta) *refStorage {
	return &refStorage{ref: EmptyRef}
}

// SetRef replaces v's ref payload. Unlike the scalar/collection setters
// this does not go through TypeMeta.Ops().FromHost: Ref has no host
// boundary representation of its own (§3.3), it is constructed directly
// by the binding machinery resolving a Path.
func SetRef(v *Value, r Ref) {
	v.repr.(*refStorage).ref = r
}

// RefValue returns the current Ref payload.
func (v View) RefValue() Ref {
	return v.v.repr.(*refStorage).ref
}
