// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package value

import (
	"hgraph/internal/enginetime"
	"hgraph/internal/typemeta"
)

// View is a non-owning, read-only projection of a Value. It never
// outlives the Value it projects and carries no storage of its own;
// kind-specific accessors (ScalarValue, SetElements, BundleField, ...)
// live alongside each storage type's definition.
type View struct {
	v *Value
}

// TypeMeta returns the viewed Value's type descriptor.
func (v View) TypeMeta() *typemeta.TypeMeta { return v.v.tm }

// Valid reports whether the View projects a live Value. A zero View (no
// underlying Value) is invalid; every accessor on it would panic.
func (v View) Valid() bool { return v.v != nil }

// LastModifiedTime is a convenience forward to the underlying Value's
// tracker, used by consumers that hold only a View.
func (v View) LastModifiedTime() enginetime.Time { return v.v.tracker.WholeModifiedAt() }
