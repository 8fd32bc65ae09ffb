// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package value

import "hgraph/internal/typemeta"

type scalarStorage struct {
	val any
}

func newScalarStorage(tm *typemeta.TypeMeta) *scalarStorage {
	return &scalarStorage{val: tm.Ops().Construct()}
}

// ApplyScalar converts hv through the TypeMeta's FromHost op and stores
// it. It does not touch the tracker: callers (Output.Apply) mark the
// modification time and are responsible for monotonicity checks.
func (v *Value) ApplyScalar(hv typemeta.HostValue) error {
	s := v.repr.(*scalarStorage)
	converted, err := v.tm.Ops().FromHost(hv)
	if err != nil {
		return err
	}
	s.val = converted
	return nil
}

// ScalarValue returns the current host-facing representation of a Scalar
// Value.
func (v View) ScalarValue() typemeta.HostValue {
	s := v.v.repr.(*scalarStorage)
	return v.v.tm.Ops().ToHost(s.val)
}

// ScalarEquals compares two scalar Values for equality using the shared
// TypeMeta's Equals op. Panics if the TypeMeta isn't Equatable.
func ScalarEquals(tm *typemeta.TypeMeta, a, b *Value) bool {
	if !tm.Capabilities().Has(typemeta.CapEquatable) {
		panic("value: ScalarEquals on non-equatable type " + tm.Name())
	}
	as := a.repr.(*scalarStorage)
	bs := b.repr.(*scalarStorage)
	return tm.Ops().Equals(as.val, bs.val)
}
