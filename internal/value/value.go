// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

// Package value implements the type-erased, slot-tracked value storage
// described in §3.3/§4.1 of the runtime spec: Scalar, Set, Map, Bundle,
// List, Window, Queue and Ref containers, each interpreted through a
// *typemeta.TypeMeta and each carrying a *tracker.Tracker for
// modification bookkeeping.
package value

import (
	"fmt"

	"hgraph/internal/tracker"
	"hgraph/internal/typemeta"
)

// Ownership distinguishes an owned Value (exclusive, destructed on drop)
// from a viewed Value (non-owning, lifetime bounded by its owner), per
// §3.3. HGraph leans on Go's garbage collector for the owned case and
// uses Ownership purely as a contract marker surfaced through View.
type Ownership uint8

const (
	Owned Ownership = iota
	Viewed
)

// Value is a typed byte buffer interpreted through a TypeMeta. The actual
// Go representation (repr) is one of the kind-specific storage types in
// this package (scalarStorage, setStorage, mapStorage, bundleStorage,
// listStorage, windowStorage, queueStorage, refStorage); the Value itself
// never branches on kind except to pick the right storage constructor.
type Value struct {
	tm      *typemeta.TypeMeta
	tracker *tracker.Tracker
	repr    any
	own     Ownership
}

// New constructs an owned, zero-initialized Value of the given type.
func New(tm *typemeta.TypeMeta) *Value {
	v := &Value{tm: tm, tracker: tracker.New(), own: Owned}
	v.repr = newRepr(tm)
	return v
}

func newRepr(tm *typemeta.TypeMeta) any {
	switch tm.Kind() {
	case typemeta.KindScalar:
		return newScalarStorage(tm)
	case typemeta.KindSet:
		return newSetStorage(tm)
	case typemeta.KindMap:
		return newMapStorage(tm)
	case typemeta.KindBundle:
		return newBundleStorage(tm)
	case typemeta.KindList:
		return newListStorage(tm)
	case typemeta.KindWindow:
		return newWindowStorage(tm)
	case typemeta.KindQueue:
		return newQueueStorage(tm)
	case typemeta.KindRef:
		return newRefStorage(tm)
	default:
		panic(fmt.Sprintf("value: unsupported kind %s", tm.Kind()))
	}
}

func (v *Value) TypeMeta() *typemeta.TypeMeta { return v.tm }
func (v *Value) Tracker() *tracker.Tracker    { return v.tracker }
func (v *Value) Ownership() Ownership         { return v.own }

// EndTick runs end-of-tick housekeeping on v: the tracker's per-tick
// delta sets are cleared and slots removed this tick become eligible for
// reuse (§4.1's slot-reuse rule), and any kind-specific tick-local state
// (set/map tombstones, a window's just-evicted element) is cleared too.
// Called once per Output per tick by the engine's end-of-tick callback
// set (§4.5 step 6).
func (v *Value) EndTick() {
	switch s := v.repr.(type) {
	case *setStorage:
		s.endTick()
	case *mapStorage:
		s.endTick()
	case *windowStorage:
		s.endTick()
	}
	v.tracker.EndTick()
}

// View returns a non-owning, read-only projection of v.
func (v *Value) View() View {
	return View{v: v}
}

// CopyFrom replaces v's contents with a deep copy of src. src must share
// v's TypeMeta (wiring error otherwise, detected by the caller via
// pointer inequality before calling this).
func (v *Value) CopyFrom(src *Value) {
	if src.tm != v.tm {
		panic("value: CopyFrom type mismatch " + v.tm.Name() + " != " + src.tm.Name())
	}
	v.repr = copyRepr(v.tm, src.repr)
}

func copyRepr(tm *typemeta.TypeMeta, src any) any {
	switch tm.Kind() {
	case typemeta.KindScalar:
		s := src.(*scalarStorage)
		cp := *s
		return &cp
	case typemeta.KindSet:
		return src.(*setStorage).clone()
	case typemeta.KindMap:
		return src.(*mapStorage).clone()
	case typemeta.KindBundle:
		return src.(*bundleStorage).clone()
	case typemeta.KindList:
		return src.(*listStorage).clone()
	case typemeta.KindWindow:
		return src.(*windowStorage).clone()
	case typemeta.KindQueue:
		return src.(*queueStorage).clone()
	case typemeta.KindRef:
		r := src.(*refStorage)
		cp := *r
		return &cp
	default:
		panic("value: unsupported kind in copyRepr")
	}
}
