// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package value

import (
	"hgraph/internal/enginetime"
	"hgraph/internal/tracker"
	"hgraph/internal/typemeta"
)

// Delta is a non-owning, kind-dispatched projection of what changed in a
// Value during the current tick (§4.7). It holds no storage of its own
// beyond a pointer back to the Value and is cheap enough to construct on
// every observer callback without pooling.
type Delta struct {
	v *Value
}

// DeltaAt returns the Delta for v at time at, valid only while at is the
// tick in which v was last modified (§4.7's closure invariant); the bool
// mirrors that validity so callers never read a stale delta by accident.
func DeltaAt(v *Value, at enginetime.Time) (Delta, bool) {
	if !v.tracker.ModifiedAt(at) {
		return Delta{}, false
	}
	return Delta{v: v}, true
}

func (d Delta) Kind() typemeta.Kind { return d.v.tm.Kind() }

// ScalarValue returns the current value for a Scalar Delta; for scalars
// the delta is simply the value itself (§4.7 table).
func (d Delta) ScalarValue() typemeta.HostValue { return d.v.View().ScalarValue() }

// SetAdded and SetRemoved enumerate slots added/removed from a Set this
// tick. Removed elements are still readable (slot retention, §4.1) since
// the free list only gains entries at EndTick.
func (d Delta) SetAdded() []typemeta.HostValue {
	return d.collectSlots(d.v.tracker.AddedThisTick(), d.v.repr.(*setStorage).bySlot, d.v.repr.(*setStorage).elemTM)
}

func (d Delta) SetRemoved() []typemeta.HostValue {
	return d.removedSetSlots()
}

// removedSetSlots must read the pre-removal element, which the normal
// bySlot map no longer has once RemoveFromSet runs. RemoveFromSet itself
// keeps the slot's last value in setStorage's side tombstone map until
// EndTick, so no caller needs to snapshot anything before removal.
func (d Delta) removedSetSlots() []typemeta.HostValue {
	s := d.v.repr.(*setStorage)
	slots := d.v.tracker.RemovedThisTick()
	out := make([]typemeta.HostValue, 0, len(slots))
	for _, slot := range slots {
		if elem, ok := s.tombstones[slot]; ok {
			out = append(out, s.elemTM.Ops().ToHost(elem))
		}
	}
	return out
}

func (d Delta) collectSlots(slots []tracker.SlotID, bySlot map[tracker.SlotID]any, elemTM *typemeta.TypeMeta) []typemeta.HostValue {
	out := make([]typemeta.HostValue, 0, len(slots))
	for _, slot := range slots {
		if elem, ok := bySlot[slot]; ok {
			out = append(out, elemTM.Ops().ToHost(elem))
		}
	}
	return out
}

// MapAdded, MapRemoved, MapUpdated enumerate keys in each category this
// tick (§8 scenario 3). MapAddedEntries/MapUpdatedEntries also surface the
// current value for convenience.
func (d Delta) MapAdded() []typemeta.HostValue   { return d.mapKeys(d.v.tracker.AddedThisTick()) }
func (d Delta) MapUpdated() []typemeta.HostValue { return d.mapKeys(d.v.tracker.UpdatedThisTick()) }
func (d Delta) MapRemoved() []typemeta.HostValue {
	m := d.v.repr.(*mapStorage)
	slots := d.v.tracker.RemovedThisTick()
	out := make([]typemeta.HostValue, 0, len(slots))
	for _, slot := range slots {
		if entry, ok := m.tombstones[slot]; ok {
			out = append(out, m.keyTM.Ops().ToHost(entry.key))
		}
	}
	return out
}

func (d Delta) mapKeys(slots []tracker.SlotID) []typemeta.HostValue {
	m := d.v.repr.(*mapStorage)
	out := make([]typemeta.HostValue, 0, len(slots))
	for _, slot := range slots {
		if entry, ok := m.bySlot[slot]; ok {
			out = append(out, m.keyTM.Ops().ToHost(entry.key))
		}
	}
	return out
}

// MapAddedEntries and MapUpdatedEntries pair each reported key with its
// current value.
func (d Delta) MapAddedEntries() map[typemeta.HostValue]typemeta.HostValue {
	return d.mapEntries(d.v.tracker.AddedThisTick())
}

func (d Delta) MapUpdatedEntries() map[typemeta.HostValue]typemeta.HostValue {
	return d.mapEntries(d.v.tracker.UpdatedThisTick())
}

func (d Delta) mapEntries(slots []tracker.SlotID) map[typemeta.HostValue]typemeta.HostValue {
	m := d.v.repr.(*mapStorage)
	out := make(map[typemeta.HostValue]typemeta.HostValue, len(slots))
	for _, slot := range slots {
		if entry, ok := m.bySlot[slot]; ok {
			out[m.keyTM.Ops().ToHost(entry.key)] = m.valTM.Ops().ToHost(entry.val)
		}
	}
	return out
}

// BundleModifiedFields returns the indices of fields written during the
// current tick, in field-declaration order.
func (d Delta) BundleModifiedFields() []int {
	fields := d.v.tm.Fields()
	out := make([]int, 0, len(fields))
	for i := range fields {
		if d.v.tracker.FieldModifiedAt(i) == d.v.tracker.WholeModifiedAt() {
			out = append(out, i)
		}
	}
	return out
}

// ListModifiedIndices returns the list indices written during the
// current tick.
func (d Delta) ListModifiedIndices() []int {
	l := d.v.repr.(*listStorage)
	out := make([]int, 0)
	for i := range l.elems {
		if d.v.tracker.IndexModifiedAt(i) == d.v.tracker.WholeModifiedAt() {
			out = append(out, i)
		}
	}
	return out
}

// WindowPushed returns the most recently pushed element and its
// timestamp.
func (d Delta) WindowPushed() (typemeta.HostValue, int64) {
	w := d.v.repr.(*windowStorage)
	last := w.entries[len(w.entries)-1]
	return w.elemTM.Ops().ToHost(last.val), last.ts
}

// WindowEvicted forwards to View.WindowEvicted.
func (d Delta) WindowEvicted() (typemeta.HostValue, int64, bool) { return d.v.View().WindowEvicted() }

// RefCurrent returns the Ref's current value.
func (d Delta) RefCurrent() Ref { return d.v.View().RefValue() }
