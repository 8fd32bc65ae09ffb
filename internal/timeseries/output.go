// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package timeseries

import (
	"hgraph/internal/diag"
	"hgraph/internal/enginetime"
	"hgraph/internal/typemeta"
	"hgraph/internal/value"
)

// TickRegistrar lets an Output register a callback to run once at
// end-of-tick (delta reset, slot-freelist advance) without holding a
// direct reference to the engine's scheduler (§4.5 step 6; §9 design
// note: "a single callback-set owned by the engine plus a small
// descriptor... to avoid heap churn on every tick"). RegisterEndOfTick
// itself must be idempotent per (Output, tick): the engine keys its
// callback set by the Output pointer so repeated Apply calls in the same
// tick register the reset only once.
type TickRegistrar interface {
	RegisterEndOfTick(o *Output)
}

// Output owns a Value, its ModificationTracker, and an Overlay: the
// writable endpoint of a time-series edge (§3.5).
type Output struct {
	tm      *typemeta.TypeMeta
	val     *value.Value
	overlay *Overlay
	invalid bool
	name    string // diagnostic label, typically "graph:node:output"
}

// NewOutput constructs an Output of type tm. name is used only to
// attribute diagnostics.
func NewOutput(tm *typemeta.TypeMeta, name string) *Output {
	return &Output{tm: tm, val: value.New(tm), overlay: NewOverlay(), name: name}
}

func (o *Output) TypeMeta() *typemeta.TypeMeta      { return o.tm }
func (o *Output) View() value.View                  { return o.val.View() }
func (o *Output) Name() string                      { return o.name }
func (o *Output) LastModifiedTime() enginetime.Time { return o.val.Tracker().WholeModifiedAt() }
func (o *Output) IsInvalid() bool                   { return o.invalid }

// ModifiedAt reports whether o changed exactly at t (§3.5, §4.7).
func (o *Output) ModifiedAt(t enginetime.Time) bool { return o.val.Tracker().ModifiedAt(t) }

// Delta returns the DeltaView for this output at t, valid only when
// ModifiedAt(t) (§4.2, §4.7).
func (o *Output) Delta(t enginetime.Time) (value.Delta, bool) { return value.DeltaAt(o.val, t) }

// Subscribe/Unsubscribe register or remove a subscriber with this
// output's overlay; idempotent (§4.2).
func (o *Output) Subscribe(s Subscriber)   { o.overlay.Subscribe(s) }
func (o *Output) Unsubscribe(s Subscriber) { o.overlay.Unsubscribe(s) }

// EndTick runs the output's end-of-tick housekeeping (delta reset,
// slot-freelist advance); invoked by the engine via the TickRegistrar
// callback set, never directly by node code.
func (o *Output) EndTick() { o.val.EndTick() }

// checkMonotonic enforces §4.2's "applying with time < last_modified_time
// is fatal (non-monotonic)" protocol-error rule.
func (o *Output) checkMonotonic(t enginetime.Time) diag.Diagnostics {
	if t.Before(o.LastModifiedTime()) {
		return diag.Diagnostics{diag.Errorf(
			"timeseries: output %q: non-monotonic apply at %s (last modified at %s)",
			o.name, t, o.LastModifiedTime(),
		)}
	}
	return nil
}

// commit finalizes a successful apply: marks the tracker, clears the
// invalid flag, registers the end-of-tick reset, and notifies
// subscribers. Shared by every kind-specific Apply* method below.
func (o *Output) commit(t enginetime.Time, reg TickRegistrar) {
	o.val.Tracker().MarkWhole(t)
	o.invalid = false
	reg.RegisterEndOfTick(o)
	o.overlay.NotifyAll(t)
}

// MarkInvalid clears the output's value and notifies subscribers with an
// invalid-value signal (§4.2); it still advances last_modified_time, so
// monotonicity still applies to invalidation.
func (o *Output) MarkInvalid(t enginetime.Time, reg TickRegistrar) diag.Diagnostics {
	if diags := o.checkMonotonic(t); diags.HasErrors() {
		return diags
	}
	o.invalid = true
	o.val = value.New(o.tm)
	o.val.Tracker().MarkWhole(t)
	reg.RegisterEndOfTick(o)
	o.overlay.NotifyAll(t)
	return nil
}

// Apply is the Scalar-kind entry point (§4.2): converts hv through the
// TypeMeta and marks the whole value modified at t. A nil hv is
// equivalent to MarkInvalid. Collection/Bundle/List/Window/Queue/Ref
// kinds use the kind-specific Apply* methods below instead, since their
// "value" is a delta (add/remove/update), not a whole replacement.
func (o *Output) Apply(hv typemeta.HostValue, t enginetime.Time, reg TickRegistrar) diag.Diagnostics {
	if hv == nil {
		return o.MarkInvalid(t, reg)
	}
	if o.tm.Kind() != typemeta.KindScalar {
		return diag.Diagnostics{diag.Errorf(
			"timeseries: output %q: Apply called on non-scalar output (kind %s); use the kind-specific Apply method",
			o.name, o.tm.Kind(),
		)}
	}
	if diags := o.checkMonotonic(t); diags.HasErrors() {
		return diags
	}
	if err := o.val.ApplyScalar(hv); err != nil {
		return diag.Diagnostics{diag.Errorf("timeseries: output %q: %v", o.name, err)}
	}
	o.commit(t, reg)
	return nil
}

// ApplyBundleField sets one bundle field and marks it (and the whole
// value) modified at t.
func (o *Output) ApplyBundleField(idx int, hv typemeta.HostValue, t enginetime.Time, reg TickRegistrar) diag.Diagnostics {
	if diags := o.checkMonotonic(t); diags.HasErrors() {
		return diags
	}
	if err := value.SetBundleField(o.val, idx, hv); err != nil {
		return diag.Diagnostics{diag.Errorf("timeseries: output %q: %v", o.name, err)}
	}
	o.val.Tracker().MarkField(idx, t)
	o.invalid = false
	reg.RegisterEndOfTick(o)
	o.overlay.NotifyAll(t)
	return nil
}

// ApplyListIndex sets one list element and marks that index modified.
func (o *Output) ApplyListIndex(idx int, hv typemeta.HostValue, t enginetime.Time, reg TickRegistrar) diag.Diagnostics {
	if diags := o.checkMonotonic(t); diags.HasErrors() {
		return diags
	}
	if err := value.SetListIndex(o.val, idx, hv); err != nil {
		return diag.Diagnostics{diag.Errorf("timeseries: output %q: %v", o.name, err)}
	}
	o.val.Tracker().MarkIndex(idx, t)
	o.invalid = false
	reg.RegisterEndOfTick(o)
	o.overlay.NotifyAll(t)
	return nil
}

// ApplySetDelta adds and removes elements in one tick. add/remove may
// each be empty. A same-tick add-then-remove of the identical element
// cancels per the tracker's slot bookkeeping (§9 Open Question).
func (o *Output) ApplySetDelta(add, remove []typemeta.HostValue, t enginetime.Time, reg TickRegistrar) diag.Diagnostics {
	if diags := o.checkMonotonic(t); diags.HasErrors() {
		return diags
	}
	var diags diag.Diagnostics
	for _, hv := range add {
		slot, isNew, err := value.AddToSet(o.val, hv)
		if err != nil {
			diags = diags.Append(diag.Errorf("timeseries: output %q: %v", o.name, err))
			continue
		}
		if isNew {
			o.val.Tracker().MarkSlotAdded(slot, t)
		}
	}
	for _, hv := range remove {
		slot, existed, err := value.RemoveFromSet(o.val, hv)
		if err != nil {
			diags = diags.Append(diag.Errorf("timeseries: output %q: %v", o.name, err))
			continue
		}
		if existed {
			o.val.Tracker().MarkSlotRemoved(slot, t)
		}
	}
	if diags.HasErrors() {
		return diags
	}
	o.invalid = false
	reg.RegisterEndOfTick(o)
	o.overlay.NotifyAll(t)
	return diags
}

// ApplyMapDelta inserts/updates/removes entries in one tick. A value
// that is value.Remove or value.RemoveIfExists requests removal of the
// corresponding key instead of an insert/update (§6, §9 design notes).
func (o *Output) ApplyMapDelta(entries map[typemeta.HostValue]typemeta.HostValue, t enginetime.Time, reg TickRegistrar) diag.Diagnostics {
	if diags := o.checkMonotonic(t); diags.HasErrors() {
		return diags
	}
	var diags diag.Diagnostics
	for hkey, hval := range entries {
		if ifExists, isRemove := value.IsRemoveSentinel(hval); isRemove {
			slot, existed, err := value.RemoveMapKey(o.val, hkey)
			if err != nil {
				diags = diags.Append(diag.Errorf("timeseries: output %q: %v", o.name, err))
				continue
			}
			if !existed && !ifExists {
				diags = diags.Append(diag.Errorf("timeseries: output %q: REMOVE of absent key %v", o.name, hkey))
				continue
			}
			if existed {
				o.val.Tracker().MarkSlotRemoved(slot, t)
			}
			continue
		}
		slot, isNew, err := value.SetMapEntry(o.val, hkey, hval)
		if err != nil {
			diags = diags.Append(diag.Errorf("timeseries: output %q: %v", o.name, err))
			continue
		}
		if isNew {
			o.val.Tracker().MarkSlotAdded(slot, t)
		} else {
			o.val.Tracker().MarkSlotUpdated(slot, t)
		}
	}
	if diags.HasErrors() {
		return diags
	}
	o.invalid = false
	reg.RegisterEndOfTick(o)
	o.overlay.NotifyAll(t)
	return diags
}

// ApplyWindowPush pushes one element, possibly evicting the oldest per
// the window's policy (§4.1, §8 scenario 4).
func (o *Output) ApplyWindowPush(hv typemeta.HostValue, t enginetime.Time, reg TickRegistrar) diag.Diagnostics {
	if diags := o.checkMonotonic(t); diags.HasErrors() {
		return diags
	}
	newSlot, evictedSlot, didEvict, err := value.PushWindow(o.val, hv, int64(t))
	if err != nil {
		return diag.Diagnostics{diag.Errorf("timeseries: output %q: %v", o.name, err)}
	}
	o.val.Tracker().MarkSlotAdded(newSlot, t)
	if didEvict {
		o.val.Tracker().MarkSlotRemoved(evictedSlot, t)
	}
	o.invalid = false
	reg.RegisterEndOfTick(o)
	o.overlay.NotifyAll(t)
	return nil
}

// ApplyQueuePush pushes one element, evicting the oldest if the queue is
// bounded and full (§4.1, §8 scenario 6).
func (o *Output) ApplyQueuePush(hv typemeta.HostValue, t enginetime.Time, reg TickRegistrar) diag.Diagnostics {
	if diags := o.checkMonotonic(t); diags.HasErrors() {
		return diags
	}
	newSlot, evictedSlot, didEvict, err := value.PushQueue(o.val, hv)
	if err != nil {
		return diag.Diagnostics{diag.Errorf("timeseries: output %q: %v", o.name, err)}
	}
	o.val.Tracker().MarkSlotAdded(newSlot, t)
	if didEvict {
		o.val.Tracker().MarkSlotRemoved(evictedSlot, t)
	}
	o.invalid = false
	reg.RegisterEndOfTick(o)
	o.overlay.NotifyAll(t)
	return nil
}

// ApplyRef sets a Ref output's target and records the rebind time
// separately from any target-originated modification (§3.4).
func (o *Output) ApplyRef(r value.Ref, t enginetime.Time, reg TickRegistrar) diag.Diagnostics {
	if diags := o.checkMonotonic(t); diags.HasErrors() {
		return diags
	}
	value.SetRef(o.val, r)
	o.val.Tracker().MarkWhole(t)
	o.val.Tracker().MarkRebind(t)
	o.invalid = false
	reg.RegisterEndOfTick(o)
	o.overlay.NotifyAll(t)
	return nil
}
