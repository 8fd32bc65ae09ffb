// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package value

import (
	"hgraph/internal/tracker"
	"hgraph/internal/typemeta"
)

// --- Window: two parallel cyclic buffers (values + timestamps). ---
//
// A fixed-size window keeps capacity+1 slots so the evicted element
// remains addressable for one tick (§4.1); a variable-length window
// evicts by duration relative to the newest timestamp instead.

type windowEntry struct {
	slot tracker.SlotID
	val  any
	ts   int64
}

type windowStorage struct {
	elemTM  *typemeta.TypeMeta
	policy  typemeta.WindowPolicy
	entries []windowEntry // oldest first
	evicted *windowEntry
	next    tracker.SlotID
}

func newWindowStorage(tm *typemeta.TypeMeta) *windowStorage {
	return &windowStorage{elemTM: tm.Elem(), policy: tm.WindowPolicy()}
}

func (w *windowStorage) endTick() { w.evicted = nil }

func (w *windowStorage) clone() *windowStorage {
	cp := &windowStorage{elemTM: w.elemTM, policy: w.policy, next: w.next}
	cp.entries = append(cp.entries, w.entries...)
	if w.evicted != nil {
		e := *w.evicted
		cp.evicted = &e
	}
	return cp
}

// PushWindow appends hv with timestamp ts, evicting per the window's
// policy. Returns the new element's slot, the evicted slot (if any), and
// whether an eviction happened.
func PushWindow(v *Value, hv typemeta.HostValue, ts int64) (tracker.SlotID, tracker.SlotID, bool, error) {
	w := v.repr.(*windowStorage)
	elem, err := w.elemTM.Ops().FromHost(hv)
	if err != nil {
		return 0, 0, false, err
	}
	slot := newSlotFor(v.tracker, &w.next)
	w.entries = append(w.entries, windowEntry{slot: slot, val: elem, ts: ts})
	w.evicted = nil

	if w.policy.FixedSize {
		if w.policy.Capacity > 0 && len(w.entries) > w.policy.Capacity {
			ev := w.entries[0]
			w.entries = w.entries[1:]
			w.evicted = &ev
			return slot, ev.slot, true, nil
		}
		return slot, 0, false, nil
	}

	// Variable-length: evict everything older than MaxAge relative to
	// the newest (just-pushed) timestamp. At most the oldest entry is
	// reported as "the" evicted one for tracker purposes; any further
	// expired entries are dropped silently, matching a window whose
	// policy only guarantees one evicted element is addressable per tick.
	horizon := ts - w.policy.MaxAge
	var lastEvicted *windowEntry
	for len(w.entries) > 0 && w.entries[0].ts < horizon {
		ev := w.entries[0]
		w.entries = w.entries[1:]
		lastEvicted = &ev
	}
	if lastEvicted != nil {
		w.evicted = lastEvicted
		return slot, lastEvicted.slot, true, nil
	}
	return slot, 0, false, nil
}

// WindowOrdered returns the window's contents oldest-first.
func (v View) WindowOrdered() []typemeta.HostValue {
	w := v.v.repr.(*windowStorage)
	out := make([]typemeta.HostValue, len(w.entries))
	for i, e := range w.entries {
		out[i] = w.elemTM.Ops().ToHost(e.val)
	}
	return out
}

// WindowTimestamps returns the sidecar timestamps parallel to
// WindowOrdered.
func (v View) WindowTimestamps() []int64 {
	w := v.v.repr.(*windowStorage)
	out := make([]int64, len(w.entries))
	for i, e := range w.entries {
		out[i] = e.ts
	}
	return out
}

// WindowEvicted returns the element evicted by the most recent push, if
// the window has had an eviction since the last tick reset.
func (v View) WindowEvicted() (typemeta.HostValue, int64, bool) {
	w := v.v.repr.(*windowStorage)
	if w.evicted == nil {
		return nil, 0, false
	}
	return w.elemTM.Ops().ToHost(w.evicted.val), w.evicted.ts, true
}

// WindowLen reports the window's current occupancy.
func (v View) WindowLen() int {
	return len(v.v.repr.(*windowStorage).entries)
}
