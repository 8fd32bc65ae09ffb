// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

// Package tracker implements ModificationTracker: the per-Value record of
// when things changed, at whole-value, per-field, per-index, and per-slot
// granularity, plus the added/removed-this-tick bookkeeping that backs
// DeltaView and the slot-reuse rule (§4.1/§8.5 of the runtime spec).
package tracker

import (
	"hgraph/internal/enginetime"
)

// SlotID is a stable element identity within a collection Value. Removed
// slots are retained (not reused) until the engine advances past the tick
// in which they were removed, so deltas may still reference them safely.
type SlotID int

// Tracker records modification times for one Value. A Tracker is owned by
// exactly one Output (or one element of a NonPeered binding); it is never
// shared.
type Tracker struct {
	whole enginetime.Time

	// perField/perIndex/perSlot record the last-modified time of bundle
	// fields, list indices, and set/map slots respectively. Only the
	// table relevant to the owning Value's Kind is populated.
	perField map[int]enginetime.Time
	perIndex map[int]enginetime.Time
	perSlot  map[SlotID]enginetime.Time

	addedThisTick   map[SlotID]struct{}
	removedThisTick map[SlotID]struct{}
	updatedThisTick map[SlotID]struct{}

	// freeList holds slots removed in a prior tick that are now eligible
	// for reuse; slots removed in the *current* tick stay off this list
	// until EndTick runs, per the slot-reuse rule.
	freeList []SlotID
	pending  []SlotID // removed this tick, moved to freeList at EndTick

	// ref-specific: rebind time is distinct from the target's own
	// modification time.
	rebindAt enginetime.Time
}

// New returns a zero Tracker; all modification times read as MinTime
// until first written.
func New() *Tracker {
	return &Tracker{
		perField:        make(map[int]enginetime.Time),
		perIndex:        make(map[int]enginetime.Time),
		perSlot:         make(map[SlotID]enginetime.Time),
		addedThisTick:   make(map[SlotID]struct{}),
		removedThisTick: make(map[SlotID]struct{}),
		updatedThisTick: make(map[SlotID]struct{}),
	}
}

// MarkWhole records a whole-value modification at t. Callers must ensure
// monotonicity (t >= previous whole time); the tracker itself does not
// enforce it so that Output.apply can surface the violation as a
// protocol-error diagnostic with full context instead of a bare panic.
func (t *Tracker) MarkWhole(at enginetime.Time) { t.whole = at }

// WholeModifiedAt returns the last time the whole value changed.
func (t *Tracker) WholeModifiedAt() enginetime.Time { return t.whole }

// ModifiedAt reports whether the whole value changed exactly at at. A
// DeltaView is only valid when this holds (§4.7): outside the tick in
// which a modification happened, the per-tick delta sets have already
// been cleared by EndTick and would misleadingly read as empty.
func (t *Tracker) ModifiedAt(at enginetime.Time) bool { return t.whole == at }

// MarkField records a bundle field modification.
func (t *Tracker) MarkField(field int, at enginetime.Time) {
	t.perField[field] = at
	t.whole = at
}

func (t *Tracker) FieldModifiedAt(field int) enginetime.Time { return t.perField[field] }

// MarkIndex records a list index modification.
func (t *Tracker) MarkIndex(index int, at enginetime.Time) {
	t.perIndex[index] = at
	t.whole = at
}

func (t *Tracker) IndexModifiedAt(index int) enginetime.Time { return t.perIndex[index] }

// MarkSlotAdded records a new set/map slot appearing this tick.
func (t *Tracker) MarkSlotAdded(slot SlotID, at enginetime.Time) {
	t.perSlot[slot] = at
	t.addedThisTick[slot] = struct{}{}
	t.whole = at
}

// MarkSlotUpdated records an existing map slot's value changing this
// tick; distinct from MarkSlotAdded per §4.1 (update-on-existing-key vs
// add-of-new-key).
func (t *Tracker) MarkSlotUpdated(slot SlotID, at enginetime.Time) {
	t.perSlot[slot] = at
	if _, justAdded := t.addedThisTick[slot]; !justAdded {
		t.updatedThisTick[slot] = struct{}{}
	}
	t.whole = at
}

// MarkSlotRemoved records a slot's removal this tick. If the slot was
// also added this tick (same-tick add-then-remove), the Open Question in
// §9 of the runtime spec is resolved here: the add is cancelled and the
// delta emits nothing for that slot at that tick.
func (t *Tracker) MarkSlotRemoved(slot SlotID, at enginetime.Time) {
	if _, justAdded := t.addedThisTick[slot]; justAdded {
		delete(t.addedThisTick, slot)
		delete(t.perSlot, slot)
		t.whole = at
		return
	}
	delete(t.updatedThisTick, slot)
	t.removedThisTick[slot] = struct{}{}
	t.pending = append(t.pending, slot)
	t.whole = at
}

func (t *Tracker) SlotModifiedAt(slot SlotID) enginetime.Time { return t.perSlot[slot] }

// AddedThisTick, RemovedThisTick, UpdatedThisTick expose the current
// tick's delta sets by value (copy) so callers cannot mutate tracker
// state through them.
func (t *Tracker) AddedThisTick() []SlotID   { return keysOf(t.addedThisTick) }
func (t *Tracker) RemovedThisTick() []SlotID { return keysOf(t.removedThisTick) }
func (t *Tracker) UpdatedThisTick() []SlotID { return keysOf(t.updatedThisTick) }

func keysOf(m map[SlotID]struct{}) []SlotID {
	out := make([]SlotID, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// MarkRebind records a Ref's rebind time, tracked separately from the
// target's own modification time per §3.4.
func (t *Tracker) MarkRebind(at enginetime.Time) { t.rebindAt = at }

func (t *Tracker) RebindTime() enginetime.Time { return t.rebindAt }

// EndTick runs the end-of-tick housekeeping: slots removed during the
// tick just ending become eligible for reuse, and the per-tick delta sets
// are cleared. Called once per output per tick by the engine's end-of-
// tick callback set (§4.5 step 6).
func (t *Tracker) EndTick() {
	t.freeList = append(t.freeList, t.pending...)
	t.pending = t.pending[:0]
	clear(t.addedThisTick)
	clear(t.removedThisTick)
	clear(t.updatedThisTick)
}

// AllocSlot returns a slot ready for reuse from the free list, or a fresh
// SlotID derived from next if the free list is empty. The slot-reuse rule
// (§4.1) is enforced by construction: FreeList only gains entries via
// EndTick, one tick after MarkSlotRemoved.
func (t *Tracker) AllocSlot(next *SlotID) SlotID {
	if n := len(t.freeList); n > 0 {
		slot := t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		return slot
	}
	slot := *next
	*next = *next + 1
	return slot
}
