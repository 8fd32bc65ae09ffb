// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package value

import (
	"maps"

	"hgraph/internal/tracker"
	"hgraph/internal/typemeta"
)

// --- Set: stable slot indices, O(1) add/remove/contains. ---

type setStorage struct {
	elemTM   *typemeta.TypeMeta
	bySlot   map[tracker.SlotID]any
	byValKey map[any]tracker.SlotID // keyed by a hashable surrogate of the element
	next     tracker.SlotID

	// tombstones holds the last value of a slot removed during the
	// current tick, so DeltaView.SetRemoved can still report what was
	// removed (§4.1 slot retention) after bySlot has dropped the entry.
	// Cleared at EndTick alongside the tracker's own per-tick sets.
	tombstones map[tracker.SlotID]any
}

func newSetStorage(tm *typemeta.TypeMeta) *setStorage {
	return &setStorage{
		elemTM:     tm.Elem(),
		bySlot:     make(map[tracker.SlotID]any),
		byValKey:   make(map[any]tracker.SlotID),
		tombstones: make(map[tracker.SlotID]any),
	}
}

func (s *setStorage) clone() *setStorage {
	cp := &setStorage{
		elemTM:     s.elemTM,
		bySlot:     maps.Clone(s.bySlot),
		byValKey:   maps.Clone(s.byValKey),
		tombstones: maps.Clone(s.tombstones),
		next:       s.next,
	}
	return cp
}

func (s *setStorage) endTick() { clear(s.tombstones) }

// surrogate derives a comparable Go value to use as a Go map key for an
// element whose TypeMeta may wrap an uncomparable representation; for the
// scalar element types HGraph ships, the ToHost projection is itself
// comparable, so it doubles as the surrogate key.
func (s *setStorage) surrogate(elem any) any {
	return s.elemTM.Ops().ToHost(elem)
}

func newSlotFor(t *tracker.Tracker, next *tracker.SlotID) tracker.SlotID {
	return t.AllocSlot(next)
}

// AddToSet inserts hv, returning the slot used and whether it was new.
// The caller is responsible for marking v.Tracker() at the applicable
// engine time; AddToSet only updates storage.
func AddToSet(v *Value, hv typemeta.HostValue) (tracker.SlotID, bool, error) {
	s := v.repr.(*setStorage)
	elem, err := s.elemTM.Ops().FromHost(hv)
	if err != nil {
		return 0, false, err
	}
	key := s.surrogate(elem)
	if slot, exists := s.byValKey[key]; exists {
		return slot, false, nil
	}
	slot := newSlotFor(v.tracker, &s.next)
	s.bySlot[slot] = elem
	s.byValKey[key] = slot
	return slot, true, nil
}

// RemoveFromSet removes hv if present, returning the freed slot.
func RemoveFromSet(v *Value, hv typemeta.HostValue) (tracker.SlotID, bool, error) {
	s := v.repr.(*setStorage)
	elem, err := s.elemTM.Ops().FromHost(hv)
	if err != nil {
		return 0, false, err
	}
	key := s.surrogate(elem)
	slot, exists := s.byValKey[key]
	if !exists {
		return 0, false, nil
	}
	s.tombstones[slot] = s.bySlot[slot]
	delete(s.byValKey, key)
	delete(s.bySlot, slot)
	return slot, true, nil
}

// SetContains and SetElements give read access for the View type.
func (v View) SetContains(hv typemeta.HostValue) bool {
	s := v.v.repr.(*setStorage)
	_, ok := s.byValKey[s.surrogate(mustFromHost(s.elemTM, hv))]
	return ok
}

func (v View) SetElements() []typemeta.HostValue {
	s := v.v.repr.(*setStorage)
	out := make([]typemeta.HostValue, 0, len(s.bySlot))
	for _, elem := range s.bySlot {
		out = append(out, s.elemTM.Ops().ToHost(elem))
	}
	return out
}

func mustFromHost(tm *typemeta.TypeMeta, hv typemeta.HostValue) any {
	v, err := tm.Ops().FromHost(hv)
	if err != nil {
		panic(err)
	}
	return v
}

// --- Map: a Set of keys + a parallel value array sharing the slot space. ---

type mapStorage struct {
	keyTM, valTM *typemeta.TypeMeta
	bySlot       map[tracker.SlotID]mapEntry
	byKey        map[any]tracker.SlotID
	next         tracker.SlotID

	// tombstones mirrors setStorage.tombstones: the removed entry stays
	// addressable for delta consumption until EndTick.
	tombstones map[tracker.SlotID]mapEntry
}

type mapEntry struct {
	key any
	val any
}

func newMapStorage(tm *typemeta.TypeMeta) *mapStorage {
	return &mapStorage{
		keyTM:      tm.Key(),
		valTM:      tm.Elem(),
		bySlot:     make(map[tracker.SlotID]mapEntry),
		byKey:      make(map[any]tracker.SlotID),
		tombstones: make(map[tracker.SlotID]mapEntry),
	}
}

func (m *mapStorage) clone() *mapStorage {
	return &mapStorage{
		keyTM:      m.keyTM,
		valTM:      m.valTM,
		bySlot:     maps.Clone(m.bySlot),
		byKey:      maps.Clone(m.byKey),
		tombstones: maps.Clone(m.tombstones),
		next:       m.next,
	}
}

func (m *mapStorage) endTick() { clear(m.tombstones) }

// SetMapEntry inserts or updates hkey -> hval, returning the slot and
// whether this was a new key (add) vs an existing one (update) so the
// caller's tracker call matches §4.1's add-vs-update distinction.
func SetMapEntry(v *Value, hkey, hval typemeta.HostValue) (slot tracker.SlotID, isNew bool, err error) {
	m := v.repr.(*mapStorage)
	key, err := m.keyTM.Ops().FromHost(hkey)
	if err != nil {
		return 0, false, err
	}
	val, err := m.valTM.Ops().FromHost(hval)
	if err != nil {
		return 0, false, err
	}
	surrogate := m.keyTM.Ops().ToHost(key)
	if existing, ok := m.byKey[surrogate]; ok {
		m.bySlot[existing] = mapEntry{key: key, val: val}
		return existing, false, nil
	}
	slot = newSlotFor(v.tracker, &m.next)
	m.bySlot[slot] = mapEntry{key: key, val: val}
	m.byKey[surrogate] = slot
	return slot, true, nil
}

// RemoveMapKey removes hkey if present.
func RemoveMapKey(v *Value, hkey typemeta.HostValue) (tracker.SlotID, bool, error) {
	m := v.repr.(*mapStorage)
	key, err := m.keyTM.Ops().FromHost(hkey)
	if err != nil {
		return 0, false, err
	}
	surrogate := m.keyTM.Ops().ToHost(key)
	slot, ok := m.byKey[surrogate]
	if !ok {
		return 0, false, nil
	}
	m.tombstones[slot] = m.bySlot[slot]
	delete(m.byKey, surrogate)
	delete(m.bySlot, slot)
	return slot, true, nil
}

func (v View) MapGet(hkey typemeta.HostValue) (typemeta.HostValue, bool) {
	m := v.v.repr.(*mapStorage)
	surrogate := m.keyTM.Ops().ToHost(mustFromHost(m.keyTM, hkey))
	slot, ok := m.byKey[surrogate]
	if !ok {
		return nil, false
	}
	entry := m.bySlot[slot]
	return m.valTM.Ops().ToHost(entry.val), true
}

func (v View) MapEntries() map[typemeta.HostValue]typemeta.HostValue {
	m := v.v.repr.(*mapStorage)
	out := make(map[typemeta.HostValue]typemeta.HostValue, len(m.bySlot))
	for _, entry := range m.bySlot {
		out[m.keyTM.Ops().ToHost(entry.key)] = m.valTM.Ops().ToHost(entry.val)
	}
	return out
}

// --- Bundle: compile-time schema of named, typed fields. ---

type bundleStorage struct {
	fields []any // parallel to TypeMeta.Fields()
}

func newBundleStorage(tm *typemeta.TypeMeta) *bundleStorage {
	fields := tm.Fields()
	vals := make([]any, len(fields))
	for i, f := range fields {
		vals[i] = f.Type.Ops().Construct()
	}
	return &bundleStorage{fields: vals}
}

func (b *bundleStorage) clone() *bundleStorage {
	cp := &bundleStorage{fields: make([]any, len(b.fields))}
	copy(cp.fields, b.fields)
	return cp
}

// SetBundleField sets field index idx (already resolved by name or index
// by the caller) to hv.
func SetBundleField(v *Value, idx int, hv typemeta.HostValue) error {
	b := v.repr.(*bundleStorage)
	f := v.tm.Fields()[idx]
	converted, err := f.Type.Ops().FromHost(hv)
	if err != nil {
		return err
	}
	b.fields[idx] = converted
	return nil
}

func (v View) BundleField(idx int) typemeta.HostValue {
	b := v.v.repr.(*bundleStorage)
	f := v.v.tm.Fields()[idx]
	return f.Type.Ops().ToHost(b.fields[idx])
}

func (v View) BundleFieldByName(name string) (typemeta.HostValue, bool) {
	f, ok := v.v.tm.FieldByName(name)
	if !ok {
		return nil, false
	}
	return v.BundleField(f.Index), true
}

// --- List: fixed-length array of identically-typed elements. ---

type listStorage struct {
	elems []any
}

func newListStorage(tm *typemeta.TypeMeta) *listStorage {
	elems := make([]any, tm.FixedLen())
	for i := range elems {
		elems[i] = tm.Elem().Ops().Construct()
	}
	return &listStorage{elems: elems}
}

func (l *listStorage) clone() *listStorage {
	cp := &listStorage{elems: make([]any, len(l.elems))}
	copy(cp.elems, l.elems)
	return cp
}

// SetListIndex sets list element idx to hv.
func SetListIndex(v *Value, idx int, hv typemeta.HostValue) error {
	l := v.repr.(*listStorage)
	if idx < 0 || idx >= len(l.elems) {
		panic("value: list index out of range")
	}
	converted, err := v.tm.Elem().Ops().FromHost(hv)
	if err != nil {
		return err
	}
	l.elems[idx] = converted
	return nil
}

func (v View) ListIndex(idx int) typemeta.HostValue {
	l := v.v.repr.(*listStorage)
	return v.v.tm.Elem().Ops().ToHost(l.elems[idx])
}

func (v View) ListLen() int {
	return len(v.v.repr.(*listStorage).elems)
}
