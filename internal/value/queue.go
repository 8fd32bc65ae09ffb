// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package value

import (
	"hgraph/internal/tracker"
	"hgraph/internal/typemeta"
)

// --- Queue: unbounded or bounded FIFO. A bounded, full queue evicts the
// oldest element on push (§4.1, §8 scenario 6). ---

type queueEntry struct {
	slot tracker.SlotID
	val  any
}

type queueStorage struct {
	elemTM   *typemeta.TypeMeta
	capacity int // 0 means unbounded
	entries  []queueEntry
	next     tracker.SlotID
}

func newQueueStorage(tm *typemeta.TypeMeta) *queueStorage {
	return &queueStorage{elemTM: tm.Elem(), capacity: tm.WindowPolicy().Capacity}
}

func (q *queueStorage) clone() *queueStorage {
	cp := &queueStorage{elemTM: q.elemTM, capacity: q.capacity, next: q.next}
	cp.entries = append(cp.entries, q.entries...)
	return cp
}

// PushQueue appends hv, evicting the oldest element if the queue is
// bounded and full. Returns the new element's slot, the evicted slot (if
// any), and whether an eviction happened.
func PushQueue(v *Value, hv typemeta.HostValue) (tracker.SlotID, tracker.SlotID, bool, error) {
	q := v.repr.(*queueStorage)
	elem, err := q.elemTM.Ops().FromHost(hv)
	if err != nil {
		return 0, 0, false, err
	}
	slot := newSlotFor(v.tracker, &q.next)
	q.entries = append(q.entries, queueEntry{slot: slot, val: elem})
	if q.capacity > 0 && len(q.entries) > q.capacity {
		ev := q.entries[0]
		q.entries = q.entries[1:]
		return slot, ev.slot, true, nil
	}
	return slot, 0, false, nil
}

// PopQueue removes and returns the oldest element, if any.
func PopQueue(v *Value) (typemeta.HostValue, bool) {
	q := v.repr.(*queueStorage)
	if len(q.entries) == 0 {
		return nil, false
	}
	ev := q.entries[0]
	q.entries = q.entries[1:]
	return q.elemTM.Ops().ToHost(ev.val), true
}

// QueueContents returns the queue oldest-first.
func (v View) QueueContents() []typemeta.HostValue {
	q := v.v.repr.(*queueStorage)
	out := make([]typemeta.HostValue, len(q.entries))
	for i, e := range q.entries {
		out[i] = q.elemTM.Ops().ToHost(e.val)
	}
	return out
}

// QueueLen reports the queue's current occupancy.
func (v View) QueueLen() int { return len(v.v.repr.(*queueStorage).entries) }
