// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

// Package scheduler implements the per-graph priority queue described in
// §3.7 and §4.5: a min-heap of nodes keyed by (scheduled_time, node_ndx),
// with idempotent rescheduling and a MAX_DT sentinel for "nothing
// pending".
package scheduler

import (
	"container/heap"

	"hgraph/internal/enginetime"
)

// NodeNdx is a node's position in its graph's flat node list, the
// tie-break component of the scheduler's sort key (§3.7, §4.5).
type NodeNdx int

// entry is one node's pending-evaluation record.
type entry struct {
	ndx     NodeNdx
	time    enginetime.Time
	heapIdx int // position in the heap array, kept in sync by heap.Interface
}

// pqueue is the container/heap.Interface implementation backing
// Scheduler. Ordering is (time, ndx) per §4.5's tie-break rule.
type pqueue []*entry

func (q pqueue) Len() int { return len(q) }

func (q pqueue) Less(i, j int) bool {
	if q[i].time != q[j].time {
		return q[i].time < q[j].time
	}
	return q[i].ndx < q[j].ndx
}

func (q pqueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].heapIdx = i
	q[j].heapIdx = j
}

func (q *pqueue) Push(x any) {
	e := x.(*entry)
	e.heapIdx = len(*q)
	*q = append(*q, e)
}

func (q *pqueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

// Scheduler is a single graph's min-heap of pending node evaluations,
// keyed by (scheduled_time, node_ndx). It is not safe for concurrent use;
// a graph's tick loop is the sole caller (§5, single-threaded per graph).
type Scheduler struct {
	q     pqueue
	byNdx map[NodeNdx]*entry
}

// New constructs an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{byNdx: make(map[NodeNdx]*entry)}
}

// UpdateNextScheduledEvaluationTime schedules node to run at t, coalescing
// to the earlier of any existing pending time for that node (§4.5:
// "idempotent (coalesces to the earliest)").
func (s *Scheduler) UpdateNextScheduledEvaluationTime(ndx NodeNdx, t enginetime.Time) {
	if e, ok := s.byNdx[ndx]; ok {
		if t < e.time {
			e.time = t
			heap.Fix(&s.q, e.heapIdx)
		}
		return
	}
	e := &entry{ndx: ndx, time: t}
	s.byNdx[ndx] = e
	heap.Push(&s.q, e)
}

// NextScheduledEvaluationTime returns the earliest pending time, or
// enginetime.MaxTime if the queue is empty (§4.5).
func (s *Scheduler) NextScheduledEvaluationTime() enginetime.Time {
	if len(s.q) == 0 {
		return enginetime.MaxTime
	}
	return s.q[0].time
}

// PopDue removes and returns every node whose scheduled time equals now,
// in (time, ndx) order, clearing their scheduler entries. Used by the
// tick loop's step 4 drain (§4.5).
func (s *Scheduler) PopDue(now enginetime.Time) []NodeNdx {
	var due []NodeNdx
	for len(s.q) > 0 && s.q[0].time == now {
		e := heap.Pop(&s.q).(*entry)
		delete(s.byNdx, e.ndx)
		due = append(due, e.ndx)
	}
	return due
}

// Pending reports whether ndx currently has a scheduled evaluation.
func (s *Scheduler) Pending(ndx NodeNdx) bool {
	_, ok := s.byNdx[ndx]
	return ok
}

// Cancel removes any pending evaluation for ndx, used when a node is
// disposed (e.g. a nested sub-graph torn down mid-tick) before its
// scheduled time arrives.
func (s *Scheduler) Cancel(ndx NodeNdx) {
	e, ok := s.byNdx[ndx]
	if !ok {
		return
	}
	heap.Remove(&s.q, e.heapIdx)
	delete(s.byNdx, ndx)
}

// Len reports how many distinct nodes have a pending evaluation.
func (s *Scheduler) Len() int { return len(s.q) }
