// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package node

import (
	"hgraph/internal/addrs"
	"hgraph/internal/diag"
	"hgraph/internal/enginetime"
	"hgraph/internal/logging"
	"hgraph/internal/scheduler"
	"hgraph/internal/timeseries"

	"github.com/hashicorp/go-hclog"
)

// PushArrival is one externally-pushed value queued for a PushSource
// node, drained into the scheduler at the start of the tick it arrives
// in (§4.5 step 3, §5). It carries no time of its own: push sources have
// no clock, so the processing tick's own "now" becomes the time they are
// scheduled at.
type PushArrival struct {
	NodeNdx addrs.NodeNdx
}

// Graph is a flat, index-ordered list of wired Nodes plus its own
// scheduler (§3.7). Parent is non-nil for a nested graph (§4.6),
// non-owning: the nested graph never reaches into the parent's
// scheduler directly, only publishing its own next time upward through
// NextScheduledEvaluationTime (§5).
type Graph struct {
	ID     addrs.GraphID
	Parent *Graph

	nodes []*Node
	sched *scheduler.Scheduler

	inbox []PushArrival

	log hclog.Logger
}

// NewGraph constructs an empty graph with the given id; parent is nil
// for a top-level graph.
func NewGraph(id addrs.GraphID, parent *Graph) *Graph {
	return &Graph{
		ID:     id,
		Parent: parent,
		sched:  scheduler.New(),
		log:    logging.Named(logging.TSGraph),
	}
}

// AddNode appends a newly constructed node to the graph's flat list; the
// caller must have constructed it with NewNode(g, ndx, ...) using the
// next sequential NodeNdx (len(g.nodes) before the call).
func (g *Graph) AddNode(n *Node) { g.nodes = append(g.nodes, n) }

// Node returns the node at ndx, or nil if out of range.
func (g *Graph) Node(ndx addrs.NodeNdx) *Node {
	if int(ndx) < 0 || int(ndx) >= len(g.nodes) {
		return nil
	}
	return g.nodes[ndx]
}

// Nodes returns the graph's flat node list in index order. The returned
// slice must not be mutated by the caller.
func (g *Graph) Nodes() []*Node { return g.nodes }

// schedule forwards to the scheduler; called by Node.Notify.
func (g *Graph) schedule(ndx addrs.NodeNdx, t enginetime.Time) {
	g.sched.UpdateNextScheduledEvaluationTime(scheduler.NodeNdx(ndx), t)
}

// ScheduleNow is the entry point a PullSource or PushSource node (or the
// engine, for external pushes) uses to enqueue itself directly, without
// going through Notify/an Input.
func (g *Graph) ScheduleNow(ndx addrs.NodeNdx, t enginetime.Time) {
	g.schedule(ndx, t)
}

// NextScheduledEvaluationTime returns the graph's earliest pending node
// time, or enginetime.MaxTime if nothing is scheduled (§4.5, §5: this is
// what a nested graph bubbles up to its parent through a delegate
// clock).
func (g *Graph) NextScheduledEvaluationTime() enginetime.Time {
	return g.sched.NextScheduledEvaluationTime()
}

// Push enqueues an externally-arrived value for a PushSource node,
// picked up by the next DrainPushInbox call (§4.5 step 3).
func (g *Graph) Push(ndx addrs.NodeNdx) {
	g.inbox = append(g.inbox, PushArrival{NodeNdx: ndx})
}

// PendingPushCount reports how many push arrivals are queued but not yet
// drained, used by the engine to decide whether to keep ticking when
// nothing is otherwise scheduled (§4.5 step 1).
func (g *Graph) PendingPushCount() int { return len(g.inbox) }

// DrainPushInbox moves every queued push arrival into the scheduler at
// now, per §4.5 step 3; returns the arrivals drained so callers needing
// per-node dispatch (the PushSource's own eval consuming the actual
// value, which the engine layer threads through separately) can react to
// which nodes just gained work.
func (g *Graph) DrainPushInbox(now enginetime.Time) []PushArrival {
	drained := g.inbox
	g.inbox = nil
	for _, a := range drained {
		g.schedule(a.NodeNdx, now)
	}
	return drained
}

// PopDue removes and returns every node index scheduled at exactly now.
func (g *Graph) PopDue(now enginetime.Time) []addrs.NodeNdx {
	due := g.sched.PopDue(now)
	out := make([]addrs.NodeNdx, len(due))
	for i, d := range due {
		out[i] = addrs.NodeNdx(d)
	}
	return out
}

// Cancel removes any pending scheduler entry for ndx (used when a node
// is torn down, e.g. a nested sub-graph node removed by a map node,
// before its scheduled evaluation runs).
func (g *Graph) Cancel(ndx addrs.NodeNdx) {
	g.sched.Cancel(scheduler.NodeNdx(ndx))
}

// Start runs every node's start lifecycle in index order; if any node's
// start returns error diagnostics, every already-started node is stopped
// in reverse order before Start returns, so partially-started graphs
// never leak resources (§3.7: "release in stop even on panic" extended
// here to "even on a sibling's start failure").
func (g *Graph) Start(beforeNode, afterNode func(*Node)) (diags diag.Diagnostics) {
	g.log.Debug("starting graph", "graph_id", g.ID, "nodes", len(g.nodes))
	started := make([]*Node, 0, len(g.nodes))
	defer func() {
		if r := recover(); r != nil {
			for i := len(started) - 1; i >= 0; i-- {
				started[i].stop()
			}
			panic(r)
		}
	}()
	for _, n := range g.nodes {
		if beforeNode != nil {
			beforeNode(n)
		}
		nd := n.start()
		diags = diags.Append(nd)
		if afterNode != nil {
			afterNode(n)
		}
		if nd.HasErrors() {
			for i := len(started) - 1; i >= 0; i-- {
				started[i].stop()
			}
			return diags
		}
		started = append(started, n)
	}
	return diags
}

// Stop runs every started node's stop lifecycle in reverse index order
// (§5 Cancellation & timeouts).
func (g *Graph) Stop(beforeNode, afterNode func(*Node)) (diags diag.Diagnostics) {
	g.log.Debug("stopping graph", "graph_id", g.ID)
	for i := len(g.nodes) - 1; i >= 0; i-- {
		n := g.nodes[i]
		if beforeNode != nil {
			beforeNode(n)
		}
		diags = diags.Append(n.stop())
		if afterNode != nil {
			afterNode(n)
		}
	}
	return diags
}

// Evaluate runs one node's eval body and fires any subscriber
// notifications it triggers (via Output.commit inside Output.Apply*).
// Called by the engine's tick loop step 4b.
func (g *Graph) Evaluate(ndx addrs.NodeNdx, t enginetime.Time, reg timeseries.TickRegistrar) diag.Diagnostics {
	n := g.Node(ndx)
	if n == nil {
		return diag.Diagnostics{diag.Errorf("node: graph %d has no node at index %d", g.ID, ndx)}
	}
	return n.evaluate(t, reg)
}
