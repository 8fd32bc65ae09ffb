// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"hgraph/internal/diag"
	"hgraph/internal/enginetime"
	"hgraph/internal/logging"
	"hgraph/internal/node"
	"hgraph/internal/timeseries"

	"github.com/hashicorp/go-hclog"
)

// ClockSource supplies the wall-clock-derived "now" a top-level engine
// advances toward when it has no sooner scheduled node (§4.5 step 1).
// Nested engines never read a ClockSource directly; they delegate to
// their parent (§5: "nested engines never touch the parent's scheduler
// queue directly — they only publish their next time upward").
type ClockSource func() enginetime.Time

// Engine drives one Graph's lifecycle and tick loop (§3.7, §4.5). A
// nested engine (§4.6) has the same shape but its Graph's Parent is set
// and it is driven by its owning Nested node rather than by a top-level
// Run loop.
type Engine struct {
	Graph    *node.Graph
	Observer Observer
	clock    ClockSource

	pendingEndOfTick map[*timeseries.Output]struct{}
	log              hclog.Logger

	// children are nested engines whose NextScheduledEvaluationTime is
	// bubbled into this engine's own min() at step 1, so a nested graph's
	// pending work can still advance the parent's clock even though the
	// parent scheduler never holds the nested graph's node entries
	// directly.
	children []*Engine
}

// New constructs an Engine for g. extraObservers, if any, run alongside
// the engine's built-in logging observer (§4.8); the built-in observer
// always runs first.
func New(g *node.Graph, clock ClockSource, extraObservers ...Observer) *Engine {
	obs := make(multiObserver, 0, 1+len(extraObservers))
	obs = append(obs, newLoggingObserver())
	obs = append(obs, extraObservers...)
	return &Engine{
		Graph:            g,
		Observer:         obs,
		clock:            clock,
		pendingEndOfTick: make(map[*timeseries.Output]struct{}),
		log:              logging.Named(logging.Engine),
	}
}

// RegisterEndOfTick implements timeseries.TickRegistrar: idempotent per
// (Output, tick) because pendingEndOfTick is a set keyed by the Output
// pointer (§9 design note: avoid heap churn on every tick by reusing one
// callback-set rather than allocating a closure per Apply call).
func (e *Engine) RegisterEndOfTick(o *timeseries.Output) {
	e.pendingEndOfTick[o] = struct{}{}
}

// AddChild registers a nested engine whose scheduled time should be
// considered when this engine computes its own next tick.
func (e *Engine) AddChild(child *Engine) { e.children = append(e.children, child) }

// RemoveChild unregisters a nested engine, e.g. when its owning nested
// node tears down the sub-graph.
func (e *Engine) RemoveChild(child *Engine) {
	for i, c := range e.children {
		if c == child {
			e.children = append(e.children[:i], e.children[i+1:]...)
			return
		}
	}
}

// Start runs the graph's node-start lifecycle, firing
// before/after_start_graph and before/after_start_node observers (§6).
func (e *Engine) Start() diag.Diagnostics {
	e.Observer.BeforeStartGraph(e.Graph.ID)
	diags := e.Graph.Start(
		func(n *node.Node) { e.Observer.BeforeStartNode(n.ID) },
		func(n *node.Node) { e.Observer.AfterStartNode(n.ID) },
	)
	e.Observer.AfterStartGraph(e.Graph.ID)
	return diags
}

// Stop runs the graph's node-stop lifecycle, firing
// before/after_stop_graph and before/after_stop_node observers.
func (e *Engine) Stop() diag.Diagnostics {
	e.Observer.BeforeStopGraph(e.Graph.ID)
	diags := e.Graph.Stop(
		func(n *node.Node) { e.Observer.BeforeStopNode(n.ID) },
		func(n *node.Node) { e.Observer.AfterStopNode(n.ID) },
	)
	e.Observer.AfterStopGraph(e.Graph.ID)
	return diags
}

// NextScheduledEvaluationTime returns the earliest of this engine's own
// pending nodes and every nested child engine's next time (§5).
func (e *Engine) NextScheduledEvaluationTime() enginetime.Time {
	min := e.Graph.NextScheduledEvaluationTime()
	for _, c := range e.children {
		if ct := c.NextScheduledEvaluationTime(); ct.Before(min) {
			min = ct
		}
	}
	return min
}

// Tick runs exactly one tick of the tick loop described in §4.5:
//  1. now = min(clockNow, next_scheduled_time); if MAX_DT and no push
//     sources pending, returns (MinTime, false).
//  2. before_graph_evaluation(now)
//  3. drain push inbox into the scheduler at now
//  4. drain the heap at now, running before/after_node_evaluation around
//     each node's eval
//  5. after_graph_push_nodes_evaluation, after_graph_evaluation
//  6. run end-of-tick callbacks
//
// It returns the tick's "now" and whether any work actually ran.
func (e *Engine) Tick() (enginetime.Time, bool) {
	next := e.NextScheduledEvaluationTime()
	now := next
	if e.clock != nil {
		if cn := e.clock(); cn.Before(now) {
			now = cn
		}
	}
	hasPushes := e.Graph.PendingPushCount() > 0
	if now.IsMax() {
		if !hasPushes {
			// Nothing scheduled and nothing externally pushed: the loop
			// exits per §4.5 step 1.
			return enginetime.MinTime, false
		}
		// Pushes are pending but nothing is scheduled and no clock was
		// given to derive a processing time from; a push-source-bearing
		// top-level engine is expected to always carry a ClockSource, so
		// this is a caller configuration error rather than a state the
		// tick loop can recover a sensible "now" from.
		if e.clock == nil {
			return enginetime.MinTime, false
		}
	}

	e.Observer.BeforeGraphEvaluation(e.Graph.ID, now)

	e.Graph.DrainPushInbox(now)

	// Drain the heap at now in a real inner loop: evaluating a node can
	// itself schedule further nodes at now (Output.Apply -> NotifyAll ->
	// Node.Notify -> graph.schedule), and those must run within this same
	// tick/"now" rather than waiting for a later Tick() call, or a
	// downstream consumer would see ModifiedAt(now)==true against an
	// already-reset (empty) DeltaView once endOfTick eventually runs
	// (§8 invariants 4 and 8).
	ran := false
	for {
		due := e.Graph.PopDue(now)
		if len(due) == 0 {
			break
		}
		ran = true
		for _, ndx := range due {
			n := e.Graph.Node(ndx)
			if n == nil {
				continue
			}
			e.Observer.BeforeNodeEvaluation(n.ID, now)
			if diags := e.Graph.Evaluate(ndx, now, e); diags.HasErrors() {
				e.log.Error("node evaluation failed", "node", n.ID, "diagnostics", diags.Err())
			}
			e.Observer.AfterNodeEvaluation(n.ID, now)
		}
	}

	e.Observer.AfterGraphPushNodesEvaluation(e.Graph.ID, now)
	e.Observer.AfterGraphEvaluation(e.Graph.ID, now)

	e.endOfTick()

	return now, ran
}

// endOfTick runs every registered Output's EndTick (delta reset,
// slot-freelist advance) and clears the pending set for the next tick
// (§4.5 step 6).
func (e *Engine) endOfTick() {
	for o := range e.pendingEndOfTick {
		o.EndTick()
		delete(e.pendingEndOfTick, o)
	}
}

// Run drives the tick loop until NextScheduledEvaluationTime is MAX_DT
// and no push sources remain pending (§4.5 step 1, step 7: "advance
// clock to the next scheduled time or wait for push input"). A
// ClockSource-less engine (the common nested-engine case) runs until its
// own scheduled work is exhausted and then returns, since only the
// top-level engine owns the suspension point described in §5.
func (e *Engine) Run() {
	for {
		_, ran := e.Tick()
		if !ran && e.NextScheduledEvaluationTime().IsMax() {
			return
		}
	}
}
