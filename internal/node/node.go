// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

// Package node implements the Node and Graph types from §3.7: a node's
// identity, its inputs bundle and single output, and the flat,
// index-ordered graph that owns a set of wired nodes plus their
// per-graph scheduler.
package node

import (
	"sort"

	"hgraph/internal/addrs"
	"hgraph/internal/diag"
	"hgraph/internal/enginetime"
	"hgraph/internal/timeseries"
	"hgraph/internal/typemeta"
	"hgraph/internal/value"
)

// Kind is the sealed set of node roles (§3.7).
type Kind uint8

const (
	// PullSource is driven by engine time: the scheduler re-invokes it at
	// its own requested next time.
	PullSource Kind = iota
	// PushSource is driven by externally arriving values, enqueued into
	// the graph's inbox and drained at the start of each tick (§4.5 step
	// 3, §5).
	PushSource
	// Compute reads its inputs and writes its output; scheduled whenever
	// an input changes.
	Compute
	// Sink has no output of its own; it observes inputs for external
	// effect (logging, persistence, host callbacks).
	Sink
	// Nested owns a runtime catalog of sub-graphs (switch/map/mesh, §4.6).
	Nested
)

func (k Kind) String() string {
	switch k {
	case PullSource:
		return "pull-source"
	case PushSource:
		return "push-source"
	case Compute:
		return "compute"
	case Sink:
		return "sink"
	case Nested:
		return "nested"
	default:
		return "unknown"
	}
}

// EvalFunc is a node's evaluation body: read View()s off n.Inputs, write
// through n.Output (or n.ErrorOutput) by calling its Apply* methods with
// the reg passed in, and return any diagnostics. Called by Graph.Evaluate
// during the tick loop's step 4b.
type EvalFunc func(n *Node, t enginetime.Time, reg timeseries.TickRegistrar) diag.Diagnostics

// LifecycleFunc runs at node start or stop (§3.7 lifecycle); resources
// acquired in Start must be released in Stop even if Start panics
// partway through a graph (the graph's Start unwinds already-started
// nodes' Stop on panic, see Graph.Start).
type LifecycleFunc func(n *Node) diag.Diagnostics

// Node is one vertex of a Graph: identity, signature, scalar config,
// inputs bundle, single output, optional recordable state, and a
// scheduler entry (owned by the Graph, keyed by NodeNdx).
type Node struct {
	ID        addrs.NodeID
	Kind      Kind
	Signature string // diagnostic label, e.g. "sum", "window.push"

	// Config is the node's scalar configuration, opaque to the runtime
	// (a builder-supplied value consulted by Eval/OnStart).
	Config any

	inputNames []string
	Inputs     map[string]*timeseries.Input
	Output     *timeseries.Output

	// ErrorOutput, when non-nil, receives runtime evaluation errors
	// instead of failing the tick (§7: "surfaced on the node's error
	// output if one is wired").
	ErrorOutput *timeseries.Output

	// Recordable, when non-nil, is this node's persisted state tree
	// (§6 Persistence), keyed externally by a recordable id minted by
	// internal/recordable.
	Recordable *value.Value

	Eval    EvalFunc
	OnStart LifecycleFunc
	OnStop  LifecycleFunc

	graph   *Graph
	started bool
}

// NewNode constructs a Node of the given kind within g, with input names
// decl (each bound later via BindPeer etc., or left Unbound
// for an optional input) and an output of type outTM (nil for Sink
// nodes, which have no output).
func NewNode(g *Graph, ndx addrs.NodeNdx, kind Kind, signature string, decl map[string]*typemeta.TypeMeta, outTM *typemeta.TypeMeta) *Node {
	n := &Node{
		ID:        addrs.NodeID{GraphID: g.ID, NodeNdx: ndx},
		Kind:      kind,
		Signature: signature,
		graph:     g,
	}
	n.Inputs = make(map[string]*timeseries.Input, len(decl))
	for name, tm := range decl {
		n.Inputs[name] = timeseries.NewInput(tm, n, name)
		n.inputNames = append(n.inputNames, name)
	}
	sort.Strings(n.inputNames)
	if outTM != nil {
		n.Output = timeseries.NewOutput(outTM, n.ID.String()+"."+signature)
	}
	return n
}

// InputNames returns the node's declared input names in stable order,
// sorted by name (decl is a map, so it carries no declaration order).
func (n *Node) InputNames() []string { return append([]string(nil), n.inputNames...) }

// Notify implements timeseries.NodeNotifier: an Input calls this when one
// of its links fires, which schedules n to run at t in its owning
// graph's scheduler (§4.3, §4.5).
func (n *Node) Notify(t enginetime.Time) {
	n.graph.schedule(n.ID.NodeNdx, t)
}

// Activate makes every input's link(s) subscribed (called once at node
// start, §3.7).
func (n *Node) Activate() {
	for _, in := range n.Inputs {
		in.MakeActive()
	}
}

// Deactivate unsubscribes every input's link(s) (called at node stop).
func (n *Node) Deactivate() {
	for _, in := range n.Inputs {
		in.MakePassive()
	}
}

// start runs OnStart if present and marks the node started; idempotent.
func (n *Node) start() diag.Diagnostics {
	if n.started {
		return nil
	}
	n.Activate()
	var diags diag.Diagnostics
	if n.OnStart != nil {
		diags = diags.Append(n.OnStart(n))
	}
	n.started = true
	return diags
}

// stop runs OnStop if present and unsubscribes inputs; idempotent, and
// runs even if OnStart returned diagnostics, so partially-acquired
// resources are still released (§3.7: "resources acquired in start must
// release in stop even on panic").
func (n *Node) stop() diag.Diagnostics {
	if !n.started {
		return nil
	}
	n.Deactivate()
	var diags diag.Diagnostics
	if n.OnStop != nil {
		diags = diags.Append(n.OnStop(n))
	}
	n.started = false
	return diags
}

// evaluate runs Eval (if any) and, on error, routes diagnostics to
// ErrorOutput when wired instead of propagating (§7).
func (n *Node) evaluate(t enginetime.Time, reg timeseries.TickRegistrar) diag.Diagnostics {
	if n.Eval == nil {
		return nil
	}
	diags := n.Eval(n, t, reg)
	if diags.HasErrors() && n.ErrorOutput != nil {
		n.ErrorOutput.Apply(diags.Err().Error(), t, reg)
		return nil
	}
	return diags
}
