// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

// Package engine implements the evaluation lifecycle and tick loop from
// §3.7 and §4.5: Start/eval/stop for a graph, observer callbacks, and
// nested-engine stacking (§4.6).
package engine

import (
	"hgraph/internal/addrs"
	"hgraph/internal/enginetime"
)

// Observer receives lifecycle and per-tick callbacks (§6 Observer
// interface). Observers must not mutate the graph; they may read state
// and accumulate metrics. All methods are optional: embed NopObserver to
// satisfy the interface and override only what's needed.
type Observer interface {
	BeforeStartGraph(graphID addrs.GraphID)
	AfterStartGraph(graphID addrs.GraphID)
	BeforeStartNode(node addrs.NodeID)
	AfterStartNode(node addrs.NodeID)
	BeforeGraphEvaluation(graphID addrs.GraphID, now enginetime.Time)
	AfterGraphEvaluation(graphID addrs.GraphID, now enginetime.Time)
	BeforeNodeEvaluation(node addrs.NodeID, now enginetime.Time)
	AfterNodeEvaluation(node addrs.NodeID, now enginetime.Time)
	AfterGraphPushNodesEvaluation(graphID addrs.GraphID, now enginetime.Time)
	BeforeStopGraph(graphID addrs.GraphID)
	AfterStopGraph(graphID addrs.GraphID)
	BeforeStopNode(node addrs.NodeID)
	AfterStopNode(node addrs.NodeID)
}

// NopObserver is a zero-cost base Observer implementations can embed.
type NopObserver struct{}

func (NopObserver) BeforeStartGraph(addrs.GraphID)                          {}
func (NopObserver) AfterStartGraph(addrs.GraphID)                           {}
func (NopObserver) BeforeStartNode(addrs.NodeID)                            {}
func (NopObserver) AfterStartNode(addrs.NodeID)                             {}
func (NopObserver) BeforeGraphEvaluation(addrs.GraphID, enginetime.Time)    {}
func (NopObserver) AfterGraphEvaluation(addrs.GraphID, enginetime.Time)     {}
func (NopObserver) BeforeNodeEvaluation(addrs.NodeID, enginetime.Time)      {}
func (NopObserver) AfterNodeEvaluation(addrs.NodeID, enginetime.Time)       {}
func (NopObserver) AfterGraphPushNodesEvaluation(addrs.GraphID, enginetime.Time) {}
func (NopObserver) BeforeStopGraph(addrs.GraphID)                           {}
func (NopObserver) AfterStopGraph(addrs.GraphID)                            {}
func (NopObserver) BeforeStopNode(addrs.NodeID)                             {}
func (NopObserver) AfterStopNode(addrs.NodeID)                              {}

// multiObserver fans a call out to several observers in registration
// order, letting the engine always carry its own built-in logging
// observer (§4.8) alongside any user-supplied one.
type multiObserver []Observer

func (m multiObserver) BeforeStartGraph(g addrs.GraphID) {
	for _, o := range m {
		o.BeforeStartGraph(g)
	}
}
func (m multiObserver) AfterStartGraph(g addrs.GraphID) {
	for _, o := range m {
		o.AfterStartGraph(g)
	}
}
func (m multiObserver) BeforeStartNode(n addrs.NodeID) {
	for _, o := range m {
		o.BeforeStartNode(n)
	}
}
func (m multiObserver) AfterStartNode(n addrs.NodeID) {
	for _, o := range m {
		o.AfterStartNode(n)
	}
}
func (m multiObserver) BeforeGraphEvaluation(g addrs.GraphID, t enginetime.Time) {
	for _, o := range m {
		o.BeforeGraphEvaluation(g, t)
	}
}
func (m multiObserver) AfterGraphEvaluation(g addrs.GraphID, t enginetime.Time) {
	for _, o := range m {
		o.AfterGraphEvaluation(g, t)
	}
}
func (m multiObserver) BeforeNodeEvaluation(n addrs.NodeID, t enginetime.Time) {
	for _, o := range m {
		o.BeforeNodeEvaluation(n, t)
	}
}
func (m multiObserver) AfterNodeEvaluation(n addrs.NodeID, t enginetime.Time) {
	for _, o := range m {
		o.AfterNodeEvaluation(n, t)
	}
}
func (m multiObserver) AfterGraphPushNodesEvaluation(g addrs.GraphID, t enginetime.Time) {
	for _, o := range m {
		o.AfterGraphPushNodesEvaluation(g, t)
	}
}
func (m multiObserver) BeforeStopGraph(g addrs.GraphID) {
	for _, o := range m {
		o.BeforeStopGraph(g)
	}
}
func (m multiObserver) AfterStopGraph(g addrs.GraphID) {
	for _, o := range m {
		o.AfterStopGraph(g)
	}
}
func (m multiObserver) BeforeStopNode(n addrs.NodeID) {
	for _, o := range m {
		o.BeforeStopNode(n)
	}
}
func (m multiObserver) AfterStopNode(n addrs.NodeID) {
	for _, o := range m {
		o.AfterStopNode(n)
	}
}
