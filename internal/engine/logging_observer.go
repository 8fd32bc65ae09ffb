// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"hgraph/internal/addrs"
	"hgraph/internal/enginetime"
	"hgraph/internal/logging"

	"github.com/hashicorp/go-hclog"
)

// loggingObserver is the default Observer every Engine carries (§4.8):
// node evaluation logs at Trace, graph/node start and stop at Debug, so
// a production embedding gets useful diagnostics with zero
// configuration while remaining removable (observers are optional).
type loggingObserver struct {
	NopObserver
	log hclog.Logger
}

func newLoggingObserver() *loggingObserver {
	return &loggingObserver{log: logging.Named(logging.Engine)}
}

func (l *loggingObserver) BeforeStartGraph(g addrs.GraphID) { l.log.Debug("before start graph", "graph", g) }
func (l *loggingObserver) AfterStartGraph(g addrs.GraphID)  { l.log.Debug("after start graph", "graph", g) }
func (l *loggingObserver) BeforeStopGraph(g addrs.GraphID)  { l.log.Debug("before stop graph", "graph", g) }
func (l *loggingObserver) AfterStopGraph(g addrs.GraphID)   { l.log.Debug("after stop graph", "graph", g) }

func (l *loggingObserver) BeforeStartNode(n addrs.NodeID) { l.log.Debug("before start node", "node", n) }
func (l *loggingObserver) AfterStartNode(n addrs.NodeID)  { l.log.Debug("after start node", "node", n) }
func (l *loggingObserver) BeforeStopNode(n addrs.NodeID)  { l.log.Debug("before stop node", "node", n) }
func (l *loggingObserver) AfterStopNode(n addrs.NodeID)   { l.log.Debug("after stop node", "node", n) }

func (l *loggingObserver) BeforeNodeEvaluation(n addrs.NodeID, t enginetime.Time) {
	l.log.Trace("before node evaluation", "node", n, "time", t)
}
func (l *loggingObserver) AfterNodeEvaluation(n addrs.NodeID, t enginetime.Time) {
	l.log.Trace("after node evaluation", "node", n, "time", t)
}
