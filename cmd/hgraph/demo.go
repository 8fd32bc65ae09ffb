// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"

	"github.com/mitchellh/cli"

	"hgraph/internal/diag"
	"hgraph/internal/engine"
	"hgraph/internal/enginetime"
	"hgraph/internal/link"
	"hgraph/internal/node"
	"hgraph/internal/timeseries"
	"hgraph/internal/typemeta"
)

// buildDemoGraph constructs the constant-plus-add scenario from §8
// scenario 1 as a runnable, visualizable graph: a push source, a compute
// node adding a fixed constant, and a sink that reports each result
// through ui. There is no graph-definition surface language in scope
// (§1/§6), so "run"/"graphviz" operate on this fixed demonstration graph
// rather than a user-supplied graph file.
func buildDemoGraph(ui cli.Ui) (*node.Graph, *node.Node) {
	reg := typemeta.NewRegistry()
	b := typemeta.RegisterBuiltins(reg)

	g := node.NewGraph(1, nil)

	source := node.NewNode(g, 0, node.PushSource, "source", nil, b.Int)
	g.AddNode(source)

	const addend = int64(10)
	sum := node.NewNode(g, 1, node.Compute, "add-constant", map[string]*typemeta.TypeMeta{"in": b.Int}, b.Int)
	sum.Eval = func(n *node.Node, now enginetime.Time, reg timeseries.TickRegistrar) diag.Diagnostics {
		in := n.Inputs["in"].View()
		if !in.Valid() {
			return nil
		}
		cur, _ := in.ScalarValue().(int64)
		return n.Output.Apply(cur+addend, now, reg)
	}
	g.AddNode(sum)

	sink := node.NewNode(g, 2, node.Sink, "print-sink", map[string]*typemeta.TypeMeta{"in": b.Int}, nil)
	sink.Eval = func(n *node.Node, now enginetime.Time, reg timeseries.TickRegistrar) diag.Diagnostics {
		in := n.Inputs["in"].View()
		if !in.Valid() {
			return nil
		}
		ui.Output(fmt.Sprintf("t=%s sum=%v", now, in.ScalarValue()))
		return nil
	}
	g.AddNode(sink)

	srcToSum := link.NewTSLink(source.Output, sum, 0, false)
	sum.Inputs["in"].BindPeer(srcToSum)

	sumToSink := link.NewTSLink(sum.Output, sink, 0, false)
	sink.Inputs["in"].BindPeer(sumToSink)

	return g, source
}

// runDemoTicks pushes a short fixed sequence of values into source and
// ticks the engine once per value, for the "run" command's non-interactive
// demonstration mode.
func runDemoTicks(eng *engine.Engine, g *node.Graph, source *node.Node, values []int64) diag.Diagnostics {
	var diags diag.Diagnostics
	for i, v := range values {
		t := enginetime.Time(i + 1)
		diags = diags.Append(source.Output.Apply(v, t, eng))
		g.Push(source.ID.NodeNdx)
		if _, ran := eng.Tick(); !ran {
			diags = diags.Append(diag.Errorf("tick at t=%s did not run any nodes", t))
		}
	}
	return diags
}
