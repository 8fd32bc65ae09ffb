// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hgraph/internal/diag"
	"hgraph/internal/engine"
	"hgraph/internal/enginetime"
	"hgraph/internal/link"
	"hgraph/internal/node"
	"hgraph/internal/timeseries"
	"hgraph/internal/typemeta"
)

// TestConstantPlusAddScenario builds a two-node graph: a PushSource
// feeding an int, and a Compute node that adds a fixed constant to
// whatever it last observed, writing the sum to its own output. It
// exercises §8 scenario 1 (constant + add) end to end: wiring, start,
// tick, delta observation.
func TestConstantPlusAddScenario(t *testing.T) {
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
		n.Output.Apply(cur+addend, now, reg)
		return nil
	}
	g.AddNode(sum)

	tl := link.NewTSLink(source.Output, sum, 0, false)
	sum.Inputs["in"].BindPeer(tl)

	eng := engine.New(g, nil)

	require.False(t, eng.Start().HasErrors())

	source.Output.Apply(int64(5), enginetime.Time(1), eng)
	g.Push(0)
	now, ran := eng.Tick()
	require.True(t, ran)
	assert.Equal(t, enginetime.Time(1), now)

	view := sum.Output.View()
	require.True(t, view.Valid())
	assert.Equal(t, int64(15), view.ScalarValue())

	require.False(t, eng.Stop().HasErrors())
}

// TestTickDrainsCascadedNotificationsWithinOneNow builds a three-node
// chain (source -> relay -> final) where relay's own evaluation writes
// an output that schedules final within the same "now", rather than
// pre-seeding every node's schedule entry before Tick the way
// TestConstantPlusAddScenario does. It exercises §4.5 step 4's "drain
// the heap while entries remain due at now" requirement directly: a
// single Tick() call must carry the cascade all the way to final, not
// just to relay, and final's delta must still be observable afterward
// (§8 invariants 4 and 8).
func TestTickDrainsCascadedNotificationsWithinOneNow(t *testing.T) {
	reg := typemeta.NewRegistry()
	b := typemeta.RegisterBuiltins(reg)

	g := node.NewGraph(1, nil)

	source := node.NewNode(g, 0, node.PushSource, "source", nil, b.Int)
	g.AddNode(source)

	relay := node.NewNode(g, 1, node.Compute, "relay", map[string]*typemeta.TypeMeta{"in": b.Int}, b.Int)
	relay.Eval = func(n *node.Node, now enginetime.Time, reg timeseries.TickRegistrar) diag.Diagnostics {
		in := n.Inputs["in"].View()
		if !in.Valid() {
			return nil
		}
		n.Output.Apply(in.ScalarValue(), now, reg)
		return nil
	}
	g.AddNode(relay)

	final := node.NewNode(g, 2, node.Compute, "final", map[string]*typemeta.TypeMeta{"in": b.Int}, b.Int)
	final.Eval = func(n *node.Node, now enginetime.Time, reg timeseries.TickRegistrar) diag.Diagnostics {
		in := n.Inputs["in"].View()
		if !in.Valid() {
			return nil
		}
		cur, _ := in.ScalarValue().(int64)
		n.Output.Apply(cur+100, now, reg)
		return nil
	}
	g.AddNode(final)

	sourceToRelay := link.NewTSLink(source.Output, relay, 0, false)
	relay.Inputs["in"].BindPeer(sourceToRelay)

	relayToFinal := link.NewTSLink(relay.Output, final, 0, false)
	final.Inputs["in"].BindPeer(relayToFinal)

	eng := engine.New(g, nil)
	require.False(t, eng.Start().HasErrors())

	source.Output.Apply(int64(5), enginetime.Time(1), eng)
	g.Push(0)

	now, ran := eng.Tick()
	require.True(t, ran)
	assert.Equal(t, enginetime.Time(1), now)

	relayView := relay.Output.View()
	require.True(t, relayView.Valid())
	assert.Equal(t, int64(5), relayView.ScalarValue())

	finalView := final.Output.View()
	require.True(t, finalView.Valid())
	assert.Equal(t, int64(105), finalView.ScalarValue())
	assert.True(t, final.Output.ModifiedAt(now))

	require.False(t, eng.Stop().HasErrors())
}
