// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package dag_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"hgraph/internal/dag"
	"hgraph/internal/link"
	"hgraph/internal/node"
	"hgraph/internal/typemeta"
)

// TestWriteGraphvizRendersSortedNodesAndEdges grounds the rendering in a
// two-node graph (a source feeding a compute node), mirroring the
// teacher's own graphviz_test.go style of diffing the rendered text with
// cmp.Diff rather than asserting on substrings.
func TestWriteGraphvizRendersSortedNodesAndEdges(t *testing.T) {
	reg := typemeta.NewRegistry()
	b := typemeta.RegisterBuiltins(reg)

	g := node.NewGraph(7, nil)
	source := node.NewNode(g, 0, node.PushSource, "source", nil, b.Int)
	g.AddNode(source)
	sum := node.NewNode(g, 1, node.Compute, "add-constant", map[string]*typemeta.TypeMeta{"in": b.Int}, b.Int)
	g.AddNode(sum)

	tl := link.NewTSLink(source.Output, sum, 0, false)
	sum.Inputs["in"].BindPeer(tl)

	var buf strings.Builder
	require.NoError(t, dag.WriteGraphviz(&buf, g))

	want := "digraph {\n" +
		"  node [shape=box];\n" +
		`  "g7:n0" [label="source\\npush-source"];` + "\n" +
		`  "g7:n1" [label="add-constant\\ncompute"];` + "\n" +
		`  "g7:n0" -> "g7:n1";` + "\n" +
		"}\n"

	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("WriteGraphviz output mismatch (-want +got):\n%s", diff)
	}
}
