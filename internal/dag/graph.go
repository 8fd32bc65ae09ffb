// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

// Package dag renders a node.Graph as Graphviz "dot" language for
// debugging, the supplemented visualization feature grounded on the
// teacher's internal/dag/graphviz package (§9.1): deterministic,
// lexically-sorted node and edge output so the rendering is stable
// across runs for easy diffing.
package dag

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"slices"

	"hgraph/internal/node"
	"hgraph/internal/timeseries"
)

// targeted is satisfied by link.TSLink (and anything else exposing its
// bound source Output); a link type that doesn't implement it, such as a
// ref-indirection link, simply contributes no edge to the rendering.
type targeted interface {
	Target() *timeseries.Output
}

// WriteGraphviz writes a "digraph" rendering of g's nodes and the edges
// implied by each node's Peered/NonPeered input bindings to w. Nodes are
// labeled with their Kind and Signature; the rendering does not
// participate in scheduling and is purely diagnostic.
func WriteGraphviz(w io.Writer, g *node.Graph) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("digraph {\n  node [shape=box];\n"); err != nil {
		return err
	}

	nodes := g.Nodes()
	byOutput := make(map[*timeseries.Output]*node.Node, len(nodes))
	for _, n := range nodes {
		if n.Output != nil {
			byOutput[n.Output] = n
		}
	}

	sorted := append([]*node.Node(nil), nodes...)
	slices.SortFunc(sorted, func(a, b *node.Node) int {
		return cmp.Compare(a.ID.String(), b.ID.String())
	})

	for _, n := range sorted {
		attrs := Attributes{
			"label": Attr(fmt.Sprintf("%s\\n%s", n.Signature, n.Kind)),
		}
		if _, err := bw.WriteString("  " + quoteForGraphviz(n.ID.String()) + " ["); err != nil {
			return err
		}
		if err := writeAttrList(attrs, bw); err != nil {
			return err
		}
		if _, err := bw.WriteString("];\n"); err != nil {
			return err
		}
	}

	type edge struct{ src, dst string }
	var edges []edge
	for _, n := range sorted {
		for _, name := range n.InputNames() {
			in := n.Inputs[name]
			for _, l := range linksOf(in) {
				t, ok := l.(targeted)
				if !ok {
					continue
				}
				out := t.Target()
				if out == nil {
					continue
				}
				src, ok := byOutput[out]
				if !ok {
					continue
				}
				edges = append(edges, edge{src: src.ID.String(), dst: n.ID.String()})
			}
		}
	}
	slices.SortFunc(edges, func(a, b edge) int {
		if c := cmp.Compare(a.src, b.src); c != 0 {
			return c
		}
		return cmp.Compare(a.dst, b.dst)
	})
	for _, e := range edges {
		line := "  " + quoteForGraphviz(e.src) + " -> " + quoteForGraphviz(e.dst) + ";\n"
		if _, err := bw.WriteString(line); err != nil {
			return err
		}
	}

	if _, err := bw.WriteString("}\n"); err != nil {
		return err
	}
	return bw.Flush()
}

func linksOf(in *timeseries.Input) []timeseries.Link {
	if l := in.Link(); l != nil {
		return []timeseries.Link{l}
	}
	return in.ChildLinks()
}
