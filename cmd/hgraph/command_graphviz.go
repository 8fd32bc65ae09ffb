// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"os"
	"strings"

	"github.com/mitchellh/cli"

	"hgraph/internal/dag"
)

// GraphvizCommand writes a Graphviz "dot" rendering of the demonstration
// graph's topology to stdout, for piping into `dot -Tpng` or similar.
type GraphvizCommand struct {
	Ui cli.Ui
}

func (c *GraphvizCommand) Help() string {
	helpText := `
Usage: hgraph graphviz

  Writes a Graphviz "dot" rendering of the built-in demonstration graph's
  nodes and edges to stdout.
`
	return strings.TrimSpace(helpText)
}

func (c *GraphvizCommand) Run(args []string) int {
	g, _ := buildDemoGraph(c.Ui)
	if err := dag.WriteGraphviz(os.Stdout, g); err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	return 0
}

func (c *GraphvizCommand) Synopsis() string {
	return "Render the built-in demonstration graph as Graphviz dot language"
}
