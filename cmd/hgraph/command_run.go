// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"strings"

	"github.com/mitchellh/cli"

	"hgraph/internal/engine"
)

// RunCommand starts the demonstration graph and drives it through a fixed
// sequence of pushed values, printing each tick's result.
type RunCommand struct {
	Ui cli.Ui
}

func (c *RunCommand) Help() string {
	helpText := `
Usage: hgraph run

  Starts the built-in demonstration graph (a push source feeding a
  constant-add compute node into a print sink) and drives it through a
  short fixed sequence of values, printing the result of each tick.
`
	return strings.TrimSpace(helpText)
}

func (c *RunCommand) Run(args []string) int {
	g, source := buildDemoGraph(c.Ui)
	eng := engine.New(g, nil)

	if diags := eng.Start(); diags.HasErrors() {
		c.Ui.Error(diags.Err().Error())
		return 1
	}
	defer eng.Stop()

	diags := runDemoTicks(eng, g, source, []int64{1, 2, 3, 5, 8})
	if diags.HasErrors() {
		c.Ui.Error(diags.Err().Error())
		return 1
	}
	return 0
}

func (c *RunCommand) Synopsis() string {
	return "Run the built-in demonstration graph"
}
