// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/mitchellh/cli"
)

// VersionCommand prints the hgraph CLI's version.
type VersionCommand struct {
	Ui      cli.Ui
	Version string
}

func (c *VersionCommand) Help() string {
	helpText := `
Usage: hgraph version

  Displays the version of the hgraph CLI.
`
	return strings.TrimSpace(helpText)
}

func (c *VersionCommand) Run(args []string) int {
	c.Ui.Output(fmt.Sprintf("hgraph v%s", c.Version))
	return 0
}

func (c *VersionCommand) Synopsis() string {
	return "Show the current hgraph version"
}
