// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"

	"github.com/mitchellh/cli"
)

// Ui is the cli.Ui used for communicating to the outside world, matching
// the teacher's package-level Ui convention.
var Ui cli.Ui

func init() {
	Ui = &cli.BasicUi{
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
		Reader:      os.Stdin,
	}
}

func main() {
	os.Exit(realMain())
}

func realMain() int {
	args := os.Args[1:]

	cliRunner := &cli.CLI{
		Name:       "hgraph",
		Args:       args,
		Commands:   commands(),
		HelpFunc:   cli.BasicHelpFunc("hgraph"),
		HelpWriter: os.Stdout,
	}

	exitCode, err := cliRunner.Run()
	if err != nil {
		Ui.Error(fmt.Sprintf("Error executing CLI: %s", err))
		return 1
	}
	return exitCode
}
