// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/mitchellh/cli"

// commands returns the mapping of all the available hgraph commands,
// mirroring the teacher's commands map in cmd/tofu/commands.go.
func commands() map[string]cli.CommandFactory {
	return map[string]cli.CommandFactory{
		"run": func() (cli.Command, error) {
			return &RunCommand{Ui: Ui}, nil
		},
		"graphviz": func() (cli.Command, error) {
			return &GraphvizCommand{Ui: Ui}, nil
		},
		"version": func() (cli.Command, error) {
			return &VersionCommand{Ui: Ui, Version: Version}, nil
		},
	}
}
