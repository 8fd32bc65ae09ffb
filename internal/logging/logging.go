// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

// Package logging provides HGraph's structured logging conventions: one
// named hclog.Logger per subsystem, level controlled by the HGRAPH_LOG
// environment variable, mirroring the teacher's
// `hclog.Default().Named(...)` pattern used throughout cmd/tofu.
package logging

import (
	"os"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Subsystem names used to derive named sub-loggers. Kept as constants so
// a grep for "logging.Scheduler" etc. finds every call site.
const (
	Scheduler   = "scheduler"
	Engine      = "engine"
	TSGraph     = "tsgraph"
	NestedGraph = "nestedgraph"
)

var (
	once Sync
	root hclog.Logger
)

// Sync is a type alias of sync.Once (not a distinct type), used only to
// declare `once`.
type Sync = sync.Once

// Root returns the process-wide root logger, created lazily from the
// HGRAPH_LOG environment variable (trace, debug, info, warn, error;
// defaults to warn), matching the teacher's TF_LOG convention.
func Root() hclog.Logger {
	once.Do(func() {
		level := hclog.LevelFromString(strings.ToUpper(os.Getenv("HGRAPH_LOG")))
		if level == hclog.NoLevel {
			level = hclog.Warn
		}
		root = hclog.New(&hclog.LoggerOptions{
			Name:            "hgraph",
			Level:           level,
			IncludeLocation: level <= hclog.Debug,
		})
	})
	return root
}

// Named returns a sub-logger for one of the Subsystem constants.
func Named(subsystem string) hclog.Logger {
	return Root().Named(subsystem)
}
