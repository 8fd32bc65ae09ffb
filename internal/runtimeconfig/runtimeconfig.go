// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

// Package runtimeconfig decodes an embedding host's configuration dict
// (environment, CLI flags, or any map[string]any source) into the
// engine's runtime options, mirroring the teacher's
// mapstructure-decoder-with-strict-tag-checking convention for parsing
// loosely-typed external data into a typed struct.
package runtimeconfig

import (
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Config holds the tick timeout, push-source inbox capacity, and
// recordable-state directory an engine is constructed with (§2.1
// AMBIENT STACK).
type Config struct {
	// TickTimeout bounds how long a single Engine.Tick call may run
	// before the caller should treat the graph as stuck (§5 Cancellation
	// & timeouts). Zero means no timeout is enforced.
	TickTimeout time.Duration `mapstructure:"tick_timeout"`

	// PushInboxCapacity is the number of PushArrival entries a graph's
	// inbox may hold. Graph.Push itself never rejects an arrival and the
	// graph package has no fixed bound; a caller enforces the cap by
	// comparing PendingPushCount against this value. Zero means unbounded.
	PushInboxCapacity int `mapstructure:"push_inbox_capacity"`

	// RecordableStateDir names a directory for persisted nested-graph
	// state. It is decoded and carried only: internal/recordable writes to
	// and reads from any io.Writer/io.Reader, and the nested catalog keeps
	// its records in memory, so no package reads or writes this directory.
	RecordableStateDir string `mapstructure:"recordable_state_dir"`
}

// Default returns the zero-value Config (no timeout, no inbox cap, no
// persistence directory): the safe starting point for an embedding that
// hasn't supplied explicit overrides.
func Default() Config {
	return Config{}
}

// Decode maps a loosely-typed configuration dict (as parsed from a host
// config file, environment-derived map, or CLI flag set) onto a Config,
// rejecting unrecognized keys so a typo in a config source surfaces
// immediately rather than being silently ignored.
func Decode(raw map[string]any) (Config, error) {
	cfg := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &cfg,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
