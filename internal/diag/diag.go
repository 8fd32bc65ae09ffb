// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

// Package diag implements HGraph's structured outcome type (§7 of the
// runtime spec): an ordered list of diagnostics, each with a severity and
// an optional node-path attribution, so that several problems discovered
// in one graph operation (e.g. multiple bad bindings at start) can be
// reported together instead of aborting on the first one. It plays the
// same role here that the teacher's internal/tfdiags plays for
// HCL-attributed configuration diagnostics, adapted to point at graph
// topology instead of source text since HGraph's surface language is out
// of scope.
package diag

import (
	"fmt"

	"hgraph/internal/addrs"
)

// SeverityLevel is the underlying level of a Diagnostic, separate from
// Severity so that PedanticMode can escalate Warning to Error without
// losing track of what the diagnostic "really" is.
type SeverityLevel int

const (
	WarningLevel SeverityLevel = iota
	ErrorLevel
)

func (s SeverityLevel) String() string {
	if s == ErrorLevel {
		return "Error"
	}
	return "Warning"
}

// PedanticMode, when true, escalates every Warning-level diagnostic to
// Error. It is a package-level var (not per-engine config) so that test
// suites and CLI tooling can toggle it globally the same way the
// teacher's tfdiags.PedanticMode works; production embeddings should
// leave it false.
var PedanticMode = false

// Severity wraps a SeverityLevel with the pedantic-mode escalation
// already applied, the way NewSeverity is the only path to a Severity
// value so callers never construct one with a stale escalation.
type Severity struct {
	SeverityLevel SeverityLevel
}

// NewSeverity applies the current PedanticMode escalation to level.
func NewSeverity(level SeverityLevel) Severity {
	if PedanticMode && level == WarningLevel {
		level = ErrorLevel
	}
	return Severity{SeverityLevel: level}
}

func (s Severity) String() string { return s.SeverityLevel.String() }

// Diagnostic is one structured problem report. NodePath is optional: it
// is set when the problem can be pinned to a specific node's position in
// the graph (a wiring error on a bad bind, a runtime error during eval);
// it is left at its zero value for engine-level problems with no single
// node to blame.
type Diagnostic struct {
	Severity Severity
	Summary  string
	Detail   string
	NodePath *addrs.NodeID
}

func (d Diagnostic) String() string {
	if d.NodePath != nil {
		return fmt.Sprintf("%s: %s (%s)", d.Severity, d.Summary, d.NodePath)
	}
	return fmt.Sprintf("%s: %s", d.Severity, d.Summary)
}

// Diagnostics is an ordered list of Diagnostic. The zero value is a valid
// empty list.
type Diagnostics []Diagnostic

// Append adds one or more diagnostics (and, ergonomically, accepts
// another Diagnostics or a bare error) and returns the extended list;
// callers use it the same accumulator-style the teacher's
// tfdiags.Diagnostics.Append does: `diags = diags.Append(...)`.
func (d Diagnostics) Append(items ...any) Diagnostics {
	for _, item := range items {
		switch v := item.(type) {
		case nil:
			continue
		case Diagnostic:
			d = append(d, v)
		case Diagnostics:
			d = append(d, v...)
		case error:
			d = append(d, Diagnostic{Severity: NewSeverity(ErrorLevel), Summary: v.Error()})
		default:
			d = append(d, Diagnostic{Severity: NewSeverity(ErrorLevel), Summary: fmt.Sprint(v)})
		}
	}
	return d
}

// HasErrors reports whether any diagnostic in the list is (after
// pedantic-mode escalation) Error severity.
func (d Diagnostics) HasErrors() bool {
	for _, diag := range d {
		if diag.Severity.SeverityLevel == ErrorLevel {
			return true
		}
	}
	return false
}

// Err returns nil if d has no errors, or a combined error summarizing
// every Error-severity diagnostic otherwise. It is the bridge used at API
// boundaries (cmd/hgraph) that still want a plain `error`.
func (d Diagnostics) Err() error {
	if !d.HasErrors() {
		return nil
	}
	msgs := make([]string, 0, len(d))
	for _, diag := range d {
		if diag.Severity.SeverityLevel == ErrorLevel {
			msgs = append(msgs, diag.String())
		}
	}
	return fmt.Errorf("%d error(s): %v", len(msgs), msgs)
}

// Errorf builds an Error-severity Diagnostic with no node attribution.
func Errorf(format string, args ...any) Diagnostic {
	return Diagnostic{Severity: NewSeverity(ErrorLevel), Summary: fmt.Sprintf(format, args...)}
}

// ErrorAt builds an Error-severity Diagnostic attributed to node.
func ErrorAt(node addrs.NodeID, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: NewSeverity(ErrorLevel), Summary: fmt.Sprintf(format, args...), NodePath: &node}
}

// Warningf builds a Warning-severity Diagnostic (escalated to Error if
// PedanticMode is set) with no node attribution.
func Warningf(format string, args ...any) Diagnostic {
	return Diagnostic{Severity: NewSeverity(WarningLevel), Summary: fmt.Sprintf(format, args...)}
}
