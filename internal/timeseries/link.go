// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package timeseries

import (
	"hgraph/internal/enginetime"
	"hgraph/internal/value"
)

// Link is the interface Input uses to manage its binding without
// depending on the concrete link package (avoiding an import cycle: the
// link package depends on timeseries for Output/Subscriber, so Input can
// only depend back on link through an interface). It is implemented by
// link.TSLink (direct peer) and link.TSRefTargetLink (REF indirection),
// per §4.4.
type Link interface {
	Subscriber

	// Activate registers the link with its target output's overlay
	// (make_active); Deactivate removes it (make_passive). Both are
	// idempotent and Active() survives an Unbind/Bind round trip (§8
	// invariant 6).
	Activate()
	Deactivate()
	Active() bool

	// Unbind detaches the link from its current target without
	// affecting Active(); a later Bind re-subscribes automatically if
	// Active() is true.
	Unbind()

	// ModifiedAt and LastModifiedTime report the link's own notion of
	// "did my target change", taking REF indirection into account for
	// TSRefTargetLink (§4.4's combined modified_at rule).
	ModifiedAt(t enginetime.Time) bool
	LastModifiedTime() enginetime.Time

	// View returns the current target's value, transparently following
	// REF indirection for a TSRefTargetLink (§8 invariant 7).
	View() value.View
}

// NodeNotifier is the node back-pointer an Input holds (§4.3): something
// that can be told "one of your inputs changed at t". Implemented by
// node.Node; kept as an interface here so timeseries never imports node.
type NodeNotifier interface {
	Notify(t enginetime.Time)
}
