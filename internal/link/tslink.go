// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

// Package link implements the two binding primitives described in §3.6
// and §4.4 of the runtime spec: TSLink, a direct Input-to-Output peer
// binding, and TSRefTargetLink, the two-channel REF indirection binding
// that rebinds its data channel whenever its control channel's Ref
// output changes what it resolves to.
package link

import (
	"hgraph/internal/enginetime"
	"hgraph/internal/timeseries"
	"hgraph/internal/value"
)

// TSLink connects one Input (or one element slot of a NonPeered Input)
// to one Output. State: {output_ptr, active, element_index, sample_time,
// notify_once} exactly as §3.6 describes. Unbind preserves active; a
// later Bind auto-resubscribes.
type TSLink struct {
	target       *timeseries.Output
	owner        timeseries.Subscriber
	elementIndex int
	notifyOnce   bool

	active     bool // desired subscription state, survives Unbind
	subscribed bool // whether currently registered with target's overlay

	firedOnce     bool
	notifyTime    enginetime.Time
	notifyTimeSet bool
}

// NewTSLink constructs a link to target (may be nil, meaning unbound),
// notifying owner on change. elementIndex identifies which element of a
// NonPeered Input this link serves (0 for a Peered Input's sole link).
// notifyOnce, when true, fires owner.Notify at most once per binding:
// Bind to a new target re-arms it (used for one-shot sampling binds).
func NewTSLink(target *timeseries.Output, owner timeseries.Subscriber, elementIndex int, notifyOnce bool) *TSLink {
	return &TSLink{target: target, owner: owner, elementIndex: elementIndex, notifyOnce: notifyOnce}
}

// Notify implements timeseries.Subscriber: called by the target output's
// overlay. Per §4.4:
//  1. if time == _notify_time, return.
//  2. set _notify_time = time.
//  3. if _notify_once and already fired after bind, return.
//  4. call owner.Notify(time).
func (l *TSLink) Notify(t enginetime.Time) {
	if l.notifyTimeSet && l.notifyTime == t {
		return
	}
	l.notifyTime = t
	l.notifyTimeSet = true
	if l.notifyOnce {
		if l.firedOnce {
			return
		}
		l.firedOnce = true
	}
	if l.owner != nil {
		l.owner.Notify(t)
	}
}

// Activate registers the link with its target's overlay (make_active).
// Idempotent.
func (l *TSLink) Activate() {
	l.active = true
	if !l.subscribed && l.target != nil {
		l.target.Subscribe(l)
		l.subscribed = true
	}
}

// Deactivate removes the link from its target's overlay (make_passive).
// Idempotent.
func (l *TSLink) Deactivate() {
	l.active = false
	if l.subscribed && l.target != nil {
		l.target.Unsubscribe(l)
		l.subscribed = false
	}
}

// Active reports the link's desired subscription state.
func (l *TSLink) Active() bool { return l.active }

// Unbind detaches from the current target, preserving Active() (§8
// invariant 6).
func (l *TSLink) Unbind() {
	if l.subscribed && l.target != nil {
		l.target.Unsubscribe(l)
		l.subscribed = false
	}
	l.target = nil
}

// Bind attaches the link to a new target, auto-resubscribing if Active().
// Rebinding to the same output the link is already bound to is a no-op
// for the subscriber set (§8 invariant 6).
func (l *TSLink) Bind(target *timeseries.Output) {
	if l.target == target {
		return
	}
	l.Unbind()
	l.target = target
	l.firedOnce = false
	if l.active && target != nil {
		target.Subscribe(l)
		l.subscribed = true
	}
}

func (l *TSLink) Target() *timeseries.Output { return l.target }
func (l *TSLink) ElementIndex() int          { return l.elementIndex }

// ModifiedAt reports whether the bound target changed at t.
func (l *TSLink) ModifiedAt(t enginetime.Time) bool {
	return l.target != nil && l.target.ModifiedAt(t)
}

// LastModifiedTime forwards to the bound target, or MinTime if unbound.
func (l *TSLink) LastModifiedTime() enginetime.Time {
	if l.target == nil {
		return enginetime.MinTime
	}
	return l.target.LastModifiedTime()
}

// View forwards to the bound target, or a zero View if unbound.
func (l *TSLink) View() value.View {
	if l.target == nil {
		return value.View{}
	}
	return l.target.View()
}
