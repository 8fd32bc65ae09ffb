// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

// Package timeseries wraps internal/value Values with an Overlay
// (subscribers, per-tick delta reset) and exposes the writable Output /
// bindable Input endpoints of a time-series edge (§3.5 of the runtime
// spec).
package timeseries

import "hgraph/internal/enginetime"

// Subscriber is notified synchronously whenever the Output it watches is
// modified or invalidated. It is implemented by the link package's
// TSLink and TSRefTargetLink channels; timeseries itself never
// constructs one.
type Subscriber interface {
	Notify(t enginetime.Time)
}

// Overlay is an Output's subscriber set (§3.5 "Overlay"). Membership is
// idempotent and notification order is insertion order — deterministic,
// per §5, but callers must not depend on a particular order among peers.
type Overlay struct {
	subs []Subscriber
	idx  map[Subscriber]int
}

// NewOverlay returns an empty Overlay.
func NewOverlay() *Overlay {
	return &Overlay{idx: make(map[Subscriber]int)}
}

// Subscribe registers s as active, a no-op if already registered (§4.2
// "idempotent").
func (o *Overlay) Subscribe(s Subscriber) {
	if _, ok := o.idx[s]; ok {
		return
	}
	o.idx[s] = len(o.subs)
	o.subs = append(o.subs, s)
}

// Unsubscribe removes s, a no-op if not registered.
func (o *Overlay) Unsubscribe(s Subscriber) {
	i, ok := o.idx[s]
	if !ok {
		return
	}
	o.subs = append(o.subs[:i], o.subs[i+1:]...)
	delete(o.idx, s)
	for j := i; j < len(o.subs); j++ {
		o.idx[o.subs[j]] = j
	}
}

// Len reports the number of active subscribers.
func (o *Overlay) Len() int { return len(o.subs) }

// NotifyAll notifies every active subscriber that the owning Output
// changed at t. Subscribers are never notified retroactively: this is
// the only path by which Notify is ever called.
func (o *Overlay) NotifyAll(t enginetime.Time) {
	// Iterate a snapshot: a subscriber's Notify (via TSRefTargetLink's
	// control channel) may rebind and thus subscribe/unsubscribe other
	// links on this same overlay mid-iteration.
	subs := make([]Subscriber, len(o.subs))
	copy(subs, o.subs)
	for _, s := range subs {
		s.Notify(t)
	}
}
