// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package link

import (
	"hgraph/internal/addrs"
	"hgraph/internal/enginetime"
	"hgraph/internal/timeseries"
	"hgraph/internal/typemeta"
	"hgraph/internal/value"
)

// PathResolver resolves a Path to the Output it names, against whatever
// graph owns the node that created the link. Supplied by the node/graph
// package so link never needs to import it (avoiding an import cycle).
type PathResolver func(p addrs.Path) (*timeseries.Output, error)

// RebindDelta is the eagerly-computed collection delta between a
// TSRefTargetLink's previous and new target, for the case where rebind
// fires mid-tick and observers need to know what specifically changed
// rather than just "the whole collection is different now" (§4.4 step
// 3, §4.7 Ref row). It is cleared the next time the control channel
// fires (approximating "cleared by the end-of-tick callback": a rebind
// can happen at most once per tick per the monotonic Ref output, so the
// next control-channel firing is necessarily a later tick).
type RebindDelta struct {
	Added, Removed, Updated []typemeta.HostValue
}

// TSRefTargetLink is the single-notifiable REF indirection link variant
// (§4.4, §9 Open Questions: "the spec above reflects the
// single-notifiable variant"): a control channel permanently subscribed
// to a Ref output's overlay, and a data channel the user toggles
// active/passive whose bound target is rewritten whenever the control
// channel fires.
type TSRefTargetLink struct {
	refOutput *timeseries.Output
	owner     timeseries.Subscriber
	resolve   PathResolver

	control *TSLink
	data    *TSLink

	// children backs a NonPeered-shaped Ref target: one data link per
	// resolved element.
	children []*TSLink

	currentTarget *timeseries.Output
	prevTarget    *timeseries.Output
	rebindDelta   RebindDelta

	sampleTime    enginetime.Time
	sampleTimeSet bool
}

// NewTSRefTargetLink constructs a link observing refOutput (which must be
// Ref-kind), notifying owner on any change — either the Ref's target
// rebinding or the current target's value changing.
func NewTSRefTargetLink(refOutput *timeseries.Output, owner timeseries.Subscriber, resolve PathResolver) *TSRefTargetLink {
	l := &TSRefTargetLink{refOutput: refOutput, owner: owner, resolve: resolve}
	l.control = NewTSLink(refOutput, ctrlSink{l}, 0, false)
	l.control.Activate() // the control channel is permanently subscribed
	l.data = NewTSLink(nil, dataSink{l}, 0, false)
	return l
}

type ctrlSink struct{ l *TSRefTargetLink }

func (c ctrlSink) Notify(t enginetime.Time) { c.l.onControlNotify(t) }

type dataSink struct{ l *TSRefTargetLink }

func (d dataSink) Notify(t enginetime.Time) { d.l.onDataNotify(t) }

// onControlNotify runs the five steps of §4.4's TSRefTargetLink.notify:
// read the new Ref, (un)bind the data channel accordingly, compute a
// RebindDelta on an actual target change, and notify the owner.
func (l *TSRefTargetLink) onControlNotify(t enginetime.Time) {
	l.rebindDelta = RebindDelta{}
	ref := l.refOutput.View().RefValue()

	switch ref.State {
	case value.RefEmpty:
		l.prevTarget = l.currentTarget
		l.data.Unbind()
		l.currentTarget = nil
		l.children = nil
		if l.prevTarget != nil {
			l.rebindDelta = diffCollections(l.prevTarget, nil)
		}

	case value.RefPeered:
		newTarget, err := l.resolve(ref.Path)
		if err != nil {
			newTarget = nil
		}
		if newTarget != l.currentTarget {
			l.prevTarget = l.currentTarget
			l.data.Bind(newTarget)
			l.currentTarget = newTarget
			l.rebindDelta = diffCollections(l.prevTarget, newTarget)
		}
		l.children = nil

	case value.RefNonPeered:
		l.rebindNonPeered(ref.Children)
		l.currentTarget = nil
	}

	l.sampleTime = t
	l.sampleTimeSet = true
	if l.owner != nil {
		l.owner.Notify(t)
	}
}

func (l *TSRefTargetLink) rebindNonPeered(children []value.Ref) {
	newLinks := make([]*TSLink, len(children))
	for i, c := range children {
		if c.State != value.RefPeered {
			continue
		}
		target, err := l.resolve(c.Path)
		if err != nil {
			continue
		}
		tl := NewTSLink(target, dataSink{l}, i, false)
		if l.data.Active() {
			tl.Activate()
		}
		newLinks[i] = tl
	}
	for _, old := range l.children {
		if old != nil {
			old.Deactivate()
		}
	}
	l.children = newLinks
}

func (l *TSRefTargetLink) onDataNotify(t enginetime.Time) {
	if l.owner != nil {
		l.owner.Notify(t)
	}
}

// Notify implements timeseries.Subscriber for symmetry with TSLink, in
// case a caller needs to treat a TSRefTargetLink as a bare Subscriber;
// normal operation always goes through the internal ctrlSink/dataSink
// adapters instead.
func (l *TSRefTargetLink) Notify(t enginetime.Time) { l.onDataNotify(t) }

// Activate turns on the data channel (and, for a NonPeered target, every
// child link); the control channel is always active once constructed.
func (l *TSRefTargetLink) Activate() {
	l.data.Activate()
	for _, c := range l.children {
		if c != nil {
			c.Activate()
		}
	}
}

// Deactivate turns off the data channel and any children, leaving the
// control channel subscribed so rebinds still resolve a fresh target
// even while passive.
func (l *TSRefTargetLink) Deactivate() {
	l.data.Deactivate()
	for _, c := range l.children {
		if c != nil {
			c.Deactivate()
		}
	}
}

func (l *TSRefTargetLink) Active() bool { return l.data.Active() }

// Unbind detaches the data channel (and children) without touching the
// control channel's permanent subscription.
func (l *TSRefTargetLink) Unbind() {
	l.data.Unbind()
	for _, c := range l.children {
		if c != nil {
			c.Unbind()
		}
	}
	l.children = nil
	l.currentTarget = nil
}

// ModifiedAt implements §4.4's combined rule: ref_channel.sample_time ==
// t OR data_channel.modified_at(t).
func (l *TSRefTargetLink) ModifiedAt(t enginetime.Time) bool {
	if l.sampleTimeSet && l.sampleTime == t {
		return true
	}
	if l.data.ModifiedAt(t) {
		return true
	}
	for _, c := range l.children {
		if c != nil && c.ModifiedAt(t) {
			return true
		}
	}
	return false
}

// LastModifiedTime is the max of both channels.
func (l *TSRefTargetLink) LastModifiedTime() enginetime.Time {
	max := l.sampleTime
	if dt := l.data.LastModifiedTime(); dt.After(max) {
		max = dt
	}
	for _, c := range l.children {
		if c == nil {
			continue
		}
		if ct := c.LastModifiedTime(); ct.After(max) {
			max = ct
		}
	}
	return max
}

// View transparently follows the REF indirection to the current target
// (§8 invariant 7).
func (l *TSRefTargetLink) View() value.View {
	return l.data.View()
}

// RebindDeltaAt returns the delta computed by the most recent rebind, if
// any happened in this tick.
func (l *TSRefTargetLink) RebindDeltaAt(t enginetime.Time) (RebindDelta, bool) {
	if !(l.sampleTimeSet && l.sampleTime == t) {
		return RebindDelta{}, false
	}
	return l.rebindDelta, true
}

// diffCollections computes an added/removed/updated projection between
// two Set- or Map-kind outputs (either may be nil, meaning empty). Scalar
// and other kinds have no meaningful rebind delta and return the zero
// value.
func diffCollections(oldOut, newOut *timeseries.Output) RebindDelta {
	kind := typemeta.KindInvalid
	switch {
	case newOut != nil:
		kind = newOut.TypeMeta().Kind()
	case oldOut != nil:
		kind = oldOut.TypeMeta().Kind()
	}

	switch kind {
	case typemeta.KindSet:
		oldElems := map[typemeta.HostValue]bool{}
		if oldOut != nil {
			for _, e := range oldOut.View().SetElements() {
				oldElems[e] = true
			}
		}
		newElems := map[typemeta.HostValue]bool{}
		if newOut != nil {
			for _, e := range newOut.View().SetElements() {
				newElems[e] = true
			}
		}
		var d RebindDelta
		for e := range newElems {
			if !oldElems[e] {
				d.Added = append(d.Added, e)
			}
		}
		for e := range oldElems {
			if !newElems[e] {
				d.Removed = append(d.Removed, e)
			}
		}
		return d

	case typemeta.KindMap:
		var oldMap, newMap map[typemeta.HostValue]typemeta.HostValue
		if oldOut != nil {
			oldMap = oldOut.View().MapEntries()
		}
		if newOut != nil {
			newMap = newOut.View().MapEntries()
		}
		var d RebindDelta
		for k, v := range newMap {
			if ov, ok := oldMap[k]; !ok {
				d.Added = append(d.Added, k)
			} else if ov != v {
				d.Updated = append(d.Updated, k)
			}
		}
		for k := range oldMap {
			if _, ok := newMap[k]; !ok {
				d.Removed = append(d.Removed, k)
			}
		}
		return d

	default:
		return RebindDelta{}
	}
}
