// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package timeseries

import (
	"hgraph/internal/enginetime"
	"hgraph/internal/typemeta"
	"hgraph/internal/value"
)

// BindMode is the sealed set of binding strategies an Input can be in
// (§4.3's mode table).
type BindMode uint8

const (
	// Unbound is the default: no peer, never modified.
	Unbound BindMode = iota
	// Peered binds directly to one Output of the same TS kind.
	Peered
	// NonPeered binds a collection-shaped Input element-wise to several
	// per-element Outputs.
	NonPeered
	// RefObserver binds a non-Ref Input to a Ref Output, observing
	// whatever the Ref currently resolves to.
	RefObserver
	// RefWrapper binds a Ref-typed Input to a non-Ref Output, wrapping it
	// as a synthetic Ref computed once at bind time.
	RefWrapper
)

func (m BindMode) String() string {
	switch m {
	case Peered:
		return "peered"
	case NonPeered:
		return "non-peered"
	case RefObserver:
		return "ref-observer"
	case RefWrapper:
		return "ref-wrapper"
	default:
		return "unbound"
	}
}

// Input is the bindable, read-only endpoint of a time-series edge (§3.5).
// It never owns value data; it borrows through a Link (or, for
// NonPeered, several child Links).
type Input struct {
	tm    *typemeta.TypeMeta
	owner NodeNotifier
	name  string

	mode BindMode

	// Peered / RefObserver: the single link mediating the binding.
	link Link

	// NonPeered: one link per element, in a stable, caller-assigned
	// order (matching the collection's own slot/key order).
	children []Link

	// RefWrapper: the synthetic ref computed once at bind time, and the
	// time it was computed, since this mode is "modified at bind time"
	// only (§4.3 table) and never again.
	wrapped  value.Ref
	wrappedV *value.Value
	bindTime enginetime.Time
	bound    bool

	active bool

	// notify dedup (§4.3: "record notify_time; silently drop duplicates
	// within the same tick").
	notifyTime    enginetime.Time
	notifyTimeSet bool
}

// NewInput constructs an Unbound Input of type tm, owned by owner.
func NewInput(tm *typemeta.TypeMeta, owner NodeNotifier, name string) *Input {
	return &Input{tm: tm, owner: owner, name: name, mode: Unbound}
}

func (in *Input) TypeMeta() *typemeta.TypeMeta { return in.tm }
func (in *Input) Mode() BindMode               { return in.mode }
func (in *Input) Name() string                 { return in.name }

// HasPeer reports true only in Peered mode (§4.3 table's has_peer
// column).
func (in *Input) HasPeer() bool { return in.mode == Peered }

// Notify is called by this Input's Link(s) when a target changed; it
// performs the per-tick dedup described in §4.3 ("record notify_time;
// silently drop duplicates within the same tick") before delegating to
// the owning node, so a NonPeered input with several child links firing
// in the same tick still notifies its node exactly once.
func (in *Input) Notify(t enginetime.Time) {
	if in.notifyTimeSet && in.notifyTime == t {
		return
	}
	in.notifyTime = t
	in.notifyTimeSet = true
	if in.owner != nil {
		in.owner.Notify(t)
	}
}

// BindPeer switches the Input into Peered mode using link as the single
// binding. Any previous link is left as-is (the caller is expected to
// have unbound it first); panics if tm doesn't match the link's target
// kind is left to the caller (wiring validation happens one level up, in
// the node/graph package, where both TypeMetas are known statically).
func (in *Input) BindPeer(link Link) {
	in.mode = Peered
	in.link = link
	in.children = nil
	if in.active {
		link.Activate()
	}
}

// BindNonPeered switches the Input into NonPeered mode with one link per
// element, in collection order.
func (in *Input) BindNonPeered(links []Link) {
	in.mode = NonPeered
	in.link = nil
	in.children = links
	if in.active {
		for _, l := range links {
			l.Activate()
		}
	}
}

// BindRefObserver switches the Input into RefObserver mode: link is
// expected to be a *link.TSRefTargetLink (or anything implementing the
// same combined modified-at semantics).
func (in *Input) BindRefObserver(link Link) {
	in.mode = RefObserver
	in.link = link
	in.children = nil
	if in.active {
		link.Activate()
	}
}

// BindRefWrapper switches a Ref-typed Input into RefWrapper mode,
// holding ref as its synthesized Ref and recording at as the
// one-time bind modification (§4.3: "only at bind time").
func (in *Input) BindRefWrapper(ref value.Ref, at enginetime.Time) {
	in.mode = RefWrapper
	in.link = nil
	in.children = nil
	in.wrapped = ref
	in.bindTime = at
	in.bound = true
}

// Unbind detaches the current link(s) without discarding active state:
// a later Bind* call auto-resubscribes if Active() is true (§8 invariant
// 6, §3.6 "Unbind preserves active").
func (in *Input) Unbind() {
	if in.link != nil {
		in.link.Unbind()
	}
	for _, l := range in.children {
		l.Unbind()
	}
	in.mode = Unbound
	in.link = nil
	in.children = nil
	in.bound = false
}

// MakeActive registers this Input's link(s) with their target output's
// overlay (§4.3).
func (in *Input) MakeActive() {
	in.active = true
	if in.link != nil {
		in.link.Activate()
	}
	for _, l := range in.children {
		l.Activate()
	}
}

// MakePassive removes this Input's link(s) from their target's overlay.
func (in *Input) MakePassive() {
	in.active = false
	if in.link != nil {
		in.link.Deactivate()
	}
	for _, l := range in.children {
		l.Deactivate()
	}
}

// Active reports whether this Input is currently subscribed.
func (in *Input) Active() bool { return in.active }

// ModifiedAt implements each mode's modified-at rule from §4.3's table.
func (in *Input) ModifiedAt(t enginetime.Time) bool {
	switch in.mode {
	case Peered, RefObserver:
		return in.link != nil && in.link.ModifiedAt(t)
	case NonPeered:
		for _, l := range in.children {
			if l.ModifiedAt(t) {
				return true
			}
		}
		return false
	case RefWrapper:
		return in.bound && in.bindTime == t
	default:
		return false
	}
}

// LastModifiedTime returns the most recent time ModifiedAt would have
// reported true.
func (in *Input) LastModifiedTime() enginetime.Time {
	switch in.mode {
	case Peered, RefObserver:
		if in.link == nil {
			return enginetime.MinTime
		}
		return in.link.LastModifiedTime()
	case NonPeered:
		max := enginetime.MinTime
		for _, l := range in.children {
			if lt := l.LastModifiedTime(); lt.After(max) {
				max = lt
			}
		}
		return max
	case RefWrapper:
		return in.bindTime
	default:
		return enginetime.MinTime
	}
}

// View returns the bound value for Peered and RefObserver modes
// (transparently following REF indirection for RefObserver, §8 invariant
// 7). NonPeered has no single View; use ChildView. RefWrapper returns a
// view over its synthesized Ref value.
func (in *Input) View() value.View {
	switch in.mode {
	case Peered, RefObserver:
		if in.link == nil {
			return value.View{}
		}
		return in.link.View()
	case RefWrapper:
		return in.wrapperView()
	default:
		return value.View{}
	}
}

func (in *Input) wrapperView() value.View {
	if in.wrappedV == nil {
		in.wrappedV = value.New(in.tm)
	}
	value.SetRef(in.wrappedV, in.wrapped)
	return in.wrappedV.View()
}

// ChildView returns the View for the i'th element of a NonPeered binding.
func (in *Input) ChildView(i int) value.View {
	if in.mode != NonPeered || i < 0 || i >= len(in.children) {
		return value.View{}
	}
	return in.children[i].View()
}

// ChildCount reports how many element links a NonPeered Input has.
func (in *Input) ChildCount() int { return len(in.children) }

// Link returns the single bound Link for Peered/RefObserver mode, or nil
// otherwise. Exposed for introspection tooling (graph visualization)
// that needs to walk edges without participating in notification.
func (in *Input) Link() Link { return in.link }

// ChildLinks returns the bound element Links for NonPeered mode, or nil
// otherwise. See Link for the introspection use case.
func (in *Input) ChildLinks() []Link { return append([]Link(nil), in.children...) }
