// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package typemeta

import (
	"fmt"
	"sync"
)

// HostValue is the boundary representation used when crossing into the
// surface-language bridge (§6 of the runtime spec). The runtime core never
// interprets it beyond passing it through Ops.ToHost/FromHost; the surface
// language is an external collaborator.
type HostValue = any

// Ops is the vtable of operations a TypeMeta exposes. Every entry here
// dispatches on the concrete element representation; callers never type-
// switch on Kind to decide what to do with a value's bytes, they call
// through Ops instead.
//
// Unlike a systems language, Go has no manual destruct step for most
// values, so Ops has no Destruct entry and Construct only builds the
// zero representation rather than allocating raw memory. A zero-value
// Ops field is valid and means "not supported for
// this kind"; Capability flags tell callers which are populated.
type Ops struct {
	// Construct returns a newly zero-initialized representation of this
	// type, suitable to become a Value's backing storage.
	Construct func() any

	// CopyConstruct returns a deep copy of src.
	CopyConstruct func(src any) any

	// Equals reports whether a and b are equal. Present iff CapEquatable.
	Equals func(a, b any) bool

	// LessThan imposes a total order. Present iff CapComparable.
	LessThan func(a, b any) bool

	// Hash returns a stable hash of a. Present iff CapHashable.
	Hash func(a any) uint64

	// ToHost converts the internal representation to a HostValue for the
	// surface-language bridge.
	ToHost func(a any) HostValue

	// FromHost converts a HostValue into this type's internal
	// representation, or returns an error if hv cannot be represented.
	FromHost func(hv HostValue) (any, error)

	// ToString renders a for diagnostics; never used for equality or
	// hashing.
	ToString func(a any) string
}

// TypeMeta is an immutable type descriptor. Two TypeMetas with equal
// structural description are canonicalized to the same instance by the
// registry, so TypeMeta equality is always pointer equality — never
// compare TypeMetas structurally outside this package.
type TypeMeta struct {
	kind       Kind
	caps       Capability
	ops        Ops
	name       string
	size       uintptr
	align      uintptr
	elem       *TypeMeta // Set/List/Window/Queue element type, Map value type
	key        *TypeMeta // Map key type
	fields     []BundleField
	fieldIndex map[string]int
	fixedLen   int
	window     WindowPolicy
	sig        string // canonicalization signature
}

func (tm *TypeMeta) Kind() Kind             { return tm.kind }
func (tm *TypeMeta) Capabilities() Capability { return tm.caps }
func (tm *TypeMeta) Ops() Ops                { return tm.ops }
func (tm *TypeMeta) Name() string           { return tm.name }
func (tm *TypeMeta) Size() uintptr          { return tm.size }
func (tm *TypeMeta) Align() uintptr         { return tm.align }
func (tm *TypeMeta) Elem() *TypeMeta        { return tm.elem }
func (tm *TypeMeta) Key() *TypeMeta         { return tm.key }
func (tm *TypeMeta) FixedLen() int          { return tm.fixedLen }
func (tm *TypeMeta) WindowPolicy() WindowPolicy { return tm.window }

// Fields returns the Bundle's fields in declaration order. Panics if
// Kind() != KindBundle.
func (tm *TypeMeta) Fields() []BundleField {
	if tm.kind != KindBundle {
		panic("typemeta: Fields called on non-bundle TypeMeta " + tm.name)
	}
	return tm.fields
}

// FieldByName resolves a Bundle field by name in O(1) via the schema's
// hash map, built once at registration. Returns (zero, false) if absent.
func (tm *TypeMeta) FieldByName(name string) (BundleField, bool) {
	idx, ok := tm.fieldIndex[name]
	if !ok {
		return BundleField{}, false
	}
	return tm.fields[idx], true
}

func (tm *TypeMeta) String() string { return tm.name }

// Registry canonicalizes TypeMetas by structural signature so that two
// requests for "the same shape" always yield the same *TypeMeta, making
// TypeMeta comparison pointer equality everywhere else in the runtime.
type Registry struct {
	mu   sync.Mutex
	byID map[string]*TypeMeta
}

// NewRegistry constructs an empty registry. One Registry is normally
// shared process-wide (TypeMeta lifetime equals process lifetime per the
// runtime spec), but tests may construct private registries for
// isolation.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*TypeMeta)}
}

// Builder describes a TypeMeta to register. Exactly the fields relevant
// to Kind need to be populated; Registry.Register validates the rest.
type Builder struct {
	Kind     Kind
	Name     string
	Caps     Capability
	Ops      Ops
	Size     uintptr
	Align    uintptr
	Elem     *TypeMeta
	Key      *TypeMeta
	Fields   []BundleField
	FixedLen int
	Window   WindowPolicy
}

func (b Builder) signature() string {
	sig := fmt.Sprintf("%d:%s", b.Kind, b.Name)
	if b.Elem != nil {
		sig += ":elem=" + b.Elem.sig
	}
	if b.Key != nil {
		sig += ":key=" + b.Key.sig
	}
	for _, f := range b.Fields {
		sig += fmt.Sprintf(":field(%s,%s)", f.Name, f.Type.sig)
	}
	if b.Kind == KindList {
		sig += fmt.Sprintf(":len=%d", b.FixedLen)
	}
	if b.Kind == KindWindow {
		sig += fmt.Sprintf(":win(%v,%d,%d)", b.Window.FixedSize, b.Window.Capacity, b.Window.MaxAge)
	}
	return sig
}

// Register returns the canonical TypeMeta for b, constructing and caching
// it on first use. Subsequent calls with a structurally-equal Builder
// return the same pointer.
func (r *Registry) Register(b Builder) (*TypeMeta, error) {
	if err := validateKindPayload(b.Kind, b.Elem, b.Key, b.Fields, b.FixedLen); err != nil {
		return nil, err
	}
	sig := b.signature()

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byID[sig]; ok {
		return existing, nil
	}

	fieldIndex := make(map[string]int, len(b.Fields))
	for i, f := range b.Fields {
		f.Index = i
		b.Fields[i] = f
		fieldIndex[f.Name] = i
	}

	tm := &TypeMeta{
		kind:       b.Kind,
		caps:       b.Caps,
		ops:        b.Ops,
		name:       b.Name,
		size:       b.Size,
		align:      b.Align,
		elem:       b.Elem,
		key:        b.Key,
		fields:     b.Fields,
		fieldIndex: fieldIndex,
		fixedLen:   b.FixedLen,
		window:     b.Window,
		sig:        sig,
	}
	r.byID[sig] = tm
	return tm, nil
}

// MustRegister is Register but panics on error; intended for package-init
// registration of well-known scalar types where the Builder is known
// correct by construction.
func (r *Registry) MustRegister(b Builder) *TypeMeta {
	tm, err := r.Register(b)
	if err != nil {
		panic(err)
	}
	return tm
}
