// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

// Package nested implements the switch, map, and mesh runtime-built
// sub-graph constructs from §4.6: a nested node owns a catalog of
// sub-graphs keyed by a Value-typed key, instantiating and tearing them
// down at runtime as its key input changes.
package nested

import (
	"bytes"
	"context"

	"github.com/apparentlymart/go-workgraph/workgraph"

	"hgraph/internal/diag"
	"hgraph/internal/enginetime"
	"hgraph/internal/engine"
	"hgraph/internal/link"
	"hgraph/internal/node"
	"hgraph/internal/recordable"
	"hgraph/internal/typemeta"
	"hgraph/internal/value"
)

// Builder constructs one sub-graph instance for key, wiring its inputs
// to the nested node's own inputs and returning the fresh graph/engine
// pair plus the node within it whose Output becomes the nested node's
// output. ctx carries a fresh workgraph.Worker per instantiate call,
// stored under a package-private context key; nothing in this package
// reads it back, so a builder that re-enters the catalog it is being
// built from is not detected as a self-dependency.
type Builder func(ctx context.Context, key typemeta.HostValue) (*engine.Engine, *node.Node, error)

// instanceContextKey threads a *workgraph.Worker through a Builder call,
// mirroring the teacher's grapheval.ContextWithWorker convention; kept
// local to this package since the teacher's own grapheval package is not
// importable from outside opentofu's module.
type instanceContextKey struct{}

func contextWithWorker(parent context.Context, w *workgraph.Worker) context.Context {
	return context.WithValue(parent, instanceContextKey{}, w)
}

// instance is one live sub-graph: its engine, the node supplying the
// catalog's output, and (if configured) the recordable id tying its
// persisted state across reloads.
type instance struct {
	eng          *engine.Engine
	outputNode   *node.Node
	recordableID recordable.ID
}

// Catalog is the runtime-built sub-graph table shared by Switch, Map,
// and Mesh: keyed by a host-comparable key, it knows how to
// instantiate, preserve, and tear down entries.
type Catalog struct {
	build         Builder
	preserveState bool
	parentEng     *engine.Engine
	nextGraphID   int64

	// recordableIDs keeps a key's recordable id stable across however
	// many instantiate/teardown cycles that key goes through, so a record
	// persisted at teardown is found again by a later instantiate for the
	// same key (§6: "a recordable id uniquely identifies a nested-graph
	// instance across reloads" — here, across rebuilds rather than across
	// a process restart, since nothing durable backs this catalog).
	recordableIDs map[any]recordable.ID

	// store holds every key's persisted recordable.Record, serialized
	// through the same recordable.Write/Read wire format a durable store
	// would use, keyed by recordable id. In-process only: see DESIGN.md
	// for why no on-disk backing is wired in yet.
	store map[recordable.ID][]byte
}

// NewCatalog constructs a Catalog backed by build, nested under parent.
// HostValue keys passed to instantiate/ApplyDelta are expected to already
// be Go-comparable, the same convention Output.ApplyMapDelta relies on
// for its map keys; a caller indexing by a non-comparable key representation
// uses Switch's keyTM-based Equals comparison instead of a Go map, which is
// why Switch alone takes a keyTM parameter.
func NewCatalog(parent *engine.Engine, build Builder, preserveState bool) *Catalog {
	return &Catalog{
		build:         build,
		preserveState: preserveState,
		parentEng:     parent,
		recordableIDs: make(map[any]recordable.ID),
		store:         make(map[recordable.ID][]byte),
	}
}

// recordableIDFor returns key's stable recordable id, minting one the
// first time key is seen and reusing it on every later rebuild.
func (c *Catalog) recordableIDFor(key typemeta.HostValue) recordable.ID {
	if id, ok := c.recordableIDs[key]; ok {
		return id
	}
	id := recordable.NewID()
	c.recordableIDs[key] = id
	return id
}

// instantiate builds and starts a fresh sub-graph for key, registering
// its engine as a child of the parent so its scheduled time bubbles
// upward (§4.6, §5). When preserveState is set, a record persisted by an
// earlier teardown of this same key is restored onto the new instance's
// Recordable value before it starts.
func (c *Catalog) instantiate(key typemeta.HostValue) (*instance, diag.Diagnostics) {
	worker := workgraph.NewWorker()
	ctx := contextWithWorker(context.Background(), worker)

	eng, outNode, err := c.build(ctx, key)
	if err != nil {
		return nil, diag.Diagnostics{diag.Errorf("nested: builder for key %v failed: %v", key, err)}
	}
	c.nextGraphID++

	var rid recordable.ID
	var diags diag.Diagnostics
	if c.preserveState {
		rid = c.recordableIDFor(key)
		if err := c.restore(rid, outNode); err != nil {
			diags = diags.Append(diag.Warningf("nested: restoring recordable state for key %v: %v", key, err))
		}
	}

	inst := &instance{eng: eng, outputNode: outNode, recordableID: rid}
	if sdiags := eng.Start(); sdiags.HasErrors() {
		return nil, diags.Append(sdiags)
	}
	c.parentEng.AddChild(eng)
	return inst, diags
}

// restore decodes id's persisted record (if any) onto outNode.Recordable.
// A key never torn down before, or one with no Recordable value at all,
// is a no-op rather than an error.
func (c *Catalog) restore(id recordable.ID, outNode *node.Node) error {
	raw, ok := c.store[id]
	if !ok || outNode.Recordable == nil {
		return nil
	}
	rec, err := recordable.Read(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	hv, err := recordable.Decode(rec, outNode.Recordable.TypeMeta())
	if err != nil {
		return err
	}
	return outNode.Recordable.ApplyScalar(hv)
}

// persist encodes v under id and writes it into the catalog's store,
// overwriting whatever was previously persisted for id.
func (c *Catalog) persist(id recordable.ID, v *value.Value) error {
	rec, err := recordable.Encode(id, v)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := recordable.Write(&buf, rec); err != nil {
		return err
	}
	c.store[id] = buf.Bytes()
	return nil
}

// teardown stops and disposes a sub-graph instance, removing it from
// the parent engine's child set (§4.6, §8 invariant 9: "for every
// sub-graph that was started, stop and dispose are invoked"). When the
// catalog preserves state, inst's Recordable value is persisted first so
// a later instantiate of the same key can restore it (§8 invariant 9:
// "recordable state survives teardown iff the nested node was configured
// to preserve it").
func (c *Catalog) teardown(inst *instance) diag.Diagnostics {
	var diags diag.Diagnostics
	if c.preserveState && !inst.recordableID.IsZero() && inst.outputNode.Recordable != nil {
		if err := c.persist(inst.recordableID, inst.outputNode.Recordable); err != nil {
			diags = diags.Append(diag.Warningf("nested: persisting recordable state for instance %s: %v", inst.recordableID, err))
		}
	}
	diags = diags.Append(inst.eng.Stop())
	c.parentEng.RemoveChild(inst.eng)
	return diags
}

// Switch implements §4.6's switch construct: exactly one live sub-graph
// at a time, keyed by a single key input, rebuilt whenever the key
// changes (or always, if ReloadOnTicked is set).
type Switch struct {
	catalog        *Catalog
	active         any
	activeInst     *instance
	ReloadOnTicked bool
	keyTM          *typemeta.TypeMeta
}

// NewSwitch constructs a Switch over catalog.
func NewSwitch(catalog *Catalog, keyTM *typemeta.TypeMeta) *Switch {
	return &Switch{catalog: catalog, keyTM: keyTM}
}

// Eval is the Switch's node EvalFunc body (wired as the Nested node's
// Eval, §3.7): reads the key input, tears down/instantiates as needed,
// and rewires the switch's own Output to the active sub-graph's.
func (s *Switch) Eval(owner *node.Node, key typemeta.HostValue, now enginetime.Time, ticked bool) diag.Diagnostics {
	same := s.activeInst != nil && keysEqual(s.keyTM, s.active, key)
	if same && !(s.ReloadOnTicked && ticked) {
		return nil
	}

	var diags diag.Diagnostics
	if s.activeInst != nil {
		diags = diags.Append(s.catalog.teardown(s.activeInst))
		s.activeInst = nil
	}

	inst, idiags := s.catalog.instantiate(key)
	diags = diags.Append(idiags)
	if idiags.HasErrors() {
		return diags
	}

	s.active = key
	s.activeInst = inst
	s.wireOutput(owner, now)
	return diags
}

// wireOutput copies the active sub-graph's output onto the Switch's own
// output. Only scalar outputs are forwarded this way; a sub-graph whose
// exposed output is itself a collection would need a kind-generic copy
// this package doesn't implement yet (see DESIGN.md).
func (s *Switch) wireOutput(owner *node.Node, now enginetime.Time) {
	if s.activeInst == nil || s.activeInst.outputNode.Output == nil {
		owner.Output.MarkInvalid(now, s.catalog.parentEng)
		return
	}
	v := s.activeInst.outputNode.Output.View().ScalarValue()
	owner.Output.Apply(v, now, s.catalog.parentEng)
}

// OutputNode returns the currently active sub-graph's output-bearing
// node, or nil if nothing is active.
func (s *Switch) OutputNode() *node.Node {
	if s.activeInst == nil {
		return nil
	}
	return s.activeInst.outputNode
}

func keysEqual(tm *typemeta.TypeMeta, a, b typemeta.HostValue) bool {
	if tm != nil && tm.Ops().Equals != nil {
		return tm.Ops().Equals(a, b)
	}
	return a == b
}

// MapEntry is one live sub-graph of a Map node, indexed by its key.
type MapEntry struct {
	Key  typemeta.HostValue
	inst *instance
}

// Map implements §4.6's map construct: one sub-graph per live key of an
// input set/map, created on key-add and destroyed on key-remove within
// the same tick the delta appears.
type Map struct {
	catalog *Catalog
	entries map[any]*instance
}

// NewMap constructs an empty Map over catalog.
func NewMap(catalog *Catalog) *Map {
	return &Map{catalog: catalog, entries: make(map[any]*instance)}
}

// ApplyDelta instantiates a sub-graph for every newly added key and
// tears down the sub-graph for every removed key (§4.6: "within the
// same tick they appear in the delta").
func (m *Map) ApplyDelta(added, removed []typemeta.HostValue) diag.Diagnostics {
	var diags diag.Diagnostics
	for _, key := range removed {
		inst, ok := m.entries[key]
		if !ok {
			continue
		}
		diags = diags.Append(m.catalog.teardown(inst))
		delete(m.entries, key)
	}
	for _, key := range added {
		inst, idiags := m.catalog.instantiate(key)
		diags = diags.Append(idiags)
		if idiags.HasErrors() {
			continue
		}
		m.entries[key] = inst
	}
	return diags
}

// Entries returns every live (key, output node) pair in unspecified
// order, for a sink or downstream aggregator to iterate.
func (m *Map) Entries() []MapEntry {
	out := make([]MapEntry, 0, len(m.entries))
	for k, inst := range m.entries {
		out = append(out, MapEntry{Key: k, inst: inst})
	}
	return out
}

// OutputNode returns the output-bearing node of the sub-graph for key,
// or nil if key has no live entry.
func (m *Map) OutputNode(key typemeta.HostValue) *node.Node {
	inst, ok := m.entries[key]
	if !ok {
		return nil
	}
	return inst.outputNode
}

// Len reports how many sub-graphs are currently live.
func (m *Map) Len() int { return len(m.entries) }

// WiringRule resolves one of a Mesh sub-graph's declared input names to
// a source: with HasPeer set, the output of the peer sub-graph under
// PeerKey; with HasPeer unset, the rule is skipped and the input keeps
// whatever binding its Builder gave it.
type WiringRule struct {
	InputName string
	PeerKey   typemeta.HostValue
	HasPeer   bool
}

// Mesh is a variant of Map whose sub-graphs' declared inputs are
// resolved from peer sub-graphs' outputs by declared wiring rules rather
// than all sharing the Mesh node's own inputs uniformly (§4.6). A
// WiringRule's InputName must name one of the target sub-graph's output
// node's declared Inputs (node.Node.Inputs), since that node is the only
// one a Builder hands back to the catalog.
type Mesh struct {
	*Map
	rules map[any][]WiringRule
}

// NewMesh constructs an empty Mesh over catalog.
func NewMesh(catalog *Catalog) *Mesh {
	return &Mesh{Map: NewMap(catalog), rules: make(map[any][]WiringRule)}
}

// SetWiring records the wiring rules for key's sub-graph, resolved the
// next time ApplyDelta runs (either because key is being added in that
// same call, or because one of its declared peers is).
func (m *Mesh) SetWiring(key typemeta.HostValue, rules []WiringRule) {
	m.rules[key] = rules
}

// Wiring returns key's wiring rules, or nil if none were set.
func (m *Mesh) Wiring(key typemeta.HostValue) []WiringRule {
	return m.rules[key]
}

// ApplyDelta instantiates/tears down per Map.ApplyDelta, then resolves
// every live key's wiring rules against the now-current entry set. The
// wiring pass runs over every rule-bearing key still present, not just
// ones added this call, because a rule's declared peer may itself have
// just been added in the same delta: §4.6 requires wiring to be
// "scheduled consistently with dependency order" regardless of which
// side of a rule showed up first in added.
func (m *Mesh) ApplyDelta(added, removed []typemeta.HostValue) diag.Diagnostics {
	diags := m.Map.ApplyDelta(added, removed)
	for _, key := range removed {
		delete(m.rules, key)
	}
	for key, rules := range m.rules {
		inst, ok := m.entries[key]
		if !ok {
			continue
		}
		diags = diags.Append(m.wireInstance(key, inst, rules))
	}
	return diags
}

// wireInstance binds inst's output node's declared inputs named by rules
// to their peer sub-graphs' current outputs. A rule whose peer has no
// live entry yet, or whose InputName doesn't exist on inst's output
// node, is reported as a warning and left unresolved rather than failing
// the whole delta; it resolves the next time ApplyDelta runs once its
// peer (or the input) exists.
func (m *Mesh) wireInstance(key any, inst *instance, rules []WiringRule) diag.Diagnostics {
	var diags diag.Diagnostics
	for _, rule := range rules {
		if !rule.HasPeer {
			continue
		}
		in, ok := inst.outputNode.Inputs[rule.InputName]
		if !ok {
			diags = diags.Append(diag.Warningf("nested: mesh key %v has no input named %q to wire", key, rule.InputName))
			continue
		}
		peer, ok := m.entries[rule.PeerKey]
		if !ok {
			diags = diags.Append(diag.Warningf("nested: mesh key %v input %q references peer %v with no live sub-graph", key, rule.InputName, rule.PeerKey))
			continue
		}
		if peer.outputNode.Output == nil {
			diags = diags.Append(diag.Warningf("nested: mesh key %v input %q references peer %v with no output", key, rule.InputName, rule.PeerKey))
			continue
		}
		in.BindPeer(link.NewTSLink(peer.outputNode.Output, inst.outputNode, 0, false))
	}
	return diags
}
