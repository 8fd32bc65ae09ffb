// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

// Package addrs defines the addressing scheme a REF value uses to name
// another node's output or input: a Path is (node_id, output-or-input,
// navigation indices), resolvable against the owning graph. It plays the
// same role here that the teacher's internal/addrs package plays for
// resource/provider addressing: small, comparable, serializable value
// types with no behavior beyond identifying something elsewhere in the
// system.
package addrs

import (
	"fmt"
	"strconv"
	"strings"
)

// GraphID identifies a graph (top-level or nested) within a running
// EvaluationEngine. Nested graphs get a fresh GraphID each time a
// switch/map/mesh node instantiates them.
type GraphID int64

// NodeNdx is a node's position within its owning graph's flat node list.
// Scheduler ordering within a tick is keyed on (time, NodeNdx), so these
// must be stable for the lifetime of the graph.
type NodeNdx int

// NodeID is the absolute identity of a node: its graph plus its index
// within that graph.
type NodeID struct {
	GraphID GraphID
	NodeNdx NodeNdx
}

func (n NodeID) String() string {
	return fmt.Sprintf("g%d:n%d", n.GraphID, n.NodeNdx)
}

// Endpoint distinguishes a node's single Output from its Inputs bundle as
// the target of a Path.
type Endpoint uint8

const (
	// EndpointOutput addresses the node's Output.
	EndpointOutput Endpoint = iota
	// EndpointInput addresses one of the node's Inputs, further qualified
	// by NavIndex entries.
	EndpointInput
)

func (e Endpoint) String() string {
	if e == EndpointInput {
		return "input"
	}
	return "output"
}

// NavIndex is one step of navigation into a bundle/list/map-valued
// endpoint: either a bundle field index or a collection slot/key.
type NavIndex struct {
	// FieldIndex selects a Bundle field (set when Key == nil).
	FieldIndex int
	// Key, when non-nil, selects a Map entry or Set slot by key instead
	// of a positional index; mutually exclusive with FieldIndex.
	Key any
}

func (n NavIndex) String() string {
	if n.Key != nil {
		return fmt.Sprintf("[%v]", n.Key)
	}
	return strconv.Itoa(n.FieldIndex)
}

// Path names another node's Output or Input, optionally drilling into a
// nested field/element, as the resolution target of a Ref value.
type Path struct {
	Node     NodeID
	Endpoint Endpoint
	Nav      []NavIndex
}

func (p Path) String() string {
	var b strings.Builder
	b.WriteString(p.Node.String())
	b.WriteByte('.')
	b.WriteString(p.Endpoint.String())
	for _, nav := range p.Nav {
		b.WriteByte('.')
		b.WriteString(nav.String())
	}
	return b.String()
}

// Equal reports structural equality, used by Ref rebind detection to tell
// whether a new resolution actually points somewhere different.
func (p Path) Equal(other Path) bool {
	if p.Node != other.Node || p.Endpoint != other.Endpoint || len(p.Nav) != len(other.Nav) {
		return false
	}
	for i := range p.Nav {
		if p.Nav[i] != other.Nav[i] {
			return false
		}
	}
	return true
}
