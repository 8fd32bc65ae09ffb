// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

// Package recordable implements §6 Persistence: a recordable id uniquely
// identifies a nested-graph instance across reloads, and a kind-tagged
// binary format serializes the Value tree tied to a node. Each record is
// framed as [len:u32][id:16][kind:u8][payload].
package recordable

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"hgraph/internal/typemeta"
	"hgraph/internal/value"
)

// ID is a recordable id: a UUID minted once per nested-graph instance the
// first time it starts, persisted alongside its Value tree so a later
// reload can reassociate state with the same logical instance.
type ID uuid.UUID

// NewID mints a fresh recordable id.
func NewID() ID { return ID(uuid.New()) }

func (id ID) String() string { return uuid.UUID(id).String() }

// IsZero reports whether id is the zero UUID (never minted).
func (id ID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// ParseID parses s as a recordable id.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	return ID(u), err
}

// Record is one persisted recordable-state entry: the instance id it
// belongs to and the kind-tagged binary payload of the node's Value tree.
type Record struct {
	ID      ID
	Kind    typemeta.Kind
	Payload []byte
}

// Write serializes rec to w in the format [len:u32][id:16][kind:u8][payload].
func Write(w io.Writer, rec Record) error {
	idBytes := uuid.UUID(rec.ID)
	header := make([]byte, 16+1)
	copy(header[:16], idBytes[:])
	header[16] = byte(rec.Kind)

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(header)+len(rec.Payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(rec.Payload)
	return err
}

// Read deserializes one Record from r.
func Read(r io.Reader) (Record, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Record{}, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n < 17 {
		return Record{}, fmt.Errorf("recordable: malformed record, length %d shorter than header", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Record{}, err
	}
	var id uuid.UUID
	copy(id[:], buf[:16])
	kind := typemeta.Kind(buf[16])
	payload := append([]byte(nil), buf[17:]...)
	return Record{ID: ID(id), Kind: kind, Payload: payload}, nil
}

// Encode flattens v's current host-facing contents into a Record's
// payload, bridging through cty.Value/ctyjson the same way the teacher's
// provider plugin boundary (internal/plugin/grpc_provider.go) serializes
// values over its wire protocol (§6: "format is kind-tagged binary",
// §2.2 DOMAIN STACK's go-cty host-value bridge).
//
// Only Scalar is implemented today: collection kinds
// (Set/Map/Bundle/List/Window/Queue/Ref) need a richer cty.Type (object,
// collection) built from the TypeMeta's Fields/Elem/Key, which is left
// for future work rather than guessed at here (see DESIGN.md).
func Encode(id ID, v *value.Value) (Record, error) {
	tm := v.TypeMeta()
	if tm.Kind() != typemeta.KindScalar {
		return Record{}, fmt.Errorf("recordable: encoding kind %s not yet supported", tm.Kind())
	}
	ty, err := typemeta.CtyType(tm)
	if err != nil {
		return Record{}, err
	}
	hv := v.View().ScalarValue()
	cv, err := typemeta.ToCty(tm, hv)
	if err != nil {
		return Record{}, err
	}
	payload, err := ctyjson.Marshal(cv, ty)
	if err != nil {
		return Record{}, fmt.Errorf("recordable: marshaling cty payload: %w", err)
	}
	return Record{ID: id, Kind: tm.Kind(), Payload: payload}, nil
}

// Decode converts rec's payload back into a host value usable with
// v.ApplyScalar, the inverse of Encode's cty.Value/ctyjson bridge.
func Decode(rec Record, tm *typemeta.TypeMeta) (typemeta.HostValue, error) {
	if tm.Kind() != typemeta.KindScalar {
		return nil, fmt.Errorf("recordable: decoding kind %s not yet supported", tm.Kind())
	}
	ty, err := typemeta.CtyType(tm)
	if err != nil {
		return nil, err
	}
	cv, err := ctyjson.Unmarshal(rec.Payload, ty)
	if err != nil {
		return nil, fmt.Errorf("recordable: unmarshaling cty payload: %w", err)
	}
	return typemeta.FromCty(tm, cv)
}
