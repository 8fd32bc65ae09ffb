// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package recordable_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hgraph/internal/recordable"
	"hgraph/internal/typemeta"
	"hgraph/internal/value"
)

func TestWriteReadRoundTrip(t *testing.T) {
	id := recordable.NewID()
	rec := recordable.Record{ID: id, Kind: typemeta.KindScalar, Payload: []byte(`42`)}

	var buf bytes.Buffer
	require.NoError(t, recordable.Write(&buf, rec))

	got, err := recordable.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestEncodeDecodeScalar(t *testing.T) {
	reg := typemeta.NewRegistry()
	b := typemeta.RegisterBuiltins(reg)

	v := value.New(b.Int)
	require.NoError(t, v.ApplyScalar(int64(7)))

	rec, err := recordable.Encode(recordable.NewID(), v)
	require.NoError(t, err)

	hv, err := recordable.Decode(rec, b.Int)
	require.NoError(t, err)
	assert.Equal(t, int64(7), hv)
}

func TestIDParseRoundTrip(t *testing.T) {
	id := recordable.NewID()
	parsed, err := recordable.ParseID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
	assert.False(t, id.IsZero())
}
