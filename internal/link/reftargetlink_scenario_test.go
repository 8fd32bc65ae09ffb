// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package link_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hgraph/internal/addrs"
	"hgraph/internal/enginetime"
	"hgraph/internal/link"
	"hgraph/internal/timeseries"
	"hgraph/internal/typemeta"
	"hgraph/internal/value"
)

type noopRegistrar struct{}

func (noopRegistrar) RegisterEndOfTick(o *timeseries.Output) {}

type recordingOwner struct {
	notifiedAt []enginetime.Time
}

func (r *recordingOwner) Notify(t enginetime.Time) { r.notifiedAt = append(r.notifiedAt, t) }

// TestRefRebindFollowsNewTarget covers §8 scenario 5 and invariant 7: a
// non-Ref input bound through a TSRefTargetLink follows its Ref output's
// rebind to a new target within the same tick the rebind happens.
func TestRefRebindFollowsNewTarget(t *testing.T) {
	reg := typemeta.NewRegistry()
	b := typemeta.RegisterBuiltins(reg)

	pathA := addrs.Path{Node: addrs.NodeID{GraphID: 1, NodeNdx: 1}, Endpoint: addrs.EndpointOutput}
	pathB := addrs.Path{Node: addrs.NodeID{GraphID: 1, NodeNdx: 2}, Endpoint: addrs.EndpointOutput}

	outA := timeseries.NewOutput(b.Int, "a")
	outB := timeseries.NewOutput(b.Int, "b")
	require.False(t, outA.Apply(int64(1), enginetime.Time(0), noopRegistrar{}).HasErrors())
	require.False(t, outB.Apply(int64(99), enginetime.Time(3), noopRegistrar{}).HasErrors())

	resolve := func(p addrs.Path) (*timeseries.Output, error) {
		switch {
		case p.Equal(pathA):
			return outA, nil
		case p.Equal(pathB):
			return outB, nil
		default:
			return nil, nil
		}
	}

	refOut := timeseries.NewOutput(b.Ref, "r")
	owner := &recordingOwner{}
	rl := link.NewTSRefTargetLink(refOut, owner, resolve)
	rl.Activate()

	require.False(t, refOut.ApplyRef(value.PeeredRef(pathA), enginetime.Time(1), noopRegistrar{}).HasErrors())
	assert.Equal(t, int64(1), rl.View().ScalarValue())

	require.False(t, refOut.ApplyRef(value.PeeredRef(pathB), enginetime.Time(5), noopRegistrar{}).HasErrors())

	assert.Equal(t, int64(99), rl.View().ScalarValue())
	assert.True(t, rl.ModifiedAt(enginetime.Time(5)))
	assert.Equal(t, enginetime.Time(5), rl.LastModifiedTime())
	assert.Contains(t, owner.notifiedAt, enginetime.Time(5))
}
