// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package timeseries_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hgraph/internal/enginetime"
	"hgraph/internal/timeseries"
	"hgraph/internal/typemeta"
)

type noopRegistrar struct{}

func (noopRegistrar) RegisterEndOfTick(o *timeseries.Output) {}

// TestWindowPushEvictsOldest covers §8 scenario 4: a capacity-3 window
// receiving four pushes retains the three most recent and reports the
// fourth push's eviction.
func TestWindowPushEvictsOldest(t *testing.T) {
	reg := typemeta.NewRegistry()
	b := typemeta.RegisterBuiltins(reg)
	winTM, err := reg.Register(typemeta.Builder{
		Kind: typemeta.KindWindow,
		Name: "window<int>",
		Elem: b.Int,
		Window: typemeta.WindowPolicy{
			FixedSize: true,
			Capacity:  3,
		},
	})
	require.NoError(t, err)

	out := timeseries.NewOutput(winTM, "w")
	for i, v := range []int64{10, 20, 30} {
		diags := out.ApplyWindowPush(v, enginetime.Time(i), noopRegistrar{})
		require.False(t, diags.HasErrors())
	}
	diags := out.ApplyWindowPush(int64(40), enginetime.Time(3), noopRegistrar{})
	require.False(t, diags.HasErrors())

	assert.Equal(t, []typemeta.HostValue{int64(20), int64(30), int64(40)}, out.View().WindowOrdered())
	assert.Equal(t, []int64{1, 2, 3}, out.View().WindowTimestamps())

	evicted, evictedTS, ok := out.View().WindowEvicted()
	require.True(t, ok)
	assert.Equal(t, int64(10), evicted)
	assert.Equal(t, int64(0), evictedTS)
}

// TestQueueBackpressureEvictsOldest covers §8 scenario 6: a capacity-2
// queue receiving four pushes never exceeds its capacity and always
// retains the two most recent elements.
func TestQueueBackpressureEvictsOldest(t *testing.T) {
	reg := typemeta.NewRegistry()
	b := typemeta.RegisterBuiltins(reg)
	queueTM, err := reg.Register(typemeta.Builder{
		Kind: typemeta.KindQueue,
		Name: "queue<int>",
		Elem: b.Int,
		Window: typemeta.WindowPolicy{
			Capacity: 2,
		},
	})
	require.NoError(t, err)

	out := timeseries.NewOutput(queueTM, "q")
	for i, v := range []int64{1, 2, 3, 4} {
		diags := out.ApplyQueuePush(v, enginetime.Time(i), noopRegistrar{})
		require.False(t, diags.HasErrors())
		assert.LessOrEqual(t, out.View().QueueLen(), 2)
	}

	assert.Equal(t, 2, out.View().QueueLen())
	assert.Equal(t, []typemeta.HostValue{int64(3), int64(4)}, out.View().QueueContents())
}
