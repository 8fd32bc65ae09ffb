// Copyright (c) The HGraph Authors
// SPDX-License-Identifier: MPL-2.0

package runtimeconfig_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hgraph/internal/runtimeconfig"
)

func TestDecode(t *testing.T) {
	cfg, err := runtimeconfig.Decode(map[string]any{
		"tick_timeout":         "2s",
		"push_inbox_capacity":  64,
		"recordable_state_dir": "/var/lib/hgraph",
	})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.TickTimeout)
	assert.Equal(t, 64, cfg.PushInboxCapacity)
	assert.Equal(t, "/var/lib/hgraph", cfg.RecordableStateDir)
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := runtimeconfig.Decode(map[string]any{"bogus_key": true})
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := runtimeconfig.Default()
	assert.Zero(t, cfg.TickTimeout)
	assert.Zero(t, cfg.PushInboxCapacity)
	assert.Empty(t, cfg.RecordableStateDir)
}
