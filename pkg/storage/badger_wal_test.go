package storage

import (
	"path/filepath"
	"testing"

	"github.com/pdmscore/graphcore/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBadgerEngineWiresWAL(t *testing.T) {
	config.EnableWAL()
	defer config.DisableWAL()

	dataDir := t.TempDir()
	engine, err := NewBadgerEngine(dataDir)
	require.NoError(t, err)
	defer engine.Close()

	walEngine, ok := engine.(*WALEngine)
	require.True(t, ok, "NewBadgerEngine should return a WAL-wrapped engine when WAL is enabled")
	assert.DirExists(t, filepath.Join(dataDir, "wal"))

	node := &Node{ID: "n1", Labels: []string{"PE"}, Properties: map[string]interface{}{"noun": "PIPE"}}
	require.NoError(t, walEngine.CreateNode(node))

	got, err := walEngine.GetNode("n1")
	require.NoError(t, err)
	assert.Equal(t, "PIPE", got.Properties["noun"])

	stats := walEngine.GetWAL().Stats()
	assert.Greater(t, stats.EntryCount, int64(0))
}

func TestNewBadgerEngineWithoutWAL(t *testing.T) {
	config.DisableWAL()
	defer config.ResetFeatureFlags()

	dataDir := t.TempDir()
	engine, err := NewBadgerEngine(dataDir)
	require.NoError(t, err)
	defer engine.Close()

	_, ok := engine.(*WALEngine)
	assert.False(t, ok, "NewBadgerEngine should return the bare BadgerEngine when WAL is disabled")
}
