package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdmscore/graphcore/pkg/adapter"
	"github.com/pdmscore/graphcore/pkg/docstore"
	"github.com/pdmscore/graphcore/pkg/model"
	"github.com/pdmscore/graphcore/pkg/storage"
)

func seedWorldTree(t *testing.T, s *docstore.Store, dbnum int32) (world, site, zone model.Refno) {
	t.Helper()
	ctx := context.Background()

	world = model.NewRefno(uint32(dbnum), 1)
	site = model.NewRefno(uint32(dbnum), 2)
	zone = model.NewRefno(uint32(dbnum), 3)

	worldPE := model.NewPE(world, "WORLD")
	worldPE.Dbnum = dbnum
	require.NoError(t, s.SavePE(ctx, worldPE))

	sitePE := model.NewPE(site, "SITE")
	sitePE.Owner = world
	sitePE.Dbnum = dbnum
	require.NoError(t, s.SavePE(ctx, sitePE))

	zonePE := model.NewPE(zone, "ZONE")
	zonePE.Owner = site
	zonePE.Dbnum = dbnum
	require.NoError(t, s.SavePE(ctx, zonePE))

	return world, site, zone
}

func TestEngineFullSyncReplicatesTree(t *testing.T) {
	source := docstore.New(storage.NewMemoryEngine())
	target := docstore.New(storage.NewMemoryEngine())
	ctx := context.Background()

	_, site, zone := seedWorldTree(t, source, 42)

	eng := NewEngine(source, target, DefaultStrategy(), Filter{})
	stats, err := eng.FullSync(ctx, []int32{42})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalRecords)
	assert.Equal(t, 3, stats.SuccessfulRecords)

	got, err := target.GetPE(ctx, site, adapter.DefaultQueryContext())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "SITE", got.Noun)

	gotZone, err := target.GetPE(ctx, zone, adapter.DefaultQueryContext())
	require.NoError(t, err)
	require.NotNil(t, gotZone)
}

func TestEngineFullSyncAppliesTypeFilter(t *testing.T) {
	source := docstore.New(storage.NewMemoryEngine())
	target := docstore.New(storage.NewMemoryEngine())
	ctx := context.Background()

	seedWorldTree(t, source, 7)

	eng := NewEngine(source, target, DefaultStrategy(), Filter{ExcludeTypes: []string{"ZONE"}})
	stats, err := eng.FullSync(ctx, []int32{7})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalRecords)
}

func TestEngineIncrementalSyncFallsBackToFullOnFirstRun(t *testing.T) {
	source := docstore.New(storage.NewMemoryEngine())
	target := docstore.New(storage.NewMemoryEngine())
	ctx := context.Background()

	seedWorldTree(t, source, 9)

	eng := NewEngine(source, target, DefaultStrategy(), Filter{})
	stats, err := eng.IncrementalSync(ctx, []int32{9})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalRecords)
}

func TestEngineVerifyDetectsCountMismatch(t *testing.T) {
	source := docstore.New(storage.NewMemoryEngine())
	target := docstore.New(storage.NewMemoryEngine())
	ctx := context.Background()

	world, _, _ := seedWorldTree(t, source, 11)

	eng := NewEngine(source, target, DefaultStrategy(), Filter{})
	result, err := eng.Verify(ctx, []model.Refno{world}, 1)
	require.NoError(t, err)
	assert.False(t, result.PECountMatch)
	assert.False(t, result.OK())
}

func TestEngineVerifyMatchesAfterSync(t *testing.T) {
	source := docstore.New(storage.NewMemoryEngine())
	target := docstore.New(storage.NewMemoryEngine())
	ctx := context.Background()

	world, site, zone := seedWorldTree(t, source, 13)

	eng := NewEngine(source, target, DefaultStrategy(), Filter{})
	_, err := eng.FullSync(ctx, []int32{13})
	require.NoError(t, err)

	result, err := eng.Verify(ctx, []model.Refno{world, site, zone}, 3)
	require.NoError(t, err)
	assert.True(t, result.PECountMatch)
	assert.True(t, result.OwnsEdgeCountMatch)
	assert.Empty(t, result.SampleMismatches)
	assert.True(t, result.OK())
}
