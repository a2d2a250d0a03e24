package sync

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdmscore/graphcore/pkg/adapter"
	"github.com/pdmscore/graphcore/pkg/docstore"
	"github.com/pdmscore/graphcore/pkg/model"
	"github.com/pdmscore/graphcore/pkg/storage"
)

func seedSourcePE(t *testing.T, s *docstore.Store, refno, owner model.Refno, noun string) {
	t.Helper()
	pe := model.NewPE(refno, noun)
	pe.Owner = owner
	pe.Attrs.Set("NAME", model.StringVal(noun))
	require.NoError(t, s.SavePE(context.Background(), pe))
}

func TestSyncSinglePECopiesPEAttrsAndChildRelations(t *testing.T) {
	source := docstore.New(storage.NewMemoryEngine())
	target := docstore.New(storage.NewMemoryEngine())
	ctx := context.Background()

	parent := model.NewRefno(5, 1)
	child := model.NewRefno(5, 2)
	seedSourcePE(t, source, parent, model.Unset, "SITE")
	seedSourcePE(t, source, child, parent, "ZONE")

	require.NoError(t, SyncSinglePE(ctx, source, target, parent))

	got, err := target.GetPE(ctx, parent, adapter.DefaultQueryContext())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "SITE", got.Noun)

	related, err := target.QueryRelated(ctx, parent, "OWNS", adapter.DefaultQueryContext())
	require.NoError(t, err)
	assert.Contains(t, related, child)
}

func TestSyncSinglePEMissingSourceIsNoop(t *testing.T) {
	source := docstore.New(storage.NewMemoryEngine())
	target := docstore.New(storage.NewMemoryEngine())
	err := SyncSinglePE(context.Background(), source, target, model.NewRefno(1, 1))
	assert.NoError(t, err)
}

func TestConcurrentExecutorSyncBatchPEs(t *testing.T) {
	source := docstore.New(storage.NewMemoryEngine())
	target := docstore.New(storage.NewMemoryEngine())
	ctx := context.Background()

	var refnos []model.Refno
	for i := 0; i < 25; i++ {
		r := model.NewRefno(6, uint32(i+1))
		seedSourcePE(t, source, r, model.Unset, "ELBO")
		refnos = append(refnos, r)
	}

	cfg := DefaultConcurrentConfig()
	cfg.BatchSize = 4
	cfg.MaxConcurrency = 3
	exec := NewConcurrentExecutor(cfg)

	run := exec.SyncBatchPEs(ctx, refnos, source, target)
	assert.Equal(t, 25, run.TotalRecords)
	assert.Equal(t, 25, run.SuccessfulRecords)
	assert.Equal(t, 0, run.FailedRecords)

	count, err := target.CountElements(ctx, "")
	require.NoError(t, err)
	assert.EqualValues(t, 25, count)
}

func TestAdjustConcurrencyBacksOffOnHighErrorRate(t *testing.T) {
	cfg := DefaultConcurrentConfig()
	cfg.MaxConcurrency = 10
	exec := NewConcurrentExecutor(cfg)

	next := exec.AdjustConcurrency(PerformanceMetrics{ErrorRate: 0.25})
	assert.Equal(t, 8, next)
}

func TestAdjustConcurrencyDoublesOnLowLatencyUpToCeiling(t *testing.T) {
	cfg := DefaultConcurrentConfig()
	cfg.MaxConcurrency = cfg.MaxConcurrency * 10
	exec := NewConcurrentExecutor(cfg)

	next := exec.AdjustConcurrency(PerformanceMetrics{AvgLatencyMs: 20})
	assert.Equal(t, runtime.NumCPU()*4, next)
}
