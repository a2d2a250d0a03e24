package sync

import (
	"context"
	"math/rand"
	"time"

	"github.com/pdmscore/graphcore/pkg/adapter"
	"github.com/pdmscore/graphcore/pkg/coreerr"
	"github.com/pdmscore/graphcore/pkg/model"
	"github.com/pdmscore/graphcore/pkg/querybuild"
)

// changeHistorian is the optional as-of-time capability a versioned
// source exposes; an analytical mirror used as a sync source has no
// history to diff against, so incremental sync degrades to full sync.
type changeHistorian interface {
	SesChangesInRange(ctx context.Context, lo, hi time.Time) ([]model.Refno, error)
}

// Engine drives a sync run from source to target under a Strategy and
// Filter, using a ConcurrentExecutor and BatchOptimizer underneath.
type Engine struct {
	source adapter.Adapter
	target adapter.Adapter
	strat  Strategy
	filter Filter

	exec  *ConcurrentExecutor
	batch *BatchOptimizer

	lastSync time.Time
}

// NewEngine builds an Engine. strategy.Direction must be SourceToTarget
// or TargetToSource; Bidirectional is rejected by FullSync/IncrementalSync
// since reconciling concurrent writes on both sides needs Strategy's
// Conflict policy applied per-record, which is out of scope here.
func NewEngine(source, target adapter.Adapter, strategy Strategy, filter Filter) *Engine {
	return &Engine{
		source: source,
		target: target,
		strat:  strategy,
		filter: filter,
		exec:   NewConcurrentExecutor(DefaultConcurrentConfig()),
		batch:  NewBatchOptimizer(target, DefaultBatchConfig()),
	}
}

func (e *Engine) endpoints() (from, to adapter.Adapter) {
	if e.strat.Direction == TargetToSource {
		return e.target, e.source
	}
	return e.source, e.target
}

// FullSync enumerates every PE reachable from the WORLD root of each
// dbnum in dbnums, applies Filter, and syncs each in batches of
// Strategy.BatchSize. continue_on_error governs whether a single PE's
// failure aborts the run.
func (e *Engine) FullSync(ctx context.Context, dbnums []int32) (Statistics, error) {
	from, to := e.endpoints()

	candidates, err := e.CandidatesForDbnums(ctx, dbnums)
	if err != nil {
		return Statistics{}, err
	}

	stats, err := e.syncRefnos(ctx, from, to, candidates)
	if err == nil {
		e.lastSync = time.Now()
	}
	return stats, err
}

// CandidatesForDbnums walks the WORLD root of each dbnum on the sync
// source and returns every refno in its subtree that passes Filter,
// suitable both as FullSync's own element set and as a sample pool for
// an external Verify call. A dbnum whose WORLD can't be resolved is
// skipped when Strategy.ContinueOnError is set, aborted otherwise.
func (e *Engine) CandidatesForDbnums(ctx context.Context, dbnums []int32) ([]model.Refno, error) {
	from, _ := e.endpoints()
	fb := querybuild.NewFunctionBuilder(from)

	var candidates []model.Refno
	for _, dbnum := range dbnums {
		world, err := fb.GetWorld(ctx, dbnum)
		if err != nil {
			if e.strat.ContinueOnError {
				continue
			}
			return nil, err
		}
		if !world.Valid() {
			continue
		}
		subtree, err := from.QuerySubtree(ctx, world, -1, adapter.DefaultQueryContext())
		if err != nil {
			if e.strat.ContinueOnError {
				continue
			}
			return nil, err
		}
		for _, r := range subtree {
			if !e.filter.MatchesRefno(r) {
				continue
			}
			candidates = append(candidates, r)
		}
	}
	return candidates, nil
}

// IncrementalSync asks source for every refno changed since the last
// sync mark and syncs just those. The first call (no prior mark) falls
// through to FullSync over dbnums.
func (e *Engine) IncrementalSync(ctx context.Context, dbnums []int32) (Statistics, error) {
	from, to := e.endpoints()

	hist, ok := from.(changeHistorian)
	if !ok || e.lastSync.IsZero() {
		return e.FullSync(ctx, dbnums)
	}

	now := time.Now()
	changed, err := hist.SesChangesInRange(ctx, e.lastSync, now)
	if err != nil {
		return Statistics{}, err
	}

	var candidates []model.Refno
	for _, r := range changed {
		if e.filter.MatchesRefno(r) {
			candidates = append(candidates, r)
		}
	}

	stats, err := e.syncRefnos(ctx, from, to, candidates)
	if err == nil {
		e.lastSync = now
	}
	return stats, err
}

func (e *Engine) syncRefnos(ctx context.Context, from, to adapter.Adapter, refnos []model.Refno) (Statistics, error) {
	if e.strat.Direction == Bidirectional {
		return Statistics{}, coreerr.New(coreerr.UnsupportedOperation, "sync: bidirectional direction is not supported")
	}
	filtered, err := e.applyTypeFilter(ctx, from, refnos)
	if err != nil {
		return Statistics{}, err
	}

	chunks := chunkRefnos(filtered, e.strat.BatchSize)
	var total Statistics
	start := time.Now()

	for _, chunk := range chunks {
		run := e.exec.SyncBatchPEs(ctx, chunk, from, to)
		total.Merge(run)
		if run.FailedRecords > 0 && !e.strat.ContinueOnError {
			total.TotalDuration = time.Since(start)
			return total, coreerr.New(coreerr.PartialFailure, "full sync: aborting after %d failures", run.FailedRecords)
		}
	}

	total.TotalDuration = time.Since(start)
	if total.StartTime.IsZero() {
		total.StartTime = start
	}
	total.EndTime = time.Now()
	return total, nil
}

// applyTypeFilter drops any refno whose noun doesn't pass Filter's
// include/exclude type lists; a refno that fails to resolve is dropped
// rather than aborting the batch.
func (e *Engine) applyTypeFilter(ctx context.Context, from adapter.Adapter, refnos []model.Refno) ([]model.Refno, error) {
	if len(e.filter.IncludeTypes) == 0 && len(e.filter.ExcludeTypes) == 0 {
		return refnos, nil
	}
	out := make([]model.Refno, 0, len(refnos))
	for _, r := range refnos {
		pe, err := from.GetPE(ctx, r, adapter.DefaultQueryContext())
		if err != nil {
			return nil, err
		}
		if pe != nil && e.filter.MatchesType(pe.Noun) {
			out = append(out, r)
		}
	}
	return out, nil
}

// VerificationResult reports whether source and target agree after a
// sync run. It never mutates either side.
type VerificationResult struct {
	PECountMatch       bool
	SourcePECount      uint64
	TargetPECount      uint64
	OwnsEdgeCountMatch bool
	SourceOwnsCount    uint64
	TargetOwnsCount    uint64
	SampledPEs         int
	SampleMismatches   []model.Refno
}

// OK reports whether every check in the result passed.
func (v VerificationResult) OK() bool {
	return v.PECountMatch && v.OwnsEdgeCountMatch && len(v.SampleMismatches) == 0
}

// Verify compares PE counts, OWNS edge counts, and the content of
// sampleSize randomly chosen PEs between source and target.
func (e *Engine) Verify(ctx context.Context, candidates []model.Refno, sampleSize int) (VerificationResult, error) {
	var result VerificationResult

	srcCount, err := e.source.CountElements(ctx, "")
	if err != nil {
		return result, err
	}
	tgtCount, err := e.target.CountElements(ctx, "")
	if err != nil {
		return result, err
	}
	result.SourcePECount = srcCount
	result.TargetPECount = tgtCount
	result.PECountMatch = srcCount == tgtCount

	srcOwns, err := e.source.CountRelations(ctx, "OWNS")
	if err != nil {
		return result, err
	}
	tgtOwns, err := e.target.CountRelations(ctx, "OWNS")
	if err != nil {
		return result, err
	}
	result.SourceOwnsCount = srcOwns
	result.TargetOwnsCount = tgtOwns
	result.OwnsEdgeCountMatch = srcOwns == tgtOwns

	sample := sampleRefnos(candidates, sampleSize)
	result.SampledPEs = len(sample)
	for _, r := range sample {
		mismatch, err := e.contentMismatch(ctx, r)
		if err != nil {
			return result, err
		}
		if mismatch {
			result.SampleMismatches = append(result.SampleMismatches, r)
		}
	}
	return result, nil
}

func (e *Engine) contentMismatch(ctx context.Context, refno model.Refno) (bool, error) {
	qctx := adapter.DefaultQueryContext()
	srcPE, err := e.source.GetPE(ctx, refno, qctx)
	if err != nil {
		return false, err
	}
	tgtPE, err := e.target.GetPE(ctx, refno, qctx)
	if err != nil {
		return false, err
	}
	if srcPE == nil || tgtPE == nil {
		return srcPE != tgtPE, nil
	}
	if srcPE.Name != tgtPE.Name || srcPE.Noun != tgtPE.Noun || srcPE.Dbnum != tgtPE.Dbnum || srcPE.Sesno != tgtPE.Sesno {
		return true, nil
	}
	return false, nil
}

func sampleRefnos(candidates []model.Refno, n int) []model.Refno {
	if n <= 0 || n >= len(candidates) {
		return candidates
	}
	idx := rand.Perm(len(candidates))[:n]
	out := make([]model.Refno, n)
	for i, j := range idx {
		out[i] = candidates[j]
	}
	return out
}
