package sync

import (
	"context"
	"runtime"
	"sync"

	"github.com/pdmscore/graphcore/pkg/adapter"
	"github.com/pdmscore/graphcore/pkg/model"
	"github.com/pdmscore/graphcore/pkg/telemetry"
)

var logger = telemetry.New("sync")

// ConcurrentConfig tunes a ConcurrentExecutor's parallelism.
type ConcurrentConfig struct {
	MaxConcurrency      int
	QueueSize           int
	AdaptiveConcurrency bool
	MaxRetries          int
	BatchSize           int
}

// DefaultConcurrentConfig sizes MaxConcurrency at 2x the available CPUs,
// matching the original's num_cpus::get()*2.
func DefaultConcurrentConfig() ConcurrentConfig {
	n := runtime.NumCPU()
	return ConcurrentConfig{
		MaxConcurrency:      n * 2,
		QueueSize:           10000,
		AdaptiveConcurrency: true,
		MaxRetries:          3,
		BatchSize:           100,
	}
}

// PerformanceMetrics summarizes a recent window of sync throughput, fed
// to AdjustConcurrency to retune MaxConcurrency between runs.
type PerformanceMetrics struct {
	AvgLatencyMs float64
	ErrorRate    float64
	Throughput   float64
}

// ConcurrentExecutor bounds how many PE-sync goroutines run at once via
// a buffered-channel semaphore, and accumulates Statistics across every
// chunk it processes.
type ConcurrentExecutor struct {
	cfg ConcurrentConfig

	mu    sync.Mutex
	stats Statistics
}

// NewConcurrentExecutor builds a ConcurrentExecutor under cfg.
func NewConcurrentExecutor(cfg ConcurrentConfig) *ConcurrentExecutor {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = runtime.NumCPU() * 2
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &ConcurrentExecutor{cfg: cfg}
}

// Statistics returns a snapshot of the accumulated run statistics.
func (e *ConcurrentExecutor) Statistics() Statistics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// SyncBatchPEs chunks refnos by cfg.BatchSize and syncs each chunk under
// a semaphore bounding in-flight chunks to MaxConcurrency, aggregating
// per-PE results into Statistics.
func (e *ConcurrentExecutor) SyncBatchPEs(ctx context.Context, refnos []model.Refno, source, target adapter.Adapter) Statistics {
	sem := make(chan struct{}, e.cfg.MaxConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var successRecords, failedRecords int

	chunks := chunkRefnos(refnos, e.cfg.BatchSize)
	for _, chunk := range chunks {
		chunk := chunk
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			for _, refno := range chunk {
				if err := SyncSinglePE(ctx, source, target, refno); err != nil {
					logger.Warnf("pe %s failed: %v", refno, err)
					mu.Lock()
					failedRecords++
					mu.Unlock()
					continue
				}
				mu.Lock()
				successRecords++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	run := Statistics{
		TotalTasks:        len(chunks),
		TotalRecords:      len(refnos),
		SuccessfulRecords: successRecords,
		FailedRecords:     failedRecords,
	}
	if failedRecords == 0 {
		run.SuccessfulTasks = run.TotalTasks
	} else {
		run.FailedTasks = run.TotalTasks
	}

	e.mu.Lock()
	e.stats.Merge(run)
	e.mu.Unlock()
	return run
}

// SyncSinglePE is the canonical per-PE sync procedure: read the PE from
// source and write it to target, read its attribute map and write that
// too if non-empty, then read its direct children and create an OWNS
// edge from refno to each on target.
func SyncSinglePE(ctx context.Context, source, target adapter.Adapter, refno model.Refno) error {
	qctx := adapter.DefaultQueryContext()

	pe, err := source.GetPE(ctx, refno, qctx)
	if err != nil {
		return err
	}
	if pe == nil {
		return nil
	}
	if err := target.SavePE(ctx, pe); err != nil {
		return err
	}

	attrs, err := source.GetAttrMapWithUDA(ctx, refno, qctx)
	if err != nil {
		return err
	}
	if attrs != nil && attrs.Len() > 0 {
		if err := target.SaveAttrMap(ctx, refno, attrs); err != nil {
			return err
		}
	}

	children, err := source.QueryChildren(ctx, refno, qctx)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := target.CreateRelation(ctx, refno, child, "OWNS"); err != nil {
			return err
		}
	}
	return nil
}

// AdjustConcurrency retunes MaxConcurrency per §4.8.6's adaptive rule: an
// error rate above 10% backs concurrency off by 20%; an average latency
// under 100ms per record doubles it, capped at 4x the available CPUs.
// Returns the new MaxConcurrency.
func (e *ConcurrentExecutor) AdjustConcurrency(metrics PerformanceMetrics) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.cfg.AdaptiveConcurrency {
		return e.cfg.MaxConcurrency
	}

	ceiling := runtime.NumCPU() * 4
	switch {
	case metrics.ErrorRate > 0.1:
		next := int(float64(e.cfg.MaxConcurrency) * 0.8)
		if next < 1 {
			next = 1
		}
		e.cfg.MaxConcurrency = next
	case metrics.AvgLatencyMs < 100.0:
		next := e.cfg.MaxConcurrency * 2
		if next > ceiling {
			next = ceiling
		}
		e.cfg.MaxConcurrency = next
	}
	return e.cfg.MaxConcurrency
}

func chunkRefnos(refnos []model.Refno, size int) [][]model.Refno {
	if size <= 0 {
		size = len(refnos)
		if size == 0 {
			size = 1
		}
	}
	var out [][]model.Refno
	for i := 0; i < len(refnos); i += size {
		end := i + size
		if end > len(refnos) {
			end = len(refnos)
		}
		out = append(out, refnos[i:end])
	}
	return out
}
