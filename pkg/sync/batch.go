package sync

import (
	"context"
	"sync"

	"github.com/pdmscore/graphcore/pkg/adapter"
	"github.com/pdmscore/graphcore/pkg/coreerr"
	"github.com/pdmscore/graphcore/pkg/model"
)

// BatchConfig tunes a BatchOptimizer's per-kind buffer limits.
type BatchConfig struct {
	PEBatchSize         int
	AttrBatchSize       int
	RelationBatchSize   int
	BufferSize          int
	AutoFlushThreshold  float64
}

// DefaultBatchConfig matches the buffer sizes a full sync run targets:
// 100 PEs, 500 attribute maps, 1000 relation edges, auto-flushing once a
// buffer reaches 80% of its limit.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		PEBatchSize:        100,
		AttrBatchSize:      500,
		RelationBatchSize:  1000,
		BufferSize:         10000,
		AutoFlushThreshold: 0.8,
	}
}

type relationWrite struct {
	from, to model.Refno
	relType  string
}

// BufferStatus snapshots how full each of BatchOptimizer's buffers is.
type BufferStatus struct {
	PECount       int
	AttrCount     int
	RelationCount int
}

// TotalCount sums the three buffers.
func (b BufferStatus) TotalCount() int {
	return b.PECount + b.AttrCount + b.RelationCount
}

// BatchOptimizer accumulates PE, attribute, and relation writes and
// commits them to a target adapter.Adapter in §4.8.7's order: PEs first
// (so attribute and relation writes always have a PE to attach to),
// then attributes, then relations.
type BatchOptimizer struct {
	cfg    BatchConfig
	target adapter.Adapter

	mu           sync.Mutex
	peWrites     []*model.PE
	attrWrites   map[model.Refno]*model.NamedAttrMap
	relWrites    []relationWrite
}

// NewBatchOptimizer builds a BatchOptimizer writing to target.
func NewBatchOptimizer(target adapter.Adapter, cfg BatchConfig) *BatchOptimizer {
	return &BatchOptimizer{
		cfg:        cfg,
		target:     target,
		attrWrites: make(map[model.Refno]*model.NamedAttrMap),
	}
}

// BufferPE adds pe to the PE buffer, auto-flushing the PE buffer alone if
// it now reaches AutoFlushThreshold of PEBatchSize.
func (b *BatchOptimizer) BufferPE(ctx context.Context, pe *model.PE) error {
	b.mu.Lock()
	b.peWrites = append(b.peWrites, pe)
	full := float64(len(b.peWrites)) >= float64(b.cfg.PEBatchSize)*b.cfg.AutoFlushThreshold
	b.mu.Unlock()
	if full {
		return b.FlushPEBuffer(ctx)
	}
	return nil
}

// BufferAttributes adds attrs for refno to the attribute buffer, auto-
// flushing if it now reaches its threshold.
func (b *BatchOptimizer) BufferAttributes(ctx context.Context, refno model.Refno, attrs *model.NamedAttrMap) error {
	b.mu.Lock()
	b.attrWrites[refno] = attrs
	full := float64(len(b.attrWrites)) >= float64(b.cfg.AttrBatchSize)*b.cfg.AutoFlushThreshold
	b.mu.Unlock()
	if full {
		return b.FlushAttrBuffer(ctx)
	}
	return nil
}

// BufferRelation adds a from->to relType edge to the relation buffer,
// auto-flushing if it now reaches its threshold.
func (b *BatchOptimizer) BufferRelation(ctx context.Context, from, to model.Refno, relType string) error {
	b.mu.Lock()
	b.relWrites = append(b.relWrites, relationWrite{from, to, relType})
	full := float64(len(b.relWrites)) >= float64(b.cfg.RelationBatchSize)*b.cfg.AutoFlushThreshold
	b.mu.Unlock()
	if full {
		return b.FlushRelationBuffer(ctx)
	}
	return nil
}

// FlushPEBuffer writes every buffered PE to target and clears the buffer.
func (b *BatchOptimizer) FlushPEBuffer(ctx context.Context) error {
	b.mu.Lock()
	pending := b.peWrites
	b.peWrites = nil
	b.mu.Unlock()
	if len(pending) == 0 {
		return nil
	}
	if err := b.target.SavePEBatch(ctx, pending); err != nil {
		return coreerr.Wrap(coreerr.PartialFailure, err, "flush pe buffer: %d pes", len(pending))
	}
	return nil
}

// FlushAttrBuffer writes every buffered attribute map to target and
// clears the buffer.
func (b *BatchOptimizer) FlushAttrBuffer(ctx context.Context) error {
	b.mu.Lock()
	pending := b.attrWrites
	b.attrWrites = make(map[model.Refno]*model.NamedAttrMap)
	b.mu.Unlock()
	if len(pending) == 0 {
		return nil
	}
	var failed int
	for refno, attrs := range pending {
		if err := b.target.SaveAttrMap(ctx, refno, attrs); err != nil {
			failed++
		}
	}
	if failed > 0 {
		return coreerr.New(coreerr.PartialFailure, "flush attr buffer: %d/%d failed", failed, len(pending))
	}
	return nil
}

// FlushRelationBuffer writes every buffered relation edge to target and
// clears the buffer.
func (b *BatchOptimizer) FlushRelationBuffer(ctx context.Context) error {
	b.mu.Lock()
	pending := b.relWrites
	b.relWrites = nil
	b.mu.Unlock()
	if len(pending) == 0 {
		return nil
	}
	var failed int
	for _, rw := range pending {
		if err := b.target.CreateRelation(ctx, rw.from, rw.to, rw.relType); err != nil {
			failed++
		}
	}
	if failed > 0 {
		return coreerr.New(coreerr.PartialFailure, "flush relation buffer: %d/%d failed", failed, len(pending))
	}
	return nil
}

// FlushAll drains all three buffers in commit order: PEs, then
// attributes, then relations.
func (b *BatchOptimizer) FlushAll(ctx context.Context) error {
	if err := b.FlushPEBuffer(ctx); err != nil {
		return err
	}
	if err := b.FlushAttrBuffer(ctx); err != nil {
		return err
	}
	return b.FlushRelationBuffer(ctx)
}

// Status reports the current fill level of all three buffers.
func (b *BatchOptimizer) Status() BufferStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStatus{
		PECount:       len(b.peWrites),
		AttrCount:     len(b.attrWrites),
		RelationCount: len(b.relWrites),
	}
}

// txOp is one ordered operation in a BatchTransaction.
type txOp struct {
	kind    txOpKind
	pe      *model.PE
	refno   model.Refno
	attrs   *model.NamedAttrMap
	from    model.Refno
	to      model.Refno
	relType string
}

type txOpKind int

const (
	txWritePE txOpKind = iota
	txWriteAttrs
	txWriteRelation
	txDeletePE
)

// BatchTransaction groups an ordered sequence of writes against a target
// adapter.Adapter and commits them op by op in that order, with partial
// failures recorded rather than aborting the whole sequence. The target's
// Transactions capability is not consulted, and the ops are not applied
// atomically on any target.
type BatchTransaction struct {
	target adapter.Adapter
	ops    []txOp
}

// NewBatchTransaction starts an empty transaction against target.
func NewBatchTransaction(target adapter.Adapter) *BatchTransaction {
	return &BatchTransaction{target: target}
}

func (tx *BatchTransaction) WritePE(pe *model.PE) *BatchTransaction {
	tx.ops = append(tx.ops, txOp{kind: txWritePE, pe: pe})
	return tx
}

func (tx *BatchTransaction) WriteAttrs(refno model.Refno, attrs *model.NamedAttrMap) *BatchTransaction {
	tx.ops = append(tx.ops, txOp{kind: txWriteAttrs, refno: refno, attrs: attrs})
	return tx
}

func (tx *BatchTransaction) WriteRelation(from, to model.Refno, relType string) *BatchTransaction {
	tx.ops = append(tx.ops, txOp{kind: txWriteRelation, from: from, to: to, relType: relType})
	return tx
}

func (tx *BatchTransaction) DeletePE(refno model.Refno) *BatchTransaction {
	tx.ops = append(tx.ops, txOp{kind: txDeletePE, refno: refno})
	return tx
}

// Commit applies every queued op in order. A failing op is recorded but
// does not stop the remaining ops from being attempted; the aggregate
// PartialFailure (if any) names how many of how many ops failed.
func (tx *BatchTransaction) Commit(ctx context.Context) error {
	var failed int
	for _, op := range tx.ops {
		var err error
		switch op.kind {
		case txWritePE:
			err = tx.target.SavePE(ctx, op.pe)
		case txWriteAttrs:
			err = tx.target.SaveAttrMap(ctx, op.refno, op.attrs)
		case txWriteRelation:
			err = tx.target.CreateRelation(ctx, op.from, op.to, op.relType)
		case txDeletePE:
			err = tx.target.DeletePE(ctx, op.refno)
		}
		if err != nil {
			failed++
		}
	}
	if failed > 0 {
		return coreerr.New(coreerr.PartialFailure, "batch transaction: %d/%d ops failed", failed, len(tx.ops))
	}
	return nil
}
