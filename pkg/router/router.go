// Package router implements the hybrid adapter manager: a Router wraps a
// primary and an optional secondary adapter.Adapter, routing each
// operation to whichever one the configured HybridMode prefers and
// falling back to the other on error or timeout. A Router is itself an
// adapter.Adapter, so it drops into pkg/query.New in place of a single
// backend.
package router

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/pdmscore/graphcore/pkg/adapter"
	"github.com/pdmscore/graphcore/pkg/coreerr"
	"github.com/pdmscore/graphcore/pkg/model"
)

// HybridMode selects which adapter a Router prefers for reads and how it
// handles writes.
type HybridMode int

const (
	// PrimaryOnly routes every read/write to primary; secondary, if set,
	// is never consulted.
	PrimaryOnly HybridMode = iota
	// SecondaryPreferred routes every read/write to secondary; reads
	// fall back to primary on error, writes do not.
	SecondaryPreferred
	// DualPrimaryPreferred dual-writes, and reads prefer primary.
	DualPrimaryPreferred
	// DualSecondaryPreferred dual-writes, and reads prefer secondary.
	DualSecondaryPreferred
	// WritePrimaryReadSecondary writes go to primary only; reads go to
	// secondary only, with no fallback. Secondary must be set.
	WritePrimaryReadSecondary
)

// ParseHybridMode maps the §6.1 HYBRID_MODE string values (the same
// spelling pkg/config.HybridMode uses) onto the HybridMode enum.
func ParseHybridMode(s string) (HybridMode, error) {
	switch s {
	case "primary_only":
		return PrimaryOnly, nil
	case "secondary_preferred":
		return SecondaryPreferred, nil
	case "dual_primary_preferred":
		return DualPrimaryPreferred, nil
	case "dual_secondary_preferred":
		return DualSecondaryPreferred, nil
	case "write_primary_read_secondary":
		return WritePrimaryReadSecondary, nil
	default:
		return PrimaryOnly, fmt.Errorf("router: unknown hybrid mode %q", s)
	}
}

// Config tunes a Router's fallback behavior.
type Config struct {
	Mode HybridMode
	// QueryTimeout bounds how long the preferred adapter gets before a
	// fallback attempt fires. Zero means adapter.DefaultQueryContext's
	// timeout.
	QueryTimeout time.Duration
	// FallbackOnError controls whether a preferred-adapter error/timeout
	// triggers a retry against the other adapter. Ignored when secondary
	// is nil.
	FallbackOnError bool
}

// DefaultConfig returns PrimaryOnly with a 5s timeout and fallback
// enabled.
func DefaultConfig() Config {
	return Config{Mode: PrimaryOnly, QueryTimeout: 5 * time.Second, FallbackOnError: true}
}

// Router dispatches adapter.Adapter calls across a primary and an
// optional secondary backend per its Config's HybridMode.
type Router struct {
	primary   adapter.Adapter
	secondary adapter.Adapter
	cfg       Config
	name      string
}

// New builds a Router. secondary may be nil, in which case every mode
// behaves as PrimaryOnly.
func New(primary, secondary adapter.Adapter, cfg Config) *Router {
	name := "Hybrid<" + primary.Name() + ","
	if secondary != nil {
		name += secondary.Name()
	} else {
		name += "none"
	}
	name += ">"
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 5 * time.Second
	}
	return &Router{primary: primary, secondary: secondary, cfg: cfg, name: name}
}

func (r *Router) Name() string { return r.name }

// Capabilities reports the union of primary's and secondary's.
func (r *Router) Capabilities() adapter.Capabilities {
	caps := r.primary.Capabilities()
	if r.secondary != nil {
		caps = caps.Merge(r.secondary.Capabilities())
	}
	return caps
}

func (r *Router) HealthCheck(ctx context.Context) (bool, error) {
	primaryOK, _ := r.primary.HealthCheck(ctx)
	if r.secondary == nil {
		return primaryOK, nil
	}
	secondaryOK, _ := r.secondary.HealthCheck(ctx)
	return primaryOK || secondaryOK, nil
}

// routeQuery implements §4.7's read routing: a query requiring graph
// traversal goes to secondary first whenever secondary supports it,
// regardless of mode; otherwise the configured HybridMode decides.
func routeQuery[T any](ctx context.Context, r *Router, requiresGraph bool, primaryFn, secondaryFn func(context.Context) (T, error)) (T, error) {
	if r.secondary == nil {
		return primaryFn(ctx)
	}
	if requiresGraph && r.secondary.Capabilities().GraphTraversal {
		return executeWithFallback(ctx, r, secondaryFn, primaryFn)
	}
	switch r.cfg.Mode {
	case SecondaryPreferred, DualSecondaryPreferred:
		return executeWithFallback(ctx, r, secondaryFn, primaryFn)
	case WritePrimaryReadSecondary:
		return secondaryFn(ctx)
	default: // PrimaryOnly, DualPrimaryPreferred
		return executeWithFallback(ctx, r, primaryFn, secondaryFn)
	}
}

func executeWithFallback[T any](ctx context.Context, r *Router, preferred, fallback func(context.Context) (T, error)) (T, error) {
	cctx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout)
	defer cancel()

	v, err := preferred(cctx)
	if err == nil {
		return v, nil
	}
	if r.cfg.FallbackOnError {
		log.Printf("router %s: preferred adapter failed (%v), falling back", r.name, err)
		return fallback(ctx)
	}
	var zero T
	return zero, err
}

// executeWrite runs a write per cfg.Mode: single-sided for the
// primary-only/secondary-only/write-through modes, concurrent dual-write
// for the two Dual* modes (succeeding if at least one side does).
func (r *Router) executeWrite(ctx context.Context, primaryWrite, secondaryWrite func(context.Context) error) error {
	if r.secondary == nil {
		return primaryWrite(ctx)
	}
	switch r.cfg.Mode {
	case SecondaryPreferred:
		return secondaryWrite(ctx)
	case DualPrimaryPreferred, DualSecondaryPreferred:
		return r.dualWrite(ctx, primaryWrite, secondaryWrite)
	default: // PrimaryOnly, WritePrimaryReadSecondary
		return primaryWrite(ctx)
	}
}

func (r *Router) dualWrite(ctx context.Context, primaryWrite, secondaryWrite func(context.Context) error) error {
	var wg sync.WaitGroup
	var primaryErr, secondaryErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		primaryErr = primaryWrite(ctx)
	}()
	go func() {
		defer wg.Done()
		secondaryErr = secondaryWrite(ctx)
	}()
	wg.Wait()

	if primaryErr != nil {
		log.Printf("router %s: primary write failed: %v", r.name, primaryErr)
	}
	if secondaryErr != nil {
		log.Printf("router %s: secondary write failed: %v", r.name, secondaryErr)
	}

	switch {
	case primaryErr == nil && secondaryErr == nil:
		return nil
	case primaryErr == nil || secondaryErr == nil:
		// One side succeeded; the failed side was logged above.
		return nil
	default:
		return coreerr.Wrap(coreerr.PartialFailure, primaryErr, "dual write to %s: both sides failed (secondary=%v)", r.name, secondaryErr)
	}
}

func (r *Router) GetPE(ctx context.Context, refno model.Refno, qctx adapter.QueryContext) (*model.PE, error) {
	return routeQuery(ctx, r, qctx.RequiresGraphTraversal,
		func(c context.Context) (*model.PE, error) { return r.primary.GetPE(c, refno, qctx) },
		func(c context.Context) (*model.PE, error) { return r.secondary.GetPE(c, refno, qctx) })
}

func (r *Router) GetPEBatch(ctx context.Context, refnos []model.Refno, qctx adapter.QueryContext) ([]*model.PE, error) {
	return routeQuery(ctx, r, qctx.RequiresGraphTraversal,
		func(c context.Context) ([]*model.PE, error) { return r.primary.GetPEBatch(c, refnos, qctx) },
		func(c context.Context) ([]*model.PE, error) { return r.secondary.GetPEBatch(c, refnos, qctx) })
}

func (r *Router) QueryChildren(ctx context.Context, refno model.Refno, qctx adapter.QueryContext) ([]model.Refno, error) {
	return routeQuery(ctx, r, true,
		func(c context.Context) ([]model.Refno, error) { return r.primary.QueryChildren(c, refno, qctx) },
		func(c context.Context) ([]model.Refno, error) { return r.secondary.QueryChildren(c, refno, qctx) })
}

func (r *Router) QueryAncestors(ctx context.Context, refno model.Refno, qctx adapter.QueryContext) ([]model.Refno, error) {
	return routeQuery(ctx, r, true,
		func(c context.Context) ([]model.Refno, error) { return r.primary.QueryAncestors(c, refno, qctx) },
		func(c context.Context) ([]model.Refno, error) { return r.secondary.QueryAncestors(c, refno, qctx) })
}

func (r *Router) SavePE(ctx context.Context, pe *model.PE) error {
	return r.executeWrite(ctx,
		func(c context.Context) error { return r.primary.SavePE(c, pe) },
		func(c context.Context) error { return r.secondary.SavePE(c, pe) })
}

func (r *Router) SavePEBatch(ctx context.Context, pes []*model.PE) error {
	return r.executeWrite(ctx,
		func(c context.Context) error { return r.primary.SavePEBatch(c, pes) },
		func(c context.Context) error { return r.secondary.SavePEBatch(c, pes) })
}

func (r *Router) DeletePE(ctx context.Context, refno model.Refno) error {
	return r.executeWrite(ctx,
		func(c context.Context) error { return r.primary.DeletePE(c, refno) },
		func(c context.Context) error { return r.secondary.DeletePE(c, refno) })
}

func (r *Router) GetAttrMap(ctx context.Context, refno model.Refno, qctx adapter.QueryContext) (*model.NamedAttrMap, error) {
	return routeQuery(ctx, r, false,
		func(c context.Context) (*model.NamedAttrMap, error) { return r.primary.GetAttrMap(c, refno, qctx) },
		func(c context.Context) (*model.NamedAttrMap, error) { return r.secondary.GetAttrMap(c, refno, qctx) })
}

func (r *Router) GetAttrMapWithUDA(ctx context.Context, refno model.Refno, qctx adapter.QueryContext) (*model.NamedAttrMap, error) {
	return routeQuery(ctx, r, false,
		func(c context.Context) (*model.NamedAttrMap, error) { return r.primary.GetAttrMapWithUDA(c, refno, qctx) },
		func(c context.Context) (*model.NamedAttrMap, error) { return r.secondary.GetAttrMapWithUDA(c, refno, qctx) })
}

func (r *Router) SaveAttrMap(ctx context.Context, refno model.Refno, attrs *model.NamedAttrMap) error {
	return r.executeWrite(ctx,
		func(c context.Context) error { return r.primary.SaveAttrMap(c, refno, attrs) },
		func(c context.Context) error { return r.secondary.SaveAttrMap(c, refno, attrs) })
}

func (r *Router) CreateRelation(ctx context.Context, from, to model.Refno, relType string) error {
	return r.executeWrite(ctx,
		func(c context.Context) error { return r.primary.CreateRelation(c, from, to, relType) },
		func(c context.Context) error { return r.secondary.CreateRelation(c, from, to, relType) })
}

func (r *Router) QueryRelated(ctx context.Context, refno model.Refno, relType string, qctx adapter.QueryContext) ([]model.Refno, error) {
	return routeQuery(ctx, r, true,
		func(c context.Context) ([]model.Refno, error) { return r.primary.QueryRelated(c, refno, relType, qctx) },
		func(c context.Context) ([]model.Refno, error) { return r.secondary.QueryRelated(c, refno, relType, qctx) })
}

func (r *Router) DeleteRelation(ctx context.Context, from, to model.Refno, relType string) error {
	return r.executeWrite(ctx,
		func(c context.Context) error { return r.primary.DeleteRelation(c, from, to, relType) },
		func(c context.Context) error { return r.secondary.DeleteRelation(c, from, to, relType) })
}

// ShortestPath always prefers whichever adapter advertises
// GraphTraversal, since a shortest-path query is meaningless against a
// backend without native traversal.
func (r *Router) ShortestPath(ctx context.Context, from, to model.Refno, qctx adapter.QueryContext) ([]model.Refno, error) {
	if r.secondary != nil && r.secondary.Capabilities().GraphTraversal {
		return r.secondary.ShortestPath(ctx, from, to, qctx)
	}
	return r.primary.ShortestPath(ctx, from, to, qctx)
}

func (r *Router) QuerySubtree(ctx context.Context, refno model.Refno, maxDepth int, qctx adapter.QueryContext) ([]model.Refno, error) {
	return routeQuery(ctx, r, true,
		func(c context.Context) ([]model.Refno, error) { return r.primary.QuerySubtree(c, refno, maxDepth, qctx) },
		func(c context.Context) ([]model.Refno, error) { return r.secondary.QuerySubtree(c, refno, maxDepth, qctx) })
}

func (r *Router) QueryChildrenBatch(ctx context.Context, refnos []model.Refno, qctx adapter.QueryContext) ([][]model.Refno, error) {
	return routeQuery(ctx, r, true,
		func(c context.Context) ([][]model.Refno, error) { return r.primary.QueryChildrenBatch(c, refnos, qctx) },
		func(c context.Context) ([][]model.Refno, error) { return r.secondary.QueryChildrenBatch(c, refnos, qctx) })
}

func (r *Router) CountElements(ctx context.Context, filter string) (uint64, error) {
	return routeQuery(ctx, r, false,
		func(c context.Context) (uint64, error) { return r.primary.CountElements(c, filter) },
		func(c context.Context) (uint64, error) { return r.secondary.CountElements(c, filter) })
}

func (r *Router) CountRelations(ctx context.Context, relType string) (uint64, error) {
	return routeQuery(ctx, r, false,
		func(c context.Context) (uint64, error) { return r.primary.CountRelations(c, relType) },
		func(c context.Context) (uint64, error) { return r.secondary.CountRelations(c, relType) })
}

var _ adapter.Adapter = (*Router)(nil)
