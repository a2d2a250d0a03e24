// Package adapter defines the backend adapter contract every storage
// backend (the canonical document/graph store, the analytical mirror)
// implements, plus the capability and query-context types the router
// uses to choose between them.
package adapter

import (
	"context"
	"time"

	"github.com/pdmscore/graphcore/pkg/coreerr"
	"github.com/pdmscore/graphcore/pkg/model"
)

// Capabilities advertises what a backend can do, so the router can pick
// (or refuse to pick) it for a given query.
type Capabilities struct {
	GraphTraversal bool
	Transactions   bool
	Versioning     bool
	LiveQueries    bool
	FullTextSearch bool
	VectorIndex    bool
}

// Merge ORs two capability sets together, used when the router reports
// the combined capability surface of a dual-write pair.
func (c Capabilities) Merge(other Capabilities) Capabilities {
	return Capabilities{
		GraphTraversal: c.GraphTraversal || other.GraphTraversal,
		Transactions:   c.Transactions || other.Transactions,
		Versioning:     c.Versioning || other.Versioning,
		LiveQueries:    c.LiveQueries || other.LiveQueries,
		FullTextSearch: c.FullTextSearch || other.FullTextSearch,
		VectorIndex:    c.VectorIndex || other.VectorIndex,
	}
}

// QueryContext carries per-call tuning: a timeout, capability
// requirements the router must route around, and a priority hint for
// backends that schedule concurrent queries.
type QueryContext struct {
	Timeout                time.Duration
	RequiresGraphTraversal bool
	RequiresTransaction    bool
	// Priority ranges 0-10, 10 highest.
	Priority uint8
}

// DefaultQueryContext returns the zero-value-safe default context: a
// 5-second timeout, no special capability requirements, priority 5.
func DefaultQueryContext() QueryContext {
	return QueryContext{Timeout: 5 * time.Second, Priority: 5}
}

// Adapter is the uniform interface every backend implements. Methods
// take a context.Context for cancellation in addition to the
// QueryContext value, which carries adapter-routing metadata rather than
// Go's deadline/cancellation machinery.
type Adapter interface {
	// Name identifies the adapter for logging and router diagnostics.
	Name() string

	// Capabilities reports what this backend supports.
	Capabilities() Capabilities

	// HealthCheck reports whether the backend is currently reachable.
	HealthCheck(ctx context.Context) (bool, error)

	// GetPE fetches a single PE by refno. Returns (nil, nil) if absent —
	// NotFound is not an error for reads.
	GetPE(ctx context.Context, refno model.Refno, qctx QueryContext) (*model.PE, error)

	// GetPEBatch fetches many PEs, skipping any refno that doesn't
	// resolve rather than failing the whole batch.
	GetPEBatch(ctx context.Context, refnos []model.Refno, qctx QueryContext) ([]*model.PE, error)

	// QueryChildren returns the direct children of refno in hierarchy
	// order.
	QueryChildren(ctx context.Context, refno model.Refno, qctx QueryContext) ([]model.Refno, error)

	// QueryAncestors returns refno's owner chain, nearest first.
	QueryAncestors(ctx context.Context, refno model.Refno, qctx QueryContext) ([]model.Refno, error)

	// SavePE writes (creates or updates) a PE.
	SavePE(ctx context.Context, pe *model.PE) error

	// SavePEBatch writes many PEs. A partial failure is reported via
	// coreerr.PartialFailure, naming which refnos failed.
	SavePEBatch(ctx context.Context, pes []*model.PE) error

	// DeletePE removes a PE (marks it deleted in a versioned backend).
	DeletePE(ctx context.Context, refno model.Refno) error

	// GetAttrMap fetches refno's attribute map, explicit attributes only.
	GetAttrMap(ctx context.Context, refno model.Refno, qctx QueryContext) (*model.NamedAttrMap, error)

	// GetAttrMapWithUDA fetches refno's attribute map including any
	// user-defined attributes.
	GetAttrMapWithUDA(ctx context.Context, refno model.Refno, qctx QueryContext) (*model.NamedAttrMap, error)

	// SaveAttrMap writes refno's attribute map. Returns NotFound if no
	// PE exists at refno to attach the attributes to.
	SaveAttrMap(ctx context.Context, refno model.Refno, attrs *model.NamedAttrMap) error

	// CreateRelation creates a named relation edge from -> to.
	CreateRelation(ctx context.Context, from, to model.Refno, relType string) error

	// QueryRelated returns every refno related to refno via relType.
	QueryRelated(ctx context.Context, refno model.Refno, relType string, qctx QueryContext) ([]model.Refno, error)

	// DeleteRelation removes a named relation edge.
	DeleteRelation(ctx context.Context, from, to model.Refno, relType string) error

	// ShortestPath finds the shortest refno chain from -> to. Backends
	// lacking GraphTraversal capability return UnsupportedOperation.
	ShortestPath(ctx context.Context, from, to model.Refno, qctx QueryContext) ([]model.Refno, error)

	// QuerySubtree returns every refno reachable from refno within
	// maxDepth hierarchy levels, refno included.
	QuerySubtree(ctx context.Context, refno model.Refno, maxDepth int, qctx QueryContext) ([]model.Refno, error)

	// QueryChildrenBatch is QueryChildren applied to many refnos at
	// once.
	QueryChildrenBatch(ctx context.Context, refnos []model.Refno, qctx QueryContext) ([][]model.Refno, error)

	// CountElements counts PEs, optionally restricted by an
	// adapter-specific filter expression.
	CountElements(ctx context.Context, filter string) (uint64, error)

	// CountRelations counts relation edges, optionally restricted by
	// relation type.
	CountRelations(ctx context.Context, relType string) (uint64, error)
}

// QuerySubtreeDefault is the breadth-first fallback QuerySubtree
// implementation, usable by any Adapter built on QueryChildren alone
// (backends without a native recursive-traversal primitive). A negative
// maxDepth means unbounded: walk until a level comes back empty.
func QuerySubtreeDefault(ctx context.Context, a Adapter, refno model.Refno, maxDepth int, qctx QueryContext) ([]model.Refno, error) {
	result := []model.Refno{refno}
	currentLevel := []model.Refno{refno}

	for depth := 0; maxDepth < 0 || depth < maxDepth; depth++ {
		var nextLevel []model.Refno
		for _, parent := range currentLevel {
			children, err := a.QueryChildren(ctx, parent, qctx)
			if err != nil {
				return nil, err
			}
			nextLevel = append(nextLevel, children...)
			result = append(result, children...)
		}
		if len(nextLevel) == 0 {
			break
		}
		currentLevel = nextLevel
	}
	return result, nil
}

// QueryChildrenBatchDefault is the sequential fallback
// QueryChildrenBatch implementation.
func QueryChildrenBatchDefault(ctx context.Context, a Adapter, refnos []model.Refno, qctx QueryContext) ([][]model.Refno, error) {
	results := make([][]model.Refno, 0, len(refnos))
	for _, refno := range refnos {
		children, err := a.QueryChildren(ctx, refno, qctx)
		if err != nil {
			return nil, err
		}
		results = append(results, children)
	}
	return results, nil
}

// ErrUnsupported is a convenience constructor for UnsupportedOperation,
// used by adapters rejecting a capability they don't have.
func ErrUnsupported(adapterName, op string) error {
	return coreerr.New(coreerr.UnsupportedOperation, "%s does not support %s", adapterName, op)
}
