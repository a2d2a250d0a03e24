// Package docstore implements the canonical versioned document/graph
// backend adapter: every PE write keeps both an always-current "latest"
// record and an immutable per-sesno history record, built on top of
// pkg/storage's badger-backed property graph engine.
package docstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pdmscore/graphcore/pkg/adapter"
	"github.com/pdmscore/graphcore/pkg/coreerr"
	"github.com/pdmscore/graphcore/pkg/model"
	"github.com/pdmscore/graphcore/pkg/storage"
)

const (
	relOwner = "pe_owner"

	// propKindPrefix tags each attribute property with its AttrValue
	// Kind, so decoding a Properties map back into a NamedAttrMap is
	// lossless without consulting the catalog — the canonical store
	// must round-trip exactly what it was given, catalog or no catalog.
	propKindPrefix = "__kind__:"
)

// Store is the canonical document/graph adapter. It is safe for
// concurrent use: every method delegates to storage.Engine, which is
// itself required to be thread-safe.
type Store struct {
	engine storage.Engine
	name   string
}

// New wraps a storage.Engine (typically a *storage.BadgerEngine) as the
// canonical adapter.
func New(engine storage.Engine) *Store {
	return &Store{engine: engine, name: "docstore"}
}

var _ adapter.Adapter = (*Store)(nil)

func (s *Store) Name() string { return s.name }

func (s *Store) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{
		Versioning:   true,
		Transactions: true,
	}
}

func (s *Store) HealthCheck(ctx context.Context) (bool, error) {
	if _, err := s.engine.NodeCount(); err != nil {
		return false, coreerr.Wrap(coreerr.ConnectionError, err, "docstore health check failed")
	}
	return true, nil
}

// latestNodeID is the "pe:<refno>" always-current key (§6.4).
func latestNodeID(refno model.Refno) storage.NodeID {
	return storage.NodeID(refno.ToTableKey("pe"))
}

// historyNodeID is the "his_pe:[<refno>,<sesno>]" immutable key (§6.4).
func historyNodeID(refno model.Refno, sesno int32) storage.NodeID {
	return storage.NodeID(fmt.Sprintf("his_pe:[%d,%d]", uint64(refno), sesno))
}

func (s *Store) GetPE(ctx context.Context, refno model.Refno, qctx adapter.QueryContext) (*model.PE, error) {
	node, err := s.engine.GetNode(latestNodeID(refno))
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, nil
		}
		return nil, coreerr.Wrap(coreerr.QueryError, err, "get_pe").WithRefno(refno)
	}
	return nodeToPE(node)
}

func (s *Store) GetPEBatch(ctx context.Context, refnos []model.Refno, qctx adapter.QueryContext) ([]*model.PE, error) {
	results := make([]*model.PE, 0, len(refnos))
	for _, refno := range refnos {
		pe, err := s.GetPE(ctx, refno, qctx)
		if err != nil {
			return nil, err
		}
		if pe != nil {
			results = append(results, pe)
		}
	}
	return results, nil
}

func (s *Store) QueryChildren(ctx context.Context, refno model.Refno, qctx adapter.QueryContext) ([]model.Refno, error) {
	edges, err := s.engine.GetOutgoingEdges(latestNodeID(refno))
	if err != nil {
		return nil, coreerr.Wrap(coreerr.QueryError, err, "query_children").WithRefno(refno)
	}
	var out []model.Refno
	for _, e := range edges {
		if e.Type != relOwner {
			continue
		}
		if r, ok := refnoFromNodeID(e.EndNode); ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) QueryAncestors(ctx context.Context, refno model.Refno, qctx adapter.QueryContext) ([]model.Refno, error) {
	var out []model.Refno
	current := refno
	seen := map[model.Refno]bool{}
	for {
		edges, err := s.engine.GetIncomingEdges(latestNodeID(current))
		if err != nil {
			return nil, coreerr.Wrap(coreerr.QueryError, err, "query_ancestors").WithRefno(refno)
		}
		var owner model.Refno
		found := false
		for _, e := range edges {
			if e.Type == relOwner {
				if r, ok := refnoFromNodeID(e.StartNode); ok {
					owner = r
					found = true
					break
				}
			}
		}
		if !found || !owner.Valid() || seen[owner] {
			break
		}
		out = append(out, owner)
		seen[owner] = true
		current = owner
	}
	return out, nil
}

// SavePE is idempotent on the latest key under INSERT-IGNORE semantics:
// callers that want an update must go through an explicit update path
// (SaveAttrMap / a future UpdatePE); SavePE itself never overwrites an
// existing latest record, matching §4.5.1.
func (s *Store) SavePE(ctx context.Context, pe *model.PE) error {
	if pe == nil {
		return coreerr.New(coreerr.QueryError, "save_pe: nil PE")
	}

	node := peToNode(pe)
	if existing, err := s.engine.GetNode(node.ID); err == nil && existing != nil {
		// latest already present: INSERT IGNORE semantics, no-op.
	} else if err != nil && err != storage.ErrNotFound {
		return coreerr.Wrap(coreerr.QueryError, err, "save_pe").WithRefno(pe.Refno)
	} else {
		if err := s.engine.CreateNode(node); err != nil {
			return coreerr.Wrap(coreerr.QueryError, err, "save_pe").WithRefno(pe.Refno)
		}
	}

	history := peToNode(pe)
	history.ID = historyNodeID(pe.Refno, pe.Sesno)
	if _, err := s.engine.GetNode(history.ID); err == storage.ErrNotFound {
		if err := s.engine.CreateNode(history); err != nil {
			return coreerr.Wrap(coreerr.QueryError, err, "save_pe history").WithRefno(pe.Refno)
		}
	}

	if pe.Owner.Valid() {
		if err := s.CreateRelation(ctx, pe.Owner, pe.Refno, relOwner); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) SavePEBatch(ctx context.Context, pes []*model.PE) error {
	var failed []model.Refno
	for _, pe := range pes {
		if err := s.SavePE(ctx, pe); err != nil {
			failed = append(failed, pe.Refno)
		}
	}
	if len(failed) > 0 {
		if len(failed) == len(pes) {
			return coreerr.New(coreerr.QueryError, "save_pe_batch: all %d writes failed", len(pes))
		}
		return coreerr.New(coreerr.PartialFailure, "save_pe_batch: %d of %d writes failed: %v", len(failed), len(pes), failed)
	}
	return nil
}

func (s *Store) DeletePE(ctx context.Context, refno model.Refno) error {
	node, err := s.engine.GetNode(latestNodeID(refno))
	if err == storage.ErrNotFound {
		return nil
	}
	if err != nil {
		return coreerr.Wrap(coreerr.QueryError, err, "delete_pe").WithRefno(refno)
	}
	node.Properties["deleted"] = true
	if err := s.engine.UpdateNode(node); err != nil {
		return coreerr.Wrap(coreerr.QueryError, err, "delete_pe").WithRefno(refno)
	}
	return nil
}

func (s *Store) GetAttrMap(ctx context.Context, refno model.Refno, qctx adapter.QueryContext) (*model.NamedAttrMap, error) {
	node, err := s.engine.GetNode(latestNodeID(refno))
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, coreerr.New(coreerr.NotFound, "get_attmap: no PE at %s", refno).WithRefno(refno)
		}
		return nil, coreerr.Wrap(coreerr.QueryError, err, "get_attmap").WithRefno(refno)
	}
	return propertiesToAttrMap(node.Properties, false), nil
}

func (s *Store) GetAttrMapWithUDA(ctx context.Context, refno model.Refno, qctx adapter.QueryContext) (*model.NamedAttrMap, error) {
	node, err := s.engine.GetNode(latestNodeID(refno))
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, coreerr.New(coreerr.NotFound, "get_attmap_with_uda: no PE at %s", refno).WithRefno(refno)
		}
		return nil, coreerr.Wrap(coreerr.QueryError, err, "get_attmap_with_uda").WithRefno(refno)
	}
	return propertiesToAttrMap(node.Properties, true), nil
}

func (s *Store) SaveAttrMap(ctx context.Context, refno model.Refno, attrs *model.NamedAttrMap) error {
	node, err := s.engine.GetNode(latestNodeID(refno))
	if err != nil {
		if err == storage.ErrNotFound {
			return coreerr.New(coreerr.NotFound, "save_attmap: no parent PE at %s", refno).WithRefno(refno)
		}
		return coreerr.Wrap(coreerr.QueryError, err, "save_attmap").WithRefno(refno)
	}
	mergeAttrsIntoProperties(node.Properties, attrs)
	node.UpdatedAt = time.Now()
	if err := s.engine.UpdateNode(node); err != nil {
		return coreerr.Wrap(coreerr.QueryError, err, "save_attmap").WithRefno(refno)
	}
	return nil
}

func (s *Store) CreateRelation(ctx context.Context, from, to model.Refno, relType string) error {
	edge := &storage.Edge{
		ID:        storage.EdgeID(fmt.Sprintf("%s:%d->%d", relType, uint64(from), uint64(to))),
		StartNode: latestNodeID(from),
		EndNode:   latestNodeID(to),
		Type:      relType,
		CreatedAt: time.Now(),
	}
	if existing := s.engine.GetEdgeBetween(edge.StartNode, edge.EndNode, relType); existing != nil {
		return nil
	}
	if err := s.engine.CreateEdge(edge); err != nil {
		return coreerr.Wrap(coreerr.QueryError, err, "create_relation %s", relType).WithRefno(from)
	}
	return nil
}

func (s *Store) QueryRelated(ctx context.Context, refno model.Refno, relType string, qctx adapter.QueryContext) ([]model.Refno, error) {
	edges, err := s.engine.GetOutgoingEdges(latestNodeID(refno))
	if err != nil {
		return nil, coreerr.Wrap(coreerr.QueryError, err, "query_related %s", relType).WithRefno(refno)
	}
	var out []model.Refno
	for _, e := range edges {
		if e.Type != relType {
			continue
		}
		if r, ok := refnoFromNodeID(e.EndNode); ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) DeleteRelation(ctx context.Context, from, to model.Refno, relType string) error {
	id := storage.EdgeID(fmt.Sprintf("%s:%d->%d", relType, uint64(from), uint64(to)))
	if err := s.engine.DeleteEdge(id); err != nil && err != storage.ErrNotFound {
		return coreerr.Wrap(coreerr.QueryError, err, "delete_relation %s", relType).WithRefno(from)
	}
	return nil
}

func (s *Store) ShortestPath(ctx context.Context, from, to model.Refno, qctx adapter.QueryContext) ([]model.Refno, error) {
	return nil, adapter.ErrUnsupported(s.name, "shortest_path")
}

func (s *Store) QuerySubtree(ctx context.Context, refno model.Refno, maxDepth int, qctx adapter.QueryContext) ([]model.Refno, error) {
	return adapter.QuerySubtreeDefault(ctx, s, refno, maxDepth, qctx)
}

func (s *Store) QueryChildrenBatch(ctx context.Context, refnos []model.Refno, qctx adapter.QueryContext) ([][]model.Refno, error) {
	return adapter.QueryChildrenBatchDefault(ctx, s, refnos, qctx)
}

func (s *Store) CountElements(ctx context.Context, filter string) (uint64, error) {
	nodes, err := s.engine.AllNodes()
	if err != nil {
		return 0, coreerr.Wrap(coreerr.QueryError, err, "count_elements")
	}
	var count uint64
	for _, n := range nodes {
		if _, ok := refnoFromNodeID(n.ID); !ok {
			continue
		}
		if filter != "" && stringProp(n.Properties, "noun") != filter {
			continue
		}
		count++
	}
	return count, nil
}

func (s *Store) CountRelations(ctx context.Context, relType string) (uint64, error) {
	if relType == "" {
		n, err := s.engine.EdgeCount()
		if err != nil {
			return 0, coreerr.Wrap(coreerr.QueryError, err, "count_relations")
		}
		return uint64(n), nil
	}
	edges, err := s.engine.AllEdges()
	if err != nil {
		return 0, coreerr.Wrap(coreerr.QueryError, err, "count_relations")
	}
	var count uint64
	for _, e := range edges {
		if e.Type == relType {
			count++
		}
	}
	return count, nil
}

// SessionDate returns the wall-clock time the history record for
// refno's current sesno was written, backing the timeline service's
// session_date(refno) function (§4.6). Only the canonical store tracks
// per-sesno history, so this is a docstore-specific capability rather
// than part of adapter.Adapter.
func (s *Store) SessionDate(ctx context.Context, refno model.Refno) (time.Time, error) {
	latest, err := s.engine.GetNode(latestNodeID(refno))
	if err != nil {
		if err == storage.ErrNotFound {
			return time.Time{}, coreerr.New(coreerr.NotFound, "session_date: no PE at %s", refno).WithRefno(refno)
		}
		return time.Time{}, coreerr.Wrap(coreerr.QueryError, err, "session_date").WithRefno(refno)
	}
	sesno := int32(intProp(latest.Properties, "sesno"))
	history, err := s.engine.GetNode(historyNodeID(refno, sesno))
	if err != nil {
		return time.Time{}, coreerr.Wrap(coreerr.QueryError, err, "session_date").WithRefno(refno)
	}
	return history.CreatedAt, nil
}

// FindByName scans the latest-key PE records for an exact name match.
// Not part of the adapter.Adapter interface (not every backend can offer
// an efficient name lookup); pkg/query's Basic service type-asserts for
// it.
func (s *Store) FindByName(ctx context.Context, name string) (model.Refno, error) {
	nodes, err := s.engine.AllNodes()
	if err != nil {
		return model.Unset, coreerr.Wrap(coreerr.QueryError, err, "get_refno_by_name")
	}
	for _, n := range nodes {
		refno, ok := refnoFromNodeID(n.ID)
		if !ok {
			continue
		}
		if stringProp(n.Properties, "name") == name {
			return refno, nil
		}
	}
	return model.Unset, nil
}

// FindByNounAndDbnum scans the latest-key PE records for the first match
// on noun and dbnum, backing get_world_by_dbnum (§4.6). Not part of the
// adapter.Adapter interface; pkg/query's Basic service type-asserts for
// it.
func (s *Store) FindByNounAndDbnum(ctx context.Context, noun string, dbnum int32) (model.Refno, error) {
	nodes, err := s.engine.AllNodes()
	if err != nil {
		return model.Unset, coreerr.Wrap(coreerr.QueryError, err, "get_world_by_dbnum")
	}
	for _, n := range nodes {
		refno, ok := refnoFromNodeID(n.ID)
		if !ok {
			continue
		}
		if stringProp(n.Properties, "noun") == noun && int32(intProp(n.Properties, "dbnum")) == dbnum {
			return refno, nil
		}
	}
	return model.Unset, nil
}

// historyRefnoSesno parses a "his_pe:[<refno>,<sesno>]" node id.
func historyRefnoSesno(id storage.NodeID) (model.Refno, int32, bool) {
	s := string(id)
	const prefix, suffix = "his_pe:[", "]"
	if !strings.HasPrefix(s, prefix) || !strings.HasSuffix(s, suffix) {
		return model.Unset, 0, false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(s, prefix), suffix)
	parts := strings.SplitN(inner, ",", 2)
	if len(parts) != 2 {
		return model.Unset, 0, false
	}
	refnoU, err1 := strconv.ParseUint(parts[0], 10, 64)
	sesno, err2 := strconv.ParseInt(parts[1], 10, 32)
	if err1 != nil || err2 != nil {
		return model.Unset, 0, false
	}
	return model.Refno(refnoU), int32(sesno), true
}

// SesTimeRange returns the earliest and latest history-record timestamps
// recorded under dbnum, backing the timeline service's
// query_ses_time_range(dbnum) (§4.6). Only the canonical store keeps
// per-sesno history, so this is a docstore-specific capability.
func (s *Store) SesTimeRange(ctx context.Context, dbnum int32) (time.Time, time.Time, error) {
	nodes, err := s.engine.AllNodes()
	if err != nil {
		return time.Time{}, time.Time{}, coreerr.Wrap(coreerr.QueryError, err, "query_ses_time_range")
	}
	var lo, hi time.Time
	found := false
	for _, n := range nodes {
		refno, _, ok := historyRefnoSesno(n.ID)
		if !ok || refno.Dbnum() != uint32(dbnum) {
			continue
		}
		if !found || n.CreatedAt.Before(lo) {
			lo = n.CreatedAt
		}
		if !found || n.CreatedAt.After(hi) {
			hi = n.CreatedAt
		}
		found = true
	}
	return lo, hi, nil
}

// SesRecordsAtTime returns the refno of every PE whose most recent
// history record as of t is no later than t, backing
// query_ses_records_at_time(t).
func (s *Store) SesRecordsAtTime(ctx context.Context, t time.Time) ([]model.Refno, error) {
	nodes, err := s.engine.AllNodes()
	if err != nil {
		return nil, coreerr.Wrap(coreerr.QueryError, err, "query_ses_records_at_time")
	}
	latestAsOf := make(map[model.Refno]time.Time)
	for _, n := range nodes {
		refno, _, ok := historyRefnoSesno(n.ID)
		if !ok || n.CreatedAt.After(t) {
			continue
		}
		if cur, ok := latestAsOf[refno]; !ok || n.CreatedAt.After(cur) {
			latestAsOf[refno] = n.CreatedAt
		}
	}
	out := make([]model.Refno, 0, len(latestAsOf))
	for r := range latestAsOf {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// SesChangesInRange returns the refno of every PE with a history record
// timestamped within [lo, hi], backing query_ses_changes_in_range(lo, hi).
func (s *Store) SesChangesInRange(ctx context.Context, lo, hi time.Time) ([]model.Refno, error) {
	nodes, err := s.engine.AllNodes()
	if err != nil {
		return nil, coreerr.Wrap(coreerr.QueryError, err, "query_ses_changes_in_range")
	}
	seen := make(map[model.Refno]bool)
	var out []model.Refno
	for _, n := range nodes {
		refno, _, ok := historyRefnoSesno(n.ID)
		if !ok || n.CreatedAt.Before(lo) || n.CreatedAt.After(hi) {
			continue
		}
		if !seen[refno] {
			seen[refno] = true
			out = append(out, refno)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// refnoFromNodeID extracts the refno embedded in a "pe:<refno>" node id.
func refnoFromNodeID(id storage.NodeID) (model.Refno, bool) {
	s := string(id)
	const prefix = "pe:"
	if !strings.HasPrefix(s, prefix) {
		return model.Unset, false
	}
	u, err := strconv.ParseUint(strings.TrimPrefix(s, prefix), 10, 64)
	if err != nil {
		return model.Unset, false
	}
	return model.Refno(u), true
}
