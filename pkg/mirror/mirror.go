// Package mirror implements the analytical property-graph adapter: a
// badger-backed mirror of the element tree organized the way §6.3
// describes an analytical graph schema — a PE node table, one
// Attr_<NOUN> node table per catalog noun, and OWNS / TO_<NOUN> /
// attribute-sourced reference edges — built on the same pkg/storage
// engine pkg/docstore uses, rather than a second storage technology.
package mirror

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pdmscore/graphcore/pkg/adapter"
	"github.com/pdmscore/graphcore/pkg/catalog"
	"github.com/pdmscore/graphcore/pkg/coreerr"
	"github.com/pdmscore/graphcore/pkg/model"
	"github.com/pdmscore/graphcore/pkg/storage"
)

const (
	relOwns     = "OWNS"
	relRefersTo = "REFERS_TO"

	// defaultSubtreeDepth bounds recursive OWNS traversal when the caller
	// doesn't override it, per §4.5.2.
	defaultSubtreeDepth = 12
	// defaultShortestPathHops bounds ShortestPath's bounded-whitelist
	// search, per §4.5.2.
	defaultShortestPathHops = 10
)

// shortestPathEdgeTypes is the bounded edge-type whitelist ShortestPath
// searches over, per §4.5.2.
var shortestPathEdgeTypes = map[string]bool{relOwns: true, relRefersTo: true}

// Store is the analytical mirror adapter. Safe for concurrent use: every
// method delegates to storage.Engine.
type Store struct {
	engine storage.Engine
	cat    *catalog.Catalog
	name   string
}

// New wraps a storage.Engine as the analytical mirror adapter, using cat
// to drive per-noun attribute typing and reference-edge inference.
func New(engine storage.Engine, cat *catalog.Catalog) *Store {
	s := &Store{engine: engine, cat: cat, name: "mirror"}
	s.ensureIndexes()
	return s
}

var _ adapter.Adapter = (*Store)(nil)

func (s *Store) Name() string { return s.name }

func (s *Store) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{GraphTraversal: true}
}

func (s *Store) HealthCheck(ctx context.Context) (bool, error) {
	if _, err := s.engine.NodeCount(); err != nil {
		return false, coreerr.Wrap(coreerr.ConnectionError, err, "mirror health check failed")
	}
	return true, nil
}

// peIndexedProps lists the PE properties ensureIndexes registers and
// every PE write keeps current via indexPENode.
var peIndexedProps = []string{"typex", "noun", "cata_hash", "name"}

// ensureIndexes registers the PE table's typex/noun/cata_hash/name
// indexes (§6.3) against the engine's schema manager, adapting
// pkg/storage.SchemaManager's property-index machinery to the mirror's
// required indices, then replays existing PE nodes into them.
func (s *Store) ensureIndexes() {
	schema := s.engine.GetSchema()
	if schema == nil {
		return
	}
	_ = schema.AddPropertyIndex("pe_typex", "PE", []string{"typex"})
	_ = schema.AddPropertyIndex("pe_noun", "PE", []string{"noun"})
	_ = schema.AddPropertyIndex("pe_cata_hash", "PE", []string{"cata_hash"})
	_ = schema.AddPropertyIndex("pe_name", "PE", []string{"name"})
	s.rebuildIndexes(schema)
}

// rebuildIndexes replays every existing PE node into the property
// indexes. A restarted BadgerEngine loses the in-memory index state
// even though the underlying nodes persist on disk, so ensureIndexes
// must repopulate the indexes from what's already there.
func (s *Store) rebuildIndexes(schema *storage.SchemaManager) {
	nodes, err := s.engine.GetNodesByLabel("PE")
	if err != nil {
		return
	}
	for _, n := range nodes {
		s.indexPENode(schema, n, nil)
	}
}

// indexPENode keeps the PE property indexes in sync with a node write:
// it removes old's indexed values that changed, then inserts node's
// current values. Pass old as nil for a fresh insert.
func (s *Store) indexPENode(schema *storage.SchemaManager, node *storage.Node, old *storage.Node) {
	if schema == nil {
		return
	}
	for _, prop := range peIndexedProps {
		newVal := node.Properties[prop]
		if old != nil {
			if oldVal, ok := old.Properties[prop]; ok && oldVal != newVal {
				_ = schema.PropertyIndexDelete("PE", prop, node.ID, oldVal)
			}
		}
		if newVal != nil {
			_ = schema.PropertyIndexInsert("PE", prop, node.ID, newVal)
		}
	}
}

func peNodeID(refno model.Refno) storage.NodeID {
	return storage.NodeID(fmt.Sprintf("PE:%d", uint64(refno)))
}

func attrNodeID(noun string, refno model.Refno) storage.NodeID {
	return storage.NodeID(fmt.Sprintf("Attr_%s:%d", strings.ToUpper(noun), uint64(refno)))
}

func attrTableLabel(noun string) string {
	return "Attr_" + strings.ToUpper(noun)
}

func refnoFromPENodeID(id storage.NodeID) (model.Refno, bool) {
	str := string(id)
	const prefix = "PE:"
	if !strings.HasPrefix(str, prefix) {
		return model.Unset, false
	}
	u, err := strconv.ParseUint(strings.TrimPrefix(str, prefix), 10, 64)
	if err != nil {
		return model.Unset, false
	}
	return model.Refno(u), true
}

func (s *Store) GetPE(ctx context.Context, refno model.Refno, qctx adapter.QueryContext) (*model.PE, error) {
	node, err := s.engine.GetNode(peNodeID(refno))
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, nil
		}
		return nil, coreerr.Wrap(coreerr.QueryError, err, "get_pe").WithRefno(refno)
	}
	pe, err := peNodeToEnvelope(node)
	if err != nil {
		return nil, err
	}
	if owner, ok := s.singleOwner(refno); ok {
		pe.Owner = owner
	}
	attrs, err := s.GetAttrMapWithUDA(ctx, refno, qctx)
	if err != nil && !coreerr.Is(err, coreerr.NotFound) {
		return nil, err
	}
	if attrs != nil {
		pe.Attrs = attrs
	}
	pe.ExtractTypex()
	return pe, nil
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

// singleOwner returns refno's owner via the single incoming OWNS edge,
// the mirror schema's only record of hierarchy (unlike docstore, the PE
// node itself carries no owner property).
func (s *Store) singleOwner(refno model.Refno) (model.Refno, bool) {
	edges, err := s.engine.GetIncomingEdges(peNodeID(refno))
	if err != nil {
		return model.Unset, false
	}
	for _, e := range edges {
		if e.Type == relOwns {
			if owner, ok := refnoFromPENodeID(e.StartNode); ok {
				return owner, true
			}
		}
	}
	return model.Unset, false
}

func (s *Store) QueryChildren(ctx context.Context, refno model.Refno, qctx adapter.QueryContext) ([]model.Refno, error) {
	edges, err := s.engine.GetOutgoingEdges(peNodeID(refno))
	if err != nil {
		return nil, coreerr.Wrap(coreerr.QueryError, err, "query_children").WithRefno(refno)
	}
	var out []model.Refno
	for _, e := range edges {
		if e.Type != relOwns {
			continue
		}
		if r, ok := refnoFromPENodeID(e.EndNode); ok {
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
		owner, ok := s.singleOwner(current)
		if !ok || !owner.Valid() || seen[owner] {
			break
		}
		out = append(out, owner)
		seen[owner] = true
		current = owner
	}
	return out, nil
}

// SavePE upserts the PE node, its Attr_<NOUN> record, the OWNS edge from
// its owner, the TO_<NOUN> edge, and every ELEMENT-attribute reference
// edge. Unlike docstore's canonical INSERT-IGNORE semantics, the mirror
// is a replicated view the sync engine keeps current, so SavePE always
// overwrites.
func (s *Store) SavePE(ctx context.Context, pe *model.PE) error {
	if pe == nil {
		return coreerr.New(coreerr.QueryError, "save_pe: nil PE")
	}

	node := peEnvelopeToNode(pe)
	if err := s.upsertPENode(node); err != nil {
		return coreerr.Wrap(coreerr.QueryError, err, "save_pe").WithRefno(pe.Refno)
	}

	if err := s.writeAttrs(pe.Refno, pe.Noun, pe.Attrs); err != nil {
		return err
	}

	if pe.Owner.Valid() {
		if err := s.CreateRelation(ctx, pe.Owner, pe.Refno, relOwns); err != nil {
			return err
		}
	}
	return nil
}

// writeAttrs upserts refno's Attr_<NOUN> node and every edge its
// ELEMENT-typed attributes imply: a TO_<NOUN> edge from the PE to its
// attribute record, a specific <NOUN>_<FIELD> edge from the attribute
// record to the referenced PE, and a generic REFERS_TO edge between the
// two PEs (§6.3's two relation-table shapes).
func (s *Store) writeAttrs(refno model.Refno, noun string, attrs *model.NamedAttrMap) error {
	if attrs == nil {
		return nil
	}
	attrNode := &storage.Node{
		ID:         attrNodeID(noun, refno),
		Labels:     []string{attrTableLabel(noun)},
		Properties: attrMapToProperties(s.cat, noun, attrs),
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := s.upsertNode(attrNode); err != nil {
		return coreerr.Wrap(coreerr.QueryError, err, "write_attrs").WithRefno(refno)
	}

	toEdge := &storage.Edge{
		ID:        storage.EdgeID(fmt.Sprintf("TO_%s:%d", strings.ToUpper(noun), uint64(refno))),
		StartNode: peNodeID(refno),
		EndNode:   attrNode.ID,
		Type:      "TO_" + strings.ToUpper(noun),
		CreatedAt: time.Now(),
	}
	if err := s.upsertEdge(toEdge); err != nil {
		return coreerr.Wrap(coreerr.QueryError, err, "write_attrs to_edge").WithRefno(refno)
	}

	for _, name := range attrs.Keys() {
		v, _ := attrs.Get(name)
		if v.Kind() != model.KindElement {
			continue
		}
		target, ok := v.AsRefno()
		if !ok || !target.Valid() {
			continue
		}
		targetNoun := catalog.InferTargetNoun(name)

		fieldEdge := &storage.Edge{
			ID:        storage.EdgeID(fmt.Sprintf("%s_%s:%d->%d", strings.ToUpper(noun), strings.ToUpper(name), uint64(refno), uint64(target))),
			StartNode: attrNode.ID,
			EndNode:   peNodeID(target),
			Type:      fmt.Sprintf("%s_%s", strings.ToUpper(noun), strings.ToUpper(name)),
			Properties: map[string]any{
				"field_name":  name,
				"target_noun": targetNoun,
			},
			CreatedAt: time.Now(),
		}
		if err := s.upsertEdge(fieldEdge); err != nil {
			return coreerr.Wrap(coreerr.QueryError, err, "write_attrs field_edge").WithRefno(refno)
		}

		refersTo := &storage.Edge{
			ID:        storage.EdgeID(fmt.Sprintf("REFERS_TO:%d->%d:%s", uint64(refno), uint64(target), name)),
			StartNode: peNodeID(refno),
			EndNode:   peNodeID(target),
			Type:      relRefersTo,
			Properties: map[string]any{
				"field": name,
			},
			CreatedAt: time.Now(),
		}
		if err := s.upsertEdge(refersTo); err != nil {
			return coreerr.Wrap(coreerr.QueryError, err, "write_attrs refers_to").WithRefno(refno)
		}
	}
	return nil
}

func (s *Store) upsertNode(node *storage.Node) error {
	existing, err := s.engine.GetNode(node.ID)
	if err != nil && err != storage.ErrNotFound {
		return err
	}
	if existing == nil {
		return s.engine.CreateNode(node)
	}
	node.CreatedAt = existing.CreatedAt
	return s.engine.UpdateNode(node)
}

// upsertPENode is upsertNode for the PE table specifically: it also
// keeps the typex/noun/cata_hash/name property indexes current, since
// FindByName and FindByNounAndDbnum rely on them.
func (s *Store) upsertPENode(node *storage.Node) error {
	existing, err := s.engine.GetNode(node.ID)
	if err != nil && err != storage.ErrNotFound {
		return err
	}
	if existing == nil {
		if err := s.engine.CreateNode(node); err != nil {
			return err
		}
		s.indexPENode(s.engine.GetSchema(), node, nil)
		return nil
	}
	old := existing
	node.CreatedAt = existing.CreatedAt
	if err := s.engine.UpdateNode(node); err != nil {
		return err
	}
	s.indexPENode(s.engine.GetSchema(), node, old)
	return nil
}

func (s *Store) upsertEdge(edge *storage.Edge) error {
	if existing, err := s.engine.GetEdge(edge.ID); err == nil && existing != nil {
		return s.engine.UpdateEdge(edge)
	}
	return s.engine.CreateEdge(edge)
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
	node, err := s.engine.GetNode(peNodeID(refno))
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
	return s.getAttrMap(refno, false)
}

func (s *Store) GetAttrMapWithUDA(ctx context.Context, refno model.Refno, qctx adapter.QueryContext) (*model.NamedAttrMap, error) {
	return s.getAttrMap(refno, true)
}

func (s *Store) getAttrMap(refno model.Refno, includeUDA bool) (*model.NamedAttrMap, error) {
	peNode, err := s.engine.GetNode(peNodeID(refno))
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, coreerr.New(coreerr.NotFound, "get_attmap: no PE at %s", refno).WithRefno(refno)
		}
		return nil, coreerr.Wrap(coreerr.QueryError, err, "get_attmap").WithRefno(refno)
	}
	noun := stringProp(peNode.Properties, "noun")

	attrNode, err := s.engine.GetNode(attrNodeID(noun, refno))
	if err == storage.ErrNotFound {
		return model.NewNamedAttrMap(noun), nil
	}
	if err != nil {
		return nil, coreerr.Wrap(coreerr.QueryError, err, "get_attmap").WithRefno(refno)
	}
	return propertiesToAttrMap(s.cat, noun, attrNode.Properties, includeUDA), nil
}

func (s *Store) SaveAttrMap(ctx context.Context, refno model.Refno, attrs *model.NamedAttrMap) error {
	peNode, err := s.engine.GetNode(peNodeID(refno))
	if err != nil {
		if err == storage.ErrNotFound {
			return coreerr.New(coreerr.NotFound, "save_attmap: no parent PE at %s", refno).WithRefno(refno)
		}
		return coreerr.Wrap(coreerr.QueryError, err, "save_attmap").WithRefno(refno)
	}
	noun := stringProp(peNode.Properties, "noun")
	return s.writeAttrs(refno, noun, attrs)
}

func (s *Store) CreateRelation(ctx context.Context, from, to model.Refno, relType string) error {
	edge := &storage.Edge{
		ID:        storage.EdgeID(fmt.Sprintf("%s:%d->%d", relType, uint64(from), uint64(to))),
		StartNode: peNodeID(from),
		EndNode:   peNodeID(to),
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
	edges, err := s.engine.GetOutgoingEdges(peNodeID(refno))
	if err != nil {
		return nil, coreerr.Wrap(coreerr.QueryError, err, "query_related %s", relType).WithRefno(refno)
	}
	var out []model.Refno
	for _, e := range edges {
		if e.Type != relType {
			continue
		}
		if r, ok := refnoFromPENodeID(e.EndNode); ok {
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

// ShortestPath runs an undirected breadth-first search over the bounded
// {OWNS, REFERS_TO} edge-type whitelist, up to defaultShortestPathHops
// hops, per §4.5.2.
func (s *Store) ShortestPath(ctx context.Context, from, to model.Refno, qctx adapter.QueryContext) ([]model.Refno, error) {
	if from == to {
		return []model.Refno{from}, nil
	}
	type frame struct {
		refno model.Refno
		path  []model.Refno
	}
	visited := map[model.Refno]bool{from: true}
	queue := []frame{{refno: from, path: []model.Refno{from}}}

	for hop := 0; hop < defaultShortestPathHops && len(queue) > 0; hop++ {
		var next []frame
		for _, f := range queue {
			neighbors, err := s.whitelistedNeighbors(f.refno)
			if err != nil {
				return nil, err
			}
			for _, n := range neighbors {
				if visited[n] {
					continue
				}
				path := append(append([]model.Refno{}, f.path...), n)
				if n == to {
					return path, nil
				}
				visited[n] = true
				next = append(next, frame{refno: n, path: path})
			}
		}
		queue = next
	}
	return nil, coreerr.New(coreerr.NotFound, "shortest_path: no path within %d hops", defaultShortestPathHops).WithRefno(from)
}

func (s *Store) whitelistedNeighbors(refno model.Refno) ([]model.Refno, error) {
	out, err := s.engine.GetOutgoingEdges(peNodeID(refno))
	if err != nil {
		return nil, coreerr.Wrap(coreerr.QueryError, err, "shortest_path").WithRefno(refno)
	}
	in, err := s.engine.GetIncomingEdges(peNodeID(refno))
	if err != nil {
		return nil, coreerr.Wrap(coreerr.QueryError, err, "shortest_path").WithRefno(refno)
	}
	var neighbors []model.Refno
	for _, e := range out {
		if shortestPathEdgeTypes[e.Type] {
			if r, ok := refnoFromPENodeID(e.EndNode); ok {
				neighbors = append(neighbors, r)
			}
		}
	}
	for _, e := range in {
		if shortestPathEdgeTypes[e.Type] {
			if r, ok := refnoFromPENodeID(e.StartNode); ok {
				neighbors = append(neighbors, r)
			}
		}
	}
	return neighbors, nil
}

// QuerySubtree runs a depth-bounded breadth-first walk over OWNS edges,
// defaulting to defaultSubtreeDepth when maxDepth is negative, per
// §4.5.2; a maxDepth of 0 returns just refno.
func (s *Store) QuerySubtree(ctx context.Context, refno model.Refno, maxDepth int, qctx adapter.QueryContext) ([]model.Refno, error) {
	if maxDepth < 0 {
		maxDepth = defaultSubtreeDepth
	}
	result := []model.Refno{refno}
	currentLevel := []model.Refno{refno}
	for depth := 0; depth < maxDepth; depth++ {
		var nextLevel []model.Refno
		for _, parent := range currentLevel {
			children, err := s.QueryChildren(ctx, parent, qctx)
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

func (s *Store) QueryChildrenBatch(ctx context.Context, refnos []model.Refno, qctx adapter.QueryContext) ([][]model.Refno, error) {
	return adapter.QueryChildrenBatchDefault(ctx, s, refnos, qctx)
}

func (s *Store) CountElements(ctx context.Context, filter string) (uint64, error) {
	nodes, err := s.engine.GetNodesByLabel("PE")
	if err != nil {
		return 0, coreerr.Wrap(coreerr.QueryError, err, "count_elements")
	}
	if filter == "" {
		return uint64(len(nodes)), nil
	}
	var count uint64
	for _, n := range nodes {
		if stringProp(n.Properties, "noun") == filter {
			count++
		}
	}
	return count, nil
}

// FindByName looks up the PE named name via the pe_name property index
// (kept current by upsertPENode). Not part of the adapter.Adapter
// interface; pkg/query's Basic service type-asserts for it, the same
// optional-capability pattern pkg/docstore.Store.FindByName uses.
func (s *Store) FindByName(ctx context.Context, name string) (model.Refno, error) {
	schema := s.engine.GetSchema()
	if schema == nil {
		return model.Unset, nil
	}
	for _, id := range schema.PropertyIndexLookup("PE", "name", name) {
		if refno, ok := refnoFromPENodeID(id); ok {
			return refno, nil
		}
	}
	return model.Unset, nil
}

// FindByNounAndDbnum narrows to PEs of noun via the pe_noun property
// index, then filters that (typically small) candidate set by dbnum,
// backing get_world_by_dbnum (§4.6). Not part of the adapter.Adapter
// interface.
func (s *Store) FindByNounAndDbnum(ctx context.Context, noun string, dbnum int32) (model.Refno, error) {
	schema := s.engine.GetSchema()
	if schema == nil {
		return model.Unset, nil
	}
	for _, id := range schema.PropertyIndexLookup("PE", "noun", noun) {
		node, err := s.engine.GetNode(id)
		if err != nil {
			continue
		}
		if int32(intProp(node.Properties, "dbnum")) == dbnum {
			if refno, ok := refnoFromPENodeID(id); ok {
				return refno, nil
			}
		}
	}
	return model.Unset, nil
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
