package query

import (
	"context"

	"github.com/pdmscore/graphcore/pkg/adapter"
	"github.com/pdmscore/graphcore/pkg/model"
)

// ShortestPath finds the shortest refno chain from -> to, delegating to
// the adapter's native traversal (or its breadth-first default).
func (s *Service) ShortestPath(ctx context.Context, from, to model.Refno) ([]model.Refno, error) {
	return s.a.ShortestPath(ctx, from, to, adapter.DefaultQueryContext())
}

// QuerySubtree returns every refno reachable from refno within maxDepth
// hierarchy levels, refno included.
func (s *Service) QuerySubtree(ctx context.Context, refno model.Refno, maxDepth int) ([]model.Refno, error) {
	return s.a.QuerySubtree(ctx, refno, maxDepth, adapter.DefaultQueryContext())
}

// QueryDeepChildrenRefnos returns every descendant of refno, passing a
// negative depth: unbounded on adapters using adapter.QuerySubtreeDefault,
// bounded by the mirror's default subtree depth on pkg/mirror.
func (s *Service) QueryDeepChildrenRefnos(ctx context.Context, refno model.Refno) ([]model.Refno, error) {
	all, err := s.QuerySubtree(ctx, refno, -1)
	if err != nil {
		return nil, err
	}
	out := make([]model.Refno, 0, len(all))
	for _, r := range all {
		if r != refno {
			out = append(out, r)
		}
	}
	return out, nil
}

// QueryFilterDeepChildren returns refno's descendants whose noun is one
// of nouns.
func (s *Service) QueryFilterDeepChildren(ctx context.Context, refno model.Refno, nouns []string) ([]model.Refno, error) {
	deep, err := s.QueryDeepChildrenRefnos(ctx, refno)
	if err != nil {
		return nil, err
	}
	return s.filterByNoun(ctx, deep, nouns)
}

// QueryMultiFilterDeepChildren applies QueryFilterDeepChildren to every
// refno in roots, bounding traversal to maxDepth levels below each root.
func (s *Service) QueryMultiFilterDeepChildren(ctx context.Context, roots []model.Refno, nouns []string, maxDepth int) ([]model.Refno, error) {
	var out []model.Refno
	for _, root := range roots {
		subtree, err := s.QuerySubtree(ctx, root, maxDepth)
		if err != nil {
			return nil, err
		}
		filtered, err := s.filterByNoun(ctx, subtree, nouns)
		if err != nil {
			return nil, err
		}
		out = append(out, filtered...)
	}
	return out, nil
}

// QueryDeepChildrenFilterSpre returns refno's descendants whose SPREF
// attribute (a sparse-reference tag used to mark specification-driven
// elements) is set, restricted to the given nouns.
func (s *Service) QueryDeepChildrenFilterSpre(ctx context.Context, refno model.Refno, nouns []string) ([]model.Refno, error) {
	candidates, err := s.QueryFilterDeepChildren(ctx, refno, nouns)
	if err != nil {
		return nil, err
	}
	out := make([]model.Refno, 0, len(candidates))
	for _, c := range candidates {
		attrs, err := s.GetNamedAttmap(ctx, c)
		if err != nil {
			return nil, err
		}
		if v, ok := attrs.Get("SPREF"); ok && v.Kind() != model.KindInvalid {
			out = append(out, c)
		}
	}
	return out, nil
}

// FindConnectedComponent returns every refno reachable from refno via
// children, ancestors, or any named relation in relTypes, breadth-first.
func (s *Service) FindConnectedComponent(ctx context.Context, refno model.Refno, relTypes []string) ([]model.Refno, error) {
	seen := map[model.Refno]bool{refno: true}
	queue := []model.Refno{refno}
	var out []model.Refno

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur)

		neighbors, err := s.neighborsOf(ctx, cur, relTypes)
		if err != nil {
			return nil, err
		}
		for _, n := range neighbors {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return out, nil
}

func (s *Service) neighborsOf(ctx context.Context, refno model.Refno, relTypes []string) ([]model.Refno, error) {
	var out []model.Refno

	children, err := s.GetChildrenRefnos(ctx, refno)
	if err != nil {
		return nil, err
	}
	out = append(out, children...)

	pe, err := s.a.GetPE(ctx, refno, adapter.DefaultQueryContext())
	if err != nil {
		return nil, err
	}
	if pe != nil && pe.Owner.Valid() {
		out = append(out, pe.Owner)
	}

	for _, rel := range relTypes {
		related, err := s.a.QueryRelated(ctx, refno, rel, adapter.DefaultQueryContext())
		if err != nil {
			return nil, err
		}
		out = append(out, related...)
	}
	return out, nil
}
