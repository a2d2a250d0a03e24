package query

import (
	"context"
	"fmt"

	"github.com/pdmscore/graphcore/pkg/adapter"
	"github.com/pdmscore/graphcore/pkg/model"
)

// QueryAncestorRefnos returns refno's owner chain, nearest first. Cached
// for relTTL.
func (s *Service) QueryAncestorRefnos(ctx context.Context, refno model.Refno) ([]model.Refno, error) {
	key := opKey(s.relCache, "query_ancestor_refnos", refno)
	if v, ok := s.relCache.Get(key); ok {
		return v.([]model.Refno), nil
	}
	ancestors, err := s.pb.AncestorsQuery(refno).FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	s.relCache.PutWithRefnos(key, ancestors, append(append([]model.Refno{}, ancestors...), refno))
	return ancestors, nil
}

// QueryAncestorOfType returns the nearest ancestor whose noun matches,
// or model.Unset if none does.
func (s *Service) QueryAncestorOfType(ctx context.Context, refno model.Refno, noun string) (model.Refno, error) {
	return s.fb.FindAncestorType(ctx, refno, noun)
}

// GetAncestorTypes returns the nouns of refno's ancestor chain, nearest
// first, parallel to QueryAncestorRefnos.
func (s *Service) GetAncestorTypes(ctx context.Context, refno model.Refno) ([]string, error) {
	ancestors, err := s.QueryAncestorRefnos(ctx, refno)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ancestors))
	for _, a := range ancestors {
		pe, err := s.a.GetPE(ctx, a, adapter.DefaultQueryContext())
		if err != nil {
			return nil, err
		}
		if pe == nil {
			out = append(out, "unset")
			continue
		}
		out = append(out, pe.Noun)
	}
	return out, nil
}

// GetChildrenRefnos returns refno's direct children, excluding deleted
// ones (each child's PE is read to check its deleted flag, since
// DeletePE keeps the OWNS edge). Cached for relTTL.
func (s *Service) GetChildrenRefnos(ctx context.Context, refno model.Refno) ([]model.Refno, error) {
	key := opKey(s.relCache, "get_children_refnos", refno)
	if v, ok := s.relCache.Get(key); ok {
		return v.([]model.Refno), nil
	}
	all, err := s.pb.ChildrenQuery(refno).FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	children := make([]model.Refno, 0, len(all))
	for _, c := range all {
		pe, err := s.a.GetPE(ctx, c, adapter.DefaultQueryContext())
		if err != nil {
			return nil, err
		}
		if pe == nil || !pe.Deleted {
			children = append(children, c)
		}
	}
	s.relCache.PutWithRefnos(key, children, append(append([]model.Refno{}, children...), refno))
	return children, nil
}

// EleTreeNode is a UI-facing child summary: the fields get_children_ele_nodes
// projects (refno, noun, a display name defaulted per-noun when blank,
// owner, and child count).
type EleTreeNode struct {
	Refno       model.Refno
	Noun        string
	Name        string
	Owner       model.Refno
	ChildrenCnt int
	StatusCode  string
}

// GetChildrenEleNodes returns refno's children as UI tree nodes. A child
// with no Name gets "<NOUN> <n>" assigned, n counting occurrences of that
// noun among refno's children in traversal order — matching the source
// element graph's "un-named siblings get numbered" UI convention.
func (s *Service) GetChildrenEleNodes(ctx context.Context, refno model.Refno) ([]EleTreeNode, error) {
	children, err := s.GetChildrenRefnos(ctx, refno)
	if err != nil {
		return nil, err
	}
	nounCounts := make(map[string]int)
	out := make([]EleTreeNode, 0, len(children))
	for _, c := range children {
		pe, err := s.a.GetPE(ctx, c, adapter.DefaultQueryContext())
		if err != nil {
			return nil, err
		}
		if pe == nil {
			continue
		}
		grandchildren, err := s.a.QueryChildren(ctx, c, adapter.DefaultQueryContext())
		if err != nil {
			return nil, err
		}
		nounCounts[pe.Noun]++
		name := pe.Name
		if name == "" {
			name = fmt.Sprintf("%s %d", pe.Noun, nounCounts[pe.Noun])
		}
		out = append(out, EleTreeNode{
			Refno:       c,
			Noun:        pe.Noun,
			Name:        name,
			Owner:       pe.Owner,
			ChildrenCnt: len(grandchildren),
			StatusCode:  pe.StatusCode,
		})
	}
	return out, nil
}

// GetSiblings returns every PE owned by refno's own owner, refno
// included. Cached for relTTL.
func (s *Service) GetSiblings(ctx context.Context, refno model.Refno) ([]model.Refno, error) {
	key := opKey(s.relCache, "get_siblings", refno)
	if v, ok := s.relCache.Get(key); ok {
		return v.([]model.Refno), nil
	}
	pe, err := s.a.GetPE(ctx, refno, adapter.DefaultQueryContext())
	if err != nil {
		return nil, err
	}
	if pe == nil || !pe.Owner.Valid() {
		return nil, nil
	}
	siblings, err := s.a.QueryChildren(ctx, pe.Owner, adapter.DefaultQueryContext())
	if err != nil {
		return nil, err
	}
	s.relCache.PutWithRefnos(key, siblings, append(append([]model.Refno{}, siblings...), refno))
	return siblings, nil
}

// GetNextPrev returns refno's next (next=true) or previous sibling in
// traversal order, or model.Unset if refno is first/last or has no
// siblings.
func (s *Service) GetNextPrev(ctx context.Context, refno model.Refno, next bool) (model.Refno, error) {
	siblings, err := s.GetSiblings(ctx, refno)
	if err != nil {
		return model.Unset, err
	}
	pos := -1
	for i, r := range siblings {
		if r == refno {
			pos = i
			break
		}
	}
	if pos < 0 {
		return model.Unset, nil
	}
	if next {
		if pos+1 >= len(siblings) {
			return model.Unset, nil
		}
		return siblings[pos+1], nil
	}
	if pos == 0 {
		return model.Unset, nil
	}
	return siblings[pos-1], nil
}

// QueryMultiChildrenRefnos returns the concatenation of GetChildrenRefnos
// applied to every refno in refnos, in input order.
func (s *Service) QueryMultiChildrenRefnos(ctx context.Context, refnos []model.Refno) ([]model.Refno, error) {
	var out []model.Refno
	for _, r := range refnos {
		children, err := s.GetChildrenRefnos(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, children...)
	}
	return out, nil
}

// GetIndexByNounInParent returns refno's position among parent's
// children, optionally restricted to children of the given noun, or -1
// if refno is not among them.
func (s *Service) GetIndexByNounInParent(ctx context.Context, parent, refno model.Refno, noun string) (int, error) {
	children, err := s.GetChildrenRefnos(ctx, parent)
	if err != nil {
		return -1, err
	}
	idx := 0
	for _, c := range children {
		if noun != "" {
			pe, err := s.a.GetPE(ctx, c, adapter.DefaultQueryContext())
			if err != nil {
				return -1, err
			}
			if pe == nil || pe.Noun != noun {
				continue
			}
		}
		if c == refno {
			return idx, nil
		}
		idx++
	}
	return -1, nil
}
