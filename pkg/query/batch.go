package query

import (
	"context"

	"github.com/pdmscore/graphcore/pkg/adapter"
	"github.com/pdmscore/graphcore/pkg/model"
)

// QueryFullNames resolves each refno in refnos to its default full name,
// "unset" for any that don't resolve. Order matches the input.
func (s *Service) QueryFullNames(ctx context.Context, refnos []model.Refno) ([]string, error) {
	return s.bb.FullNamesQuery(refnos, s.GetDefaultFullName).FetchAll(ctx)
}

// QueryFullNamesMap is QueryFullNames keyed by refno.
func (s *Service) QueryFullNamesMap(ctx context.Context, refnos []model.Refno) (map[model.Refno]string, error) {
	names, err := s.QueryFullNames(ctx, refnos)
	if err != nil {
		return nil, err
	}
	out := make(map[model.Refno]string, len(refnos))
	for i, r := range refnos {
		out[r] = names[i]
	}
	return out, nil
}

// QueryChildrenFullNamesMap resolves every direct child of refno to its
// full name, keyed by child refno.
func (s *Service) QueryChildrenFullNamesMap(ctx context.Context, refno model.Refno) (map[model.Refno]string, error) {
	children, err := s.GetChildrenRefnos(ctx, refno)
	if err != nil {
		return nil, err
	}
	return s.QueryFullNamesMap(ctx, children)
}

// QueryTypes resolves every refno in refnos to its noun, "unset" for any
// that don't resolve.
func (s *Service) QueryTypes(ctx context.Context, refnos []model.Refno) ([]string, error) {
	out := make([]string, len(refnos))
	for i, r := range refnos {
		name, err := s.GetTypeName(ctx, r)
		if err != nil {
			return nil, err
		}
		out[i] = name
	}
	return out, nil
}

// QueryFilterChildren returns refno's direct children whose noun is one
// of nouns.
func (s *Service) QueryFilterChildren(ctx context.Context, refno model.Refno, nouns []string) ([]model.Refno, error) {
	children, err := s.GetChildrenRefnos(ctx, refno)
	if err != nil {
		return nil, err
	}
	return s.filterByNoun(ctx, children, nouns)
}

// QueryFilterChildrenAtts returns the attribute maps of refno's direct
// children whose noun is one of nouns.
func (s *Service) QueryFilterChildrenAtts(ctx context.Context, refno model.Refno, nouns []string) ([]*model.NamedAttrMap, error) {
	filtered, err := s.QueryFilterChildren(ctx, refno, nouns)
	if err != nil {
		return nil, err
	}
	out := make([]*model.NamedAttrMap, 0, len(filtered))
	for _, c := range filtered {
		attrs, err := s.GetNamedAttmap(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, attrs)
	}
	return out, nil
}

func (s *Service) filterByNoun(ctx context.Context, refnos []model.Refno, nouns []string) ([]model.Refno, error) {
	if len(nouns) == 0 {
		return refnos, nil
	}
	want := make(map[string]bool, len(nouns))
	for _, n := range nouns {
		want[n] = true
	}
	out := make([]model.Refno, 0, len(refnos))
	for _, r := range refnos {
		pe, err := s.a.GetPE(ctx, r, adapter.DefaultQueryContext())
		if err != nil {
			return nil, err
		}
		if pe != nil && want[pe.Noun] {
			out = append(out, r)
		}
	}
	return out, nil
}
