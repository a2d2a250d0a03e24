package querybuild

import (
	"context"
	"fmt"

	"github.com/pdmscore/graphcore/pkg/adapter"
	"github.com/pdmscore/graphcore/pkg/model"
)

// PEBuilder is the PE-scoped builder: basic_query, attributes_query,
// children_query, ancestors_query, type_query (§4.6).
type PEBuilder struct {
	a adapter.Adapter
}

func NewPEBuilder(a adapter.Adapter) *PEBuilder { return &PEBuilder{a: a} }

func (b *PEBuilder) BasicQuery(refno model.Refno) *Query[*model.PE] {
	text := New("PE").Where("refno", refno.Opaque()).Limit(1).String()
	return NewQuery(text, func(ctx context.Context) (*model.PE, error) {
		return b.a.GetPE(ctx, refno, adapter.DefaultQueryContext())
	})
}

func (b *PEBuilder) AttributesQuery(refno model.Refno) *Query[*model.NamedAttrMap] {
	text := New("PE").Select("attrs").Where("refno", refno.Opaque()).String()
	return NewQuery(text, func(ctx context.Context) (*model.NamedAttrMap, error) {
		return b.a.GetAttrMap(ctx, refno, adapter.DefaultQueryContext())
	})
}

func (b *PEBuilder) ChildrenQuery(refno model.Refno) *Query[[]model.Refno] {
	text := New("PE").Where("owner", refno.Opaque()).String()
	return NewQuery(text, func(ctx context.Context) ([]model.Refno, error) {
		return b.a.QueryChildren(ctx, refno, adapter.DefaultQueryContext())
	})
}

func (b *PEBuilder) AncestorsQuery(refno model.Refno) *Query[[]model.Refno] {
	text := fmt.Sprintf("RECURSIVE OWNS FROM %s", refno.Opaque())
	return NewQuery(text, func(ctx context.Context) ([]model.Refno, error) {
		return b.a.QueryAncestors(ctx, refno, adapter.DefaultQueryContext())
	})
}

func (b *PEBuilder) TypeQuery(refno model.Refno) *Query[string] {
	text := New("PE").Select("noun").Where("refno", refno.Opaque()).String()
	return NewQuery(text, func(ctx context.Context) (string, error) {
		pe, err := b.a.GetPE(ctx, refno, adapter.DefaultQueryContext())
		if err != nil || pe == nil {
			return "unset", err
		}
		return pe.Noun, nil
	})
}
