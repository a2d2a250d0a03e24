package querybuild

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdmscore/graphcore/pkg/adapter"
	"github.com/pdmscore/graphcore/pkg/model"
)

// BatchBuilder is the batch builder: types_query, full_names_query,
// all_children_query (§4.6). Order is preserved relative to the input
// refno list.
type BatchBuilder struct {
	a adapter.Adapter
}

func NewBatchBuilder(a adapter.Adapter) *BatchBuilder { return &BatchBuilder{a: a} }

func refnoOpaques(refnos []model.Refno) string {
	parts := make([]string, len(refnos))
	for i, r := range refnos {
		parts[i] = r.Opaque()
	}
	return strings.Join(parts, ",")
}

func (b *BatchBuilder) TypesQuery(refnos []model.Refno) *Query[[]string] {
	text := fmt.Sprintf("SELECT noun FROM PE WHERE refno IN [%s]", refnoOpaques(refnos))
	return NewQuery(text, func(ctx context.Context) ([]string, error) {
		pes, err := b.a.GetPEBatch(ctx, refnos, adapter.DefaultQueryContext())
		if err != nil {
			return nil, err
		}
		byRefno := make(map[model.Refno]string, len(pes))
		for _, pe := range pes {
			byRefno[pe.Refno] = pe.Noun
		}
		out := make([]string, len(refnos))
		for i, r := range refnos {
			if n, ok := byRefno[r]; ok {
				out[i] = n
			} else {
				out[i] = "unset"
			}
		}
		return out, nil
	})
}

func (b *BatchBuilder) FullNamesQuery(refnos []model.Refno, fullName func(context.Context, model.Refno) (string, error)) *Query[[]string] {
	text := fmt.Sprintf("SELECT full_name FROM PE WHERE refno IN [%s]", refnoOpaques(refnos))
	return NewQuery(text, func(ctx context.Context) ([]string, error) {
		out := make([]string, len(refnos))
		for i, r := range refnos {
			name, err := fullName(ctx, r)
			if err != nil {
				return nil, err
			}
			out[i] = name
		}
		return out, nil
	})
}

func (b *BatchBuilder) AllChildrenQuery(refnos []model.Refno) *Query[[][]model.Refno] {
	text := fmt.Sprintf("SELECT children FROM PE WHERE refno IN [%s]", refnoOpaques(refnos))
	return NewQuery(text, func(ctx context.Context) ([][]model.Refno, error) {
		return b.a.QueryChildrenBatch(ctx, refnos, adapter.DefaultQueryContext())
	})
}
