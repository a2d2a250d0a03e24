package querybuild

import (
	"context"
	"time"

	"github.com/pdmscore/graphcore/pkg/adapter"
	"github.com/pdmscore/graphcore/pkg/coreerr"
	"github.com/pdmscore/graphcore/pkg/model"
)

// nameResolver is the optional "find by name" capability pkg/docstore
// and pkg/mirror expose outside the core Adapter interface.
type nameResolver interface {
	FindByName(ctx context.Context, name string) (model.Refno, error)
}

// nounDbnumResolver is the optional "find by noun+dbnum" capability
// behind get_world_by_dbnum.
type nounDbnumResolver interface {
	FindByNounAndDbnum(ctx context.Context, noun string, dbnum int32) (model.Refno, error)
}

// sessionDater is the optional per-sesno timestamp capability only the
// canonical store (pkg/docstore) can offer.
type sessionDater interface {
	SessionDate(ctx context.Context, refno model.Refno) (time.Time, error)
}

// FunctionBuilder is the function builder: default_name, default_full_name,
// find_ancestor_type, session_date, get_world, query_sites_of_db,
// get_sites_of_dbnum (§4.6).
type FunctionBuilder struct {
	a adapter.Adapter
}

func NewFunctionBuilder(a adapter.Adapter) *FunctionBuilder { return &FunctionBuilder{a: a} }

// DefaultName returns refno's own Name, or "unset" if refno doesn't
// resolve.
func (b *FunctionBuilder) DefaultName(ctx context.Context, refno model.Refno) (string, error) {
	pe, err := b.a.GetPE(ctx, refno, adapter.DefaultQueryContext())
	if err != nil {
		return "unset", err
	}
	if pe == nil || pe.Name == "" {
		return "unset", nil
	}
	return pe.Name, nil
}

// DefaultFullName composes the "/"-joined ancestor-to-self path: each
// ancestor's own Name (root first), then refno's Name. A PE with no Name
// contributes its noun, and an ancestor that does not resolve contributes
// its "<db>_<elno>" form, so the path stays well-formed.
func (b *FunctionBuilder) DefaultFullName(ctx context.Context, refno model.Refno) (string, error) {
	pe, err := b.a.GetPE(ctx, refno, adapter.DefaultQueryContext())
	if err != nil {
		return "unset", err
	}
	if pe == nil {
		return "unset", nil
	}
	ancestors, err := b.a.QueryAncestors(ctx, refno, adapter.DefaultQueryContext())
	if err != nil {
		return "unset", err
	}
	chain := make([]model.Refno, 0, len(ancestors)+1)
	for i := len(ancestors) - 1; i >= 0; i-- {
		chain = append(chain, ancestors[i])
	}
	chain = append(chain, refno)

	full := ""
	for _, r := range chain {
		full += "/" + b.segmentName(ctx, r)
	}
	return full, nil
}

func (b *FunctionBuilder) segmentName(ctx context.Context, refno model.Refno) string {
	pe, err := b.a.GetPE(ctx, refno, adapter.DefaultQueryContext())
	if err != nil || pe == nil {
		return refno.FileSafe()
	}
	if pe.Name != "" {
		return pe.Name
	}
	return pe.Noun
}

// FindAncestorType walks refno's ancestor chain (nearest first) and
// returns the first one whose noun matches, or Unset if none does.
func (b *FunctionBuilder) FindAncestorType(ctx context.Context, refno model.Refno, noun string) (model.Refno, error) {
	ancestors, err := b.a.QueryAncestors(ctx, refno, adapter.DefaultQueryContext())
	if err != nil {
		return model.Unset, err
	}
	for _, a := range ancestors {
		pe, err := b.a.GetPE(ctx, a, adapter.DefaultQueryContext())
		if err != nil {
			return model.Unset, err
		}
		if pe != nil && pe.Noun == noun {
			return a, nil
		}
	}
	return model.Unset, nil
}

// SessionDate resolves the timestamp the backend recorded for refno's
// current sesno. Only backends implementing sessionDater (the canonical
// store) support this.
func (b *FunctionBuilder) SessionDate(ctx context.Context, refno model.Refno) (time.Time, error) {
	sd, ok := b.a.(sessionDater)
	if !ok {
		return time.Time{}, adapter.ErrUnsupported(b.a.Name(), "session_date")
	}
	return sd.SessionDate(ctx, refno)
}

// GetWorld returns the WORLD-noun PE's refno for dbnum.
func (b *FunctionBuilder) GetWorld(ctx context.Context, dbnum int32) (model.Refno, error) {
	nd, ok := b.a.(nounDbnumResolver)
	if !ok {
		return model.Unset, adapter.ErrUnsupported(b.a.Name(), "get_world")
	}
	return nd.FindByNounAndDbnum(ctx, "WORLD", dbnum)
}

// QuerySitesOfDB returns world's direct SITE-noun children.
func (b *FunctionBuilder) QuerySitesOfDB(ctx context.Context, world model.Refno) ([]model.Refno, error) {
	children, err := b.a.QueryChildren(ctx, world, adapter.DefaultQueryContext())
	if err != nil {
		return nil, err
	}
	var sites []model.Refno
	for _, c := range children {
		pe, err := b.a.GetPE(ctx, c, adapter.DefaultQueryContext())
		if err != nil {
			return nil, err
		}
		if pe != nil && pe.Noun == "SITE" {
			sites = append(sites, c)
		}
	}
	return sites, nil
}

// GetSitesOfDbnum composes GetWorld and QuerySitesOfDB.
func (b *FunctionBuilder) GetSitesOfDbnum(ctx context.Context, dbnum int32) ([]model.Refno, error) {
	world, err := b.GetWorld(ctx, dbnum)
	if err != nil {
		return nil, err
	}
	if !world.Valid() {
		return nil, coreerr.New(coreerr.NotFound, "get_sites_of_dbnum: no world for dbnum %d", dbnum)
	}
	return b.QuerySitesOfDB(ctx, world)
}
