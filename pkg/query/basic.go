package query

import (
	"context"

	"github.com/pdmscore/graphcore/pkg/model"
)

// nameResolver is the optional "find by name" capability a backend may
// expose outside adapter.Adapter (pkg/docstore and pkg/mirror both do).
type nameResolver interface {
	FindByName(ctx context.Context, name string) (model.Refno, error)
}

// GetPE fetches a single PE, cached for peTTL.
func (s *Service) GetPE(ctx context.Context, refno model.Refno) (*model.PE, error) {
	key := opKey(s.peCache, "get_pe", refno)
	if v, ok := s.peCache.Get(key); ok {
		return v.(*model.PE), nil
	}
	pe, err := s.pb.BasicQuery(refno).FetchOne(ctx)
	if err != nil {
		return nil, err
	}
	if pe != nil {
		s.peCache.PutWithRefnos(key, pe, []model.Refno{refno})
	}
	return pe, nil
}

// GetTypeName returns refno's noun, or "unset" if refno doesn't resolve.
// Cached for typeNameTTL.
func (s *Service) GetTypeName(ctx context.Context, refno model.Refno) (string, error) {
	key := opKey(s.typeNameCache, "get_type_name", refno)
	if v, ok := s.typeNameCache.Get(key); ok {
		return v.(string), nil
	}
	name, err := s.pb.TypeQuery(refno).FetchValue(ctx)
	if err != nil {
		return "unset", err
	}
	s.typeNameCache.PutWithRefnos(key, name, []model.Refno{refno})
	return name, nil
}

// GetDefaultFullName composes refno's "/"-joined ancestor path. Cached
// for typeNameTTL, the same tier as get_type_name since both derive from
// cheap PE-field reads rather than the full attribute set.
func (s *Service) GetDefaultFullName(ctx context.Context, refno model.Refno) (string, error) {
	key := opKey(s.typeNameCache, "get_default_full_name", refno)
	if v, ok := s.typeNameCache.Get(key); ok {
		return v.(string), nil
	}
	full, err := s.fb.DefaultFullName(ctx, refno)
	if err != nil {
		return "unset", err
	}
	s.typeNameCache.PutWithRefnos(key, full, []model.Refno{refno})
	return full, nil
}

// GetRefnoByName resolves a PE by its exact name. Only backends
// implementing nameResolver support this; others report
// UnsupportedOperation.
func (s *Service) GetRefnoByName(ctx context.Context, name string) (model.Refno, error) {
	nr, ok := s.a.(nameResolver)
	if !ok {
		return model.Unset, errUnsupportedf(s.a.Name(), "get_refno_by_name")
	}
	return nr.FindByName(ctx, name)
}

// GetWorldByDbnum resolves the WORLD-noun PE for dbnum.
func (s *Service) GetWorldByDbnum(ctx context.Context, dbnum int32) (model.Refno, error) {
	return s.fb.GetWorld(ctx, dbnum)
}

// QuerySitesOfWorld returns world's direct SITE-noun children.
func (s *Service) QuerySitesOfWorld(ctx context.Context, world model.Refno) ([]model.Refno, error) {
	return s.fb.QuerySitesOfDB(ctx, world)
}
