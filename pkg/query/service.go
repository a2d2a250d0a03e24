// Package query implements the six query services laid on top of
// pkg/querybuild's builders: Basic, Hierarchy, Attribute, Batch,
// Timeline, and Graph. Every service shares one Service value, which
// also owns the TTL result caches §4.6.3 requires (adapted from the
// teacher's pkg/cache.QueryCache).
package query

import (
	"time"

	"github.com/pdmscore/graphcore/pkg/adapter"
	"github.com/pdmscore/graphcore/pkg/cache"
	"github.com/pdmscore/graphcore/pkg/catalog"
	"github.com/pdmscore/graphcore/pkg/coreerr"
	"github.com/pdmscore/graphcore/pkg/model"
	"github.com/pdmscore/graphcore/pkg/querybuild"
)

const (
	peCacheSize       = 10000
	attrCacheSize     = 10000
	relCacheSize      = 10000
	typeNameCacheSize = 10000

	peTTL       = 10 * time.Minute
	attrTTL     = 5 * time.Minute
	relTTL      = 5 * time.Minute
	typeNameTTL = 5 * time.Minute
)

// Service bundles an adapter, its catalog, and the cached builder layer
// every query entrypoint reads through.
type Service struct {
	a   adapter.Adapter
	cat *catalog.Catalog
	uda []catalog.UDADescriptor

	pb *querybuild.PEBuilder
	bb *querybuild.BatchBuilder
	fb *querybuild.FunctionBuilder

	peCache       *cache.QueryCache
	attrCache     *cache.QueryCache
	relCache      *cache.QueryCache
	typeNameCache *cache.QueryCache
}

// New builds a Service over adapter a, using cat for attribute
// decoding/UI projection and uda (possibly nil) for §4.6.1's descriptor
// defaults layer.
func New(a adapter.Adapter, cat *catalog.Catalog, uda []catalog.UDADescriptor) *Service {
	return &Service{
		a:   a,
		cat: cat,
		uda: uda,

		pb: querybuild.NewPEBuilder(a),
		bb: querybuild.NewBatchBuilder(a),
		fb: querybuild.NewFunctionBuilder(a),

		peCache:       cache.NewQueryCache(peCacheSize, peTTL),
		attrCache:     cache.NewQueryCache(attrCacheSize, attrTTL),
		relCache:      cache.NewQueryCache(relCacheSize, relTTL),
		typeNameCache: cache.NewQueryCache(typeNameCacheSize, typeNameTTL),
	}
}

// ClearAllCaches drops every cache entry keyed by or containing refno,
// the per-refno invalidation routine §4.6.3 requires write paths to call.
func (s *Service) ClearAllCaches(refno model.Refno) {
	s.peCache.ClearByRefno(refno)
	s.attrCache.ClearByRefno(refno)
	s.relCache.ClearByRefno(refno)
	s.typeNameCache.ClearByRefno(refno)
}

// CacheStats reports the four tiers' hit/miss/eviction counters.
type CacheStats struct {
	PE       cache.CacheStats
	Attrs    cache.CacheStats
	Relation cache.CacheStats
	TypeName cache.CacheStats
}

func (s *Service) CacheStats() CacheStats {
	return CacheStats{
		PE:       s.peCache.Stats(),
		Attrs:    s.attrCache.Stats(),
		Relation: s.relCache.Stats(),
		TypeName: s.typeNameCache.Stats(),
	}
}

func opKey(c *cache.QueryCache, op string, refno model.Refno) uint64 {
	return c.Key(op+":"+refno.Opaque(), nil)
}

func errUnsupportedf(adapterName, op string) error {
	return coreerr.New(coreerr.UnsupportedOperation, "%s does not support %s", adapterName, op)
}
