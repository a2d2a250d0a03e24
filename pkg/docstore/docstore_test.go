package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdmscore/graphcore/pkg/adapter"
	"github.com/pdmscore/graphcore/pkg/model"
	"github.com/pdmscore/graphcore/pkg/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(storage.NewMemoryEngine())
}

func TestSavePEAndGetPERoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	refno := model.NewRefno(17496, 266203)
	pe := model.NewPE(refno, "ELBO")
	pe.Owner = model.NewRefno(17496, 10000)
	pe.Dbnum = 17496
	pe.Sesno = 42
	pe.CataHash = "abc"
	pe.Attrs.Set("STATUS_CODE", model.StringVal("OK"))

	require.NoError(t, s.SavePE(ctx, pe))

	got, err := s.GetPE(ctx, refno, adapter.DefaultQueryContext())
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, pe.Refno, got.Refno)
	assert.Equal(t, pe.Owner, got.Owner)
	assert.Equal(t, pe.Noun, got.Noun)
	assert.Equal(t, pe.CataHash, got.CataHash)

	attrs, err := s.GetAttrMap(ctx, refno, adapter.DefaultQueryContext())
	require.NoError(t, err)
	assert.Equal(t, "OK", attrs.GetStr("STATUS_CODE"))
}

func TestGetPEMissingReturnsNilNoError(t *testing.T) {
	s := newTestStore(t)
	pe, err := s.GetPE(context.Background(), model.NewRefno(1, 1), adapter.DefaultQueryContext())
	require.NoError(t, err)
	assert.Nil(t, pe)
}

func TestSaveAttrMapRequiresExistingPE(t *testing.T) {
	s := newTestStore(t)
	attrs := model.NewNamedAttrMap("ELBO")
	err := s.SaveAttrMap(context.Background(), model.NewRefno(1, 999), attrs)
	require.Error(t, err)
}

func TestQueryChildrenFollowsOwnerEdges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	parent := model.NewPE(model.NewRefno(1, 10), "SITE")
	child := model.NewPE(model.NewRefno(1, 20), "ZONE")
	child.Owner = parent.Refno

	require.NoError(t, s.SavePE(ctx, parent))
	require.NoError(t, s.SavePE(ctx, child))

	children, err := s.QueryChildren(ctx, parent.Refno, adapter.DefaultQueryContext())
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, child.Refno, children[0])

	ancestors, err := s.QueryAncestors(ctx, child.Refno, adapter.DefaultQueryContext())
	require.NoError(t, err)
	require.Len(t, ancestors, 1)
	assert.Equal(t, parent.Refno, ancestors[0])
}

func TestSavePEIsIdempotentOnLatestKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	refno := model.NewRefno(1, 1)

	first := model.NewPE(refno, "SITE")
	first.Name = "/SITE-1"
	require.NoError(t, s.SavePE(ctx, first))

	second := model.NewPE(refno, "SITE")
	second.Name = "/SITE-RENAMED"
	require.NoError(t, s.SavePE(ctx, second))

	got, err := s.GetPE(ctx, refno, adapter.DefaultQueryContext())
	require.NoError(t, err)
	assert.Equal(t, "/SITE-1", got.Name, "save_pe must not overwrite an existing latest record")
}
