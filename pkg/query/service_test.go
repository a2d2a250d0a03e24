package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdmscore/graphcore/pkg/catalog"
	"github.com/pdmscore/graphcore/pkg/docstore"
	"github.com/pdmscore/graphcore/pkg/mirror"
	"github.com/pdmscore/graphcore/pkg/model"
	"github.com/pdmscore/graphcore/pkg/storage"
)

func newTestService(t *testing.T) (*Service, *docstore.Store) {
	t.Helper()
	store := docstore.New(storage.NewMemoryEngine())
	cat, err := catalog.LoadBytes([]byte("{}"))
	require.NoError(t, err)
	return New(store, cat, nil), store
}

func seedPE(t *testing.T, s *docstore.Store, refno, owner model.Refno, noun, name string) {
	t.Helper()
	pe := model.NewPE(refno, noun)
	pe.Owner = owner
	pe.Name = name
	pe.Attrs.Set("NAME", model.StringVal(name))
	require.NoError(t, s.SavePE(context.Background(), pe))
}

func TestGetPECachesResult(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	refno := model.NewRefno(1, 1)
	seedPE(t, store, refno, model.Unset, "SITE", "S1")

	pe, err := svc.GetPE(ctx, refno)
	require.NoError(t, err)
	require.NotNil(t, pe)
	assert.Equal(t, "SITE", pe.Noun)

	stats := svc.CacheStats()
	assert.GreaterOrEqual(t, stats.PE.Misses, uint64(1))

	_, err = svc.GetPE(ctx, refno)
	require.NoError(t, err)
	stats2 := svc.CacheStats()
	assert.GreaterOrEqual(t, stats2.PE.Hits, uint64(1))
}

func TestClearAllCachesInvalidatesPE(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	refno := model.NewRefno(1, 2)
	seedPE(t, store, refno, model.Unset, "ZONE", "Z1")

	_, err := svc.GetPE(ctx, refno)
	require.NoError(t, err)

	svc.ClearAllCaches(refno)

	require.NoError(t, store.DeletePE(ctx, refno))

	got, err := svc.GetPE(ctx, refno)
	require.NoError(t, err)
	assert.True(t, got.Deleted)
}

func TestGetChildrenRefnosAndHierarchy(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	root := model.NewRefno(2, 1)
	c1 := model.NewRefno(2, 2)
	c2 := model.NewRefno(2, 3)
	seedPE(t, store, root, model.Unset, "SITE", "Root")
	seedPE(t, store, c1, root, "ZONE", "C1")
	seedPE(t, store, c2, root, "ZONE", "C2")

	children, err := svc.GetChildrenRefnos(ctx, root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.Refno{c1, c2}, children)

	ancestors, err := svc.QueryAncestorRefnos(ctx, c1)
	require.NoError(t, err)
	assert.Equal(t, []model.Refno{root}, ancestors)
}

func TestGetDefaultFullNameComposesPath(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	root := model.NewRefno(3, 1)
	child := model.NewRefno(3, 2)
	seedPE(t, store, root, model.Unset, "SITE", "Root")
	seedPE(t, store, child, root, "ZONE", "Child")

	name, err := svc.GetDefaultFullName(ctx, child)
	require.NoError(t, err)
	assert.Contains(t, name, "Child")
}

func TestQueryFullNamesUnsetForMissing(t *testing.T) {
	svc, _ := newTestService(t)
	names, err := svc.QueryFullNames(context.Background(), []model.Refno{model.NewRefno(9, 9)})
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Equal(t, "unset", names[0])
}

func TestQuerySubtreeAndDeepChildren(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	root := model.NewRefno(4, 1)
	mid := model.NewRefno(4, 2)
	leaf := model.NewRefno(4, 3)
	seedPE(t, store, root, model.Unset, "SITE", "Root")
	seedPE(t, store, mid, root, "ZONE", "Mid")
	seedPE(t, store, leaf, mid, "ELBO", "Leaf")

	deep, err := svc.QueryDeepChildrenRefnos(ctx, root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.Refno{mid, leaf}, deep)
}

func TestTimelineQueriesUnsupportedOnNonHistorian(t *testing.T) {
	cat, err := catalog.LoadBytes([]byte("{}"))
	require.NoError(t, err)
	svc := New(mirror.New(storage.NewMemoryEngine(), cat), cat, nil)
	_, _, err = svc.QuerySesTimeRange(context.Background(), 1)
	require.Error(t, err)
}

func TestTimelineQueriesSupportedOnDocstore(t *testing.T) {
	store := docstore.New(storage.NewMemoryEngine())
	cat, err := catalog.LoadBytes([]byte("{}"))
	require.NoError(t, err)
	svc := New(store, cat, nil)

	refno := model.NewRefno(5, 1)
	seedPE(t, store, refno, model.Unset, "SITE", "S1")

	_, _, err = svc.QuerySesTimeRange(context.Background(), 5)
	assert.NoError(t, err)
}
