package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdmscore/graphcore/pkg/adapter"
	"github.com/pdmscore/graphcore/pkg/catalog"
	"github.com/pdmscore/graphcore/pkg/docstore"
	"github.com/pdmscore/graphcore/pkg/mirror"
	"github.com/pdmscore/graphcore/pkg/model"
	"github.com/pdmscore/graphcore/pkg/storage"
)

func newPair(t *testing.T) (*docstore.Store, *mirror.Store) {
	t.Helper()
	cat, err := catalog.LoadBytes([]byte("{}"))
	require.NoError(t, err)
	primary := docstore.New(storage.NewMemoryEngine())
	secondary := mirror.New(storage.NewMemoryEngine(), cat)
	return primary, secondary
}

func TestRouterPrimaryOnlyIgnoresSecondary(t *testing.T) {
	primary, secondary := newPair(t)
	r := New(primary, secondary, Config{Mode: PrimaryOnly, FallbackOnError: true})

	refno := model.NewRefno(1, 1)
	pe := model.NewPE(refno, "SITE")
	require.NoError(t, r.SavePE(context.Background(), pe))

	gotPrimary, err := primary.GetPE(context.Background(), refno, adapter.DefaultQueryContext())
	require.NoError(t, err)
	assert.NotNil(t, gotPrimary)

	gotSecondary, err := secondary.GetPE(context.Background(), refno, adapter.DefaultQueryContext())
	require.NoError(t, err)
	assert.Nil(t, gotSecondary)
}

func TestRouterDualPrimaryPreferredWritesBoth(t *testing.T) {
	primary, secondary := newPair(t)
	r := New(primary, secondary, Config{Mode: DualPrimaryPreferred, FallbackOnError: true})

	refno := model.NewRefno(2, 1)
	pe := model.NewPE(refno, "ZONE")
	require.NoError(t, r.SavePE(context.Background(), pe))

	gotPrimary, err := primary.GetPE(context.Background(), refno, adapter.DefaultQueryContext())
	require.NoError(t, err)
	assert.NotNil(t, gotPrimary)

	gotSecondary, err := secondary.GetPE(context.Background(), refno, adapter.DefaultQueryContext())
	require.NoError(t, err)
	assert.NotNil(t, gotSecondary)
}

func TestRouterGraphTraversalOverridesMode(t *testing.T) {
	primary, secondary := newPair(t)
	r := New(primary, secondary, Config{Mode: PrimaryOnly, FallbackOnError: true})

	refno := model.NewRefno(3, 1)
	child := model.NewRefno(3, 2)
	require.NoError(t, secondary.SavePE(context.Background(), model.NewPE(refno, "SITE")))
	require.NoError(t, secondary.SavePE(context.Background(), model.NewPE(child, "ZONE")))
	require.NoError(t, secondary.CreateRelation(context.Background(), refno, child, "OWNS"))

	qctx := adapter.DefaultQueryContext()
	qctx.RequiresGraphTraversal = true
	related, err := r.QueryRelated(context.Background(), refno, "OWNS", qctx)
	require.NoError(t, err)
	assert.Contains(t, related, child)
}

func TestRouterShortestPathUsesGraphCapableSecondary(t *testing.T) {
	primary, secondary := newPair(t)
	r := New(primary, secondary, Config{Mode: PrimaryOnly, FallbackOnError: true})

	refno := model.NewRefno(4, 1)
	require.NoError(t, secondary.SavePE(context.Background(), model.NewPE(refno, "SITE")))

	_, err := r.ShortestPath(context.Background(), refno, refno, adapter.DefaultQueryContext())
	assert.NoError(t, err)
}

func TestRouterCapabilitiesMergesBothSides(t *testing.T) {
	primary, secondary := newPair(t)
	r := New(primary, secondary, DefaultConfig())

	caps := r.Capabilities()
	assert.True(t, caps.GraphTraversal)
}

func TestRouterPrimaryOnlyWithNilSecondary(t *testing.T) {
	primary, _ := newPair(t)
	r := New(primary, nil, DefaultConfig())

	refno := model.NewRefno(5, 1)
	require.NoError(t, r.SavePE(context.Background(), model.NewPE(refno, "SITE")))

	got, err := r.GetPE(context.Background(), refno, adapter.DefaultQueryContext())
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestRouterWritePrimaryReadSecondaryHasNoFallback(t *testing.T) {
	primary, secondary := newPair(t)
	r := New(primary, secondary, Config{Mode: WritePrimaryReadSecondary, FallbackOnError: true})

	refno := model.NewRefno(6, 1)
	require.NoError(t, r.SavePE(context.Background(), model.NewPE(refno, "SITE")))

	gotPrimary, err := primary.GetPE(context.Background(), refno, adapter.DefaultQueryContext())
	require.NoError(t, err)
	assert.NotNil(t, gotPrimary)

	got, err := r.GetPE(context.Background(), refno, adapter.DefaultQueryContext())
	require.NoError(t, err)
	assert.Nil(t, got)
}
