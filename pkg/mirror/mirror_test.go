package mirror

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdmscore/graphcore/pkg/adapter"
	"github.com/pdmscore/graphcore/pkg/catalog"
	"github.com/pdmscore/graphcore/pkg/model"
	"github.com/pdmscore/graphcore/pkg/storage"
)

const testCatalogJSON = `{
  "named_attr_info_map": {
    "ELBO": {
      "STATUS_CODE": {"name": "STATUS_CODE", "hash": 1, "offset": 1, "default_val": "\"OK\"", "att_type": "STRING"},
      "BORE": {"name": "BORE", "hash": 2, "offset": 2, "default_val": "0.0", "att_type": "DOUBLE"},
      "OWNE_REFNO": {"name": "OWNE_REFNO", "hash": 3, "offset": 3, "default_val": "\"\"", "att_type": "ELEMENT"}
    },
    "SITE": {},
    "ZONE": {}
  }
}`

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cat, err := catalog.LoadBytes([]byte(testCatalogJSON))
	require.NoError(t, err)
	return New(storage.NewMemoryEngine(), cat)
}

func TestSavePEAndGetPERoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	refno := model.NewRefno(17496, 266203)
	pe := model.NewPE(refno, "ELBO")
	pe.Dbnum = 17496
	pe.Sesno = 7
	pe.CataHash = "abc"
	pe.Attrs.Set("STATUS_CODE", model.StringVal("OK"))
	pe.Attrs.Set("BORE", model.FloatVal(150.0))

	require.NoError(t, s.SavePE(ctx, pe))

	got, err := s.GetPE(ctx, refno, adapter.DefaultQueryContext())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, pe.Noun, got.Noun)
	assert.Equal(t, pe.CataHash, got.CataHash)
	assert.Equal(t, "OK", got.Attrs.GetStr("STATUS_CODE"))
	assert.InDelta(t, 150.0, got.Attrs.GetF32("BORE"), 0.001)
}

func TestSavePEOverwritesOnReplication(t *testing.T) {
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
	assert.Equal(t, "/SITE-RENAMED", got.Name, "mirror save_pe replicates the latest synced state, unlike docstore's insert-ignore")
}

func TestQueryChildrenAndAncestors(t *testing.T) {
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

	got, err := s.GetPE(ctx, child.Refno, adapter.DefaultQueryContext())
	require.NoError(t, err)
	assert.Equal(t, parent.Refno, got.Owner, "GetPE resolves owner via the single incoming OWNS edge")
}

func TestElementAttributeCreatesReferenceEdges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	target := model.NewPE(model.NewRefno(1, 50), "ELBO")
	require.NoError(t, s.SavePE(ctx, target))

	source := model.NewPE(model.NewRefno(1, 51), "ELBO")
	source.Attrs.Set("OWNE_REFNO", model.ElementVal(target.Refno.Opaque()))
	require.NoError(t, s.SavePE(ctx, source))

	related, err := s.QueryRelated(ctx, source.Refno, relRefersTo, adapter.DefaultQueryContext())
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, target.Refno, related[0])

	path, err := s.ShortestPath(ctx, source.Refno, target.Refno, adapter.DefaultQueryContext())
	require.NoError(t, err)
	assert.Equal(t, []model.Refno{source.Refno, target.Refno}, path)
}

func TestSaveAttrMapRequiresExistingPE(t *testing.T) {
	s := newTestStore(t)
	attrs := model.NewNamedAttrMap("ELBO")
	err := s.SaveAttrMap(context.Background(), model.NewRefno(9, 9), attrs)
	require.Error(t, err)
}

func TestCountElementsFiltersByNoun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SavePE(ctx, model.NewPE(model.NewRefno(1, 1), "SITE")))
	require.NoError(t, s.SavePE(ctx, model.NewPE(model.NewRefno(1, 2), "ZONE")))
	require.NoError(t, s.SavePE(ctx, model.NewPE(model.NewRefno(1, 3), "ZONE")))

	total, err := s.CountElements(ctx, "")
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	zones, err := s.CountElements(ctx, "ZONE")
	require.NoError(t, err)
	assert.EqualValues(t, 2, zones)
}

func TestFindByNameUsesPropertyIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pe := model.NewPE(model.NewRefno(1, 4), "ZONE")
	pe.Name = "MAIN-DECK"
	require.NoError(t, s.SavePE(ctx, pe))

	refno, err := s.FindByName(ctx, "MAIN-DECK")
	require.NoError(t, err)
	assert.Equal(t, pe.Refno, refno)

	missing, err := s.FindByName(ctx, "NO-SUCH-NAME")
	require.NoError(t, err)
	assert.Equal(t, model.Unset, missing)
}

func TestFindByNounAndDbnumUsesPropertyIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := model.NewPE(model.NewRefno(17496, 1), "SITE")
	a.Dbnum = 17496
	require.NoError(t, s.SavePE(ctx, a))

	b := model.NewPE(model.NewRefno(20000, 1), "SITE")
	b.Dbnum = 20000
	require.NoError(t, s.SavePE(ctx, b))

	refno, err := s.FindByNounAndDbnum(ctx, "SITE", 20000)
	require.NoError(t, err)
	assert.Equal(t, b.Refno, refno)

	none, err := s.FindByNounAndDbnum(ctx, "SITE", 99999)
	require.NoError(t, err)
	assert.Equal(t, model.Unset, none)
}

func TestRebuildIndexesRecoversFromExistingNodes(t *testing.T) {
	ctx := context.Background()
	cat, err := catalog.LoadBytes([]byte(testCatalogJSON))
	require.NoError(t, err)

	engine := storage.NewMemoryEngine()
	first := New(engine, cat)

	pe := model.NewPE(model.NewRefno(1, 9), "ZONE")
	pe.Name = "RE-OPENED"
	require.NoError(t, first.SavePE(ctx, pe))

	// A fresh Store wrapping the same engine simulates a process restart:
	// ensureIndexes must repopulate the index from nodes already on disk.
	second := New(engine, cat)
	refno, err := second.FindByName(ctx, "RE-OPENED")
	require.NoError(t, err)
	assert.Equal(t, pe.Refno, refno)
}
