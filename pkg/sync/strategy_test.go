package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pdmscore/graphcore/pkg/model"
)

func TestDefaultStrategy(t *testing.T) {
	s := DefaultStrategy()
	assert.Equal(t, SourceToTarget, s.Direction)
	assert.Equal(t, Incremental, s.Mode)
	assert.Equal(t, SourceWins, s.Conflict)
	assert.Equal(t, 1000, s.BatchSize)
	assert.Equal(t, 60*time.Second, s.SyncInterval)
	assert.Equal(t, 3, s.RetryCount)
}

func TestFullSyncStrategyOverridesModeAndBatch(t *testing.T) {
	s := FullSyncStrategy()
	assert.Equal(t, Full, s.Mode)
	assert.Equal(t, 5000, s.BatchSize)
}

func TestFilterMatchesRefnoRange(t *testing.T) {
	f := Filter{
		HasRefnoRange: true,
		RefnoRangeLo:  model.NewRefno(1, 100),
		RefnoRangeHi:  model.NewRefno(1, 200),
	}
	assert.True(t, f.MatchesRefno(model.NewRefno(1, 150)))
	assert.False(t, f.MatchesRefno(model.NewRefno(1, 50)))
	assert.False(t, f.MatchesRefno(model.NewRefno(1, 250)))

	unbounded := Filter{}
	assert.True(t, unbounded.MatchesRefno(model.NewRefno(9, 9)))
}

func TestFilterMatchesTypeExcludeWinsOverInclude(t *testing.T) {
	f := Filter{IncludeTypes: []string{"ELBO", "TUBE"}, ExcludeTypes: []string{"TUBE"}}
	assert.True(t, f.MatchesType("ELBO"))
	assert.False(t, f.MatchesType("TUBE"))
	assert.False(t, f.MatchesType("NOZZ"))
}

func TestFilterMatchesTypeNoIncludeListAllowsEverythingNotExcluded(t *testing.T) {
	f := Filter{ExcludeTypes: []string{"WORLD"}}
	assert.True(t, f.MatchesType("SITE"))
	assert.False(t, f.MatchesType("WORLD"))
}

func TestFilterFilterAttrs(t *testing.T) {
	f := Filter{ExcludeAttributes: []string{"SESNO"}}
	attrs := model.NewNamedAttrMap("ELBO")
	attrs.Set("NAME", model.StringVal("E1"))
	attrs.Set("SESNO", model.StringVal("3"))

	out := f.FilterAttrs(attrs)
	assert.True(t, out.Has("NAME"))
	assert.False(t, out.Has("SESNO"))
}
