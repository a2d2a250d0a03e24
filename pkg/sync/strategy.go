// Package sync replicates the element tree, attributes, and relation
// edges from a source adapter.Adapter (the canonical document/graph
// store) to a target adapter.Adapter (the analytical mirror).
package sync

import (
	"time"

	"github.com/pdmscore/graphcore/pkg/model"
)

// Direction is which side of a sync pair receives the writes.
type Direction int

const (
	SourceToTarget Direction = iota
	TargetToSource
	Bidirectional
)

func (d Direction) String() string {
	switch d {
	case SourceToTarget:
		return "source_to_target"
	case TargetToSource:
		return "target_to_source"
	case Bidirectional:
		return "bidirectional"
	default:
		return "unknown"
	}
}

// Mode selects how the element set to sync is discovered.
type Mode int

const (
	Full Mode = iota
	Incremental
	Realtime
	OnDemand
)

func (m Mode) String() string {
	switch m {
	case Full:
		return "full"
	case Incremental:
		return "incremental"
	case Realtime:
		return "realtime"
	case OnDemand:
		return "on_demand"
	default:
		return "unknown"
	}
}

// Conflict selects how a sync resolves a PE that changed on both sides.
type Conflict int

const (
	SourceWins Conflict = iota
	TargetWins
	LatestTimestamp
	Manual
	Merge
)

func (c Conflict) String() string {
	switch c {
	case SourceWins:
		return "source_wins"
	case TargetWins:
		return "target_wins"
	case LatestTimestamp:
		return "latest_timestamp"
	case Manual:
		return "manual"
	case Merge:
		return "merge"
	default:
		return "unknown"
	}
}

// Strategy configures one sync run.
type Strategy struct {
	Direction       Direction
	Mode            Mode
	Conflict        Conflict
	BatchSize       int
	SyncInterval    time.Duration
	ContinueOnError bool
	RetryCount      int
	RetryDelay      time.Duration
}

// DefaultStrategy is SourceToTarget/Incremental/SourceWins, batch 1000,
// interval 60s, 3 retries at 1s.
func DefaultStrategy() Strategy {
	return Strategy{
		Direction:       SourceToTarget,
		Mode:            Incremental,
		Conflict:        SourceWins,
		BatchSize:       1000,
		SyncInterval:    60 * time.Second,
		ContinueOnError: true,
		RetryCount:      3,
		RetryDelay:      time.Second,
	}
}

// FullSyncStrategy is DefaultStrategy with Mode=Full and a larger batch.
func FullSyncStrategy() Strategy {
	s := DefaultStrategy()
	s.Mode = Full
	s.BatchSize = 5000
	return s
}

// RealtimeSyncStrategy is DefaultStrategy with Mode=Realtime, a short
// interval, and small batches.
func RealtimeSyncStrategy() Strategy {
	s := DefaultStrategy()
	s.Mode = Realtime
	s.SyncInterval = 100 * time.Millisecond
	s.BatchSize = 100
	return s
}

// Filter restricts which elements and attributes a sync run touches.
type Filter struct {
	IncludeTypes      []string
	ExcludeTypes      []string
	RefnoRangeLo      model.Refno
	RefnoRangeHi      model.Refno
	HasRefnoRange     bool
	IncludeAttributes []string
	ExcludeAttributes []string
	ModifiedAfter     time.Time
	ModifiedBefore    time.Time
}

// MatchesRefno reports whether refno falls in the configured range, or
// true if no range is set.
func (f Filter) MatchesRefno(refno model.Refno) bool {
	if !f.HasRefnoRange {
		return true
	}
	return refno >= f.RefnoRangeLo && refno <= f.RefnoRangeHi
}

// MatchesType applies exclude-wins-over-include noun filtering.
func (f Filter) MatchesType(noun string) bool {
	if contains(f.ExcludeTypes, noun) {
		return false
	}
	if len(f.IncludeTypes) > 0 {
		return contains(f.IncludeTypes, noun)
	}
	return true
}

// MatchesAttribute applies exclude-wins-over-include attribute filtering.
func (f Filter) MatchesAttribute(name string) bool {
	if contains(f.ExcludeAttributes, name) {
		return false
	}
	if len(f.IncludeAttributes) > 0 {
		return contains(f.IncludeAttributes, name)
	}
	return true
}

// FilterAttrs returns a NamedAttrMap holding only the attributes f
// allows, in attrs' own key order.
func (f Filter) FilterAttrs(attrs *model.NamedAttrMap) *model.NamedAttrMap {
	out := model.NewNamedAttrMap(attrs.TypeStr())
	for _, k := range attrs.Keys() {
		if !f.MatchesAttribute(k) {
			continue
		}
		if v, ok := attrs.Get(k); ok {
			out.Set(k, v)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
