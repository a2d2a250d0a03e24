package query

import (
	"context"
	"time"

	"github.com/pdmscore/graphcore/pkg/model"
)

// sesHistorian is the optional as-of-session-number capability only a
// versioned backend (pkg/docstore) exposes; an analytical mirror has no
// history to query.
type sesHistorian interface {
	SesTimeRange(ctx context.Context, dbnum int32) (time.Time, time.Time, error)
	SesRecordsAtTime(ctx context.Context, t time.Time) ([]model.Refno, error)
	SesChangesInRange(ctx context.Context, lo, hi time.Time) ([]model.Refno, error)
}

func (s *Service) historian() (sesHistorian, error) {
	h, ok := s.a.(sesHistorian)
	if !ok {
		return nil, errUnsupportedf(s.a.Name(), "timeline queries")
	}
	return h, nil
}

// QuerySesTimeRange returns the earliest and latest recorded change
// timestamps for dbnum.
func (s *Service) QuerySesTimeRange(ctx context.Context, dbnum int32) (time.Time, time.Time, error) {
	h, err := s.historian()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return h.SesTimeRange(ctx, dbnum)
}

// QuerySesRecordsAtTime returns every refno whose state as of t is
// defined, i.e. has at least one history record at or before t.
func (s *Service) QuerySesRecordsAtTime(ctx context.Context, t time.Time) ([]model.Refno, error) {
	h, err := s.historian()
	if err != nil {
		return nil, err
	}
	return h.SesRecordsAtTime(ctx, t)
}

// QuerySesChangesInRange returns every refno with at least one history
// record timestamped within [lo, hi].
func (s *Service) QuerySesChangesInRange(ctx context.Context, lo, hi time.Time) ([]model.Refno, error) {
	h, err := s.historian()
	if err != nil {
		return nil, err
	}
	return h.SesChangesInRange(ctx, lo, hi)
}
