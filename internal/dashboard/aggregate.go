package dashboard

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/9expert-devsec/classroom-app-sub001/internal/attendance"
	"github.com/9expert-devsec/classroom-app-sub001/internal/daterange"
)

type sessionCounts struct {
	Enrolled int64
	Checkins int64
	Late     int64
}

type aggregate struct {
	perSession map[string]sessionCounts
	totals     Totals
}

// aggregateCounts: 受講者数・チェックイン/遅刻数・チェックイン済み受講者数を並行に集計する。
func (s *Service) aggregateCounts(ctx context.Context, ids []string, rng daterange.Range) (aggregate, error) {
	q := attendance.RangeQuery{SessionIDs: ids, From: rng.Start, To: rng.End}

	var (
		enrolled map[string]int64
		checkins map[string]attendance.SessionCount
		distinct int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if enrolled, err = s.enrollments.CountBySession(gctx, ids); err != nil {
			return fmt.Errorf("count enrollments: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if checkins, err = s.attendance.CountBySession(gctx, q); err != nil {
			return fmt.Errorf("count checkins: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if distinct, err = s.attendance.CountDistinctEnrollments(gctx, q); err != nil {
			return fmt.Errorf("count checked-in enrollments: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return aggregate{}, err
	}

	agg := aggregate{perSession: make(map[string]sessionCounts, len(ids))}
	agg.totals.TotalSessions = len(ids)
	for _, id := range ids {
		c := sessionCounts{
			Enrolled: enrolled[id],
			Checkins: checkins[id].Checkins,
			Late:     checkins[id].Late,
		}
		agg.perSession[id] = c
		agg.totals.TotalEnrolled += c.Enrolled
		agg.totals.TotalCheckins += c.Checkins
		agg.totals.LateCount += c.Late
	}

	agg.totals.AbsentCount = absentCount(agg.totals.TotalEnrolled, distinct)
	if distinct > agg.totals.TotalEnrolled {
		s.logger(ctx).Warn("checked-in enrollments exceed enrolled count",
			zap.Int64("enrolled", agg.totals.TotalEnrolled),
			zap.Int64("checked_in", distinct))
	}
	return agg, nil
}

// absentCount は負にならない
func absentCount(enrolled, checkedIn int64) int64 {
	return max(0, enrolled-checkedIn)
}
