package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/9expert-devsec/classroom-app-sub001/internal/attendance"
	"github.com/9expert-devsec/classroom-app-sub001/internal/daterange"
	"github.com/9expert-devsec/classroom-app-sub001/internal/enrollment"
)

// topCheckins: 最速 N 件（昇順）/ 最新 N 件（降順、遅刻フラグ付き）
func (s *Service) topCheckins(ctx context.Context, ids []string, rng daterange.Range, sortKey string, limit int) ([]RankedCheckin, error) {
	rows, err := s.attendance.Top(ctx, attendance.TopQuery{
		RangeQuery: attendance.RangeQuery{SessionIDs: ids, From: rng.Start, To: rng.End},
		Sort:       sortKey,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("top checkins (%s): %w", sortKey, err)
	}

	out := make([]RankedCheckin, 0, len(rows))
	for _, r := range rows {
		rc := RankedCheckin{
			ID:           r.AttendanceID,
			EnrollmentID: r.EnrollmentID,
			Name:         enrollment.ResolveName(r.DisplayName, r.NameTH, r.NameEN, r.Nickname),
			Time:         r.CheckedInAt,
			ClassLabel:   classLabel(r.CourseCode, r.Title),
		}
		if sortKey == attendance.SortCheckedInDesc {
			late := r.IsLate
			rc.IsLate = &late
		}
		out = append(out, rc)
	}
	return out, nil
}

func classLabel(code, title string) string {
	return strings.TrimSpace(strings.TrimSpace(code) + " " + strings.TrimSpace(title))
}

func clampLimit(n, def int) int {
	if n <= 0 {
		n = def
	}
	if n <= 0 {
		n = attendance.DefaultTopLimit
	}
	return min(n, attendance.MaxTopLimit)
}
