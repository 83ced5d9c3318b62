package dashboard

import (
	"sort"

	"github.com/9expert-devsec/classroom-app-sub001/internal/attendance"
	"github.com/9expert-devsec/classroom-app-sub001/internal/enrollment"
)

// latestByEnrollment: 受講者ごとに期間内で最も新しいチェックインを残す。
// 1日1件を前提にしない（同時刻は attendance_id の大きい方）。
func latestByEnrollment(events []attendance.Event) map[string]attendance.Event {
	out := make(map[string]attendance.Event, len(events))
	for _, ev := range events {
		cur, ok := out[ev.EnrollmentID]
		if !ok || ev.CheckedInAt.After(cur.CheckedInAt) ||
			(ev.CheckedInAt.Equal(cur.CheckedInAt) && ev.AttendanceID > cur.AttendanceID) {
			out[ev.EnrollmentID] = ev
		}
	}
	return out
}

// buildRoster はクラス1つ分の名簿を作る。stats はフィルタ前の値。
func buildRoster(enrolls []enrollment.Enrollment, latest map[string]attendance.Event, mode RosterMode) (RosterStats, []RosterItem) {
	items := make([]RosterItem, 0, len(enrolls))
	var stats RosterStats
	for _, e := range enrolls {
		item := RosterItem{ID: e.EnrollmentID, Name: e.Name(), Company: e.Company}
		if ev, ok := latest[e.EnrollmentID]; ok {
			t := ev.CheckedInAt
			item.CheckinTime = &t
			item.IsLate = ev.IsLate
			stats.Checkins++
			if ev.IsLate {
				stats.Late++
			}
		}
		items = append(items, item)
	}
	stats.Students = len(enrolls)
	stats.Absent = stats.Students - stats.Checkins

	// チェックイン時刻の昇順、未チェックインは最後
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch {
		case a.CheckinTime != nil && b.CheckinTime != nil:
			if !a.CheckinTime.Equal(*b.CheckinTime) {
				return a.CheckinTime.Before(*b.CheckinTime)
			}
		case a.CheckinTime != nil:
			return true
		case b.CheckinTime != nil:
			return false
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})

	return stats, filterRoster(items, mode)
}

func filterRoster(items []RosterItem, mode RosterMode) []RosterItem {
	if mode == RosterAll || mode == "" {
		return items
	}
	out := make([]RosterItem, 0, len(items))
	for _, it := range items {
		checked := it.CheckinTime != nil
		switch mode {
		case RosterCheckins:
			if checked {
				out = append(out, it)
			}
		case RosterLate:
			if checked && it.IsLate {
				out = append(out, it)
			}
		case RosterAbsent:
			if !checked {
				out = append(out, it)
			}
		}
	}
	return out
}
