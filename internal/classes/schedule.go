package classes

import (
	"sort"
	"time"

	"github.com/9expert-devsec/classroom-app-sub001/internal/daterange"
)

// Schedule は日程表現（日付集合 or 連続期間）ごとの判定を持つ。
type Schedule interface {
	// Window は表示用の [start, endExclusive)。日付集合の場合は最小〜最大日で、間の全日が開講とは限らない。
	Window() (start, end time.Time)
	ActiveIn(r daterange.Range) bool
}

// ExplicitDays: 独立した開講日の集合（連続とは限らない）
type ExplicitDays []string

func (d ExplicitDays) Window() (time.Time, time.Time) {
	if len(d) == 0 {
		return time.Time{}, time.Time{}
	}
	labels := append([]string(nil), d...)
	sort.Strings(labels)

	start, err := daterange.ParseDayLabel(labels[0])
	if err != nil {
		return time.Time{}, time.Time{}
	}
	end, err := daterange.ParseDayLabel(labels[len(labels)-1])
	if err != nil {
		end = start
	}
	return start.UTC(), end.AddDate(0, 0, 1).UTC()
}

// ActiveIn は少なくとも1日が範囲内にあれば true。min/max の間を埋めてはいけない。
func (d ExplicitDays) ActiveIn(r daterange.Range) bool {
	for _, label := range d {
		if r.ContainsLabel(label) {
			return true
		}
	}
	return false
}

// ContinuousRange: Start のローカル日から DayCount 日連続
type ContinuousRange struct {
	Start    time.Time
	DayCount int
}

func (c ContinuousRange) Window() (time.Time, time.Time) {
	start := daterange.LocalMidnight(c.Start)
	return start.UTC(), start.AddDate(0, 0, c.DayCount).UTC()
}

func (c ContinuousRange) ActiveIn(r daterange.Range) bool {
	start, end := c.Window()
	return r.Overlaps(start, end)
}

type noSchedule struct{}

func (noSchedule) Window() (time.Time, time.Time) { return time.Time{}, time.Time{} }
func (noSchedule) ActiveIn(daterange.Range) bool { return false }

// Schedule は日付集合が空でなければそれを優先し、連続期間の列は判定に使わない。
func (s Session) Schedule() Schedule {
	if len(s.DayLabels) > 0 {
		return ExplicitDays(s.DayLabels)
	}
	if s.StartsAt.IsZero() {
		return noSchedule{}
	}
	days := s.DayCount
	if days <= 0 {
		days = 1
	}
	return ContinuousRange{Start: s.StartsAt, DayCount: days}
}

func (s Session) ActiveIn(r daterange.Range) bool {
	return s.Schedule().ActiveIn(r)
}
