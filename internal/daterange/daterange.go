package daterange

import (
	"fmt"
	"strings"
	"time"
)

// 組織のタイムゾーンは UTC+7 固定（DST なし）
const (
	ZoneOffset = 7 * 60 * 60
	DateLayout = "2006-01-02"
)

var Zone = time.FixedZone("UTC+7", ZoneOffset)

type Mode string

const (
	ModeToday  Mode = "today"
	ModeWeek   Mode = "week"
	ModeMonth  Mode = "month"
	ModeCustom Mode = "custom"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeToday:
		return ModeToday, nil
	case ModeWeek:
		return ModeWeek, nil
	case ModeMonth:
		return ModeMonth, nil
	case ModeCustom:
		return ModeCustom, nil
	}
	return "", fmt.Errorf("unknown range mode %q", s)
}

// Range は集計対象の期間。
// Start/End は UTC の半開区間 [Start, End)、StartLabel/EndLabel はローカル日付の閉区間。
type Range struct {
	Start      time.Time
	End        time.Time
	StartLabel string
	EndLabel   string
}

// Contains reports whether t lies in [Start, End).
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// ContainsLabel compares fixed-width YYYY-MM-DD labels lexicographically, both ends inclusive.
func (r Range) ContainsLabel(label string) bool {
	return label >= r.StartLabel && label <= r.EndLabel
}

// Overlaps reports whether the half-open interval [start, end) intersects the range.
func (r Range) Overlaps(start, end time.Time) bool {
	return start.Before(r.End) && end.After(r.Start)
}

// Resolve turns a mode (and, for custom, explicit local day labels) into range boundaries.
// Unparseable custom bounds fall back to today's boundary for that side.
func Resolve(now time.Time, mode Mode, from, to string) Range {
	today := LocalMidnight(now)
	tomorrow := today.AddDate(0, 0, 1)

	start, end := today, tomorrow
	switch mode {
	case ModeWeek:
		start = today.AddDate(0, 0, -6)
	case ModeMonth:
		start = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, Zone)
	case ModeCustom:
		if d, err := ParseDayLabel(from); err == nil {
			start = d
		}
		if d, err := ParseDayLabel(to); err == nil {
			end = d.AddDate(0, 0, 1)
		}
		// from > to の場合は入れ替える
		if !start.Before(end) {
			start, end = end.AddDate(0, 0, -1), start.AddDate(0, 0, 1)
		}
	}

	return Range{
		Start:      start.UTC(),
		End:        end.UTC(),
		StartLabel: start.Format(DateLayout),
		EndLabel:   end.AddDate(0, 0, -1).Format(DateLayout),
	}
}

// LocalMidnight returns 00:00 of t's calendar day in the organization zone.
func LocalMidnight(t time.Time) time.Time {
	l := t.In(Zone)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, Zone)
}

func DayLabel(t time.Time) string {
	return t.In(Zone).Format(DateLayout)
}

// ParseDayLabel parses YYYY-MM-DD as local midnight in the organization zone.
func ParseDayLabel(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty day label")
	}
	return time.ParseInLocation(DateLayout, s, Zone)
}
