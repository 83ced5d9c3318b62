package attendance

import (
	"database/sql"
	"time"
)

// DB行に対応（スキャン用）
type eventRow struct {
	AttendanceID string
	SessionID    string
	EnrollmentID string
	DayIndex     sql.NullInt64
	CheckedInAt  time.Time
	IsLate       bool
}

// Event は1件のチェックイン。DayIndex は参考情報で、集計では「範囲内の最新」を使う。
type Event struct {
	AttendanceID string
	SessionID    string
	EnrollmentID string
	DayIndex     int // 0 = 未指定
	CheckedInAt  time.Time
	IsLate       bool
}

func (r eventRow) toModel() Event {
	e := Event{
		AttendanceID: r.AttendanceID,
		SessionID:    r.SessionID,
		EnrollmentID: r.EnrollmentID,
		CheckedInAt:  r.CheckedInAt.UTC(),
		IsLate:       r.IsLate,
	}
	if r.DayIndex.Valid {
		e.DayIndex = int(r.DayIndex.Int64)
	}
	return e
}

// RankedEvent はランキング用に受講者名とクラス情報を結合した行。
type RankedEvent struct {
	Event
	DisplayName string
	NameTH      string
	NameEN      string
	Nickname    string
	CourseCode  string
	Title       string
}
