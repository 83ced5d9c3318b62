package attendance

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type DBTX interface {
	QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, q string, args ...any) *sql.Row
}

type Store struct{ db DBTX }

func NewStore(db DBTX) *Store { return &Store{db: db} }

// CountBySession: 期間内のチェックイン数と遅刻数をセッション別に1クエリで集計
func (s *Store) CountBySession(ctx context.Context, q RangeQuery) (map[string]SessionCount, error) {
	out := make(map[string]SessionCount, len(q.SessionIDs))
	if len(q.SessionIDs) == 0 {
		return out, nil
	}
	where, args := rangeWhere("", q)
	rows, err := s.db.QueryContext(ctx, `
	SELECT session_id, COUNT(*) AS cnt, COALESCE(SUM(CASE WHEN is_late THEN 1 ELSE 0 END), 0) AS late
	FROM attendances
	WHERE `+where+`
	GROUP BY session_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var c SessionCount
		if err := rows.Scan(&id, &c.Checkins, &c.Late); err != nil {
			return nil, err
		}
		out[id] = c
	}
	return out, rows.Err()
}

// CountDistinctEnrollments: 期間内に1回以上チェックインした受講者数
func (s *Store) CountDistinctEnrollments(ctx context.Context, q RangeQuery) (int64, error) {
	if len(q.SessionIDs) == 0 {
		return 0, nil
	}
	where, args := rangeWhere("", q)
	var n int64
	err := s.db.QueryRowContext(ctx, `
	SELECT COUNT(DISTINCT enrollment_id)
	FROM attendances
	WHERE `+where, args...).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// ListInRange: 名簿作成用。対象セッションの期間内イベントを時刻順で返す
func (s *Store) ListInRange(ctx context.Context, q RangeQuery) ([]Event, error) {
	if len(q.SessionIDs) == 0 {
		return nil, nil
	}
	where, args := rangeWhere("", q)
	rows, err := s.db.QueryContext(ctx, `
	SELECT attendance_id, session_id, enrollment_id, day_index, checked_in_at, is_late
	FROM attendances
	WHERE `+where+`
	ORDER BY checked_in_at ASC, attendance_id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var r eventRow
		if err := rows.Scan(&r.AttendanceID, &r.SessionID, &r.EnrollmentID, &r.DayIndex, &r.CheckedInAt, &r.IsLate); err != nil {
			return nil, err
		}
		out = append(out, r.toModel())
	}
	return out, rows.Err()
}

// Top: 期間内の最速 / 最新 N 件（受講者名・クラス名を JOIN）
func (s *Store) Top(ctx context.Context, q TopQuery) ([]RankedEvent, error) {
	if len(q.SessionIDs) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	where, args := rangeWhere("a.", q.RangeQuery)

	buf.WriteString(`
	SELECT a.attendance_id, a.session_id, a.enrollment_id, a.day_index, a.checked_in_at, a.is_late,
	       e.display_name, e.name_th, e.name_en, e.nickname,
	       s.course_code, s.title
	FROM attendances a
	LEFT JOIN enrollments e ON e.enrollment_id = a.enrollment_id
	JOIN class_sessions s ON s.session_id = a.session_id
	WHERE ` + where)

	// ORDER
	switch q.Sort {
	case SortCheckedInDesc:
		buf.WriteString(" ORDER BY a.checked_in_at DESC, a.attendance_id DESC")
	default:
		buf.WriteString(" ORDER BY a.checked_in_at ASC, a.attendance_id ASC")
	}

	// LIMIT
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	if limit > MaxTopLimit {
		limit = MaxTopLimit
	}
	buf.WriteString(fmt.Sprintf(" LIMIT %d", limit))

	rows, err := s.db.QueryContext(ctx, buf.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RankedEvent
	for rows.Next() {
		var (
			r                                 eventRow
			display, nameTH, nameEN, nickname sql.NullString
			code, title                       sql.NullString
		)
		if err := rows.Scan(&r.AttendanceID, &r.SessionID, &r.EnrollmentID, &r.DayIndex, &r.CheckedInAt, &r.IsLate,
			&display, &nameTH, &nameEN, &nickname, &code, &title); err != nil {
			return nil, err
		}
		out = append(out, RankedEvent{
			Event:       r.toModel(),
			DisplayName: display.String,
			NameTH:      nameTH.String,
			NameEN:      nameEN.String,
			Nickname:    nickname.String,
			CourseCode:  code.String,
			Title:       title.String,
		})
	}
	return out, rows.Err()
}

// ===== helpers =====

func rangeWhere(prefix string, q RangeQuery) (string, []any) {
	args := make([]any, 0, len(q.SessionIDs)+2)
	args = append(args, q.From.UTC(), q.To.UTC())
	for _, id := range q.SessionIDs {
		args = append(args, id)
	}
	in := strings.TrimSuffix(strings.Repeat("?,", len(q.SessionIDs)), ",")
	return fmt.Sprintf("%[1]schecked_in_at >= ? AND %[1]schecked_in_at < ? AND %[1]ssession_id IN (%[2]s)", prefix, in), args
}
