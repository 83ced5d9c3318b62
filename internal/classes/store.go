package classes

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type DBTX interface {
	QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error)
}

type Store struct{ db DBTX }

func NewStore(db DBTX) *Store { return &Store{db: db} }

// FindSessions: 日付集合が範囲に掛かるセッション ∪ 日付集合なしで開始日時がプローブ窓内のセッション。
// 返すのは候補。厳密な判定は呼び出し側で Session.ActiveIn を使う。
// 日付集合は別クエリで全件取る（GROUP_CONCAT は group_concat_max_len で切れる）
func (s *Store) FindSessions(ctx context.Context, f Filter) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT s.session_id, s.title, s.course_code, s.room, s.starts_at, s.day_count
	FROM class_sessions s
	WHERE s.session_id IN (
	        SELECT x.session_id FROM class_session_days x
	        WHERE x.day_label BETWEEN ? AND ?)
	   OR (s.starts_at >= ? AND s.starts_at < ?
	       AND NOT EXISTS (SELECT 1 FROM class_session_days y WHERE y.session_id = s.session_id))`,
		f.FromLabel, f.ToLabel, f.StartFrom.UTC(), f.StartTo.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var r sessionRow
		if err := rows.Scan(&r.SessionID, &r.Title, &r.CourseCode, &r.Room, &r.StartsAt, &r.DayCount); err != nil {
			return nil, err
		}
		out = append(out, r.toModel())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, len(out))
	for i, sess := range out {
		ids[i] = sess.SessionID
	}
	labels, err := s.dayLabels(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].DayLabels = normalizeLabels(labels[out[i].SessionID])
	}
	return out, nil
}

// dayLabels: セッションID → 開講日ラベル
func (s *Store) dayLabels(ctx context.Context, ids []string) (map[string][]string, error) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	in := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := s.db.QueryContext(ctx, `
	SELECT session_id, day_label
	FROM class_session_days
	WHERE session_id IN (`+in+`)
	ORDER BY session_id, day_label`, args...)
	if err != nil {
		return nil, fmt.Errorf("day labels: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string, len(ids))
	for rows.Next() {
		var id, label string
		if err := rows.Scan(&id, &label); err != nil {
			return nil, err
		}
		out[id] = append(out[id], label)
	}
	return out, rows.Err()
}
