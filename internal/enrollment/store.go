package enrollment

import (
	"context"
	"database/sql"
	"strings"
)

type DBTX interface {
	QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error)
}

type Store struct{ db DBTX }

func NewStore(db DBTX) *Store { return &Store{db: db} }

// CountBySession: セッションID別の受講者数（GROUP BY）
func (s *Store) CountBySession(ctx context.Context, sessionIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return out, nil
	}
	in, args := inClause(sessionIDs)
	rows, err := s.db.QueryContext(ctx, `
	SELECT session_id, COUNT(*) AS cnt
	FROM enrollments
	WHERE session_id IN (`+in+`)
	GROUP BY session_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var cnt int64
		if err := rows.Scan(&id, &cnt); err != nil {
			return nil, err
		}
		out[id] = cnt
	}
	return out, rows.Err()
}

// ListBySessions: 名簿作成用の全件取得
func (s *Store) ListBySessions(ctx context.Context, sessionIDs []string) ([]Enrollment, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(sessionIDs)
	rows, err := s.db.QueryContext(ctx, `
	SELECT enrollment_id, session_id, display_name, name_th, name_en, nickname, company
	FROM enrollments
	WHERE session_id IN (`+in+`)
	ORDER BY session_id, enrollment_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Enrollment
	for rows.Next() {
		var r enrollmentRow
		if err := rows.Scan(&r.EnrollmentID, &r.SessionID, &r.DisplayName, &r.NameTH, &r.NameEN, &r.Nickname, &r.Company); err != nil {
			return nil, err
		}
		out = append(out, r.toModel())
	}
	return out, rows.Err()
}

func inClause(ids []string) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}
