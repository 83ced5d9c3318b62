package classes

import (
	"database/sql"
	"sort"
	"strings"
	"time"
)

// DB行に対応（スキャン用）
type sessionRow struct {
	SessionID  string
	Title      string
	CourseCode sql.NullString
	Room       sql.NullString
	StartsAt   sql.NullTime
	DayCount   sql.NullInt64
}

// Session はダッシュボードで必要な列だけを持つ射影。
type Session struct {
	SessionID  string
	Title      string
	CourseCode string
	Room       string
	StartsAt   time.Time // 連続日程の開始（日付集合がある場合は後方互換のためだけに残る）
	DayCount   int
	DayLabels  []string
}

func (r sessionRow) toModel() Session {
	s := Session{
		SessionID:  r.SessionID,
		Title:      r.Title,
		CourseCode: strings.TrimSpace(r.CourseCode.String),
		Room:       r.Room.String,
	}
	if r.StartsAt.Valid {
		s.StartsAt = r.StartsAt.Time.UTC()
	}
	if r.DayCount.Valid {
		s.DayCount = int(r.DayCount.Int64)
	}
	return s
}

// Filter は候補セッションの取得条件。
// 日付集合が [FromLabel, ToLabel] に掛かるもの ∪ 日付集合なしで開始が [StartFrom, StartTo) のもの。
type Filter struct {
	FromLabel string
	ToLabel   string
	StartFrom time.Time
	StartTo   time.Time
}

// normalizeLabels: 空白除去・重複除去・昇順
func normalizeLabels(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}
