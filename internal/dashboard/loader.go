package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/9expert-devsec/classroom-app-sub001/internal/classes"
	"github.com/9expert-devsec/classroom-app-sub001/internal/daterange"
)

// 連続日程のクラスは範囲より前に始まっていても掛かり得るので、開始日時の絞り込みを広げる
const probeMargin = 45 * 24 * time.Hour

// loadSessions は候補を1回で取得し、厳密判定で範囲外を落とす。
func (s *Service) loadSessions(ctx context.Context, rng daterange.Range) ([]classes.Session, error) {
	candidates, err := s.sessions.FindSessions(ctx, classes.Filter{
		FromLabel: rng.StartLabel,
		ToLabel:   rng.EndLabel,
		StartFrom: rng.Start.Add(-probeMargin),
		StartTo:   rng.End,
	})
	if err != nil {
		return nil, fmt.Errorf("find sessions: %w", err)
	}

	out := make([]classes.Session, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, sess := range candidates {
		if _, dup := seen[sess.SessionID]; dup {
			continue
		}
		seen[sess.SessionID] = struct{}{}
		if sess.ActiveIn(rng) {
			out = append(out, sess)
		}
	}
	return out, nil
}

func sessionIDs(sessions []classes.Session) []string {
	ids := make([]string, len(sessions))
	for i, sess := range sessions {
		ids[i] = sess.SessionID
	}
	return ids
}
