package dashboard

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/9expert-devsec/classroom-app-sub001/internal/attendance"
	"github.com/9expert-devsec/classroom-app-sub001/internal/daterange"
	"github.com/9expert-devsec/classroom-app-sub001/internal/enrollment"
)

const (
	EncodingUTF8       = "utf8"        // BOM 付き（Excel 用）
	EncodingWindows874 = "windows-874" // タイ語版 Excel の既定
)

// Roster はクラス1つ分の名簿（プログラム情報なし）を返す。範囲内で開講していなければ NOT_FOUND。
func (s *Service) Roster(ctx context.Context, sessionID string, req Request) (*StudentGroup, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalid("session_id is required")
	}
	if req.RosterMode == "" {
		req.RosterMode = RosterAll
	}
	rng := daterange.Resolve(s.clock.Now(), req.Mode, req.From, req.To)

	sessions, err := s.loadSessions(ctx, rng)
	if err != nil {
		return nil, err
	}
	var card *ClassCard
	for _, c := range buildCards(sessions, aggregate{}) {
		if c.ID == sessionID {
			card = &c
			break
		}
	}
	if card == nil {
		return nil, ErrNotFound("session is not active in the selected range")
	}

	ids := []string{sessionID}
	var (
		enrolls []enrollment.Enrollment
		events  []attendance.Event
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if enrolls, err = s.enrollments.ListBySessions(gctx, ids); err != nil {
			return fmt.Errorf("list enrollments: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		q := attendance.RangeQuery{SessionIDs: ids, From: rng.Start, To: rng.End}
		if events, err = s.attendance.ListInRange(gctx, q); err != nil {
			return fmt.Errorf("list checkins: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	groups := s.buildStudentGroups(ctx, []ClassCard{*card}, enrolls, events, req.RosterMode)
	return &groups[0], nil
}

// csvEncoding は encoder と Content-Type 用の charset を返す
func csvEncoding(name string) (encoding.Encoding, string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", EncodingUTF8, "utf-8":
		return unicode.UTF8BOM, "utf-8", nil
	case EncodingWindows874, "cp874", "tis-620":
		return charmap.Windows874, EncodingWindows874, nil
	}
	return nil, "", ErrInvalid(fmt.Sprintf("unsupported encoding %q", name))
}

// WriteRosterCSV: 名前, 会社, チェックイン時刻(ローカル), 遅刻。
// 文字コードで表せない文字は置換文字になる（エラーにしない）
func WriteRosterCSV(w io.Writer, g *StudentGroup, enc encoding.Encoding) error {
	tw := transform.NewWriter(w, encoding.ReplaceUnsupported(enc.NewEncoder()))
	cw := csv.NewWriter(tw)

	if err := cw.Write([]string{"name", "company", "checkin_time", "late"}); err != nil {
		return err
	}
	for _, it := range g.Items {
		checkin, late := "", ""
		if it.CheckinTime != nil {
			checkin = it.CheckinTime.In(daterange.Zone).Format("2006-01-02 15:04:05")
			late = "N"
			if it.IsLate {
				late = "Y"
			}
		}
		if err := cw.Write([]string{it.Name, it.Company, checkin, late}); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return tw.Close()
}
