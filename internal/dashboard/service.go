package dashboard

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/9expert-devsec/classroom-app-sub001/internal/attendance"
	"github.com/9expert-devsec/classroom-app-sub001/internal/classes"
	"github.com/9expert-devsec/classroom-app-sub001/internal/daterange"
	"github.com/9expert-devsec/classroom-app-sub001/internal/enrollment"
	"github.com/9expert-devsec/classroom-app-sub001/internal/platform/reqlog"
	"github.com/9expert-devsec/classroom-app-sub001/internal/programs"
)

// ===== インターフェース群 =====

type SessionFinder interface {
	FindSessions(ctx context.Context, f classes.Filter) ([]classes.Session, error)
}

type EnrollmentReader interface {
	CountBySession(ctx context.Context, sessionIDs []string) (map[string]int64, error)
	ListBySessions(ctx context.Context, sessionIDs []string) ([]enrollment.Enrollment, error)
}

type AttendanceReader interface {
	CountBySession(ctx context.Context, q attendance.RangeQuery) (map[string]attendance.SessionCount, error)
	CountDistinctEnrollments(ctx context.Context, q attendance.RangeQuery) (int64, error)
	ListInRange(ctx context.Context, q attendance.RangeQuery) ([]attendance.Event, error)
	Top(ctx context.Context, q attendance.TopQuery) ([]attendance.RankedEvent, error)
}

// ProgramLookup: 見つからない場合は (nil, nil)、通信失敗などは error
type ProgramLookup interface {
	LookupByCourseCode(ctx context.Context, code string) (*programs.Ref, error)
	LookupDetails(ctx context.Context, id string) (*programs.Details, error)
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// ===== Service本体 =====

type Deps struct {
	Sessions    SessionFinder
	Enrollments EnrollmentReader
	Attendance  AttendanceReader
	Programs    ProgramLookup // nil ならプログラム情報はフォールバックのみ
	Cache       *ProgramCache
	Clock       Clock
	Logger      *zap.Logger
	ListLimit   int
}

type Service struct {
	sessions    SessionFinder
	enrollments EnrollmentReader
	attendance  AttendanceReader
	enricher    *Enricher
	clock       Clock
	log         *zap.Logger
	listLimit   int
}

func NewService(d Deps) *Service {
	if d.Clock == nil {
		d.Clock = realClock{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Service{
		sessions:    d.Sessions,
		enrollments: d.Enrollments,
		attendance:  d.Attendance,
		enricher:    NewEnricher(d.Programs, d.Cache, d.Logger),
		clock:       d.Clock,
		log:         d.Logger,
		listLimit:   clampLimit(d.ListLimit, attendance.DefaultTopLimit),
	}
}

// NewMySQLService は MySQL のストア群でサービスを組み立てる。
func NewMySQLService(db *sql.DB, lookup ProgramLookup, log *zap.Logger, listLimit int) *Service {
	return NewService(Deps{
		Sessions:    classes.NewStore(db),
		Enrollments: enrollment.NewStore(db),
		Attendance:  attendance.NewStore(db),
		Programs:    lookup,
		Cache:       NewProgramCache(),
		Logger:      log,
		ListLimit:   listLimit,
	})
}

func (s *Service) logger(ctx context.Context) *zap.Logger {
	return reqlog.FromContext(ctx, s.log)
}

// plan は要求パートを展開した実行計画
type plan struct {
	computeCards bool // 内部的にカードを作る
	returnCards  bool
	students     bool
	lists        bool
	program      bool
}

// expand:
//   - students は cards の文脈が必要なので内部で cards を作る（返すかは cards 要求次第）
//   - cards を要求したら NoLists でない限り lists も付ける
//   - program は返すカード・名簿グループへの付与なので、どちらも無ければ問い合わせない
func expand(req Request) plan {
	p := plan{
		returnCards: req.Parts.Has(PartCards),
		students:    req.Parts.Has(PartStudents),
		lists:       req.Parts.Has(PartLists) || (req.Parts.Has(PartCards) && !req.NoLists),
	}
	p.computeCards = p.returnCards || p.students
	p.program = req.Parts.Has(PartProgram) && p.computeCards
	return p
}

// Build はダッシュボード1回分を組み立てる。ストアのエラーはそのまま失敗として返す。
func (s *Service) Build(ctx context.Context, req Request) (*Response, error) {
	if req.RosterMode == "" {
		req.RosterMode = RosterAll
	}
	p := expand(req)
	rng := daterange.Resolve(s.clock.Now(), req.Mode, req.From, req.To)
	log := s.logger(ctx)

	resp := &Response{RangeUsed: RangeUsed{
		Start: rng.StartLabel,
		End:   rng.EndLabel,
		From:  rng.Start,
		To:    rng.End,
	}}

	sessions, err := s.loadSessions(ctx, rng)
	if err != nil {
		return nil, err
	}
	ids := sessionIDs(sessions)
	limit := clampLimit(req.ListLimit, s.listLimit)

	// 集計・ランキング・名簿データは互いに独立。全部揃ってから組み立てる
	var (
		agg     aggregate
		enrolls []enrollment.Enrollment
		events  []attendance.Event
	)
	g, gctx := errgroup.WithContext(ctx)
	if p.computeCards {
		g.Go(func() error {
			var err error
			agg, err = s.aggregateCounts(gctx, ids, rng)
			return err
		})
	}
	if p.students {
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
	}
	if p.lists {
		g.Go(func() error {
			var err error
			resp.Fastest, err = s.topCheckins(gctx, ids, rng, attendance.SortCheckedInAsc, limit)
			return err
		})
		g.Go(func() error {
			var err error
			resp.MostRecent, err = s.topCheckins(gctx, ids, rng, attendance.SortCheckedInDesc, limit)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("dashboard query failed", zap.Error(err))
		return nil, err
	}

	if !p.computeCards {
		return resp, nil
	}

	cards := buildCards(sessions, agg)
	if p.program {
		s.enricher.Enrich(ctx, cards)
	}
	if p.returnCards {
		totals := agg.totals
		resp.Totals = &totals
		resp.ClassCards = cards
	}
	if p.students {
		resp.StudentGroups = s.buildStudentGroups(ctx, cards, enrolls, events, req.RosterMode)
	}

	log.Debug("dashboard built",
		zap.String("range_start", rng.StartLabel),
		zap.String("range_end", rng.EndLabel),
		zap.Int("sessions", len(sessions)),
		zap.Bool("program", p.program),
		zap.Bool("students", p.students),
		zap.Bool("lists", p.lists))
	return resp, nil
}

// buildCards: 表示期間の開始日順（同日はタイトル、ID）
func buildCards(sessions []classes.Session, agg aggregate) []ClassCard {
	cards := make([]ClassCard, 0, len(sessions))
	for _, sess := range sessions {
		start, end := sess.Schedule().Window()
		c := agg.perSession[sess.SessionID]
		cards = append(cards, ClassCard{
			ID:          sess.SessionID,
			Title:       sess.Title,
			CourseCode:  sess.CourseCode,
			Room:        sess.Room,
			DateStart:   start,
			DateEnd:     end,
			ProgramInfo: ProgramInfo{Icon: fallbackIcon(sess.CourseCode, sess.Title)},
			Students:    c.Enrolled,
			Checkins:    c.Checkins,
			Late:        c.Late,
		})
	}
	sort.SliceStable(cards, func(i, j int) bool {
		a, b := cards[i], cards[j]
		if !a.DateStart.Equal(b.DateStart) {
			return a.DateStart.Before(b.DateStart)
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID < b.ID
	})
	return cards
}

func (s *Service) buildStudentGroups(ctx context.Context, cards []ClassCard, enrolls []enrollment.Enrollment, events []attendance.Event, mode RosterMode) []StudentGroup {
	bySession := make(map[string][]enrollment.Enrollment, len(cards))
	known := make(map[string]struct{}, len(enrolls))
	for _, e := range enrolls {
		bySession[e.SessionID] = append(bySession[e.SessionID], e)
		known[e.EnrollmentID] = struct{}{}
	}

	latest := latestByEnrollment(events)
	orphans := 0
	for id := range latest {
		if _, ok := known[id]; !ok {
			orphans++
		}
	}
	if orphans > 0 {
		s.logger(ctx).Warn("checkins reference unknown enrollments", zap.Int("count", orphans))
	}

	groups := make([]StudentGroup, 0, len(cards))
	for _, card := range cards {
		members := bySession[card.ID]
		stats, items := buildRoster(members, latest, mode)
		groups = append(groups, StudentGroup{
			SessionID:    card.ID,
			Title:        card.Title,
			CourseCode:   card.CourseCode,
			Room:         card.Room,
			ProgramInfo:  card.ProgramInfo,
			TotalInClass: len(members),
			Stats:        stats,
			Items:        items,
		})
	}
	return groups
}
