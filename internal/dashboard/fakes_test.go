package dashboard

import (
	"context"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/9expert-devsec/classroom-app-sub001/internal/attendance"
	"github.com/9expert-devsec/classroom-app-sub001/internal/classes"
	"github.com/9expert-devsec/classroom-app-sub001/internal/daterange"
	"github.com/9expert-devsec/classroom-app-sub001/internal/enrollment"
	"github.com/9expert-devsec/classroom-app-sub001/internal/programs"
)

// ===== テスト用のインメモリ実装 =====

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// local は組織タイムゾーンの日時
func local(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, daterange.Zone)
}

type fakeSessions struct {
	list    []classes.Session
	err     error
	filters []classes.Filter // 受け取った条件
}

// 絞り込みはしない（厳密判定はローダー側の責務）。条件だけ記録する
func (f *fakeSessions) FindSessions(_ context.Context, flt classes.Filter) ([]classes.Session, error) {
	f.filters = append(f.filters, flt)
	if f.err != nil {
		return nil, f.err
	}
	return append([]classes.Session(nil), f.list...), nil
}

type fakeEnrollments struct {
	list []enrollment.Enrollment
	err  error
}

func (f *fakeEnrollments) CountBySession(_ context.Context, ids []string) (map[string]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]int64{}
	for _, e := range f.list {
		if slices.Contains(ids, e.SessionID) {
			out[e.SessionID]++
		}
	}
	return out, nil
}

func (f *fakeEnrollments) ListBySessions(_ context.Context, ids []string) ([]enrollment.Enrollment, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []enrollment.Enrollment
	for _, e := range f.list {
		if slices.Contains(ids, e.SessionID) {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeAttendance struct {
	events []attendance.Event
	names  map[string]string // enrollment_id → 表示名
	err    error
}

func (f *fakeAttendance) filter(q attendance.RangeQuery) []attendance.Event {
	var out []attendance.Event
	for _, ev := range f.events {
		if !slices.Contains(q.SessionIDs, ev.SessionID) {
			continue
		}
		if ev.CheckedInAt.Before(q.From) || !ev.CheckedInAt.Before(q.To) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func (f *fakeAttendance) CountBySession(_ context.Context, q attendance.RangeQuery) (map[string]attendance.SessionCount, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]attendance.SessionCount{}
	for _, ev := range f.filter(q) {
		c := out[ev.SessionID]
		c.Checkins++
		if ev.IsLate {
			c.Late++
		}
		out[ev.SessionID] = c
	}
	return out, nil
}

func (f *fakeAttendance) CountDistinctEnrollments(_ context.Context, q attendance.RangeQuery) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	seen := map[string]struct{}{}
	for _, ev := range f.filter(q) {
		seen[ev.EnrollmentID] = struct{}{}
	}
	return int64(len(seen)), nil
}

func (f *fakeAttendance) ListInRange(_ context.Context, q attendance.RangeQuery) ([]attendance.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.filter(q), nil
}

func (f *fakeAttendance) Top(_ context.Context, q attendance.TopQuery) ([]attendance.RankedEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	evs := f.filter(q.RangeQuery)
	sort.SliceStable(evs, func(i, j int) bool {
		if q.Sort == attendance.SortCheckedInDesc {
			return evs[i].CheckedInAt.After(evs[j].CheckedInAt)
		}
		return evs[i].CheckedInAt.Before(evs[j].CheckedInAt)
	})
	if len(evs) > q.Limit {
		evs = evs[:q.Limit]
	}
	out := make([]attendance.RankedEvent, 0, len(evs))
	for _, ev := range evs {
		out = append(out, attendance.RankedEvent{
			Event:       ev,
			DisplayName: f.names[ev.EnrollmentID],
			CourseCode:  "C-" + ev.SessionID,
			Title:       "Title " + ev.SessionID,
		})
	}
	return out, nil
}

// fakeLookup は呼び出し回数を数える外部プログラムサービス
type fakeLookup struct {
	mu       sync.Mutex
	refs     map[string]*programs.Ref
	details  map[string]*programs.Details
	refErr   error
	delay    time.Duration
	refCalls map[string]int

	detailCalls atomic.Int64
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		refs:     map[string]*programs.Ref{},
		details:  map[string]*programs.Details{},
		refCalls: map[string]int{},
	}
}

func (f *fakeLookup) LookupByCourseCode(_ context.Context, code string) (*programs.Ref, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refCalls[code]++
	if f.refErr != nil {
		return nil, f.refErr
	}
	return f.refs[code], nil
}

func (f *fakeLookup) LookupDetails(_ context.Context, id string) (*programs.Details, error) {
	f.detailCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.details[id], nil
}

func (f *fakeLookup) calls(code string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refCalls[code]
}

type fixture struct {
	sessions    *fakeSessions
	enrollments *fakeEnrollments
	attendance  *fakeAttendance
	lookup      *fakeLookup
	now         time.Time
}

func newFixture(now time.Time) *fixture {
	return &fixture{
		sessions:    &fakeSessions{},
		enrollments: &fakeEnrollments{},
		attendance:  &fakeAttendance{names: map[string]string{}},
		lookup:      newFakeLookup(),
		now:         now,
	}
}

func (f *fixture) service() *Service {
	return NewService(Deps{
		Sessions:    f.sessions,
		Enrollments: f.enrollments,
		Attendance:  f.attendance,
		Programs:    f.lookup,
		Clock:       fixedClock{f.now},
	})
}

// enroll は sessionID に n 人登録し、ID を返す
func (f *fixture) enroll(sessionID string, n int) []string {
	ids := make([]string, n)
	for i := range n {
		id := sessionID + "-e" + string(rune('A'+i/26)) + string(rune('a'+i%26))
		ids[i] = id
		f.enrollments.list = append(f.enrollments.list, enrollment.Enrollment{
			EnrollmentID: id,
			SessionID:    sessionID,
			DisplayName:  "Learner " + id,
		})
		f.attendance.names[id] = "Learner " + id
	}
	return ids
}

func (f *fixture) checkin(id, sessionID, enrollmentID string, at time.Time, late bool) {
	f.attendance.events = append(f.attendance.events, attendance.Event{
		AttendanceID: id,
		SessionID:    sessionID,
		EnrollmentID: enrollmentID,
		CheckedInAt:  at.UTC(),
		IsLate:       late,
	})
}
