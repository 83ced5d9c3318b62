package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/9expert-devsec/classroom-app-sub001/internal/programs"
)

func TestEnrichDeduplicatesConcurrentLookups(t *testing.T) {
	lookup := newFakeLookup()
	lookup.delay = 20 * time.Millisecond
	lookup.refs["EXC-201"] = &programs.Ref{ID: "p1", Name: "Excel", IconURL: "https://cdn.example/excel.png"}

	cards := make([]ClassCard, 12)
	for i := range cards {
		cards[i] = ClassCard{ID: fmt.Sprintf("s%d", i), CourseCode: "EXC-201", Title: "Excel"}
	}
	e := NewEnricher(lookup, NewProgramCache(), nil)
	e.Enrich(context.Background(), cards)

	if n := lookup.calls("EXC-201"); n != 1 {
		t.Fatalf("lookups for EXC-201 = %d, want 1", n)
	}
	if n := lookup.detailCalls.Load(); n != 1 {
		t.Errorf("detail lookups = %d, want 1", n)
	}
	for _, c := range cards {
		if c.ProgramID != "p1" || c.Icon != (Icon{Type: IconURL, Value: "https://cdn.example/excel.png"}) {
			t.Fatalf("card %s = %+v", c.ID, c.ProgramInfo)
		}
	}
}

// peakLookup は同時に処理中の問い合わせ数の最大値を記録する
type peakLookup struct {
	inFlight atomic.Int64
	peak     atomic.Int64
	total    atomic.Int64
}

func (p *peakLookup) LookupByCourseCode(_ context.Context, _ string) (*programs.Ref, error) {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	p.total.Add(1)
	for {
		cur := p.peak.Load()
		if n <= cur || p.peak.CompareAndSwap(cur, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	return nil, nil
}

func (p *peakLookup) LookupDetails(context.Context, string) (*programs.Details, error) {
	return nil, nil
}

func TestEnrichBoundsConcurrentLookups(t *testing.T) {
	lookup := &peakLookup{}
	cards := make([]ClassCard, 100)
	for i := range cards {
		cards[i] = ClassCard{ID: fmt.Sprintf("s%d", i), CourseCode: fmt.Sprintf("C%03d", i)}
	}
	NewEnricher(lookup, nil, nil).Enrich(context.Background(), cards)

	if n := lookup.total.Load(); n != 100 {
		t.Fatalf("lookups = %d, want 100", n)
	}
	if peak := lookup.peak.Load(); peak > ProgramWorkers || peak < 1 {
		t.Errorf("peak in-flight lookups = %d, want 1..%d", peak, ProgramWorkers)
	}
	for _, c := range cards {
		if c.Icon.Type != IconFallback || c.Icon.Value != "C" {
			t.Fatalf("card %s icon = %+v", c.ID, c.Icon)
		}
	}
}

func TestEnrichCachesMissesAndFailures(t *testing.T) {
	lookup := newFakeLookup()
	cache := NewProgramCache()
	e := NewEnricher(lookup, cache, nil)

	cards := []ClassCard{{ID: "s1", CourseCode: "unknown", Title: "mystery"}}
	e.Enrich(context.Background(), cards)
	e.Enrich(context.Background(), cards)
	if n := lookup.calls("unknown"); n != 1 {
		t.Errorf("not-found lookups = %d, want 1", n)
	}
	if cards[0].Icon != (Icon{Type: IconFallback, Value: "U"}) {
		t.Errorf("icon = %+v", cards[0].Icon)
	}

	lookup.refErr = errors.New("timeout")
	failing := []ClassCard{{ID: "s2", CourseCode: "pbi-100", Title: "Power BI"}}
	e.Enrich(context.Background(), failing)
	e.Enrich(context.Background(), failing)
	if n := lookup.calls("pbi-100"); n != 1 {
		t.Errorf("failed lookups = %d, want 1", n)
	}
	if failing[0].ProgramID != "" || failing[0].Icon.Type != IconFallback {
		t.Errorf("failed card = %+v", failing[0].ProgramInfo)
	}
	if refs, _ := cache.Len(); refs != 2 {
		t.Errorf("cached refs = %d, want 2", refs)
	}

	cache.Reset()
	lookup.refErr = nil
	e.Enrich(context.Background(), failing)
	if n := lookup.calls("pbi-100"); n != 2 {
		t.Errorf("lookups after reset = %d, want 2", n)
	}
}

func TestEnrichUsesDetails(t *testing.T) {
	lookup := newFakeLookup()
	lookup.refs["SQL"] = &programs.Ref{ID: "p9"}
	lookup.details["p9"] = &programs.Details{ID: "p9", Name: "Data", Color: "#0a84ff", IconURL: "https://cdn.example/data.svg"}

	cards := []ClassCard{{ID: "s1", CourseCode: "SQL", Title: "SQL Basics"}}
	NewEnricher(lookup, nil, nil).Enrich(context.Background(), cards)

	got := cards[0].ProgramInfo
	want := ProgramInfo{
		ProgramID:      "p9",
		ProgramName:    "Data",
		ProgramColor:   "#0a84ff",
		ProgramIconURL: "https://cdn.example/data.svg",
		Icon:           Icon{Type: IconURL, Value: "https://cdn.example/data.svg"},
	}
	if got != want {
		t.Errorf("program info = %+v, want %+v", got, want)
	}
}

func TestEnrichWithoutLookup(t *testing.T) {
	cards := []ClassCard{{ID: "s1", CourseCode: "", Title: "ไทย"}}
	NewEnricher(nil, nil, nil).Enrich(context.Background(), cards)
	if cards[0].Icon != (Icon{Type: IconFallback, Value: "ไ"}) {
		t.Errorf("icon = %+v", cards[0].Icon)
	}
}

func TestFallbackIcon(t *testing.T) {
	tests := []struct {
		code, title, want string
	}{
		{"exc-201", "Excel", "E"},
		{"  ", "power bi", "P"},
		{"", "", "?"},
	}
	for _, tt := range tests {
		got := fallbackIcon(tt.code, tt.title)
		if got.Type != IconFallback || got.Value != tt.want {
			t.Errorf("fallbackIcon(%q, %q) = %+v, want %q", tt.code, tt.title, got, tt.want)
		}
	}
}
