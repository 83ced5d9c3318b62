package dashboard

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/9expert-devsec/classroom-app-sub001/internal/platform/logger"
	"github.com/9expert-devsec/classroom-app-sub001/internal/programs"
)

// ProgramWorkers は外部サービスへの同時問い合わせ数の上限（リクエスト単位）
const ProgramWorkers = 6

// ===== キャッシュ =====

type outcome[V any] struct {
	val   V
	found bool
}

// memo はプロセス寿命のメモ化。見つからなかった結果も保存する。
// 同じキーの同時問い合わせは singleflight で1回にまとめる。
type memo[V any] struct {
	mu      sync.RWMutex
	entries map[string]outcome[V]
	group   singleflight.Group
}

func newMemo[V any]() *memo[V] {
	return &memo[V]{entries: make(map[string]outcome[V])}
}

func (m *memo[V]) lookup(key string) (outcome[V], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.entries[key]
	return o, ok
}

func (m *memo[V]) get(key string, fetch func() (V, bool)) (V, bool) {
	if o, ok := m.lookup(key); ok {
		return o.val, o.found
	}
	v, _, _ := m.group.Do(key, func() (any, error) {
		// 直前に別の呼び出しが保存し終えている場合
		if o, ok := m.lookup(key); ok {
			return o, nil
		}
		val, found := fetch()
		o := outcome[V]{val: val, found: found}
		m.mu.Lock()
		m.entries[key] = o
		m.mu.Unlock()
		return o, nil
	})
	o := v.(outcome[V])
	return o.val, o.found
}

func (m *memo[V]) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *memo[V]) reset() {
	m.mu.Lock()
	m.entries = make(map[string]outcome[V])
	m.mu.Unlock()
}

// ProgramCache: コースコード → プログラム参照、参照ID → 詳細 の2段キャッシュ。無効化なし。
type ProgramCache struct {
	refs    *memo[*programs.Ref]
	details *memo[*programs.Details]
}

func NewProgramCache() *ProgramCache {
	return &ProgramCache{
		refs:    newMemo[*programs.Ref](),
		details: newMemo[*programs.Details](),
	}
}

// Len returns the number of cached course-code and program-detail entries.
func (c *ProgramCache) Len() (refs, details int) {
	return c.refs.len(), c.details.len()
}

func (c *ProgramCache) Reset() {
	c.refs.reset()
	c.details.reset()
}

// ===== 付与処理 =====

type Enricher struct {
	lookup ProgramLookup
	cache  *ProgramCache
	log    *zap.Logger
}

func NewEnricher(lookup ProgramLookup, cache *ProgramCache, log *zap.Logger) *Enricher {
	if cache == nil {
		cache = NewProgramCache()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Enricher{lookup: lookup, cache: cache, log: log}
}

// Enrich はカードごとに独立してプログラム情報を埋める。失敗したカードはフォールバックアイコンのまま。
// 呼び出し元のキャンセルは伝播させない（取得結果はキャッシュに残す）。
func (e *Enricher) Enrich(ctx context.Context, cards []ClassCard) {
	ctx = context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(ProgramWorkers)
	for i := range cards {
		g.Go(func() error {
			e.enrichOne(ctx, &cards[i])
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Enricher) enrichOne(ctx context.Context, card *ClassCard) {
	card.Icon = fallbackIcon(card.CourseCode, card.Title)

	code := strings.TrimSpace(card.CourseCode)
	if code == "" || e.lookup == nil {
		return
	}
	log := e.log.With(zap.String(logger.FieldSessionID, card.ID), zap.String(logger.FieldCourseCode, code))

	ref, ok := e.cache.refs.get(code, func() (*programs.Ref, bool) {
		ref, err := e.lookup.LookupByCourseCode(ctx, code)
		if err != nil {
			log.Warn("program lookup failed", zap.Error(err))
			return nil, false
		}
		if ref == nil {
			log.Debug("program not found for course code")
			return nil, false
		}
		return ref, true
	})
	if !ok || ref == nil {
		return
	}
	card.ProgramID = ref.ID
	card.ProgramName = ref.Name
	card.ProgramIconURL = ref.IconURL

	if ref.ID != "" && card.ProgramColor == "" {
		d, ok := e.cache.details.get(ref.ID, func() (*programs.Details, bool) {
			d, err := e.lookup.LookupDetails(ctx, ref.ID)
			if err != nil {
				log.Warn("program details lookup failed", zap.String(logger.FieldProgramID, ref.ID), zap.Error(err))
				return nil, false
			}
			if d == nil {
				log.Debug("program details not found", zap.String(logger.FieldProgramID, ref.ID))
				return nil, false
			}
			return d, true
		})
		if ok && d != nil {
			if d.Name != "" {
				card.ProgramName = d.Name
			}
			card.ProgramColor = d.Color
			if card.ProgramIconURL == "" {
				card.ProgramIconURL = d.IconURL
			}
		}
	}

	if card.ProgramIconURL != "" {
		card.Icon = Icon{Type: IconURL, Value: card.ProgramIconURL}
	}
}

// fallbackIcon: コースコード、なければタイトルの先頭1文字を大文字で
func fallbackIcon(courseCode, title string) Icon {
	for _, s := range []string{courseCode, title} {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(s)
		// Caser はゴルーチン間で共有できない
		return Icon{Type: IconFallback, Value: cases.Upper(language.Und).String(string(r))}
	}
	return Icon{Type: IconFallback, Value: "?"}
}
