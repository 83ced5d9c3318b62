package attendance

import "time"

const (
	SortCheckedInAsc  = "checked_in_at_asc"
	SortCheckedInDesc = "checked_in_at_desc"
	DefaultTopLimit   = 5
	MaxTopLimit       = 50
)

// RangeQuery は対象セッションと UTC の半開区間 [From, To)。
type RangeQuery struct {
	SessionIDs []string
	From       time.Time
	To         time.Time
}

type SessionCount struct {
	Checkins int64
	Late     int64
}

type TopQuery struct {
	RangeQuery
	Sort  string
	Limit int
}
