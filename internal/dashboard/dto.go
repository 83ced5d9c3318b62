package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/9expert-devsec/classroom-app-sub001/internal/daterange"
)

// ===== 要求パート =====

// Parts はレスポンスに含める区画のビット集合
type Parts uint8

const (
	PartCards Parts = 1 << iota
	PartStudents
	PartLists
	PartProgram

	PartAll = PartCards | PartStudents | PartLists | PartProgram
)

func (p Parts) Has(x Parts) bool { return p&x == x }

// ParseParts: "cards,students" 形式。空は cards のみ、"all" は全部。
func ParseParts(s string) (Parts, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PartCards, nil
	}
	var p Parts
	for _, tok := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(tok)) {
		case "":
		case "all":
			p |= PartAll
		case "cards":
			p |= PartCards
		case "students":
			p |= PartStudents
		case "lists":
			p |= PartLists
		case "program":
			p |= PartProgram
		default:
			return 0, fmt.Errorf("unknown part %q", tok)
		}
	}
	return p, nil
}

type RosterMode string

const (
	RosterAll      RosterMode = "all"
	RosterCheckins RosterMode = "checkins"
	RosterLate     RosterMode = "late"
	RosterAbsent   RosterMode = "absent"
)

func ParseRosterMode(s string) (RosterMode, error) {
	switch m := RosterMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return RosterAll, nil
	case RosterAll, RosterCheckins, RosterLate, RosterAbsent:
		return m, nil
	}
	return "", fmt.Errorf("unknown student mode %q", s)
}

// Request はダッシュボード1回分の要求
type Request struct {
	Mode       daterange.Mode
	From       string // custom 用 YYYY-MM-DD
	To         string
	Parts      Parts
	RosterMode RosterMode
	NoLists    bool // cards 要求時の lists 自動追加を止める
	ListLimit  int
}

// ===== レスポンス =====

type Totals struct {
	TotalSessions int   `json:"total_sessions"`
	TotalEnrolled int64 `json:"total_enrolled"`
	TotalCheckins int64 `json:"total_checkins"`
	LateCount     int64 `json:"late_count"`
	AbsentCount   int64 `json:"absent_count"`
}

const (
	IconURL      = "url"
	IconFallback = "fallback"
)

type Icon struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type ProgramInfo struct {
	ProgramID      string `json:"program_id"`
	ProgramName    string `json:"program_name"`
	ProgramColor   string `json:"program_color"`
	ProgramIconURL string `json:"program_icon_url"`
	Icon           Icon   `json:"icon"`
}

type ClassCard struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	CourseCode string `json:"course_code"`
	Room       string `json:"room"`

	// 表示用の [DateStart, DateEnd)。日付集合のクラスは最小〜最大日
	DateStart time.Time `json:"date_start"`
	DateEnd   time.Time `json:"date_end"`

	ProgramInfo

	Students int64 `json:"students"`
	Checkins int64 `json:"checkins"`
	Late     int64 `json:"late"`
}

type RosterStats struct {
	Students int `json:"students"`
	Checkins int `json:"checkins"`
	Late     int `json:"late"`
	Absent   int `json:"absent"`
}

type RosterItem struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Company     string     `json:"company"`
	CheckinTime *time.Time `json:"checkin_time"`
	IsLate      bool       `json:"is_late"`
}

type StudentGroup struct {
	SessionID  string `json:"session_id"`
	Title      string `json:"title"`
	CourseCode string `json:"course_code"`
	Room       string `json:"room"`

	ProgramInfo

	TotalInClass int          `json:"total_in_class"`
	Stats        RosterStats  `json:"stats"`
	Items        []RosterItem `json:"items"`
}

type RankedCheckin struct {
	ID           string    `json:"id"`
	EnrollmentID string    `json:"enrollment_id"`
	Name         string    `json:"name"`
	Time         time.Time `json:"time"`
	ClassLabel   string    `json:"class_label"`
	IsLate       *bool     `json:"is_late,omitempty"`
}

// RangeUsed: Start/End は表示用のローカル日付（End は含む）、From/To は内部の UTC 半開区間
type RangeUsed struct {
	Start string    `json:"start"`
	End   string    `json:"end"`
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
}

// Response: 要求されなかった区画は null
type Response struct {
	RangeUsed     RangeUsed       `json:"range_used"`
	Totals        *Totals         `json:"totals"`
	ClassCards    []ClassCard     `json:"class_cards"`
	StudentGroups []StudentGroup  `json:"student_groups"`
	Fastest       []RankedCheckin `json:"fastest"`
	MostRecent    []RankedCheckin `json:"most_recent"`
}
