package enrollment

import (
	"database/sql"
	"strings"
)

// NamePlaceholder は名前列が全て空のときの表示名
const NamePlaceholder = "-"

type enrollmentRow struct {
	EnrollmentID string
	SessionID    string
	DisplayName  sql.NullString
	NameTH       sql.NullString
	NameEN       sql.NullString
	Nickname     sql.NullString
	Company      sql.NullString
}

type Enrollment struct {
	EnrollmentID string
	SessionID    string
	DisplayName  string
	NameTH       string
	NameEN       string
	Nickname     string
	Company      string
}

func (r enrollmentRow) toModel() Enrollment {
	return Enrollment{
		EnrollmentID: r.EnrollmentID,
		SessionID:    r.SessionID,
		DisplayName:  r.DisplayName.String,
		NameTH:       r.NameTH.String,
		NameEN:       r.NameEN.String,
		Nickname:     r.Nickname.String,
		Company:      strings.TrimSpace(r.Company.String),
	}
}

// Name は表示名 → タイ語名 → 英語名 → ニックネームの順で最初の空でない値。
func (e Enrollment) Name() string {
	return ResolveName(e.DisplayName, e.NameTH, e.NameEN, e.Nickname)
}

func ResolveName(candidates ...string) string {
	for _, c := range candidates {
		if v := strings.TrimSpace(c); v != "" {
			return v
		}
	}
	return NamePlaceholder
}
