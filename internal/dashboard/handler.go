package dashboard

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/9expert-devsec/classroom-app-sub001/internal/daterange"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// GET /dashboard?range=week&include=cards,students&student_mode=late
	r.GET("/dashboard", h.GetDashboard)
	// GET /dashboard/sessions/:session_id/roster.csv?range=today&encoding=windows-874
	r.GET("/dashboard/sessions/:session_id/roster.csv", h.ExportRoster)
}

// ---------- handlers ----------

func (h *Handler) GetDashboard(c *gin.Context) {
	req, err := parseRequest(c)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	res, err := h.svc.Build(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ExportRoster(c *gin.Context) {
	req, err := parseRequest(c)
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}
	enc, charset, err := csvEncoding(c.Query("encoding"))
	if err != nil {
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}

	sessionID := c.Param("session_id")
	group, err := h.svc.Roster(c.Request.Context(), sessionID, req)
	if err != nil {
		_ = c.Error(err)
		c.JSON(toHTTPStatus(err), newErrDTO(err))
		return
	}

	c.Header("Content-Type", "text/csv; charset="+charset)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="roster-%s.csv"`, sanitizeFilename(sessionID)))
	c.Status(http.StatusOK)
	if err := WriteRosterCSV(c.Writer, group, enc); err != nil {
		_ = c.Error(err)
	}
}

// ---------- helpers ----------

func parseRequest(c *gin.Context) (Request, error) {
	mode, err := daterange.ParseMode(c.Query("range"))
	if err != nil {
		return Request{}, ErrInvalid("range must be one of today, week, month, custom")
	}
	parts, err := ParseParts(c.Query("include"))
	if err != nil {
		return Request{}, ErrInvalid(err.Error())
	}
	rosterMode, err := ParseRosterMode(c.Query("student_mode"))
	if err != nil {
		return Request{}, ErrInvalid("student_mode must be one of all, checkins, late, absent")
	}

	req := Request{
		Mode:       mode,
		From:       c.Query("from"),
		To:         c.Query("to"),
		Parts:      parts,
		RosterMode: rosterMode,
		ListLimit:  parseIntDefault(c.Query("limit"), 0),
	}
	if v := c.Query("lists"); v == "0" || strings.EqualFold(v, "false") {
		req.NoLists = true
	}
	return req, nil
}

func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
