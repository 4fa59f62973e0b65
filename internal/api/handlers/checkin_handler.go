package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/steadyapp/steady/internal/analytics"
	middleware "github.com/steadyapp/steady/internal/api/middlewares"
	"github.com/steadyapp/steady/internal/core"
	"github.com/steadyapp/steady/internal/models"
	"github.com/steadyapp/steady/internal/services"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 50
)

type CheckinHandler struct {
	svc *services.CheckinService
}

func NewCheckinHandler(svc *services.CheckinService) *CheckinHandler {
	return &CheckinHandler{svc: svc}
}

type createCheckinRequest struct {
	MoodScore   int    `json:"moodScore"`
	EnergyLevel string `json:"energyLevel"`
	FreeText    string `json:"freeText"`
}

type createCheckinResponse struct {
	Success   bool              `json:"success"`
	Data      *models.Checkin   `json:"data"`
	Analytics analytics.Summary `json:"analytics"`
}

// Create handles POST /api/checkins.
func (h *CheckinHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createCheckinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	checkin, summary, err := h.svc.Submit(r.Context(), userID, services.SubmitInput{
		MoodScore:   req.MoodScore,
		EnergyLevel: req.EnergyLevel,
		FreeText:    req.FreeText,
	})
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Msg)
			return
		}
		log.Printf("check-in submit failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to save check-in")
		return
	}

	writeJSON(w, http.StatusOK, createCheckinResponse{
		Success:   true,
		Data:      checkin,
		Analytics: summary,
	})
}

type pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}

type listCheckinsResponse struct {
	Success    bool                   `json:"success"`
	Data       []models.Checkin       `json:"data"`
	Pagination pagination             `json:"pagination"`
	Analytics  *analytics.PageSummary `json:"analytics,omitempty"`
}

// List handles GET /api/checkins with pagination, optional date filters and
// an optional analytics block computed over exactly the returned page.
func (h *CheckinHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := r.URL.Query()
	query := core.CheckinQuery{
		Limit:  clampInt(parseIntDefault(q.Get("limit"), defaultPageLimit), 1, maxPageLimit),
		Offset: max(parseIntDefault(q.Get("offset"), 0), 0),
	}
	if t, ok := parseDateParam(q.Get("date_from")); ok {
		query.DateFrom = &t
	}
	if t, ok := parseDateParam(q.Get("date_to")); ok {
		query.DateTo = &t
	}

	checkins, total, err := h.svc.List(r.Context(), userID, query)
	if err != nil {
		log.Printf("check-in list failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch check-ins")
		return
	}
	if checkins == nil {
		checkins = []models.Checkin{}
	}

	resp := listCheckinsResponse{
		Success: true,
		Data:    checkins,
		Pagination: pagination{
			Limit:   query.Limit,
			Offset:  query.Offset,
			Total:   total,
			HasMore: total > query.Offset+query.Limit,
		},
	}
	if q.Get("include_analytics") == "true" && len(checkins) > 0 {
		page := analytics.SummarizePage(checkins, total)
		resp.Analytics = &page
	}

	writeJSON(w, http.StatusOK, resp)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// parseDateParam accepts RFC 3339 timestamps or bare dates (2006-01-02).
func parseDateParam(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
