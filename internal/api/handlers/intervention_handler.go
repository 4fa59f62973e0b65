package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	middleware "github.com/steadyapp/steady/internal/api/middlewares"
	"github.com/steadyapp/steady/internal/core"
)

type InterventionHandler struct {
	dbclient core.DbClient
}

func NewInterventionHandler(dbclient core.DbClient) *InterventionHandler {
	return &InterventionHandler{dbclient: dbclient}
}

// Latest handles GET /api/interventions/latest. Data is null when the user
// has no interventions yet; while analysis_status is pending the client is
// expected to poll until the upgrade resolves.
func (h *InterventionHandler) Latest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	iv, err := h.dbclient.LatestIntervention(r.Context(), userID)
	if err != nil {
		log.Printf("latest intervention fetch failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load coaching message")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    iv,
	})
}

// PendingFeedback handles GET /api/interventions/pending-feedback.
func (h *InterventionHandler) PendingFeedback(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	iv, count, err := h.dbclient.LatestPendingFeedback(r.Context(), userID)
	if err != nil {
		log.Printf("pending feedback fetch failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load coaching message")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    iv,
		"count":   count,
	})
}

// MarkViewed handles POST /api/interventions/{id}/viewed.
func (h *InterventionHandler) MarkViewed(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.dbclient.MarkInterventionViewed(r.Context(), id, userID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeError(w, http.StatusNotFound, "intervention not found")
			return
		}
		log.Printf("mark viewed failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update intervention")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type feedbackRequest struct {
	Score int `json:"score"`
}

// Feedback handles POST /api/interventions/{id}/feedback.
func (h *InterventionHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Score < 1 || req.Score > 5 {
		writeError(w, http.StatusBadRequest, "feedback score must be between 1 and 5")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.dbclient.SetInterventionFeedback(r.Context(), id, userID, req.Score); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeError(w, http.StatusNotFound, "intervention not found")
			return
		}
		log.Printf("set feedback failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update intervention")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
