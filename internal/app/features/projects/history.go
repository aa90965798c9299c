package projects

import (
	"context"
	"net/http"
	"strconv"

	historystore "github.com/dalemusser/projecthub/internal/app/store/history"
	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"github.com/dalemusser/projecthub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/projecthub/internal/app/system/timeouts"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeHistory handles GET /api/projects/{projectId}/history?limit=N.
func (h *Handler) ServeHistory(w http.ResponseWriter, r *http.Request) {
	pid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "projectId"))
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "history: bad id", err, "")
		return
	}
	limit := int64(historystore.DefaultListLimit)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			h.ErrLog.LogBadRequest(w, r, "history: bad limit", err, "")
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	entries, err := h.History.List(ctx, pid, limit)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "history list failed", err, "")
		return
	}
	h.ok(w, r, "history", http.StatusOK, entries)
}

type historyRequest struct {
	Description  string `json:"description"`
	ResourceID   string `json:"resource_id"`
	ResourceName string `json:"resource_name"`
	ResourceType string `json:"resource_type"`
	ResourceURL  string `json:"resource_url"`
}

// HandleLogHistory handles POST /api/projects/{projectId}/history. The
// entry is attributed to the caller.
func (h *Handler) HandleLogHistory(w http.ResponseWriter, r *http.Request) {
	pid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "projectId"))
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "log history: bad id", err, "")
		return
	}
	var req historyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "log history: decode body", err, "")
		return
	}
	desc := htmlsanitize.StripTags(req.Description)
	if desc == "" {
		h.ErrLog.LogBadRequest(w, r, "log history: empty description", nil, "")
		return
	}
	_, _, uid, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	e, err := h.History.Create(ctx, models.HistoryEntry{
		ProjectID:    pid,
		UserID:       uid,
		Description:  desc,
		ResourceID:   req.ResourceID,
		ResourceName: htmlsanitize.StripTags(req.ResourceName),
		ResourceType: req.ResourceType,
		ResourceURL:  req.ResourceURL,
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "log history failed", err, "")
		return
	}
	h.ok(w, r, "log history", http.StatusCreated, e)
}
