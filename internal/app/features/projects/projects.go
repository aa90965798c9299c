package projects

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dalemusser/projecthub/internal/app/services/projectsvc"
	"github.com/dalemusser/projecthub/internal/app/system/timeouts"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// ServeList handles GET /api/projects. ?showArchived=true|false filters by
// archive state; absent lists all.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	opts := projectsvc.ListOptions{Profiles: true}
	if v := r.URL.Query().Get("showArchived"); v != "" {
		show := v == "true"
		opts.ShowArchived = &show
	}

	a := actor(r)
	views, err := h.Svc.GetProjects(ctx, a.ID, a.Email, opts)
	if err != nil {
		h.fail(w, r, "list projects", err)
		return
	}
	h.ok(w, r, "list projects", http.StatusOK, views)
}

// ServeProject handles GET /api/projects/{projectId}.
func (h *Handler) ServeProject(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	v, err := h.Svc.GetProject(ctx, chi.URLParam(r, "projectId"), actor(r).ID, projectsvc.GetOptions{Profiles: true})
	if err != nil {
		h.fail(w, r, "show project", err)
		return
	}
	h.ok(w, r, "show project", http.StatusOK, v)
}

type createRequest struct {
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	InviteList  []models.Invite `json:"invite_list"`
}

// HandleCreate handles POST /api/projects.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "create project: decode body", err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	in := projectsvc.CreateInput{Name: req.Name, Description: req.Description}
	for _, inv := range req.InviteList {
		in.InviteEmails = append(in.InviteEmails, inv.Email)
	}
	created, err := h.Svc.CreateProject(ctx, actor(r), in)
	if err != nil {
		h.fail(w, r, "create project", err)
		return
	}

	// Respond with directory profiles like the other read endpoints.
	v, err := h.Svc.GetProject(ctx, created.ID.Hex(), actor(r).ID, projectsvc.GetOptions{Profiles: true})
	if err != nil {
		h.fail(w, r, "create project", err)
		return
	}
	h.ok(w, r, "create project", http.StatusCreated, v)
}

type settingsRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Archived    json.RawMessage `json:"archived"`
}

// parseArchived accepts a JSON bool or the strings "true" and "false".
func parseArchived(raw json.RawMessage) (*bool, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, true
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return &b, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.TrimSpace(s) {
		case "true":
			b = true
			return &b, true
		case "false":
			return &b, true
		}
	}
	return nil, false
}

// HandleUpdate handles PUT|PATCH /api/projects/{projectId}/settings. Only
// name, description, and archived are writable.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "update project: decode body", err, "")
		return
	}
	archived, ok := parseArchived(req.Archived)
	if !ok {
		h.ErrLog.LogBadRequest(w, r, "update project: bad archived flag", nil, projectsvc.MsgBadArchived)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Svc.UpdateProject(ctx, chi.URLParam(r, "projectId"), actor(r).ID, models.ProjectMutation{
		Name:        req.Name,
		Description: req.Description,
		Archived:    archived,
	})
	if err != nil {
		h.fail(w, r, "update project", err)
		return
	}
	h.ok(w, r, "update project", http.StatusOK, p)
}

// HandleDelete handles DELETE /api/projects/{projectId}/settings. The
// cascade runs under the request context only.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), chi.URLParam(r, "projectId")); err != nil {
		h.fail(w, r, "delete project", err)
		return
	}
	h.ok(w, r, "delete project", http.StatusNoContent, nil)
}
