package projects

import (
	"context"
	"net/http"

	"github.com/dalemusser/projecthub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
)

type ownerRequest struct {
	UserID string `json:"userId"`
}

// HandleChangeOwner handles PUT /api/projects/{projectId}/owner with
// {"userId":...}.
func (h *Handler) HandleChangeOwner(w http.ResponseWriter, r *http.Request) {
	var req ownerRequest
	if err := decodeJSON(w, r, &req); err != nil || req.UserID == "" {
		h.ErrLog.LogBadRequest(w, r, "change owner: missing userId", err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Svc.ChangeOwner(ctx, chi.URLParam(r, "projectId"), req.UserID); err != nil {
		h.fail(w, r, "change owner", err)
		return
	}
	h.ok(w, r, "change owner", http.StatusNoContent, nil)
}

type pictureRequest struct {
	AssetID string `json:"assetId"`
}

// HandleUpdatePicture handles PUT /api/projects/{projectId}/picture with
// {"assetId":...}.
func (h *Handler) HandleUpdatePicture(w http.ResponseWriter, r *http.Request) {
	var req pictureRequest
	if err := decodeJSON(w, r, &req); err != nil || req.AssetID == "" {
		h.ErrLog.LogBadRequest(w, r, "update picture: missing assetId", err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.Svc.UpdatePicture(ctx, chi.URLParam(r, "projectId"), req.AssetID, actor(r).ID); err != nil {
		h.fail(w, r, "update picture", err)
		return
	}
	h.ok(w, r, "update picture", http.StatusNoContent, nil)
}

type publishRequest struct {
	Tags []string `json:"tags"`
}

// HandlePublish handles PUT /api/projects/{projectId}/publish with
// {"tags":[...]}.
func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	if !h.Opts.EnablePublish {
		h.ErrLog.LogBadRequest(w, r, "publish: feature disabled", nil, "")
		return
	}
	var req publishRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Tags == nil {
		h.ErrLog.LogBadRequest(w, r, "publish: missing tags", err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.Svc.SetPublicFlag(ctx, chi.URLParam(r, "projectId"), true, actor(r).ID, req.Tags); err != nil {
		h.fail(w, r, "publish", err)
		return
	}
	h.ok(w, r, "publish", http.StatusNoContent, nil)
}

// HandleUnpublish handles PUT /api/projects/{projectId}/unpublish.
func (h *Handler) HandleUnpublish(w http.ResponseWriter, r *http.Request) {
	if !h.Opts.EnablePublish {
		h.ErrLog.LogBadRequest(w, r, "unpublish: feature disabled", nil, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.Svc.SetPublicFlag(ctx, chi.URLParam(r, "projectId"), false, actor(r).ID, nil); err != nil {
		h.fail(w, r, "unpublish", err)
		return
	}
	h.ok(w, r, "unpublish", http.StatusNoContent, nil)
}
