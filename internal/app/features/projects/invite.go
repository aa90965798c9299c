package projects

import (
	"context"
	"net/http"

	"github.com/dalemusser/projecthub/internal/app/services/projectsvc"
	"github.com/dalemusser/projecthub/internal/app/system/timeouts"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

type inviteRequest struct {
	EmailList []models.Invite `json:"email_list"`
}

// HandleCreateInvite handles POST /api/projects/{projectId}/invite with
// {"email_list":[{"email":...}]}.
func (h *Handler) HandleCreateInvite(w http.ResponseWriter, r *http.Request) {
	if il := h.Opts.InviteLimiter; il != nil {
		if ok, reason := il.Check(r, actor(r).ID); !ok {
			h.ErrLog.LogTooManyRequests(w, r, "create invite: rate limited", reason)
			return
		}
	}
	var req inviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "create invite: decode body", err, "")
		return
	}
	emails := make([]string, 0, len(req.EmailList))
	for _, e := range req.EmailList {
		emails = append(emails, e.Email)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Svc.CreateInvites(ctx, chi.URLParam(r, "projectId"), actor(r), emails)
	if err != nil {
		h.fail(w, r, "create invite", err)
		return
	}
	h.ok(w, r, "create invite", http.StatusCreated, res)
}

// HandleAcceptInvite handles PUT|PATCH /api/projects/{projectId}/invite.
func (h *Handler) HandleAcceptInvite(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Svc.AcceptInvite(ctx, chi.URLParam(r, "projectId"), actor(r))
	if err != nil {
		h.fail(w, r, "accept invite", err)
		return
	}
	h.ok(w, r, "accept invite", http.StatusOK, p)
}

// HandleRejectInvite handles DELETE /api/projects/{projectId}/invite.
func (h *Handler) HandleRejectInvite(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Svc.RejectInvite(ctx, chi.URLParam(r, "projectId"), actor(r)); err != nil {
		h.fail(w, r, "reject invite", err)
		return
	}
	h.ok(w, r, "reject invite", http.StatusNoContent, nil)
}

// HandleRevokeInvite handles DELETE /api/projects/{projectId}/revoke/invite?email=.
func (h *Handler) HandleRevokeInvite(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.Svc.RevokeInvite(ctx, chi.URLParam(r, "projectId"), actor(r), r.URL.Query().Get("email"))
	if err != nil {
		h.fail(w, r, "revoke invite", err)
		return
	}
	h.ok(w, r, "revoke invite", http.StatusNoContent, nil)
}

// teamResponse is the membership slice of a project.
type teamResponse struct {
	UserList   []models.Member    `json:"user_list"`
	InviteList []models.Invite    `json:"invite_list"`
	RejectList []models.Rejection `json:"reject_list"`
}

// ServeTeam handles GET /api/projects/{projectId}/team.
func (h *Handler) ServeTeam(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	v, err := h.Svc.GetProject(ctx, chi.URLParam(r, "projectId"), actor(r).ID, projectsvc.GetOptions{
		Fields:   []string{"user_list", "invite_list", "reject_list"},
		Profiles: true,
	})
	if err != nil {
		h.fail(w, r, "get team", err)
		return
	}
	team := teamResponse{UserList: v.UserList, InviteList: v.InviteList, RejectList: v.RejectList}
	if team.InviteList == nil {
		team.InviteList = []models.Invite{}
	}
	if team.RejectList == nil {
		team.RejectList = []models.Rejection{}
	}
	h.ok(w, r, "get team", http.StatusOK, team)
}
