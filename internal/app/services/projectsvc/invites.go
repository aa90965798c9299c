package projectsvc

import (
	"context"
	"fmt"
	"strings"

	aclstore "github.com/dalemusser/projecthub/internal/app/store/acl"
	"github.com/dalemusser/projecthub/internal/app/system/inputval"
	"github.com/dalemusser/projecthub/internal/app/system/mailer"
	"github.com/dalemusser/projecthub/internal/app/system/normalize"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.uber.org/zap"
)

// Invite outcomes reported per address.
const (
	InviteSent     = "sent"
	InviteOptOut   = "opt-out"
	InviteRejected = "rejected"
)

// InviteStatus is the outcome for one invited address.
type InviteStatus struct {
	Email  string `json:"email"`
	Status string `json:"status"`
}

// InviteResult is the outcome of CreateInvites.
type InviteResult struct {
	NewInvitee []InviteStatus  `json:"newInvitee"`
	Project    *models.Project `json:"-"`
}

// CreateInvites invites emails to a project the inviter created or is a
// member of. Provisioned addresses are added to invite_list and removed
// from reject_list; those that accept notifications are mailed. Addresses
// of current members are reported as rejected.
func (s *Service) CreateInvites(ctx context.Context, projectID string, inviter Actor, emails []string) (*InviteResult, error) {
	pid, err := parseID("projectId", projectID)
	if err != nil {
		return nil, err
	}
	uid, err := parseID("userId", inviter.ID)
	if err != nil {
		return nil, err
	}

	emails = normalize.Emails(emails)
	if len(emails) == 0 {
		return nil, invalid("invite_list", MsgBadParams)
	}
	self := normalize.Email(inviter.Email)
	for _, e := range emails {
		if e == self {
			return nil, invalid("invite_list", MsgSelfInvite)
		}
	}
	if bad := inputval.InvalidEmails(emails); len(bad) > 0 {
		return nil, invalid("invite_list", MsgBadParams)
	}

	match := models.ProjectMatch{ID: pid, AccessorID: &uid}
	p, err := s.deps.Projects.FindOne(ctx, match, nil)
	if err != nil {
		return nil, notFound(err)
	}
	members := map[string]bool{}
	for _, u := range p.UserList {
		members[u.Email] = true
	}

	candidates := make([]string, 0, len(emails))
	for _, e := range emails {
		if !members[e] {
			candidates = append(candidates, e)
		}
	}
	granted := map[string]InviteStatus{}
	if len(candidates) > 0 {
		results, err := s.deps.Access.InviteUsers(ctx, candidates)
		if err != nil {
			return nil, fmt.Errorf("provision invites: %w", err)
		}
		for _, r := range results {
			st := InviteStatus{Email: r.Email, Status: InviteRejected}
			switch {
			case r.Provisioned && !r.AcceptNotification:
				st.Status = InviteOptOut
			case r.Provisioned:
				st.Status = InviteSent
			}
			granted[r.Email] = st
		}
	}

	res := &InviteResult{NewInvitee: make([]InviteStatus, 0, len(emails))}
	var provisioned, notify []string
	for _, e := range emails {
		st, ok := granted[e]
		if !ok {
			st = InviteStatus{Email: e, Status: InviteRejected}
		}
		res.NewInvitee = append(res.NewInvitee, st)
		if st.Status == InviteRejected {
			continue
		}
		provisioned = append(provisioned, e)
		if st.Status == InviteSent {
			notify = append(notify, e)
		}
	}

	if len(provisioned) == 0 {
		res.Project = &p
		return res, nil
	}

	mut := models.ProjectMutation{
		PullRejectionEmails: provisioned,
		UpdatedBy:           uid,
		UpdatedAt:           s.now(),
	}
	for _, e := range provisioned {
		mut.AddInvites = append(mut.AddInvites, models.Invite{Email: e})
	}
	updated, err := s.deps.Projects.FindOneAndUpdate(ctx, match, mut)
	if err != nil {
		return nil, notFound(err)
	}
	res.Project = &updated

	s.notifyInvitees(ctx, &updated, inviter, notify)
	s.deps.History.PeopleInvited(ctx, &updated, uid, provisioned)
	return res, nil
}

// notifyInvitees mails the invite. Delivery failures are logged only.
func (s *Service) notifyInvitees(ctx context.Context, p *models.Project, inviter Actor, to []string) {
	if len(to) == 0 || s.deps.Mail == nil {
		return
	}
	inviterName := inviter.Name
	if inviterName == "" {
		inviterName = inviter.Email
	}
	email := mailer.BuildProjectInviteEmail(mailer.ProjectInviteData{
		SiteName:    s.deps.SiteName,
		InviterName: inviterName,
		ProjectName: p.Name,
		ProjectURL:  strings.TrimRight(s.deps.BaseURL, "/") + "/projects/" + p.ID.Hex(),
	})
	email.To = to
	if err := s.deps.Mail.Send(ctx, email); err != nil {
		s.log.Warn("invite mail failed",
			zap.Error(err),
			zap.String("project_id", p.ID.Hex()),
			zap.Int("recipients", len(to)))
	}
}

// AcceptInvite turns the user's pending invite into membership and grants
// the collaborator role.
func (s *Service) AcceptInvite(ctx context.Context, projectID string, user Actor) (*models.Project, error) {
	pid, err := parseID("projectId", projectID)
	if err != nil {
		return nil, err
	}
	uid, err := parseID("userId", user.ID)
	if err != nil {
		return nil, err
	}
	email := normalize.Email(user.Email)
	if email == "" {
		return nil, ErrNotFound
	}

	p, err := s.deps.Projects.FindOneAndUpdate(ctx,
		models.ProjectMatch{ID: pid, InviteEmail: email},
		models.ProjectMutation{
			AddUsers:         []models.ProjectUser{{UserID: uid, Email: email}},
			PullInviteEmails: []string{email},
			UpdatedBy:        uid,
			UpdatedAt:        s.now(),
		})
	if err != nil {
		return nil, notFound(err)
	}
	if err := s.deps.ACL.AddUserRoles(ctx, uid, aclstore.CollaboratorRole(pid)); err != nil {
		return nil, fmt.Errorf("grant collaborator role: %w", err)
	}
	s.deps.History.InviteAccepted(ctx, &p, uid, email)
	return &p, nil
}

// RejectInvite records that the user declined their pending invite.
func (s *Service) RejectInvite(ctx context.Context, projectID string, user Actor) error {
	pid, err := parseID("projectId", projectID)
	if err != nil {
		return err
	}
	uid, err := parseID("userId", user.ID)
	if err != nil {
		return err
	}
	email := normalize.Email(user.Email)
	if email == "" {
		return ErrNotFound
	}

	_, err = s.deps.Projects.FindOneAndUpdate(ctx,
		models.ProjectMatch{ID: pid, InviteEmail: email},
		models.ProjectMutation{
			AddRejections:    []models.Rejection{{UserID: uid, Email: email}},
			PullInviteEmails: []string{email},
			UpdatedBy:        uid,
			UpdatedAt:        s.now(),
		})
	return notFound(err)
}

// RevokeInvite withdraws a pending invite. The requester must be a listed
// member of the project.
func (s *Service) RevokeInvite(ctx context.Context, projectID string, requester Actor, email string) error {
	pid, err := parseID("projectId", projectID)
	if err != nil {
		return err
	}
	uid, err := parseID("userId", requester.ID)
	if err != nil {
		return err
	}
	email = normalize.Email(email)
	reqEmail := normalize.Email(requester.Email)
	if email == "" || reqEmail == "" {
		return ErrNotFound
	}

	_, err = s.deps.Projects.FindOneAndUpdate(ctx,
		models.ProjectMatch{ID: pid, MemberEmail: reqEmail, InviteEmail: email},
		models.ProjectMutation{
			PullInviteEmails: []string{email},
			UpdatedBy:        uid,
			UpdatedAt:        s.now(),
		})
	return notFound(err)
}
