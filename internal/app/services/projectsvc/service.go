// internal/app/services/projectsvc/service.go
package projectsvc

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	aclstore "github.com/dalemusser/projecthub/internal/app/store/acl"
	assetstore "github.com/dalemusser/projecthub/internal/app/store/assets"
	projectstore "github.com/dalemusser/projecthub/internal/app/store/projects"
	"github.com/dalemusser/projecthub/internal/app/system/access"
	"github.com/dalemusser/projecthub/internal/app/system/historylog"
	"github.com/dalemusser/projecthub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/projecthub/internal/app/system/inputval"
	"github.com/dalemusser/projecthub/internal/app/system/mailer"
	"github.com/dalemusser/projecthub/internal/app/system/normalize"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Projects is the project repository.
type Projects interface {
	EnsureIndexes(ctx context.Context) error
	Create(ctx context.Context, p models.Project) (models.Project, error)
	FindOne(ctx context.Context, match models.ProjectMatch, fields []string) (models.Project, error)
	GetAny(ctx context.Context, id primitive.ObjectID) (models.Project, error)
	Find(ctx context.Context, q models.ProjectQuery, fields []string) ([]models.Project, error)
	FindOneAndUpdate(ctx context.Context, match models.ProjectMatch, mut models.ProjectMutation) (models.Project, error)
	SetDeleted(ctx context.Context, id primitive.ObjectID, flag bool) error
	Remove(ctx context.Context, id primitive.ObjectID) error
	PullMember(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

// ACL is role membership, the source of truth for project ownership.
type ACL interface {
	CreateProjectRoles(ctx context.Context, projectID primitive.ObjectID) error
	AddUserRoles(ctx context.Context, userID primitive.ObjectID, roles ...string) error
	RemoveUserRoles(ctx context.Context, userID primitive.ObjectID, roles ...string) error
	RoleUsers(ctx context.Context, role string) ([]primitive.ObjectID, error)
	RemoveProjectRoles(ctx context.Context, projectID primitive.ObjectID) error
	RemoveProjectAccess(ctx context.Context, userID, projectID primitive.ObjectID) error
}

// Users is the read side of the users directory.
type Users interface {
	ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
}

// Assets reads project document content.
type Assets interface {
	Content(ctx context.Context, projectID, assetID primitive.ObjectID) ([]byte, error)
}

// Provisioner decides per email whether an invite may be issued.
type Provisioner interface {
	InviteUsers(ctx context.Context, emails []string) ([]access.Result, error)
}

// Mailer delivers invite mail.
type Mailer interface {
	Send(ctx context.Context, e mailer.Email) error
}

// Deps are the collaborators a Service is built from. History and Mail
// may be nil.
type Deps struct {
	Projects Projects
	ACL      ACL
	Users    Users
	Assets   Assets
	Access   Provisioner
	Mail     Mailer
	History  *historylog.Logger

	SiteName string
	BaseURL  string
}

// Actor identifies the signed-in user an operation runs for.
type Actor struct {
	ID    string
	Email string
	Name  string
}

// GetOptions tunes GetProject.
type GetOptions struct {
	// Fields restricts the stored fields returned.
	Fields []string
	// Profiles joins member names and avatars from the users directory.
	// Members missing from the directory are dropped from the view.
	Profiles bool
}

// ListOptions tunes GetProjects.
type ListOptions struct {
	// ShowArchived: nil lists all, true only archived, false only active.
	ShowArchived *bool
	Fields       []string
	Profiles     bool
}

// CreateInput is the caller-supplied part of a new project.
type CreateInput struct {
	Name        string
	Description *string
	// InviteEmails seeds invite_list without provisioning or mail.
	InviteEmails []string
}

// Service owns project CRUD, invite transitions, ownership transfer,
// publish state, and the deletion cascade.
type Service struct {
	deps Deps
	log  *zap.Logger
	now  func() time.Time

	mu       sync.RWMutex
	handlers []DeletionHandler
}

// New builds a Service.
func New(deps Deps, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		deps: deps,
		log:  logger,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Init prepares the repository.
func (s *Service) Init(ctx context.Context) error {
	if err := s.deps.Projects.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure project indexes: %w", err)
	}
	s.log.Info("project service initialized")
	return nil
}

// Shutdown releases the service. Registered handlers are dropped.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	n := len(s.handlers)
	s.handlers = nil
	s.mu.Unlock()
	s.log.Info("project service stopped", zap.Int("deletion_handlers", n))
	return ctx.Err()
}

func notFound(err error) error {
	if errors.Is(err, projectstore.ErrNotFound) || errors.Is(err, assetstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// cleanName strips markup and validates the project name.
func cleanName(raw string) (string, error) {
	name := htmlsanitize.StripTags(raw)
	if name == "" || utf8.RuneCountInString(name) > models.MaxProjectNameLen {
		return "", invalid("name", MsgBadName)
	}
	return name, nil
}

func cleanDescription(raw string) (string, error) {
	desc := htmlsanitize.StripTags(raw)
	if utf8.RuneCountInString(desc) > models.MaxProjectDescriptionLen {
		return "", invalid("description", MsgBadDescription)
	}
	return desc, nil
}

// GetProject returns a project visible to userID (creator or member).
func (s *Service) GetProject(ctx context.Context, projectID, userID string, opts GetOptions) (*models.ProjectView, error) {
	pid, err := parseID("projectId", projectID)
	if err != nil {
		return nil, err
	}
	uid, err := parseID("userId", userID)
	if err != nil {
		return nil, err
	}

	p, err := s.deps.Projects.FindOne(ctx, models.ProjectMatch{ID: pid, AccessorID: &uid}, opts.Fields)
	if err != nil {
		return nil, notFound(err)
	}
	views, err := s.annotate(ctx, []models.Project{p}, opts.Profiles)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// GetProjects lists projects where the user is creator, member, or invitee.
func (s *Service) GetProjects(ctx context.Context, userID, email string, opts ListOptions) ([]models.ProjectView, error) {
	uid, err := parseID("userId", userID)
	if err != nil {
		return nil, err
	}
	projects, err := s.deps.Projects.Find(ctx, models.ProjectQuery{
		UserID:   uid,
		Email:    normalize.Email(email),
		Archived: opts.ShowArchived,
	}, opts.Fields)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return s.annotate(ctx, projects, opts.Profiles)
}

// CreateProject creates a project owned by creator.
func (s *Service) CreateProject(ctx context.Context, creator Actor, in CreateInput) (*models.ProjectView, error) {
	uid, err := parseID("userId", creator.ID)
	if err != nil {
		return nil, err
	}
	name, err := cleanName(in.Name)
	if err != nil {
		return nil, err
	}
	var desc string
	if in.Description != nil {
		if desc, err = cleanDescription(*in.Description); err != nil {
			return nil, err
		}
	}

	email := normalize.Email(creator.Email)
	invites := []models.Invite{}
	for _, e := range normalize.Emails(in.InviteEmails) {
		if e == email {
			return nil, invalid("invite_list", MsgSelfInvite)
		}
		if !inputval.IsValidEmail(e) {
			return nil, invalid("invite_list", MsgBadParams)
		}
		invites = append(invites, models.Invite{Email: e})
	}

	now := s.now()
	p, err := s.deps.Projects.Create(ctx, models.Project{
		ID:          primitive.NewObjectID(),
		Name:        name,
		Description: desc,
		Stats: models.ProjectStats{
			CreatedBy: uid,
			CreatedAt: now,
			UpdatedBy: uid,
			UpdatedAt: now,
		},
		UserList:   []models.ProjectUser{{UserID: uid, Email: email}},
		InviteList: invites,
		RejectList: []models.Rejection{},
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	// Not transactional: a failure below leaves a project without roles.
	if err := s.deps.ACL.CreateProjectRoles(ctx, p.ID); err != nil {
		return nil, fmt.Errorf("create project roles: %w", err)
	}
	if err := s.deps.ACL.AddUserRoles(ctx, uid, aclstore.OwnerRole(p.ID)); err != nil {
		return nil, fmt.Errorf("grant owner role: %w", err)
	}

	s.log.Info("project created", zap.String("project_id", p.ID.Hex()), zap.String("user_id", uid.Hex()))
	s.deps.History.ProjectCreated(ctx, &p, uid)

	views, err := s.annotate(ctx, []models.Project{p}, false)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// UpdateProject applies m to a project the user created or is a member of.
// Archiving clears pending invites in the same write.
func (s *Service) UpdateProject(ctx context.Context, projectID, userID string, m models.ProjectMutation) (*models.Project, error) {
	pid, err := parseID("projectId", projectID)
	if err != nil {
		return nil, err
	}
	uid, err := parseID("userId", userID)
	if err != nil {
		return nil, err
	}

	if m.Name != nil {
		name, err := cleanName(*m.Name)
		if err != nil {
			return nil, err
		}
		m.Name = &name
	}
	if m.Description != nil {
		desc, err := cleanDescription(*m.Description)
		if err != nil {
			return nil, err
		}
		m.Description = &desc
	}
	if m.Archived != nil && *m.Archived {
		m.ClearInvites = true
	}
	// picture and publish state have their own operations
	m.Thumbnail, m.IsPublic, m.PublishDate, m.AddTags = nil, nil, nil, nil
	m.UpdatedBy = uid
	m.UpdatedAt = s.now()

	p, err := s.deps.Projects.FindOneAndUpdate(ctx, models.ProjectMatch{ID: pid, AccessorID: &uid}, m)
	if err != nil {
		return nil, notFound(err)
	}
	if m.Name != nil || m.Description != nil || m.Archived != nil {
		s.deps.History.ProjectUpdated(ctx, &p, uid)
	}
	return &p, nil
}

// FindProject atomically applies m to the project selected by match.
func (s *Service) FindProject(ctx context.Context, match models.ProjectMatch, m models.ProjectMutation) (*models.Project, error) {
	if match.ID.IsZero() {
		return nil, invalid("projectId", MsgBadParams)
	}
	p, err := s.deps.Projects.FindOneAndUpdate(ctx, match, m)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// UpdatePicture sets the project thumbnail to the base64 content of an
// asset. Nothing is written when the thumbnail is unchanged.
func (s *Service) UpdatePicture(ctx context.Context, projectID, assetID, userID string) (*models.Project, error) {
	pid, err := parseID("projectId", projectID)
	if err != nil {
		return nil, err
	}
	aid, err := parseID("assetId", assetID)
	if err != nil {
		return nil, err
	}
	uid, err := parseID("userId", userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.deps.Projects.FindOne(ctx, models.ProjectMatch{ID: pid}, []string{"_id"}); err != nil {
		return nil, notFound(err)
	}
	content, err := s.deps.Assets.Content(ctx, pid, aid)
	if err != nil {
		return nil, notFound(err)
	}

	thumb := base64.StdEncoding.EncodeToString(content)
	p, err := s.deps.Projects.FindOneAndUpdate(ctx,
		models.ProjectMatch{ID: pid, ThumbnailNot: &thumb},
		models.ProjectMutation{Thumbnail: &thumb, UpdatedBy: uid, UpdatedAt: s.now()},
	)
	if errors.Is(err, projectstore.ErrNotFound) {
		return s.current(ctx, pid)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SetPublicFlag publishes or unpublishes a project. It is a no-op when the
// flag already has the requested value. publishDate is set on the first
// change only; tags accumulate.
func (s *Service) SetPublicFlag(ctx context.Context, projectID string, flag bool, userID string, tags []string) (*models.Project, error) {
	pid, err := parseID("projectId", projectID)
	if err != nil {
		return nil, err
	}
	uid, err := parseID("userId", userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	p, err := s.deps.Projects.FindOneAndUpdate(ctx,
		models.ProjectMatch{ID: pid, IsPublicNot: &flag},
		models.ProjectMutation{
			IsPublic:  &flag,
			AddTags:   normalize.Tags(tags),
			UpdatedBy: uid,
			UpdatedAt: now,
		},
	)
	if errors.Is(err, projectstore.ErrNotFound) {
		return s.current(ctx, pid)
	}
	if err != nil {
		return nil, err
	}

	if p.PublishDate == nil {
		dated, err := s.deps.Projects.FindOneAndUpdate(ctx,
			models.ProjectMatch{ID: pid, PublishDateUnset: true},
			models.ProjectMutation{PublishDate: &now},
		)
		switch {
		case err == nil:
			p = dated
		case errors.Is(err, projectstore.ErrNotFound):
			// dated by a concurrent publish, or deleted since
		default:
			return nil, fmt.Errorf("set publish date: %w", err)
		}
	}

	s.log.Info("project visibility changed",
		zap.String("project_id", pid.Hex()),
		zap.Bool("public", flag))
	return &p, nil
}

// current reloads a project after a conditional update matched nothing.
// A missing or deleted project is ErrNotFound; otherwise the update was a
// no-op.
func (s *Service) current(ctx context.Context, pid primitive.ObjectID) (*models.Project, error) {
	p, err := s.deps.Projects.FindOne(ctx, models.ProjectMatch{ID: pid}, nil)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}
