package projectsvc

import (
	"context"
	"fmt"

	aclstore "github.com/dalemusser/projecthub/internal/app/store/acl"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// roleLookupConcurrency bounds parallel ACL lookups when annotating a list.
const roleLookupConcurrency = 8

// annotate converts projects into views. Each member gets its role from the
// project's owner role; with profiles, members are joined with the users
// directory and those missing from it are dropped.
func (s *Service) annotate(ctx context.Context, projects []models.Project, profiles bool) ([]models.ProjectView, error) {
	owners := make([]map[primitive.ObjectID]bool, len(projects))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(roleLookupConcurrency)
	for i := range projects {
		i := i
		g.Go(func() error {
			ids, err := s.deps.ACL.RoleUsers(gctx, aclstore.OwnerRole(projects[i].ID))
			if err != nil {
				return fmt.Errorf("owners of %s: %w", projects[i].ID.Hex(), err)
			}
			set := make(map[primitive.ObjectID]bool, len(ids))
			for _, id := range ids {
				set[id] = true
			}
			owners[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var directory map[primitive.ObjectID]models.User
	if profiles {
		var err error
		if directory, err = s.profiles(ctx, projects); err != nil {
			return nil, err
		}
	}

	views := make([]models.ProjectView, 0, len(projects))
	for i, p := range projects {
		members := make([]models.Member, 0, len(p.UserList))
		for _, u := range p.UserList {
			m := models.Member{UserID: u.UserID, Email: u.Email, Role: models.RoleContributor}
			if owners[i][u.UserID] {
				m.Role = models.RoleOwner
			}
			if profiles {
				du, ok := directory[u.UserID]
				if !ok {
					continue
				}
				m.Name = du.Name
				m.Avatar = du.AvatarURL
			}
			members = append(members, m)
		}
		views = append(views, models.ProjectView{Project: p, UserList: members})
	}
	return views, nil
}

// profiles loads the directory entries for every member of projects with a
// single lookup.
func (s *Service) profiles(ctx context.Context, projects []models.Project) (map[primitive.ObjectID]models.User, error) {
	seen := map[primitive.ObjectID]bool{}
	ids := []primitive.ObjectID{}
	for _, p := range projects {
		for _, id := range p.MemberIDs() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return map[primitive.ObjectID]models.User{}, nil
	}
	users, err := s.deps.Users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load member profiles: %w", err)
	}
	out := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// ChangeOwner demotes every current owner to collaborator and makes
// newOwnerID the sole owner.
func (s *Service) ChangeOwner(ctx context.Context, projectID, newOwnerID string) error {
	pid, err := parseID("projectId", projectID)
	if err != nil {
		return err
	}
	nid, err := parseID("newOwner", newOwnerID)
	if err != nil {
		return err
	}
	if _, err := s.deps.Projects.FindOne(ctx, models.ProjectMatch{ID: pid}, []string{"_id"}); err != nil {
		return notFound(err)
	}

	ownerRole := aclstore.OwnerRole(pid)
	collabRole := aclstore.CollaboratorRole(pid)

	current, err := s.deps.ACL.RoleUsers(ctx, ownerRole)
	if err != nil {
		return fmt.Errorf("list owners: %w", err)
	}

	var g errgroup.Group
	for _, uid := range current {
		uid := uid
		g.Go(func() error {
			if err := s.deps.ACL.RemoveUserRoles(ctx, uid, ownerRole); err != nil {
				return fmt.Errorf("demote %s: %w", uid.Hex(), err)
			}
			if err := s.deps.ACL.AddUserRoles(ctx, uid, collabRole); err != nil {
				return fmt.Errorf("demote %s: %w", uid.Hex(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := s.deps.ACL.AddUserRoles(ctx, nid, ownerRole); err != nil {
		return fmt.Errorf("promote %s: %w", nid.Hex(), err)
	}
	s.log.Info("project owner changed",
		zap.String("project_id", pid.Hex()),
		zap.String("owner_id", nid.Hex()),
		zap.Int("demoted", len(current)))
	return nil
}
