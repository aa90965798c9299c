package projectsvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DeletionHandler cleans up data another component keeps for a project.
// Handlers run in registration order after the project is flagged deleted
// and before it is removed.
type DeletionHandler interface {
	OnProjectDeleted(ctx context.Context, projectID primitive.ObjectID) error
}

// DeletionHandlerFunc adapts a function to DeletionHandler.
type DeletionHandlerFunc func(ctx context.Context, projectID primitive.ObjectID) error

func (f DeletionHandlerFunc) OnProjectDeleted(ctx context.Context, projectID primitive.ObjectID) error {
	return f(ctx, projectID)
}

// RegisterProjectDeletionHandlers appends handlers to the deletion cascade.
// Nothing is registered if any handler is nil.
func (s *Service) RegisterProjectDeletionHandlers(handlers ...DeletionHandler) error {
	for _, h := range handlers {
		if h == nil {
			return ErrInvalidHandler
		}
		if f, ok := h.(DeletionHandlerFunc); ok && f == nil {
			return ErrInvalidHandler
		}
	}
	s.mu.Lock()
	s.handlers = append(s.handlers, handlers...)
	s.mu.Unlock()
	return nil
}

// Delete runs the deletion cascade: flag deleted, run handlers in order,
// drop ACL roles, remove the document. A handler failure stops the cascade
// and leaves the project flagged deleted; calling Delete again resumes it.
func (s *Service) Delete(ctx context.Context, projectID string) error {
	pid, err := parseID("projectId", projectID)
	if err != nil {
		return err
	}
	return s.delete(ctx, pid)
}

func (s *Service) delete(ctx context.Context, pid primitive.ObjectID) error {
	p, err := s.deps.Projects.GetAny(ctx, pid)
	if err != nil {
		return notFound(err)
	}
	if err := s.deps.Projects.SetDeleted(ctx, pid, true); err != nil {
		return notFound(err)
	}

	s.mu.RLock()
	handlers := append([]DeletionHandler(nil), s.handlers...)
	s.mu.RUnlock()

	for i, h := range handlers {
		if err := h.OnProjectDeleted(ctx, pid); err != nil {
			s.log.Error("project deletion handler failed",
				zap.Error(err),
				zap.String("project_id", pid.Hex()),
				zap.Int("handler", i))
			return fmt.Errorf("deletion handler %d: %w", i, err)
		}
	}

	seen := map[primitive.ObjectID]bool{}
	for _, uid := range append(p.MemberIDs(), p.Stats.CreatedBy) {
		if uid.IsZero() || seen[uid] {
			continue
		}
		seen[uid] = true
		if err := s.deps.ACL.RemoveProjectAccess(ctx, uid, pid); err != nil {
			return fmt.Errorf("remove access for %s: %w", uid.Hex(), err)
		}
	}
	if err := s.deps.ACL.RemoveProjectRoles(ctx, pid); err != nil {
		return fmt.Errorf("remove project roles: %w", err)
	}
	if err := s.deps.Projects.Remove(ctx, pid); err != nil {
		return fmt.Errorf("remove project: %w", err)
	}

	s.log.Info("project deleted", zap.String("project_id", pid.Hex()), zap.Int("handlers", len(handlers)))
	return nil
}

// OnUserGlobalChange reacts to a directory-wide user change. Deletion or
// demotion to guest deletes every project the user created and removes
// them from every member list. The two sweeps run concurrently and one
// failing does not stop the other.
func (s *Service) OnUserGlobalChange(ctx context.Context, userID string, change models.UserChange) error {
	if !change.RevokesProjects() {
		return nil
	}
	uid, err := parseID("userId", userID)
	if err != nil {
		return err
	}

	var g errgroup.Group
	g.Go(func() error {
		owned, err := s.deps.Projects.Find(ctx, models.ProjectQuery{CreatedBy: &uid}, []string{"_id"})
		if err != nil {
			return fmt.Errorf("list created projects: %w", err)
		}
		var errs []error
		for _, p := range owned {
			if err := s.delete(ctx, p.ID); err != nil && !errors.Is(err, ErrNotFound) {
				errs = append(errs, fmt.Errorf("delete %s: %w", p.ID.Hex(), err))
			}
		}
		return errors.Join(errs...)
	})
	g.Go(func() error {
		n, err := s.deps.Projects.PullMember(ctx, uid)
		if err != nil {
			return err
		}
		s.log.Info("user removed from projects", zap.String("user_id", uid.Hex()), zap.Int64("projects", n))
		return nil
	})
	return g.Wait()
}
