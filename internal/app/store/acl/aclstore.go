// internal/app/store/acl/aclstore.go
package aclstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Role name prefixes. A project's roles are "<prefix><projectHex>".
const (
	OwnerRolePrefix        = "owner-"
	CollaboratorRolePrefix = "collaborator-"
)

// OwnerRole returns the owner role name for a project.
func OwnerRole(projectID primitive.ObjectID) string {
	return OwnerRolePrefix + projectID.Hex()
}

// CollaboratorRole returns the collaborator role name for a project.
func CollaboratorRole(projectID primitive.ObjectID) string {
	return CollaboratorRolePrefix + projectID.Hex()
}

// ProjectFromRole extracts the project ID from a project role name.
func ProjectFromRole(role string) (primitive.ObjectID, bool) {
	for _, prefix := range []string{OwnerRolePrefix, CollaboratorRolePrefix} {
		if strings.HasPrefix(role, prefix) {
			id, err := primitive.ObjectIDFromHex(strings.TrimPrefix(role, prefix))
			if err != nil {
				return primitive.NilObjectID, false
			}
			return id, true
		}
	}
	return primitive.NilObjectID, false
}

type roleDoc struct {
	Name      string             `bson:"_id"`
	ProjectID primitive.ObjectID `bson:"project_id"`
	CreatedAt time.Time          `bson:"created_at"`
}

type userRoleDoc struct {
	UserID    primitive.ObjectID `bson:"user_id"`
	Role      string             `bson:"role"`
	ProjectID primitive.ObjectID `bson:"project_id,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
}

// Store keeps role definitions and user role membership. Role membership is
// the only source of truth for who owns a project.
type Store struct {
	roles     *mongo.Collection
	userRoles *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		roles:     db.Collection("acl_roles"),
		userRoles: db.Collection("acl_user_roles"),
	}
}

// EnsureIndexes creates indexes for the ACL collections.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.userRoles.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "role", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_acl_user_role"),
		},
		{
			Keys:    bson.D{{Key: "role", Value: 1}},
			Options: options.Index().SetName("idx_acl_role"),
		},
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_acl_project_user"),
		},
	})
	return err
}

// CreateProjectRoles defines the owner and collaborator roles for a project.
func (s *Store) CreateProjectRoles(ctx context.Context, projectID primitive.ObjectID) error {
	now := time.Now().UTC()
	for _, name := range []string{OwnerRole(projectID), CollaboratorRole(projectID)} {
		_, err := s.roles.UpdateOne(ctx,
			bson.M{"_id": name},
			bson.M{"$setOnInsert": roleDoc{Name: name, ProjectID: projectID, CreatedAt: now}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("create role %s: %w", name, err)
		}
	}
	return nil
}

// AddUserRoles grants roles to a user. Granting a role the user already
// holds is a no-op.
func (s *Store) AddUserRoles(ctx context.Context, userID primitive.ObjectID, roles ...string) error {
	now := time.Now().UTC()
	for _, role := range roles {
		doc := userRoleDoc{UserID: userID, Role: role, CreatedAt: now}
		if pid, ok := ProjectFromRole(role); ok {
			doc.ProjectID = pid
		}
		_, err := s.userRoles.UpdateOne(ctx,
			bson.M{"user_id": userID, "role": role},
			bson.M{"$setOnInsert": doc},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("add role %s to %s: %w", role, userID.Hex(), err)
		}
	}
	return nil
}

// RemoveUserRoles revokes roles from a user.
func (s *Store) RemoveUserRoles(ctx context.Context, userID primitive.ObjectID, roles ...string) error {
	if len(roles) == 0 {
		return nil
	}
	_, err := s.userRoles.DeleteMany(ctx, bson.M{"user_id": userID, "role": bson.M{"$in": roles}})
	return err
}

// RoleUsers returns the users holding a role.
func (s *Store) RoleUsers(ctx context.Context, role string) ([]primitive.ObjectID, error) {
	cur, err := s.userRoles.Find(ctx, bson.M{"role": role}, options.Find().SetProjection(bson.M{"user_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []userRoleDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.UserID)
	}
	return ids, nil
}

// UserProjectRoles returns the roles a user holds on one project.
func (s *Store) UserProjectRoles(ctx context.Context, userID, projectID primitive.ObjectID) ([]string, error) {
	cur, err := s.userRoles.Find(ctx, bson.M{"user_id": userID, "project_id": projectID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []userRoleDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	roles := make([]string, 0, len(docs))
	for _, d := range docs {
		roles = append(roles, d.Role)
	}
	return roles, nil
}

// RemoveProjectRoles deletes a project's role definitions and every grant of
// those roles.
func (s *Store) RemoveProjectRoles(ctx context.Context, projectID primitive.ObjectID) error {
	names := []string{OwnerRole(projectID), CollaboratorRole(projectID)}
	if _, err := s.userRoles.DeleteMany(ctx, bson.M{"role": bson.M{"$in": names}}); err != nil {
		return fmt.Errorf("remove role grants for %s: %w", projectID.Hex(), err)
	}
	if _, err := s.roles.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": names}}); err != nil {
		return fmt.Errorf("remove roles for %s: %w", projectID.Hex(), err)
	}
	return nil
}

// RemoveProjectAccess removes every project-scoped entry a user holds on a
// project.
func (s *Store) RemoveProjectAccess(ctx context.Context, userID, projectID primitive.ObjectID) error {
	_, err := s.userRoles.DeleteMany(ctx, bson.M{"user_id": userID, "project_id": projectID})
	return err
}

// UserRoles returns every role a user holds.
func (s *Store) UserRoles(ctx context.Context, userID primitive.ObjectID) ([]string, error) {
	cur, err := s.userRoles.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []userRoleDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	roles := make([]string, 0, len(docs))
	for _, d := range docs {
		roles = append(roles, d.Role)
	}
	return roles, nil
}
