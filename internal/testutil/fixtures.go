package testutil

import (
	"context"
	"testing"
	"time"

	aclstore "github.com/dalemusser/projecthub/internal/app/store/acl"
	projectstore "github.com/dalemusser/projecthub/internal/app/store/projects"
	userstore "github.com/dalemusser/projecthub/internal/app/store/users"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a directory user with the given role.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, role string) models.User {
	f.t.Helper()

	u, err := userstore.New(f.db).Create(ctx, models.User{
		ID:    primitive.NewObjectID(),
		Name:  name,
		Email: email,
		Role:  role,
	})
	if err != nil {
		f.t.Fatalf("CreateUser(%q) failed: %v", email, err)
	}
	return u
}

// CreateProject creates a project owned by owner, with owner as its only
// member and the owner ACL role granted.
func (f *Fixtures) CreateProject(ctx context.Context, name string, owner models.User) models.Project {
	f.t.Helper()

	now := time.Now().UTC()
	p, err := projectstore.New(f.db).Create(ctx, models.Project{
		ID:   primitive.NewObjectID(),
		Name: name,
		Stats: models.ProjectStats{
			CreatedBy: owner.ID,
			CreatedAt: now,
			UpdatedBy: owner.ID,
			UpdatedAt: now,
		},
		UserList: []models.ProjectUser{{UserID: owner.ID, Email: owner.Email}},
	})
	if err != nil {
		f.t.Fatalf("CreateProject(%q) failed: %v", name, err)
	}

	acl := aclstore.New(f.db)
	if err := acl.CreateProjectRoles(ctx, p.ID); err != nil {
		f.t.Fatalf("CreateProjectRoles failed: %v", err)
	}
	if err := acl.AddUserRoles(ctx, owner.ID, aclstore.OwnerRole(p.ID)); err != nil {
		f.t.Fatalf("AddUserRoles failed: %v", err)
	}
	return p
}
