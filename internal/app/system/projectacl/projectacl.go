// Package projectacl guards /{projectId} routes by the caller's ACL roles
// on that project.
package projectacl

import (
	"context"
	"net/http"

	aclstore "github.com/dalemusser/projecthub/internal/app/store/acl"
	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Level is the access a route requires.
type Level int

const (
	// Member admits owners and collaborators.
	Member Level = iota
	// Owner admits the project owner only.
	Owner
)

// RoleLookup resolves a user's roles on one project.
type RoleLookup interface {
	UserProjectRoles(ctx context.Context, userID, projectID primitive.ObjectID) ([]string, error)
}

// ErrorWriter writes the JSON error responses.
type ErrorWriter interface {
	LogForbidden(w http.ResponseWriter, r *http.Request, logMsg string, err error, userMsg string)
	LogServerError(w http.ResponseWriter, r *http.Request, logMsg string, err error, userMsg string)
}

// Guard is ACL middleware for project routes.
type Guard struct {
	acl    RoleLookup
	errLog ErrorWriter
	param  string
}

// New builds a Guard reading the project id from the chi URL param
// "projectId".
func New(acl RoleLookup, errLog ErrorWriter) *Guard {
	return &Guard{acl: acl, errLog: errLog, param: "projectId"}
}

// RequireMember admits owners and collaborators of the project.
func (g *Guard) RequireMember(next http.Handler) http.Handler { return g.require(Member, next) }

// RequireOwner admits only the project owner.
func (g *Guard) RequireOwner(next http.Handler) http.Handler { return g.require(Owner, next) }

func (g *Guard) require(level Level, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, uid, ok := authz.UserCtx(r)
		if !ok {
			g.errLog.LogForbidden(w, r, "project acl: no user", nil, "")
			return
		}
		pid, err := primitive.ObjectIDFromHex(chi.URLParam(r, g.param))
		if err != nil {
			g.errLog.LogForbidden(w, r, "project acl: malformed project id", err, "")
			return
		}

		roles, err := g.acl.UserProjectRoles(r.Context(), uid, pid)
		if err != nil {
			g.errLog.LogServerError(w, r, "project acl: role lookup failed", err, "")
			return
		}
		if !allowed(level, pid, roles) {
			g.errLog.LogForbidden(w, r, "project acl: insufficient role", nil, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func allowed(level Level, pid primitive.ObjectID, roles []string) bool {
	owner := aclstore.OwnerRole(pid)
	collab := aclstore.CollaboratorRole(pid)
	for _, r := range roles {
		switch {
		case r == owner:
			return true
		case r == collab && level == Member:
			return true
		}
	}
	return false
}
