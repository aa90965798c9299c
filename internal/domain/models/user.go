package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles relevant to project membership. A user demoted to guest loses
// the ability to own or join projects.
const (
	UserRoleStandard = "standard"
	UserRoleGuest    = "guest"
)

// User is a directory entry used for avatars, RSS authors, and
// notification preferences. Users are managed outside this service.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	Role         string             `bson:"role" json:"role"`
	AvatarURL    string             `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	AvatarBin    string             `bson:"avatar_bin,omitempty" json:"-"` // base64 image for feeds
	NotifyOptOut bool               `bson:"notify_opt_out" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// User lifecycle change types delivered by the users directory.
const (
	UserChangeDelete = "delete"
	UserChangeRole   = "roleChange"
)

// UserChange describes a directory-wide change to one user.
type UserChange struct {
	Type string `json:"type"`
	Role string `json:"role,omitempty"` // new site role for roleChange
}

// RevokesProjects reports whether the change removes the user's projects
// and memberships.
func (c UserChange) RevokesProjects() bool {
	switch c.Type {
	case UserChangeDelete:
		return true
	case UserChangeRole:
		return c.Role == UserRoleGuest
	}
	return false
}
