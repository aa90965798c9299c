package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role names as reported on a project's member list. Roles are never stored
// on the project document; they are resolved from ACL role membership at
// read time.
const (
	RoleOwner       = "owner"
	RoleContributor = "contributor"
)

// Field limits for project settings.
const (
	MaxProjectNameLen        = 50
	MaxProjectDescriptionLen = 300
)

// Project is a collaborative workspace with membership, pending invites and
// publish state.
//
// A project is soft-deleted (Deleted=true) at the start of the delete
// cascade so readers stop seeing it, then physically removed once every
// deletion handler has run.
type Project struct {
	ID          primitive.ObjectID `bson:"_id" json:"_id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`

	Archived bool `bson:"archived" json:"archived"`
	Deleted  bool `bson:"deleted" json:"deleted"`

	// Publishing
	IsPublic    bool       `bson:"isPublic" json:"isPublic"`
	PublishDate *time.Time `bson:"publishDate,omitempty" json:"publishDate,omitempty"`
	Tags        []string   `bson:"tags,omitempty" json:"tags,omitempty"`

	// Thumbnail is the base64 encoding of the picture asset's bytes.
	Thumbnail string `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`

	Stats ProjectStats `bson:"stats" json:"stats"`

	UserList   []ProjectUser `bson:"user_list" json:"user_list"`
	InviteList []Invite      `bson:"invite_list" json:"invite_list"`
	RejectList []Rejection   `bson:"reject_list" json:"reject_list"`
}

// ProjectStats records who created and last touched a project.
type ProjectStats struct {
	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedBy primitive.ObjectID `bson:"updated_by" json:"updated_by"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// ProjectUser is one accepted member of a project.
type ProjectUser struct {
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`
	Email  string             `bson:"email" json:"email"`
}

// Invite is a pending invitation, keyed by email.
type Invite struct {
	Email string `bson:"email" json:"email"`
}

// Rejection records a user who declined an invitation.
type Rejection struct {
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`
	Email  string             `bson:"email" json:"email"`
}

// HasMember reports whether userID is on the member list.
func (p Project) HasMember(userID primitive.ObjectID) bool {
	for _, u := range p.UserList {
		if u.UserID == userID {
			return true
		}
	}
	return false
}

// HasInvite reports whether email has a pending invite.
func (p Project) HasInvite(email string) bool {
	for _, inv := range p.InviteList {
		if inv.Email == email {
			return true
		}
	}
	return false
}

// MemberIDs returns the user ids on the member list, in list order.
func (p Project) MemberIDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(p.UserList))
	for _, u := range p.UserList {
		ids = append(ids, u.UserID)
	}
	return ids
}

// Member is a user_list entry joined with its ACL role and directory
// profile. It only exists in responses.
type Member struct {
	UserID primitive.ObjectID `json:"user_id"`
	Email  string             `json:"email"`
	Role   string             `json:"role"`
	Name   string             `json:"name,omitempty"`
	Avatar string             `json:"avatar_url,omitempty"`
}

// ProjectView is a project as returned to callers: the stored document
// with its member list replaced by role-annotated members.
type ProjectView struct {
	Project
	UserList []Member `json:"user_list"`
}
