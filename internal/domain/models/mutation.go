package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProjectMatch selects a single non-deleted project for a conditional
// update. Zero-valued fields do not constrain the match.
type ProjectMatch struct {
	ID primitive.ObjectID

	// AccessorID requires the user to be the creator or a listed member.
	AccessorID *primitive.ObjectID

	// MemberEmail requires a user_list entry with this email.
	MemberEmail string

	// InviteEmail requires a pending invite for this email.
	InviteEmail string

	// ThumbnailNot requires the stored thumbnail to differ from this value.
	ThumbnailNot *string

	// IsPublicNot requires the stored public flag to differ from this value.
	IsPublicNot *bool

	// PublishDateUnset requires publishDate to be absent.
	PublishDateUnset bool
}

// ProjectMutation describes an update applied atomically to one project.
// List operations are set-like: adds skip entries already present and
// pulls remove every matching entry.
type ProjectMutation struct {
	Name        *string
	Description *string
	Archived    *bool

	// ClearInvites empties invite_list; it takes precedence over other
	// invite_list operations in the same mutation.
	ClearInvites bool

	AddUsers    []ProjectUser
	PullUserIDs []primitive.ObjectID

	AddInvites       []Invite
	PullInviteEmails []string

	AddRejections       []Rejection
	PullRejectionEmails []string

	Thumbnail   *string
	IsPublic    *bool
	PublishDate *time.Time
	// AddTags adds tags not already present, compared exactly.
	AddTags []string

	UpdatedBy primitive.ObjectID
	UpdatedAt time.Time
}

// Touches reports whether the mutation changes anything beyond stats.
func (m ProjectMutation) Touches() bool {
	return m.Name != nil || m.Description != nil || m.Archived != nil || m.ClearInvites ||
		m.Thumbnail != nil || m.IsPublic != nil || m.PublishDate != nil || len(m.AddTags) > 0 ||
		len(m.AddUsers) > 0 || len(m.PullUserIDs) > 0 ||
		len(m.AddInvites) > 0 || len(m.PullInviteEmails) > 0 ||
		len(m.AddRejections) > 0 || len(m.PullRejectionEmails) > 0
}

// ProjectQuery selects the non-deleted projects a user can see in lists.
type ProjectQuery struct {
	// UserID matches creator, member, or invitee by user id.
	UserID primitive.ObjectID
	// Email matches invitees by email.
	Email string
	// Archived, when set, restricts to archived (true) or active (false).
	Archived *bool
	// PublicOnly restricts to published projects and ignores UserID/Email.
	PublicOnly bool
	// CreatedBy restricts to projects created by this user, including
	// projects already flagged deleted.
	CreatedBy *primitive.ObjectID
}
