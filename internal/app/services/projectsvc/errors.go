package projectsvc

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound means the project does not exist, is deleted, or is not
	// visible to the caller.
	ErrNotFound = errors.New("project not found")

	// ErrInvalidHandler is returned when registering a nil deletion handler.
	ErrInvalidHandler = errors.New("invalid project deletion handler")
)

// Client-facing validation messages.
const (
	MsgBadParams      = "One of the parameters is not set correctly"
	MsgBadName        = "Name field is not set correctly"
	MsgBadDescription = "Description field is not set correctly"
	MsgBadArchived    = "Archived field is not set correctly"
	MsgSelfInvite     = "Cannot invite yourself to a project that you are already a member of!"
)

// ValidationError reports malformed input. Message is safe to return to
// clients.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func parseID(field, hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, invalid(field, MsgBadParams)
	}
	return id, nil
}
