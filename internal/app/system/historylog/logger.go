// internal/app/system/historylog/logger.go
package historylog

import (
	"context"
	"fmt"
	"strings"

	"github.com/dalemusser/projecthub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destination modes.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off"
)

// EntryWriter persists history entries.
type EntryWriter interface {
	Create(ctx context.Context, e models.HistoryEntry) (models.HistoryEntry, error)
}

// Logger records project activity. It logs to the history store and to zap
// depending on mode.
type Logger struct {
	store  EntryWriter
	zapLog *zap.Logger
	mode   string
}

// New creates a history Logger. An unknown mode behaves like ModeAll.
func New(store EntryWriter, zapLog *zap.Logger, mode string) *Logger {
	mode = strings.ToLower(strings.TrimSpace(mode))
	switch mode {
	case ModeAll, ModeDB, ModeLog, ModeOff:
	default:
		mode = ModeAll
	}
	return &Logger{store: store, zapLog: zapLog, mode: mode}
}

// Log records an entry. A nil Logger is a no-op. Store failures are logged,
// never returned: history is best-effort.
func (l *Logger) Log(ctx context.Context, e models.HistoryEntry) {
	if l == nil || l.mode == ModeOff {
		return
	}
	e.Description = htmlsanitize.StripTags(e.Description)

	if l.mode == ModeAll || l.mode == ModeLog {
		l.zapLog.Info("project history",
			zap.String("project_id", e.ProjectID.Hex()),
			zap.String("user_id", e.UserID.Hex()),
			zap.String("resource_type", e.ResourceType),
			zap.String("description", e.Description),
		)
	}
	if l.mode == ModeAll || l.mode == ModeDB {
		if _, err := l.store.Create(ctx, e); err != nil {
			l.zapLog.Error("failed to store history entry",
				zap.Error(err),
				zap.String("project_id", e.ProjectID.Hex()),
			)
		}
	}
}

func projectEntry(p *models.Project, userID primitive.ObjectID, resourceType, desc string) models.HistoryEntry {
	return models.HistoryEntry{
		ProjectID:    p.ID,
		UserID:       userID,
		Description:  desc,
		ResourceID:   p.ID.Hex(),
		ResourceName: p.Name,
		ResourceType: resourceType,
		ResourceURL:  "/projects/" + p.ID.Hex(),
	}
}

// ProjectCreated records creation of p.
func (l *Logger) ProjectCreated(ctx context.Context, p *models.Project, userID primitive.ObjectID) {
	l.Log(ctx, projectEntry(p, userID, models.HistoryResourceProject,
		fmt.Sprintf("New project '%s' Created!", p.Name)))
}

// ProjectUpdated records a settings change of p.
func (l *Logger) ProjectUpdated(ctx context.Context, p *models.Project, userID primitive.ObjectID) {
	l.Log(ctx, projectEntry(p, userID, models.HistoryResourceProject,
		fmt.Sprintf("Project '%s' settings updated", p.Name)))
}

// PeopleInvited records invitations sent for p.
func (l *Logger) PeopleInvited(ctx context.Context, p *models.Project, userID primitive.ObjectID, emails []string) {
	var desc string
	switch len(emails) {
	case 0:
		return
	case 1:
		desc = fmt.Sprintf("A New User ( %s ) has been invited to contribute to the '%s' Project!", emails[0], p.Name)
	default:
		desc = fmt.Sprintf("New User's ( %s ) have all been invited to contribute to the '%s' Project!", strings.Join(emails, ", "), p.Name)
	}
	l.Log(ctx, projectEntry(p, userID, models.HistoryResourcePeople, desc))
}

// InviteAccepted records a new contributor joining p.
func (l *Logger) InviteAccepted(ctx context.Context, p *models.Project, userID primitive.ObjectID, email string) {
	l.Log(ctx, projectEntry(p, userID, models.HistoryResourcePeople,
		fmt.Sprintf("A New User ( %s ) has been added as a contributor to the '%s' Project!", email, p.Name)))
}

// DocumentUploaded records a new project document.
func (l *Logger) DocumentUploaded(ctx context.Context, a *models.Asset, userID primitive.ObjectID) {
	l.Log(ctx, models.HistoryEntry{
		ProjectID:    a.ProjectID,
		UserID:       userID,
		Description:  fmt.Sprintf("Document '%s' uploaded", a.Filename),
		ResourceID:   a.ID.Hex(),
		ResourceName: a.Filename,
		ResourceType: models.HistoryResourceAsset,
		ResourceURL:  "/projects/" + a.ProjectID.Hex() + "/document/" + a.ID.Hex(),
	})
}

// DocumentDeleted records removal of a project document.
func (l *Logger) DocumentDeleted(ctx context.Context, a *models.Asset, userID primitive.ObjectID) {
	l.Log(ctx, models.HistoryEntry{
		ProjectID:    a.ProjectID,
		UserID:       userID,
		Description:  fmt.Sprintf("Document '%s' deleted", a.Filename),
		ResourceID:   a.ID.Hex(),
		ResourceName: a.Filename,
		ResourceType: models.HistoryResourceAsset,
	})
}
