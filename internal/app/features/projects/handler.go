// internal/app/features/projects/handler.go
package projects

import (
	"context"
	"io"

	"github.com/dalemusser/projecthub/internal/app/features/apierrors"
	"github.com/dalemusser/projecthub/internal/app/services/projectsvc"
	"github.com/dalemusser/projecthub/internal/app/system/historylog"
	"github.com/dalemusser/projecthub/internal/app/system/limits"
	"github.com/dalemusser/projecthub/internal/app/system/ratelimit"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DocumentStore holds project documents.
type DocumentStore interface {
	Upload(ctx context.Context, projectID, userID primitive.ObjectID, filename, contentType string, r io.Reader) (*models.Asset, error)
	List(ctx context.Context, projectID primitive.ObjectID) ([]models.Asset, error)
	Get(ctx context.Context, projectID, assetID primitive.ObjectID) (*models.Asset, error)
	WriteContent(ctx context.Context, projectID, assetID primitive.ObjectID, w io.Writer) (*models.Asset, error)
	Delete(ctx context.Context, projectID, assetID primitive.ObjectID) error
}

// HistoryStore reads and appends project history.
type HistoryStore interface {
	Create(ctx context.Context, e models.HistoryEntry) (models.HistoryEntry, error)
	List(ctx context.Context, projectID primitive.ObjectID, limit int64) ([]models.HistoryEntry, error)
}

// Options are the feature switches and limits of the projects API.
type Options struct {
	EnablePublish  bool
	EnableRSS      bool
	MaxUploadBytes int64

	// InviteLimiter bounds invite requests; nil means unlimited.
	InviteLimiter *ratelimit.InviteLimiter
}

// Handler is the dependency container for the /api/projects feature.
type Handler struct {
	Svc     *projectsvc.Service
	Docs    DocumentStore
	History HistoryStore
	Events  *historylog.Logger
	ErrLog  *apierrors.ErrorLogger
	Opts    Options
	Log     *zap.Logger
}

// NewHandler constructs a projects Handler.
func NewHandler(svc *projectsvc.Service, docs DocumentStore, history HistoryStore, events *historylog.Logger, errLog *apierrors.ErrorLogger, opts Options, logger *zap.Logger) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = limits.DefaultUploadBytes
	}
	return &Handler{
		Svc:     svc,
		Docs:    docs,
		History: history,
		Events:  events,
		ErrLog:  errLog,
		Opts:    opts,
		Log:     logger,
	}
}
