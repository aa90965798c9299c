// internal/app/store/history/historystore.go
package historystore

import (
	"context"
	"time"

	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultListLimit bounds List when the caller passes 0.
const DefaultListLimit = 200

// Store persists project activity entries.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("project_history")}
}

// EnsureIndexes creates the per-project date index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "date", Value: -1}},
		Options: options.Index().SetName("idx_history_project_date"),
	})
	return err
}

// Create inserts an entry, assigning ID and date when unset.
func (s *Store) Create(ctx context.Context, e models.HistoryEntry) (models.HistoryEntry, error) {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.Date.IsZero() {
		e.Date = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.HistoryEntry{}, err
	}
	return e, nil
}

// List returns a project's entries newest first.
func (s *Store) List(ctx context.Context, projectID primitive.ObjectID, limit int64) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)
	cur, err := s.c.Find(ctx, bson.M{"project_id": projectID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.HistoryEntry{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByProject removes all entries of a project.
func (s *Store) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// OnProjectDeleted removes a deleted project's history.
func (s *Store) OnProjectDeleted(ctx context.Context, projectID primitive.ObjectID) error {
	_, err := s.DeleteByProject(ctx, projectID)
	return err
}
