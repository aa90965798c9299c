// internal/app/store/assets/assetstore.go
package assetstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dalemusser/projecthub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BucketName is the GridFS bucket holding project documents.
const BucketName = "documents"

// ErrNotFound is returned when an asset does not exist or belongs to a
// different project.
var ErrNotFound = errors.New("asset not found")

// fileDoc is the shape of a <bucket>.files document.
type fileDoc struct {
	ID         primitive.ObjectID `bson:"_id"`
	Length     int64              `bson:"length"`
	UploadDate time.Time          `bson:"uploadDate"`
	Filename   string             `bson:"filename"`
	Metadata   fileMeta           `bson:"metadata"`
}

type fileMeta struct {
	ProjectID    primitive.ObjectID `bson:"project_id"`
	OriginalName string             `bson:"original_name"`
	ContentType  string             `bson:"content_type"`
	UploadedBy   primitive.ObjectID `bson:"uploaded_by"`
}

func (f fileDoc) asset() models.Asset {
	return models.Asset{
		ID:          f.ID,
		ProjectID:   f.Metadata.ProjectID,
		Filename:    f.Metadata.OriginalName,
		ContentType: f.Metadata.ContentType,
		Length:      f.Length,
		UploadedBy:  f.Metadata.UploadedBy,
		UploadDate:  f.UploadDate,
	}
}

// Store keeps project documents in GridFS.
type Store struct {
	db    *mongo.Database
	files *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{db: db, files: db.Collection(BucketName + ".files")}
}

// bucket opens a GridFS bucket bounded by ctx's deadline. The GridFS API
// takes deadlines instead of contexts, so a bucket is built per call.
func (s *Store) bucket(ctx context.Context) (*gridfs.Bucket, error) {
	b, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(BucketName))
	if err != nil {
		return nil, err
	}
	if dl, ok := ctx.Deadline(); ok {
		if err := b.SetReadDeadline(dl); err != nil {
			return nil, err
		}
		if err := b.SetWriteDeadline(dl); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// EnsureIndexes indexes file metadata by project.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.files.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "metadata.project_id", Value: 1}, {Key: "uploadDate", Value: 1}},
		Options: options.Index().SetName("idx_documents_project"),
	})
	return err
}

// Upload streams r into GridFS under a generated storage name.
func (s *Store) Upload(ctx context.Context, projectID, userID primitive.ObjectID, filename, contentType string, r io.Reader) (*models.Asset, error) {
	b, err := s.bucket(ctx)
	if err != nil {
		return nil, err
	}
	meta := fileMeta{
		ProjectID:    projectID,
		OriginalName: filename,
		ContentType:  contentType,
		UploadedBy:   userID,
	}
	storageName := projectID.Hex() + "/" + uuid.NewString()
	id, err := b.UploadFromStream(storageName, r, options.GridFSUpload().SetMetadata(meta))
	if err != nil {
		return nil, fmt.Errorf("upload %q: %w", filename, err)
	}
	return s.Get(ctx, projectID, id)
}

// List returns a project's documents oldest first.
func (s *Store) List(ctx context.Context, projectID primitive.ObjectID) ([]models.Asset, error) {
	cur, err := s.files.Find(ctx,
		bson.M{"metadata.project_id": projectID},
		options.Find().SetSort(bson.D{{Key: "uploadDate", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []fileDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Asset, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.asset())
	}
	return out, nil
}

// Get returns one document's metadata.
func (s *Store) Get(ctx context.Context, projectID, assetID primitive.ObjectID) (*models.Asset, error) {
	var d fileDoc
	err := s.files.FindOne(ctx, bson.M{"_id": assetID, "metadata.project_id": projectID}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a := d.asset()
	return &a, nil
}

// WriteContent streams a document's bytes to w.
func (s *Store) WriteContent(ctx context.Context, projectID, assetID primitive.ObjectID, w io.Writer) (*models.Asset, error) {
	a, err := s.Get(ctx, projectID, assetID)
	if err != nil {
		return nil, err
	}
	b, err := s.bucket(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := b.DownloadToStream(assetID, w); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// Content returns a document's bytes.
func (s *Store) Content(ctx context.Context, projectID, assetID primitive.ObjectID) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.WriteContent(ctx, projectID, assetID, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Delete removes one document and its chunks.
func (s *Store) Delete(ctx context.Context, projectID, assetID primitive.ObjectID) error {
	if _, err := s.Get(ctx, projectID, assetID); err != nil {
		return err
	}
	b, err := s.bucket(ctx)
	if err != nil {
		return err
	}
	if err := b.Delete(assetID); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// DeleteByProject removes every document of a project and returns how many
// were deleted.
func (s *Store) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int, error) {
	assets, err := s.List(ctx, projectID)
	if err != nil {
		return 0, err
	}
	b, err := s.bucket(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, a := range assets {
		if err := b.Delete(a.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return n, fmt.Errorf("delete asset %s: %w", a.ID.Hex(), err)
		}
		n++
	}
	return n, nil
}

// OnProjectDeleted removes a deleted project's documents.
func (s *Store) OnProjectDeleted(ctx context.Context, projectID primitive.ObjectID) error {
	_, err := s.DeleteByProject(ctx, projectID)
	return err
}
