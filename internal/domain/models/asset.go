package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Asset is a document uploaded to a project. The bytes live in GridFS;
// Asset mirrors the file's metadata.
type Asset struct {
	ID          primitive.ObjectID `bson:"_id" json:"_id"`
	ProjectID   primitive.ObjectID `bson:"project_id" json:"project_id"`
	Filename    string             `bson:"filename" json:"filename"`
	ContentType string             `bson:"content_type" json:"content_type"`
	Length      int64              `bson:"length" json:"length"`
	UploadedBy  primitive.ObjectID `bson:"uploaded_by" json:"uploaded_by"`
	UploadDate  time.Time          `bson:"uploadDate" json:"uploadDate"`
}
