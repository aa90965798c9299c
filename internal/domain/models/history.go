package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// History resource types.
const (
	HistoryResourceProject = "project"
	HistoryResourcePeople  = "people"
	HistoryResourceAsset   = "asset"
)

// HistoryEntry is one line of a project's activity log.
type HistoryEntry struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ProjectID    primitive.ObjectID `bson:"project_id" json:"project_id"`
	UserID       primitive.ObjectID `bson:"user" json:"user"`
	Description  string             `bson:"description" json:"description"`
	ResourceID   string             `bson:"resource_id,omitempty" json:"resource_id,omitempty"`
	ResourceName string             `bson:"resource_name,omitempty" json:"resource_name,omitempty"`
	ResourceType string             `bson:"resource_type,omitempty" json:"resource_type,omitempty"`
	ResourceURL  string             `bson:"resource_url,omitempty" json:"resource_url,omitempty"`
	Date         time.Time          `bson:"date" json:"date"`
}
