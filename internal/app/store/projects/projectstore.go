// internal/app/store/projects/projectstore.go
package projectstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the MongoDB collection holding project documents.
const Collection = "projects"

var ErrNotFound = errors.New("project not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// EnsureIndexes creates indexes for the projects collection.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "stats.created_by", Value: 1}, {Key: "deleted", Value: 1}},
			Options: options.Index().SetName("idx_project_creator"),
		},
		{
			Keys:    bson.D{{Key: "user_list.user_id", Value: 1}, {Key: "deleted", Value: 1}},
			Options: options.Index().SetName("idx_project_member"),
		},
		{
			Keys:    bson.D{{Key: "invite_list.email", Value: 1}},
			Options: options.Index().SetName("idx_project_invite_email"),
		},
		{
			Keys:    bson.D{{Key: "isPublic", Value: 1}, {Key: "deleted", Value: 1}},
			Options: options.Index().SetName("idx_project_public"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Create inserts a new project. The caller assigns the ID and stats.
func (s *Store) Create(ctx context.Context, p models.Project) (models.Project, error) {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	normalizeLists(&p)
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// FindOne returns the non-deleted project selected by match. fields, when
// non-empty, restricts the returned fields.
func (s *Store) FindOne(ctx context.Context, match models.ProjectMatch, fields []string) (models.Project, error) {
	opts := options.FindOne()
	if len(fields) > 0 {
		opts.SetProjection(Projection(fields))
	}
	var p models.Project
	if err := s.c.FindOne(ctx, MatchFilter(match), opts).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Project{}, ErrNotFound
		}
		return models.Project{}, err
	}
	return p, nil
}

// GetAny loads a project by ID whether or not it is flagged deleted. The
// delete cascade uses it after the flag is set.
func (s *Store) GetAny(ctx context.Context, id primitive.ObjectID) (models.Project, error) {
	var p models.Project
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Project{}, ErrNotFound
		}
		return models.Project{}, err
	}
	return p, nil
}

// Find returns the projects selected by q, oldest first.
func (s *Store) Find(ctx context.Context, q models.ProjectQuery, fields []string) ([]models.Project, error) {
	opts := options.Find().SetSort(bson.D{{Key: "stats.created_at", Value: 1}, {Key: "_id", Value: 1}})
	if len(fields) > 0 {
		opts.SetProjection(Projection(fields))
	}
	cur, err := s.c.Find(ctx, QueryFilter(q), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	projects := []models.Project{}
	if err := cur.All(ctx, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// FindOneAndUpdate applies mut to the non-deleted project selected by match
// in a single atomic operation and returns the updated document.
func (s *Store) FindOneAndUpdate(ctx context.Context, match models.ProjectMatch, mut models.ProjectMutation) (models.Project, error) {
	update := UpdateDoc(mut)
	if len(update) == 0 {
		return s.FindOne(ctx, match, nil)
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Project
	if err := s.c.FindOneAndUpdate(ctx, MatchFilter(match), update, opts).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Project{}, ErrNotFound
		}
		return models.Project{}, err
	}
	return p, nil
}

// SetDeleted sets the soft-delete flag. It succeeds without writing when the
// flag already has the requested value.
func (s *Store) SetDeleted(ctx context.Context, id primitive.ObjectID, flag bool) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"deleted": flag}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Remove physically deletes a project document.
func (s *Store) Remove(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// PullMember removes userID from the member list of every non-deleted
// project and returns the number of projects changed.
func (s *Store) PullMember(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"user_list.user_id": userID, "deleted": false},
		bson.M{
			"$pull": bson.M{"user_list": bson.M{"user_id": userID}},
			"$set":  bson.M{"stats.updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return 0, fmt.Errorf("pull member %s: %w", userID.Hex(), err)
	}
	return res.ModifiedCount, nil
}

// MatchFilter builds the filter for a ProjectMatch. Deleted projects never
// match.
func MatchFilter(m models.ProjectMatch) bson.M {
	filter := bson.M{
		"_id":     m.ID,
		"deleted": false,
	}
	if m.AccessorID != nil {
		filter["$or"] = bson.A{
			bson.M{"stats.created_by": *m.AccessorID},
			bson.M{"user_list.user_id": *m.AccessorID},
		}
	}
	if m.MemberEmail != "" {
		filter["user_list.email"] = m.MemberEmail
	}
	if m.InviteEmail != "" {
		filter["invite_list.email"] = m.InviteEmail
	}
	if m.ThumbnailNot != nil {
		filter["thumbnail"] = bson.M{"$ne": *m.ThumbnailNot}
	}
	if m.IsPublicNot != nil {
		filter["isPublic"] = bson.M{"$ne": *m.IsPublicNot}
	}
	if m.PublishDateUnset {
		// null also matches a missing field
		filter["publishDate"] = nil
	}
	return filter
}

// QueryFilter builds the filter for a ProjectQuery.
func QueryFilter(q models.ProjectQuery) bson.M {
	if q.CreatedBy != nil {
		return bson.M{"stats.created_by": *q.CreatedBy}
	}

	filter := bson.M{"deleted": false}
	if q.PublicOnly {
		filter["isPublic"] = true
		return filter
	}

	or := bson.A{
		bson.M{"stats.created_by": q.UserID},
		bson.M{"user_list.user_id": q.UserID},
		bson.M{"invite_list.user_id": q.UserID},
	}
	if q.Email != "" {
		or = append(or, bson.M{"invite_list.email": q.Email})
	}
	filter["$or"] = or

	if q.Archived != nil {
		filter["archived"] = *q.Archived
	}
	return filter
}

// UpdateDoc translates a ProjectMutation into update operators. MongoDB
// rejects two operators on the same path, so ClearInvites suppresses the
// other invite_list operations.
func UpdateDoc(m models.ProjectMutation) bson.M {
	set := bson.M{}
	addToSet := bson.M{}
	pull := bson.M{}

	if m.Name != nil {
		set["name"] = *m.Name
	}
	if m.Description != nil {
		set["description"] = *m.Description
	}
	if m.Archived != nil {
		set["archived"] = *m.Archived
	}
	if m.Thumbnail != nil {
		set["thumbnail"] = *m.Thumbnail
	}
	if m.IsPublic != nil {
		set["isPublic"] = *m.IsPublic
	}
	if m.PublishDate != nil {
		set["publishDate"] = *m.PublishDate
	}
	if !m.UpdatedBy.IsZero() {
		set["stats.updated_by"] = m.UpdatedBy
	}
	if !m.UpdatedAt.IsZero() {
		set["stats.updated_at"] = m.UpdatedAt
	}

	if len(m.AddTags) > 0 {
		addToSet["tags"] = bson.M{"$each": m.AddTags}
	}
	if len(m.AddUsers) > 0 {
		addToSet["user_list"] = bson.M{"$each": m.AddUsers}
	}
	if len(m.PullUserIDs) > 0 {
		pull["user_list"] = bson.M{"user_id": bson.M{"$in": m.PullUserIDs}}
	}

	if m.ClearInvites {
		set["invite_list"] = []models.Invite{}
	} else {
		if len(m.AddInvites) > 0 {
			addToSet["invite_list"] = bson.M{"$each": m.AddInvites}
		}
		if len(m.PullInviteEmails) > 0 {
			pull["invite_list"] = bson.M{"email": bson.M{"$in": m.PullInviteEmails}}
		}
	}

	if len(m.AddRejections) > 0 {
		addToSet["reject_list"] = bson.M{"$each": m.AddRejections}
	}
	if len(m.PullRejectionEmails) > 0 {
		pull["reject_list"] = bson.M{"email": bson.M{"$in": m.PullRejectionEmails}}
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(addToSet) > 0 {
		update["$addToSet"] = addToSet
	}
	if len(pull) > 0 {
		update["$pull"] = pull
	}
	return update
}

// Projection converts a field list into a projection document.
func Projection(fields []string) bson.M {
	proj := bson.M{}
	for _, f := range fields {
		proj[f] = 1
	}
	return proj
}

// normalizeLists replaces nil lists with empty ones so the stored document
// always holds arrays; $addToSet and $pull fail on null fields.
func normalizeLists(p *models.Project) {
	if p.UserList == nil {
		p.UserList = []models.ProjectUser{}
	}
	if p.InviteList == nil {
		p.InviteList = []models.Invite{}
	}
	if p.RejectList == nil {
		p.RejectList = []models.Rejection{}
	}
}
