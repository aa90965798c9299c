package projectstore_test

import (
	"testing"
	"time"

	projectstore "github.com/dalemusser/projecthub/internal/app/store/projects"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"github.com/dalemusser/projecthub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMatchFilter_AccessorAndInvite(t *testing.T) {
	id := primitive.NewObjectID()
	userID := primitive.NewObjectID()

	filter := projectstore.MatchFilter(models.ProjectMatch{
		ID:          id,
		AccessorID:  &userID,
		InviteEmail: "user2@test.com",
	})

	if filter["_id"] != id {
		t.Errorf("_id: got %v, want %v", filter["_id"], id)
	}
	if filter["deleted"] != false {
		t.Errorf("expected deleted=false in filter, got %v", filter["deleted"])
	}
	if filter["invite_list.email"] != "user2@test.com" {
		t.Errorf("invite_list.email: got %v", filter["invite_list.email"])
	}
	or, ok := filter["$or"].(bson.A)
	if !ok || len(or) != 2 {
		t.Fatalf("expected 2-way $or, got %#v", filter["$or"])
	}
}

func TestMatchFilter_IDOnly(t *testing.T) {
	filter := projectstore.MatchFilter(models.ProjectMatch{ID: primitive.NewObjectID()})
	if _, ok := filter["$or"]; ok {
		t.Error("did not expect $or without an accessor")
	}
	if len(filter) != 2 {
		t.Errorf("expected only _id and deleted, got %v", filter)
	}
}

func TestMatchFilter_ConditionalFields(t *testing.T) {
	thumb := "cG5n"
	public := true
	filter := projectstore.MatchFilter(models.ProjectMatch{
		ID:               primitive.NewObjectID(),
		ThumbnailNot:     &thumb,
		IsPublicNot:      &public,
		PublishDateUnset: true,
	})

	if got := filter["thumbnail"]; got.(bson.M)["$ne"] != thumb {
		t.Errorf("thumbnail: got %v", got)
	}
	if got := filter["isPublic"]; got.(bson.M)["$ne"] != true {
		t.Errorf("isPublic: got %v", got)
	}
	if v, ok := filter["publishDate"]; !ok || v != nil {
		t.Errorf("publishDate: got %v, %v", v, ok)
	}
}

func TestQueryFilter_ShowArchived(t *testing.T) {
	userID := primitive.NewObjectID()
	yes, no := true, false

	tests := []struct {
		name     string
		archived *bool
		want     any
		present  bool
	}{
		{"all", nil, nil, false},
		{"only archived", &yes, true, true},
		{"only active", &no, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := projectstore.QueryFilter(models.ProjectQuery{UserID: userID, Email: "a@test.com", Archived: tt.archived})
			got, ok := filter["archived"]
			if ok != tt.present {
				t.Fatalf("archived present: got %v, want %v", ok, tt.present)
			}
			if ok && got != tt.want {
				t.Errorf("archived: got %v, want %v", got, tt.want)
			}
			or := filter["$or"].(bson.A)
			if len(or) != 4 {
				t.Errorf("expected creator/member/invitee-id/invitee-email clauses, got %d", len(or))
			}
		})
	}
}

func TestQueryFilter_CreatedByIncludesDeleted(t *testing.T) {
	userID := primitive.NewObjectID()
	filter := projectstore.QueryFilter(models.ProjectQuery{CreatedBy: &userID})
	if _, ok := filter["deleted"]; ok {
		t.Error("creator sweep must not filter on deleted")
	}
}

func TestUpdateDoc_ClearInvitesWins(t *testing.T) {
	update := projectstore.UpdateDoc(models.ProjectMutation{
		ClearInvites:     true,
		AddInvites:       []models.Invite{{Email: "x@test.com"}},
		PullInviteEmails: []string{"y@test.com"},
	})

	set := update["$set"].(bson.M)
	if list, ok := set["invite_list"].([]models.Invite); !ok || len(list) != 0 {
		t.Errorf("expected invite_list reset to empty, got %#v", set["invite_list"])
	}
	if _, ok := update["$addToSet"]; ok {
		t.Error("did not expect $addToSet alongside a cleared invite_list")
	}
	if _, ok := update["$pull"]; ok {
		t.Error("did not expect $pull alongside a cleared invite_list")
	}
}

func TestUpdateDoc_AcceptInvite(t *testing.T) {
	userID := primitive.NewObjectID()
	now := time.Now().UTC()
	update := projectstore.UpdateDoc(models.ProjectMutation{
		AddUsers:         []models.ProjectUser{{UserID: userID, Email: "user2@test.com"}},
		PullInviteEmails: []string{"user2@test.com"},
		UpdatedBy:        userID,
		UpdatedAt:        now,
	})

	if _, ok := update["$addToSet"].(bson.M)["user_list"]; !ok {
		t.Error("expected $addToSet on user_list")
	}
	if _, ok := update["$pull"].(bson.M)["invite_list"]; !ok {
		t.Error("expected $pull on invite_list")
	}
	set := update["$set"].(bson.M)
	if set["stats.updated_by"] != userID || set["stats.updated_at"] != now {
		t.Errorf("expected stats to be set, got %v", set)
	}
}

func TestUpdateDoc_PublishFields(t *testing.T) {
	public := true
	thumb := "cG5n"
	update := projectstore.UpdateDoc(models.ProjectMutation{
		Thumbnail: &thumb,
		IsPublic:  &public,
		AddTags:   []string{"Go", "go"},
	})

	set := update["$set"].(bson.M)
	if set["thumbnail"] != thumb || set["isPublic"] != true {
		t.Errorf("expected thumbnail and isPublic set, got %v", set)
	}
	if _, ok := set["publishDate"]; ok {
		t.Error("did not expect publishDate without a value")
	}
	tags, ok := update["$addToSet"].(bson.M)["tags"].(bson.M)
	if !ok || len(tags["$each"].([]string)) != 2 {
		t.Errorf("expected $addToSet $each on tags, got %v", update["$addToSet"])
	}
}

func TestUpdateDoc_Empty(t *testing.T) {
	if update := projectstore.UpdateDoc(models.ProjectMutation{}); len(update) != 0 {
		t.Errorf("expected empty update, got %v", update)
	}
}

func newProject(userID primitive.ObjectID, email, name string) models.Project {
	now := time.Now().UTC()
	return models.Project{
		ID:   primitive.NewObjectID(),
		Name: name,
		Stats: models.ProjectStats{
			CreatedBy: userID, CreatedAt: now, UpdatedBy: userID, UpdatedAt: now,
		},
		UserList: []models.ProjectUser{{UserID: userID, Email: email}},
	}
}

func TestStore_CreateAndFindOne(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}

	owner := primitive.NewObjectID()
	created, err := store.Create(ctx, newProject(owner, "user1@test.com", "Test Basic"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.InviteList == nil || created.RejectList == nil {
		t.Error("expected lists to be initialized")
	}

	found, err := store.FindOne(ctx, models.ProjectMatch{ID: created.ID, AccessorID: &owner}, nil)
	if err != nil {
		t.Fatalf("FindOne failed: %v", err)
	}
	if found.Name != "Test Basic" {
		t.Errorf("Name: got %q, want %q", found.Name, "Test Basic")
	}

	stranger := primitive.NewObjectID()
	if _, err := store.FindOne(ctx, models.ProjectMatch{ID: created.ID, AccessorID: &stranger}, nil); err != projectstore.ErrNotFound {
		t.Errorf("expected ErrNotFound for non-member, got %v", err)
	}
}

func TestStore_FindOneAndUpdate_InviteTransitions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	p, err := store.Create(ctx, newProject(owner, "user1@test.com", "Invites"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := store.FindOneAndUpdate(ctx, models.ProjectMatch{ID: p.ID, AccessorID: &owner}, models.ProjectMutation{
		AddInvites: []models.Invite{{Email: "user2@test.com"}},
	})
	if err != nil {
		t.Fatalf("invite failed: %v", err)
	}
	if !updated.HasInvite("user2@test.com") {
		t.Fatalf("expected pending invite, got %v", updated.InviteList)
	}

	invitee := primitive.NewObjectID()
	accept := models.ProjectMutation{
		AddUsers:         []models.ProjectUser{{UserID: invitee, Email: "user2@test.com"}},
		PullInviteEmails: []string{"user2@test.com"},
	}
	match := models.ProjectMatch{ID: p.ID, InviteEmail: "user2@test.com"}

	accepted, err := store.FindOneAndUpdate(ctx, match, accept)
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if !accepted.HasMember(invitee) || accepted.HasInvite("user2@test.com") {
		t.Errorf("expected invitee moved to user_list, got users=%v invites=%v", accepted.UserList, accepted.InviteList)
	}

	// Second accept no longer matches.
	if _, err := store.FindOneAndUpdate(ctx, match, accept); err != projectstore.ErrNotFound {
		t.Errorf("expected ErrNotFound on repeated accept, got %v", err)
	}
}

func TestStore_FindOneAndUpdate_ConditionalPublish(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	p := newProject(owner, "user1@test.com", "Publish")
	p.InviteList = []models.Invite{{Email: "user2@test.com"}}
	if _, err := store.Create(ctx, p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	public := true
	published, err := store.FindOneAndUpdate(ctx, models.ProjectMatch{ID: p.ID, IsPublicNot: &public}, models.ProjectMutation{
		IsPublic: &public,
		AddTags:  []string{"Go", "web"},
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if !published.IsPublic || len(published.Tags) != 2 || !published.HasInvite("user2@test.com") {
		t.Errorf("unexpected published project: %+v", published)
	}

	if _, err := store.FindOneAndUpdate(ctx, models.ProjectMatch{ID: p.ID, IsPublicNot: &public}, models.ProjectMutation{
		IsPublic: &public,
	}); err != projectstore.ErrNotFound {
		t.Errorf("expected ErrNotFound on repeated publish, got %v", err)
	}

	when := time.Now().UTC().Truncate(time.Millisecond)
	dated, err := store.FindOneAndUpdate(ctx, models.ProjectMatch{ID: p.ID, PublishDateUnset: true}, models.ProjectMutation{PublishDate: &when})
	if err != nil {
		t.Fatalf("set publish date failed: %v", err)
	}
	if dated.PublishDate == nil || !dated.PublishDate.Equal(when) {
		t.Errorf("PublishDate: got %v, want %v", dated.PublishDate, when)
	}
	later := when.Add(time.Hour)
	if _, err := store.FindOneAndUpdate(ctx, models.ProjectMatch{ID: p.ID, PublishDateUnset: true}, models.ProjectMutation{PublishDate: &later}); err != projectstore.ErrNotFound {
		t.Errorf("expected publish date to be set once, got %v", err)
	}

	thumb := "cG5n"
	if _, err := store.FindOneAndUpdate(ctx, models.ProjectMatch{ID: p.ID, ThumbnailNot: &thumb}, models.ProjectMutation{Thumbnail: &thumb}); err != nil {
		t.Fatalf("set thumbnail failed: %v", err)
	}
	if _, err := store.FindOneAndUpdate(ctx, models.ProjectMatch{ID: p.ID, ThumbnailNot: &thumb}, models.ProjectMutation{Thumbnail: &thumb}); err != projectstore.ErrNotFound {
		t.Errorf("expected unchanged thumbnail not to match, got %v", err)
	}
}

func TestStore_SoftDeleteHidesProject(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	p, err := store.Create(ctx, newProject(owner, "user1@test.com", "Doomed"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.SetDeleted(ctx, p.ID, true); err != nil {
		t.Fatalf("SetDeleted failed: %v", err)
	}

	if _, err := store.FindOne(ctx, models.ProjectMatch{ID: p.ID}, nil); err != projectstore.ErrNotFound {
		t.Errorf("expected deleted project hidden, got %v", err)
	}
	list, err := store.Find(ctx, models.ProjectQuery{UserID: owner}, nil)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected no visible projects, got %d", len(list))
	}

	flagged, err := store.GetAny(ctx, p.ID)
	if err != nil || !flagged.Deleted {
		t.Fatalf("expected GetAny to return flagged project, got %v, %v", flagged, err)
	}

	if err := store.Remove(ctx, p.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := store.GetAny(ctx, p.ID); err != projectstore.ErrNotFound {
		t.Errorf("expected ErrNotFound after Remove, got %v", err)
	}
}

func TestStore_PullMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	member := primitive.NewObjectID()

	p := newProject(owner, "user1@test.com", "Shared")
	p.UserList = append(p.UserList, models.ProjectUser{UserID: member, Email: "user2@test.com"})
	if _, err := store.Create(ctx, p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	n, err := store.PullMember(ctx, member)
	if err != nil {
		t.Fatalf("PullMember failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 project changed, got %d", n)
	}

	got, err := store.GetAny(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetAny failed: %v", err)
	}
	if got.HasMember(member) {
		t.Error("expected member removed")
	}
	if !got.HasMember(owner) {
		t.Error("expected owner kept")
	}
}
