package projectsvc

import (
	"context"
	"errors"
	"strings"
	"testing"

	aclstore "github.com/dalemusser/projecthub/internal/app/store/acl"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRegisterProjectDeletionHandlers(t *testing.T) {
	h := newHarness(t)

	if err := h.svc.RegisterProjectDeletionHandlers(nil); !errors.Is(err, ErrInvalidHandler) {
		t.Errorf("nil handler err = %v", err)
	}
	var nilFunc DeletionHandlerFunc
	if err := h.svc.RegisterProjectDeletionHandlers(h.assets, nilFunc); !errors.Is(err, ErrInvalidHandler) {
		t.Errorf("nil func err = %v", err)
	}
	if len(h.svc.handlers) != 0 {
		t.Errorf("partial registration kept %d handlers", len(h.svc.handlers))
	}

	if err := h.svc.RegisterProjectDeletionHandlers(h.assets); err != nil {
		t.Fatal(err)
	}
	if err := h.svc.RegisterProjectDeletionHandlers(h.history); err != nil {
		t.Fatal(err)
	}
	if len(h.svc.handlers) != 2 {
		t.Errorf("handlers = %d, want registrations to accumulate", len(h.svc.handlers))
	}
}

func TestDelete_Cascade(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ann := h.user("ann", "ann@example.com")
	bob := h.user("bob", "bob@example.com")
	p := h.create(t, ann, "Alpha")
	if _, err := h.svc.CreateInvites(ctx, p.ID.Hex(), ann, []string{bob.Email}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.svc.AcceptInvite(ctx, p.ID.Hex(), bob); err != nil {
		t.Fatal(err)
	}
	h.assets.Put(p.ID, "notes.txt", []byte("hi"))

	var order []string
	record := func(name string) DeletionHandler {
		return DeletionHandlerFunc(func(_ context.Context, id primitive.ObjectID) error {
			stored, ok := h.projects.Get(id)
			if !ok || !stored.Deleted {
				t.Errorf("%s ran before the project was flagged deleted", name)
			}
			order = append(order, name)
			return nil
		})
	}
	if err := h.svc.RegisterProjectDeletionHandlers(record("first"), h.assets, record("last")); err != nil {
		t.Fatal(err)
	}

	if err := h.svc.Delete(ctx, p.ID.Hex()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if strings.Join(order, ",") != "first,last" {
		t.Errorf("handler order = %v", order)
	}
	if _, ok := h.projects.Get(p.ID); ok {
		t.Error("project document not removed")
	}
	if list, _ := h.assets.List(ctx, p.ID); len(list) != 0 {
		t.Errorf("assets left: %+v", list)
	}
	if h.acl.RoleExists(aclstore.OwnerRole(p.ID)) || h.acl.HasRole(oid(t, bob.ID), aclstore.CollaboratorRole(p.ID)) {
		t.Error("ACL roles not removed")
	}

	if err := h.svc.Delete(ctx, p.ID.Hex()); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestDelete_HandlerFailureStopsAndResumes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ann := h.user("ann", "ann@example.com")
	p := h.create(t, ann, "Alpha")

	fail := true
	calls := 0
	flaky := DeletionHandlerFunc(func(context.Context, primitive.ObjectID) error {
		if fail {
			return errors.New("downstream unavailable")
		}
		return nil
	})
	counter := DeletionHandlerFunc(func(context.Context, primitive.ObjectID) error {
		calls++
		return nil
	})
	if err := h.svc.RegisterProjectDeletionHandlers(flaky, counter); err != nil {
		t.Fatal(err)
	}

	if err := h.svc.Delete(ctx, p.ID.Hex()); err == nil {
		t.Fatal("Delete succeeded with failing handler")
	}
	stored, ok := h.projects.Get(p.ID)
	if !ok || !stored.Deleted {
		t.Fatalf("project after failed cascade = %+v, %v; want flagged deleted", stored, ok)
	}
	if calls != 0 {
		t.Error("later handler ran after a failure")
	}
	if !h.acl.RoleExists(aclstore.OwnerRole(p.ID)) {
		t.Error("roles removed despite failed cascade")
	}
	if _, err := h.svc.GetProject(ctx, p.ID.Hex(), ann.ID, GetOptions{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("flagged project still readable: %v", err)
	}

	fail = false
	if err := h.svc.Delete(ctx, p.ID.Hex()); err != nil {
		t.Fatalf("resume Delete: %v", err)
	}
	if calls != 1 {
		t.Errorf("counter calls = %d", calls)
	}
	if _, ok := h.projects.Get(p.ID); ok {
		t.Error("project not removed on resume")
	}
}

func TestDeletedProject_PictureAndPublishNotFound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ann := h.user("ann", "ann@example.com")
	p := h.create(t, ann, "Alpha")
	asset := h.assets.Put(p.ID, "logo.png", []byte("png-bytes"))

	fail := true
	gate := DeletionHandlerFunc(func(context.Context, primitive.ObjectID) error {
		if fail {
			return errors.New("downstream unavailable")
		}
		return nil
	})
	if err := h.svc.RegisterProjectDeletionHandlers(gate); err != nil {
		t.Fatal(err)
	}

	check := func(stage string) {
		t.Helper()
		if _, err := h.svc.GetProject(ctx, p.ID.Hex(), ann.ID, GetOptions{}); !errors.Is(err, ErrNotFound) {
			t.Errorf("%s: GetProject err = %v, want ErrNotFound", stage, err)
		}
		if _, err := h.svc.UpdatePicture(ctx, p.ID.Hex(), asset.ID.Hex(), ann.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("%s: UpdatePicture err = %v, want ErrNotFound", stage, err)
		}
		if _, err := h.svc.SetPublicFlag(ctx, p.ID.Hex(), true, ann.ID, []string{"go"}); !errors.Is(err, ErrNotFound) {
			t.Errorf("%s: SetPublicFlag err = %v, want ErrNotFound", stage, err)
		}
	}

	if err := h.svc.Delete(ctx, p.ID.Hex()); err == nil {
		t.Fatal("Delete succeeded with failing handler")
	}
	check("flagged deleted")
	if stored, _ := h.projects.Get(p.ID); stored.IsPublic || stored.Thumbnail != "" {
		t.Errorf("flagged project was written: %+v", stored)
	}

	fail = false
	if err := h.svc.Delete(ctx, p.ID.Hex()); err != nil {
		t.Fatalf("resume Delete: %v", err)
	}
	check("removed")
}

func TestOnUserGlobalChange(t *testing.T) {
	tests := []struct {
		name   string
		change models.UserChange
		revoke bool
	}{
		{"delete", models.UserChange{Type: models.UserChangeDelete}, true},
		{"demoted to guest", models.UserChange{Type: models.UserChangeRole, Role: models.UserRoleGuest}, true},
		{"role change to standard", models.UserChange{Type: models.UserChangeRole, Role: models.UserRoleStandard}, false},
		{"unknown type", models.UserChange{Type: "rename"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			ann := h.user("ann", "ann@example.com")
			bob := h.user("bob", "bob@example.com")
			owned := h.create(t, bob, "Bob's")
			shared := h.create(t, ann, "Shared")
			if _, err := h.svc.CreateInvites(ctx, shared.ID.Hex(), ann, []string{bob.Email}); err != nil {
				t.Fatal(err)
			}
			if _, err := h.svc.AcceptInvite(ctx, shared.ID.Hex(), bob); err != nil {
				t.Fatal(err)
			}

			if err := h.svc.OnUserGlobalChange(ctx, bob.ID, tt.change); err != nil {
				t.Fatalf("OnUserGlobalChange: %v", err)
			}

			_, ownedLeft := h.projects.Get(owned.ID)
			sharedNow, _ := h.projects.Get(shared.ID)
			if tt.revoke {
				if ownedLeft {
					t.Error("created project not deleted")
				}
				if sharedNow.HasMember(oid(t, bob.ID)) {
					t.Error("user still a member of shared project")
				}
			} else {
				if !ownedLeft || !sharedNow.HasMember(oid(t, bob.ID)) {
					t.Error("non-revoking change altered projects")
				}
			}
		})
	}
}

func TestOnUserGlobalChange_SweepsIndependent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	bob := h.user("bob", "bob@example.com")
	owned := h.create(t, bob, "Bob's")
	h.projects.Errs["PullMember"] = errors.New("write conflict")

	err := h.svc.OnUserGlobalChange(ctx, bob.ID, models.UserChange{Type: models.UserChangeDelete})
	if err == nil {
		t.Fatal("want membership sweep error")
	}
	if _, ok := h.projects.Get(owned.ID); ok {
		t.Error("owned-project sweep did not run to completion")
	}
}

func TestOnUserGlobalChange_BadUserID(t *testing.T) {
	h := newHarness(t)
	err := h.svc.OnUserGlobalChange(context.Background(), "nope", models.UserChange{Type: models.UserChangeDelete})
	if !IsValidation(err) {
		t.Errorf("err = %v, want validation", err)
	}
	if err := h.svc.OnUserGlobalChange(context.Background(), "nope", models.UserChange{Type: "rename"}); err != nil {
		t.Errorf("ignored change err = %v", err)
	}
}
