package authz_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/projecthub/internal/app/system/auth"
	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUserCtx_NoUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)

	role, email, id, ok := authz.UserCtx(req)
	if ok || role != "visitor" || email != "" || id != primitive.NilObjectID {
		t.Errorf("unexpected visitor ctx: %q %q %v %v", role, email, id, ok)
	}
}

func TestUserCtx_MalformedID(t *testing.T) {
	req := auth.WithTestUser(httptest.NewRequest("GET", "/test", nil), &auth.SessionUser{
		ID:   "not-an-object-id",
		Role: "standard",
	})

	if _, _, _, ok := authz.UserCtx(req); ok {
		t.Error("expected malformed session id to fail closed")
	}
}

func TestUserCtx_ValidUser(t *testing.T) {
	oid := primitive.NewObjectID()
	req := auth.WithTestUser(httptest.NewRequest("GET", "/test", nil), &auth.SessionUser{
		ID:    oid.Hex(),
		Email: "ada@example.com",
		Role:  "Standard",
	})

	role, email, id, ok := authz.UserCtx(req)
	if !ok {
		t.Fatal("expected ok")
	}
	if role != "standard" {
		t.Errorf("expected lowercased role, got %q", role)
	}
	if email != "ada@example.com" || id != oid {
		t.Errorf("unexpected identity %q %v", email, id)
	}
}

func TestIsGuest(t *testing.T) {
	tests := []struct {
		role string
		want bool
	}{
		{"guest", true},
		{"GUEST", true},
		{"standard", false},
	}
	for _, tc := range tests {
		req := auth.WithTestUser(httptest.NewRequest("GET", "/test", nil), &auth.SessionUser{
			ID:   primitive.NewObjectID().Hex(),
			Role: tc.role,
		})
		if got := authz.IsGuest(req); got != tc.want {
			t.Errorf("IsGuest(%q) = %v, want %v", tc.role, got, tc.want)
		}
	}
}
