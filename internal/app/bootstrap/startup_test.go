package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dalemusser/projecthub/internal/app/system/auth"
	"github.com/dalemusser/projecthub/internal/app/system/historylog"
	"github.com/dalemusser/projecthub/internal/app/system/workers"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"github.com/dalemusser/projecthub/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:        "mongodb://localhost:27017",
		MongoDatabase:   "projecthub",
		SessionKey:      strings.Repeat("k", 32),
		BaseURL:         "http://localhost:3000",
		SiteName:        "ProjectHub",
		MaxUploadMB:     20,
		AuditLogHistory: historylog.ModeAll,
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"valid", "dev", func(*AppConfig) {}, false},
		{"bad mongo uri", "dev", func(c *AppConfig) { c.MongoURI = "postgres://x" }, true},
		{"no database", "dev", func(c *AppConfig) { c.MongoDatabase = "" }, true},
		{"relative base url", "dev", func(c *AppConfig) { c.BaseURL = "/projects" }, true},
		{"short key in dev", "dev", func(c *AppConfig) { c.SessionKey = "short" }, false},
		{"short key in prod", "prod", func(c *AppConfig) { c.SessionKey = "short" }, true},
		{"zero upload size", "dev", func(c *AppConfig) { c.MaxUploadMB = 0 }, true},
		{"unknown history mode", "dev", func(c *AppConfig) { c.AuditLogHistory = "everywhere" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(&config.CoreConfig{Env: tt.env}, cfg, testLogger())
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func setupRuntime(t *testing.T, db *mongo.Database) DBDeps {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cfg := validConfig()
	cfg.AuditLogHistory = historylog.ModeDB
	rt, err := newRuntime(ctx, cfg, db, testLogger())
	if err != nil {
		t.Fatalf("newRuntime: %v", err)
	}
	return DBDeps{
		ProjectHubMongoClient:   db.Client(),
		ProjectHubMongoDatabase: db,
		Runtime:                 rt,
	}
}

func TestBuildRouter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	deps := setupRuntime(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sm, err := auth.NewSessionManager("", "", "", time.Hour, false, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	router := buildRouter(validConfig(), deps, sm, testLogger())

	fx := testutil.NewFixtures(t, db)
	ann := fx.CreateUser(ctx, "Ann", "ann@example.com", models.UserRoleStandard)
	annUser := testutil.TestUser{ID: ann.ID.Hex(), Name: ann.Name, Email: ann.Email, Role: ann.Role}

	serve := func(req *http.Request) *testutil.ResponseRecorder {
		rec := testutil.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	serve(testutil.NewRequest(http.MethodGet, "/health", nil)).AssertStatus(t, http.StatusOK)
	serve(testutil.NewRequest(http.MethodGet, "/api/projects", nil)).AssertStatus(t, http.StatusUnauthorized)

	rec := serve(testutil.NewRequest(http.MethodGet, "/nowhere", nil))
	rec.AssertStatus(t, http.StatusNotFound)
	if got := strings.TrimSpace(rec.Body.String()); got != "null" {
		t.Errorf("404 body = %q, want null", got)
	}

	body, _ := json.Marshal(map[string]string{"name": "Alpha"})
	req := testutil.WithUser(httptest.NewRequest(http.MethodPost, "/api/projects", bytes.NewReader(body)), annUser)
	rec = serve(req)
	rec.AssertStatus(t, http.StatusCreated)
	var created models.ProjectView
	rec.DecodeJSON(t, &created)

	rec = serve(testutil.NewAuthenticatedRequest(http.MethodGet, "/api/projects/"+created.ID.Hex(), annUser))
	rec.AssertStatus(t, http.StatusOK)

	rec = serve(testutil.NewAuthenticatedRequest(http.MethodDelete, "/api/projects/"+created.ID.Hex()+"/settings", annUser))
	rec.AssertStatus(t, http.StatusNoContent)

	n, err := db.Collection("project_history").CountDocuments(ctx, bson.M{"project_id": created.ID})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("%d history entries left after delete", n)
	}
	n, err = db.Collection("projects").CountDocuments(ctx, bson.M{"_id": created.ID})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Error("project document left after delete")
	}
}

func TestUserEventsRemoveProjects(t *testing.T) {
	db := testutil.SetupTestDB(t)
	deps := setupRuntime(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	rt := deps.Runtime
	if err := rt.startWorker(ctx, rdb, "", testLogger()); err != nil {
		t.Fatalf("startWorker: %v", err)
	}
	defer rt.Worker.Stop()

	fx := testutil.NewFixtures(t, db)
	ann := fx.CreateUser(ctx, "Ann", "ann@example.com", models.UserRoleStandard)
	p := fx.CreateProject(ctx, "Alpha", ann)

	if err := workers.PublishUserChange(ctx, rdb, "", ann.ID.Hex(), models.UserChange{Type: models.UserChangeDelete}); err != nil {
		t.Fatalf("PublishUserChange: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		n, err := db.Collection("projects").CountDocuments(context.Background(), bson.M{"_id": p.ID})
		if err != nil {
			t.Fatal(err)
		}
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("project not removed after user deletion event")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestShutdown_NilDeps(t *testing.T) {
	if err := Shutdown(context.Background(), &config.CoreConfig{}, AppConfig{}, DBDeps{}, testLogger()); err != nil {
		t.Errorf("Shutdown with empty deps: %v", err)
	}
}
