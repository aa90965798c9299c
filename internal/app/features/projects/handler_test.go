package projects_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/projecthub/internal/app/features/apierrors"
	"github.com/dalemusser/projecthub/internal/app/features/projects"
	"github.com/dalemusser/projecthub/internal/app/services/projectsvc"
	"github.com/dalemusser/projecthub/internal/app/system/auth"
	"github.com/dalemusser/projecthub/internal/app/system/historylog"
	"github.com/dalemusser/projecthub/internal/app/system/projectacl"
	"github.com/dalemusser/projecthub/internal/app/system/ratelimit"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"github.com/dalemusser/projecthub/internal/testutil"
	"go.uber.org/zap"
)

type env struct {
	router   http.Handler
	projects *testutil.MemProjects
	users    *testutil.MemUsers
	assets   *testutil.MemAssets
	history  *testutil.MemHistory
}

func newEnv(t *testing.T, opts projects.Options) *env {
	t.Helper()
	e := &env{
		projects: testutil.NewMemProjects(),
		users:    testutil.NewMemUsers(),
		assets:   testutil.NewMemAssets(),
		history:  testutil.NewMemHistory(),
	}
	acl := testutil.NewMemACL()
	events := historylog.New(e.history, zap.NewNop(), historylog.ModeDB)
	svc := projectsvc.New(projectsvc.Deps{
		Projects: e.projects,
		ACL:      acl,
		Users:    e.users,
		Assets:   e.assets,
		Access:   &testutil.FakeProvisioner{},
		Mail:     &testutil.FakeMailer{},
		History:  events,
		SiteName: "ProjectHub",
		BaseURL:  "https://hub.test",
	}, zap.NewNop())

	sm, err := auth.NewSessionManager("", "", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	errLog := apierrors.NewErrorLogger(zap.NewNop())
	h := projects.NewHandler(svc, e.assets, e.history, events, errLog, opts, zap.NewNop())
	e.router = projects.Routes(h, sm, projectacl.New(acl, errLog))
	return e
}

func (e *env) user(name, email string) testutil.TestUser {
	u := e.users.Add(models.User{Name: name, Email: email})
	return testutil.TestUser{ID: u.ID.Hex(), Name: u.Name, Email: u.Email, Role: u.Role}
}

func (e *env) do(req *http.Request, u *testutil.TestUser) *testutil.ResponseRecorder {
	if u != nil {
		req = testutil.WithUser(req, *u)
	}
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *env) create(t *testing.T, owner testutil.TestUser, name string) models.ProjectView {
	t.Helper()
	rec := e.do(testutil.NewJSONRequest(http.MethodPost, "/", map[string]any{"name": name}), &owner)
	rec.AssertStatus(t, http.StatusCreated)
	var v models.ProjectView
	rec.DecodeJSON(t, &v)
	return v
}

func TestCreateAndShow(t *testing.T) {
	e := newEnv(t, projects.Options{})
	ann := e.user("Ann", "ann@example.com")

	v := e.create(t, ann, "<b>Alpha</b>")
	if v.Name != "Alpha" {
		t.Errorf("Name = %q", v.Name)
	}
	if len(v.UserList) != 1 || v.UserList[0].Role != models.RoleOwner || v.UserList[0].Name != "Ann" {
		t.Errorf("UserList = %+v", v.UserList)
	}

	rec := e.do(testutil.NewRequest(http.MethodGet, "/"+v.ID.Hex(), nil), &ann)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"name":"Alpha"`)

	rec = e.do(testutil.NewRequest(http.MethodGet, "/", nil), &ann)
	rec.AssertStatus(t, http.StatusOK)
	var list []models.ProjectView
	rec.DecodeJSON(t, &list)
	if len(list) != 1 {
		t.Errorf("list len = %d, want 1", len(list))
	}
}

func TestCreate_Errors(t *testing.T) {
	e := newEnv(t, projects.Options{})
	ann := e.user("Ann", "ann@example.com")

	tests := []struct {
		name    string
		body    string
		want    int
		wantMsg string
	}{
		{"empty name", `{"name":"  "}`, http.StatusBadRequest, projectsvc.MsgBadName},
		{"self invite", `{"name":"x","invite_list":[{"email":"ANN@example.com"}]}`, http.StatusBadRequest, projectsvc.MsgSelfInvite},
		{"malformed json", `{"name":`, http.StatusBadRequest, apierrors.GenericMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			rec := e.do(req, &ann)
			rec.AssertStatus(t, tt.want)
			var body apierrors.Body
			rec.DecodeJSON(t, &body)
			if body.Error != tt.wantMsg {
				t.Errorf("error = %q, want %q", body.Error, tt.wantMsg)
			}
		})
	}
}

func TestAccessLevels(t *testing.T) {
	e := newEnv(t, projects.Options{})
	ann := e.user("Ann", "ann@example.com")
	sam := e.user("Sam", "sam@example.com")
	p := e.create(t, ann, "Alpha")
	id := p.ID.Hex()

	tests := []struct {
		name   string
		req    *http.Request
		user   *testutil.TestUser
		status int
	}{
		{"anonymous list", testutil.NewRequest(http.MethodGet, "/", nil), nil, http.StatusUnauthorized},
		{"stranger show", testutil.NewRequest(http.MethodGet, "/"+id, nil), &sam, http.StatusForbidden},
		{"stranger team", testutil.NewRequest(http.MethodGet, "/"+id+"/team", nil), &sam, http.StatusForbidden},
		{"stranger settings", testutil.NewJSONRequest(http.MethodPut, "/"+id+"/settings", map[string]any{"name": "x"}), &sam, http.StatusForbidden},
		{"malformed id", testutil.NewRequest(http.MethodGet, "/not-an-id", nil), &ann, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e.do(tt.req, tt.user).AssertStatus(t, tt.status)
		})
	}
}

func TestUpdateSettings_Archived(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		want   bool
	}{
		{"bool true", `{"archived":true}`, http.StatusOK, true},
		{"string true", `{"archived":"true"}`, http.StatusOK, true},
		{"string false", `{"archived":"false"}`, http.StatusOK, false},
		{"absent", `{"name":"Renamed"}`, http.StatusOK, false},
		{"garbage", `{"archived":"yes"}`, http.StatusBadRequest, false},
		{"number", `{"archived":1}`, http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, projects.Options{})
			ann := e.user("Ann", "ann@example.com")
			p := e.create(t, ann, "Alpha")

			req := testutil.NewRequest(http.MethodPatch, "/"+p.ID.Hex()+"/settings", strings.NewReader(tt.body))
			rec := e.do(req, &ann)
			rec.AssertStatus(t, tt.status)
			if tt.status != http.StatusOK {
				rec.AssertContains(t, projectsvc.MsgBadArchived)
				return
			}
			stored, _ := e.projects.Get(p.ID)
			if stored.Archived != tt.want {
				t.Errorf("Archived = %v, want %v", stored.Archived, tt.want)
			}
		})
	}
}

func TestInviteFlow(t *testing.T) {
	e := newEnv(t, projects.Options{})
	ann := e.user("Ann", "ann@example.com")
	bob := e.user("Bob", "bob@example.com")
	cat := e.user("Cat", "cat@example.com")
	p := e.create(t, ann, "Alpha")
	base := "/" + p.ID.Hex()

	rec := e.do(testutil.NewJSONRequest(http.MethodPost, base+"/invite", map[string]any{
		"email_list": []map[string]string{{"email": "Bob@Example.com"}, {"email": "cat@example.com"}},
	}), &ann)
	rec.AssertStatus(t, http.StatusCreated)
	var res projectsvc.InviteResult
	rec.DecodeJSON(t, &res)
	if len(res.NewInvitee) != 2 || res.NewInvitee[0].Status != projectsvc.InviteSent {
		t.Fatalf("NewInvitee = %+v", res.NewInvitee)
	}

	// Invitees cannot see the project before accepting.
	e.do(testutil.NewRequest(http.MethodGet, base, nil), &bob).AssertStatus(t, http.StatusForbidden)

	e.do(testutil.NewRequest(http.MethodPut, base+"/invite", nil), &bob).AssertStatus(t, http.StatusOK)
	e.do(testutil.NewRequest(http.MethodDelete, base+"/invite", nil), &cat).AssertStatus(t, http.StatusNoContent)
	e.do(testutil.NewRequest(http.MethodPut, base+"/invite", nil), &cat).AssertStatus(t, http.StatusNotFound)

	rec = e.do(testutil.NewRequest(http.MethodGet, base+"/team", nil), &bob)
	rec.AssertStatus(t, http.StatusOK)
	var team struct {
		UserList   []models.Member    `json:"user_list"`
		InviteList []models.Invite    `json:"invite_list"`
		RejectList []models.Rejection `json:"reject_list"`
	}
	rec.DecodeJSON(t, &team)
	if len(team.UserList) != 2 {
		t.Errorf("user_list = %+v, want owner and bob", team.UserList)
	}
	if len(team.InviteList) != 0 {
		t.Errorf("invite_list = %+v, want empty", team.InviteList)
	}
	if len(team.RejectList) != 1 || team.RejectList[0].Email != "cat@example.com" {
		t.Errorf("reject_list = %+v", team.RejectList)
	}

	// Collaborators cannot reach owner routes.
	e.do(testutil.NewJSONRequest(http.MethodPut, base+"/settings", map[string]any{"name": "x"}), &bob).
		AssertStatus(t, http.StatusForbidden)
}

func TestRevokeInvite(t *testing.T) {
	e := newEnv(t, projects.Options{})
	ann := e.user("Ann", "ann@example.com")
	p := e.create(t, ann, "Alpha")
	base := "/" + p.ID.Hex()

	e.do(testutil.NewJSONRequest(http.MethodPost, base+"/invite", map[string]any{
		"email_list": []map[string]string{{"email": "bob@example.com"}},
	}), &ann).AssertStatus(t, http.StatusCreated)

	e.do(testutil.NewRequest(http.MethodDelete, base+"/revoke/invite?email=bob@example.com", nil), &ann).
		AssertStatus(t, http.StatusNoContent)
	e.do(testutil.NewRequest(http.MethodDelete, base+"/revoke/invite?email=bob@example.com", nil), &ann).
		AssertStatus(t, http.StatusNotFound)

	stored, _ := e.projects.Get(p.ID)
	if len(stored.InviteList) != 0 {
		t.Errorf("InviteList = %+v", stored.InviteList)
	}
}

func TestNotFoundBodyIsNull(t *testing.T) {
	e := newEnv(t, projects.Options{})
	ann := e.user("Ann", "ann@example.com")
	p := e.create(t, ann, "Alpha")

	rec := e.do(testutil.NewRequest(http.MethodPut, "/"+p.ID.Hex()+"/invite", nil), &ann)
	rec.AssertStatus(t, http.StatusNotFound)
	if got := strings.TrimSpace(rec.Body.String()); got != "null" {
		t.Errorf("body = %q, want null", got)
	}
}

func TestPublishAndRSS(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		e := newEnv(t, projects.Options{})
		ann := e.user("Ann", "ann@example.com")
		p := e.create(t, ann, "Alpha")

		e.do(testutil.NewJSONRequest(http.MethodPut, "/"+p.ID.Hex()+"/publish", map[string]any{"tags": []string{"go"}}), &ann).
			AssertStatus(t, http.StatusBadRequest)
		e.do(testutil.NewRequest(http.MethodGet, "/"+p.ID.Hex()+"/rss.xml", nil), nil).
			AssertStatus(t, http.StatusBadRequest)
	})

	t.Run("enabled", func(t *testing.T) {
		e := newEnv(t, projects.Options{EnablePublish: true, EnableRSS: true})
		ann := e.user("Ann", "ann@example.com")
		p := e.create(t, ann, "Alpha")
		base := "/" + p.ID.Hex()

		e.do(testutil.NewJSONRequest(http.MethodPut, base+"/publish", map[string]any{}), &ann).
			AssertStatus(t, http.StatusBadRequest)
		e.do(testutil.NewJSONRequest(http.MethodPut, base+"/publish", map[string]any{"tags": []string{"Go", "web"}}), &ann).
			AssertStatus(t, http.StatusNoContent)

		rec := e.do(testutil.NewRequest(http.MethodGet, base+"/rss.xml", nil), nil)
		rec.AssertStatus(t, http.StatusOK)
		if ct := rec.Header().Get("Content-Type"); ct != "application/xml" {
			t.Errorf("Content-Type = %q", ct)
		}
		rec.AssertContains(t, "Alpha")
		rec.AssertContains(t, "Published Projects")

		e.do(testutil.NewRequest(http.MethodPut, base+"/unpublish", nil), &ann).AssertStatus(t, http.StatusNoContent)
		stored, _ := e.projects.Get(p.ID)
		if stored.IsPublic {
			t.Error("project still public after unpublish")
		}
	})
}

func multipartUpload(t *testing.T, target string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile("file", name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := testutil.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestDocuments(t *testing.T) {
	e := newEnv(t, projects.Options{})
	ann := e.user("Ann", "ann@example.com")
	p := e.create(t, ann, "Alpha")
	base := "/" + p.ID.Hex() + "/document"

	rec := e.do(multipartUpload(t, base, map[string]string{"notes.txt": "hello notes"}), &ann)
	rec.AssertStatus(t, http.StatusCreated)
	var uploaded []models.Asset
	rec.DecodeJSON(t, &uploaded)
	if len(uploaded) != 1 || uploaded[0].Filename != "notes.txt" || uploaded[0].Length != int64(len("hello notes")) {
		t.Fatalf("uploaded = %+v", uploaded)
	}
	aid := uploaded[0].ID.Hex()

	rec = e.do(testutil.NewRequest(http.MethodGet, base, nil), &ann)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "notes.txt")

	rec = e.do(testutil.NewRequest(http.MethodGet, base+"/"+aid+"/render", nil), &ann)
	rec.AssertStatus(t, http.StatusOK)
	if rec.Body.String() != "hello notes" {
		t.Errorf("content = %q", rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "inline") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	e.do(testutil.NewRequest(http.MethodGet, base+"/"+aid, nil), &ann).AssertStatus(t, http.StatusOK)
	e.do(testutil.NewRequest(http.MethodGet, base+"/zzz", nil), &ann).AssertStatus(t, http.StatusBadRequest)
	e.do(testutil.NewRequest(http.MethodDelete, base+"/"+aid, nil), &ann).AssertStatus(t, http.StatusNoContent)
	e.do(testutil.NewRequest(http.MethodGet, base+"/"+aid, nil), &ann).AssertStatus(t, http.StatusNotFound)

	var descs []string
	for _, h := range e.history.Entries() {
		descs = append(descs, h.Description)
	}
	if len(descs) < 3 {
		t.Errorf("history = %q, want create, upload and delete entries", descs)
	}
}

func TestUpload_TooLarge(t *testing.T) {
	e := newEnv(t, projects.Options{MaxUploadBytes: 64})
	ann := e.user("Ann", "ann@example.com")
	p := e.create(t, ann, "Alpha")

	req := multipartUpload(t, "/"+p.ID.Hex()+"/document/upload", map[string]string{"big.bin": strings.Repeat("x", 4096)})
	e.do(req, &ann).AssertStatus(t, http.StatusBadRequest)
	if n, _ := e.assets.List(req.Context(), p.ID); len(n) != 0 {
		t.Errorf("%d assets stored", len(n))
	}
}

func TestHistory(t *testing.T) {
	e := newEnv(t, projects.Options{})
	ann := e.user("Ann", "ann@example.com")
	p := e.create(t, ann, "Alpha")
	base := "/" + p.ID.Hex() + "/history"

	e.do(testutil.NewJSONRequest(http.MethodPost, base, map[string]any{"description": "<b></b>"}), &ann).
		AssertStatus(t, http.StatusBadRequest)

	rec := e.do(testutil.NewJSONRequest(http.MethodPost, base, map[string]any{
		"description":   "Edited the <i>prototype</i>",
		"resource_type": "prototype",
	}), &ann)
	rec.AssertStatus(t, http.StatusCreated)
	var entry models.HistoryEntry
	rec.DecodeJSON(t, &entry)
	if entry.Description != "Edited the prototype" || entry.UserID != ann.ObjectID() || entry.ProjectID != p.ID {
		t.Errorf("entry = %+v", entry)
	}

	rec = e.do(testutil.NewRequest(http.MethodGet, base, nil), &ann)
	rec.AssertStatus(t, http.StatusOK)
	var entries []models.HistoryEntry
	rec.DecodeJSON(t, &entries)
	if len(entries) != 2 || entries[0].Description != "Edited the prototype" {
		t.Errorf("entries = %+v", entries)
	}

	e.do(testutil.NewRequest(http.MethodGet, base+"?limit=-1", nil), &ann).AssertStatus(t, http.StatusBadRequest)
}

func TestDeleteProject(t *testing.T) {
	e := newEnv(t, projects.Options{})
	ann := e.user("Ann", "ann@example.com")
	p := e.create(t, ann, "Alpha")
	e.assets.Put(p.ID, "a.txt", []byte("a"))

	e.do(testutil.NewRequest(http.MethodDelete, "/"+p.ID.Hex()+"/settings", nil), &ann).AssertStatus(t, http.StatusNoContent)
	if e.projects.Len() != 0 {
		t.Error("project document not removed")
	}
	// Roles are gone, so the owner no longer passes the guard.
	e.do(testutil.NewRequest(http.MethodGet, "/"+p.ID.Hex(), nil), &ann).AssertStatus(t, http.StatusForbidden)
}

func TestCreateInvite_RateLimited(t *testing.T) {
	il := ratelimit.NewInviteLimiter(1, time.Hour)
	defer il.Stop()
	e := newEnv(t, projects.Options{InviteLimiter: il})
	ann := e.user("Ann", "ann@example.com")
	p := e.create(t, ann, "Alpha")

	invite := func(email string) *testutil.ResponseRecorder {
		return e.do(testutil.NewJSONRequest(http.MethodPost, "/"+p.ID.Hex()+"/invite", map[string]any{
			"email_list": []map[string]string{{"email": email}},
		}), &ann)
	}
	invite("bob@example.com").AssertStatus(t, http.StatusCreated)
	invite("cat@example.com").AssertStatus(t, http.StatusTooManyRequests)
}
