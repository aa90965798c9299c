package testutil

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	aclstore "github.com/dalemusser/projecthub/internal/app/store/acl"
	assetstore "github.com/dalemusser/projecthub/internal/app/store/assets"
	projectstore "github.com/dalemusser/projecthub/internal/app/store/projects"
	userstore "github.com/dalemusser/projecthub/internal/app/store/users"
	"github.com/dalemusser/projecthub/internal/app/system/access"
	"github.com/dalemusser/projecthub/internal/app/system/auth"
	"github.com/dalemusser/projecthub/internal/app/system/mailer"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The Mem* types are in-memory stand-ins for the MongoDB stores. They
// follow the stores' matching and update semantics closely enough for
// service and handler tests. All are safe for concurrent use.

// MemProjects mirrors projectstore.Store.
type MemProjects struct {
	mu       sync.Mutex
	projects []models.Project

	// Errs injects a failure for the named method.
	Errs map[string]error
}

func NewMemProjects() *MemProjects {
	return &MemProjects{Errs: map[string]error{}}
}

func (m *MemProjects) fail(method string) error {
	if m.Errs == nil {
		return nil
	}
	return m.Errs[method]
}

func cloneProject(p models.Project) models.Project {
	p.UserList = append([]models.ProjectUser{}, p.UserList...)
	p.InviteList = append([]models.Invite{}, p.InviteList...)
	p.RejectList = append([]models.Rejection{}, p.RejectList...)
	if p.Tags != nil {
		p.Tags = append([]string{}, p.Tags...)
	}
	if p.PublishDate != nil {
		d := *p.PublishDate
		p.PublishDate = &d
	}
	return p
}

func (m *MemProjects) index(id primitive.ObjectID) int {
	for i := range m.projects {
		if m.projects[i].ID == id {
			return i
		}
	}
	return -1
}

// Put stores p as-is, replacing any project with the same ID.
func (m *MemProjects) Put(p models.Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = cloneProject(p)
	if i := m.index(p.ID); i >= 0 {
		m.projects[i] = p
		return
	}
	m.projects = append(m.projects, p)
}

// Get returns the stored project regardless of its deleted flag.
func (m *MemProjects) Get(id primitive.ObjectID) (models.Project, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.index(id); i >= 0 {
		return cloneProject(m.projects[i]), true
	}
	return models.Project{}, false
}

// Len counts stored projects, deleted included.
func (m *MemProjects) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.projects)
}

func (m *MemProjects) EnsureIndexes(context.Context) error { return m.fail("EnsureIndexes") }

func (m *MemProjects) Create(_ context.Context, p models.Project) (models.Project, error) {
	if err := m.fail("Create"); err != nil {
		return models.Project{}, err
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.UserList == nil {
		p.UserList = []models.ProjectUser{}
	}
	if p.InviteList == nil {
		p.InviteList = []models.Invite{}
	}
	if p.RejectList == nil {
		p.RejectList = []models.Rejection{}
	}
	m.Put(p)
	return cloneProject(p), nil
}

func matches(p models.Project, mt models.ProjectMatch) bool {
	if p.ID != mt.ID || p.Deleted {
		return false
	}
	if mt.AccessorID != nil && p.Stats.CreatedBy != *mt.AccessorID && !p.HasMember(*mt.AccessorID) {
		return false
	}
	if mt.MemberEmail != "" {
		found := false
		for _, u := range p.UserList {
			if u.Email == mt.MemberEmail {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if mt.InviteEmail != "" && !p.HasInvite(mt.InviteEmail) {
		return false
	}
	if mt.ThumbnailNot != nil && p.Thumbnail == *mt.ThumbnailNot {
		return false
	}
	if mt.IsPublicNot != nil && p.IsPublic == *mt.IsPublicNot {
		return false
	}
	if mt.PublishDateUnset && p.PublishDate != nil {
		return false
	}
	return true
}

func (m *MemProjects) FindOne(_ context.Context, mt models.ProjectMatch, _ []string) (models.Project, error) {
	if err := m.fail("FindOne"); err != nil {
		return models.Project{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.projects {
		if matches(p, mt) {
			return cloneProject(p), nil
		}
	}
	return models.Project{}, projectstore.ErrNotFound
}

func (m *MemProjects) GetAny(_ context.Context, id primitive.ObjectID) (models.Project, error) {
	if err := m.fail("GetAny"); err != nil {
		return models.Project{}, err
	}
	if p, ok := m.Get(id); ok {
		return p, nil
	}
	return models.Project{}, projectstore.ErrNotFound
}

func queryMatches(p models.Project, q models.ProjectQuery) bool {
	if q.CreatedBy != nil {
		return p.Stats.CreatedBy == *q.CreatedBy
	}
	if p.Deleted {
		return false
	}
	if q.PublicOnly {
		return p.IsPublic
	}
	if q.Archived != nil && p.Archived != *q.Archived {
		return false
	}
	if p.Stats.CreatedBy == q.UserID || p.HasMember(q.UserID) {
		return true
	}
	return q.Email != "" && p.HasInvite(q.Email)
}

func (m *MemProjects) Find(_ context.Context, q models.ProjectQuery, _ []string) ([]models.Project, error) {
	if err := m.fail("Find"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Project{}
	for _, p := range m.projects {
		if queryMatches(p, q) {
			out = append(out, cloneProject(p))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Stats.CreatedAt.Before(out[j].Stats.CreatedAt)
	})
	return out, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsID(list []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

// apply mirrors projectstore.UpdateDoc: $set, then $addToSet, then $pull.
func apply(p *models.Project, mut models.ProjectMutation) {
	if mut.Name != nil {
		p.Name = *mut.Name
	}
	if mut.Description != nil {
		p.Description = *mut.Description
	}
	if mut.Archived != nil {
		p.Archived = *mut.Archived
	}
	if mut.Thumbnail != nil {
		p.Thumbnail = *mut.Thumbnail
	}
	if mut.IsPublic != nil {
		p.IsPublic = *mut.IsPublic
	}
	if mut.PublishDate != nil {
		d := *mut.PublishDate
		p.PublishDate = &d
	}
	if !mut.UpdatedBy.IsZero() {
		p.Stats.UpdatedBy = mut.UpdatedBy
	}
	if !mut.UpdatedAt.IsZero() {
		p.Stats.UpdatedAt = mut.UpdatedAt
	}

	for _, t := range mut.AddTags {
		if !containsString(p.Tags, t) {
			p.Tags = append(p.Tags, t)
		}
	}

	for _, u := range mut.AddUsers {
		dup := false
		for _, have := range p.UserList {
			if have == u {
				dup = true
				break
			}
		}
		if !dup {
			p.UserList = append(p.UserList, u)
		}
	}
	if len(mut.PullUserIDs) > 0 {
		kept := p.UserList[:0]
		for _, u := range p.UserList {
			if !containsID(mut.PullUserIDs, u.UserID) {
				kept = append(kept, u)
			}
		}
		p.UserList = kept
	}

	if mut.ClearInvites {
		p.InviteList = []models.Invite{}
	} else {
		for _, inv := range mut.AddInvites {
			if !p.HasInvite(inv.Email) {
				p.InviteList = append(p.InviteList, inv)
			}
		}
		if len(mut.PullInviteEmails) > 0 {
			kept := p.InviteList[:0]
			for _, inv := range p.InviteList {
				if !containsString(mut.PullInviteEmails, inv.Email) {
					kept = append(kept, inv)
				}
			}
			p.InviteList = kept
		}
	}

	for _, r := range mut.AddRejections {
		dup := false
		for _, have := range p.RejectList {
			if have == r {
				dup = true
				break
			}
		}
		if !dup {
			p.RejectList = append(p.RejectList, r)
		}
	}
	if len(mut.PullRejectionEmails) > 0 {
		kept := p.RejectList[:0]
		for _, r := range p.RejectList {
			if !containsString(mut.PullRejectionEmails, r.Email) {
				kept = append(kept, r)
			}
		}
		p.RejectList = kept
	}
}

func (m *MemProjects) FindOneAndUpdate(_ context.Context, mt models.ProjectMatch, mut models.ProjectMutation) (models.Project, error) {
	if err := m.fail("FindOneAndUpdate"); err != nil {
		return models.Project{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.projects {
		if matches(m.projects[i], mt) {
			apply(&m.projects[i], mut)
			return cloneProject(m.projects[i]), nil
		}
	}
	return models.Project{}, projectstore.ErrNotFound
}

func (m *MemProjects) SetDeleted(_ context.Context, id primitive.ObjectID, flag bool) error {
	if err := m.fail("SetDeleted"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(id)
	if i < 0 {
		return projectstore.ErrNotFound
	}
	m.projects[i].Deleted = flag
	return nil
}

func (m *MemProjects) Remove(_ context.Context, id primitive.ObjectID) error {
	if err := m.fail("Remove"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.index(id); i >= 0 {
		m.projects = append(m.projects[:i], m.projects[i+1:]...)
	}
	return nil
}

func (m *MemProjects) PullMember(_ context.Context, userID primitive.ObjectID) (int64, error) {
	if err := m.fail("PullMember"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.projects {
		p := &m.projects[i]
		if p.Deleted || !p.HasMember(userID) {
			continue
		}
		apply(p, models.ProjectMutation{PullUserIDs: []primitive.ObjectID{userID}, UpdatedAt: time.Now().UTC()})
		n++
	}
	return n, nil
}

// MemACL mirrors aclstore.Store.
type MemACL struct {
	mu    sync.Mutex
	roles map[string]bool
	grant map[primitive.ObjectID]map[string]bool

	Errs map[string]error
}

func NewMemACL() *MemACL {
	return &MemACL{
		roles: map[string]bool{},
		grant: map[primitive.ObjectID]map[string]bool{},
		Errs:  map[string]error{},
	}
}

func (a *MemACL) fail(method string) error {
	if a.Errs == nil {
		return nil
	}
	return a.Errs[method]
}

// HasRole reports whether userID holds role.
func (a *MemACL) HasRole(userID primitive.ObjectID, role string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.grant[userID][role]
}

// RoleExists reports whether role was created and not removed.
func (a *MemACL) RoleExists(role string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.roles[role]
}

func (a *MemACL) EnsureIndexes(context.Context) error { return nil }

func (a *MemACL) CreateProjectRoles(_ context.Context, projectID primitive.ObjectID) error {
	if err := a.fail("CreateProjectRoles"); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.roles[aclstore.OwnerRole(projectID)] = true
	a.roles[aclstore.CollaboratorRole(projectID)] = true
	return nil
}

func (a *MemACL) AddUserRoles(_ context.Context, userID primitive.ObjectID, roles ...string) error {
	if err := a.fail("AddUserRoles"); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.grant[userID] == nil {
		a.grant[userID] = map[string]bool{}
	}
	for _, r := range roles {
		a.grant[userID][r] = true
	}
	return nil
}

func (a *MemACL) RemoveUserRoles(_ context.Context, userID primitive.ObjectID, roles ...string) error {
	if err := a.fail("RemoveUserRoles"); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range roles {
		delete(a.grant[userID], r)
	}
	return nil
}

func (a *MemACL) RoleUsers(_ context.Context, role string) ([]primitive.ObjectID, error) {
	if err := a.fail("RoleUsers"); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := []primitive.ObjectID{}
	for uid, roles := range a.grant {
		if roles[role] {
			ids = append(ids, uid)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Hex() < ids[j].Hex() })
	return ids, nil
}

func (a *MemACL) UserProjectRoles(_ context.Context, userID, projectID primitive.ObjectID) ([]string, error) {
	if err := a.fail("UserProjectRoles"); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	out := []string{}
	for r := range a.grant[userID] {
		if pid, ok := aclstore.ProjectFromRole(r); ok && pid == projectID {
			out = append(out, r)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (a *MemACL) UserRoles(_ context.Context, userID primitive.ObjectID) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := []string{}
	for r := range a.grant[userID] {
		out = append(out, r)
	}
	sort.Strings(out)
	return out, nil
}

func (a *MemACL) RemoveProjectRoles(_ context.Context, projectID primitive.ObjectID) error {
	if err := a.fail("RemoveProjectRoles"); err != nil {
		return err
	}
	owner, collab := aclstore.OwnerRole(projectID), aclstore.CollaboratorRole(projectID)
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, roles := range a.grant {
		delete(roles, owner)
		delete(roles, collab)
	}
	delete(a.roles, owner)
	delete(a.roles, collab)
	return nil
}

func (a *MemACL) RemoveProjectAccess(_ context.Context, userID, projectID primitive.ObjectID) error {
	if err := a.fail("RemoveProjectAccess"); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.grant[userID], aclstore.OwnerRole(projectID))
	delete(a.grant[userID], aclstore.CollaboratorRole(projectID))
	return nil
}

// MemUsers is an in-memory users directory. It also serves as an
// auth.UserFetcher.
type MemUsers struct {
	mu    sync.Mutex
	users []models.User
}

func NewMemUsers(users ...models.User) *MemUsers {
	m := &MemUsers{}
	for _, u := range users {
		m.Add(u)
	}
	return m
}

// Add stores u, assigning an ID when it has none.
func (m *MemUsers) Add(u models.User) models.User {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = models.UserRoleStandard
	}
	m.mu.Lock()
	m.users = append(m.users, u)
	m.mu.Unlock()
	return u
}

func (m *MemUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, userstore.ErrNotFound
}

func (m *MemUsers) ListByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.User{}
	for _, id := range ids {
		for _, u := range m.users {
			if u.ID == id {
				out = append(out, u)
				break
			}
		}
	}
	return out, nil
}

func (m *MemUsers) FetchUser(_ context.Context, userID string) *auth.SessionUser {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID.Hex() == userID {
			return &auth.SessionUser{ID: userID, Name: u.Name, Email: u.Email, Role: u.Role, AvatarURL: u.AvatarURL}
		}
	}
	return nil
}

// MemAssets mirrors assetstore.Store.
type MemAssets struct {
	mu      sync.Mutex
	assets  []models.Asset
	content map[primitive.ObjectID][]byte

	// Deleted collects project IDs passed to OnProjectDeleted.
	Deleted []primitive.ObjectID
	Errs    map[string]error
}

func NewMemAssets() *MemAssets {
	return &MemAssets{content: map[primitive.ObjectID][]byte{}, Errs: map[string]error{}}
}

func (m *MemAssets) fail(method string) error {
	if m.Errs == nil {
		return nil
	}
	return m.Errs[method]
}

// Put stores content as a new asset of projectID.
func (m *MemAssets) Put(projectID primitive.ObjectID, filename string, data []byte) models.Asset {
	a, _ := m.Upload(context.Background(), projectID, primitive.NilObjectID, filename, "application/octet-stream", bytes.NewReader(data))
	return *a
}

func (m *MemAssets) Upload(_ context.Context, projectID, userID primitive.ObjectID, filename, contentType string, r io.Reader) (*models.Asset, error) {
	if err := m.fail("Upload"); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	a := models.Asset{
		ID:          primitive.NewObjectID(),
		ProjectID:   projectID,
		Filename:    filename,
		ContentType: contentType,
		Length:      int64(len(data)),
		UploadedBy:  userID,
		UploadDate:  time.Now().UTC(),
	}
	m.mu.Lock()
	m.assets = append(m.assets, a)
	m.content[a.ID] = data
	m.mu.Unlock()
	return &a, nil
}

func (m *MemAssets) List(_ context.Context, projectID primitive.ObjectID) ([]models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Asset{}
	for _, a := range m.assets {
		if a.ProjectID == projectID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MemAssets) Get(_ context.Context, projectID, assetID primitive.ObjectID) (*models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.assets {
		if a.ID == assetID && a.ProjectID == projectID {
			a := a
			return &a, nil
		}
	}
	return nil, assetstore.ErrNotFound
}

func (m *MemAssets) WriteContent(ctx context.Context, projectID, assetID primitive.ObjectID, w io.Writer) (*models.Asset, error) {
	a, err := m.Get(ctx, projectID, assetID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	data := m.content[assetID]
	m.mu.Unlock()
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	return a, nil
}

func (m *MemAssets) Content(ctx context.Context, projectID, assetID primitive.ObjectID) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := m.WriteContent(ctx, projectID, assetID, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *MemAssets) Delete(_ context.Context, projectID, assetID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.assets {
		if a.ID == assetID && a.ProjectID == projectID {
			m.assets = append(m.assets[:i], m.assets[i+1:]...)
			delete(m.content, assetID)
			return nil
		}
	}
	return assetstore.ErrNotFound
}

func (m *MemAssets) OnProjectDeleted(_ context.Context, projectID primitive.ObjectID) error {
	if err := m.fail("OnProjectDeleted"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.assets[:0]
	for _, a := range m.assets {
		if a.ProjectID == projectID {
			delete(m.content, a.ID)
			continue
		}
		kept = append(kept, a)
	}
	m.assets = kept
	m.Deleted = append(m.Deleted, projectID)
	return nil
}

// MemHistory mirrors historystore.Store.
type MemHistory struct {
	mu      sync.Mutex
	entries []models.HistoryEntry
}

func NewMemHistory() *MemHistory { return &MemHistory{} }

func (m *MemHistory) Create(_ context.Context, e models.HistoryEntry) (models.HistoryEntry, error) {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.Date.IsZero() {
		e.Date = time.Now().UTC()
	}
	m.mu.Lock()
	m.entries = append(m.entries, e)
	m.mu.Unlock()
	return e, nil
}

// List returns entries for projectID, newest first.
func (m *MemHistory) List(_ context.Context, projectID primitive.ObjectID, limit int64) ([]models.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.HistoryEntry{}
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].ProjectID == projectID {
			out = append(out, m.entries[i])
		}
		if limit > 0 && int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

// Entries returns every entry in insertion order.
func (m *MemHistory) Entries() []models.HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.HistoryEntry{}, m.entries...)
}

func (m *MemHistory) OnProjectDeleted(_ context.Context, projectID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.ProjectID != projectID {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	return nil
}

// FakeProvisioner returns canned provisioning results. Addresses without
// an entry in Results are provisioned and accept notifications.
type FakeProvisioner struct {
	mu      sync.Mutex
	Results map[string]access.Result
	Calls   [][]string
	Err     error
}

func (f *FakeProvisioner) InviteUsers(_ context.Context, emails []string) ([]access.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, append([]string{}, emails...))
	if f.Err != nil {
		return nil, f.Err
	}
	out := make([]access.Result, 0, len(emails))
	for _, e := range emails {
		if r, ok := f.Results[e]; ok {
			r.Email = e
			out = append(out, r)
			continue
		}
		out = append(out, access.Result{Email: e, Provisioned: true, AcceptNotification: true})
	}
	return out, nil
}

// FakeMailer records sent mail.
type FakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Email
	Err  error
}

func (f *FakeMailer) Send(_ context.Context, e mailer.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.sent = append(f.sent, e)
	return nil
}

// Sent returns the mail delivered so far.
func (f *FakeMailer) Sent() []mailer.Email {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mailer.Email{}, f.sent...)
}
