package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Gur1a/CheckList/internal/apperror"
	"github.com/Gur1a/CheckList/internal/model"
	"github.com/Gur1a/CheckList/internal/repository"
)

// =========================================================================
// FAKE STORE
// =========================================================================
//
// fakeStore is an in-memory implementation of every repository interface.
// It stores copies so a test can't change "database" state by mutating a
// value it got back, the same way a real database behaves.
//
// Set one of the *Err fields to simulate a database failure.

type memberKey struct{ projectID, userID int64 }
type taskTagKey struct{ taskID, tagID int64 }

type fakeStore struct {
	nextID   int64
	users    map[int64]*model.User
	projects map[int64]*model.Project
	members  map[memberKey]*model.Member
	boards   map[int64]*model.Board
	tasks    map[int64]*model.Task
	tags     map[int64]*model.Tag
	taskTags map[taskTagKey]bool

	createUserErr error
	upsertErr     error
	touchErr      error
}

var (
	_ repository.UserRepository    = (*fakeStore)(nil)
	_ repository.ProjectRepository = (*fakeStore)(nil)
	_ repository.BoardRepository   = (*fakeStore)(nil)
	_ repository.TaskRepository    = (*fakeStore)(nil)
	_ repository.TagRepository     = (*fakeStore)(nil)
)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[int64]*model.User{},
		projects: map[int64]*model.Project{},
		members:  map[memberKey]*model.Member{},
		boards:   map[int64]*model.Board{},
		tasks:    map[int64]*model.Task{},
		tags:     map[int64]*model.Tag{},
		taskTags: map[taskTagKey]bool{},
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ---- users ----

func (f *fakeStore) CreateUser(_ context.Context, u *model.User) error {
	if f.createUserErr != nil {
		return f.createUserErr
	}
	for _, existing := range f.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return apperror.Conflict("user", "username "+u.Username)
		}
		if strings.EqualFold(existing.Email, u.Email) {
			return apperror.Conflict("user", "email "+u.Email)
		}
	}
	u.ID = f.id()
	u.CreatedAt = time.Now()
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	c := *u
	return &c, nil
}

func (f *fakeStore) GetUserByLogin(_ context.Context, login string) (*model.User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Username, login) || strings.EqualFold(u.Email, login) {
			c := *u
			return &c, nil
		}
	}
	return nil, apperror.NotFound("user", login)
}

func (f *fakeStore) UpsertGitHubUser(_ context.Context, u *model.User) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, existing := range f.users {
		if existing.GitHubID != nil && *existing.GitHubID == *u.GitHubID {
			existing.AvatarURL = u.AvatarURL
			*u = *existing
			return nil
		}
	}
	u.ID = f.id()
	u.IsActive = true
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeStore) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	if f.touchErr != nil {
		return f.touchErr
	}
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.LastLoginAt = &at
	return nil
}

// ---- projects ----

func (f *fakeStore) CreateProject(_ context.Context, p *model.Project) error {
	p.ID = f.id()
	stored := *p
	f.projects[p.ID] = &stored
	f.members[memberKey{p.ID, p.CreatedBy}] = &model.Member{ProjectID: p.ID, UserID: p.CreatedBy, Role: model.RoleOwner}
	return nil
}

func (f *fakeStore) GetProject(_ context.Context, id int64) (*model.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, apperror.NotFound("project", id)
	}
	c := *p
	return &c, nil
}

func (f *fakeStore) ListProjects(_ context.Context, pf repository.ProjectFilter) ([]model.Project, error) {
	var out []model.Project
	for _, p := range f.projects {
		if _, ok := f.members[memberKey{p.ID, pf.UserID}]; !ok {
			continue
		}
		if p.IsArchived && !pf.IncludeArchived {
			continue
		}
		if pf.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(pf.Search)) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, pf.ListOptions), nil
}

func (f *fakeStore) UpdateProject(_ context.Context, p *model.Project) error {
	if _, ok := f.projects[p.ID]; !ok {
		return apperror.NotFound("project", p.ID)
	}
	stored := *p
	f.projects[p.ID] = &stored
	return nil
}

func (f *fakeStore) DeleteProject(_ context.Context, id int64) error {
	if _, ok := f.projects[id]; !ok {
		return apperror.NotFound("project", id)
	}
	delete(f.projects, id)
	for k := range f.members {
		if k.projectID == id {
			delete(f.members, k)
		}
	}
	return nil
}

func (f *fakeStore) ProjectStats(_ context.Context, id int64) (*model.ProjectStats, error) {
	var st model.ProjectStats
	for _, t := range f.tasks {
		if t.ProjectID != nil && *t.ProjectID == id {
			st.TotalTasks++
			if t.Status == model.StatusDone {
				st.CompletedTasks++
			}
		}
	}
	for k := range f.members {
		if k.projectID == id {
			st.MemberCount++
		}
	}
	return &st, nil
}

func (f *fakeStore) GetMember(_ context.Context, projectID, userID int64) (*model.Member, error) {
	m, ok := f.members[memberKey{projectID, userID}]
	if !ok {
		return nil, apperror.NotFound("member", userID)
	}
	c := *m
	return &c, nil
}

func (f *fakeStore) ListMembers(_ context.Context, projectID int64) ([]model.Member, error) {
	var out []model.Member
	for k, m := range f.members {
		if k.projectID == projectID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (f *fakeStore) AddMember(_ context.Context, m *model.Member) error {
	key := memberKey{m.ProjectID, m.UserID}
	if _, ok := f.members[key]; ok {
		return apperror.Conflict("member", "already a member")
	}
	if _, ok := f.users[m.UserID]; !ok {
		return apperror.NotFound("user", m.UserID)
	}
	stored := *m
	f.members[key] = &stored
	return nil
}

func (f *fakeStore) RemoveMember(_ context.Context, projectID, userID int64) error {
	key := memberKey{projectID, userID}
	if _, ok := f.members[key]; !ok {
		return apperror.NotFound("member", userID)
	}
	delete(f.members, key)
	return nil
}

// ---- boards ----

func (f *fakeStore) CreateBoard(_ context.Context, b *model.Board) error {
	if b.IsDefault {
		f.clearDefault(b.ProjectID)
	}
	b.ID = f.id()
	stored := *b
	f.boards[b.ID] = &stored
	return nil
}

func (f *fakeStore) clearDefault(projectID int64) {
	for _, b := range f.boards {
		if b.ProjectID == projectID {
			b.IsDefault = false
		}
	}
}

func (f *fakeStore) GetBoard(_ context.Context, id int64) (*model.Board, error) {
	b, ok := f.boards[id]
	if !ok {
		return nil, apperror.NotFound("board", id)
	}
	c := *b
	return &c, nil
}

func (f *fakeStore) ListBoards(_ context.Context, projectID int64) ([]model.Board, error) {
	out := []model.Board{}
	for _, b := range f.boards {
		if b.ProjectID == projectID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeStore) UpdateBoard(_ context.Context, b *model.Board) error {
	if _, ok := f.boards[b.ID]; !ok {
		return apperror.NotFound("board", b.ID)
	}
	if b.IsDefault {
		f.clearDefault(b.ProjectID)
	}
	stored := *b
	f.boards[b.ID] = &stored
	return nil
}

func (f *fakeStore) DeleteBoard(_ context.Context, id int64) error {
	if _, ok := f.boards[id]; !ok {
		return apperror.NotFound("board", id)
	}
	for _, t := range f.tasks {
		if t.BoardID != nil && *t.BoardID == id {
			t.BoardID = nil
		}
	}
	delete(f.boards, id)
	return nil
}

func (f *fakeStore) NextBoardPosition(_ context.Context, projectID int64) (int, error) {
	next := 0
	for _, b := range f.boards {
		if b.ProjectID == projectID && b.Position >= next {
			next = b.Position + 1
		}
	}
	return next, nil
}

func (f *fakeStore) ReorderBoards(_ context.Context, projectID int64, positions []model.BoardPosition) error {
	for _, p := range positions {
		b, ok := f.boards[p.ID]
		if !ok || b.ProjectID != projectID {
			return apperror.NotFound("board", p.ID)
		}
	}
	for _, p := range positions {
		f.boards[p.ID].Position = p.Position
	}
	return nil
}

// ---- tasks ----

func (f *fakeStore) CreateTask(_ context.Context, t *model.Task) error {
	t.ID = f.id()
	t.Tags = []model.Tag{}
	stored := *t
	f.tasks[t.ID] = &stored
	return nil
}

func (f *fakeStore) GetTask(_ context.Context, id int64) (*model.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, apperror.NotFound("task", id)
	}
	c := *t
	return &c, nil
}

func (f *fakeStore) ListTasks(_ context.Context, tf repository.TaskFilter) ([]model.Task, error) {
	var out []model.Task
	for _, t := range f.tasks {
		visible := t.CreatedBy == tf.UserID || eq(t.AssigneeID, &tf.UserID)
		if !visible && t.ProjectID != nil {
			_, visible = f.members[memberKey{*t.ProjectID, tf.UserID}]
		}
		switch {
		case !visible,
			tf.ProjectID != nil && !eq(t.ProjectID, tf.ProjectID),
			tf.BoardID != nil && !eq(t.BoardID, tf.BoardID),
			tf.Status != nil && t.Status != *tf.Status,
			tf.Priority != nil && t.Priority != *tf.Priority,
			tf.AssigneeID != nil && !eq(t.AssigneeID, tf.AssigneeID),
			tf.TagID != nil && !f.taskTags[taskTagKey{t.ID, *tf.TagID}],
			tf.Search != "" && !strings.Contains(t.Title, tf.Search):
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, tf.ListOptions), nil
}

func (f *fakeStore) UpdateTask(_ context.Context, t *model.Task) error {
	if _, ok := f.tasks[t.ID]; !ok {
		return apperror.NotFound("task", t.ID)
	}
	stored := *t
	f.tasks[t.ID] = &stored
	return nil
}

func (f *fakeStore) DeleteTask(_ context.Context, id int64) error {
	if _, ok := f.tasks[id]; !ok {
		return apperror.NotFound("task", id)
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeStore) NextTaskPosition(_ context.Context, projectID, boardID *int64) (int, error) {
	next := 0
	for _, t := range f.tasks {
		if eq(t.ProjectID, projectID) && eq(t.BoardID, boardID) && t.Position >= next {
			next = t.Position + 1
		}
	}
	return next, nil
}

func (f *fakeStore) UpdateTaskStatuses(_ context.Context, tasks []*model.Task) error {
	for _, t := range tasks {
		if _, ok := f.tasks[t.ID]; !ok {
			return apperror.NotFound("task", t.ID)
		}
	}
	for _, t := range tasks {
		f.tasks[t.ID].Status = t.Status
		f.tasks[t.ID].CompletedAt = t.CompletedAt
	}
	return nil
}

// ---- tags ----

func (f *fakeStore) CreateTag(_ context.Context, t *model.Tag) error {
	for _, existing := range f.tags {
		if existing.UserID == t.UserID && existing.Name == t.Name {
			return apperror.Conflict("tag", t.Name)
		}
	}
	t.ID = f.id()
	stored := *t
	f.tags[t.ID] = &stored
	return nil
}

func (f *fakeStore) GetTag(_ context.Context, id int64) (*model.Tag, error) {
	t, ok := f.tags[id]
	if !ok {
		return nil, apperror.NotFound("tag", id)
	}
	c := *t
	return &c, nil
}

func (f *fakeStore) ListTags(_ context.Context, userID int64) ([]model.Tag, error) {
	out := []model.Tag{}
	for _, t := range f.tags {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) UpdateTag(_ context.Context, t *model.Tag) error {
	if _, ok := f.tags[t.ID]; !ok {
		return apperror.NotFound("tag", t.ID)
	}
	for _, existing := range f.tags {
		if existing.ID != t.ID && existing.UserID == t.UserID && existing.Name == t.Name {
			return apperror.Conflict("tag", t.Name)
		}
	}
	stored := *t
	f.tags[t.ID] = &stored
	return nil
}

func (f *fakeStore) DeleteTag(_ context.Context, id int64) error {
	if _, ok := f.tags[id]; !ok {
		return apperror.NotFound("tag", id)
	}
	delete(f.tags, id)
	return nil
}

func (f *fakeStore) AttachTag(_ context.Context, tagID, taskID int64) error {
	f.taskTags[taskTagKey{taskID, tagID}] = true
	return nil
}

func (f *fakeStore) DetachTag(_ context.Context, tagID, taskID int64) error {
	key := taskTagKey{taskID, tagID}
	if !f.taskTags[key] {
		return apperror.NotFound("task tag", tagID)
	}
	delete(f.taskTags, key)
	return nil
}

func (f *fakeStore) ListTagsForTask(_ context.Context, taskID int64) ([]model.Tag, error) {
	out := []model.Tag{}
	for k := range f.taskTags {
		if k.taskID == taskID {
			out = append(out, *f.tags[k.tagID])
		}
	}
	return out, nil
}

func (f *fakeStore) ListTasksForTag(_ context.Context, tagID int64) ([]model.Task, error) {
	out := []model.Task{}
	for k := range f.taskTags {
		if k.tagID == tagID {
			if t, ok := f.tasks[k.taskID]; ok {
				out = append(out, *t)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- helpers ----

func eq(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func page[T any](items []T, opts repository.ListOptions) []T {
	if opts.Offset >= len(items) {
		return []T{}
	}
	items = items[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}

// seedUser puts a user straight into the store.
func (f *fakeStore) seedUser(username string) *model.User {
	u := &model.User{Username: username, Email: username + "@example.com", IsActive: true}
	_ = f.CreateUser(context.Background(), u)
	return u
}

// seedProject creates a project owned by owner and adds each extra
// member with the given role.
func (f *fakeStore) seedProject(owner *model.User, private bool, extra map[*model.User]model.Role) *model.Project {
	p := &model.Project{Name: "Project", CreatedBy: owner.ID, IsPrivate: private}
	_ = f.CreateProject(context.Background(), p)
	for u, role := range extra {
		_ = f.AddMember(context.Background(), &model.Member{ProjectID: p.ID, UserID: u.ID, Role: role})
	}
	return p
}
