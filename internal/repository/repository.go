// Package repository declares the storage contracts the service layer
// depends on. internal/repository/sqlite is the only implementation; the
// service tests use in-memory fakes.
//
// Every method returns *apperror.AppError values for "not found" and
// "already exists" so services can pass them straight through.
package repository

import (
	"context"
	"time"

	"github.com/Gur1a/CheckList/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	// GetUserByLogin matches either username or email.
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	// UpsertGitHubUser links the account by github_id, creating it on first login.
	UpsertGitHubUser(ctx context.Context, user *model.User) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

type ProjectFilter struct {
	UserID          int64
	IncludeArchived bool
	Search          string
	ListOptions
}

type ProjectRepository interface {
	// CreateProject inserts the project and its owner membership atomically.
	CreateProject(ctx context.Context, project *model.Project) error
	GetProject(ctx context.Context, id int64) (*model.Project, error)
	ListProjects(ctx context.Context, f ProjectFilter) ([]model.Project, error)
	UpdateProject(ctx context.Context, project *model.Project) error
	DeleteProject(ctx context.Context, id int64) error
	ProjectStats(ctx context.Context, id int64) (*model.ProjectStats, error)

	GetMember(ctx context.Context, projectID, userID int64) (*model.Member, error)
	ListMembers(ctx context.Context, projectID int64) ([]model.Member, error)
	AddMember(ctx context.Context, member *model.Member) error
	RemoveMember(ctx context.Context, projectID, userID int64) error
}

type BoardRepository interface {
	CreateBoard(ctx context.Context, board *model.Board) error
	GetBoard(ctx context.Context, id int64) (*model.Board, error)
	ListBoards(ctx context.Context, projectID int64) ([]model.Board, error)
	UpdateBoard(ctx context.Context, board *model.Board) error
	// DeleteBoard detaches the board's tasks (board_id = NULL) and removes it.
	DeleteBoard(ctx context.Context, id int64) error
	// NextBoardPosition is max(position)+1 within the project, 0 when empty.
	NextBoardPosition(ctx context.Context, projectID int64) (int, error)
	// ReorderBoards applies all positions in one transaction.
	ReorderBoards(ctx context.Context, projectID int64, positions []model.BoardPosition) error
}

type TaskFilter struct {
	// UserID restricts results to tasks the user can see: tasks they
	// created or are assigned, plus tasks in projects they belong to.
	UserID     int64
	ProjectID  *int64
	BoardID    *int64
	Status     *model.TaskStatus
	Priority   *model.TaskPriority
	AssigneeID *int64
	TagID      *int64
	Search     string
	ListOptions
}

type TaskRepository interface {
	CreateTask(ctx context.Context, task *model.Task) error
	GetTask(ctx context.Context, id int64) (*model.Task, error)
	ListTasks(ctx context.Context, f TaskFilter) ([]model.Task, error)
	UpdateTask(ctx context.Context, task *model.Task) error
	DeleteTask(ctx context.Context, id int64) error
	// NextTaskPosition is max(position)+1 among tasks sharing the
	// same project and board (NULLs compare equal).
	NextTaskPosition(ctx context.Context, projectID, boardID *int64) (int, error)
	// UpdateTaskStatuses writes every task or none.
	UpdateTaskStatuses(ctx context.Context, tasks []*model.Task) error
}

type TagRepository interface {
	CreateTag(ctx context.Context, tag *model.Tag) error
	GetTag(ctx context.Context, id int64) (*model.Tag, error)
	ListTags(ctx context.Context, userID int64) ([]model.Tag, error)
	UpdateTag(ctx context.Context, tag *model.Tag) error
	DeleteTag(ctx context.Context, id int64) error

	AttachTag(ctx context.Context, tagID, taskID int64) error
	DetachTag(ctx context.Context, tagID, taskID int64) error
	ListTagsForTask(ctx context.Context, taskID int64) ([]model.Tag, error)
	ListTasksForTag(ctx context.Context, tagID int64) ([]model.Task, error)
}
