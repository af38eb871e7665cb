package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Gur1a/CheckList/internal/apperror"
	"github.com/Gur1a/CheckList/internal/model"
	"github.com/Gur1a/CheckList/internal/repository"
	"github.com/Gur1a/CheckList/internal/sanitize"
)

const (
	MaxTaskTitleLength       = 200
	MaxTaskDescriptionLength = 2000
	MaxBulkTasks             = 100
)

type TaskService struct {
	tasks  repository.TaskRepository
	boards repository.BoardRepository
	access access
	logger *slog.Logger
	now    func() time.Time
}

func NewTaskService(
	tasks repository.TaskRepository,
	boards repository.BoardRepository,
	projects repository.ProjectRepository,
	logger *slog.Logger,
) *TaskService {
	return &TaskService{
		tasks:  tasks,
		boards: boards,
		access: access{projects: projects},
		logger: logger,
		now:    time.Now,
	}
}

type TaskInput struct {
	Title       string
	Description string
	Status      model.TaskStatus
	Priority    model.TaskPriority
	DueDate     *time.Time
	ProjectID   *int64
	BoardID     *int64
	AssigneeID  *int64
}

// TaskUpdate is a partial update. The Clear flags exist because a nil
// pointer already means "leave alone".
type TaskUpdate struct {
	Title         *string
	Description   *string
	Status        *model.TaskStatus
	Priority      *model.TaskPriority
	DueDate       *time.Time
	ClearDueDate  bool
	AssigneeID    *int64
	ClearAssignee bool
}

// MoveInput places a task on a board. A nil BoardID takes the task off
// its board; a nil Position appends it.
type MoveInput struct {
	BoardID  *int64
	Position *int
}

type TaskListOptions struct {
	ProjectID  *int64
	BoardID    *int64
	Status     *model.TaskStatus
	Priority   *model.TaskPriority
	AssigneeID *int64
	TagID      *int64
	Search     string
	Limit      int
	Offset     int
}

// Create adds a task. Without a project it is a personal task; with one,
// the caller's role must allow creating tasks there.
func (s *TaskService) Create(ctx context.Context, userID int64, in TaskInput) (*model.Task, error) {
	task := &model.Task{
		Title:       sanitize.Text(in.Title),
		Description: sanitize.RichText(in.Description),
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		ProjectID:   in.ProjectID,
		BoardID:     in.BoardID,
		AssigneeID:  in.AssigneeID,
		CreatedBy:   userID,
	}
	if task.Status == "" {
		task.Status = model.StatusTodo
	}
	if task.Priority == "" {
		task.Priority = model.PriorityMedium
	}
	if err := validateTask(task); err != nil {
		return nil, err
	}

	if task.ProjectID != nil {
		if _, err := s.access.require(ctx, *task.ProjectID, userID,
			func(p model.Permissions) bool { return p.CreateTasks }, "create tasks in this project"); err != nil {
			return nil, err
		}
	}
	if err := s.checkPlacement(ctx, task); err != nil {
		return nil, err
	}

	pos, err := s.tasks.NextTaskPosition(ctx, task.ProjectID, task.BoardID)
	if err != nil {
		return nil, fmt.Errorf("service/task: next position: %w", err)
	}
	task.Position = pos

	// A task created straight into done gets its completion stamp.
	task.SetStatus(task.Status, s.now().UTC())

	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("service/task: creating task: %w", err)
	}

	s.logger.Info("task created",
		slog.Int64("taskID", task.ID),
		slog.Int64("userID", userID),
	)
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, userID, id int64) (*model.Task, error) {
	task, err := s.tasks.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.access.canViewTask(ctx, task, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Forbidden("you are not allowed to view this task")
	}
	return task, nil
}

// List returns the tasks visible to the caller that match opts. Filtering
// by project additionally requires membership of that project.
func (s *TaskService) List(ctx context.Context, userID int64, opts TaskListOptions) ([]model.Task, error) {
	if opts.Status != nil && !opts.Status.Valid() {
		return nil, apperror.ValidationFailed("status", "unknown status "+string(*opts.Status))
	}
	if opts.Priority != nil && !opts.Priority.Valid() {
		return nil, apperror.ValidationFailed("priority", "unknown priority "+string(*opts.Priority))
	}
	if opts.ProjectID != nil {
		if _, err := s.access.member(ctx, *opts.ProjectID, userID); err != nil {
			return nil, err
		}
	}

	tasks, err := s.tasks.ListTasks(ctx, repository.TaskFilter{
		UserID:      userID,
		ProjectID:   opts.ProjectID,
		BoardID:     opts.BoardID,
		Status:      opts.Status,
		Priority:    opts.Priority,
		AssigneeID:  opts.AssigneeID,
		TagID:       opts.TagID,
		Search:      opts.Search,
		ListOptions: clampList(opts.Limit, opts.Offset),
	})
	if err != nil {
		return nil, fmt.Errorf("service/task: listing tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) Update(ctx context.Context, userID, id int64, upd TaskUpdate) (*model.Task, error) {
	task, err := s.editable(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		task.Title = sanitize.Text(*upd.Title)
	}
	if upd.Description != nil {
		task.Description = sanitize.RichText(*upd.Description)
	}
	if upd.Priority != nil {
		task.Priority = *upd.Priority
	}
	switch {
	case upd.ClearDueDate:
		task.DueDate = nil
	case upd.DueDate != nil:
		task.DueDate = upd.DueDate
	}
	switch {
	case upd.ClearAssignee:
		task.AssigneeID = nil
	case upd.AssigneeID != nil:
		task.AssigneeID = upd.AssigneeID
	}
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return nil, apperror.ValidationFailed("status", "unknown status "+string(*upd.Status))
		}
		task.SetStatus(*upd.Status, s.now().UTC())
	}

	if err := validateTask(task); err != nil {
		return nil, err
	}
	if upd.AssigneeID != nil {
		if err := s.checkPlacement(ctx, task); err != nil {
			return nil, err
		}
	}
	if err := s.tasks.UpdateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("service/task: updating task %d: %w", id, err)
	}
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, userID, id int64) error {
	task, err := s.tasks.GetTask(ctx, id)
	if err != nil {
		return err
	}
	ok, err := s.access.canDeleteTask(ctx, task, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Forbidden("you are not allowed to delete this task")
	}
	if err := s.tasks.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("service/task: deleting task %d: %w", id, err)
	}

	s.logger.Info("task deleted",
		slog.Int64("taskID", id),
		slog.Int64("userID", userID),
	)
	return nil
}

// Move changes the board and position of a task within its project.
func (s *TaskService) Move(ctx context.Context, userID, id int64, in MoveInput) (*model.Task, error) {
	task, err := s.editable(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	task.BoardID = in.BoardID
	if err := s.checkPlacement(ctx, task); err != nil {
		return nil, err
	}

	if in.Position != nil {
		if *in.Position < 0 {
			return nil, apperror.ValidationFailed("position", "position must not be negative")
		}
		task.Position = *in.Position
	} else {
		pos, err := s.tasks.NextTaskPosition(ctx, task.ProjectID, task.BoardID)
		if err != nil {
			return nil, fmt.Errorf("service/task: next position: %w", err)
		}
		task.Position = pos
	}

	if err := s.tasks.UpdateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("service/task: moving task %d: %w", id, err)
	}
	return task, nil
}

// BulkUpdateStatus sets one status on many tasks. Each task is authorized
// on its own, and the write is all-or-nothing: one forbidden or missing
// task leaves every task unchanged.
func (s *TaskService) BulkUpdateStatus(ctx context.Context, userID int64, ids []int64, status model.TaskStatus) ([]model.Task, error) {
	if !status.Valid() {
		return nil, apperror.ValidationFailed("status", "unknown status "+string(status))
	}
	if len(ids) == 0 {
		return nil, apperror.ValidationFailed("taskIds", "at least one task id is required")
	}
	if len(ids) > MaxBulkTasks {
		return nil, apperror.ValidationFailed("taskIds",
			fmt.Sprintf("at most %d tasks can be updated at once", MaxBulkTasks))
	}

	now := s.now().UTC()
	seen := make(map[int64]bool, len(ids))
	batch := make([]*model.Task, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		task, err := s.editable(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		task.SetStatus(status, now)
		batch = append(batch, task)
	}

	if err := s.tasks.UpdateTaskStatuses(ctx, batch); err != nil {
		return nil, fmt.Errorf("service/task: bulk status update: %w", err)
	}

	s.logger.Info("task statuses updated",
		slog.Int("count", len(batch)),
		slog.String("status", string(status)),
		slog.Int64("userID", userID),
	)
	updated := make([]model.Task, len(batch))
	for i, t := range batch {
		updated[i] = *t
	}
	return updated, nil
}

// editable loads a task the caller may modify.
func (s *TaskService) editable(ctx context.Context, userID, id int64) (*model.Task, error) {
	task, err := s.tasks.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.access.canEditTask(ctx, task, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Forbidden("you are not allowed to edit this task")
	}
	return task, nil
}

// checkPlacement enforces that a board belongs to the task's project and
// that the assignee of a project task is a member of it.
func (s *TaskService) checkPlacement(ctx context.Context, task *model.Task) error {
	if task.BoardID != nil {
		if task.ProjectID == nil {
			return apperror.ValidationFailed("boardId", "a task without a project cannot be on a board")
		}
		board, err := s.boards.GetBoard(ctx, *task.BoardID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return apperror.ValidationFailed("boardId", "board does not exist")
			}
			return err
		}
		if board.ProjectID != *task.ProjectID {
			return apperror.ValidationFailed("boardId", "board belongs to a different project")
		}
	}

	if task.AssigneeID != nil && task.ProjectID != nil {
		if _, err := s.access.projects.GetMember(ctx, *task.ProjectID, *task.AssigneeID); err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return apperror.ValidationFailed("assigneeId", "assignee must be a member of the project")
			}
			return err
		}
	}
	return nil
}

func validateTask(t *model.Task) error {
	if err := checkLength("title", t.Title, 1, MaxTaskTitleLength); err != nil {
		return err
	}
	if err := checkLength("description", t.Description, 0, MaxTaskDescriptionLength); err != nil {
		return err
	}
	if !t.Status.Valid() {
		return apperror.ValidationFailed("status", "unknown status "+string(t.Status))
	}
	if !t.Priority.Valid() {
		return apperror.ValidationFailed("priority", "unknown priority "+string(t.Priority))
	}
	return nil
}
