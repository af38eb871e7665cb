package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Gur1a/CheckList/internal/apperror"
	"github.com/Gur1a/CheckList/internal/model"
	"github.com/Gur1a/CheckList/internal/repository"
)

var _ repository.TaskRepository = (*DB)(nil)

const taskColumns = `t.id, t.title, t.description, t.status, t.priority, t.due_date,
	t.project_id, t.board_id, t.position, t.assignee_id, t.created_by,
	t.completed_at, t.created_at, t.updated_at`

func (db *DB) CreateTask(ctx context.Context, task *model.Task) error {
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.NamedExecContext(ctx,
			`INSERT INTO tasks (title, description, status, priority, due_date,
			                    project_id, board_id, position, assignee_id, created_by,
			                    completed_at, created_at, updated_at)
			 VALUES (:title, :description, :status, :priority, :due_date,
			         :project_id, :board_id, :position, :assignee_id, :created_by,
			         :completed_at, :created_at, :updated_at)`,
			task,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return apperror.ValidationFailed("task", "project, board or assignee does not exist")
			}
			return fmt.Errorf("sqlite: creating task %q: %w", task.Title, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading new task id: %w", err)
		}
		task.ID = id
		task.Tags = []model.Tag{}

		if task.ProjectID != nil {
			return touchProject(ctx, tx, *task.ProjectID, now)
		}
		return nil
	})
}

// GetTask returns the task with its tags loaded.
func (db *DB) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	var t model.Task
	err := db.conn.GetContext(ctx, &t,
		`SELECT `+taskColumns+` FROM tasks t WHERE t.id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("task", id)
		}
		return nil, fmt.Errorf("sqlite: getting task %d: %w", id, err)
	}

	tasks := []model.Task{t}
	if err := db.loadTags(ctx, tasks); err != nil {
		return nil, err
	}
	return &tasks[0], nil
}

// ListTasks builds its WHERE clause from whichever filter fields are set.
// The visibility clause is always present: a user sees tasks they created,
// tasks assigned to them, and tasks in projects they are a member of.
func (db *DB) ListTasks(ctx context.Context, f repository.TaskFilter) ([]model.Task, error) {
	where := []string{`(t.created_by = ? OR t.assignee_id = ? OR t.project_id IN
		(SELECT project_id FROM project_members WHERE user_id = ?))`}
	args := []any{f.UserID, f.UserID, f.UserID}

	if f.ProjectID != nil {
		where = append(where, "t.project_id = ?")
		args = append(args, *f.ProjectID)
	}
	if f.BoardID != nil {
		where = append(where, "t.board_id = ?")
		args = append(args, *f.BoardID)
	}
	if f.Status != nil {
		where = append(where, "t.status = ?")
		args = append(args, *f.Status)
	}
	if f.Priority != nil {
		where = append(where, "t.priority = ?")
		args = append(args, *f.Priority)
	}
	if f.AssigneeID != nil {
		where = append(where, "t.assignee_id = ?")
		args = append(args, *f.AssigneeID)
	}
	if f.TagID != nil {
		where = append(where, "EXISTS (SELECT 1 FROM task_tags tt WHERE tt.task_id = t.id AND tt.tag_id = ?)")
		args = append(args, *f.TagID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, "t.title LIKE ? ESCAPE '\\'")
		args = append(args, likePattern(s))
	}

	limit, offset := pageBounds(f.ListOptions)
	args = append(args, limit, offset)

	query := `SELECT ` + taskColumns + `
		FROM tasks t
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY t.position, t.created_at DESC, t.id DESC
		LIMIT ? OFFSET ?`

	tasks := make([]model.Task, 0, limit)
	if err := db.conn.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("sqlite: listing tasks for user %d: %w", f.UserID, err)
	}
	if err := db.loadTags(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (db *DB) UpdateTask(ctx context.Context, task *model.Task) error {
	now := time.Now().UTC()
	task.UpdatedAt = now

	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := updateTask(ctx, tx, task); err != nil {
			return err
		}
		if task.ProjectID != nil {
			return touchProject(ctx, tx, *task.ProjectID, now)
		}
		return nil
	})
}

func (db *DB) DeleteTask(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting task %d: %w", id, err)
	}
	return checkAffected(result, "task", id)
}

// NextTaskPosition uses IS rather than = so a NULL project or board
// matches other NULLs.
func (db *DB) NextTaskPosition(ctx context.Context, projectID, boardID *int64) (int, error) {
	var pos int
	err := db.conn.GetContext(ctx, &pos,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM tasks
		 WHERE project_id IS ? AND board_id IS ?`,
		projectID, boardID,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: next task position: %w", err)
	}
	return pos, nil
}

// UpdateTaskStatuses writes every task in one transaction. If any task
// has vanished the whole batch is rolled back.
func (db *DB) UpdateTaskStatuses(ctx context.Context, tasks []*model.Task) error {
	now := time.Now().UTC()

	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, task := range tasks {
			task.UpdatedAt = now
			result, err := tx.ExecContext(ctx,
				`UPDATE tasks SET status = ?, completed_at = ?, updated_at = ? WHERE id = ?`,
				task.Status, task.CompletedAt, task.UpdatedAt, task.ID,
			)
			if err != nil {
				return fmt.Errorf("sqlite: updating status of task %d: %w", task.ID, err)
			}
			if err := checkAffected(result, "task", task.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func updateTask(ctx context.Context, tx *sqlx.Tx, task *model.Task) error {
	result, err := tx.NamedExecContext(ctx,
		`UPDATE tasks
		 SET title = :title, description = :description, status = :status,
		     priority = :priority, due_date = :due_date, project_id = :project_id,
		     board_id = :board_id, position = :position, assignee_id = :assignee_id,
		     completed_at = :completed_at, updated_at = :updated_at
		 WHERE id = :id`,
		task,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.ValidationFailed("task", "project, board or assignee does not exist")
		}
		return fmt.Errorf("sqlite: updating task %d: %w", task.ID, err)
	}
	return checkAffected(result, "task", task.ID)
}

// taskTagRow is one task_tags row joined with its tag.
type taskTagRow struct {
	TaskID int64 `db:"task_id"`
	model.Tag
}

// loadTags fills Tags on every task with a single IN query instead of one
// query per task.
func (db *DB) loadTags(ctx context.Context, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	ids := make([]int64, len(tasks))
	byID := make(map[int64]*model.Task, len(tasks))
	for i := range tasks {
		ids[i] = tasks[i].ID
		tasks[i].Tags = []model.Tag{}
		byID[tasks[i].ID] = &tasks[i]
	}

	// sqlx.In expands the single ? into one placeholder per id.
	query, args, err := sqlx.In(
		`SELECT tt.task_id, `+tagColumns+`
		 FROM task_tags tt JOIN tags g ON g.id = tt.tag_id
		 WHERE tt.task_id IN (?)
		 ORDER BY g.name`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("sqlite: building tag query: %w", err)
	}

	var rows []taskTagRow
	if err := db.conn.SelectContext(ctx, &rows, db.conn.Rebind(query), args...); err != nil {
		return fmt.Errorf("sqlite: loading task tags: %w", err)
	}
	for _, r := range rows {
		if t, ok := byID[r.TaskID]; ok {
			t.Tags = append(t.Tags, r.Tag)
		}
	}
	return nil
}
