package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Gur1a/CheckList/internal/apperror"
	"github.com/Gur1a/CheckList/internal/model"
	"github.com/Gur1a/CheckList/internal/repository"
)

var _ repository.TagRepository = (*DB)(nil)

const tagColumns = `g.id, g.user_id, g.name, g.color, g.created_at, g.updated_at`

// CreateTag reports a Conflict when the user already has a tag by that name.
func (db *DB) CreateTag(ctx context.Context, tag *model.Tag) error {
	now := time.Now().UTC()
	tag.CreatedAt = now
	tag.UpdatedAt = now

	result, err := db.conn.NamedExecContext(ctx,
		`INSERT INTO tags (user_id, name, color, created_at, updated_at)
		 VALUES (:user_id, :name, :color, :created_at, :updated_at)`,
		tag,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("tag", tag.Name)
		}
		return fmt.Errorf("sqlite: creating tag %q: %w", tag.Name, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new tag id: %w", err)
	}
	tag.ID = id
	return nil
}

func (db *DB) GetTag(ctx context.Context, id int64) (*model.Tag, error) {
	var t model.Tag
	err := db.conn.GetContext(ctx, &t,
		`SELECT `+tagColumns+` FROM tags g WHERE g.id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("tag", id)
		}
		return nil, fmt.Errorf("sqlite: getting tag %d: %w", id, err)
	}
	return &t, nil
}

func (db *DB) ListTags(ctx context.Context, userID int64) ([]model.Tag, error) {
	tags := []model.Tag{}
	err := db.conn.SelectContext(ctx, &tags,
		`SELECT `+tagColumns+` FROM tags g WHERE g.user_id = ? ORDER BY g.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tags of user %d: %w", userID, err)
	}
	return tags, nil
}

func (db *DB) UpdateTag(ctx context.Context, tag *model.Tag) error {
	tag.UpdatedAt = time.Now().UTC()

	result, err := db.conn.NamedExecContext(ctx,
		`UPDATE tags SET name = :name, color = :color, updated_at = :updated_at
		 WHERE id = :id`,
		tag,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("tag", tag.Name)
		}
		return fmt.Errorf("sqlite: updating tag %d: %w", tag.ID, err)
	}
	return checkAffected(result, "tag", tag.ID)
}

// DeleteTag removes the tag; its task_tags rows cascade.
func (db *DB) DeleteTag(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting tag %d: %w", id, err)
	}
	return checkAffected(result, "tag", id)
}

// AttachTag is idempotent: attaching a tag twice is not an error.
func (db *DB) AttachTag(ctx context.Context, tagID, taskID int64) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO task_tags (task_id, tag_id) VALUES (?, ?)`,
		taskID, tagID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("task or tag", fmt.Sprintf("%d/%d", taskID, tagID))
		}
		return fmt.Errorf("sqlite: attaching tag %d to task %d: %w", tagID, taskID, err)
	}
	return nil
}

func (db *DB) DetachTag(ctx context.Context, tagID, taskID int64) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM task_tags WHERE task_id = ? AND tag_id = ?`, taskID, tagID)
	if err != nil {
		return fmt.Errorf("sqlite: detaching tag %d from task %d: %w", tagID, taskID, err)
	}
	return checkAffected(result, "task tag", fmt.Sprintf("%d/%d", taskID, tagID))
}

func (db *DB) ListTagsForTask(ctx context.Context, taskID int64) ([]model.Tag, error) {
	tags := []model.Tag{}
	err := db.conn.SelectContext(ctx, &tags,
		`SELECT `+tagColumns+`
		 FROM tags g JOIN task_tags tt ON tt.tag_id = g.id
		 WHERE tt.task_id = ?
		 ORDER BY g.name`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tags of task %d: %w", taskID, err)
	}
	return tags, nil
}

// ListTasksForTag returns the tagged tasks, newest first, with their tags.
func (db *DB) ListTasksForTag(ctx context.Context, tagID int64) ([]model.Task, error) {
	tasks := []model.Task{}
	err := db.conn.SelectContext(ctx, &tasks,
		`SELECT `+taskColumns+`
		 FROM tasks t JOIN task_tags tt ON tt.task_id = t.id
		 WHERE tt.tag_id = ?
		 ORDER BY t.created_at DESC, t.id DESC`,
		tagID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tasks of tag %d: %w", tagID, err)
	}
	if err := db.loadTags(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}
