package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Gur1a/CheckList/internal/apperror"
	"github.com/Gur1a/CheckList/internal/model"
	"github.com/Gur1a/CheckList/internal/repository"
	"github.com/Gur1a/CheckList/internal/sanitize"
)

const MaxTagNameLength = 50

// TagService manages per-user labels. A tag belongs to the user who made
// it; attaching it to a task also requires edit rights on that task.
type TagService struct {
	tags   repository.TagRepository
	tasks  repository.TaskRepository
	access access
	logger *slog.Logger
}

func NewTagService(
	tags repository.TagRepository,
	tasks repository.TaskRepository,
	projects repository.ProjectRepository,
	logger *slog.Logger,
) *TagService {
	return &TagService{
		tags:   tags,
		tasks:  tasks,
		access: access{projects: projects},
		logger: logger,
	}
}

type TagInput struct {
	Name  string
	Color string
}

type TagUpdate struct {
	Name  *string
	Color *string
}

func (s *TagService) Create(ctx context.Context, userID int64, in TagInput) (*model.Tag, error) {
	tag := &model.Tag{UserID: userID, Name: sanitize.Text(in.Name)}
	if err := checkLength("name", tag.Name, 1, MaxTagNameLength); err != nil {
		return nil, err
	}
	color, err := colorOrDefault("color", in.Color, model.DefaultTagColor)
	if err != nil {
		return nil, err
	}
	tag.Color = color

	if err := s.tags.CreateTag(ctx, tag); err != nil {
		return nil, fmt.Errorf("service/tag: creating tag: %w", err)
	}
	s.logger.Info("tag created", slog.Int64("tagID", tag.ID), slog.Int64("userID", userID))
	return tag, nil
}

func (s *TagService) List(ctx context.Context, userID int64) ([]model.Tag, error) {
	tags, err := s.tags.ListTags(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/tag: listing tags: %w", err)
	}
	return tags, nil
}

func (s *TagService) Get(ctx context.Context, userID, id int64) (*model.Tag, error) {
	return s.owned(ctx, userID, id)
}

func (s *TagService) Update(ctx context.Context, userID, id int64, upd TagUpdate) (*model.Tag, error) {
	tag, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		tag.Name = sanitize.Text(*upd.Name)
		if err := checkLength("name", tag.Name, 1, MaxTagNameLength); err != nil {
			return nil, err
		}
	}
	if upd.Color != nil {
		color, err := colorOrDefault("color", *upd.Color, model.DefaultTagColor)
		if err != nil {
			return nil, err
		}
		tag.Color = color
	}
	if err := s.tags.UpdateTag(ctx, tag); err != nil {
		return nil, fmt.Errorf("service/tag: updating tag %d: %w", id, err)
	}
	return tag, nil
}

func (s *TagService) Delete(ctx context.Context, userID, id int64) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.tags.DeleteTag(ctx, id); err != nil {
		return fmt.Errorf("service/tag: deleting tag %d: %w", id, err)
	}
	s.logger.Info("tag deleted", slog.Int64("tagID", id), slog.Int64("userID", userID))
	return nil
}

func (s *TagService) Attach(ctx context.Context, userID, tagID, taskID int64) error {
	if _, err := s.owned(ctx, userID, tagID); err != nil {
		return err
	}
	if err := s.editableTask(ctx, userID, taskID); err != nil {
		return err
	}
	if err := s.tags.AttachTag(ctx, tagID, taskID); err != nil {
		return fmt.Errorf("service/tag: attaching tag %d to task %d: %w", tagID, taskID, err)
	}
	return nil
}

func (s *TagService) Detach(ctx context.Context, userID, tagID, taskID int64) error {
	if _, err := s.owned(ctx, userID, tagID); err != nil {
		return err
	}
	if err := s.editableTask(ctx, userID, taskID); err != nil {
		return err
	}
	if err := s.tags.DetachTag(ctx, tagID, taskID); err != nil {
		return fmt.Errorf("service/tag: detaching tag %d from task %d: %w", tagID, taskID, err)
	}
	return nil
}

// ListTasks returns the tasks carrying the tag, minus any the caller can
// no longer see (e.g. after leaving a project).
func (s *TagService) ListTasks(ctx context.Context, userID, tagID int64) ([]model.Task, error) {
	if _, err := s.owned(ctx, userID, tagID); err != nil {
		return nil, err
	}
	tasks, err := s.tags.ListTasksForTag(ctx, tagID)
	if err != nil {
		return nil, fmt.Errorf("service/tag: listing tasks of tag %d: %w", tagID, err)
	}

	visible := tasks[:0]
	for i := range tasks {
		ok, err := s.access.canViewTask(ctx, &tasks[i], userID)
		if err != nil {
			return nil, err
		}
		if ok {
			visible = append(visible, tasks[i])
		}
	}
	return visible, nil
}

func (s *TagService) ListForTask(ctx context.Context, userID, taskID int64) ([]model.Tag, error) {
	task, err := s.tasks.GetTask(ctx, taskID)
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
	tags, err := s.tags.ListTagsForTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("service/tag: listing tags of task %d: %w", taskID, err)
	}
	return tags, nil
}

func (s *TagService) owned(ctx context.Context, userID, id int64) (*model.Tag, error) {
	tag, err := s.tags.GetTag(ctx, id)
	if err != nil {
		return nil, err
	}
	if tag.UserID != userID {
		return nil, apperror.Forbidden("you are not allowed to use this tag")
	}
	return tag, nil
}

func (s *TagService) editableTask(ctx context.Context, userID, taskID int64) error {
	task, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	ok, err := s.access.canEditTask(ctx, task, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Forbidden("you are not allowed to edit this task")
	}
	return nil
}
