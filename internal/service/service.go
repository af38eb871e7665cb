// Package service contains the business rules of the application.
//
// THE LAYERS:
//
//	Handler (HTTP)     → parses requests, writes responses
//	Service (rules)    → validates, checks permissions, orchestrates
//	Repository (data)  → reads/writes SQLite
//
// Services take repository INTERFACES, not *sqlite.DB, so the tests in this
// package run against in-memory fakes and never touch a database.
//
// PERMISSIONS:
// Every operation on project data resolves the caller's membership first
// and checks the capability its role grants (see model.Role.Permissions).
// A project identifier that arrived obfuscated is no proof of access; the
// membership check is what authorizes the request.
package service

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/Gur1a/CheckList/internal/apperror"
	"github.com/Gur1a/CheckList/internal/model"
	"github.com/Gur1a/CheckList/internal/repository"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// validate is shared by every service. validator.Validate caches struct
// metadata and is safe for concurrent use.
var validate = validator.New()

// clampList applies the default page size and caps it.
func clampList(limit, offset int) repository.ListOptions {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return repository.ListOptions{Limit: limit, Offset: offset}
}

// checkLength counts characters, not bytes, so "📋" is one.
func checkLength(field, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	switch {
	case n < min && min == 1:
		return apperror.ValidationFailed(field, field+" is required")
	case n < min:
		return apperror.ValidationFailed(field,
			fmt.Sprintf("%s must be at least %d characters", field, min))
	case n > max:
		return apperror.ValidationFailed(field,
			fmt.Sprintf("%s must be %d characters or less", field, max))
	}
	return nil
}

// colorOrDefault accepts "#rgb" or "#rrggbb"; empty means def.
func colorOrDefault(field, color, def string) (string, error) {
	if color == "" {
		return def, nil
	}
	if err := validate.Var(color, "hexcolor"); err != nil {
		return "", apperror.ValidationFailed(field, field+" must be a hex color like #1a2b3c")
	}
	return color, nil
}

// =========================================================================
// PROJECT ACCESS
// =========================================================================

// access answers "what may this user do in this project?". It is shared by
// the project, board, task and tag services.
type access struct {
	projects repository.ProjectRepository
}

// member returns the caller's membership. A project that does not exist
// is NotFound; one the caller is not in is Forbidden.
func (a access) member(ctx context.Context, projectID, userID int64) (*model.Member, error) {
	m, err := a.projects.GetMember(ctx, projectID, userID)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service: resolving membership in project %d: %w", projectID, err)
	}
	if _, err := a.projects.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return nil, apperror.Forbidden("you are not a member of this project")
}

// require returns the membership if its role grants the capability chosen
// by allowed; action completes the sentence "you are not allowed to ...".
func (a access) require(ctx context.Context, projectID, userID int64, allowed func(model.Permissions) bool, action string) (*model.Member, error) {
	m, err := a.member(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if !allowed(m.Permissions()) {
		return nil, apperror.Forbidden("you are not allowed to " + action)
	}
	return m, nil
}

// canViewTask: creator, assignee, or any member of the task's project.
func (a access) canViewTask(ctx context.Context, task *model.Task, userID int64) (bool, error) {
	if task.CreatedBy == userID || (task.AssigneeID != nil && *task.AssigneeID == userID) {
		return true, nil
	}
	if task.ProjectID == nil {
		return false, nil
	}
	return a.hasPermission(ctx, *task.ProjectID, userID, func(model.Permissions) bool { return true })
}

// canEditTask: creator, or a project member whose role may edit tasks.
func (a access) canEditTask(ctx context.Context, task *model.Task, userID int64) (bool, error) {
	if task.CreatedBy == userID {
		return true, nil
	}
	if task.ProjectID == nil {
		return false, nil
	}
	return a.hasPermission(ctx, *task.ProjectID, userID, func(p model.Permissions) bool { return p.EditTasks })
}

// canDeleteTask: creator, or a project member whose role may delete tasks.
func (a access) canDeleteTask(ctx context.Context, task *model.Task, userID int64) (bool, error) {
	if task.CreatedBy == userID {
		return true, nil
	}
	if task.ProjectID == nil {
		return false, nil
	}
	return a.hasPermission(ctx, *task.ProjectID, userID, func(p model.Permissions) bool { return p.DeleteTasks })
}

func (a access) hasPermission(ctx context.Context, projectID, userID int64, allowed func(model.Permissions) bool) (bool, error) {
	m, err := a.projects.GetMember(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("service: resolving membership in project %d: %w", projectID, err)
	}
	return allowed(m.Permissions()), nil
}
