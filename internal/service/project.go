package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Gur1a/CheckList/internal/apperror"
	"github.com/Gur1a/CheckList/internal/model"
	"github.com/Gur1a/CheckList/internal/repository"
	"github.com/Gur1a/CheckList/internal/sanitize"
)

const (
	MaxProjectNameLength        = 100
	MaxProjectDescriptionLength = 500
	MaxIconLength               = 10
)

type ProjectService struct {
	projects repository.ProjectRepository
	access   access
	logger   *slog.Logger
}

func NewProjectService(projects repository.ProjectRepository, logger *slog.Logger) *ProjectService {
	return &ProjectService{
		projects: projects,
		access:   access{projects: projects},
		logger:   logger,
	}
}

type ProjectInput struct {
	Name        string
	Description string
	Color       string
	Icon        string
	IsPrivate   bool
}

// ProjectUpdate is a partial update: nil fields are left alone.
type ProjectUpdate struct {
	Name        *string
	Description *string
	Color       *string
	Icon        *string
	IsPrivate   *bool
}

type ProjectListOptions struct {
	IncludeArchived bool
	Search          string
	Limit           int
	Offset          int
}

// ProjectDetail is a project as seen by one caller: the stats, and what
// the caller's role lets them do. Role is empty for a non-member viewing a
// public project.
type ProjectDetail struct {
	*model.Project
	Stats       model.ProjectStats `json:"stats"`
	Role        model.Role         `json:"role,omitempty"`
	Permissions model.Permissions  `json:"permissions"`
}

type AddMemberInput struct {
	UserID int64
	Role   model.Role
}

// Create makes the caller the project's owner.
func (s *ProjectService) Create(ctx context.Context, userID int64, in ProjectInput) (*model.Project, error) {
	project := &model.Project{
		Name:        sanitize.Text(in.Name),
		Description: sanitize.RichText(in.Description),
		Icon:        sanitize.Text(in.Icon),
		IsPrivate:   in.IsPrivate,
		CreatedBy:   userID,
	}
	if project.Icon == "" {
		project.Icon = model.DefaultProjectIcon
	}
	color, err := colorOrDefault("color", in.Color, model.DefaultProjectColor)
	if err != nil {
		return nil, err
	}
	project.Color = color

	if err := validateProject(project); err != nil {
		return nil, err
	}

	if err := s.projects.CreateProject(ctx, project); err != nil {
		s.logger.Error("failed to create project",
			slog.Int64("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/project: creating project: %w", err)
	}

	s.logger.Info("project created",
		slog.Int64("projectID", project.ID),
		slog.Int64("userID", userID),
	)
	return project, nil
}

// List returns the projects the caller is a member of.
func (s *ProjectService) List(ctx context.Context, userID int64, opts ProjectListOptions) ([]model.Project, error) {
	projects, err := s.projects.ListProjects(ctx, repository.ProjectFilter{
		UserID:          userID,
		IncludeArchived: opts.IncludeArchived,
		Search:          opts.Search,
		ListOptions:     clampList(opts.Limit, opts.Offset),
	})
	if err != nil {
		return nil, fmt.Errorf("service/project: listing projects: %w", err)
	}
	return projects, nil
}

// Get lets members see any project and everyone else see public ones.
func (s *ProjectService) Get(ctx context.Context, userID, id int64) (*ProjectDetail, error) {
	project, err := s.projects.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &ProjectDetail{Project: project}
	m, err := s.access.member(ctx, id, userID)
	switch {
	case err == nil:
		detail.Role = m.Role
		detail.Permissions = m.Permissions()
	case errors.Is(err, apperror.ErrForbidden) && !project.IsPrivate:
		detail.Permissions = model.RoleViewer.Permissions()
	default:
		return nil, err
	}

	stats, err := s.projects.ProjectStats(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/project: loading stats: %w", err)
	}
	detail.Stats = *stats
	return detail, nil
}

func (s *ProjectService) Update(ctx context.Context, userID, id int64, upd ProjectUpdate) (*model.Project, error) {
	if _, err := s.access.require(ctx, id, userID, canEditProject, "edit this project"); err != nil {
		return nil, err
	}
	project, err := s.projects.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		project.Name = sanitize.Text(*upd.Name)
	}
	if upd.Description != nil {
		project.Description = sanitize.RichText(*upd.Description)
	}
	if upd.Icon != nil {
		project.Icon = sanitize.Text(*upd.Icon)
		if project.Icon == "" {
			project.Icon = model.DefaultProjectIcon
		}
	}
	if upd.Color != nil {
		color, err := colorOrDefault("color", *upd.Color, model.DefaultProjectColor)
		if err != nil {
			return nil, err
		}
		project.Color = color
	}
	if upd.IsPrivate != nil {
		project.IsPrivate = *upd.IsPrivate
	}

	if err := validateProject(project); err != nil {
		return nil, err
	}
	if err := s.projects.UpdateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("service/project: updating project %d: %w", id, err)
	}
	return project, nil
}

// SetArchived archives or restores a project. Archived projects drop out
// of the default list but keep all their data.
func (s *ProjectService) SetArchived(ctx context.Context, userID, id int64, archived bool) (*model.Project, error) {
	if _, err := s.access.require(ctx, id, userID, canEditProject, "archive this project"); err != nil {
		return nil, err
	}
	project, err := s.projects.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	project.IsArchived = archived
	if err := s.projects.UpdateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("service/project: archiving project %d: %w", id, err)
	}

	s.logger.Info("project archive state changed",
		slog.Int64("projectID", id),
		slog.Bool("archived", archived),
	)
	return project, nil
}

func (s *ProjectService) Delete(ctx context.Context, userID, id int64) error {
	if _, err := s.access.require(ctx, id, userID,
		func(p model.Permissions) bool { return p.DeleteProject }, "delete this project"); err != nil {
		return err
	}
	if err := s.projects.DeleteProject(ctx, id); err != nil {
		return fmt.Errorf("service/project: deleting project %d: %w", id, err)
	}

	s.logger.Info("project deleted",
		slog.Int64("projectID", id),
		slog.Int64("userID", userID),
	)
	return nil
}

// =========================================================================
// MEMBERS
// =========================================================================

func (s *ProjectService) ListMembers(ctx context.Context, userID, projectID int64) ([]model.Member, error) {
	if _, err := s.access.member(ctx, projectID, userID); err != nil {
		return nil, err
	}
	members, err := s.projects.ListMembers(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("service/project: listing members: %w", err)
	}
	return members, nil
}

// AddMember invites an existing user. A project has exactly one owner, so
// the owner role cannot be granted here.
func (s *ProjectService) AddMember(ctx context.Context, userID, projectID int64, in AddMemberInput) (*model.Member, error) {
	if in.Role == "" {
		in.Role = model.RoleMember
	}
	if !in.Role.Valid() {
		return nil, apperror.ValidationFailed("role", "role must be one of admin, member, viewer")
	}
	if in.Role == model.RoleOwner {
		return nil, apperror.ValidationFailed("role", "a project can only have one owner")
	}
	if in.UserID <= 0 {
		return nil, apperror.ValidationFailed("userId", "userId is required")
	}
	if _, err := s.access.require(ctx, projectID, userID, canManageMembers, "manage members of this project"); err != nil {
		return nil, err
	}

	member := &model.Member{ProjectID: projectID, UserID: in.UserID, Role: in.Role}
	if err := s.projects.AddMember(ctx, member); err != nil {
		return nil, fmt.Errorf("service/project: adding member %d: %w", in.UserID, err)
	}

	s.logger.Info("project member added",
		slog.Int64("projectID", projectID),
		slog.Int64("memberID", in.UserID),
		slog.String("role", string(in.Role)),
	)
	return s.projects.GetMember(ctx, projectID, in.UserID)
}

// RemoveMember removes anyone but the owner.
func (s *ProjectService) RemoveMember(ctx context.Context, userID, projectID, memberID int64) error {
	if _, err := s.access.require(ctx, projectID, userID, canManageMembers, "manage members of this project"); err != nil {
		return err
	}
	target, err := s.projects.GetMember(ctx, projectID, memberID)
	if err != nil {
		return err
	}
	if target.Role == model.RoleOwner {
		return apperror.ValidationFailed("userId", "the project owner cannot be removed")
	}
	if err := s.projects.RemoveMember(ctx, projectID, memberID); err != nil {
		return fmt.Errorf("service/project: removing member %d: %w", memberID, err)
	}

	s.logger.Info("project member removed",
		slog.Int64("projectID", projectID),
		slog.Int64("memberID", memberID),
	)
	return nil
}

func validateProject(p *model.Project) error {
	if err := checkLength("name", p.Name, 1, MaxProjectNameLength); err != nil {
		return err
	}
	if err := checkLength("description", p.Description, 0, MaxProjectDescriptionLength); err != nil {
		return err
	}
	return checkLength("icon", p.Icon, 0, MaxIconLength)
}

func canEditProject(p model.Permissions) bool   { return p.EditProject }
func canManageMembers(p model.Permissions) bool { return p.ManageMembers }
