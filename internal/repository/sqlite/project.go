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

var _ repository.ProjectRepository = (*DB)(nil)

const projectColumns = `p.id, p.name, p.description, p.color, p.icon, p.is_private,
	p.is_archived, p.created_by, p.last_activity, p.created_at, p.updated_at`

// CreateProject inserts the project and makes its creator the owner in one
// transaction, so there is never a project without an owner.
func (db *DB) CreateProject(ctx context.Context, project *model.Project) error {
	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now
	project.LastActivity = now

	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.NamedExecContext(ctx,
			`INSERT INTO projects (name, description, color, icon, is_private, is_archived,
			                       created_by, last_activity, created_at, updated_at)
			 VALUES (:name, :description, :color, :icon, :is_private, :is_archived,
			         :created_by, :last_activity, :created_at, :updated_at)`,
			project,
		)
		if err != nil {
			return fmt.Errorf("sqlite: creating project %q: %w", project.Name, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading new project id: %w", err)
		}
		project.ID = id

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO project_members (project_id, user_id, role, joined_at)
			 VALUES (?, ?, ?, ?)`,
			project.ID, project.CreatedBy, model.RoleOwner, now,
		); err != nil {
			return fmt.Errorf("sqlite: adding owner to project %d: %w", project.ID, err)
		}
		return nil
	})
}

func (db *DB) GetProject(ctx context.Context, id int64) (*model.Project, error) {
	var p model.Project
	err := db.conn.GetContext(ctx, &p,
		`SELECT `+projectColumns+` FROM projects p WHERE p.id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("project", id)
		}
		return nil, fmt.Errorf("sqlite: getting project %d: %w", id, err)
	}
	return &p, nil
}

// ListProjects returns projects f.UserID is a member of, most recently
// active first.
func (db *DB) ListProjects(ctx context.Context, f repository.ProjectFilter) ([]model.Project, error) {
	var (
		where = []string{"m.user_id = ?"}
		args  = []any{f.UserID}
	)
	if !f.IncludeArchived {
		where = append(where, "p.is_archived = 0")
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, "p.name LIKE ? ESCAPE '\\'")
		args = append(args, likePattern(s))
	}

	limit, offset := pageBounds(f.ListOptions)
	args = append(args, limit, offset)

	query := `SELECT ` + projectColumns + `
		FROM projects p
		JOIN project_members m ON m.project_id = p.id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY p.last_activity DESC, p.id DESC
		LIMIT ? OFFSET ?`

	projects := make([]model.Project, 0, limit)
	if err := db.conn.SelectContext(ctx, &projects, query, args...); err != nil {
		return nil, fmt.Errorf("sqlite: listing projects for user %d: %w", f.UserID, err)
	}
	return projects, nil
}

func (db *DB) UpdateProject(ctx context.Context, project *model.Project) error {
	now := time.Now().UTC()
	project.UpdatedAt = now
	project.LastActivity = now

	result, err := db.conn.NamedExecContext(ctx,
		`UPDATE projects
		 SET name = :name, description = :description, color = :color, icon = :icon,
		     is_private = :is_private, is_archived = :is_archived,
		     last_activity = :last_activity, updated_at = :updated_at
		 WHERE id = :id`,
		project,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating project %d: %w", project.ID, err)
	}
	return checkAffected(result, "project", project.ID)
}

// DeleteProject removes the project. Members, boards and tasks go with it
// through ON DELETE CASCADE.
func (db *DB) DeleteProject(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting project %d: %w", id, err)
	}
	return checkAffected(result, "project", id)
}

func (db *DB) ProjectStats(ctx context.Context, id int64) (*model.ProjectStats, error) {
	var stats model.ProjectStats
	err := db.conn.GetContext(ctx, &stats,
		`SELECT
		   (SELECT COUNT(*) FROM tasks WHERE project_id = ?)                    AS total_tasks,
		   (SELECT COUNT(*) FROM tasks WHERE project_id = ? AND status = 'done') AS completed_tasks,
		   (SELECT COUNT(*) FROM project_members WHERE project_id = ?)          AS member_count`,
		id, id, id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: project %d stats: %w", id, err)
	}
	return &stats, nil
}

// =========================================================================
// MEMBERS
// =========================================================================

const memberColumns = `m.project_id, m.user_id, m.role, m.joined_at, u.username, u.email`

// GetMember returns apperror.ErrNotFound when the user is not in the project.
func (db *DB) GetMember(ctx context.Context, projectID, userID int64) (*model.Member, error) {
	var m model.Member
	err := db.conn.GetContext(ctx, &m,
		`SELECT `+memberColumns+`
		 FROM project_members m JOIN users u ON u.id = m.user_id
		 WHERE m.project_id = ? AND m.user_id = ?`,
		projectID, userID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("member", userID)
		}
		return nil, fmt.Errorf("sqlite: getting member %d of project %d: %w", userID, projectID, err)
	}
	return &m, nil
}

// ListMembers orders owner first, then by join time.
func (db *DB) ListMembers(ctx context.Context, projectID int64) ([]model.Member, error) {
	members := []model.Member{}
	err := db.conn.SelectContext(ctx, &members,
		`SELECT `+memberColumns+`
		 FROM project_members m JOIN users u ON u.id = m.user_id
		 WHERE m.project_id = ?
		 ORDER BY CASE m.role
		            WHEN 'owner' THEN 0 WHEN 'admin' THEN 1
		            WHEN 'member' THEN 2 ELSE 3 END,
		          m.joined_at, m.user_id`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing members of project %d: %w", projectID, err)
	}
	return members, nil
}

func (db *DB) AddMember(ctx context.Context, member *model.Member) error {
	member.JoinedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO project_members (project_id, user_id, role, joined_at)
		 VALUES (?, ?, ?, ?)`,
		member.ProjectID, member.UserID, member.Role, member.JoinedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return apperror.Conflict("member", fmt.Sprintf("user %d", member.UserID))
		case isForeignKeyViolation(err):
			return apperror.NotFound("user", member.UserID)
		}
		return fmt.Errorf("sqlite: adding member %d to project %d: %w", member.UserID, member.ProjectID, err)
	}
	return nil
}

func (db *DB) RemoveMember(ctx context.Context, projectID, userID int64) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM project_members WHERE project_id = ? AND user_id = ?`,
		projectID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing member %d from project %d: %w", userID, projectID, err)
	}
	return checkAffected(result, "member", userID)
}

// =========================================================================
// HELPERS
// =========================================================================

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func pageBounds(opts repository.ListOptions) (limit, offset int) {
	limit = opts.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset = opts.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// likePattern wraps s in % after escaping LIKE metacharacters.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
