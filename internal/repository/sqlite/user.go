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

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, email, password_hash, github_id, avatar_url,
	is_active, last_login_at, created_at, updated_at`

// CreateUser inserts a password-based account and fills in ID and
// timestamps. A taken username or email comes back as a Conflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	// NamedExecContext fills :name placeholders from the struct's db tags.
	result, err := db.conn.NamedExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, github_id, avatar_url,
		                    is_active, last_login_at, created_at, updated_at)
		 VALUES (:username, :email, :password_hash, :github_id, :avatar_url,
		         :is_active, :last_login_at, :created_at, :updated_at)`,
		user,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", uniqueUserField(err, user))
		}
		return fmt.Errorf("sqlite: creating user %q: %w", user.Username, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}
	user.ID = id
	return nil
}

// uniqueUserField names the column that collided, for the error message.
func uniqueUserField(err error, user *model.User) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "users.email"):
		return "email " + user.Email
	case strings.Contains(msg, "users.github_id"):
		return "github account"
	default:
		return "username " + user.Username
	}
}

// GetUserByID returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := db.conn.GetContext(ctx, &u,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}
	return &u, nil
}

// GetUserByLogin looks the user up by username or email, case-insensitively.
func (db *DB) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	var u model.User
	err := db.conn.GetContext(ctx, &u,
		`SELECT `+userColumns+` FROM users
		 WHERE username = ? COLLATE NOCASE OR email = ? COLLATE NOCASE
		 LIMIT 1`,
		login, login,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", login)
		}
		return nil, fmt.Errorf("sqlite: getting user by login: %w", err)
	}
	return &u, nil
}

// UpsertGitHubUser finds the account linked to user.GitHubID and refreshes
// its avatar, or creates a new one. On return user holds the stored row.
//
// A new GitHub account whose login is already taken as a username gets
// "<login>-<githubID>" instead, so two people never share a username.
func (db *DB) UpsertGitHubUser(ctx context.Context, user *model.User) error {
	if user.GitHubID == nil {
		return fmt.Errorf("sqlite: upserting github user: missing github id")
	}
	ghID := *user.GitHubID

	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		var existing model.User
		err := tx.GetContext(ctx, &existing,
			`SELECT `+userColumns+` FROM users WHERE github_id = ?`, ghID)

		switch {
		case err == nil:
			existing.AvatarURL = user.AvatarURL
			existing.UpdatedAt = time.Now().UTC()
			if _, err := tx.ExecContext(ctx,
				`UPDATE users SET avatar_url = ?, updated_at = ? WHERE id = ?`,
				existing.AvatarURL, existing.UpdatedAt, existing.ID,
			); err != nil {
				return fmt.Errorf("sqlite: updating github user %d: %w", existing.ID, err)
			}
			*user = existing
			return nil

		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("sqlite: looking up github id %d: %w", ghID, err)
		}

		var taken int
		if err := tx.GetContext(ctx, &taken,
			`SELECT COUNT(*) FROM users WHERE username = ? COLLATE NOCASE`, user.Username,
		); err != nil {
			return fmt.Errorf("sqlite: checking username: %w", err)
		}
		if taken > 0 {
			user.Username = fmt.Sprintf("%s-%d", user.Username, ghID)
		}

		now := time.Now().UTC()
		user.IsActive = true
		user.CreatedAt = now
		user.UpdatedAt = now

		result, err := tx.NamedExecContext(ctx,
			`INSERT INTO users (username, email, password_hash, github_id, avatar_url,
			                    is_active, created_at, updated_at)
			 VALUES (:username, :email, '', :github_id, :avatar_url,
			         :is_active, :created_at, :updated_at)`,
			user,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("user", uniqueUserField(err, user))
			}
			return fmt.Errorf("sqlite: inserting github user %d: %w", ghID, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading new user id: %w", err)
		}
		user.ID = id
		return nil
	})
}

func (db *DB) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: touching last login for user %d: %w", id, err)
	}
	return checkAffected(result, "user", id)
}
