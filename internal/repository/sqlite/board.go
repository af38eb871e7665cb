package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Gur1a/CheckList/internal/apperror"
	"github.com/Gur1a/CheckList/internal/model"
	"github.com/Gur1a/CheckList/internal/repository"
)

var _ repository.BoardRepository = (*DB)(nil)

const boardColumns = `id, project_id, name, description, color, position,
	is_default, wip_limit, created_by, created_at, updated_at`

// CreateBoard inserts the board. If it is marked default, every other
// board of the project loses the flag in the same transaction.
func (db *DB) CreateBoard(ctx context.Context, board *model.Board) error {
	now := time.Now().UTC()
	board.CreatedAt = now
	board.UpdatedAt = now

	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		if board.IsDefault {
			if err := clearDefaultBoard(ctx, tx, board.ProjectID, 0); err != nil {
				return err
			}
		}

		result, err := tx.NamedExecContext(ctx,
			`INSERT INTO boards (project_id, name, description, color, position,
			                     is_default, wip_limit, created_by, created_at, updated_at)
			 VALUES (:project_id, :name, :description, :color, :position,
			         :is_default, :wip_limit, :created_by, :created_at, :updated_at)`,
			board,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return apperror.NotFound("project", board.ProjectID)
			}
			return fmt.Errorf("sqlite: creating board %q: %w", board.Name, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading new board id: %w", err)
		}
		board.ID = id
		return touchProject(ctx, tx, board.ProjectID, now)
	})
}

func (db *DB) GetBoard(ctx context.Context, id int64) (*model.Board, error) {
	var b model.Board
	err := db.conn.GetContext(ctx, &b,
		`SELECT `+boardColumns+` FROM boards WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("board", id)
		}
		return nil, fmt.Errorf("sqlite: getting board %d: %w", id, err)
	}
	return &b, nil
}

// ListBoards returns the project's boards in display order.
func (db *DB) ListBoards(ctx context.Context, projectID int64) ([]model.Board, error) {
	boards := []model.Board{}
	err := db.conn.SelectContext(ctx, &boards,
		`SELECT `+boardColumns+` FROM boards
		 WHERE project_id = ?
		 ORDER BY position, id`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing boards of project %d: %w", projectID, err)
	}
	return boards, nil
}

func (db *DB) UpdateBoard(ctx context.Context, board *model.Board) error {
	now := time.Now().UTC()
	board.UpdatedAt = now

	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		if board.IsDefault {
			if err := clearDefaultBoard(ctx, tx, board.ProjectID, board.ID); err != nil {
				return err
			}
		}

		result, err := tx.NamedExecContext(ctx,
			`UPDATE boards
			 SET name = :name, description = :description, color = :color,
			     position = :position, is_default = :is_default,
			     wip_limit = :wip_limit, updated_at = :updated_at
			 WHERE id = :id`,
			board,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating board %d: %w", board.ID, err)
		}
		if err := checkAffected(result, "board", board.ID); err != nil {
			return err
		}
		return touchProject(ctx, tx, board.ProjectID, now)
	})
}

// DeleteBoard detaches the board's tasks before removing it, so tasks
// survive with board_id NULL.
func (db *DB) DeleteBoard(ctx context.Context, id int64) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE tasks SET board_id = NULL, updated_at = ? WHERE board_id = ?`,
			time.Now().UTC(), id,
		); err != nil {
			return fmt.Errorf("sqlite: detaching tasks from board %d: %w", id, err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM boards WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("sqlite: deleting board %d: %w", id, err)
		}
		return checkAffected(result, "board", id)
	})
}

func (db *DB) NextBoardPosition(ctx context.Context, projectID int64) (int, error) {
	var pos int
	err := db.conn.GetContext(ctx, &pos,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM boards WHERE project_id = ?`,
		projectID,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: next board position for project %d: %w", projectID, err)
	}
	return pos, nil
}

// ReorderBoards writes every position or none. A board that does not
// belong to projectID aborts the whole reorder with NotFound.
func (db *DB) ReorderBoards(ctx context.Context, projectID int64, positions []model.BoardPosition) error {
	now := time.Now().UTC()

	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, p := range positions {
			result, err := tx.ExecContext(ctx,
				`UPDATE boards SET position = ?, updated_at = ?
				 WHERE id = ? AND project_id = ?`,
				p.Position, now, p.ID, projectID,
			)
			if err != nil {
				return fmt.Errorf("sqlite: moving board %d: %w", p.ID, err)
			}
			if err := checkAffected(result, "board", p.ID); err != nil {
				return err
			}
		}
		return touchProject(ctx, tx, projectID, now)
	})
}

// clearDefaultBoard drops the default flag from every board of the
// project except keepID.
func clearDefaultBoard(ctx context.Context, tx *sqlx.Tx, projectID, keepID int64) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE boards SET is_default = 0 WHERE project_id = ? AND id != ?`,
		projectID, keepID,
	); err != nil {
		return fmt.Errorf("sqlite: clearing default board of project %d: %w", projectID, err)
	}
	return nil
}

// touchProject bumps last_activity so recently worked-on projects sort first.
func touchProject(ctx context.Context, tx *sqlx.Tx, projectID int64, at time.Time) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE projects SET last_activity = ? WHERE id = ?`, at, projectID,
	); err != nil {
		return fmt.Errorf("sqlite: touching project %d: %w", projectID, err)
	}
	return nil
}
