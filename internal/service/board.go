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

const (
	MaxBoardNameLength        = 50
	MaxBoardDescriptionLength = 500
)

// BoardService manages the columns of a project. Every method takes the
// project id separately from the board id: the handler gets it from the
// encryptedProjectId query parameter, and a board outside that project is
// reported as not found.
type BoardService struct {
	boards repository.BoardRepository
	access access
	logger *slog.Logger
}

func NewBoardService(boards repository.BoardRepository, projects repository.ProjectRepository, logger *slog.Logger) *BoardService {
	return &BoardService{
		boards: boards,
		access: access{projects: projects},
		logger: logger,
	}
}

type BoardInput struct {
	Name        string
	Description string
	Color       string
	Position    *int // nil appends after the last board
	IsDefault   bool
	WIPLimit    int
}

type BoardUpdate struct {
	Name        *string
	Description *string
	Color       *string
	Position    *int
	IsDefault   *bool
	WIPLimit    *int
}

func (s *BoardService) Create(ctx context.Context, userID, projectID int64, in BoardInput) (*model.Board, error) {
	if _, err := s.access.require(ctx, projectID, userID, canManageBoards, "manage boards in this project"); err != nil {
		return nil, err
	}

	board := &model.Board{
		ProjectID:   projectID,
		Name:        sanitize.Text(in.Name),
		Description: sanitize.Text(in.Description),
		IsDefault:   in.IsDefault,
		WIPLimit:    in.WIPLimit,
		CreatedBy:   userID,
	}
	color, err := colorOrDefault("color", in.Color, model.DefaultBoardColor)
	if err != nil {
		return nil, err
	}
	board.Color = color

	if in.Position != nil {
		board.Position = *in.Position
	} else {
		pos, err := s.boards.NextBoardPosition(ctx, projectID)
		if err != nil {
			return nil, fmt.Errorf("service/board: next position: %w", err)
		}
		board.Position = pos
	}

	if err := validateBoard(board); err != nil {
		return nil, err
	}
	if err := s.boards.CreateBoard(ctx, board); err != nil {
		return nil, fmt.Errorf("service/board: creating board: %w", err)
	}

	s.logger.Info("board created",
		slog.Int64("boardID", board.ID),
		slog.Int64("projectID", projectID),
	)
	return board, nil
}

func (s *BoardService) List(ctx context.Context, userID, projectID int64) ([]model.Board, error) {
	if _, err := s.access.member(ctx, projectID, userID); err != nil {
		return nil, err
	}
	boards, err := s.boards.ListBoards(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("service/board: listing boards: %w", err)
	}
	return boards, nil
}

func (s *BoardService) Get(ctx context.Context, userID, projectID, id int64) (*model.Board, error) {
	if _, err := s.access.member(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.boardInProject(ctx, projectID, id)
}

func (s *BoardService) Update(ctx context.Context, userID, projectID, id int64, upd BoardUpdate) (*model.Board, error) {
	if _, err := s.access.require(ctx, projectID, userID, canManageBoards, "manage boards in this project"); err != nil {
		return nil, err
	}
	board, err := s.boardInProject(ctx, projectID, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		board.Name = sanitize.Text(*upd.Name)
	}
	if upd.Description != nil {
		board.Description = sanitize.Text(*upd.Description)
	}
	if upd.Color != nil {
		color, err := colorOrDefault("color", *upd.Color, model.DefaultBoardColor)
		if err != nil {
			return nil, err
		}
		board.Color = color
	}
	if upd.Position != nil {
		board.Position = *upd.Position
	}
	if upd.IsDefault != nil {
		board.IsDefault = *upd.IsDefault
	}
	if upd.WIPLimit != nil {
		board.WIPLimit = *upd.WIPLimit
	}

	if err := validateBoard(board); err != nil {
		return nil, err
	}
	if err := s.boards.UpdateBoard(ctx, board); err != nil {
		return nil, fmt.Errorf("service/board: updating board %d: %w", id, err)
	}
	return board, nil
}

// Delete keeps the board's tasks; they fall back to having no board.
func (s *BoardService) Delete(ctx context.Context, userID, projectID, id int64) error {
	if _, err := s.access.require(ctx, projectID, userID, canManageBoards, "manage boards in this project"); err != nil {
		return err
	}
	if _, err := s.boardInProject(ctx, projectID, id); err != nil {
		return err
	}
	if err := s.boards.DeleteBoard(ctx, id); err != nil {
		return fmt.Errorf("service/board: deleting board %d: %w", id, err)
	}

	s.logger.Info("board deleted",
		slog.Int64("boardID", id),
		slog.Int64("projectID", projectID),
	)
	return nil
}

// Reorder applies a new order in one transaction. Every board must belong
// to the project and appear at most once.
func (s *BoardService) Reorder(ctx context.Context, userID, projectID int64, positions []model.BoardPosition) ([]model.Board, error) {
	if len(positions) == 0 {
		return nil, apperror.ValidationFailed("boards", "at least one board position is required")
	}
	seen := make(map[int64]bool, len(positions))
	for _, p := range positions {
		if err := validate.Struct(p); err != nil {
			return nil, apperror.ValidationFailed("boards", "each entry needs a board id and a non-negative position")
		}
		if seen[p.ID] {
			return nil, apperror.ValidationFailed("boards", fmt.Sprintf("board %d appears more than once", p.ID))
		}
		seen[p.ID] = true
	}

	if _, err := s.access.require(ctx, projectID, userID, canManageBoards, "manage boards in this project"); err != nil {
		return nil, err
	}
	if err := s.boards.ReorderBoards(ctx, projectID, positions); err != nil {
		return nil, fmt.Errorf("service/board: reordering boards: %w", err)
	}
	return s.boards.ListBoards(ctx, projectID)
}

func (s *BoardService) boardInProject(ctx context.Context, projectID, id int64) (*model.Board, error) {
	board, err := s.boards.GetBoard(ctx, id)
	if err != nil {
		return nil, err
	}
	if board.ProjectID != projectID {
		return nil, apperror.NotFound("board", id)
	}
	return board, nil
}

func validateBoard(b *model.Board) error {
	if err := checkLength("name", b.Name, 1, MaxBoardNameLength); err != nil {
		return err
	}
	if err := checkLength("description", b.Description, 0, MaxBoardDescriptionLength); err != nil {
		return err
	}
	if b.Position < 0 {
		return apperror.ValidationFailed("position", "position must not be negative")
	}
	if b.WIPLimit < 0 {
		return apperror.ValidationFailed("wipLimit", "wipLimit must not be negative (0 means unlimited)")
	}
	return nil
}

func canManageBoards(p model.Permissions) bool { return p.ManageBoards }
