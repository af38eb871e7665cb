package sqlite

import (
	"context"
	"testing"

	"github.com/Gur1a/CheckList/internal/apperror"
	"github.com/Gur1a/CheckList/internal/model"
)

func createTestBoard(t *testing.T, db *DB, project *model.Project, name string, isDefault bool) *model.Board {
	t.Helper()
	pos, err := db.NextBoardPosition(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("NextBoardPosition() error = %v", err)
	}
	board := &model.Board{
		ProjectID: project.ID,
		Name:      name,
		Color:     model.DefaultBoardColor,
		Position:  pos,
		IsDefault: isDefault,
		CreatedBy: project.CreatedBy,
	}
	if err := db.CreateBoard(context.Background(), board); err != nil {
		t.Fatalf("failed to create test board: %v", err)
	}
	return board
}

func TestCreateBoard_Positions(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "alice")
	project := createTestProject(t, db, owner, "P")

	todo := createTestBoard(t, db, project, "Todo", false)
	doing := createTestBoard(t, db, project, "Doing", false)

	if todo.Position != 0 || doing.Position != 1 {
		t.Errorf("positions = %d, %d; want 0, 1", todo.Position, doing.Position)
	}

	boards, err := db.ListBoards(context.Background(), project.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(boards) != 2 || boards[0].ID != todo.ID {
		t.Errorf("ListBoards() = %+v", boards)
	}
}

func TestCreateBoard_UnknownProject(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "alice")
	err := db.CreateBoard(context.Background(), &model.Board{ProjectID: 999, Name: "x", CreatedBy: owner.ID})
	assertKind(t, err, apperror.ErrNotFound)
}

func TestBoard_SingleDefault(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	owner := createTestUser(t, db, "alice")
	project := createTestProject(t, db, owner, "P")

	first := createTestBoard(t, db, project, "First", true)
	second := createTestBoard(t, db, project, "Second", true)

	got, _ := db.GetBoard(ctx, first.ID)
	if got.IsDefault {
		t.Error("first board still default after second was created as default")
	}

	first.IsDefault = true
	if err := db.UpdateBoard(ctx, first); err != nil {
		t.Fatalf("UpdateBoard() error = %v", err)
	}
	got, _ = db.GetBoard(ctx, second.ID)
	if got.IsDefault {
		t.Error("second board still default after first was updated to default")
	}
	got, _ = db.GetBoard(ctx, first.ID)
	if !got.IsDefault {
		t.Error("first board lost its default flag")
	}
}

func TestDeleteBoard_DetachesTasks(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	owner := createTestUser(t, db, "alice")
	project := createTestProject(t, db, owner, "P")
	board := createTestBoard(t, db, project, "B", false)
	task := createTestTask(t, db, owner, &project.ID, &board.ID, model.StatusTodo)

	if err := db.DeleteBoard(ctx, board.ID); err != nil {
		t.Fatalf("DeleteBoard() error = %v", err)
	}
	_, err := db.GetBoard(ctx, board.ID)
	assertKind(t, err, apperror.ErrNotFound)

	got, err := db.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("task did not survive board deletion: %v", err)
	}
	if got.BoardID != nil {
		t.Errorf("BoardID = %d, want nil", *got.BoardID)
	}

	assertKind(t, db.DeleteBoard(ctx, board.ID), apperror.ErrNotFound)
}

func TestReorderBoards(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	owner := createTestUser(t, db, "alice")
	project := createTestProject(t, db, owner, "P")
	other := createTestProject(t, db, owner, "Other")

	a := createTestBoard(t, db, project, "A", false)
	b := createTestBoard(t, db, project, "B", false)
	foreign := createTestBoard(t, db, other, "X", false)

	err := db.ReorderBoards(ctx, project.ID, []model.BoardPosition{
		{ID: a.ID, Position: 1},
		{ID: b.ID, Position: 0},
	})
	if err != nil {
		t.Fatalf("ReorderBoards() error = %v", err)
	}
	boards, _ := db.ListBoards(ctx, project.ID)
	if boards[0].ID != b.ID || boards[1].ID != a.ID {
		t.Errorf("order after reorder = [%s %s], want [B A]", boards[0].Name, boards[1].Name)
	}

	t.Run("foreign board rolls back", func(t *testing.T) {
		err := db.ReorderBoards(ctx, project.ID, []model.BoardPosition{
			{ID: a.ID, Position: 5},
			{ID: foreign.ID, Position: 0},
		})
		assertKind(t, err, apperror.ErrNotFound)

		got, _ := db.GetBoard(ctx, a.ID)
		if got.Position != 1 {
			t.Errorf("board A position = %d after failed reorder, want 1", got.Position)
		}
	})
}
