package handler

import (
	"log/slog"
	"net/http"

	"github.com/Gur1a/CheckList/internal/apperror"
	"github.com/Gur1a/CheckList/internal/middleware"
	"github.com/Gur1a/CheckList/internal/model"
	"github.com/Gur1a/CheckList/internal/service"
)

// BoardHandler serves /api/boards.
//
// The project is not in the path. It arrives as an obfuscated token in
// ?encryptedProjectId=..., and middleware.ProjectID has already decoded it
// (or silently dropped it) before these handlers run. A missing or
// undecodable token is the client's mistake, so it is a 400 here.
//
// Knowing the project id proves nothing; the board service still checks
// the caller's membership and role.
type BoardHandler struct {
	boards *service.BoardService
	logger *slog.Logger
}

func NewBoardHandler(boards *service.BoardService, logger *slog.Logger) *BoardHandler {
	return &BoardHandler{boards: boards, logger: logger}
}

var errMissingProject = &apperror.AppError{
	Err:     apperror.ErrValidation,
	Message: "missing or invalid project identifier",
}

type boardRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Position    *int   `json:"position"`
	IsDefault   bool   `json:"isDefault"`
	WIPLimit    int    `json:"wipLimit"`
}

type boardUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	Position    *int    `json:"position"`
	IsDefault   *bool   `json:"isDefault"`
	WIPLimit    *int    `json:"wipLimit"`
}

type reorderRequest struct {
	Boards []model.BoardPosition `json:"boards" validate:"required,min=1,dive"`
}

// HTTP: GET /api/boards?encryptedProjectId=T
func (h *BoardHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	uid, projectID, err := userAndProject(r)
	if err != nil {
		writeError(w, err)
		return
	}

	boards, err := h.boards.List(r.Context(), uid, projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, boards)
}

// HTTP: POST /api/boards?encryptedProjectId=T
func (h *BoardHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	uid, projectID, err := userAndProject(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req boardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	board, err := h.boards.Create(r.Context(), uid, projectID, service.BoardInput(req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, board)
}

// HTTP: GET /api/boards/{id}?encryptedProjectId=T
func (h *BoardHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	uid, projectID, err := userAndProject(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	board, err := h.boards.Get(r.Context(), uid, projectID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// HTTP: PUT /api/boards/{id}?encryptedProjectId=T
func (h *BoardHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	uid, projectID, err := userAndProject(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req boardUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	board, err := h.boards.Update(r.Context(), uid, projectID, id, service.BoardUpdate(req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// HandleDelete keeps the board's tasks; they are left without a board.
//
// HTTP: DELETE /api/boards/{id}?encryptedProjectId=T
func (h *BoardHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	uid, projectID, err := userAndProject(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.boards.Delete(r.Context(), uid, projectID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReorder sets many positions at once and returns the new order.
//
// HTTP: POST /api/boards/reorder?encryptedProjectId=T
// BODY: {"boards": [{"id": 3, "position": 0}, {"id": 1, "position": 1}]}
func (h *BoardHandler) HandleReorder(w http.ResponseWriter, r *http.Request) {
	uid, projectID, err := userAndProject(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req reorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	boards, err := h.boards.Reorder(r.Context(), uid, projectID, req.Boards)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, boards)
}

// userAndProject returns the caller and the project id decoded by the
// identifier filter.
func userAndProject(r *http.Request) (uid, projectID int64, err error) {
	if uid, err = userID(r); err != nil {
		return 0, 0, err
	}
	projectID, ok := middleware.ProjectIDFromContext(r.Context())
	if !ok {
		return 0, 0, errMissingProject
	}
	return uid, projectID, nil
}
