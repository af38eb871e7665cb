package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Gur1a/CheckList/internal/middleware"
	"github.com/Gur1a/CheckList/internal/model"
	"github.com/Gur1a/CheckList/internal/service"
)

// TaskHandler serves /api/tasks.
type TaskHandler struct {
	tasks  *service.TaskService
	logger *slog.Logger
}

func NewTaskHandler(tasks *service.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

type taskRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Status      model.TaskStatus   `json:"status"`
	Priority    model.TaskPriority `json:"priority"`
	DueDate     *time.Time         `json:"dueDate"`
	ProjectID   *int64             `json:"projectId"`
	BoardID     *int64             `json:"boardId"`
	AssigneeID  *int64             `json:"assigneeId"`
}

// taskUpdateRequest sends dueDate or assigneeId as null to clear them.
type taskUpdateRequest struct {
	Title       *string             `json:"title"`
	Description *string             `json:"description"`
	Status      *model.TaskStatus   `json:"status"`
	Priority    *model.TaskPriority `json:"priority"`
	DueDate     nullable[time.Time] `json:"dueDate"`
	AssigneeID  nullable[int64]     `json:"assigneeId"`
}

type moveRequest struct {
	BoardID  *int64 `json:"boardId"`
	Position *int   `json:"position" validate:"omitempty,gte=0"`
}

type bulkStatusRequest struct {
	TaskIDs []int64          `json:"taskIds" validate:"required,min=1,max=100,dive,gt=0"`
	Status  model.TaskStatus `json:"status"  validate:"required"`
}

// HandleList returns the tasks the caller can see.
//
// HTTP: GET /api/tasks?projectId=&boardId=&status=&priority=&assigneeId=&tagId=&search=&limit=&offset=
//
// The project can also come from ?encryptedProjectId=..., which takes
// precedence over a plain projectId.
func (h *TaskHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	opts, err := taskListOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	tasks, err := h.tasks.List(r.Context(), uid, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func taskListOptions(r *http.Request) (service.TaskListOptions, error) {
	var (
		opts service.TaskListOptions
		err  error
		q    = r.URL.Query()
	)

	if id, ok := middleware.ProjectIDFromContext(r.Context()); ok {
		opts.ProjectID = &id
	} else if opts.ProjectID, err = queryID(r, "projectId"); err != nil {
		return opts, err
	}
	if opts.BoardID, err = queryID(r, "boardId"); err != nil {
		return opts, err
	}
	if opts.AssigneeID, err = queryID(r, "assigneeId"); err != nil {
		return opts, err
	}
	if opts.TagID, err = queryID(r, "tagId"); err != nil {
		return opts, err
	}
	if opts.Limit, err = queryInt(r, "limit"); err != nil {
		return opts, err
	}
	if opts.Offset, err = queryInt(r, "offset"); err != nil {
		return opts, err
	}
	if s := q.Get("status"); s != "" {
		status := model.TaskStatus(s)
		opts.Status = &status
	}
	if p := q.Get("priority"); p != "" {
		priority := model.TaskPriority(p)
		opts.Priority = &priority
	}
	opts.Search = q.Get("search")
	return opts, nil
}

// HandleCreate adds a task. Without a projectId in the body the project
// falls back to ?encryptedProjectId=..., and without either the task is
// personal.
//
// HTTP: POST /api/tasks
func (h *TaskHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req taskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ProjectID == nil {
		if id, ok := middleware.ProjectIDFromContext(r.Context()); ok {
			req.ProjectID = &id
		}
	}

	task, err := h.tasks.Create(r.Context(), uid, service.TaskInput(req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// HTTP: GET /api/tasks/{id}
func (h *TaskHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	uid, id, err := userAndPathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	task, err := h.tasks.Get(r.Context(), uid, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// HTTP: PUT /api/tasks/{id}
func (h *TaskHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	uid, id, err := userAndPathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req taskUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	task, err := h.tasks.Update(r.Context(), uid, id, service.TaskUpdate{
		Title:         req.Title,
		Description:   req.Description,
		Status:        req.Status,
		Priority:      req.Priority,
		DueDate:       req.DueDate.Value,
		ClearDueDate:  req.DueDate.cleared(),
		AssigneeID:    req.AssigneeID.Value,
		ClearAssignee: req.AssigneeID.cleared(),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// HTTP: DELETE /api/tasks/{id}
func (h *TaskHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	uid, id, err := userAndPathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.tasks.Delete(r.Context(), uid, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMove puts a task on a board. Omitting position appends it;
// "boardId": null takes it off its board.
//
// HTTP: PUT /api/tasks/{id}/move
// BODY: {"boardId": 4, "position": 2}
func (h *TaskHandler) HandleMove(w http.ResponseWriter, r *http.Request) {
	uid, id, err := userAndPathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req moveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	task, err := h.tasks.Move(r.Context(), uid, id, service.MoveInput(req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// HandleBulkStatus sets one status on many tasks, all or nothing.
//
// HTTP: PUT /api/tasks/bulk/status
// BODY: {"taskIds": [1, 2, 3], "status": "done"}
func (h *TaskHandler) HandleBulkStatus(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req bulkStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	tasks, err := h.tasks.BulkUpdateStatus(r.Context(), uid, req.TaskIDs, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"updated": len(tasks),
		"tasks":   tasks,
	})
}
