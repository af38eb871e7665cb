package handler

import (
	"log/slog"
	"net/http"

	"github.com/Gur1a/CheckList/internal/service"
)

// TagHandler serves /api/tags. Tags are private to the user who made them.
type TagHandler struct {
	tags   *service.TagService
	logger *slog.Logger
}

func NewTagHandler(tags *service.TagService, logger *slog.Logger) *TagHandler {
	return &TagHandler{tags: tags, logger: logger}
}

type tagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type tagUpdateRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

// HTTP: GET /api/tags
func (h *TagHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	tags, err := h.tags.List(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// HTTP: POST /api/tags
func (h *TagHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req tagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	tag, err := h.tags.Create(r.Context(), uid, service.TagInput(req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

// HTTP: GET /api/tags/{id}
func (h *TagHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	uid, id, err := userAndPathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	tag, err := h.tags.Get(r.Context(), uid, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// HTTP: PUT /api/tags/{id}
func (h *TagHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	uid, id, err := userAndPathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req tagUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	tag, err := h.tags.Update(r.Context(), uid, id, service.TagUpdate(req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// HTTP: DELETE /api/tags/{id}
func (h *TagHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	uid, id, err := userAndPathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.tags.Delete(r.Context(), uid, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListTasks returns the tagged tasks the caller can still see.
//
// HTTP: GET /api/tags/{id}/tasks
func (h *TagHandler) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	uid, id, err := userAndPathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	tasks, err := h.tags.ListTasks(r.Context(), uid, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// HandleListForTask returns the tags on one task.
//
// HTTP: GET /api/tags/tasks/{taskId}
func (h *TagHandler) HandleListForTask(w http.ResponseWriter, r *http.Request) {
	uid, taskID, err := userAndPathID(r, "taskId")
	if err != nil {
		writeError(w, err)
		return
	}

	tags, err := h.tags.ListForTask(r.Context(), uid, taskID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// HandleAttach is idempotent: attaching twice still answers 204.
//
// HTTP: POST /api/tags/{id}/tasks/{taskId}
func (h *TagHandler) HandleAttach(w http.ResponseWriter, r *http.Request) {
	uid, tagID, taskID, err := tagAndTask(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.tags.Attach(r.Context(), uid, tagID, taskID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: DELETE /api/tags/{id}/tasks/{taskId}
func (h *TagHandler) HandleDetach(w http.ResponseWriter, r *http.Request) {
	uid, tagID, taskID, err := tagAndTask(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.tags.Detach(r.Context(), uid, tagID, taskID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func tagAndTask(r *http.Request) (uid, tagID, taskID int64, err error) {
	if uid, tagID, err = userAndPathID(r, "id"); err != nil {
		return 0, 0, 0, err
	}
	if taskID, err = pathID(r, "taskId"); err != nil {
		return 0, 0, 0, err
	}
	return uid, tagID, taskID, nil
}
