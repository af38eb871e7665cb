package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Gur1a/CheckList/internal/model"
	"github.com/Gur1a/CheckList/internal/service"
)

// TokenEncoder is the slice of *obfuscate.Codec this handler needs.
type TokenEncoder interface {
	Encode(id int64) (string, error)
}

// ProjectHandler serves /api/projects.
//
// Projects are addressed by plain id in the path. Every project in a
// response also carries "token", its obfuscated id, which the SPA sends
// back as ?encryptedProjectId=... on board requests.
type ProjectHandler struct {
	projects *service.ProjectService
	codec    TokenEncoder
	logger   *slog.Logger
}

func NewProjectHandler(projects *service.ProjectService, codec TokenEncoder, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, codec: codec, logger: logger}
}

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
	IsPrivate   bool   `json:"isPrivate"`
}

type projectUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	Icon        *string `json:"icon"`
	IsPrivate   *bool   `json:"isPrivate"`
}

type addMemberRequest struct {
	UserID int64      `json:"userId" validate:"required,gt=0"`
	Role   model.Role `json:"role"   validate:"omitempty,oneof=admin member viewer"`
}

// HandleList returns the caller's projects, most recently active first.
//
// HTTP: GET /api/projects?includeArchived=true&search=groc&limit=20&offset=0
func (h *ProjectHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	opts, err := projectListOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	projects, err := h.projects.List(r.Context(), uid, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	for i := range projects {
		if err := h.attachToken(&projects[i]); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, projects)
}

func projectListOptions(r *http.Request) (service.ProjectListOptions, error) {
	var (
		opts service.ProjectListOptions
		err  error
	)
	if opts.IncludeArchived, err = queryBool(r, "includeArchived"); err != nil {
		return opts, err
	}
	if opts.Limit, err = queryInt(r, "limit"); err != nil {
		return opts, err
	}
	if opts.Offset, err = queryInt(r, "offset"); err != nil {
		return opts, err
	}
	opts.Search = r.URL.Query().Get("search")
	return opts, nil
}

// HandleCreate makes a project owned by the caller.
//
// HTTP: POST /api/projects
func (h *ProjectHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req projectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	project, err := h.projects.Create(r.Context(), uid, service.ProjectInput(req))
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeProject(w, http.StatusCreated, project)
}

// HandleGet returns one project with stats and the caller's permissions.
//
// HTTP: GET /api/projects/{id}
func (h *ProjectHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	uid, id, err := userAndPathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	detail, err := h.projects.Get(r.Context(), uid, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.attachToken(detail.Project); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// HandleUpdate applies a partial update; omitted fields are unchanged.
//
// HTTP: PUT /api/projects/{id}
func (h *ProjectHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	uid, id, err := userAndPathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req projectUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	project, err := h.projects.Update(r.Context(), uid, id, service.ProjectUpdate(req))
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeProject(w, http.StatusOK, project)
}

// HandleArchive and HandleUnarchive toggle is_archived.
//
// HTTP: PUT /api/projects/{id}/archive, PUT /api/projects/{id}/unarchive
func (h *ProjectHandler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, true)
}

func (h *ProjectHandler) HandleUnarchive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, false)
}

func (h *ProjectHandler) setArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	uid, id, err := userAndPathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	project, err := h.projects.SetArchived(r.Context(), uid, id, archived)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeProject(w, http.StatusOK, project)
}

// HandleDelete removes the project with its boards, tasks and members.
//
// HTTP: DELETE /api/projects/{id}
func (h *ProjectHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	uid, id, err := userAndPathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.projects.Delete(r.Context(), uid, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- members ----

// HTTP: GET /api/projects/{id}/members
func (h *ProjectHandler) HandleListMembers(w http.ResponseWriter, r *http.Request) {
	uid, id, err := userAndPathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	members, err := h.projects.ListMembers(r.Context(), uid, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// HandleAddMember adds an existing user. Role defaults to member.
//
// HTTP: POST /api/projects/{id}/members
// BODY: {"userId": 12, "role": "viewer"}
func (h *ProjectHandler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	uid, id, err := userAndPathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req addMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	member, err := h.projects.AddMember(r.Context(), uid, id, service.AddMemberInput(req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

// HTTP: DELETE /api/projects/{id}/members/{userId}
func (h *ProjectHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	uid, id, err := userAndPathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	memberID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.projects.RemoveMember(r.Context(), uid, id, memberID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProjectHandler) writeProject(w http.ResponseWriter, status int, p *model.Project) {
	if err := h.attachToken(p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, status, p)
}

// attachToken fills p.Token. Encoding only fails if the system random
// source does.
func (h *ProjectHandler) attachToken(p *model.Project) error {
	token, err := h.codec.Encode(p.ID)
	if err != nil {
		return fmt.Errorf("handler: encoding project %d: %w", p.ID, err)
	}
	p.Token = token
	return nil
}

// userAndPathID is the common prologue of handlers on /{name} routes.
func userAndPathID(r *http.Request, name string) (uid, id int64, err error) {
	if uid, err = userID(r); err != nil {
		return 0, 0, err
	}
	if id, err = pathID(r, name); err != nil {
		return 0, 0, err
	}
	return uid, id, nil
}
