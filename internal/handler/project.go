package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/devpulse/internal/model"
	"github.com/sakif/devpulse/internal/service"
)

// ProjectHandler exposes project CRUD. Every route sits behind RequireAuth,
// and the service restricts each existing project to its owner.
type ProjectHandler struct {
	projects *service.ProjectService
}

// NewProjectHandler creates a ProjectHandler.
func NewProjectHandler(projects *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// HandleCreate registers a repository as a project.
//
// HTTP: POST /api/projects
// REQUEST BODY: {"name": "DevPulse", "repoUrl": "https://github.com/octo/devpulse"}
//
// owner and repo may be sent explicitly; when omitted they are read from repoUrl.
func (h *ProjectHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in service.CreateProjectInput
	if !decodeJSON(w, r, &in) {
		return
	}

	project, err := h.projects.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, project)
}

// HandleList returns the caller's projects in creation order.
//
// HTTP: GET /api/projects
func (h *ProjectHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	projects, err := h.projects.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, projects)
}

// HandleGet returns one project.
//
// HTTP: GET /api/projects/{id}
func (h *ProjectHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	project, err := h.projects.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, project)
}

// HandleUpdate applies a partial update. Fields left out of the body keep
// their stored values.
//
// HTTP: PUT /api/projects/{id}
// REQUEST BODY: {"name": "Renamed"}
func (h *ProjectHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var patch model.ProjectPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	project, err := h.projects.Update(r.Context(), userID, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, project)
}

// HandleDelete removes a project together with its tasks.
//
// HTTP: DELETE /api/projects/{id}
func (h *ProjectHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.projects.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Project deleted successfully"})
}
