package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/devpulse/internal/model"
	"github.com/sakif/devpulse/internal/service"
)

// TaskHandler exposes the tasks of a project to its owner.
type TaskHandler struct {
	tasks *service.TaskService
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(tasks *service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// HandleCreate adds a task to a project.
//
// HTTP: POST /api/tasks
// REQUEST BODY: {"projectId": "...", "title": "...", "assignee": "octocat", "priority": "high"}
//
// New tasks always start as "pending"; priority defaults to "medium".
func (h *TaskHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in service.CreateTaskInput
	if !decodeJSON(w, r, &in) {
		return
	}

	task, err := h.tasks.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

// HandleListByProject returns a project's tasks.
//
// HTTP: GET /api/tasks/project/{projectID}
func (h *TaskHandler) HandleListByProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	tasks, err := h.tasks.ListByProject(r.Context(), userID, chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tasks)
}

// HandleUpdate applies a partial update, typically a status change.
//
// HTTP: PUT /api/tasks/{id}
// REQUEST BODY: {"status": "completed"}
func (h *TaskHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var patch model.TaskPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	task, err := h.tasks.Update(r.Context(), userID, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// HandleDelete removes a task.
//
// HTTP: DELETE /api/tasks/{id}
func (h *TaskHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Task deleted successfully"})
}
