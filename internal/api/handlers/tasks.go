package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/auditflow/internal/api/dto"
	"github.com/eshaffer321/auditflow/internal/infrastructure/storage"
)

// TasksHandler handles engagement task requests.
type TasksHandler struct {
	*Base
	now func() time.Time
}

// NewTasksHandler creates a new tasks handler.
func NewTasksHandler(repo storage.Repository, logger *slog.Logger) *TasksHandler {
	return &TasksHandler{
		Base: NewBase(repo, logger),
		now:  time.Now,
	}
}

// List handles GET /api/tasks - filter by client_id, status, assigned_to.
func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := storage.TaskFilters{
		ClientID:   r.URL.Query().Get("client_id"),
		Status:     r.URL.Query().Get("status"),
		AssignedTo: r.URL.Query().Get("assigned_to"),
		Limit:      ParseIntParam(r, "limit", 100),
		Offset:     ParseIntParam(r, "offset", 0),
	}

	tasks, err := h.repo.ListTasks(filters)
	if err != nil {
		h.WriteInternal(w, "failed to list tasks", err)
		return
	}

	overdueOnly := ParseBoolParam(r, "overdue", false)
	now := h.now()
	response := dto.TaskListResponse{Tasks: make([]dto.TaskResponse, 0, len(tasks))}
	for _, task := range tasks {
		if overdueOnly && !task.IsOverdue(now) {
			continue
		}
		response.Tasks = append(response.Tasks, dto.NewTaskResponse(task, now))
	}
	response.Count = len(response.Tasks)

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/tasks/{id}.
func (h *TasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, ok := h.load(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.NewTaskResponse(*task, h.now()))
}

// Create handles POST /api/tasks.
func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.TaskRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}
	if !h.validate(w, req) {
		return
	}

	task := &storage.Task{}
	req.Apply(task)
	if err := h.repo.SaveTask(task); err != nil {
		h.WriteInternal(w, "failed to create task", err)
		return
	}

	h.logger.Info("task created", "task_id", task.ID, "client_id", task.ClientID)
	h.WriteJSON(w, http.StatusCreated, dto.NewTaskResponse(*task, h.now()))
}

// Update handles PUT /api/tasks/{id}.
func (h *TasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	task, ok := h.load(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req dto.TaskRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}
	if !h.validate(w, req) {
		return
	}

	req.Apply(task)
	if err := h.repo.SaveTask(task); err != nil {
		h.WriteInternal(w, "failed to update task", err)
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.NewTaskResponse(*task, h.now()))
}

// Delete handles DELETE /api/tasks/{id}.
func (h *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.repo.DeleteTask(chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("task"))
		return
	}
	if err != nil {
		h.WriteInternal(w, "failed to delete task", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetChecklistItem handles PATCH /api/tasks/{id}/checklist/{itemID}.
func (h *TasksHandler) SetChecklistItem(w http.ResponseWriter, r *http.Request) {
	var req dto.ChecklistItemRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	task, err := h.repo.SetChecklistItem(chi.URLParam(r, "id"), chi.URLParam(r, "itemID"), req.Done)
	if errors.Is(err, storage.ErrNotFound) {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("checklist item"))
		return
	}
	if err != nil {
		h.WriteInternal(w, "failed to update checklist", err)
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.NewTaskResponse(*task, h.now()))
}

// validate checks the request and that a referenced client exists
func (h *TasksHandler) validate(w http.ResponseWriter, req dto.TaskRequest) bool {
	if err := req.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return false
	}
	if req.ClientID == "" {
		return true
	}

	client, err := h.repo.GetClient(req.ClientID)
	if err != nil {
		h.WriteInternal(w, "failed to load client", err)
		return false
	}
	if client == nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("unknown client_id"))
		return false
	}
	return true
}

func (h *TasksHandler) load(w http.ResponseWriter, id string) (*storage.Task, bool) {
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("task ID is required"))
		return nil, false
	}

	task, err := h.repo.GetTask(id)
	if err != nil {
		h.WriteInternal(w, "failed to load task", err)
		return nil, false
	}
	if task == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("task"))
		return nil, false
	}
	return task, true
}
