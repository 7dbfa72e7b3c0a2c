package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/auditflow/internal/api/dto"
	"github.com/eshaffer321/auditflow/internal/api/handlers"
	"github.com/eshaffer321/auditflow/internal/infrastructure/storage"
)

func TestTasksHandler_Create(t *testing.T) {
	t.Run("creates task with checklist", func(t *testing.T) {
		repo := storage.NewMockRepository()
		client := &storage.Client{Name: "Acme"}
		require.NoError(t, repo.SaveClient(client))
		handler := handlers.NewTasksHandler(repo, nil)

		body := `{
			"client_id": "` + client.ID + `",
			"title": "Confirm bank balances",
			"priority": "high",
			"due_date": "2099-01-31",
			"checklist": [{"text": "Send confirmation"}, {"text": "Reconcile reply", "done": true}]
		}`
		req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		handler.Create(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		var response dto.TaskResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.NotEmpty(t, response.ID)
		assert.Equal(t, storage.TaskStatusTodo, response.Status)
		assert.Equal(t, storage.TaskPriorityHigh, response.Priority)
		assert.Equal(t, 1, response.ChecklistDone)
		assert.Equal(t, 2, response.ChecklistTotal)
		assert.False(t, response.Overdue)
		for _, item := range response.Checklist {
			assert.NotEmpty(t, item.ID)
		}
	})

	t.Run("rejects unknown client", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := handlers.NewTasksHandler(repo, nil)

		body := `{"client_id":"nope","title":"Walkthrough"}`
		req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		handler.Create(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, repo.SaveTaskCalled)
	})

	t.Run("rejects invalid fields", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{"missing title", `{"priority":"high"}`},
			{"bad status", `{"title":"x","status":"blocked"}`},
			{"bad priority", `{"title":"x","priority":"urgent"}`},
			{"bad due date", `{"title":"x","due_date":"31/01/2024"}`},
			{"empty checklist text", `{"title":"x","checklist":[{"text":" "}]}`},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				repo := storage.NewMockRepository()
				handler := handlers.NewTasksHandler(repo, nil)

				req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(tt.body))
				rec := httptest.NewRecorder()

				handler.Create(rec, req)

				assert.Equal(t, http.StatusBadRequest, rec.Code)
			})
		}
	})
}

func TestTasksHandler_List(t *testing.T) {
	repo := storage.NewMockRepository()
	past := time.Now().AddDate(0, 0, -3)
	future := time.Now().AddDate(0, 0, 3)
	require.NoError(t, repo.SaveTask(&storage.Task{Title: "Late", DueDate: &past}))
	require.NoError(t, repo.SaveTask(&storage.Task{Title: "Late but done", DueDate: &past, Status: storage.TaskStatusDone}))
	require.NoError(t, repo.SaveTask(&storage.Task{Title: "Upcoming", DueDate: &future, AssignedTo: "sam"}))
	handler := handlers.NewTasksHandler(repo, nil)

	t.Run("lists all tasks", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var response dto.TaskListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, 3, response.Count)
	})

	t.Run("overdue filter keeps open past-due tasks", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/tasks?overdue=true", nil))

		var response dto.TaskListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		require.Len(t, response.Tasks, 1)
		assert.Equal(t, "Late", response.Tasks[0].Title)
		assert.True(t, response.Tasks[0].Overdue)
	})

	t.Run("filters by assignee", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/tasks?assigned_to=sam", nil))

		var response dto.TaskListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		require.Len(t, response.Tasks, 1)
		assert.Equal(t, "Upcoming", response.Tasks[0].Title)
	})
}

func TestTasksHandler_SetChecklistItem(t *testing.T) {
	repo := storage.NewMockRepository()
	task := &storage.Task{
		Title:     "Inventory count",
		Checklist: []storage.ChecklistItem{{Text: "Observe count"}, {Text: "Test sheets"}},
	}
	require.NoError(t, repo.SaveTask(task))
	handler := handlers.NewTasksHandler(repo, nil)
	itemID := task.Checklist[1].ID

	t.Run("marks item done", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPatch, "/", bytes.NewBufferString(`{"done":true}`))
		req = req.WithContext(setChiURLParam(req.Context(), "id", task.ID, "itemID", itemID))
		rec := httptest.NewRecorder()

		handler.SetChecklistItem(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var response dto.TaskResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, 1, response.ChecklistDone)
		assert.True(t, response.Checklist[1].Done)
	})

	t.Run("unknown item is 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPatch, "/", bytes.NewBufferString(`{"done":true}`))
		req = req.WithContext(setChiURLParam(req.Context(), "id", task.ID, "itemID", "missing"))
		rec := httptest.NewRecorder()

		handler.SetChecklistItem(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestTasksHandler_UpdateAndDelete(t *testing.T) {
	repo := storage.NewMockRepository()
	task := &storage.Task{Title: "Draft"}
	require.NoError(t, repo.SaveTask(task))
	handler := handlers.NewTasksHandler(repo, nil)

	req := httptest.NewRequest(http.MethodPut, "/", bytes.NewBufferString(`{"title":"Final","status":"review"}`))
	req = req.WithContext(setChiURLParam(req.Context(), "id", task.ID))
	rec := httptest.NewRecorder()
	handler.Update(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	stored, err := repo.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final", stored.Title)
	assert.Equal(t, storage.TaskStatusReview, stored.Status)

	req = httptest.NewRequest(http.MethodDelete, "/", nil)
	req = req.WithContext(setChiURLParam(req.Context(), "id", task.ID))
	rec = httptest.NewRecorder()
	handler.Delete(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(setChiURLParam(req.Context(), "id", task.ID))
	rec = httptest.NewRecorder()
	handler.Get(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
