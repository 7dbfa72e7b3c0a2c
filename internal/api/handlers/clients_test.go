package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/auditflow/internal/api/dto"
	"github.com/eshaffer321/auditflow/internal/api/handlers"
	"github.com/eshaffer321/auditflow/internal/infrastructure/storage"
)

func TestClientsHandler_List(t *testing.T) {
	t.Run("returns empty list when no clients", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := handlers.NewClientsHandler(repo, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var response dto.ClientListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Empty(t, response.Clients)
		assert.Equal(t, 0, response.Count)
		assert.Equal(t, 50, response.Limit) // default limit
	})

	t.Run("filters by status and search", func(t *testing.T) {
		repo := storage.NewMockRepository()
		require.NoError(t, repo.SaveClient(&storage.Client{Name: "Acme Manufacturing", Status: storage.ClientStatusActive}))
		require.NoError(t, repo.SaveClient(&storage.Client{Name: "Acme Retail", Status: storage.ClientStatusProspect}))
		require.NoError(t, repo.SaveClient(&storage.Client{Name: "Globex", Status: storage.ClientStatusActive}))
		handler := handlers.NewClientsHandler(repo, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/clients?status=active&search=acme", nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		var response dto.ClientListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		require.Len(t, response.Clients, 1)
		assert.Equal(t, "Acme Manufacturing", response.Clients[0].Name)
	})

	t.Run("returns 500 on repository error", func(t *testing.T) {
		repo := storage.NewMockRepository()
		repo.ListClientsErr = errors.New("database locked")
		handler := handlers.NewClientsHandler(repo, nil)

		rec := httptest.NewRecorder()
		handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/clients", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestClientsHandler_Create(t *testing.T) {
	t.Run("creates client with default status", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := handlers.NewClientsHandler(repo, nil)

		body := `{"name":"  Acme Corp ","email":"cfo@acme.test","fiscal_year_end":"12-31"}`
		req := httptest.NewRequest(http.MethodPost, "/api/clients", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		handler.Create(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		var client storage.Client
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&client))
		assert.NotEmpty(t, client.ID)
		assert.Equal(t, "Acme Corp", client.Name)
		assert.Equal(t, storage.ClientStatusActive, client.Status)
		assert.True(t, repo.SaveClientCalled)
	})

	t.Run("rejects invalid requests", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{"missing name", `{"email":"a@b.test"}`},
			{"bad status", `{"name":"Acme","status":"dormant"}`},
			{"bad fiscal year end", `{"name":"Acme","fiscal_year_end":"31-12"}`},
			{"bad email", `{"name":"Acme","email":"nobody"}`},
			{"malformed json", `{"name":`},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				repo := storage.NewMockRepository()
				handler := handlers.NewClientsHandler(repo, nil)

				req := httptest.NewRequest(http.MethodPost, "/api/clients", bytes.NewBufferString(tt.body))
				rec := httptest.NewRecorder()

				handler.Create(rec, req)

				assert.Equal(t, http.StatusBadRequest, rec.Code)
				assert.False(t, repo.SaveClientCalled)
			})
		}
	})
}

func TestClientsHandler_GetUpdateDelete(t *testing.T) {
	repo := storage.NewMockRepository()
	client := &storage.Client{Name: "Acme"}
	require.NoError(t, repo.SaveClient(client))
	handler := handlers.NewClientsHandler(repo, nil)

	t.Run("get returns client", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/clients/"+client.ID, nil)
		req = req.WithContext(setChiURLParam(req.Context(), "id", client.ID))
		rec := httptest.NewRecorder()

		handler.Get(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var got storage.Client
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, "Acme", got.Name)
	})

	t.Run("get returns 404 for missing client", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/clients/missing", nil)
		req = req.WithContext(setChiURLParam(req.Context(), "id", "missing"))
		rec := httptest.NewRecorder()

		handler.Get(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("update replaces fields", func(t *testing.T) {
		body := `{"name":"Acme Holdings","status":"inactive","industry":"Manufacturing"}`
		req := httptest.NewRequest(http.MethodPut, "/api/clients/"+client.ID, bytes.NewBufferString(body))
		req = req.WithContext(setChiURLParam(req.Context(), "id", client.ID))
		rec := httptest.NewRecorder()

		handler.Update(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		stored, err := repo.GetClient(client.ID)
		require.NoError(t, err)
		assert.Equal(t, "Acme Holdings", stored.Name)
		assert.Equal(t, storage.ClientStatusInactive, stored.Status)
		assert.Equal(t, "Manufacturing", stored.Industry)
	})

	t.Run("delete removes client", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/clients/"+client.ID, nil)
		req = req.WithContext(setChiURLParam(req.Context(), "id", client.ID))
		rec := httptest.NewRecorder()

		handler.Delete(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		stored, err := repo.GetClient(client.ID)
		require.NoError(t, err)
		assert.Nil(t, stored)
	})

	t.Run("delete returns 404 when already gone", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/clients/"+client.ID, nil)
		req = req.WithContext(setChiURLParam(req.Context(), "id", client.ID))
		rec := httptest.NewRecorder()

		handler.Delete(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

// setChiURLParam sets URL params in the chi route context for handlers
// called without a router. Pass key, value pairs.
func setChiURLParam(ctx context.Context, kv ...string) context.Context {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return context.WithValue(ctx, chi.RouteCtxKey, rctx)
}
