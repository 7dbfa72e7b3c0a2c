package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/auditflow/internal/api"
	"github.com/eshaffer321/auditflow/internal/api/dto"
	"github.com/eshaffer321/auditflow/internal/infrastructure/config"
	"github.com/eshaffer321/auditflow/internal/infrastructure/storage"
)

func newTestServer(t *testing.T) (*api.Server, *storage.MockRepository) {
	t.Helper()
	repo := storage.NewMockRepository()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	server := api.NewServer(api.DefaultConfig(), repo, nil, logger) // nil service = built from env config
	return server, repo
}

func TestServer_HealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.HealthResponse
	err := json.NewDecoder(rec.Body).Decode(&response)
	require.NoError(t, err)
	assert.Equal(t, "ok", response.Status)
}

func TestServer_Routes(t *testing.T) {
	server, repo := newTestServer(t)
	client := &storage.Client{Name: "Acme"}
	require.NoError(t, repo.SaveClient(client))
	task := &storage.Task{ClientID: client.ID, Title: "Plan", Checklist: []storage.ChecklistItem{{Text: "Kickoff"}}}
	require.NoError(t, repo.SaveTask(task))

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/api/clients", "", http.StatusOK},
		{http.MethodGet, "/api/clients/" + client.ID, "", http.StatusOK},
		{http.MethodGet, "/api/clients/missing", "", http.StatusNotFound},
		{http.MethodPost, "/api/clients", `{"name":"Globex"}`, http.StatusCreated},
		{http.MethodPut, "/api/clients/" + client.ID, `{"name":"Acme Ltd"}`, http.StatusOK},
		{http.MethodGet, "/api/tasks", "", http.StatusOK},
		{http.MethodGet, "/api/tasks/" + task.ID, "", http.StatusOK},
		{http.MethodPatch, "/api/tasks/" + task.ID + "/checklist/" + task.Checklist[0].ID, `{"done":true}`, http.StatusOK},
		{http.MethodPost, "/api/variance", `{"accounts":[]}`, http.StatusOK},
		{http.MethodGet, "/api/variance", "", http.StatusOK},
		{http.MethodGet, "/api/variance/missing", "", http.StatusNotFound},
		{http.MethodPut, "/api/variance/missing/thresholds", `{"moderate_pct":5}`, http.StatusNotFound},
		{http.MethodPost, "/api/samples", `{"strategy":"random","transactions":[]}`, http.StatusOK},
		{http.MethodGet, "/api/samples", "", http.StatusOK},
		{http.MethodGet, "/api/samples/missing/export", "", http.StatusNotFound},
		{http.MethodGet, "/api/stats", "", http.StatusOK},
		{http.MethodDelete, "/api/tasks/" + task.ID, "", http.StatusNoContent},
		{http.MethodDelete, "/api/clients/" + client.ID, "", http.StatusNoContent},
		{http.MethodGet, "/api/unknown", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			server.Router().ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestServer_StatsEndpoint(t *testing.T) {
	server, repo := newTestServer(t)
	require.NoError(t, repo.SaveClient(&storage.Client{Name: "Acme"}))
	require.NoError(t, repo.SaveClient(&storage.Client{Name: "Initech", Status: storage.ClientStatusProspect}))

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response dto.StatsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, 2, response.ClientCount)
	assert.Equal(t, 1, response.ActiveClientCount)
	assert.NotEmpty(t, response.GeneratedAt)
}

func TestServer_CORS(t *testing.T) {
	server, _ := newTestServer(t)

	t.Run("sets CORS headers for allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	})

	t.Run("handles OPTIONS preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/clients", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestConfigFrom(t *testing.T) {
	t.Run("zero values keep defaults", func(t *testing.T) {
		cfg := api.ConfigFrom(config.ServerConfig{})
		assert.Equal(t, api.DefaultConfig(), cfg)
	})

	t.Run("overrides port and origins", func(t *testing.T) {
		cfg := api.ConfigFrom(config.ServerConfig{Port: 9090, AllowedOrigins: []string{"https://audit.example"}})
		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, []string{"https://audit.example"}, cfg.AllowedOrigins)
	})
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	cfg := api.DefaultConfig()
	cfg.Port = 0
	server := api.NewServer(cfg, storage.NewMockRepository(), nil, nil)

	require.NoError(t, server.Shutdown(context.Background()))
	assert.NoError(t, server.Start())
}
