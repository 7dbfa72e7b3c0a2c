package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/auditflow/internal/api/dto"
	"github.com/eshaffer321/auditflow/internal/infrastructure/storage"
)

// ClientsHandler handles client CRUD requests.
type ClientsHandler struct {
	*Base
}

// NewClientsHandler creates a new clients handler.
func NewClientsHandler(repo storage.Repository, logger *slog.Logger) *ClientsHandler {
	return &ClientsHandler{
		Base: NewBase(repo, logger),
	}
}

// List handles GET /api/clients - returns clients ordered by name.
func (h *ClientsHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := storage.ClientFilters{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("search"),
		Limit:  ParseIntParam(r, "limit", 50),
		Offset: ParseIntParam(r, "offset", 0),
	}

	clients, err := h.repo.ListClients(filters)
	if err != nil {
		h.WriteInternal(w, "failed to list clients", err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.ClientListResponse{
		Clients: clients,
		Count:   len(clients),
		Limit:   filters.Limit,
		Offset:  filters.Offset,
	})
}

// Get handles GET /api/clients/{id}.
func (h *ClientsHandler) Get(w http.ResponseWriter, r *http.Request) {
	client, ok := h.load(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	h.WriteJSON(w, http.StatusOK, client)
}

// Create handles POST /api/clients.
func (h *ClientsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.ClientRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	client := &storage.Client{}
	req.Apply(client)
	if err := h.repo.SaveClient(client); err != nil {
		h.WriteInternal(w, "failed to create client", err)
		return
	}

	h.logger.Info("client created", "client_id", client.ID, "name", client.Name)
	h.WriteJSON(w, http.StatusCreated, client)
}

// Update handles PUT /api/clients/{id}.
func (h *ClientsHandler) Update(w http.ResponseWriter, r *http.Request) {
	client, ok := h.load(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req dto.ClientRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	req.Apply(client)
	if err := h.repo.SaveClient(client); err != nil {
		h.WriteInternal(w, "failed to update client", err)
		return
	}
	h.WriteJSON(w, http.StatusOK, client)
}

// Delete handles DELETE /api/clients/{id}. The client's tasks go with it.
func (h *ClientsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.repo.DeleteClient(id)
	if errors.Is(err, storage.ErrNotFound) {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("client"))
		return
	}
	if err != nil {
		h.WriteInternal(w, "failed to delete client", err)
		return
	}

	h.logger.Info("client deleted", "client_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ClientsHandler) load(w http.ResponseWriter, id string) (*storage.Client, bool) {
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("client ID is required"))
		return nil, false
	}

	client, err := h.repo.GetClient(id)
	if err != nil {
		h.WriteInternal(w, "failed to load client", err)
		return nil, false
	}
	if client == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("client"))
		return nil, false
	}
	return client, true
}
