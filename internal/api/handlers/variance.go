package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/auditflow/internal/adapters/export"
	"github.com/eshaffer321/auditflow/internal/adapters/importer"
	"github.com/eshaffer321/auditflow/internal/api/dto"
	"github.com/eshaffer321/auditflow/internal/application/service"
	"github.com/eshaffer321/auditflow/internal/domain/variance"
	"github.com/eshaffer321/auditflow/internal/infrastructure/storage"
)

// VarianceHandler handles trial-balance variance requests.
type VarianceHandler struct {
	*Base
	svc *service.AuditService
}

// NewVarianceHandler creates a new variance handler.
func NewVarianceHandler(repo storage.Repository, svc *service.AuditService, logger *slog.Logger) *VarianceHandler {
	return &VarianceHandler{
		Base: NewBase(repo, logger),
		svc:  svc,
	}
}

// Run handles POST /api/variance - classifies accounts sent as JSON.
func (h *VarianceHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req dto.VarianceRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	h.run(w, r, service.VarianceRequest{
		ClientID:   req.ClientID,
		Name:       req.Name,
		Accounts:   req.Accounts,
		Thresholds: req.Thresholds(h.svc.DefaultThresholds()),
		Save:       req.Save,
	})
}

// Upload handles POST /api/variance/upload - classifies an uploaded trial
// balance. Form fields: file, client_id, name, moderate_pct, significant_pct, save.
func (h *VarianceHandler) Upload(w http.ResponseWriter, r *http.Request) {
	table, ok := h.ReadUpload(w, r)
	if !ok {
		return
	}

	accounts, err := importer.ParseTrialBalance(table)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	moderate, err := FormFloat(r, "moderate_pct")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}
	significant, err := FormFloat(r, "significant_pct")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	thresholds := dto.VarianceRequest{ModeratePct: moderate, SignificantPct: significant}.
		Thresholds(h.svc.DefaultThresholds())

	h.run(w, r, service.VarianceRequest{
		ClientID:   r.FormValue("client_id"),
		Name:       r.FormValue("name"),
		Accounts:   accounts,
		Thresholds: thresholds,
		Save:       r.FormValue("save") == "true",
	})
}

func (h *VarianceHandler) run(w http.ResponseWriter, r *http.Request, req service.VarianceRequest) {
	flags, err := parseFlags(r.URL.Query().Get("flags"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	analysis, err := h.svc.RunVariance(r.Context(), req)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	status := http.StatusOK
	if req.Save {
		status = http.StatusCreated
	}
	h.WriteJSON(w, status, dto.NewVarianceResponse(analysis, true, flags...))
}

// List handles GET /api/variance - saved analyses, newest first, without records.
func (h *VarianceHandler) List(w http.ResponseWriter, r *http.Request) {
	analyses, err := h.repo.ListVarianceAnalyses(r.URL.Query().Get("client_id"), ParseIntParam(r, "limit", 20))
	if err != nil {
		h.WriteInternal(w, "failed to list variance analyses", err)
		return
	}

	response := dto.VarianceListResponse{Analyses: make([]dto.VarianceResponse, 0, len(analyses))}
	for i := range analyses {
		response.Analyses = append(response.Analyses, dto.NewVarianceResponse(&analyses[i], false))
	}
	response.Count = len(response.Analyses)
	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/variance/{id}. The flags query parameter
// (e.g. flags=moderate,significant) filters the records returned.
func (h *VarianceHandler) Get(w http.ResponseWriter, r *http.Request) {
	analysis, ok := h.load(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	flags, err := parseFlags(r.URL.Query().Get("flags"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.NewVarianceResponse(analysis, true, flags...))
}

// Reclassify handles PUT /api/variance/{id}/thresholds - re-flags a saved
// analysis under new thresholds.
func (h *VarianceHandler) Reclassify(w http.ResponseWriter, r *http.Request) {
	analysis, ok := h.load(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req dto.ThresholdsRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	updated, err := h.svc.ReclassifyVariance(r.Context(), analysis.ID, req.Merge(analysis.Thresholds))
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.NewVarianceResponse(updated, true))
}

// Export handles GET /api/variance/{id}/export - the analysis as an xlsx workbook.
func (h *VarianceHandler) Export(w http.ResponseWriter, r *http.Request) {
	analysis, ok := h.load(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	// Buffer so a failed write can still produce a JSON error
	var buf bytes.Buffer
	if err := export.WriteVarianceWorkbook(&buf, analysis.Records, analysis.Summary); err != nil {
		h.WriteInternal(w, "failed to export variance analysis", err)
		return
	}

	writeAttachment(w, fmt.Sprintf("variance-%s.xlsx", analysis.ID), buf.Bytes())
}

func (h *VarianceHandler) load(w http.ResponseWriter, id string) (*storage.VarianceAnalysis, bool) {
	analysis, err := h.repo.GetVarianceAnalysis(id)
	if err != nil {
		h.WriteInternal(w, "failed to load variance analysis", err)
		return nil, false
	}
	if analysis == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("variance analysis"))
		return nil, false
	}
	return analysis, true
}

// parseFlags reads a comma-separated flag list. "flagged" expands to
// moderate and significant.
func parseFlags(list string) ([]variance.Flag, error) {
	if list == "" {
		return nil, nil
	}

	var flags []variance.Flag
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "flagged" {
			flags = append(flags, variance.FlagModerate, variance.FlagSignificant)
			continue
		}
		f, ok := variance.ParseFlag(part)
		if !ok {
			return nil, fmt.Errorf("unknown flag %q", part)
		}
		flags = append(flags, f)
	}
	return flags, nil
}

func writeAttachment(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
