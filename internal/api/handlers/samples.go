package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/auditflow/internal/adapters/export"
	"github.com/eshaffer321/auditflow/internal/adapters/importer"
	"github.com/eshaffer321/auditflow/internal/api/dto"
	"github.com/eshaffer321/auditflow/internal/application/service"
	"github.com/eshaffer321/auditflow/internal/domain/sampling"
	"github.com/eshaffer321/auditflow/internal/infrastructure/storage"
)

// SamplesHandler handles sample selection requests.
type SamplesHandler struct {
	*Base
	svc *service.AuditService
}

// NewSamplesHandler creates a new samples handler.
func NewSamplesHandler(repo storage.Repository, svc *service.AuditService, logger *slog.Logger) *SamplesHandler {
	return &SamplesHandler{
		Base: NewBase(repo, logger),
		svc:  svc,
	}
}

// Run handles POST /api/samples - selects from transactions sent as JSON.
func (h *SamplesHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req dto.SampleRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	module, err := req.ModuleKind()
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}
	params, err := req.Params(h.svc.DefaultParams)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}
	population, err := req.Population(module)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	h.run(w, r, service.SampleRequest{
		ClientID:   req.ClientID,
		Name:       req.Name,
		Module:     module,
		Population: population,
		Params:     params,
		Seed:       req.Seed,
		Save:       req.Save,
	})
}

// Upload handles POST /api/samples/upload - selects from an uploaded ledger.
// Form fields: file, module, strategy, percentage, high_threshold,
// medium_threshold, related_parties, include_related_parties, seed,
// client_id, name, save.
func (h *SamplesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	table, ok := h.ReadUpload(w, r)
	if !ok {
		return
	}

	req, err := sampleForm(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	module, err := req.ModuleKind()
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}
	params, err := req.Params(h.svc.DefaultParams)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	population, err := importer.ParseTransactions(table, module)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.run(w, r, service.SampleRequest{
		ClientID:   req.ClientID,
		Name:       req.Name,
		Module:     module,
		Population: population,
		Params:     params,
		Seed:       req.Seed,
		Save:       req.Save,
	})
}

// sampleForm reads the upload's form fields into a request
func sampleForm(r *http.Request) (dto.SampleRequest, error) {
	req := dto.SampleRequest{
		ClientID:              r.FormValue("client_id"),
		Name:                  r.FormValue("name"),
		Module:                r.FormValue("module"),
		Strategy:              r.FormValue("strategy"),
		RelatedParties:        sampling.ParseRelatedParties(r.FormValue("related_parties")),
		IncludeRelatedParties: r.FormValue("include_related_parties") == "true",
		Save:                  r.FormValue("save") == "true",
	}

	var err error
	for name, dst := range map[string]**float64{
		"percentage":       &req.Percentage,
		"high_threshold":   &req.HighThreshold,
		"medium_threshold": &req.MediumThreshold,
	} {
		if *dst, err = FormFloat(r, name); err != nil {
			return req, err
		}
	}
	if req.Seed, err = FormUint(r, "seed"); err != nil {
		return req, err
	}
	return req, nil
}

func (h *SamplesHandler) run(w http.ResponseWriter, r *http.Request, req service.SampleRequest) {
	run, err := h.svc.RunSample(r.Context(), req)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	status := http.StatusOK
	if req.Save {
		status = http.StatusCreated
	}
	h.WriteJSON(w, status, dto.NewSampleResponse(run, true))
}

// List handles GET /api/samples - saved runs, newest first, without the sample.
func (h *SamplesHandler) List(w http.ResponseWriter, r *http.Request) {
	runs, err := h.repo.ListSampleRuns(r.URL.Query().Get("client_id"), ParseIntParam(r, "limit", 20))
	if err != nil {
		h.WriteInternal(w, "failed to list sample runs", err)
		return
	}

	response := dto.SampleListResponse{Samples: make([]dto.SampleResponse, 0, len(runs))}
	for i := range runs {
		response.Samples = append(response.Samples, dto.NewSampleResponse(&runs[i], false))
	}
	response.Count = len(response.Samples)
	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/samples/{id}.
func (h *SamplesHandler) Get(w http.ResponseWriter, r *http.Request) {
	run, ok := h.load(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.NewSampleResponse(run, true))
}

// Export handles GET /api/samples/{id}/export - the sample as an xlsx workbook.
func (h *SamplesHandler) Export(w http.ResponseWriter, r *http.Request) {
	run, ok := h.load(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteSampleWorkbook(&buf, &run.Result); err != nil {
		h.WriteInternal(w, "failed to export sample", err)
		return
	}

	writeAttachment(w, fmt.Sprintf("sample-%s.xlsx", run.ID), buf.Bytes())
}

func (h *SamplesHandler) load(w http.ResponseWriter, id string) (*storage.SampleRun, bool) {
	run, err := h.repo.GetSampleRun(id)
	if err != nil {
		h.WriteInternal(w, "failed to load sample run", err)
		return nil, false
	}
	if run == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("sample run"))
		return nil, false
	}
	return run, true
}
