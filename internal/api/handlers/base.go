package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/eshaffer321/auditflow/internal/adapters/importer"
	"github.com/eshaffer321/auditflow/internal/api/dto"
	"github.com/eshaffer321/auditflow/internal/application/service"
	"github.com/eshaffer321/auditflow/internal/domain/sampling"
	"github.com/eshaffer321/auditflow/internal/infrastructure/storage"
)

// Upload limits
const (
	MaxUploadBytes = 32 << 20
	maxBodyBytes   = 8 << 20
)

// Base provides shared functionality for all handlers.
type Base struct {
	repo   storage.Repository
	logger *slog.Logger
}

// NewBase creates a new base handler with the given repository.
func NewBase(repo storage.Repository, logger *slog.Logger) *Base {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Base{repo: repo, logger: logger}
}

// WriteJSON writes a JSON response with the given status code. The body is
// encoded before the status is sent so an encoding failure becomes a 500.
func (b *Base) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		b.logger.Error("failed to encode response", "error", err)
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(dto.InternalError())
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// WriteError writes an error response with the given status code.
func (b *Base) WriteError(w http.ResponseWriter, status int, err dto.APIError) {
	b.WriteJSON(w, status, err)
}

// WriteInternal logs err and writes a generic 500.
func (b *Base) WriteInternal(w http.ResponseWriter, msg string, err error) {
	b.logger.Error(msg, "error", err)
	b.WriteError(w, http.StatusInternalServerError, dto.InternalError())
}

// WriteServiceError maps service and import errors to API errors.
func (b *Base) WriteServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownClient):
		b.WriteError(w, http.StatusNotFound, dto.NotFoundError("client"))
	case errors.Is(err, service.ErrUnknownAnalysis):
		b.WriteError(w, http.StatusNotFound, dto.NotFoundError("variance analysis"))
	case errors.Is(err, service.ErrInvalidThresholds),
		errors.Is(err, service.ErrInvalidPercentage),
		errors.Is(err, sampling.ErrUnknownStrategy):
		b.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
	case errors.Is(err, importer.ErrUnsupportedFormat):
		b.WriteError(w, http.StatusUnsupportedMediaType, dto.UnsupportedFormatError(err))
	case errors.Is(err, importer.ErrMissingColumn),
		errors.Is(err, importer.ErrEmptySheet),
		errors.Is(err, importer.ErrInvalidRow):
		b.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
	default:
		b.WriteInternal(w, "request failed", err)
	}
}

// DecodeJSON reads a JSON body into v, writing a 400 on failure.
func (b *Base) DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		b.WriteError(w, http.StatusBadRequest, dto.BadRequestError(fmt.Sprintf("invalid JSON body: %v", err)))
		return false
	}
	return true
}

// ReadUpload parses a multipart upload and reads its "file" part as a table.
func (b *Base) ReadUpload(w http.ResponseWriter, r *http.Request) (*importer.Table, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		b.WriteError(w, http.StatusBadRequest, dto.BadRequestError("expected multipart form with a file field"))
		return nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		b.WriteError(w, http.StatusBadRequest, dto.BadRequestError("file field is required"))
		return nil, false
	}
	defer func() { _ = file.Close() }()

	table, err := importer.Read(header.Filename, file)
	if err != nil {
		b.WriteServiceError(w, err)
		return nil, false
	}
	return table, true
}

// ParseIntParam parses an integer query parameter with a default value.
func ParseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// ParseBoolParam parses a boolean query parameter with a default value.
func ParseBoolParam(r *http.Request, name string, defaultVal bool) bool {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	return val == "true" || val == "1"
}

// FormFloat parses an optional float form value. A missing value is nil.
func FormFloat(r *http.Request, name string) (*float64, error) {
	val := r.FormValue(name)
	if val == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", name)
	}
	return &f, nil
}

// FormUint parses an optional unsigned form value. A missing value is nil.
func FormUint(r *http.Request, name string) (*uint64, error) {
	val := r.FormValue(name)
	if val == "" {
		return nil, nil
	}
	u, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return &u, nil
}
