package scan

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Wuchinator/scan-analytics/internal/httpapi"
)

const maxIngestBody = 64 << 10

type Ingester interface {
	IngestEvent(ctx context.Context, userID string, req IngestRequest) (uuid.UUID, error)
}

type Handler struct {
	service Ingester
	logger  *zap.Logger
}

func NewHandler(service Ingester, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes mounts the ingestion routes. Callers wrap r with
// httpapi.RequireUser.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/log", h.LogScan)
}

type LogScanResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (h *Handler) LogScan(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpapi.UserID(r.Context())
	if !ok {
		WriteServiceError(w, ErrNotAuthenticated)
		return
	}

	var req IngestRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIngestBody))
	if err := dec.Decode(&req); err != nil {
		h.logger.Debug("Malformed scan payload", zap.Error(err))
		httpapi.WriteError(w, http.StatusBadRequest, "validation_error", "Missing required scan fields")
		return
	}

	id, err := h.service.IngestEvent(r.Context(), userID, req)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	httpapi.WriteJSON(w, http.StatusCreated, LogScanResponse{
		ID:      id.String(),
		Message: "Scan logged successfully",
	})
}

// StatusCode maps scan errors onto HTTP statuses and error codes.
func StatusCode(err error) (int, string) {
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func WriteServiceError(w http.ResponseWriter, err error) {
	status, code := StatusCode(err)

	message := "Internal server error"
	switch status {
	case http.StatusUnauthorized:
		message = "Unauthenticated"
	case http.StatusBadRequest:
		message = err.Error()
	case http.StatusServiceUnavailable:
		message = "Scan store temporarily unavailable"
	}

	httpapi.WriteError(w, status, code, message)
}
