// internal/api/handler.go
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	practicesession "github.com/dstainton/transcript-flash-cards/internal/domain/practice_session"
	"github.com/dstainton/transcript-flash-cards/internal/extract"
	"github.com/dstainton/transcript-flash-cards/internal/infrastructure/config"
	"github.com/dstainton/transcript-flash-cards/internal/service"
	"github.com/dstainton/transcript-flash-cards/internal/store"
)

// Handler holds all dependencies needed by HTTP handlers.
// Every handler method receives its dependencies through this struct.
type Handler struct {
	projects   *service.ProjectService
	study      *service.StudyService
	generation *service.GenerationService
	settings   *config.SettingsStore
	maxUpload  int64
	logger     *slog.Logger
}

// NewHandler creates a Handler with the given dependencies. maxUpload is
// the per-file upload limit in bytes.
func NewHandler(
	projects *service.ProjectService,
	study *service.StudyService,
	generation *service.GenerationService,
	settings *config.SettingsStore,
	maxUpload int64,
	logger *slog.Logger,
) *Handler {
	if maxUpload <= 0 {
		maxUpload = extract.DefaultMaxFileSize
	}
	return &Handler{
		projects:   projects,
		study:      study,
		generation: generation,
		settings:   settings,
		maxUpload:  maxUpload,
		logger:     logger,
	}
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError writes a {"error": msg} body.
func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON decodes the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

type validator interface {
	Validate() error
}

// decodeAndValidate decodes the body and runs the request's own validation.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v validator) bool {
	if !decodeJSON(w, r, v) {
		return false
	}
	if err := v.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// handleError maps service and store errors to HTTP responses. Returns
// true if an error was handled (caller should return).
func (h *Handler) handleError(w http.ResponseWriter, err error, entity string) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, practicesession.ErrEmptyAnswer),
		errors.Is(err, store.ErrEmptyName):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, practicesession.ErrEmptyPool):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, practicesession.ErrNotActive),
		errors.Is(err, store.ErrLastProject):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNoSession),
		errors.Is(err, service.ErrProgressNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, entity+" not found")
	default:
		h.logger.Error("request failed", "error", err, "entity", entity)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
	return true
}

// finalizePending records the browser's finished session before a
// navigation response. Failures are logged; navigation still proceeds.
func (h *Handler) finalizePending(r *http.Request) {
	if _, err := h.study.FinalizeIfPending(r.Context(), browserToken(r)); err != nil {
		h.logger.Error("failed to finalize pending session", "error", err)
	}
}

// health reports liveness.
// @Summary      Health check
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
