package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JakubTuta/minsik-ingestion/internal/domain"
	"github.com/JakubTuta/minsik-ingestion/internal/importer"
)

type importService interface {
	Start(ctx context.Context) (importer.StartResult, error)
	Status(ctx context.Context, jobID uuid.UUID) (string, error)
}

// AdminHandler serves admin REST endpoints for the dump import pipeline.
type AdminHandler struct {
	imports importService
	log     *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(imports importService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		imports: imports,
		log:     logger.With("handler", "admin"),
	}
}

// TriggerImport launches a dump import run in the background.
// POST /admin/import/dump
//
// Responds 202 with {"status":"started","job_id":...} when a run was
// launched, or 409 with {"status":"already_running"} when another run
// holds the import marker.
func (h *AdminHandler) TriggerImport(w http.ResponseWriter, r *http.Request) {
	res, err := h.imports.Start(r.Context())
	if err != nil {
		h.log.ErrorContext(r.Context(), "trigger import", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	status := http.StatusAccepted
	if res.Status == importer.StatusAlreadyRunning {
		status = http.StatusConflict
	}

	h.log.InfoContext(r.Context(), "import trigger",
		slog.String("status", res.Status),
		slog.String("job_id", res.JobID),
	)
	writeJSON(w, status, res)
}

// ImportStatus returns the latest status message of an import run.
// GET /admin/import/status?job_id=<uuid>
func (h *AdminHandler) ImportStatus(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(r.URL.Query().Get("job_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid or missing job_id")
		return
	}

	msg, err := h.imports.Status(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown job")
			return
		}
		h.log.ErrorContext(r.Context(), "get import status", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, importStatusResponse{
		JobID:  jobID.String(),
		Status: msg,
	})
}

type importStatusResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}
