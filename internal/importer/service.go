package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JakubTuta/minsik-ingestion/internal/domain"
)

// StartResult is the trigger response.
type StartResult struct {
	Status string `json:"status"`
	JobID  string `json:"job_id,omitempty"`
}

const (
	StatusStarted        = "started"
	StatusAlreadyRunning = "already_running"
)

// Service is the admin-facing import trigger. A trigger starts the pipeline
// in a detached background goroutine; callers poll the job status instead
// of waiting.
type Service struct {
	log      *slog.Logger
	pipeline *Pipeline
	runs     RunStateRepo
}

// NewService creates a Service.
func NewService(log *slog.Logger, pipeline *Pipeline, runs RunStateRepo) *Service {
	return &Service{
		log:      log.With("component", "import_service"),
		pipeline: pipeline,
		runs:     runs,
	}
}

// Start triggers an import run unless one is already active. The returned
// job id keys later Status calls. The early MarkerHeld check is advisory;
// the pipeline's atomic marker acquisition is what actually prevents a
// second concurrent run.
func (s *Service) Start(ctx context.Context) (StartResult, error) {
	held, err := s.runs.MarkerHeld(ctx, MarkerName)
	if err != nil {
		return StartResult{}, fmt.Errorf("check run marker: %w", err)
	}
	if held {
		return StartResult{Status: StatusAlreadyRunning}, nil
	}

	jobID := uuid.New()
	go func() {
		err := s.pipeline.Run(context.Background(), jobID, nil)
		switch {
		case errors.Is(err, domain.ErrAlreadyRunning):
			s.log.Info("import trigger lost the marker race", slog.String("job_id", jobID.String()))
		case err != nil:
			s.log.Error("import run failed",
				slog.String("job_id", jobID.String()),
				slog.String("error", err.Error()),
			)
		}
	}()

	return StartResult{Status: StatusStarted, JobID: jobID.String()}, nil
}

// Status returns the persisted progress string for a job.
// Returns domain.ErrNotFound for unknown or expired jobs.
func (s *Service) Status(ctx context.Context, jobID uuid.UUID) (string, error) {
	return s.runs.GetStatus(ctx, jobID)
}
