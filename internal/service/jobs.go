package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joonhokim/yakgwan/internal/db"
	"github.com/joonhokim/yakgwan/internal/errs"
	"github.com/joonhokim/yakgwan/internal/models"
)

// Stage progress checkpoints. Progress within a job is monotonically
// non-decreasing; the store-level WHERE guard enforces it even against
// stray writers.
const (
	ProgressValidating = 10
	ProgressParsing    = 30
	ProgressExtracting = 55
	ProgressWriting    = 80
	ProgressLinking    = 95
	ProgressDone       = 100
)

// JobManager owns ingestion job rows. It is the only writer of a job's
// record; pipeline stages report through it.
type JobManager struct {
	store  Store
	logger *slog.Logger
}

// NewJobManager creates a job manager.
func NewJobManager(store Store, logger *slog.Logger) *JobManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobManager{store: store, logger: logger.With("system", "jobs")}
}

// Create persists a new pending job and returns its ID.
func (m *JobManager) Create(ctx context.Context, job models.IngestionJob) (string, error) {
	id := uuid.New().String()[:8]

	if _, err := m.store.CreateJob(ctx, id, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}

	m.logger.Info("job created",
		"job_id", id, "insurer", job.Insurer, "policy", job.PolicyName, "doc_id", job.DocID)
	return id, nil
}

// Advance moves a processing job to the given step and progress.
// Idempotent: repeating a step or reporting a lower progress is a
// no-op, never a regression. Returns ErrNotFound for an unknown job ID.
func (m *JobManager) Advance(ctx context.Context, id, step string, progress int, detail map[string]any) error {
	if err := m.store.UpdateJobProgress(ctx, id, step, progress, detail); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("advance job %s: %w", id, errs.ErrNotFound)
		}
		return fmt.Errorf("advance job %s: %w", id, err)
	}
	m.logger.Debug("job advanced", "job_id", id, "step", step, "progress", progress)
	return nil
}

// Complete marks a job completed with its results.
// Returns ErrJobTerminal if the job already reached a terminal state.
func (m *JobManager) Complete(ctx context.Context, id string, results models.JobResults) error {
	if err := m.store.CompleteJob(ctx, id, results); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("complete job %s: %w", id, errs.ErrJobTerminal)
		}
		return fmt.Errorf("complete job %s: %w", id, err)
	}
	m.logger.Info("job completed",
		"job_id", id, "nodes", results.NodesCreated, "edges", results.EdgesCreated,
		"errors", len(results.Errors))
	return nil
}

// Fail marks a job failed with an error message.
// Returns ErrJobTerminal if the job already reached a terminal state.
func (m *JobManager) Fail(ctx context.Context, id string, cause error) error {
	if err := m.store.FailJob(ctx, id, cause.Error()); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("fail job %s: %w", id, errs.ErrJobTerminal)
		}
		return fmt.Errorf("fail job %s: %w", id, err)
	}
	m.logger.Error("job failed", "job_id", id, "error", cause)
	return nil
}

// GetStatus retrieves a job by ID.
func (m *JobManager) GetStatus(ctx context.Context, id string) (*models.IngestionJob, error) {
	job, err := m.store.GetJob(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("job %s: %w", id, errs.ErrNotFound)
		}
		return nil, err
	}
	return job, nil
}

// List returns recent jobs, most recent first.
func (m *JobManager) List(ctx context.Context, limit int) ([]models.IngestionJob, error) {
	return m.store.ListJobs(ctx, limit)
}

// Incomplete returns jobs still pending or processing, oldest first.
func (m *JobManager) Incomplete(ctx context.Context) ([]models.IngestionJob, error) {
	return m.store.GetIncompleteJobs(ctx)
}
