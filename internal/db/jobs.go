package db

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/joonhokim/yakgwan/internal/models"
)

// CreateJob persists a new pending ingestion job row.
func (c *Client) CreateJob(ctx context.Context, id string, job models.IngestionJob) (*models.IngestionJob, error) {
	sql := `
		CREATE type::record("ingest_job", $id) SET
			insurer = $insurer,
			policy_name = $policy_name,
			launch_date = $launch_date,
			blob_key = $blob_key,
			doc_id = $doc_id,
			status = "pending",
			progress = 0
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.IngestionJob](ctx, c.db, sql, map[string]any{
		"id":          id,
		"insurer":     job.Insurer,
		"policy_name": job.PolicyName,
		"launch_date": job.LaunchDate,
		"blob_key":    job.BlobKey,
		"doc_id":      job.DocID,
	})
	if err != nil {
		return nil, fmt.Errorf("create job: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create job: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// UpdateJobProgress advances a processing job's progress and step.
// Progress never moves backward and terminal jobs are never touched;
// both guards live in the WHERE clause so concurrent writers cannot
// regress a job. A guard-filtered update is an idempotent no-op, but an
// unknown job ID returns ErrNotFound.
func (c *Client) UpdateJobProgress(ctx context.Context, id, step string, progress int, detail map[string]any) error {
	sql := `
		UPDATE type::record("ingest_job", $id) SET
			status = "processing",
			progress = $progress,
			processing_step = $step,
			processing_detail = $detail,
			updated_at = time::now()
		WHERE status IN ["pending", "processing"] AND progress <= $progress
		RETURN AFTER
	`

	res, err := surrealdb.Query[[]models.IngestionJob](ctx, c.db, sql, map[string]any{
		"id":       id,
		"progress": progress,
		"step":     step,
		"detail":   detail,
	})
	if err != nil {
		return fmt.Errorf("update job progress: %w", wrapQueryError(err))
	}
	if res == nil || len(*res) == 0 || len((*res)[0].Result) == 0 {
		// Either the guard filtered the row out or the job does not
		// exist; only the latter is an error.
		if _, err := c.GetJob(ctx, id); err != nil {
			return fmt.Errorf("update job progress: %w", err)
		}
	}
	return nil
}

// CompleteJob marks a job completed with its results summary.
// Returns ErrNotFound if the job does not exist or is already terminal.
func (c *Client) CompleteJob(ctx context.Context, id string, results models.JobResults) error {
	sql := `
		UPDATE type::record("ingest_job", $id) SET
			status = "completed",
			progress = 100,
			processing_step = "done",
			results = $results,
			updated_at = time::now(),
			completed_at = time::now()
		WHERE status IN ["pending", "processing"]
		RETURN AFTER
	`

	res, err := surrealdb.Query[[]models.IngestionJob](ctx, c.db, sql, map[string]any{
		"id": id,
		"results": map[string]any{
			"nodes_created":           results.NodesCreated,
			"edges_created":           results.EdgesCreated,
			"errors":                  results.Errors,
			"processing_time_seconds": results.ProcessingTimeSeconds,
		},
	})
	if err != nil {
		return fmt.Errorf("complete job: %w", wrapQueryError(err))
	}
	if res == nil || len(*res) == 0 || len((*res)[0].Result) == 0 {
		return fmt.Errorf("complete job %s: %w", id, ErrNotFound)
	}
	return nil
}

// FailJob marks a job failed with an error message.
// Returns ErrNotFound if the job does not exist or is already terminal.
func (c *Client) FailJob(ctx context.Context, id, errorMessage string) error {
	sql := `
		UPDATE type::record("ingest_job", $id) SET
			status = "failed",
			error_message = $error,
			updated_at = time::now(),
			completed_at = time::now()
		WHERE status IN ["pending", "processing"]
		RETURN AFTER
	`

	res, err := surrealdb.Query[[]models.IngestionJob](ctx, c.db, sql, map[string]any{
		"id":    id,
		"error": errorMessage,
	})
	if err != nil {
		return fmt.Errorf("fail job: %w", wrapQueryError(err))
	}
	if res == nil || len(*res) == 0 || len((*res)[0].Result) == 0 {
		return fmt.Errorf("fail job %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetJob retrieves a job by ID. Returns ErrNotFound if absent.
func (c *Client) GetJob(ctx context.Context, id string) (*models.IngestionJob, error) {
	results, err := surrealdb.Query[[]models.IngestionJob](ctx, c.db, `
		SELECT * FROM type::record("ingest_job", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get job: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("get job %s: %w", id, ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// ListJobs returns jobs, most recent first.
func (c *Client) ListJobs(ctx context.Context, limit int) ([]models.IngestionJob, error) {
	if limit <= 0 {
		limit = 50
	}

	results, err := surrealdb.Query[[]models.IngestionJob](ctx, c.db, `
		SELECT * FROM ingest_job ORDER BY created_at DESC LIMIT $limit
	`, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.IngestionJob{}, nil
	}
	return (*results)[0].Result, nil
}

// GetIncompleteJobs returns jobs still pending or processing, oldest
// first, for resume after a restart.
func (c *Client) GetIncompleteJobs(ctx context.Context) ([]models.IngestionJob, error) {
	results, err := surrealdb.Query[[]models.IngestionJob](ctx, c.db, `
		SELECT * FROM ingest_job WHERE status IN ["pending", "processing"]
		ORDER BY created_at ASC
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("get incomplete jobs: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.IngestionJob{}, nil
	}
	return (*results)[0].Result, nil
}
