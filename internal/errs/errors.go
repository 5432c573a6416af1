// Package errs defines the pipeline error taxonomy. Stage code wraps
// these sentinels with fmt.Errorf("...: %w", ...) and callers branch
// with errors.Is.
package errs

import "errors"

var (
	// ErrValidation marks a bad input document. Rejected before a job
	// row is created; no job exists to fail.
	ErrValidation = errors.New("validation error")

	// ErrExtractionDegraded marks a stage that produced low-confidence
	// or partial output. Recorded in results.errors, the job continues.
	ErrExtractionDegraded = errors.New("extraction degraded")

	// ErrExtractionFailed marks a stage with no usable output at all.
	// The job transitions to failed.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrWriteConflict marks graph merge contention. Retried a bounded
	// number of times, then recorded and the entity skipped.
	ErrWriteConflict = errors.New("write conflict")

	// ErrUpstream marks an unreachable blob/LLM/embedding service.
	// Retried with backoff, then degrades or fails per stage criticality.
	ErrUpstream = errors.New("upstream unavailable")

	// ErrNotFound marks a missing job or entity.
	ErrNotFound = errors.New("not found")

	// ErrJobTerminal marks an attempted transition out of a terminal
	// job state. Callers must submit a new job to retry.
	ErrJobTerminal = errors.New("job already in terminal state")
)
