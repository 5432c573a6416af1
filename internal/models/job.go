package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// JobStatus is the lifecycle state of an ingestion job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether s permits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobResults summarizes what an ingestion job committed.
type JobResults struct {
	NodesCreated          int      `json:"nodes_created"`
	EdgesCreated          int      `json:"edges_created"`
	Errors                []string `json:"errors"`
	ProcessingTimeSeconds float64  `json:"processing_time_seconds"`
}

// IngestionJob is the persisted record of one document ingestion.
// Progress is monotonically non-decreasing while processing; status moves
// only pending -> processing -> {completed, failed}.
type IngestionJob struct {
	ID surrealmodels.RecordID `json:"id"`

	// Source document reference.
	Insurer    string  `json:"insurer"`
	PolicyName string  `json:"policy_name"`
	LaunchDate *string `json:"launch_date,omitempty"`
	BlobKey    string  `json:"blob_key"`
	DocID      string  `json:"doc_id"`

	Status           JobStatus      `json:"status"`
	Progress         int            `json:"progress"`
	ProcessingStep   string         `json:"processing_step,omitempty"`
	ProcessingDetail map[string]any `json:"processing_detail,omitempty"`

	Results      *JobResults `json:"results,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// JobID extracts the string job ID.
func (j *IngestionJob) JobID() string {
	return MustRecordIDString(j.ID)
}
