// Package service provides the ingestion pipeline, graph writing, cross
// document linking and query answering for policy documents.
package service

import (
	"context"

	"github.com/joonhokim/yakgwan/internal/db"
	"github.com/joonhokim/yakgwan/internal/models"
)

// Store is the persistence surface the pipeline needs. *db.Client
// implements it; tests substitute fakes.
type Store interface {
	UpsertEntity(ctx context.Context, id string, e models.Entity) (*models.Entity, bool, error)
	CreateRelation(ctx context.Context, r models.RelationCandidate) error
	GetEntity(ctx context.Context, id string) (*models.Entity, error)
	HybridSearch(ctx context.Context, query string, embedding []float32, docID string, limit int) ([]models.Entity, error)
	SearchClauses(ctx context.Context, query string, embedding []float32, docID string, limit int) ([]db.Clause, error)
	FindEntitiesByCode(ctx context.Context, code, excludeDocID string) ([]models.Entity, error)
	FindEntitiesByType(ctx context.Context, entityType models.EntityType, excludeDocID string) ([]models.Entity, error)
	Traverse(ctx context.Context, startID string, depth int, relationTypes []models.RelationType) (*db.TraverseResult, error)

	SaveDocument(ctx context.Context, doc *models.ParsedDocument, extraction *models.ExtractionResult) error
	SaveClause(ctx context.Context, id string, cl db.Clause) error

	CreateJob(ctx context.Context, id string, job models.IngestionJob) (*models.IngestionJob, error)
	UpdateJobProgress(ctx context.Context, id, step string, progress int, detail map[string]any) error
	CompleteJob(ctx context.Context, id string, results models.JobResults) error
	FailJob(ctx context.Context, id, errorMessage string) error
	GetJob(ctx context.Context, id string) (*models.IngestionJob, error)
	ListJobs(ctx context.Context, limit int) ([]models.IngestionJob, error)
	GetIncompleteJobs(ctx context.Context) ([]models.IngestionJob, error)
}

// Embedder produces fixed-dimension embedding vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Generator is the LLM surface used for candidate extraction and answer
// synthesis. A nil Generator means rule-only extraction.
type Generator interface {
	ExtractCandidates(ctx context.Context, text string, knownEntities []string) (string, error)
	SynthesizeAnswer(ctx context.Context, question string, evidence string) (string, error)
}
