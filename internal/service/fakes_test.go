package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/joonhokim/yakgwan/internal/db"
	"github.com/joonhokim/yakgwan/internal/models"
)

const fakeDimension = 4

// fakeStore is an in-memory Store. Default behavior mirrors the real
// client's contracts (idempotent upserts, endpoint checks, relation
// dedup, monotonic job progress, terminal guards); individual tests
// override single methods through the function fields.
type fakeStore struct {
	mu sync.Mutex

	entities  map[string]models.Entity
	relations map[string]models.RelationCandidate
	clauses   map[string]db.Clause
	jobs      map[string]*models.IngestionJob
	docsSaved int

	// Per-job progress history for monotonicity assertions.
	progressLog map[string][]int

	upsertEntityFunc   func(ctx context.Context, id string, e models.Entity) (*models.Entity, bool, error)
	createRelationFunc func(ctx context.Context, r models.RelationCandidate) error
	hybridSearchFunc   func(ctx context.Context, query string, embedding []float32, docID string, limit int) ([]models.Entity, error)
	searchClausesFunc  func(ctx context.Context, query string, embedding []float32, docID string, limit int) ([]db.Clause, error)
	traverseFunc       func(ctx context.Context, startID string, depth int, relationTypes []models.RelationType) (*db.TraverseResult, error)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entities:    make(map[string]models.Entity),
		relations:   make(map[string]models.RelationCandidate),
		clauses:     make(map[string]db.Clause),
		jobs:        make(map[string]*models.IngestionJob),
		progressLog: make(map[string][]int),
	}
}

func entityRecordID(id string) surrealmodels.RecordID {
	return surrealmodels.RecordID{Table: "entity", ID: id}
}

func relationKey(r models.RelationCandidate) string {
	return r.SourceID + "|" + r.Type + "|" + r.TargetID
}

func (f *fakeStore) UpsertEntity(ctx context.Context, id string, e models.Entity) (*models.Entity, bool, error) {
	if f.upsertEntityFunc != nil {
		return f.upsertEntityFunc(ctx, id, e)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	_, existed := f.entities[id]
	e.ID = entityRecordID(id)
	f.entities[id] = e
	return &e, !existed, nil
}

func (f *fakeStore) CreateRelation(ctx context.Context, r models.RelationCandidate) error {
	if f.createRelationFunc != nil {
		return f.createRelationFunc(ctx, r)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.entities[r.SourceID]; !ok {
		return db.ErrMissingEndpoint
	}
	if _, ok := f.entities[r.TargetID]; !ok {
		return db.ErrMissingEndpoint
	}
	key := relationKey(r)
	if _, ok := f.relations[key]; ok {
		return db.ErrAlreadyExists
	}
	f.relations[key] = r
	return nil
}

func (f *fakeStore) GetEntity(_ context.Context, id string) (*models.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.entities[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &e, nil
}

func (f *fakeStore) HybridSearch(ctx context.Context, query string, embedding []float32, docID string, limit int) ([]models.Entity, error) {
	if f.hybridSearchFunc != nil {
		return f.hybridSearchFunc(ctx, query, embedding, docID, limit)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Entity
	for _, e := range f.entities {
		if docID != "" && e.DocID != docID {
			continue
		}
		if strings.Contains(query, e.Label) || strings.Contains(e.Label, query) ||
			(e.Description != "" && strings.Contains(e.Description, query)) {
			out = append(out, e)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) SearchClauses(ctx context.Context, query string, embedding []float32, docID string, limit int) ([]db.Clause, error) {
	if f.searchClausesFunc != nil {
		return f.searchClausesFunc(ctx, query, embedding, docID, limit)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []db.Clause
	for _, cl := range f.clauses {
		if docID != "" && cl.DocID != docID {
			continue
		}
		if strings.Contains(cl.Text, query) || strings.Contains(query, cl.Title) {
			out = append(out, cl)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) FindEntitiesByCode(_ context.Context, code, excludeDocID string) ([]models.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Entity
	for _, e := range f.entities {
		if e.Code == code && e.DocID != excludeDocID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) FindEntitiesByType(_ context.Context, entityType models.EntityType, excludeDocID string) ([]models.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Entity
	for _, e := range f.entities {
		if e.Type == entityType && e.DocID != excludeDocID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) Traverse(ctx context.Context, startID string, depth int, relationTypes []models.RelationType) (*db.TraverseResult, error) {
	if f.traverseFunc != nil {
		return f.traverseFunc(ctx, startID, depth, relationTypes)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	start, ok := f.entities[startID]
	if !ok {
		return nil, db.ErrNotFound
	}

	result := &db.TraverseResult{
		ID:    startID,
		Label: start.Label,
		Type:  string(start.Type),
		DocID: start.DocID,
		Code:  start.Code,
	}

	// BFS over outgoing edges up to depth hops.
	frontier := []string{startID}
	visited := map[string]bool{startID: true}
	for hop := 0; hop < depth; hop++ {
		var next []string
		for _, id := range frontier {
			for _, rel := range f.relations {
				if rel.SourceID != id || visited[rel.TargetID] {
					continue
				}
				visited[rel.TargetID] = true
				if target, ok := f.entities[rel.TargetID]; ok {
					result.Connected = append(result.Connected, target)
					next = append(next, rel.TargetID)
				}
			}
		}
		frontier = next
	}
	return result, nil
}

func (f *fakeStore) SaveDocument(_ context.Context, _ *models.ParsedDocument, _ *models.ExtractionResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docsSaved++
	return nil
}

func (f *fakeStore) SaveClause(_ context.Context, id string, cl db.Clause) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clauses[id] = cl
	return nil
}

func (f *fakeStore) CreateJob(_ context.Context, id string, job models.IngestionJob) (*models.IngestionJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.jobs[id]; ok {
		return nil, db.ErrAlreadyExists
	}
	job.ID = surrealmodels.RecordID{Table: "ingest_job", ID: id}
	job.Status = models.JobPending
	job.Progress = 0
	f.jobs[id] = &job
	stored := job
	return &stored, nil
}

func (f *fakeStore) UpdateJobProgress(_ context.Context, id, step string, progress int, detail map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok {
		return db.ErrNotFound
	}
	// Same guard as the store query: terminal and regressions are no-ops.
	if job.Status.Terminal() || progress < job.Progress {
		return nil
	}
	job.Status = models.JobProcessing
	job.Progress = progress
	job.ProcessingStep = step
	job.ProcessingDetail = detail
	f.progressLog[id] = append(f.progressLog[id], progress)
	return nil
}

func (f *fakeStore) CompleteJob(_ context.Context, id string, results models.JobResults) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok || job.Status.Terminal() {
		return db.ErrNotFound
	}
	job.Status = models.JobCompleted
	job.Progress = 100
	job.Results = &results
	f.progressLog[id] = append(f.progressLog[id], 100)
	return nil
}

func (f *fakeStore) FailJob(_ context.Context, id, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok || job.Status.Terminal() {
		return db.ErrNotFound
	}
	job.Status = models.JobFailed
	job.ErrorMessage = errorMessage
	return nil
}

func (f *fakeStore) GetJob(_ context.Context, id string) (*models.IngestionJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (f *fakeStore) ListJobs(_ context.Context, limit int) ([]models.IngestionJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.IngestionJob
	for _, job := range f.jobs {
		out = append(out, *job)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) GetIncompleteJobs(_ context.Context) ([]models.IngestionJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.IngestionJob
	for _, job := range f.jobs {
		if !job.Status.Terminal() {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (f *fakeStore) getJobUnsafe(id string) *models.IngestionJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs[id]
}

// fakeEmbedder returns small deterministic vectors by default.
type fakeEmbedder struct {
	embedFunc func(ctx context.Context, text string) ([]float32, error)
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.embedFunc != nil {
		return f.embedFunc(ctx, text)
	}
	v := make([]float32, fakeDimension)
	for i, r := range []rune(text) {
		v[i%fakeDimension] += float32(r%97) / 97
	}
	return v, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return fakeDimension }

// fakeGenerator stubs the LLM surface.
type fakeGenerator struct {
	extractFunc    func(ctx context.Context, text string, knownEntities []string) (string, error)
	synthesizeFunc func(ctx context.Context, question string, evidence string) (string, error)
}

func (f *fakeGenerator) ExtractCandidates(ctx context.Context, text string, knownEntities []string) (string, error) {
	if f.extractFunc != nil {
		return f.extractFunc(ctx, text, knownEntities)
	}
	return "", nil
}

func (f *fakeGenerator) SynthesizeAnswer(ctx context.Context, question string, evidence string) (string, error) {
	if f.synthesizeFunc != nil {
		return f.synthesizeFunc(ctx, question, evidence)
	}
	return fmt.Sprintf("근거에 따른 답변입니다. %s", evidence), nil
}
