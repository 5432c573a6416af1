package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joonhokim/yakgwan/internal/blob"
	"github.com/joonhokim/yakgwan/internal/db"
	"github.com/joonhokim/yakgwan/internal/errs"
	"github.com/joonhokim/yakgwan/internal/extract"
	"github.com/joonhokim/yakgwan/internal/llm"
	"github.com/joonhokim/yakgwan/internal/models"
	"github.com/joonhokim/yakgwan/internal/parser"
)

// llmStageTimeout bounds the whole LLM extraction pass for one document.
const llmStageTimeout = 2 * time.Minute

// IngestService runs the document ingestion pipeline: validate, store
// the source blob, parse structure, extract critical data, commit the
// graph, link across documents. Jobs run concurrently; stages within a
// job are strictly sequential.
type IngestService struct {
	store    Store
	blobs    blob.Store
	jobs     *JobManager
	writer   *GraphWriter
	linker   *Linker
	embedder Embedder
	model    Generator // nil = rule-only extraction

	parserCfg  parser.Config
	extractCfg extract.Config
	maxBytes   int64
	logger     *slog.Logger
}

// IngestConfig bundles pipeline construction parameters.
type IngestConfig struct {
	ParserConfig     parser.Config
	ExtractConfig    extract.Config
	MaxDocumentBytes int64
	LinkSimilarity   float64
}

// NewIngestService creates the pipeline.
func NewIngestService(
	store Store,
	blobs blob.Store,
	jobs *JobManager,
	embedder Embedder,
	model Generator,
	cfg IngestConfig,
	logger *slog.Logger,
) *IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxDocumentBytes <= 0 {
		cfg.MaxDocumentBytes = 50 * 1024 * 1024
	}
	return &IngestService{
		store:      store,
		blobs:      blobs,
		jobs:       jobs,
		writer:     NewGraphWriter(store, embedder, logger),
		linker:     NewLinker(store, cfg.LinkSimilarity, logger),
		embedder:   embedder,
		model:      model,
		parserCfg:  cfg.ParserConfig,
		extractCfg: cfg.ExtractConfig,
		maxBytes:   cfg.MaxDocumentBytes,
		logger:     logger.With("system", "ingest"),
	}
}

// SubmitMeta identifies the source policy document.
type SubmitMeta struct {
	Insurer     string
	PolicyName  string
	LaunchDate  *string
	ProductType string
}

// Submit validates the document, creates the ingestion job, stores the
// document durably and then processes in the background. Validation
// failures surface before any job row exists; the pending job row exists
// before the blob write, so a failed or interrupted upload leaves an
// auditable failed job rather than nothing.
func (s *IngestService) Submit(ctx context.Context, data []byte, meta SubmitMeta) (string, error) {
	if meta.Insurer == "" || meta.PolicyName == "" {
		return "", fmt.Errorf("%w: insurer and policy name required", errs.ErrValidation)
	}
	if err := parser.ValidateDocument(data, s.maxBytes); err != nil {
		return "", err
	}

	docID := uuid.New().String()[:8]
	blobKey := fmt.Sprintf("documents/%s%s", docID, blobExt(data))

	jobID, err := s.jobs.Create(ctx, models.IngestionJob{
		Insurer:    meta.Insurer,
		PolicyName: meta.PolicyName,
		LaunchDate: meta.LaunchDate,
		BlobKey:    blobKey,
		DocID:      docID,
	})
	if err != nil {
		return "", err
	}

	if err := s.blobs.Put(ctx, blobKey, data, http.DetectContentType(data)); err != nil {
		err = fmt.Errorf("%w: store document: %v", errs.ErrUpstream, err)
		_ = s.jobs.Fail(ctx, jobID, err)
		return "", err
	}

	go s.run(jobID, docID, blobKey, data, meta)

	return jobID, nil
}

// Resume restarts processing for jobs left pending or processing by a
// previous run. The pipeline is idempotent, so restarting from the
// beginning is safe.
func (s *IngestService) Resume(ctx context.Context) (int, error) {
	incomplete, err := s.jobs.Incomplete(ctx)
	if err != nil {
		return 0, err
	}

	resumed := 0
	for i := range incomplete {
		job := incomplete[i]
		jobID := job.JobID()

		data, err := s.blobs.Get(ctx, job.BlobKey)
		if err != nil {
			s.logger.Warn("cannot resume job, source blob unavailable",
				"job_id", jobID, "blob_key", job.BlobKey, "error", err)
			_ = s.jobs.Fail(ctx, jobID, fmt.Errorf("resume: source blob unavailable: %w", err))
			continue
		}

		meta := SubmitMeta{
			Insurer:    job.Insurer,
			PolicyName: job.PolicyName,
			LaunchDate: job.LaunchDate,
		}
		s.logger.Info("resuming job", "job_id", jobID, "doc_id", job.DocID)
		go s.run(jobID, job.DocID, job.BlobKey, data, meta)
		resumed++
	}
	return resumed, nil
}

// run executes the pipeline stages for one job. Always called on its
// own goroutine; panics fail the job instead of the process.
func (s *IngestService) run(jobID, docID, blobKey string, data []byte, meta SubmitMeta) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("pipeline goroutine panicked", "job_id", jobID, "panic", r)
			_ = s.jobs.Fail(ctx, jobID, fmt.Errorf("internal panic: %v", r))
		}
	}()

	start := time.Now()
	results, err := s.process(ctx, jobID, docID, blobKey, data, meta)
	if err != nil {
		_ = s.jobs.Fail(ctx, jobID, err)
		return
	}

	results.ProcessingTimeSeconds = time.Since(start).Seconds()
	if err := s.jobs.Complete(ctx, jobID, *results); err != nil {
		s.logger.Warn("could not persist job completion", "job_id", jobID, "error", err)
	}
}

func (s *IngestService) process(ctx context.Context, jobID, docID, blobKey string, data []byte, meta SubmitMeta) (*models.JobResults, error) {
	results := &models.JobResults{Errors: []string{}}

	// Stage 1: validation already ran at Submit; checkpoint only.
	if err := s.jobs.Advance(ctx, jobID, "validating", ProgressValidating, nil); err != nil {
		return nil, err
	}

	// Stage 2: structure extraction.
	if err := s.jobs.Advance(ctx, jobID, "parsing", ProgressParsing, nil); err != nil {
		return nil, err
	}

	pages, err := parser.ExtractPages(data)
	if err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}

	doc, err := parser.ParseStructure(parser.Meta{
		DocID:      docID,
		Insurer:    meta.Insurer,
		PolicyName: meta.PolicyName,
		LaunchDate: meta.LaunchDate,
		BlobKey:    blobKey,
	}, pages, s.parserCfg)
	switch {
	case err == nil:
	case errors.Is(err, errs.ErrExtractionDegraded):
		// Keep the thin structure, remember the degradation
		s.logger.Warn("structure extraction degraded",
			"job_id", jobID, "confidence", doc.ParsingConfidence)
		results.Errors = append(results.Errors, err.Error())
	default:
		return nil, fmt.Errorf("parsing: %w", err)
	}

	// Stage 3: critical data + candidates.
	if err := s.jobs.Advance(ctx, jobID, "extracting", ProgressExtracting,
		map[string]any{"articles": doc.TotalArticles}); err != nil {
		return nil, err
	}

	extraction := extract.Run(doc.JoinText(), s.extractCfg)
	entities, relations := BuildRuleCandidates(doc, s.extractCfg)

	if s.model != nil {
		llmEntities, llmRelations := s.llmCandidates(ctx, doc, entities, results)
		entities = append(entities, llmEntities...)
		relations = append(relations, llmRelations...)
	}

	// Stage 4: graph commit.
	if err := s.jobs.Advance(ctx, jobID, "writing", ProgressWriting,
		map[string]any{"entities": len(entities), "relations": len(relations)}); err != nil {
		return nil, err
	}

	if err := s.store.SaveDocument(ctx, doc, extraction); err != nil {
		return nil, fmt.Errorf("writing: %w", err)
	}
	s.saveClauses(ctx, doc, results)

	writeResult := s.writer.Write(ctx, DocMeta{
		DocID:       docID,
		Insurer:     meta.Insurer,
		ProductType: meta.ProductType,
	}, entities, relations)
	results.NodesCreated = writeResult.NodesCreated
	results.EdgesCreated = writeResult.EdgesCreated
	results.Errors = append(results.Errors, writeResult.Errors...)

	// Stage 5: cross-document linking, best effort.
	if err := s.jobs.Advance(ctx, jobID, "linking", ProgressLinking, nil); err != nil {
		return nil, err
	}

	linked, linkErrs := s.linker.Link(ctx, docID)
	results.EdgesCreated += linked
	results.Errors = append(results.Errors, linkErrs...)

	return results, nil
}

// llmCandidates runs the model extraction pass per article with retry.
// Exhausted retries or fatal API errors degrade to rule-only output.
func (s *IngestService) llmCandidates(
	ctx context.Context,
	doc *models.ParsedDocument,
	known []models.EntityCandidate,
	results *models.JobResults,
) ([]models.EntityCandidate, []models.RelationCandidate) {
	llmCtx, cancel := context.WithTimeout(ctx, llmStageTimeout)
	defer cancel()

	knownLabels := make([]string, 0, len(known))
	for _, e := range known {
		knownLabels = append(knownLabels, e.Label)
	}

	var entities []models.EntityCandidate
	var relations []models.RelationCandidate

	for ai := range doc.Articles {
		art := &doc.Articles[ai]

		var output string
		err := llm.RetryWithBackoff(llmCtx, func() error {
			var genErr error
			output, genErr = s.model.ExtractCandidates(llmCtx, articleText(art), knownLabels)
			return genErr
		}, 3, time.Second)
		if err != nil {
			results.Errors = append(results.Errors,
				fmt.Sprintf("llm extraction degraded for 제%d조: %v", art.Number, err))
			if errors.Is(err, llm.ErrFatalAPI) || llmCtx.Err() != nil {
				// No point hammering the provider for remaining articles
				break
			}
			continue
		}

		ref := &models.ClauseRef{DocID: doc.DocID, Article: art.Number, Page: art.Page}
		es, rs := llm.ParseExtraction(output)
		for i := range es {
			es[i].SourceClause = ref
		}
		for i := range rs {
			rs[i].SourceClause = ref
		}
		entities = append(entities, es...)
		relations = append(relations, rs...)
	}

	return entities, relations
}

// saveClauses persists article-level provenance units with embeddings.
// Failures degrade clause search, not the job.
func (s *IngestService) saveClauses(ctx context.Context, doc *models.ParsedDocument, results *models.JobResults) {
	for ai := range doc.Articles {
		art := &doc.Articles[ai]
		id := models.ClauseID(models.ClauseRef{DocID: doc.DocID, Article: art.Number})

		text := articleText(art)
		embedding, err := s.embedder.Embed(ctx, text)
		if err != nil {
			results.Errors = append(results.Errors,
				fmt.Sprintf("clause embedding failed for 제%d조: %v", art.Number, err))
			embedding = make([]float32, s.embedder.Dimension())
		}

		if err := s.store.SaveClause(ctx, id, clauseRow(doc.DocID, art, text, embedding)); err != nil {
			results.Errors = append(results.Errors,
				fmt.Sprintf("clause save failed for 제%d조: %v", art.Number, err))
		}
	}
}

func clauseRow(docID string, art *models.Article, text string, embedding []float32) db.Clause {
	return db.Clause{
		DocID:     docID,
		Article:   art.Number,
		Title:     art.Title,
		Text:      text,
		Page:      art.Page,
		Embedding: embedding,
	}
}

func blobExt(data []byte) string {
	if strings.HasPrefix(http.DetectContentType(data), "application/pdf") {
		return ".pdf"
	}
	return ".txt"
}
