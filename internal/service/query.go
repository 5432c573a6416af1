package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joonhokim/yakgwan/internal/db"
	"github.com/joonhokim/yakgwan/internal/llm"
	"github.com/joonhokim/yakgwan/internal/models"
)

const (
	// DefaultQueryDepth bounds multi-hop traversal from matched entities.
	DefaultQueryDepth = 2

	searchLimit     = 8
	traverseSeeds   = 3
	queryRetries    = 3
	queryRetryDelay = time.Second
)

// insufficientEvidenceAnswer is returned verbatim when retrieval finds
// nothing to ground an answer on.
const insufficientEvidenceAnswer = "제공된 약관에서 질문에 대한 근거를 찾을 수 없습니다."

// QueryEngine answers natural-language coverage questions from the
// graph. It only reads; ingestion owns all writes.
type QueryEngine struct {
	store    Store
	embedder Embedder
	model    Generator // nil disables synthesis, answers become extractive
	depth    int
	weights  ConfidenceWeights
	logger   *slog.Logger
}

// NewQueryEngine creates a query engine. depth <= 0 selects the default
// traversal depth.
func NewQueryEngine(store Store, embedder Embedder, model Generator, depth int, logger *slog.Logger) *QueryEngine {
	if depth <= 0 {
		depth = DefaultQueryDepth
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryEngine{
		store:    store,
		embedder: embedder,
		model:    model,
		depth:    depth,
		weights:  DefaultConfidenceWeights(),
		logger:   logger.With("system", "query"),
	}
}

// QueryFilters constrains retrieval. An empty DocIDs slice means global
// search across all documents.
type QueryFilters struct {
	DocIDs []string `json:"doc_ids,omitempty"`
}

// QueryAnswer is the engine's public response shape.
type QueryAnswer struct {
	Answer        string     `json:"answer"`
	Confidence    float64    `json:"confidence"`
	Citations     []Citation `json:"citations,omitempty"`
	ReasoningPath []string   `json:"reasoning_path,omitempty"`
}

// SearchResult is a raw retrieval result without synthesis.
type SearchResult struct {
	Entities []models.Entity `json:"entities"`
	Clauses  []db.Clause     `json:"clauses"`
}

// Search runs hybrid retrieval and returns the raw matches. docID may
// be empty for a global search.
func (q *QueryEngine) Search(ctx context.Context, query, docID string, limit int) (*SearchResult, error) {
	if limit <= 0 {
		limit = searchLimit
	}

	embedding, err := q.embedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	entities, err := q.store.HybridSearch(ctx, query, embedding, docID, limit)
	if err != nil {
		return nil, fmt.Errorf("entity search: %w", err)
	}
	clauses, err := q.store.SearchClauses(ctx, query, embedding, docID, limit)
	if err != nil {
		return nil, fmt.Errorf("clause search: %w", err)
	}

	return &SearchResult{Entities: entities, Clauses: clauses}, nil
}

// Answer retrieves evidence for the question, expands it by graph
// traversal and synthesizes a cited, confidence-scored answer. An empty
// retrieval set yields confidence 0 and an explicit insufficient
// evidence answer instead of a fabricated one.
func (q *QueryEngine) Answer(ctx context.Context, question string, filters QueryFilters) (*QueryAnswer, error) {
	embedding, err := q.embedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	entities, clauses, err := q.retrieve(ctx, question, embedding, filters)
	if err != nil {
		return nil, err
	}

	if len(entities) == 0 && len(clauses) == 0 {
		q.logger.Info("no evidence retrieved", "question_len", len(question))
		return &QueryAnswer{Answer: insufficientEvidenceAnswer, Confidence: 0}, nil
	}

	hopEntities, reasoningPath := q.expand(ctx, entities)

	evidence := buildEvidence(clauses, entities, hopEntities)
	answer := q.synthesize(ctx, question, evidence)

	citations := ExtractCitations(answer, evidence)
	confidence := ComputeConfidence(answer, evidence, q.weights)

	return &QueryAnswer{
		Answer:        answer,
		Confidence:    confidence,
		Citations:     citations,
		ReasoningPath: reasoningPath,
	}, nil
}

func (q *QueryEngine) embedQuery(ctx context.Context, query string) ([]float32, error) {
	var embedding []float32
	err := llm.RetryWithBackoff(ctx, func() error {
		var err error
		embedding, err = q.embedder.Embed(ctx, query)
		return err
	}, queryRetries, queryRetryDelay)
	return embedding, err
}

// retrieve runs hybrid search per requested document, or once globally
// when no filter is set.
func (q *QueryEngine) retrieve(ctx context.Context, question string, embedding []float32, filters QueryFilters) ([]models.Entity, []db.Clause, error) {
	docIDs := filters.DocIDs
	if len(docIDs) == 0 {
		docIDs = []string{""}
	}

	var entities []models.Entity
	var clauses []db.Clause
	for _, docID := range docIDs {
		e, err := q.store.HybridSearch(ctx, question, embedding, docID, searchLimit)
		if err != nil {
			return nil, nil, fmt.Errorf("entity search: %w", err)
		}
		entities = append(entities, e...)

		c, err := q.store.SearchClauses(ctx, question, embedding, docID, searchLimit)
		if err != nil {
			return nil, nil, fmt.Errorf("clause search: %w", err)
		}
		clauses = append(clauses, c...)
	}
	return entities, clauses, nil
}

// expand traverses relationship edges from the top matched entities to
// surface evidence not textually matched, such as an exclusion
// reachable only through a conflicting coverage. The walked hops become
// the answer's reasoning provenance.
func (q *QueryEngine) expand(ctx context.Context, entities []models.Entity) ([]models.Entity, []string) {
	var connected []models.Entity
	var path []string
	seen := make(map[string]bool)

	seeds := len(entities)
	if seeds > traverseSeeds {
		seeds = traverseSeeds
	}

	for _, seed := range entities[:seeds] {
		id := models.MustRecordIDString(seed.ID)
		seen[id] = true
	}

	for _, seed := range entities[:seeds] {
		result, err := q.store.Traverse(ctx, models.MustRecordIDString(seed.ID), q.depth, nil)
		if err != nil {
			q.logger.Warn("traversal failed", "entity", seed.Label, "error", err)
			continue
		}
		if result == nil {
			continue
		}
		for _, hop := range result.Connected {
			id := models.MustRecordIDString(hop.ID)
			if seen[id] {
				continue
			}
			seen[id] = true
			connected = append(connected, hop)
			path = append(path, fmt.Sprintf("%s (%s) -> %s (%s)", seed.Label, seed.Type, hop.Label, hop.Type))
		}
	}

	return connected, path
}

// buildEvidence flattens clauses and entities into citable units,
// clauses first since they carry the verbatim policy text.
func buildEvidence(clauses []db.Clause, matched, connected []models.Entity) []Evidence {
	evidence := make([]Evidence, 0, len(clauses)+len(matched)+len(connected))

	for _, cl := range clauses {
		ref := fmt.Sprintf("제%d조", cl.Article)
		if cl.Paragraph != nil {
			ref += fmt.Sprintf(" 제%d항", *cl.Paragraph)
		}
		evidence = append(evidence, Evidence{
			Ref:   ref,
			Label: cl.Title,
			Text:  cl.Text,
			Page:  cl.Page,
			DocID: cl.DocID,
		})
	}

	for _, e := range append(matched, connected...) {
		ref := e.Code
		if ref == "" {
			ref = e.Label
		}
		evidence = append(evidence, Evidence{
			Ref:   ref,
			Label: e.Label,
			Text:  e.Description,
			DocID: e.DocID,
		})
	}

	return evidence
}

// synthesize produces the answer text. With a model configured the
// evidence goes through answer synthesis with retry; without one, or
// after retries are exhausted, the top evidence is returned verbatim.
func (q *QueryEngine) synthesize(ctx context.Context, question string, evidence []Evidence) string {
	block := evidenceBlock(evidence)

	if q.model != nil {
		var answer string
		err := llm.RetryWithBackoff(ctx, func() error {
			var err error
			answer, err = q.model.SynthesizeAnswer(ctx, question, block)
			return err
		}, queryRetries, queryRetryDelay)
		if err == nil && strings.TrimSpace(answer) != "" {
			return strings.TrimSpace(answer)
		}
		q.logger.Warn("answer synthesis failed, returning evidence extract", "error", err)
	}

	return extractiveAnswer(evidence)
}

// evidenceBlock renders the evidence as numbered context for the model.
func evidenceBlock(evidence []Evidence) string {
	var b strings.Builder
	for i, ev := range evidence {
		fmt.Fprintf(&b, "[%d] (%s", i+1, ev.Ref)
		if ev.DocID != "" {
			fmt.Fprintf(&b, ", 문서 %s", ev.DocID)
		}
		b.WriteString(") ")
		if ev.Label != "" && ev.Label != ev.Ref {
			b.WriteString(ev.Label)
			b.WriteString(": ")
		}
		b.WriteString(ev.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// extractiveAnswer concatenates the strongest evidence with its
// references when no model is available.
func extractiveAnswer(evidence []Evidence) string {
	top := len(evidence)
	if top > 3 {
		top = 3
	}

	var b strings.Builder
	for i, ev := range evidence[:top] {
		if i > 0 {
			b.WriteString("\n")
		}
		text := ev.Text
		if text == "" {
			text = ev.Label
		}
		fmt.Fprintf(&b, "%s (%s)", text, ev.Ref)
	}
	return b.String()
}
