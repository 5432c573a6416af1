package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joonhokim/yakgwan/internal/db"
	"github.com/joonhokim/yakgwan/internal/errs"
	"github.com/joonhokim/yakgwan/internal/llm"
	"github.com/joonhokim/yakgwan/internal/models"
)

// conflictRetries bounds retries on transaction conflicts before the
// write is recorded and skipped.
const conflictRetries = 3

// GraphWriter commits extraction candidates to the graph. It is the
// validation boundary: candidates with types outside the closed sets
// are quarantined into the result errors, never silently dropped and
// never written.
type GraphWriter struct {
	store    Store
	embedder Embedder
	logger   *slog.Logger
}

// NewGraphWriter creates a graph writer.
func NewGraphWriter(store Store, embedder Embedder, logger *slog.Logger) *GraphWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphWriter{store: store, embedder: embedder, logger: logger.With("system", "writer")}
}

// WriteResult summarizes one commit batch.
type WriteResult struct {
	NodesCreated int
	EdgesCreated int
	Errors       []string
}

// DocMeta carries document attributes stamped onto every entity.
type DocMeta struct {
	DocID       string
	Insurer     string
	ProductType string
}

// Write validates and commits candidates. Entity writes are idempotent
// upserts keyed by entity ID; a node is counted created at most once
// per batch. Relations whose endpoints are missing go to a deferred
// queue retried after the batch, then surfaced as errors.
func (w *GraphWriter) Write(
	ctx context.Context,
	meta DocMeta,
	entities []models.EntityCandidate,
	relations []models.RelationCandidate,
) *WriteResult {
	result := &WriteResult{}

	labelToID := make(map[string]string, len(entities))
	written := make(map[string]bool, len(entities))

	for _, cand := range entities {
		if !models.ValidEntityType(models.EntityType(cand.Type)) {
			result.Errors = append(result.Errors,
				fmt.Sprintf("quarantined entity %q: unknown type %q", cand.Label, cand.Type))
			continue
		}
		if cand.Label == "" {
			result.Errors = append(result.Errors, "quarantined entity with empty label")
			continue
		}

		id := cand.EntityID
		if id == "" {
			// Content-based key keeps LLM candidates idempotent across runs
			id = meta.DocID + "-" + models.Slugify(cand.Label)
		}
		labelToID[cand.Label] = id

		if written[id] {
			continue
		}

		embedding := w.embed(ctx, cand.Label+" "+cand.Description, result)

		entity := models.Entity{
			Label:        cand.Label,
			Type:         models.EntityType(cand.Type),
			Description:  cand.Description,
			SourceClause: cand.SourceClause,
			DocID:        meta.DocID,
			Insurer:      meta.Insurer,
			ProductType:  meta.ProductType,
			Code:         cand.Code,
			Metadata:     cand.Metadata,
			Embedding:    embedding,
		}

		wasCreated, err := w.upsertWithRetry(ctx, id, entity)
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("entity %s: %v", id, err))
			continue
		}

		written[id] = true
		if wasCreated {
			result.NodesCreated++
		}
	}

	// Relations: unresolved or missing endpoints are deferred, retried
	// once after the batch, then surfaced. Never dropped silently.
	var deferred []models.RelationCandidate
	for _, rel := range relations {
		switch w.writeRelation(ctx, rel, labelToID, result) {
		case relDeferred:
			deferred = append(deferred, rel)
		}
	}
	for _, rel := range deferred {
		if w.writeRelation(ctx, rel, labelToID, result) == relDeferred {
			result.Errors = append(result.Errors,
				fmt.Sprintf("relation %s->%s (%s): endpoint still missing after retry",
					rel.SourceID, rel.TargetID, rel.Type))
		}
	}

	w.logger.Info("graph write complete",
		"doc_id", meta.DocID,
		"nodes_created", result.NodesCreated,
		"edges_created", result.EdgesCreated,
		"errors", len(result.Errors))
	return result
}

type relOutcome int

const (
	relWritten relOutcome = iota
	relSkipped
	relDeferred
)

func (w *GraphWriter) writeRelation(
	ctx context.Context,
	rel models.RelationCandidate,
	labelToID map[string]string,
	result *WriteResult,
) relOutcome {
	if !models.ValidRelationType(models.RelationType(rel.Type)) {
		result.Errors = append(result.Errors,
			fmt.Sprintf("quarantined relation %s->%s: unknown type %q",
				rel.SourceID, rel.TargetID, rel.Type))
		return relSkipped
	}

	resolved := rel
	if id, ok := labelToID[rel.SourceID]; ok {
		resolved.SourceID = id
	}
	if id, ok := labelToID[rel.TargetID]; ok {
		resolved.TargetID = id
	}

	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		err = w.store.CreateRelation(ctx, resolved)
		if !errors.Is(err, db.ErrTransactionConflict) {
			break
		}
		w.logger.Debug("relation write conflict, retrying",
			"source", resolved.SourceID, "target", resolved.TargetID, "attempt", attempt+1)
	}
	if errors.Is(err, db.ErrTransactionConflict) {
		err = fmt.Errorf("%w: %v", errs.ErrWriteConflict, err)
	}

	switch {
	case err == nil:
		result.EdgesCreated++
		return relWritten
	case errors.Is(err, db.ErrAlreadyExists):
		// unique_key dedup: same triple already in the graph
		return relSkipped
	case errors.Is(err, db.ErrMissingEndpoint):
		return relDeferred
	default:
		result.Errors = append(result.Errors,
			fmt.Sprintf("relation %s->%s (%s): %v",
				resolved.SourceID, resolved.TargetID, resolved.Type, err))
		return relSkipped
	}
}

func (w *GraphWriter) upsertWithRetry(ctx context.Context, id string, e models.Entity) (bool, error) {
	var wasCreated bool
	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		_, wasCreated, err = w.store.UpsertEntity(ctx, id, e)
		if !errors.Is(err, db.ErrTransactionConflict) {
			break
		}
		w.logger.Debug("entity write conflict, retrying", "id", id, "attempt", attempt+1)
	}
	if errors.Is(err, db.ErrTransactionConflict) {
		return wasCreated, fmt.Errorf("%w: %v", errs.ErrWriteConflict, err)
	}
	return wasCreated, err
}

// embed produces the entity embedding, degrading to a zero vector when
// the embedder cannot be reached so the write itself still lands.
func (w *GraphWriter) embed(ctx context.Context, text string, result *WriteResult) []float32 {
	var embedding []float32
	err := llm.RetryWithBackoff(ctx, func() error {
		var embErr error
		embedding, embErr = w.embedder.Embed(ctx, text)
		return embErr
	}, 3, 500*time.Millisecond)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("embedding failed: %v", err))
		return make([]float32, w.embedder.Dimension())
	}
	return embedding
}
