package db

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/joonhokim/yakgwan/internal/models"
)

// UpsertEntity creates or updates an entity keyed by its stable entity ID.
// The write is a single atomic UPSERT; re-ingestion of the same document
// overwrites attributes and embedding in place.
// Returns (entity, wasCreated, error); wasCreated drives node counting.
func (c *Client) UpsertEntity(ctx context.Context, id string, e models.Entity) (*models.Entity, bool, error) {
	existsSQL := `SELECT count() AS c FROM type::record("entity", $id)`
	existsResult, err := surrealdb.Query[[]struct{ C int }](ctx, c.db, existsSQL, map[string]any{"id": id})
	if err != nil {
		return nil, false, fmt.Errorf("check entity exists: %w", wrapQueryError(err))
	}

	wasCreated := true
	if existsResult != nil && len(*existsResult) > 0 && len((*existsResult)[0].Result) > 0 {
		wasCreated = (*existsResult)[0].Result[0].C == 0
	}

	// created is preserved across re-ingestion; everything else overwrites
	sql := `
		UPSERT type::record("entity", $id) SET
			label = $label,
			type = $type,
			description = $description,
			source_clause = $source_clause,
			doc_id = $doc_id,
			insurer = $insurer,
			product_type = $product_type,
			code = $code,
			metadata = $metadata,
			embedding = $embedding,
			updated = time::now(),
			created = IF created THEN created ELSE time::now() END
		RETURN AFTER
	`

	embedding := e.Embedding
	if embedding == nil {
		embedding = []float32{}
	}

	results, err := surrealdb.Query[[]models.Entity](ctx, c.db, sql, map[string]any{
		"id":            id,
		"label":         e.Label,
		"type":          string(e.Type),
		"description":   e.Description,
		"source_clause": e.SourceClause,
		"doc_id":        e.DocID,
		"insurer":       e.Insurer,
		"product_type":  e.ProductType,
		"code":          e.Code,
		"metadata":      e.Metadata,
		"embedding":     embedding,
	})
	if err != nil {
		return nil, false, fmt.Errorf("upsert entity: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, false, fmt.Errorf("upsert entity: no result returned")
	}

	return &(*results)[0].Result[0], wasCreated, nil
}

// GetEntity retrieves an entity by ID. Returns ErrNotFound if absent.
func (c *Client) GetEntity(ctx context.Context, id string) (*models.Entity, error) {
	results, err := surrealdb.Query[[]models.Entity](ctx, c.db, `
		SELECT * FROM type::record("entity", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("get entity %s: %w", id, ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// CreateRelation creates a typed edge between two entities.
// RELATE respects the unique_key index, so repeated writes of the same
// (in, out, rel_type) triple dedupe. Both endpoints must exist; a write
// against a missing endpoint returns ErrMissingEndpoint.
func (c *Client) CreateRelation(ctx context.Context, r models.RelationCandidate) error {
	sql := `
		LET $from_exists = (SELECT count() AS c FROM type::record("entity", $from_id)).c > 0;
		LET $to_exists = (SELECT count() AS c FROM type::record("entity", $to_id)).c > 0;

		IF !$from_exists OR !$to_exists {
			THROW "Endpoint not found"
		};

		RELATE type::record("entity", $from_id)->relates->type::record("entity", $to_id) SET
			rel_type = $rel_type,
			confidence = $confidence,
			method = $method,
			source_clause = $source_clause,
			overlap_pct = $overlap_pct,
			ratio = $ratio;
	`

	_, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{
		"from_id":       r.SourceID,
		"to_id":         r.TargetID,
		"rel_type":      r.Type,
		"confidence":    r.Confidence,
		"method":        string(r.Method),
		"source_clause": r.SourceClause,
		"overlap_pct":   r.OverlapPct,
		"ratio":         r.Ratio,
	})
	if err != nil {
		wrapped := wrapQueryError(err)
		return fmt.Errorf("create relation %s->%s: %w", r.SourceID, r.TargetID, wrapped)
	}
	return nil
}

// HybridSearch performs RRF fusion of BM25 + vector search over entities.
// A non-empty docID restricts results to one document (local search).
func (c *Client) HybridSearch(
	ctx context.Context,
	query string,
	embedding []float32,
	docID string,
	limit int,
) ([]models.Entity, error) {
	docClause := ""
	if docID != "" {
		docClause = "AND doc_id = $doc_id"
	}

	// Vector: HNSW with ef=40 for better recall, 2x limit for variety.
	// BM25: label is analyzer 0, description analyzer 1.
	// RRF k=60 (standard constant for rank fusion).
	sql := fmt.Sprintf(`
		SELECT * FROM search::rrf([
			(SELECT id, label, type, description, source_clause, doc_id,
					insurer, product_type, code, metadata
			 FROM entity
			 WHERE embedding <|%d,40|> $emb %s),
			(SELECT id, label, type, description, source_clause, doc_id,
					insurer, product_type, code, metadata
			 FROM entity
			 WHERE (label @0@ $q OR description @1@ $q) %s)
		], $limit, 60)
	`, limit*2, docClause, docClause)

	vars := map[string]any{
		"q":     query,
		"emb":   embedding,
		"limit": limit,
	}
	if docID != "" {
		vars["doc_id"] = docID
	}

	results, err := surrealdb.Query[[]models.Entity](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("hybrid search: %w", wrapQueryError(err))
	}

	if results != nil && len(*results) > 0 {
		return (*results)[0].Result, nil
	}
	return []models.Entity{}, nil
}

// FindEntitiesByCode returns entities carrying the given canonical code,
// excluding those from docID. Used by the cross-document linker.
func (c *Client) FindEntitiesByCode(ctx context.Context, code, excludeDocID string) ([]models.Entity, error) {
	results, err := surrealdb.Query[[]models.Entity](ctx, c.db, `
		SELECT * FROM entity WHERE code = $code AND doc_id != $doc_id
	`, map[string]any{"code": code, "doc_id": excludeDocID})
	if err != nil {
		return nil, fmt.Errorf("find entities by code: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Entity{}, nil
	}
	return (*results)[0].Result, nil
}

// FindEntitiesByType returns entities of the given type from other
// documents than docID. Used by the cross-document linker for label
// similarity matching.
func (c *Client) FindEntitiesByType(ctx context.Context, entityType models.EntityType, excludeDocID string) ([]models.Entity, error) {
	results, err := surrealdb.Query[[]models.Entity](ctx, c.db, `
		SELECT * FROM entity WHERE type = $type AND doc_id != $doc_id
	`, map[string]any{"type": string(entityType), "doc_id": excludeDocID})
	if err != nil {
		return nil, fmt.Errorf("find entities by type: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Entity{}, nil
	}
	return (*results)[0].Result, nil
}

// TraverseResult contains an entity with its connected neighbors.
type TraverseResult struct {
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	Type      string          `json:"type"`
	DocID     string          `json:"doc_id"`
	Code      string          `json:"code"`
	Connected []models.Entity `json:"connected"`
}

// Traverse walks outgoing relates edges from a starting entity up to
// depth hops, optionally restricted to the given relation types.
func (c *Client) Traverse(
	ctx context.Context,
	startID string,
	depth int,
	relationTypes []models.RelationType,
) (*TraverseResult, error) {
	if depth < 1 {
		depth = 1
	}

	var sql string
	vars := map[string]any{"id": startID}

	// Depth must be a literal, it cannot be parameterized
	if len(relationTypes) > 0 {
		types := make([]string, len(relationTypes))
		for i, t := range relationTypes {
			types[i] = string(t)
		}
		sql = fmt.Sprintf(`
			SELECT *, ->(SELECT * FROM relates WHERE rel_type IN $types)..%d->entity AS connected
			FROM type::record("entity", $id)
		`, depth)
		vars["types"] = types
	} else {
		sql = fmt.Sprintf(`
			SELECT *, ->relates..%d->entity AS connected
			FROM type::record("entity", $id)
		`, depth)
	}

	results, err := surrealdb.Query[[]TraverseResult](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("traverse: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("traverse %s: %w", startID, ErrNotFound)
	}

	r := (*results)[0].Result[0]
	return &r, nil
}

// CountEntities returns the number of entities for a document.
func (c *Client) CountEntities(ctx context.Context, docID string) (int, error) {
	results, err := surrealdb.Query[[]struct {
		C int `json:"c"`
	}](ctx, c.db, `
		SELECT count() AS c FROM entity WHERE doc_id = $doc_id GROUP ALL
	`, map[string]any{"doc_id": docID})
	if err != nil {
		return 0, fmt.Errorf("count entities: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].C, nil
}
