package db

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/joonhokim/yakgwan/internal/models"
)

// SaveDocument upserts the parsed document metadata row keyed by doc ID,
// with denormalized counters and the critical-data extraction attached.
// Re-ingestion of the same doc ID overwrites.
func (c *Client) SaveDocument(ctx context.Context, doc *models.ParsedDocument, extraction *models.ExtractionResult) error {
	sql := `
		UPSERT type::record("document", $id) SET
			insurer = $insurer,
			policy_name = $policy_name,
			launch_date = $launch_date,
			blob_key = $blob_key,
			parsing_confidence = $confidence,
			total_pages = $total_pages,
			total_chars = $total_chars,
			total_articles = $total_articles,
			total_paragraphs = $total_paragraphs,
			total_subclauses = $total_subclauses,
			total_amounts = $total_amounts,
			total_periods = $total_periods,
			total_codes = $total_codes,
			extraction = $extraction,
			parsed_at = <datetime>$parsed_at,
			created = IF created THEN created ELSE time::now() END
	`

	amounts, periods, codes := 0, 0, 0
	if extraction != nil {
		amounts, periods, codes = extraction.Counts()
	}

	_, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{
		"id":               doc.DocID,
		"insurer":          doc.Insurer,
		"policy_name":      doc.PolicyName,
		"launch_date":      doc.LaunchDate,
		"blob_key":         doc.BlobKey,
		"confidence":       doc.ParsingConfidence,
		"total_pages":      doc.TotalPages,
		"total_chars":      doc.TotalChars,
		"total_articles":   doc.TotalArticles,
		"total_paragraphs": doc.TotalParagraphs,
		"total_subclauses": doc.TotalSubclauses,
		"total_amounts":    amounts,
		"total_periods":    periods,
		"total_codes":      codes,
		"extraction":       extraction,
		"parsed_at":        doc.ParsedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	})
	if err != nil {
		return fmt.Errorf("save document: %w", wrapQueryError(err))
	}
	return nil
}

// Clause is a persisted provenance unit with its own embedding.
type Clause struct {
	DocID     string    `json:"doc_id"`
	Article   int       `json:"article"`
	Paragraph *int      `json:"paragraph,omitempty"`
	Subclause *string   `json:"subclause,omitempty"`
	Title     string    `json:"title,omitempty"`
	Text      string    `json:"text"`
	Page      int       `json:"page"`
	Embedding []float32 `json:"embedding"`
}

// SaveClause upserts a clause row keyed by the given clause ID.
func (c *Client) SaveClause(ctx context.Context, id string, cl Clause) error {
	embedding := cl.Embedding
	if embedding == nil {
		embedding = []float32{}
	}

	sql := `
		UPSERT type::record("clause", $id) SET
			doc_id = $doc_id,
			article = $article,
			paragraph = $paragraph,
			subclause = $subclause,
			title = $title,
			text = $text,
			page = $page,
			embedding = $embedding,
			created = IF created THEN created ELSE time::now() END
	`

	_, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{
		"id":        id,
		"doc_id":    cl.DocID,
		"article":   cl.Article,
		"paragraph": cl.Paragraph,
		"subclause": cl.Subclause,
		"title":     cl.Title,
		"text":      cl.Text,
		"page":      cl.Page,
		"embedding": embedding,
	})
	if err != nil {
		return fmt.Errorf("save clause: %w", wrapQueryError(err))
	}
	return nil
}

// SearchClauses performs RRF fusion of BM25 + vector search over clause
// text. A non-empty docID restricts to one document.
func (c *Client) SearchClauses(
	ctx context.Context,
	query string,
	embedding []float32,
	docID string,
	limit int,
) ([]Clause, error) {
	docClause := ""
	if docID != "" {
		docClause = "AND doc_id = $doc_id"
	}

	sql := fmt.Sprintf(`
		SELECT * FROM search::rrf([
			(SELECT id, doc_id, article, paragraph, subclause, title, text, page
			 FROM clause
			 WHERE embedding <|%d,40|> $emb %s),
			(SELECT id, doc_id, article, paragraph, subclause, title, text, page
			 FROM clause
			 WHERE text @0@ $q %s)
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

	results, err := surrealdb.Query[[]Clause](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("search clauses: %w", wrapQueryError(err))
	}

	if results != nil && len(*results) > 0 {
		return (*results)[0].Result, nil
	}
	return []Clause{}, nil
}
