package db

import "fmt"

// DefaultEmbeddingDimension matches the all-minilm:l6-v2 embedding model.
const DefaultEmbeddingDimension = 384

// SchemaSQL returns the database schema initialization SQL. The HNSW
// indexes are sized to the configured embedding dimension.
func SchemaSQL(dim int) string {
	return fmt.Sprintf(`
    -- ==========================================================================
    -- ENTITY TABLE (typed graph nodes)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS entity SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS label ON entity TYPE string;
    DEFINE FIELD IF NOT EXISTS type ON entity TYPE string
        ASSERT $value IN ["coverage_item", "benefit_amount", "disease", "condition", "exclusion", "payment_rule", "clause"];
    DEFINE FIELD IF NOT EXISTS description ON entity TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS source_clause ON entity TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS doc_id ON entity TYPE string;
    DEFINE FIELD IF NOT EXISTS insurer ON entity TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS product_type ON entity TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS code ON entity TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS metadata ON entity TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS embedding ON entity TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS created ON entity TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated ON entity TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS entity_type ON entity FIELDS type;
    DEFINE INDEX IF NOT EXISTS entity_doc ON entity FIELDS doc_id;
    DEFINE INDEX IF NOT EXISTS entity_code ON entity FIELDS code;
    DEFINE INDEX IF NOT EXISTS entity_embedding ON entity FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;
    -- No language stemmer: labels and descriptions are Korean text
    DEFINE ANALYZER IF NOT EXISTS policy_analyzer TOKENIZERS blank, class FILTERS lowercase;
    DEFINE INDEX IF NOT EXISTS entity_label_ft ON entity FIELDS label FULLTEXT ANALYZER policy_analyzer BM25;
    DEFINE INDEX IF NOT EXISTS entity_desc_ft ON entity FIELDS description FULLTEXT ANALYZER policy_analyzer BM25;

    -- ==========================================================================
    -- RELATES TABLE (typed graph edges)
    -- ==========================================================================
    -- Single relation table with rel_type field instead of dynamic table names
    DEFINE TABLE IF NOT EXISTS relates TYPE RELATION IN entity OUT entity SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS rel_type ON relates TYPE string
        ASSERT $value IN ["covers", "excludes", "requires", "applies_rule", "defined_in", "conflicts_with", "subtype_of", "replaces"];
    DEFINE FIELD IF NOT EXISTS confidence ON relates TYPE float DEFAULT 1.0;
    DEFINE FIELD IF NOT EXISTS method ON relates TYPE string DEFAULT "rule"
        ASSERT $value IN ["rule", "llm"];
    DEFINE FIELD IF NOT EXISTS source_clause ON relates TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS overlap_pct ON relates TYPE option<float>;
    DEFINE FIELD IF NOT EXISTS ratio ON relates TYPE option<float>;
    DEFINE FIELD IF NOT EXISTS created_at ON relates TYPE datetime DEFAULT time::now();
    -- Unique constraint: [in, out, rel_type] prevents duplicate directed edges
    DEFINE FIELD IF NOT EXISTS unique_key ON relates VALUE <string>string::concat(<string>in, "|", <string>out, "|", rel_type);
    DEFINE INDEX IF NOT EXISTS unique_relation ON relates FIELDS unique_key UNIQUE;

    -- ==========================================================================
    -- CLAUSE TABLE (provenance units with their own embeddings)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS clause SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS doc_id ON clause TYPE string;
    DEFINE FIELD IF NOT EXISTS article ON clause TYPE int;
    DEFINE FIELD IF NOT EXISTS paragraph ON clause TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS subclause ON clause TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS title ON clause TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS text ON clause TYPE string;
    DEFINE FIELD IF NOT EXISTS page ON clause TYPE int;
    DEFINE FIELD IF NOT EXISTS embedding ON clause TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS created ON clause TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS clause_doc ON clause FIELDS doc_id;
    DEFINE INDEX IF NOT EXISTS clause_embedding ON clause FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;
    DEFINE INDEX IF NOT EXISTS clause_text_ft ON clause FIELDS text FULLTEXT ANALYZER policy_analyzer BM25;

    -- ==========================================================================
    -- INGEST_JOB TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS ingest_job SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS insurer ON ingest_job TYPE string;
    DEFINE FIELD IF NOT EXISTS policy_name ON ingest_job TYPE string;
    DEFINE FIELD IF NOT EXISTS launch_date ON ingest_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS blob_key ON ingest_job TYPE string;
    DEFINE FIELD IF NOT EXISTS doc_id ON ingest_job TYPE string;
    DEFINE FIELD IF NOT EXISTS status ON ingest_job TYPE string
        ASSERT $value IN ["pending", "processing", "completed", "failed"];
    DEFINE FIELD IF NOT EXISTS progress ON ingest_job TYPE int DEFAULT 0
        ASSERT $value >= 0 AND $value <= 100;
    DEFINE FIELD IF NOT EXISTS processing_step ON ingest_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS processing_detail ON ingest_job TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS results ON ingest_job TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS error_message ON ingest_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON ingest_job TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON ingest_job TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS completed_at ON ingest_job TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS job_status ON ingest_job FIELDS status;
    DEFINE INDEX IF NOT EXISTS job_doc ON ingest_job FIELDS doc_id;

    -- ==========================================================================
    -- DOCUMENT TABLE (parsed document metadata + counters)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS document SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS insurer ON document TYPE string;
    DEFINE FIELD IF NOT EXISTS policy_name ON document TYPE string;
    DEFINE FIELD IF NOT EXISTS launch_date ON document TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS blob_key ON document TYPE string;
    DEFINE FIELD IF NOT EXISTS parsing_confidence ON document TYPE float;
    DEFINE FIELD IF NOT EXISTS total_pages ON document TYPE int;
    DEFINE FIELD IF NOT EXISTS total_chars ON document TYPE int;
    DEFINE FIELD IF NOT EXISTS total_articles ON document TYPE int;
    DEFINE FIELD IF NOT EXISTS total_paragraphs ON document TYPE int;
    DEFINE FIELD IF NOT EXISTS total_subclauses ON document TYPE int;
    DEFINE FIELD IF NOT EXISTS total_amounts ON document TYPE int;
    DEFINE FIELD IF NOT EXISTS total_periods ON document TYPE int;
    DEFINE FIELD IF NOT EXISTS total_codes ON document TYPE int;
    DEFINE FIELD IF NOT EXISTS extraction ON document TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS parsed_at ON document TYPE datetime;
    DEFINE FIELD IF NOT EXISTS created ON document TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS document_insurer ON document FIELDS insurer;
    DEFINE INDEX IF NOT EXISTS document_name_ft ON document FIELDS policy_name FULLTEXT ANALYZER policy_analyzer BM25;
`, dim, dim)
}
