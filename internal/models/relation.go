package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// RelationType is the closed set of edge types in the policy graph.
type RelationType string

const (
	RelationCovers        RelationType = "covers"
	RelationExcludes      RelationType = "excludes"
	RelationRequires      RelationType = "requires"
	RelationAppliesRule   RelationType = "applies_rule"
	RelationDefinedIn     RelationType = "defined_in"
	RelationConflictsWith RelationType = "conflicts_with"
	RelationSubtypeOf     RelationType = "subtype_of"
	RelationReplaces      RelationType = "replaces"
)

// ValidRelationType reports whether t is in the closed relation type set.
func ValidRelationType(t RelationType) bool {
	switch t {
	case RelationCovers, RelationExcludes, RelationRequires, RelationAppliesRule,
		RelationDefinedIn, RelationConflictsWith, RelationSubtypeOf, RelationReplaces:
		return true
	}
	return false
}

// ExtractionMethod records how a relationship candidate was produced.
type ExtractionMethod string

const (
	MethodRule ExtractionMethod = "rule"
	MethodLLM  ExtractionMethod = "llm"
)

// Relationship is a typed directed edge between two entities.
type Relationship struct {
	ID surrealmodels.RecordID `json:"id"`

	In  surrealmodels.RecordID `json:"in"`
	Out surrealmodels.RecordID `json:"out"`

	RelType    RelationType     `json:"rel_type"`
	Confidence float64          `json:"confidence"`
	Method     ExtractionMethod `json:"method"`

	SourceClause *ClauseRef `json:"source_clause,omitempty"`

	// Numeric attributes used by the linker for overlap edges.
	OverlapPct *float64 `json:"overlap_pct,omitempty"`
	Ratio      *float64 `json:"ratio,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
}

// RelationCandidate is a relationship proposal before the graph writer's
// validation boundary. Source and target reference entity IDs.
type RelationCandidate struct {
	SourceID     string           `json:"source_id"`
	TargetID     string           `json:"target_id"`
	Type         string           `json:"type"`
	Confidence   float64          `json:"confidence"`
	Method       ExtractionMethod `json:"method"`
	SourceClause *ClauseRef       `json:"source_clause,omitempty"`
	OverlapPct   *float64         `json:"overlap_pct,omitempty"`
	Ratio        *float64         `json:"ratio,omitempty"`
}
