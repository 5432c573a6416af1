package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// EntityType is the closed set of node types in the policy graph.
type EntityType string

const (
	EntityCoverageItem  EntityType = "coverage_item"
	EntityBenefitAmount EntityType = "benefit_amount"
	EntityDisease       EntityType = "disease"
	EntityCondition     EntityType = "condition"
	EntityExclusion     EntityType = "exclusion"
	EntityPaymentRule   EntityType = "payment_rule"
	EntityClause        EntityType = "clause"
)

// ValidEntityType reports whether t is in the closed entity type set.
func ValidEntityType(t EntityType) bool {
	switch t {
	case EntityCoverageItem, EntityBenefitAmount, EntityDisease,
		EntityCondition, EntityExclusion, EntityPaymentRule, EntityClause:
		return true
	}
	return false
}

// Entity is a typed node in the policy knowledge graph.
type Entity struct {
	ID           surrealmodels.RecordID `json:"id"`
	Label        string                 `json:"label"`
	Type         EntityType             `json:"type"`
	Description  string                 `json:"description,omitempty"`
	SourceClause *ClauseRef             `json:"source_clause,omitempty"`
	DocID        string                 `json:"doc_id"`
	Insurer      string                 `json:"insurer,omitempty"`
	ProductType  string                 `json:"product_type,omitempty"`
	Code         string                 `json:"code,omitempty"`
	Metadata     map[string]any         `json:"metadata,omitempty"`
	Embedding    []float32              `json:"embedding,omitempty"`
	Created      time.Time              `json:"created,omitempty"`
	Updated      time.Time              `json:"updated,omitempty"`
}

// EntityCandidate is an extraction candidate before it passes the graph
// writer's validation boundary. EntityID may be empty for LLM-derived
// candidates; the writer then derives a content-based key.
type EntityCandidate struct {
	EntityID     string         `json:"entity_id,omitempty"`
	Label        string         `json:"label"`
	Type         string         `json:"type"`
	Description  string         `json:"description,omitempty"`
	SourceClause *ClauseRef     `json:"source_clause,omitempty"`
	Code         string         `json:"code,omitempty"`
	Confidence   float64        `json:"confidence"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}
