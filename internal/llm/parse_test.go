package llm

import (
	"testing"

	"github.com/joonhokim/yakgwan/internal/models"
)

func TestParseExtraction(t *testing.T) {
	output := `ENTITY|암진단보험금|benefit_amount|진단확정시 지급하는 보험금
ENTITY|위암|disease|위의 악성신생물
RELATION|암진단보험금|위암|covers|위암 진단시 지급

some explanation the model added
ENTITY|일반암|coverage_item`

	entities, relations := ParseExtraction(output)

	if len(entities) != 3 {
		t.Fatalf("entities = %d, want 3", len(entities))
	}
	if entities[0].Label != "암진단보험금" || entities[0].Type != "benefit_amount" {
		t.Errorf("entity 0 = %+v", entities[0])
	}
	if entities[0].Description != "진단확정시 지급하는 보험금" {
		t.Errorf("entity 0 description = %q", entities[0].Description)
	}
	// Three-field entity line without description still parses
	if entities[2].Label != "일반암" || entities[2].Description != "" {
		t.Errorf("entity 2 = %+v", entities[2])
	}

	if len(relations) != 1 {
		t.Fatalf("relations = %d, want 1", len(relations))
	}
	r := relations[0]
	if r.SourceID != "암진단보험금" || r.TargetID != "위암" || r.Type != "covers" {
		t.Errorf("relation = %+v", r)
	}
	if r.Method != models.MethodLLM {
		t.Errorf("method = %q, want llm", r.Method)
	}
}

func TestParseExtractionMalformedLines(t *testing.T) {
	output := `ENTITY|
ENTITY|name-only
RELATION|a|b
ENTITY||disease|empty name
garbage line`

	entities, relations := ParseExtraction(output)
	if len(entities) != 0 {
		t.Errorf("malformed entities parsed: %+v", entities)
	}
	if len(relations) != 0 {
		t.Errorf("malformed relations parsed: %+v", relations)
	}
}

func TestParseExtractionEmpty(t *testing.T) {
	entities, relations := ParseExtraction("")
	if len(entities) != 0 || len(relations) != 0 {
		t.Errorf("empty output produced candidates")
	}
}

func TestParseExtractionUnknownTypeKept(t *testing.T) {
	// Type validation belongs to the graph writer boundary, not the parser
	entities, _ := ParseExtraction("ENTITY|무언가|unknown_type|설명")
	if len(entities) != 1 {
		t.Fatalf("entities = %d, want 1", len(entities))
	}
	if entities[0].Type != "unknown_type" {
		t.Errorf("type = %q", entities[0].Type)
	}
}
