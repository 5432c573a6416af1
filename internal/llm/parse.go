package llm

import (
	"strings"

	"github.com/joonhokim/yakgwan/internal/models"
)

// llmConfidence is the default confidence for model-derived candidates.
// Rule-based candidates carry higher confidence set by their extractors.
const llmConfidence = 0.7

// ParseExtraction parses the ENTITY|/RELATION| line protocol returned
// by ExtractCandidates. Malformed lines are skipped rather than failing
// the batch; type validation happens later at the graph writer's
// boundary. Relation source/target carry entity labels, resolved to
// IDs by the writer.
func ParseExtraction(output string) ([]models.EntityCandidate, []models.RelationCandidate) {
	var entities []models.EntityCandidate
	var relations []models.RelationCandidate

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "ENTITY|"):
			parts := strings.SplitN(line, "|", 4)
			if len(parts) < 3 {
				continue
			}
			name := strings.TrimSpace(parts[1])
			typ := strings.TrimSpace(parts[2])
			if name == "" || typ == "" {
				continue
			}
			e := models.EntityCandidate{
				Label:      name,
				Type:       typ,
				Confidence: llmConfidence,
			}
			if len(parts) == 4 {
				e.Description = strings.TrimSpace(parts[3])
			}
			entities = append(entities, e)

		case strings.HasPrefix(line, "RELATION|"):
			parts := strings.SplitN(line, "|", 5)
			if len(parts) < 4 {
				continue
			}
			source := strings.TrimSpace(parts[1])
			target := strings.TrimSpace(parts[2])
			typ := strings.TrimSpace(parts[3])
			if source == "" || target == "" || typ == "" {
				continue
			}
			relations = append(relations, models.RelationCandidate{
				SourceID:   source,
				TargetID:   target,
				Type:       typ,
				Confidence: llmConfidence,
				Method:     models.MethodLLM,
			})
		}
	}

	return entities, relations
}
