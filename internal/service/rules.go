package service

import (
	"fmt"
	"strings"

	"github.com/joonhokim/yakgwan/internal/extract"
	"github.com/joonhokim/yakgwan/internal/models"
)

// ruleConfidence is the confidence stamped on rule-derived candidates.
// Rule extraction is deterministic, so it outranks model output.
const ruleConfidence = 0.9

// exclusionMarkers flag articles that define non-payment grounds.
var exclusionMarkers = []string{"지급하지 않", "지급하지 아니", "면책", "보상하지 않"}

// BuildRuleCandidates derives entity and relation candidates from the
// parsed structure and per-article critical data. Every candidate
// carries clause provenance; relation endpoints reference entity IDs
// directly since rule candidates know their own keys.
func BuildRuleCandidates(doc *models.ParsedDocument, cfg extract.Config) ([]models.EntityCandidate, []models.RelationCandidate) {
	var entities []models.EntityCandidate
	var relations []models.RelationCandidate

	entityIndex := 0
	nextID := func() string {
		id := models.EntityID(doc.DocID, entityIndex)
		entityIndex++
		return id
	}

	for ai := range doc.Articles {
		art := &doc.Articles[ai]
		ref := &models.ClauseRef{
			DocID:   doc.DocID,
			Article: art.Number,
			Page:    art.Page,
		}

		clauseLabel := fmt.Sprintf("제%d조", art.Number)
		if art.Title != "" {
			clauseLabel = fmt.Sprintf("제%d조(%s)", art.Number, art.Title)
		}
		clauseID := nextID()
		entities = append(entities, models.EntityCandidate{
			EntityID:     clauseID,
			Label:        clauseLabel,
			Type:         string(models.EntityClause),
			Description:  firstSentence(art.Text),
			SourceClause: ref,
			Confidence:   ruleConfidence,
		})

		text := articleText(art)
		data := extract.Run(text, cfg)
		excluding := isExclusionArticle(art)

		for _, amt := range data.Amounts {
			id := nextID()
			entities = append(entities, models.EntityCandidate{
				EntityID:     id,
				Label:        amt.Raw,
				Type:         string(models.EntityBenefitAmount),
				Description:  amt.Context,
				SourceClause: ref,
				Confidence:   ruleConfidence,
				Metadata:     map[string]any{"value_won": amt.Value},
			})
			relations = append(relations, models.RelationCandidate{
				SourceID:     id,
				TargetID:     clauseID,
				Type:         string(models.RelationDefinedIn),
				Confidence:   ruleConfidence,
				Method:       models.MethodRule,
				SourceClause: ref,
			})
		}

		for _, code := range data.Codes {
			label := code.Code
			if code.Description != nil {
				label = *code.Description
			}
			id := nextID()
			entities = append(entities, models.EntityCandidate{
				EntityID:     id,
				Label:        label,
				Type:         string(models.EntityDisease),
				Code:         code.Code,
				Description:  code.Context,
				SourceClause: ref,
				Confidence:   ruleConfidence,
			})
			relations = append(relations, models.RelationCandidate{
				SourceID:     id,
				TargetID:     clauseID,
				Type:         string(models.RelationDefinedIn),
				Confidence:   ruleConfidence,
				Method:       models.MethodRule,
				SourceClause: ref,
			})

			relType := models.RelationCovers
			if excluding {
				relType = models.RelationExcludes
			}
			relations = append(relations, models.RelationCandidate{
				SourceID:     clauseID,
				TargetID:     id,
				Type:         string(relType),
				Confidence:   ruleConfidence,
				Method:       models.MethodRule,
				SourceClause: ref,
			})
		}

		for _, period := range data.Periods {
			id := nextID()
			entities = append(entities, models.EntityCandidate{
				EntityID:     id,
				Label:        period.Raw,
				Type:         string(models.EntityCondition),
				Description:  period.Context,
				SourceClause: ref,
				Confidence:   ruleConfidence,
				Metadata:     map[string]any{"days": period.Days},
			})
			relations = append(relations, models.RelationCandidate{
				SourceID:     id,
				TargetID:     clauseID,
				Type:         string(models.RelationDefinedIn),
				Confidence:   ruleConfidence,
				Method:       models.MethodRule,
				SourceClause: ref,
			})
		}
	}

	return entities, relations
}

// articleText joins an article's full text including paragraphs and
// subclauses for per-article extraction.
func articleText(art *models.Article) string {
	var b strings.Builder
	b.WriteString(art.Text)
	for pi := range art.Paragraphs {
		p := &art.Paragraphs[pi]
		b.WriteString("\n")
		b.WriteString(p.Text)
		for si := range p.Subclauses {
			b.WriteString("\n")
			b.WriteString(p.Subclauses[si].Text)
		}
	}
	return b.String()
}

func isExclusionArticle(art *models.Article) bool {
	probe := art.Title + " " + firstSentence(art.Text)
	for _, m := range exclusionMarkers {
		if strings.Contains(probe, m) {
			return true
		}
	}
	return false
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexAny(text, ".\n"); i >= 0 {
		return strings.TrimSpace(text[:i+1])
	}
	if runes := []rune(text); len(runes) > 60 {
		return string(runes[:60])
	}
	return text
}
