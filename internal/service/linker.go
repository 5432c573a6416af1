package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joonhokim/yakgwan/internal/db"
	"github.com/joonhokim/yakgwan/internal/models"
)

// DefaultLinkSimilarity is the minimum Jaccard token overlap for a
// label-based cross-document match.
const DefaultLinkSimilarity = 0.6

// linkRules maps (source type, target type) pairs to the edge created
// between matching entities of different documents. Conflicting
// attributes across documents only ever produce an edge; existing
// entities are never overwritten by the linker.
var linkRules = map[[2]models.EntityType]models.RelationType{
	{models.EntityDisease, models.EntityDisease}:           models.RelationSubtypeOf,
	{models.EntityCoverageItem, models.EntityCoverageItem}: models.RelationReplaces,
	{models.EntityExclusion, models.EntityCoverageItem}:    models.RelationConflictsWith,
}

// linkableTypes are entity types the linker matches across documents.
var linkableTypes = []models.EntityType{
	models.EntityDisease,
	models.EntityCoverageItem,
	models.EntityExclusion,
}

// Linker connects entities of a freshly ingested document to matching
// entities from earlier documents. It is strictly best effort: every
// failure is logged and counted, none fails the job.
type Linker struct {
	store      Store
	similarity float64
	logger     *slog.Logger
}

// NewLinker creates a cross-document linker.
func NewLinker(store Store, similarity float64, logger *slog.Logger) *Linker {
	if similarity <= 0 {
		similarity = DefaultLinkSimilarity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Linker{store: store, similarity: similarity, logger: logger.With("system", "linker")}
}

// Link matches docID's committed entities against the rest of the
// graph. Canonical code match first (exact), then label similarity.
// Returns the number of edges created and the per-failure messages.
func (l *Linker) Link(ctx context.Context, docID string) (int, []string) {
	created := 0
	var failures []string

	for _, typ := range linkableTypes {
		candidates, err := l.candidatesOfType(ctx, typ, docID)
		if err != nil {
			failures = append(failures, fmt.Sprintf("link %s: %v", typ, err))
			continue
		}

		for _, source := range candidates {
			matches, err := l.findMatches(ctx, source, docID)
			if err != nil {
				failures = append(failures, fmt.Sprintf("link %s: %v", source.Label, err))
				continue
			}

			for _, match := range matches {
				relType, ok := linkRules[[2]models.EntityType{source.Type, match.entity.Type}]
				if !ok {
					continue
				}

				rel := models.RelationCandidate{
					SourceID:   models.MustRecordIDString(source.ID),
					TargetID:   models.MustRecordIDString(match.entity.ID),
					Type:       string(relType),
					Confidence: match.confidence,
					Method:     models.MethodRule,
				}
				if match.overlap > 0 {
					overlap := match.overlap
					rel.OverlapPct = &overlap
				}

				err := l.store.CreateRelation(ctx, rel)
				switch {
				case err == nil:
					created++
				case errors.Is(err, db.ErrAlreadyExists):
					// Re-ingestion hit, edge already there
				default:
					failures = append(failures,
						fmt.Sprintf("link %s->%s: %v", source.Label, match.entity.Label, err))
				}
			}
		}
	}

	l.logger.Info("cross-document linking done",
		"doc_id", docID, "edges", created, "failures", len(failures))
	return created, failures
}

// candidatesOfType returns docID's own entities of the given type.
func (l *Linker) candidatesOfType(ctx context.Context, typ models.EntityType, docID string) ([]models.Entity, error) {
	all, err := l.store.FindEntitiesByType(ctx, typ, "")
	if err != nil {
		return nil, err
	}
	var own []models.Entity
	for _, e := range all {
		if e.DocID == docID {
			own = append(own, e)
		}
	}
	return own, nil
}

type linkMatch struct {
	entity     models.Entity
	confidence float64
	overlap    float64
}

// findMatches returns cross-document entities matching source, exact
// code matches first, then labels above the similarity threshold.
func (l *Linker) findMatches(ctx context.Context, source models.Entity, docID string) ([]linkMatch, error) {
	var matches []linkMatch
	seen := make(map[string]bool)

	if source.Code != "" {
		byCode, err := l.store.FindEntitiesByCode(ctx, source.Code, docID)
		if err != nil {
			return nil, err
		}
		for _, e := range byCode {
			id := models.MustRecordIDString(e.ID)
			seen[id] = true
			matches = append(matches, linkMatch{entity: e, confidence: 1.0})
		}
	}

	for _, target := range targetTypesFor(source.Type) {
		byType, err := l.store.FindEntitiesByType(ctx, target, docID)
		if err != nil {
			return nil, err
		}
		for _, e := range byType {
			id := models.MustRecordIDString(e.ID)
			if seen[id] {
				continue
			}
			seen[id] = true
			overlap := jaccard(source.Label, e.Label)
			if overlap >= l.similarity {
				matches = append(matches, linkMatch{entity: e, confidence: overlap, overlap: overlap})
			}
		}
	}

	return matches, nil
}

// targetTypesFor returns every target type the given source type pairs
// with in linkRules. An exclusion's similarity candidates are coverage
// items, not other exclusions.
func targetTypesFor(typ models.EntityType) []models.EntityType {
	var targets []models.EntityType
	for pair := range linkRules {
		if pair[0] == typ {
			targets = append(targets, pair[1])
		}
	}
	return targets
}

// jaccard computes token-set overlap between two labels.
func jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		set[tok] = true
	}
	return set
}
