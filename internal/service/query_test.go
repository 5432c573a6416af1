package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joonhokim/yakgwan/internal/db"
	"github.com/joonhokim/yakgwan/internal/models"
)

func seedClause(t *testing.T, store *fakeStore, docID string, article int, title, text string, page int) {
	t.Helper()
	id := models.ClauseID(models.ClauseRef{DocID: docID, Article: article})
	err := store.SaveClause(context.Background(), id, db.Clause{
		DocID:   docID,
		Article: article,
		Title:   title,
		Text:    text,
		Page:    page,
	})
	require.NoError(t, err)
}

func TestAnswerEmptyRetrievalYieldsZeroConfidence(t *testing.T) {
	store := newFakeStore()
	engine := NewQueryEngine(store, &fakeEmbedder{}, &fakeGenerator{}, 2, nil)

	answer, err := engine.Answer(context.Background(), "간암 진단시 보험금은 얼마인가요?", QueryFilters{})
	require.NoError(t, err)

	assert.Zero(t, answer.Confidence)
	assert.Equal(t, insufficientEvidenceAnswer, answer.Answer)
	assert.Empty(t, answer.Citations)
	assert.Empty(t, answer.ReasoningPath)
}

func TestAnswerCitesRetrievedClauses(t *testing.T) {
	store := newFakeStore()
	seedClause(t, store, "doc1", 3, "보험금의 지급사유",
		"회사는 간암 진단확정시 보험가입금액 5천만원을 지급합니다.", 4)

	generator := &fakeGenerator{
		synthesizeFunc: func(ctx context.Context, question, evidence string) (string, error) {
			return "간암 진단확정시 보험가입금액 5천만원이 지급됩니다 (제3조).", nil
		},
	}
	engine := NewQueryEngine(store, &fakeEmbedder{}, generator, 2, nil)

	answer, err := engine.Answer(context.Background(), "간암", QueryFilters{})
	require.NoError(t, err)

	assert.Greater(t, answer.Confidence, 0.0)
	require.NotEmpty(t, answer.Citations)
	assert.Equal(t, "제3조", answer.Citations[0].Text)
	assert.True(t, answer.Citations[0].Verified)
}

func TestAnswerDocFilterConstrainsRetrieval(t *testing.T) {
	store := newFakeStore()
	seedClause(t, store, "doc1", 3, "지급사유", "간암 진단시 5천만원을 지급합니다.", 1)
	seedClause(t, store, "doc2", 7, "지급사유", "간암 진단시 3천만원을 지급합니다.", 1)

	var evidenceSeen string
	generator := &fakeGenerator{
		synthesizeFunc: func(ctx context.Context, question, evidence string) (string, error) {
			evidenceSeen = evidence
			return "간암 진단시 3천만원이 지급됩니다 (제7조).", nil
		},
	}
	engine := NewQueryEngine(store, &fakeEmbedder{}, generator, 2, nil)

	answer, err := engine.Answer(context.Background(), "간암",
		QueryFilters{DocIDs: []string{"doc2"}})
	require.NoError(t, err)

	assert.Contains(t, evidenceSeen, "3천만원")
	assert.NotContains(t, evidenceSeen, "5천만원")
	assert.Greater(t, answer.Confidence, 0.0)
}

func TestAnswerRecordsTraversalAsReasoningPath(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	// 암진단특약 -> 간암 -> 90일 면책기간: the condition is only
	// reachable through the graph, never textually matched.
	seedEntity(t, store, "doc1-e0", "암진단특약", models.EntityCoverageItem, "doc1", "")
	seedEntity(t, store, "doc1-e1", "간암", models.EntityDisease, "doc1", "C22")
	seedEntity(t, store, "doc1-e2", "90일 면책기간", models.EntityCondition, "doc1", "")
	require.NoError(t, store.CreateRelation(ctx, models.RelationCandidate{
		SourceID: "doc1-e0", TargetID: "doc1-e1", Type: "covers", Method: models.MethodRule,
	}))
	require.NoError(t, store.CreateRelation(ctx, models.RelationCandidate{
		SourceID: "doc1-e1", TargetID: "doc1-e2", Type: "requires", Method: models.MethodRule,
	}))

	engine := NewQueryEngine(store, &fakeEmbedder{}, nil, 2, nil)

	answer, err := engine.Answer(ctx, "암진단특약", QueryFilters{})
	require.NoError(t, err)

	require.NotEmpty(t, answer.ReasoningPath)
	joined := strings.Join(answer.ReasoningPath, "\n")
	assert.Contains(t, joined, "간암")
	assert.Contains(t, joined, "90일 면책기간")
}

func TestAnswerFallsBackToExtractiveWithoutModel(t *testing.T) {
	store := newFakeStore()
	seedClause(t, store, "doc1", 3, "지급사유", "간암 진단시 5천만원을 지급합니다.", 1)

	engine := NewQueryEngine(store, &fakeEmbedder{}, nil, 2, nil)

	answer, err := engine.Answer(context.Background(), "간암", QueryFilters{})
	require.NoError(t, err)

	assert.Contains(t, answer.Answer, "5천만원")
	assert.Contains(t, answer.Answer, "제3조")
}

func TestSearchReturnsRawMatches(t *testing.T) {
	store := newFakeStore()
	seedClause(t, store, "doc1", 3, "지급사유", "간암 진단시 5천만원을 지급합니다.", 1)
	seedEntity(t, store, "doc1-e0", "간암", models.EntityDisease, "doc1", "C22")

	engine := NewQueryEngine(store, &fakeEmbedder{}, nil, 2, nil)

	result, err := engine.Search(context.Background(), "간암", "", 10)
	require.NoError(t, err)
	assert.Len(t, result.Entities, 1)
	assert.Len(t, result.Clauses, 1)
}
