package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joonhokim/yakgwan/internal/db"
	"github.com/joonhokim/yakgwan/internal/errs"
	"github.com/joonhokim/yakgwan/internal/models"
)

var (
	_ Store     = (*fakeStore)(nil)
	_ Embedder  = (*fakeEmbedder)(nil)
	_ Generator = (*fakeGenerator)(nil)
)

func testMeta9() DocMeta {
	return DocMeta{DocID: "doc9", Insurer: "테스트생명", ProductType: "암보험"}
}

func TestWriteQuarantinesInvalidCandidates(t *testing.T) {
	store := newFakeStore()
	w := NewGraphWriter(store, &fakeEmbedder{}, nil)

	result := w.Write(context.Background(), testMeta9(),
		[]models.EntityCandidate{
			{EntityID: "doc9-e0", Label: "간암", Type: "disease", Confidence: 0.9},
			{EntityID: "doc9-e1", Label: "이상한것", Type: "spaceship", Confidence: 0.9},
			{EntityID: "doc9-e2", Label: "", Type: "disease", Confidence: 0.9},
		},
		[]models.RelationCandidate{
			{SourceID: "doc9-e0", TargetID: "doc9-e0", Type: "teleports_to", Method: models.MethodRule},
		})

	assert.Equal(t, 1, result.NodesCreated)
	assert.Equal(t, 0, result.EdgesCreated)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "spaceship")
	assert.Contains(t, result.Errors[1], "empty label")
	assert.Contains(t, result.Errors[2], "teleports_to")

	// Quarantined candidates never reach the store
	_, err := store.GetEntity(context.Background(), "doc9-e1")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestWriteCountsNodeOncePerBatch(t *testing.T) {
	store := newFakeStore()
	w := NewGraphWriter(store, &fakeEmbedder{}, nil)
	ctx := context.Background()

	candidates := []models.EntityCandidate{
		{EntityID: "doc9-e0", Label: "간암", Type: "disease", Description: "첫번째 설명", Confidence: 0.9},
		{EntityID: "doc9-e0", Label: "간암", Type: "disease", Description: "두번째 설명", Confidence: 0.9},
	}

	result := w.Write(ctx, testMeta9(), candidates, nil)
	assert.Equal(t, 1, result.NodesCreated)
	assert.Empty(t, result.Errors)

	// Second batch over the same ID updates, does not count again
	result = w.Write(ctx, testMeta9(), candidates[:1], nil)
	assert.Equal(t, 0, result.NodesCreated)

	stored, err := store.GetEntity(ctx, "doc9-e0")
	require.NoError(t, err)
	assert.Equal(t, "간암", stored.Label)
}

func TestWriteDerivesContentKeyForUnkeyedCandidates(t *testing.T) {
	store := newFakeStore()
	w := NewGraphWriter(store, &fakeEmbedder{}, nil)
	ctx := context.Background()

	result := w.Write(ctx, testMeta9(),
		[]models.EntityCandidate{
			{Label: "Liver Cancer", Type: "disease", Confidence: 0.7},
		}, nil)
	assert.Equal(t, 1, result.NodesCreated)

	// Same label on a rerun resolves to the same key
	result = w.Write(ctx, testMeta9(),
		[]models.EntityCandidate{
			{Label: "Liver Cancer", Type: "disease", Confidence: 0.7},
		}, nil)
	assert.Equal(t, 0, result.NodesCreated)

	_, err := store.GetEntity(ctx, "doc9-"+models.Slugify("Liver Cancer"))
	assert.NoError(t, err)
}

func TestWriteResolvesRelationEndpointsByLabel(t *testing.T) {
	store := newFakeStore()
	w := NewGraphWriter(store, &fakeEmbedder{}, nil)

	result := w.Write(context.Background(), testMeta9(),
		[]models.EntityCandidate{
			{Label: "암진단특약", Type: "coverage_item", Confidence: 0.7},
			{Label: "간암", Type: "disease", Confidence: 0.7},
		},
		[]models.RelationCandidate{
			// LLM candidates reference labels, not IDs
			{SourceID: "암진단특약", TargetID: "간암", Type: "covers", Confidence: 0.7, Method: models.MethodLLM},
		})

	assert.Equal(t, 2, result.NodesCreated)
	assert.Equal(t, 1, result.EdgesCreated)
	assert.Empty(t, result.Errors)
}

func TestWriteDefersAndSurfacesMissingEndpoints(t *testing.T) {
	store := newFakeStore()
	w := NewGraphWriter(store, &fakeEmbedder{}, nil)

	result := w.Write(context.Background(), testMeta9(),
		[]models.EntityCandidate{
			{EntityID: "doc9-e0", Label: "간암", Type: "disease", Confidence: 0.9},
		},
		[]models.RelationCandidate{
			{SourceID: "doc9-e0", TargetID: "doc9-missing", Type: "covers", Confidence: 0.9, Method: models.MethodRule},
		})

	assert.Equal(t, 0, result.EdgesCreated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "endpoint still missing after retry")
}

func TestWriteDedupsExistingRelations(t *testing.T) {
	store := newFakeStore()
	w := NewGraphWriter(store, &fakeEmbedder{}, nil)
	ctx := context.Background()

	entities := []models.EntityCandidate{
		{EntityID: "doc9-e0", Label: "제3조", Type: "clause", Confidence: 0.9},
		{EntityID: "doc9-e1", Label: "간암", Type: "disease", Confidence: 0.9},
	}
	relations := []models.RelationCandidate{
		{SourceID: "doc9-e0", TargetID: "doc9-e1", Type: "covers", Confidence: 0.9, Method: models.MethodRule},
	}

	result := w.Write(ctx, testMeta9(), entities, relations)
	assert.Equal(t, 1, result.EdgesCreated)

	// Rerun: relation already in the graph, skipped silently
	result = w.Write(ctx, testMeta9(), entities, relations)
	assert.Equal(t, 0, result.EdgesCreated)
	assert.Empty(t, result.Errors)
}

func TestWriteRetriesTransactionConflicts(t *testing.T) {
	store := newFakeStore()
	attempts := 0
	store.upsertEntityFunc = func(ctx context.Context, id string, e models.Entity) (*models.Entity, bool, error) {
		attempts++
		if attempts < 3 {
			return nil, false, db.ErrTransactionConflict
		}
		e.ID = entityRecordID(id)
		return &e, true, nil
	}
	w := NewGraphWriter(store, &fakeEmbedder{}, nil)

	result := w.Write(context.Background(), testMeta9(),
		[]models.EntityCandidate{
			{EntityID: "doc9-e0", Label: "간암", Type: "disease", Confidence: 0.9},
		}, nil)

	assert.Equal(t, 3, attempts)
	assert.Equal(t, 1, result.NodesCreated)
	assert.Empty(t, result.Errors)
}

func TestWriteExhaustedConflictSurfacesAsWriteConflict(t *testing.T) {
	store := newFakeStore()
	store.upsertEntityFunc = func(ctx context.Context, id string, e models.Entity) (*models.Entity, bool, error) {
		return nil, false, db.ErrTransactionConflict
	}
	w := NewGraphWriter(store, &fakeEmbedder{}, nil)

	result := w.Write(context.Background(), testMeta9(),
		[]models.EntityCandidate{
			{EntityID: "doc9-e0", Label: "간암", Type: "disease", Confidence: 0.9},
		}, nil)

	assert.Equal(t, 0, result.NodesCreated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], errs.ErrWriteConflict.Error())
}

func TestWriteDegradesToZeroVectorOnEmbedFailure(t *testing.T) {
	store := newFakeStore()
	embedder := &fakeEmbedder{
		embedFunc: func(ctx context.Context, text string) ([]float32, error) {
			return nil, assert.AnError
		},
	}
	w := NewGraphWriter(store, embedder, nil)

	result := w.Write(context.Background(), testMeta9(),
		[]models.EntityCandidate{
			{EntityID: "doc9-e0", Label: "간암", Type: "disease", Confidence: 0.9},
		}, nil)

	// The write itself still lands
	assert.Equal(t, 1, result.NodesCreated)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "embedding failed")

	stored, err := store.GetEntity(context.Background(), "doc9-e0")
	require.NoError(t, err)
	assert.Len(t, stored.Embedding, fakeDimension)
	for _, v := range stored.Embedding {
		assert.Zero(t, v)
	}
}
