package badger

import (
	"context"
	"testing"

	"github.com/docdex/docdex/core"
	"github.com/docdex/docdex/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupVectorIndex(t *testing.T) storage.VectorIndex {
	t.Helper()
	docs, vectors, backend, err := NewMemoryStores("test-collection")
	require.NoError(t, err)
	t.Cleanup(func() {
		vectors.Close()
		docs.Close()
		backend.Close()
	})
	return vectors
}

func payload(text, docID string) core.VectorPayload {
	return core.VectorPayload{Text: text, DocumentId: docID}
}

func TestUpsertAndSearch(t *testing.T) {
	vectors := setupVectorIndex(t)
	ctx := context.Background()

	require.NoError(t, vectors.Upsert(ctx, 1, []float32{1, 0, 0}, payload("x axis", "doc-1")))
	require.NoError(t, vectors.Upsert(ctx, 2, []float32{0, 1, 0}, payload("y axis", "doc-1")))
	require.NoError(t, vectors.Upsert(ctx, 3, []float32{0.9, 0.1, 0}, payload("near x", "doc-2")))

	results, err := vectors.Search(ctx, []float32{1, 0, 0}, 5, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "x axis", results[0].Text)
	assert.Equal(t, "near x", results[1].Text)
	assert.True(t, results[0].Score >= results[1].Score)
	assert.Equal(t, "doc-2", results[1].DocumentId)
}

func TestUpsert_Idempotent(t *testing.T) {
	vectors := setupVectorIndex(t)
	ctx := context.Background()

	require.NoError(t, vectors.Upsert(ctx, 7, []float32{1, 0, 0}, payload("first", "doc-1")))
	require.NoError(t, vectors.Upsert(ctx, 7, []float32{1, 0, 0}, payload("replaced", "doc-1")))

	stats, err := vectors.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Vectors)

	results, err := vectors.Search(ctx, []float32{1, 0, 0}, 5, 0.9)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "replaced", results[0].Text)
}

func TestSearch_RespectsTopKAndThreshold(t *testing.T) {
	vectors := setupVectorIndex(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		v := []float32{1, float32(i) * 0.05, 0}
		require.NoError(t, vectors.Upsert(ctx, core.ID(i+1), v, payload("p", "doc-1")))
	}

	results, err := vectors.Search(ctx, []float32{1, 0, 0}, 3, 0.5)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	for _, res := range results {
		assert.GreaterOrEqual(t, res.Score, float32(0.5))
	}
}

func TestSearch_NothingQualifies(t *testing.T) {
	vectors := setupVectorIndex(t)
	ctx := context.Background()

	require.NoError(t, vectors.Upsert(ctx, 1, []float32{0, 1, 0}, payload("orthogonal", "doc-1")))

	// Best match scores ~0; a high threshold yields an empty result, not an error.
	results, err := vectors.Search(ctx, []float32{1, 0, 0}, 5, 0.9)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_TiesBrokenByInsertionOrder(t *testing.T) {
	vectors := setupVectorIndex(t)
	ctx := context.Background()

	// Identical vectors produce identical scores.
	require.NoError(t, vectors.Upsert(ctx, 10, []float32{1, 0, 0}, payload("inserted first", "doc-1")))
	require.NoError(t, vectors.Upsert(ctx, 5, []float32{1, 0, 0}, payload("inserted second", "doc-2")))

	results, err := vectors.Search(ctx, []float32{1, 0, 0}, 5, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "inserted first", results[0].Text)
	assert.Equal(t, "inserted second", results[1].Text)
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	vectors := setupVectorIndex(t)
	ctx := context.Background()

	require.NoError(t, vectors.Upsert(ctx, 1, []float32{1, 0, 0}, payload("3d", "doc-1")))

	err := vectors.Upsert(ctx, 2, []float32{1, 0}, payload("2d", "doc-1"))
	assert.ErrorIs(t, err, core.ErrConfiguration)

	_, err = vectors.Search(ctx, []float32{1, 0}, 5, 0.5)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestDelete_Idempotent(t *testing.T) {
	vectors := setupVectorIndex(t)
	ctx := context.Background()

	require.NoError(t, vectors.Upsert(ctx, 1, []float32{1, 0, 0}, payload("x", "doc-1")))
	require.NoError(t, vectors.Delete(ctx, 1))
	// Deleting an absent ID is not an error.
	require.NoError(t, vectors.Delete(ctx, 1, 99))

	stats, err := vectors.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Vectors)
}

func TestStats_ReportsDimension(t *testing.T) {
	vectors := setupVectorIndex(t)
	ctx := context.Background()

	stats, err := vectors.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Dimension)

	require.NoError(t, vectors.Upsert(ctx, 1, []float32{1, 0, 0, 0}, payload("x", "doc-1")))

	stats, err = vectors.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Dimension)
	assert.Equal(t, int64(1), stats.Vectors)
}

func TestNormalize(t *testing.T) {
	unit := normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, unit[0], 1e-6)
	assert.InDelta(t, 0.8, unit[1], 1e-6)

	zero := normalize([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}
