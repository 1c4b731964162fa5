package badger

import (
	"context"
	"testing"
	"time"

	"github.com/docdex/docdex/core"
	"github.com/docdex/docdex/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDocumentStore(t *testing.T) storage.DocumentStore {
	t.Helper()
	docs, vectors, backend, err := NewMemoryStores("test-collection")
	require.NoError(t, err)
	t.Cleanup(func() {
		vectors.Close()
		docs.Close()
		backend.Close()
	})
	return docs
}

func newTestDocument(filename string) *core.Document {
	return &core.Document{
		Filename:    filename,
		ContentType: "text/plain",
		SizeBytes:   128,
		Metadata:    map[string]string{"filename": filename},
	}
}

func TestDocumentCreate(t *testing.T) {
	docs := setupDocumentStore(t)
	ctx := context.Background()

	id, err := docs.Create(ctx, newTestDocument("a.txt"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := docs.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, doc.Id)
	assert.Equal(t, "a.txt", doc.Filename)
	assert.Equal(t, core.StatusPending, doc.Status)
	assert.Equal(t, int64(128), doc.StoredBytes)
	assert.False(t, doc.UploadedAt.IsZero())
}

func TestDocumentGet_NotFound(t *testing.T) {
	docs := setupDocumentStore(t)

	_, err := docs.Get(context.Background(), "missing-id")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, _, err = docs.GetStatus(context.Background(), "missing-id")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDocumentUpdateStatus(t *testing.T) {
	docs := setupDocumentStore(t)
	ctx := context.Background()

	id, err := docs.Create(ctx, newTestDocument("a.txt"))
	require.NoError(t, err)

	require.NoError(t, docs.UpdateStatus(ctx, id, core.StatusProcessing, ""))
	status, reason, err := docs.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusProcessing, status)
	assert.Empty(t, reason)

	require.NoError(t, docs.UpdateStatus(ctx, id, core.StatusFailed, "embedding failed: model unavailable"))
	status, reason, err = docs.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, status)
	assert.Equal(t, "embedding failed: model unavailable", reason)
}

func TestDocumentUpdateStatus_InvalidTransition(t *testing.T) {
	docs := setupDocumentStore(t)
	ctx := context.Background()

	id, err := docs.Create(ctx, newTestDocument("a.txt"))
	require.NoError(t, err)

	// pending -> completed skips processing
	err = docs.UpdateStatus(ctx, id, core.StatusCompleted, "")
	assert.ErrorIs(t, err, core.ErrInvalidTransition)

	// The stored status is unchanged.
	status, _, err := docs.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, status)
}

func TestAppendChunks_OrderedByOrdinal(t *testing.T) {
	docs := setupDocumentStore(t)
	ctx := context.Background()

	id, err := docs.Create(ctx, newTestDocument("a.txt"))
	require.NoError(t, err)

	first := []*core.Chunk{
		{DocumentId: id, Ordinal: 0, Text: "alpha", VectorId: core.ChunkVectorID(id, 0)},
		{DocumentId: id, Ordinal: 1, Text: "beta", VectorId: core.ChunkVectorID(id, 1)},
	}
	second := []*core.Chunk{
		{DocumentId: id, Ordinal: 2, Text: "gamma", VectorId: core.ChunkVectorID(id, 2)},
	}
	require.NoError(t, docs.AppendChunks(ctx, id, first))
	require.NoError(t, docs.AppendChunks(ctx, id, second))

	chunks, err := docs.ListChunks(ctx, id)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Ordinal)
	}
	assert.Equal(t, "alpha", chunks[0].Text)
	assert.Equal(t, "gamma", chunks[2].Text)

	ids, err := docs.ChunkVectorIDs(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []core.ID{first[0].VectorId, first[1].VectorId, second[0].VectorId}, ids)
}

func TestAppendChunks_UnknownDocument(t *testing.T) {
	docs := setupDocumentStore(t)

	err := docs.AppendChunks(context.Background(), "missing-id", []*core.Chunk{
		{DocumentId: "missing-id", Ordinal: 0, Text: "x"},
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDocumentDelete_CascadesChunks(t *testing.T) {
	docs := setupDocumentStore(t)
	ctx := context.Background()

	id, err := docs.Create(ctx, newTestDocument("a.txt"))
	require.NoError(t, err)
	require.NoError(t, docs.AppendChunks(ctx, id, []*core.Chunk{
		{DocumentId: id, Ordinal: 0, Text: "alpha"},
		{DocumentId: id, Ordinal: 1, Text: "beta"},
	}))

	require.NoError(t, docs.Delete(ctx, id))

	_, err = docs.Get(ctx, id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	chunks, err := docs.ListChunks(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	// Deleted documents no longer appear in retention scans.
	ids, err := docs.ListOlderThan(ctx, time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDocumentDelete_NotFound(t *testing.T) {
	docs := setupDocumentStore(t)
	err := docs.Delete(context.Background(), "missing-id")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListOlderThan(t *testing.T) {
	docs := setupDocumentStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	var oldIDs []string
	for i := 0; i < 3; i++ {
		doc := newTestDocument("old.txt")
		doc.UploadedAt = now.Add(-time.Duration(40-i) * 24 * time.Hour)
		id, err := docs.Create(ctx, doc)
		require.NoError(t, err)
		oldIDs = append(oldIDs, id)
	}
	recent := newTestDocument("recent.txt")
	recent.UploadedAt = now.Add(-time.Hour)
	_, err := docs.Create(ctx, recent)
	require.NoError(t, err)

	cutoff := now.Add(-30 * 24 * time.Hour)

	ids, err := docs.ListOlderThan(ctx, cutoff, 10)
	require.NoError(t, err)
	// Oldest first, recent document excluded.
	assert.Equal(t, oldIDs, ids)

	// Batch size bounds the fetch.
	ids, err = docs.ListOlderThan(ctx, cutoff, 2)
	require.NoError(t, err)
	assert.Equal(t, oldIDs[:2], ids)
}

func TestCountDocumentsAndPing(t *testing.T) {
	docs := setupDocumentStore(t)
	ctx := context.Background()

	require.NoError(t, docs.Ping(ctx))

	count, err := docs.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	_, err = docs.Create(ctx, newTestDocument("a.txt"))
	require.NoError(t, err)
	_, err = docs.Create(ctx, newTestDocument("b.txt"))
	require.NoError(t, err)

	count, err = docs.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
