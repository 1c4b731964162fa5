package reindex

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docdex/docdex/ai/mock"
	"github.com/docdex/docdex/core"
	"github.com/docdex/docdex/storage"
	badgerstore "github.com/docdex/docdex/storage/badger"
)

func newTestStores(t *testing.T) (storage.DocumentStore, storage.VectorIndex) {
	t.Helper()
	docs, vectors, backend, err := badgerstore.NewMemoryStores("reindex-test")
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return docs, vectors
}

// indexDocument stores a document with the given chunk texts and a stale
// placeholder vector per chunk.
func indexDocument(t *testing.T, docs storage.DocumentStore, vectors storage.VectorIndex, texts ...string) string {
	t.Helper()
	ctx := context.Background()

	id, err := docs.Create(ctx, &core.Document{Filename: "doc.txt", SizeBytes: 1})
	require.NoError(t, err)

	chunks := make([]*core.Chunk, len(texts))
	for i, text := range texts {
		vectorID := core.ChunkVectorID(id, i)
		stale := make([]float32, 384)
		stale[0] = 1
		require.NoError(t, vectors.Upsert(ctx, vectorID, stale, core.VectorPayload{
			Text:       text,
			DocumentId: id,
		}))
		chunks[i] = &core.Chunk{DocumentId: id, Ordinal: i, Text: text, VectorId: vectorID}
	}
	require.NoError(t, docs.AppendChunks(ctx, id, chunks))
	return id
}

func testConfig() *Config {
	return &Config{BatchSize: 2, ReportInterval: 1, MaxRetries: 2, RetryDelay: time.Millisecond}
}

func TestRunEmptyStore(t *testing.T) {
	docs, vectors := newTestStores(t)

	var out strings.Builder
	reindexer := NewReindexer(docs, vectors, mock.NewMockEmbedder(), testConfig(), &out)

	require.NoError(t, reindexer.Run(context.Background()))
	assert.Contains(t, out.String(), "No documents found")
}

func TestRunReplacesVectorsInPlace(t *testing.T) {
	docs, vectors := newTestStores(t)
	ctx := context.Background()

	id := indexDocument(t, docs, vectors, "first chunk text", "second chunk text")

	before, err := vectors.Stats(ctx)
	require.NoError(t, err)

	reindexer := NewReindexer(docs, vectors, mock.NewMockEmbedder(), testConfig(), io.Discard)
	require.NoError(t, reindexer.Run(ctx))

	after, err := vectors.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Vectors, after.Vectors, "reindexing must not change vector count")

	// The fresh embedding of the chunk text now matches the stored vector.
	embedder := mock.NewMockEmbedder()
	query, err := embedder.EmbedText(ctx, "first chunk text")
	require.NoError(t, err)

	results, err := vectors.Search(ctx, query, 1, 0.99)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "first chunk text", results[0].Text)
	assert.Equal(t, id, results[0].DocumentId)
}

func TestRunCoversAllDocuments(t *testing.T) {
	docs, vectors := newTestStores(t)

	for i := 0; i < 5; i++ {
		indexDocument(t, docs, vectors, "document content")
	}

	var out strings.Builder
	reindexer := NewReindexer(docs, vectors, mock.NewMockEmbedder(), testConfig(), &out)
	require.NoError(t, reindexer.Run(context.Background()))

	assert.Contains(t, out.String(), "Processed 5 documents")
}

func TestRunRetriesTransientEmbeddingFailures(t *testing.T) {
	docs, vectors := newTestStores(t)
	indexDocument(t, docs, vectors, "chunk text")

	failures := 1
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if failures > 0 {
			failures--
			return nil, errors.New("transient")
		}
		out := make([][]float32, len(texts))
		for i := range texts {
			vec := make([]float32, 384)
			vec[0] = 1
			out[i] = vec
		}
		return out, nil
	}

	reindexer := NewReindexer(docs, vectors, embedder, testConfig(), io.Discard)
	require.NoError(t, reindexer.Run(context.Background()))
}

func TestRunFailsAfterExhaustedRetries(t *testing.T) {
	docs, vectors := newTestStores(t)
	indexDocument(t, docs, vectors, "chunk text")

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("model unavailable")
	}

	reindexer := NewReindexer(docs, vectors, embedder, testConfig(), io.Discard)
	err := reindexer.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model unavailable")
}

func TestIteratorBatches(t *testing.T) {
	docs, vectors := newTestStores(t)

	for i := 0; i < 5; i++ {
		indexDocument(t, docs, vectors, "content")
	}

	iterator := NewDocumentIterator(docs, 2)
	var batches []int
	err := iterator.ForEach(context.Background(), func(ids []string) error {
		batches = append(batches, len(ids))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, batches)
}

func TestIteratorStopsOnError(t *testing.T) {
	docs, vectors := newTestStores(t)

	for i := 0; i < 4; i++ {
		indexDocument(t, docs, vectors, "content")
	}

	iterator := NewDocumentIterator(docs, 2)
	calls := 0
	err := iterator.ForEach(context.Background(), func(ids []string) error {
		calls++
		return errors.New("stop here")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
