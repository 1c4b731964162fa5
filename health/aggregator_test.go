package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docdex/docdex/ai/mock"
	badgerstore "github.com/docdex/docdex/storage/badger"
)

func newTestAggregator(t *testing.T) (*Aggregator, *mock.MockEmbedder) {
	t.Helper()

	docs, vectors, backend, err := badgerstore.NewMemoryStores("health-test")
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	embedder := mock.NewMockEmbedder()
	return NewAggregator(docs, vectors, embedder), embedder
}

func TestCheckAllHealthy(t *testing.T) {
	aggregator, _ := newTestAggregator(t)

	report := aggregator.Check(context.Background())

	assert.Equal(t, StatusHealthy, report.Status)
	assert.Equal(t, StatusHealthy, report.Documents.Status)
	assert.Equal(t, StatusHealthy, report.Vectors.Status)
	assert.Equal(t, StatusHealthy, report.Embeddings.Status)
	assert.GreaterOrEqual(t, report.UptimeSeconds, int64(0))
}

func TestCheckEmbeddingFailureDegrades(t *testing.T) {
	aggregator, embedder := newTestAggregator(t)
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("connection refused")
	}

	report := aggregator.Check(context.Background())

	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, StatusUnhealthy, report.Embeddings.Status)
	assert.Contains(t, report.Embeddings.Error, "connection refused")
	assert.Equal(t, StatusHealthy, report.Documents.Status)
}

func TestCheckEmptyEmbeddingDegrades(t *testing.T) {
	aggregator, embedder := newTestAggregator(t)
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{}, nil
	}

	report := aggregator.Check(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, StatusUnhealthy, report.Embeddings.Status)
}

type failingDocumentProber struct{}

func (f *failingDocumentProber) Ping(ctx context.Context) error { return errors.New("store closed") }
func (f *failingDocumentProber) CountDocuments(ctx context.Context) (int64, error) {
	return 0, errors.New("store closed")
}

func TestCheckStorageFailureDegrades(t *testing.T) {
	_, vectors, backend, err := badgerstore.NewMemoryStores("health-test")
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	aggregator := NewAggregator(&failingDocumentProber{}, vectors, mock.NewMockEmbedder())
	report := aggregator.Check(context.Background())

	// A failing subsystem shows up unhealthy in its own entry but only
	// degrades the service overall.
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, StatusUnhealthy, report.Documents.Status)
	assert.Contains(t, report.Documents.Error, "store closed")
	assert.Equal(t, StatusHealthy, report.Vectors.Status)
}

type panickingDocumentProber struct{}

func (p *panickingDocumentProber) Ping(ctx context.Context) error { panic("boom") }
func (p *panickingDocumentProber) CountDocuments(ctx context.Context) (int64, error) {
	panic("boom")
}

func TestCheckProbePanicContained(t *testing.T) {
	_, vectors, backend, err := badgerstore.NewMemoryStores("health-test")
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	aggregator := NewAggregator(&panickingDocumentProber{}, vectors, mock.NewMockEmbedder())

	var report *Report
	require.NotPanics(t, func() {
		report = aggregator.Check(context.Background())
	})
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, StatusUnhealthy, report.Documents.Status)
	assert.Equal(t, "probe panicked", report.Documents.Error)
}

func TestCheckReportsCounts(t *testing.T) {
	docs, vectors, backend, err := badgerstore.NewMemoryStores("health-test")
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	aggregator := NewAggregator(docs, vectors, mock.NewMockEmbedder())
	report := aggregator.Check(context.Background())

	assert.Zero(t, report.Documents.Documents)
	assert.Zero(t, report.Vectors.Vectors)
}
