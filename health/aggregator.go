package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/docdex/docdex/storage"
)

// Status is a coarse health level for a subsystem or the whole service.
type Status string

const (
	// StatusHealthy means the subsystem answered its probe.
	StatusHealthy Status = "healthy"
	// StatusDegraded means the service works but a non-critical dependency is down.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy means a critical dependency is down.
	StatusUnhealthy Status = "unhealthy"
)

// DocumentProber is the slice of the document store the aggregator probes.
type DocumentProber interface {
	Ping(ctx context.Context) error
	CountDocuments(ctx context.Context) (int64, error)
}

// VectorProber is the slice of the vector index the aggregator probes.
type VectorProber interface {
	Stats(ctx context.Context) (storage.VectorStats, error)
}

// EmbeddingProber is the slice of the embedding service the aggregator probes.
type EmbeddingProber interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// DocumentHealth reports on the document store.
type DocumentHealth struct {
	Status    Status `json:"status"`
	Documents int64  `json:"documents"`
	Error     string `json:"error,omitempty"`
}

// VectorHealth reports on the vector index.
type VectorHealth struct {
	Status    Status `json:"status"`
	Vectors   int64  `json:"vectors"`
	Dimension int    `json:"dimension"`
	Error     string `json:"error,omitempty"`
}

// EmbeddingHealth reports on the embedding service.
type EmbeddingHealth struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Report is the aggregated health of the service.
type Report struct {
	Status        Status          `json:"status"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Documents     DocumentHealth  `json:"documents"`
	Vectors       VectorHealth    `json:"vectors"`
	Embeddings    EmbeddingHealth `json:"embeddings"`
}

// Aggregator probes the service's dependencies concurrently and rolls the
// results into one report. The overall status is healthy only when every
// subsystem answered its probe; any failure degrades the service as a
// whole while the failing subsystem's entry carries the detail.
type Aggregator struct {
	documents  DocumentProber
	vectors    VectorProber
	embeddings EmbeddingProber
	started    time.Time
	logger     *slog.Logger
}

// NewAggregator creates an aggregator over the given probes.
// Uptime counts from this call.
func NewAggregator(documents DocumentProber, vectors VectorProber, embeddings EmbeddingProber) *Aggregator {
	return &Aggregator{
		documents:  documents,
		vectors:    vectors,
		embeddings: embeddings,
		started:    time.Now().UTC(),
		logger:     slog.Default().With("component", "health"),
	}
}

// Check probes every dependency concurrently and aggregates the results.
// A probe that panics is reported as unhealthy rather than taking the
// process down.
func (a *Aggregator) Check(ctx context.Context) *Report {
	report := &Report{
		UptimeSeconds: int64(time.Since(a.started).Seconds()),
	}

	var wg sync.WaitGroup
	wg.Add(3)

	go a.probe(&wg, "documents", func() {
		report.Documents = a.checkDocuments(ctx)
	})
	go a.probe(&wg, "vectors", func() {
		report.Vectors = a.checkVectors(ctx)
	})
	go a.probe(&wg, "embeddings", func() {
		report.Embeddings = a.checkEmbeddings(ctx)
	})

	wg.Wait()

	// A panicked probe leaves its status zero-valued.
	if report.Documents.Status == "" {
		report.Documents.Status = StatusUnhealthy
		report.Documents.Error = "probe panicked"
	}
	if report.Vectors.Status == "" {
		report.Vectors.Status = StatusUnhealthy
		report.Vectors.Error = "probe panicked"
	}
	if report.Embeddings.Status == "" {
		report.Embeddings.Status = StatusUnhealthy
		report.Embeddings.Error = "probe panicked"
	}

	report.Status = overall(report)
	return report
}

func (a *Aggregator) probe(wg *sync.WaitGroup, name string, fn func()) {
	defer wg.Done()
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("health probe panicked", "probe", name, "panic", r)
		}
	}()
	fn()
}

func (a *Aggregator) checkDocuments(ctx context.Context) DocumentHealth {
	if err := a.documents.Ping(ctx); err != nil {
		return DocumentHealth{Status: StatusUnhealthy, Error: err.Error()}
	}
	count, err := a.documents.CountDocuments(ctx)
	if err != nil {
		return DocumentHealth{Status: StatusUnhealthy, Error: err.Error()}
	}
	return DocumentHealth{Status: StatusHealthy, Documents: count}
}

func (a *Aggregator) checkVectors(ctx context.Context) VectorHealth {
	stats, err := a.vectors.Stats(ctx)
	if err != nil {
		return VectorHealth{Status: StatusUnhealthy, Error: err.Error()}
	}
	return VectorHealth{
		Status:    StatusHealthy,
		Vectors:   stats.Vectors,
		Dimension: stats.Dimension,
	}
}

func (a *Aggregator) checkEmbeddings(ctx context.Context) EmbeddingHealth {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	vector, err := a.embeddings.EmbedText(ctx, "health probe")
	if err != nil {
		return EmbeddingHealth{Status: StatusUnhealthy, Error: err.Error()}
	}
	if len(vector) == 0 {
		return EmbeddingHealth{Status: StatusUnhealthy, Error: "embedding service returned an empty vector"}
	}
	return EmbeddingHealth{Status: StatusHealthy}
}

// overall rolls subsystem statuses up: healthy when every probe answered,
// degraded otherwise. The per-subsystem entries carry the failure detail.
func overall(r *Report) Status {
	if r.Documents.Status != StatusHealthy ||
		r.Vectors.Status != StatusHealthy ||
		r.Embeddings.Status != StatusHealthy {
		return StatusDegraded
	}
	return StatusHealthy
}
