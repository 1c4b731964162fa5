package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/docdex/docdex/ai"
	"github.com/docdex/docdex/core"
	"github.com/docdex/docdex/storage"
)

// Pipeline orchestrates the ingestion of uploaded documents.
// Upload records the document and returns immediately; decoding, chunking,
// embedding, and indexing run on a worker pool. At most one worker
// processes a given document at a time.
type Pipeline struct {
	documents storage.DocumentStore
	vectors   storage.VectorIndex
	embedder  ai.Embedder
	chunker   *Chunker
	pool      *ants.Pool
	batchSize int
	// synchronous runs processing inline on Upload. Used in tests and the
	// one-shot CLI path.
	synchronous bool
	logger      *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithBatchSize sets how many chunks are embedded and persisted per round.
// Default is 32.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("%w: ingestion batch size must be >= 1, got %d", core.ErrConfiguration, size)
		}
		p.batchSize = size
		return nil
	}
}

// WithSynchronous makes Upload process documents inline instead of on the
// worker pool. Upload then returns only after processing finishes.
func WithSynchronous() Option {
	return func(p *Pipeline) error {
		p.synchronous = true
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	documents storage.DocumentStore,
	vectors storage.VectorIndex,
	provider ai.Provider,
	chunker *Chunker,
	opts ...Option,
) (*Pipeline, error) {
	if documents == nil {
		return nil, ErrDocumentStoreRequired
	}
	if vectors == nil {
		return nil, ErrVectorIndexRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	if chunker == nil {
		return nil, ErrChunkerRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		documents: documents,
		vectors:   vectors,
		embedder:  provider.Embedder(),
		chunker:   chunker,
		pool:      pool,
		batchSize: 32,
		logger:    slog.Default(),
		inflight:  make(map[string]struct{}),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// UploadOptions holds optional parameters for an upload.
type UploadOptions struct {
	ContentType string            // MIME type as reported by the client
	Metadata    map[string]string // Attached to the document and every vector payload
}

// Upload records a document and schedules its processing. The returned
// document is in status pending (or a terminal status when the pipeline is
// synchronous); callers poll Status for progress. Empty files are rejected
// before anything is recorded.
func (p *Pipeline) Upload(ctx context.Context, filename string, data []byte, opts *UploadOptions) (*core.Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", core.ErrEmptyInput)
	}
	if opts == nil {
		opts = &UploadOptions{}
	}

	doc := &core.Document{
		Filename:    filename,
		ContentType: opts.ContentType,
		SizeBytes:   int64(len(data)),
		Metadata:    opts.Metadata,
	}

	id, err := p.documents.Create(ctx, doc)
	if err != nil {
		return nil, err
	}

	if p.synchronous {
		p.process(ctx, id, filename, data, opts.Metadata)
		return p.documents.Get(ctx, id)
	}

	if err := p.pool.Submit(func() {
		p.process(context.Background(), id, filename, data, opts.Metadata)
	}); err != nil {
		// The document stays pending; record why it never progressed.
		p.logger.Error("failed to schedule document processing", "document", id, "err", err)
		return nil, err
	}

	return doc, nil
}

// Status reports a document's lifecycle status and failure reason.
func (p *Pipeline) Status(ctx context.Context, id string) (core.DocumentStatus, string, error) {
	return p.documents.GetStatus(ctx, id)
}

// process runs the full ingestion of one document: decode, chunk, embed,
// index, link. Errors mark the document failed; partial chunks from earlier
// batches are retained.
func (p *Pipeline) process(ctx context.Context, id, filename string, data []byte, metadata map[string]string) {
	if !p.begin(id) {
		p.logger.Warn("document already being processed", "document", id)
		return
	}
	defer p.end(id)

	if err := p.documents.UpdateStatus(ctx, id, core.StatusProcessing, ""); err != nil {
		p.logger.Error("failed to mark document processing", "document", id, "err", err)
		return
	}

	if err := p.ingest(ctx, id, filename, data, metadata); err != nil {
		p.logger.Error("document ingestion failed", "document", id, "err", err)
		p.fail(ctx, id, err)
		return
	}

	if err := p.documents.UpdateStatus(ctx, id, core.StatusCompleted, ""); err != nil {
		p.logger.Error("failed to mark document completed", "document", id, "err", err)
	}
}

func (p *Pipeline) ingest(ctx context.Context, id, filename string, data []byte, metadata map[string]string) error {
	text, err := Decode(filename, data)
	if err != nil {
		return err
	}

	pieces := p.chunker.Split(text)
	if len(pieces) == 0 {
		// Decodable but empty after splitting still completes.
		return nil
	}

	p.logger.Debug("processing document", "document", id, "chunks", len(pieces))

	for start := 0; start < len(pieces); start += p.batchSize {
		end := min(start+p.batchSize, len(pieces))

		vectors, err := p.embedder.EmbedTexts(ctx, pieces[start:end])
		if err != nil {
			return fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
		}
		if len(vectors) != end-start {
			return fmt.Errorf("%w: expected %d vectors, got %d", core.ErrEmbedding, end-start, len(vectors))
		}

		chunks := make([]*core.Chunk, 0, end-start)
		for i, vector := range vectors {
			ordinal := start + i
			vectorID := core.ChunkVectorID(id, ordinal)

			payload := core.VectorPayload{
				Text:       pieces[ordinal],
				DocumentId: id,
				Metadata:   metadata,
			}
			if err := p.vectors.Upsert(ctx, vectorID, vector, payload); err != nil {
				return fmt.Errorf("indexing chunk %d: %w", ordinal, err)
			}

			chunks = append(chunks, &core.Chunk{
				DocumentId: id,
				Ordinal:    ordinal,
				Text:       pieces[ordinal],
				VectorId:   vectorID,
			})
		}

		if err := p.documents.AppendChunks(ctx, id, chunks); err != nil {
			return fmt.Errorf("recording chunks %d-%d: %w", start, end-1, err)
		}
	}

	return nil
}

func (p *Pipeline) fail(ctx context.Context, id string, cause error) {
	if err := p.documents.UpdateStatus(ctx, id, core.StatusFailed, cause.Error()); err != nil {
		p.logger.Error("failed to mark document failed", "document", id, "err", err)
	}
}

// begin claims the document for processing. Returns false when another
// worker already holds it.
func (p *Pipeline) begin(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inflight[id]; busy {
		return false
	}
	p.inflight[id] = struct{}{}
	return true
}

func (p *Pipeline) end(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, id)
}

// Release releases the worker pool. Documents still queued are dropped;
// they remain in status pending.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
