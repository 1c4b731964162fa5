package storage

import (
	"context"
	"time"

	"github.com/docdex/docdex/core"
)

// DocumentStore persists document metadata, lifecycle status, and the
// chunk-to-vector linkage. Implementations must be thread-safe and support
// concurrent access.
type DocumentStore interface {
	// Create stores a new document with status pending and assigns its ID.
	// Sets UploadedAt if not already set. Returns the assigned ID.
	Create(ctx context.Context, doc *core.Document) (string, error)

	// Get retrieves a document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	Get(ctx context.Context, id string) (*core.Document, error)

	// GetStatus retrieves a document's lifecycle status and, when failed,
	// the recorded failure reason.
	// Returns ErrNotFound if the document doesn't exist.
	GetStatus(ctx context.Context, id string) (core.DocumentStatus, string, error)

	// UpdateStatus transitions a document's lifecycle status. The transition
	// must be valid per core.ValidateTransition. The failure reason is
	// recorded only for StatusFailed and cleared otherwise.
	UpdateStatus(ctx context.Context, id string, status core.DocumentStatus, failureReason string) error

	// AppendChunks records a batch of chunks for a document, linking each to
	// its vector ID. The call is transactional: either all chunks in the
	// batch are recorded or none are. Ordinals must continue the document's
	// dense zero-based sequence.
	AppendChunks(ctx context.Context, documentID string, chunks []*core.Chunk) error

	// ListChunks retrieves a document's chunks ordered by ordinal.
	ListChunks(ctx context.Context, documentID string) ([]*core.Chunk, error)

	// ChunkVectorIDs retrieves the vector IDs linked to a document's chunks,
	// ordered by ordinal. Used to cascade deletion into the vector index.
	ChunkVectorIDs(ctx context.Context, documentID string) ([]core.ID, error)

	// Delete removes the document and all its chunk rows.
	// Returns ErrNotFound if the document doesn't exist.
	// Callers must remove the linked vectors first; see retention.Purger.
	Delete(ctx context.Context, documentID string) error

	// ListOlderThan retrieves up to batchSize document IDs uploaded strictly
	// before the cutoff, oldest first. Used by retention sweeps.
	ListOlderThan(ctx context.Context, cutoff time.Time, batchSize int) ([]string, error)

	// CountDocuments returns the number of stored documents.
	CountDocuments(ctx context.Context) (int64, error)

	// Ping verifies the store is reachable and serving reads.
	Ping(ctx context.Context) error

	// Close closes the store and releases resources.
	Close() error
}

// VectorStats describes a vector collection for health reporting.
type VectorStats struct {
	Vectors   int64
	Dimension int
}

// VectorIndex stores fixed-dimension embedding vectors with opaque payloads
// and answers nearest-neighbor queries under a similarity threshold.
// All vectors in a collection share one dimensionality; the first upsert
// fixes it and a mismatch afterwards is a configuration error.
// Implementations must be thread-safe.
type VectorIndex interface {
	// Upsert inserts or replaces the vector with the given ID. Idempotent:
	// upserting the same ID twice leaves exactly one entry.
	Upsert(ctx context.Context, id core.ID, vector []float32, payload core.VectorPayload) error

	// Search returns at most topK results with cosine similarity >= threshold,
	// sorted by descending score; ties are broken by insertion order.
	// Returns an empty slice, not an error, when nothing qualifies.
	Search(ctx context.Context, vector []float32, topK int, threshold float32) ([]*core.SearchResult, error)

	// Delete removes the vectors with the given IDs.
	// Idempotent on already-absent IDs.
	Delete(ctx context.Context, ids ...core.ID) error

	// Stats reports the collection's vector count and dimensionality.
	Stats(ctx context.Context) (VectorStats, error)

	// Close closes the index and releases resources.
	Close() error
}
