package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for chunk vectors.
// It is derived deterministically from the owning document and chunk position.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// Identical content always produces an identical ID.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ChunkVectorID derives the vector ID for a chunk from its document ID and ordinal.
// The derivation is stable, so re-running ingestion for the same document position
// upserts the same vector rather than creating a duplicate.
func ChunkVectorID(documentID string, ordinal int) ID {
	return IDFromContent(fmt.Sprintf("%s:%d", documentID, ordinal))
}

// DocumentStatus tracks a document's lifecycle through ingestion.
type DocumentStatus int

const (
	// StatusPending means the document metadata is recorded but processing has not started.
	StatusPending DocumentStatus = iota + 1
	// StatusProcessing means chunking and embedding are in flight.
	StatusProcessing
	// StatusCompleted means every chunk was embedded and persisted.
	StatusCompleted
	// StatusFailed means ingestion stopped on an error; partial chunks are retained.
	StatusFailed
)

// String returns the lowercase wire representation of the status.
func (s DocumentStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Document represents an uploaded file and its ingestion lifecycle.
// Chunks and vectors derived from a document never outlive it.
type Document struct {
	Id            string
	Filename      string
	ContentType   string
	SizeBytes     int64
	StoredBytes   int64 // size after storage-level compression; equals SizeBytes when uncompressed
	UploadedAt    time.Time
	UpdatedAt     time.Time
	Status        DocumentStatus
	FailureReason string
	Metadata      map[string]string
}

// Chunk is a bounded, possibly overlapping substring of a document's decoded text.
// Ordinals are dense and zero-based within a document.
type Chunk struct {
	DocumentId string
	Ordinal    int
	Text       string
	VectorId   ID
}

// VectorPayload is the opaque payload stored alongside each embedding vector.
type VectorPayload struct {
	Text       string
	DocumentId string
	Metadata   map[string]string
}

// Query is a transient retrieval request. It is never persisted.
// A nil Threshold means "unset" and receives DefaultThreshold; an explicit
// zero is a valid value admitting every match.
type Query struct {
	Text      string
	TopK      int
	Threshold *float32
}

// Float32 returns a pointer to v. Convenient for Query.Threshold literals.
func Float32(v float32) *float32 {
	return &v
}

// Retrieval defaults and bounds.
const (
	DefaultTopK      = 5
	DefaultThreshold = 0.7
	MaxTopK          = 10
)

// SearchResult is one ranked retrieval hit.
type SearchResult struct {
	Text       string
	Score      float32
	DocumentId string
	Metadata   map[string]string
}

// Response is the assembled answer for a query: a templated summary of the
// retrieval results plus an aggregate confidence. The confidence is the
// arithmetic mean of the source scores, or 0.0 when no source qualified.
type Response struct {
	Answer     string
	Sources    []SearchResult
	Confidence float32
}
