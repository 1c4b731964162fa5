package reindex

import (
	"context"
	"math"
	"time"

	"github.com/docdex/docdex/storage"
)

// DefaultBatchSize is the default number of documents processed per batch.
const DefaultBatchSize = 100

// DocumentIterator walks every stored document in batches.
type DocumentIterator struct {
	documents storage.DocumentStore
	batchSize int
}

// NewDocumentIterator creates a new document iterator.
// batchSize: number of documents handed to fn per call (must be > 0)
func NewDocumentIterator(documents storage.DocumentStore, batchSize int) *DocumentIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &DocumentIterator{
		documents: documents,
		batchSize: batchSize,
	}
}

// ForEach calls fn for each batch of document IDs, oldest upload first.
// Iteration stops on the first error from fn. Context cancellation is
// checked between batches.
func (it *DocumentIterator) ForEach(ctx context.Context, fn func(ids []string) error) error {
	ids, err := it.All(ctx)
	if err != nil {
		return err
	}

	for i := 0; i < len(ids); i += it.batchSize {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		end := min(i+it.batchSize, len(ids))
		if err := fn(ids[i:end]); err != nil {
			return err
		}
	}
	return nil
}

// All returns every stored document ID, oldest upload first. The upload
// index is scanned with a far-future cutoff so nothing is excluded.
func (it *DocumentIterator) All(ctx context.Context) ([]string, error) {
	cutoff := time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC)
	return it.documents.ListOlderThan(ctx, cutoff, math.MaxInt32)
}
