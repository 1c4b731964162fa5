package retention

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docdex/docdex/storage"
)

// Purger removes a document together with everything derived from it.
// Vectors are deleted before the document rows: a crash in between can
// leave document rows behind for a later sweep, but never a vector whose
// owning document is gone.
type Purger struct {
	documents storage.DocumentStore
	vectors   storage.VectorIndex
	logger    *slog.Logger
}

// PurgerOption configures a Purger.
type PurgerOption func(*Purger)

// WithPurgerLogger sets a custom logger.
// Default is slog.Default().
func WithPurgerLogger(logger *slog.Logger) PurgerOption {
	return func(p *Purger) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPurger creates a purger over the given stores.
func NewPurger(documents storage.DocumentStore, vectors storage.VectorIndex, opts ...PurgerOption) (*Purger, error) {
	if documents == nil {
		return nil, ErrDocumentStoreRequired
	}
	if vectors == nil {
		return nil, ErrVectorIndexRequired
	}

	p := &Purger{
		documents: documents,
		vectors:   vectors,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Purge deletes the document's vectors, then its chunk rows and metadata.
// Returns storage.ErrNotFound if the document doesn't exist.
func (p *Purger) Purge(ctx context.Context, documentID string) error {
	vectorIDs, err := p.documents.ChunkVectorIDs(ctx, documentID)
	if err != nil {
		return err
	}

	if len(vectorIDs) > 0 {
		if err := p.vectors.Delete(ctx, vectorIDs...); err != nil {
			return fmt.Errorf("deleting vectors for document %s: %w", documentID, err)
		}
	}

	if err := p.documents.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("deleting document %s: %w", documentID, err)
	}

	p.logger.Debug("purged document", "document", documentID, "vectors", len(vectorIDs))
	return nil
}
