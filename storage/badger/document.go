package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/docdex/docdex/core"
	"github.com/docdex/docdex/storage"
	"github.com/google/uuid"
)

// DocumentRepository implements storage.DocumentStore for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentStore = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend required")
	}
	return &DocumentRepository{backend: backend}, nil
}

// Close releases resources. The backend itself is closed by its owner.
func (r *DocumentRepository) Close() error {
	return nil
}

// Create stores a new document with status pending and assigns its ID.
func (r *DocumentRepository) Create(ctx context.Context, doc *core.Document) (string, error) {
	if doc.Id == "" {
		doc.Id = uuid.NewString()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	if doc.StoredBytes == 0 {
		doc.StoredBytes = doc.SizeBytes
	}
	doc.Status = core.StatusPending
	doc.UpdatedAt = doc.UploadedAt

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeDocumentKey(doc.Id), storage.MarshalDocument(doc)); err != nil {
			return err
		}
		if err := tx.Set(makeUploadKey(doc.UploadedAt, doc.Id), []byte(doc.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return "", err
	}
	return doc.Id, nil
}

// Get retrieves a document by ID.
func (r *DocumentRepository) Get(ctx context.Context, id string) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readDocument(tx, id)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetStatus retrieves a document's lifecycle status and failure reason.
func (r *DocumentRepository) GetStatus(ctx context.Context, id string) (core.DocumentStatus, string, error) {
	doc, err := r.Get(ctx, id)
	if err != nil {
		return 0, "", err
	}
	return doc.Status, doc.FailureReason, nil
}

// UpdateStatus transitions a document's lifecycle status.
// Returns core.ErrInvalidTransition if the change violates the lifecycle.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status core.DocumentStatus, failureReason string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		doc, err := r.readDocument(tx, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		if err := core.ValidateTransition(doc.Status, status); err != nil {
			return err
		}

		doc.Status = status
		if status == core.StatusFailed {
			doc.FailureReason = failureReason
		} else {
			doc.FailureReason = ""
		}
		doc.UpdatedAt = time.Now().UTC()

		if err := tx.Set(makeDocumentKey(id), storage.MarshalDocument(doc)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// AppendChunks records a batch of chunks for a document within one
// transaction: either all chunks in the batch are recorded or none are.
func (r *DocumentRepository) AppendChunks(ctx context.Context, documentID string, chunks []*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		doc, err := r.readDocument(tx, documentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		for _, chunk := range chunks {
			if chunk.DocumentId != documentID {
				return fmt.Errorf("chunk document id %q does not match %q", chunk.DocumentId, documentID)
			}
			key := makeChunkKey(documentID, chunk.Ordinal)
			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// ListChunks retrieves a document's chunks ordered by ordinal.
func (r *DocumentRepository) ListChunks(ctx context.Context, documentID string) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkIterPrefix(documentID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, chunk)
		}
		return nil
	}, false)
	return results, err
}

// ChunkVectorIDs retrieves the vector IDs linked to a document's chunks.
func (r *DocumentRepository) ChunkVectorIDs(ctx context.Context, documentID string) ([]core.ID, error) {
	chunks, err := r.ListChunks(ctx, documentID)
	if err != nil {
		return nil, err
	}
	ids := make([]core.ID, len(chunks))
	for i, chunk := range chunks {
		ids[i] = chunk.VectorId
	}
	return ids, nil
}

// Delete removes the document row and all its chunk rows.
func (r *DocumentRepository) Delete(ctx context.Context, documentID string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		doc, err := r.readDocument(tx, documentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		// Collect chunk keys first; deleting while iterating is undefined.
		var chunkKeys [][]byte
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkIterPrefix(documentID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			chunkKeys = append(chunkKeys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range chunkKeys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		if err := tx.Delete(makeUploadKey(doc.UploadedAt, doc.Id)); err != nil {
			return err
		}
		if err := tx.Delete(makeDocumentKey(documentID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ListOlderThan retrieves up to batchSize document IDs uploaded strictly
// before the cutoff, oldest first.
func (r *DocumentRepository) ListOlderThan(ctx context.Context, cutoff time.Time, batchSize int) ([]string, error) {
	if batchSize <= 0 {
		return nil, nil
	}
	var ids []string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentUploadPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		boundary := makePartialUploadKey(cutoff)
		for iter.Rewind(); iter.Valid() && len(ids) < batchSize; iter.Next() {
			key := iter.Item().Key()
			// Keys at or past the cutoff timestamp are too recent.
			if len(key) >= len(boundary) && string(key[:len(boundary)]) >= string(boundary) {
				break
			}
			err := iter.Item().Value(func(val []byte) error {
				ids = append(ids, string(val))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return ids, err
}

// CountDocuments returns the number of stored documents.
func (r *DocumentRepository) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// Ping verifies the store is open and serving reads.
func (r *DocumentRepository) Ping(ctx context.Context) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		return nil
	}, false)
}

// readDocument reads a document within a transaction.
// Returns nil, nil when the key is absent.
func (r *DocumentRepository) readDocument(tx *badger.Txn, id string) (*core.Document, error) {
	item, err := tx.Get(makeDocumentKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	return doc, err
}
