package badger

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/docdex/docdex/core"
	"github.com/docdex/docdex/storage"
)

// VectorRepository implements storage.VectorIndex for BadgerDB using
// brute-force cosine similarity over one logical collection. Vectors are
// normalized at write time so the scan reduces to a dot product.
type VectorRepository struct {
	backend    *Backend
	collection string
	seq        *badger.Sequence
}

var _ storage.VectorIndex = (*VectorRepository)(nil)

// NewVectorRepository creates a VectorRepository for the named collection.
func NewVectorRepository(backend *Backend, collection string) (*VectorRepository, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend required")
	}
	if collection == "" {
		return nil, fmt.Errorf("%w: collection name must not be empty", core.ErrConfiguration)
	}

	seq, err := backend.GetSequence(vectorSeqName(collection))
	if err != nil {
		return nil, err
	}

	return &VectorRepository{
		backend:    backend,
		collection: collection,
		seq:        seq,
	}, nil
}

// Close releases the insertion-order sequence.
func (r *VectorRepository) Close() error {
	return r.seq.Release()
}

// Upsert inserts or replaces the vector with the given ID. The first upsert
// fixes the collection's dimensionality; a mismatch afterwards is a
// configuration error. Replacing an existing ID keeps its insertion order.
func (r *VectorRepository) Upsert(ctx context.Context, id core.ID, vector []float32, payload core.VectorPayload) error {
	if len(vector) == 0 {
		return fmt.Errorf("%w: vector must not be empty", core.ErrConfiguration)
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		info, err := r.readCollectionInfo(tx)
		if err != nil {
			return err
		}
		if info == nil {
			info = &storage.CollectionInfo{Name: r.collection, Dimension: len(vector)}
			if err := tx.Set(makeCollectionInfoKey(r.collection), storage.MarshalCollectionInfo(info)); err != nil {
				return err
			}
		} else if info.Dimension != len(vector) {
			return fmt.Errorf("%w: vector dimension %d does not match collection dimension %d",
				core.ErrConfiguration, len(vector), info.Dimension)
		}

		key := makeVectorKey(r.collection, id)
		rec := &storage.VectorRecord{
			Id:      id,
			Vector:  normalize(vector),
			Payload: payload,
		}

		// Keep the original insertion order on replace.
		existing, err := r.readVectorRecord(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			rec.Seq = existing.Seq
		} else {
			next, err := r.seq.Next()
			if err != nil {
				return err
			}
			rec.Seq = next
		}

		if err := tx.Set(key, storage.MarshalVectorRecord(rec)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Search returns at most topK results with cosine similarity >= threshold,
// sorted by descending score; ties are broken by insertion order. An empty
// result is a normal outcome, not an error.
func (r *VectorRepository) Search(ctx context.Context, vector []float32, topK int, threshold float32) ([]*core.SearchResult, error) {
	results := []*core.SearchResult{}
	if topK <= 0 {
		return results, nil
	}

	query := normalize(vector)

	type scored struct {
		rec   *storage.VectorRecord
		score float32
	}
	var hits []scored

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		info, err := r.readCollectionInfo(tx)
		if err != nil {
			return err
		}
		if info == nil {
			// Nothing indexed yet.
			return nil
		}
		if info.Dimension != len(vector) {
			return fmt.Errorf("%w: query dimension %d does not match collection dimension %d",
				core.ErrConfiguration, len(vector), info.Dimension)
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeVectorIterPrefix(r.collection)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var rec *storage.VectorRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				rec, err = storage.UnmarshalVectorRecord(val)
				return err
			})
			if err != nil {
				return err
			}

			score := dotProduct(query, rec.Vector)
			if score >= threshold {
				hits = append(hits, scored{rec: rec, score: score})
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(hits, func(a, b scored) int {
		if a.score > b.score {
			return -1
		}
		if a.score < b.score {
			return 1
		}
		// Equal scores: earlier insertion wins.
		if a.rec.Seq < b.rec.Seq {
			return -1
		}
		if a.rec.Seq > b.rec.Seq {
			return 1
		}
		return 0
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}

	for _, h := range hits {
		results = append(results, &core.SearchResult{
			Text:       h.rec.Payload.Text,
			Score:      h.score,
			DocumentId: h.rec.Payload.DocumentId,
			Metadata:   h.rec.Payload.Metadata,
		})
	}
	return results, nil
}

// Delete removes the vectors with the given IDs.
// Idempotent on already-absent IDs.
func (r *VectorRepository) Delete(ctx context.Context, ids ...core.ID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			if err := tx.Delete(makeVectorKey(r.collection, id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Stats reports the collection's vector count and dimensionality.
func (r *VectorRepository) Stats(ctx context.Context) (storage.VectorStats, error) {
	var stats storage.VectorStats
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		info, err := r.readCollectionInfo(tx)
		if err != nil {
			return err
		}
		if info != nil {
			stats.Dimension = info.Dimension
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeVectorIterPrefix(r.collection)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			stats.Vectors++
		}
		return nil
	}, false)
	return stats, err
}

func (r *VectorRepository) readCollectionInfo(tx *badger.Txn) (*storage.CollectionInfo, error) {
	item, err := tx.Get(makeCollectionInfoKey(r.collection))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	var info *storage.CollectionInfo
	err = item.Value(func(val []byte) error {
		var err error
		info, err = storage.UnmarshalCollectionInfo(val)
		return err
	})
	return info, err
}

func (r *VectorRepository) readVectorRecord(tx *badger.Txn, key []byte) (*storage.VectorRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	var rec *storage.VectorRecord
	err = item.Value(func(val []byte) error {
		var err error
		rec, err = storage.UnmarshalVectorRecord(val)
		return err
	})
	return rec, err
}

// normalize returns a unit-length copy of v. A zero vector stays zero.
func normalize(v []float32) []float32 {
	var magnitude float32
	for _, val := range v {
		magnitude += val * val
	}
	magnitude = float32(math.Sqrt(float64(magnitude)))

	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}
	for i, val := range v {
		result[i] = val / magnitude
	}
	return result
}

// dotProduct calculates the dot product of two vectors.
// For normalized vectors this equals cosine similarity.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
