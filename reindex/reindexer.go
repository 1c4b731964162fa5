// Copyright 2025 Docdex Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reindex

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docdex/docdex/ai"
	"github.com/docdex/docdex/core"
	"github.com/docdex/docdex/storage"
)

// Config holds configuration for a reindexing run.
type Config struct {
	// BatchSize is the number of documents to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of documents)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reindexer recomputes the embedding vector of every stored chunk and
// upserts it under the chunk's existing vector ID. Run it after an
// embedding model update; the replacement model must produce vectors of
// the collection's pinned dimensionality.
type Reindexer struct {
	documents storage.DocumentStore
	vectors   storage.VectorIndex
	embedder  ai.Embedder
	config    *Config
	progress  io.Writer
	iterator  *DocumentIterator
}

// NewReindexer creates a new reindexer.
// progress: where to write progress output (typically os.Stderr)
func NewReindexer(documents storage.DocumentStore, vectors storage.VectorIndex, embedder ai.Embedder, config *Config, progress io.Writer) *Reindexer {
	if config == nil {
		config = DefaultConfig()
	}

	return &Reindexer{
		documents: documents,
		vectors:   vectors,
		embedder:  embedder,
		config:    config,
		progress:  progress,
		iterator:  NewDocumentIterator(documents, config.BatchSize),
	}
}

// Run reindexes every stored document. Progress is reported to the
// configured writer.
func (r *Reindexer) Run(ctx context.Context) error {
	all, err := r.iterator.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	total := len(all)
	if total == 0 {
		fmt.Fprintf(r.progress, "No documents found (0 documents)\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Starting reindexing of %d documents (batch size: %d)\n",
		total, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	processed := 0
	err = r.iterator.ForEach(ctx, func(ids []string) error {
		for _, id := range ids {
			if err := r.reindexDocument(ctx, id); err != nil {
				return fmt.Errorf("failed to reindex document %s: %w", id, err)
			}
			processed++
			tracker.Update(processed)
		}
		return nil
	})
	if err != nil {
		return err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reindexing complete. Processed %d documents in %v (%.1f documents/sec)\n",
		total, elapsed.Round(time.Second), float64(total)/elapsed.Seconds())

	return nil
}

// reindexDocument re-embeds one document's chunks and upserts the vectors
// under their existing IDs. Embedding and indexing are retried with
// backoff, since the run typically follows a model rollout when the
// service may still be warming up.
func (r *Reindexer) reindexDocument(ctx context.Context, id string) error {
	doc, err := r.documents.Get(ctx, id)
	if err != nil {
		return err
	}

	chunks, err := r.documents.ListChunks(ctx, id)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	var vectors [][]float32
	err = RetryWithBackoff(ctx, func() error {
		var embedErr error
		vectors, embedErr = r.embedder.EmbedTexts(ctx, texts)
		return embedErr
	}, r.config.MaxRetries, r.config.RetryDelay)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: expected %d vectors, got %d", core.ErrEmbedding, len(chunks), len(vectors))
	}

	for i, chunk := range chunks {
		payload := core.VectorPayload{
			Text:       chunk.Text,
			DocumentId: id,
			Metadata:   doc.Metadata,
		}
		vector := vectors[i]
		err = RetryWithBackoff(ctx, func() error {
			return r.vectors.Upsert(ctx, chunk.VectorId, vector, payload)
		}, r.config.MaxRetries, r.config.RetryDelay)
		if err != nil {
			return fmt.Errorf("upserting vector for chunk %d: %w", chunk.Ordinal, err)
		}
	}

	return nil
}
