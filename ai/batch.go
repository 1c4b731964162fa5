package ai

import (
	"context"
	"fmt"

	"github.com/docdex/docdex/core"
)

// batchedEmbedder splits large EmbedTexts calls into bounded upstream
// requests. Results are reassembled in input order, so callers see the
// same output regardless of the batch size.
type batchedEmbedder struct {
	upstream  Embedder
	batchSize int
}

// NewBatchedEmbedder wraps an embedder so that EmbedTexts never sends more
// than batchSize texts in a single upstream call. A batchSize below 1 is a
// configuration error.
func NewBatchedEmbedder(upstream Embedder, batchSize int) (Embedder, error) {
	if upstream == nil {
		return nil, fmt.Errorf("%w: upstream embedder is required", core.ErrConfiguration)
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("%w: batch size must be >= 1, got %d", core.ErrConfiguration, batchSize)
	}
	return &batchedEmbedder{upstream: upstream, batchSize: batchSize}, nil
}

func (b *batchedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return b.upstream.EmbedText(ctx, text)
}

func (b *batchedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.batchSize {
		end := min(start+b.batchSize, len(texts))

		batch, err := b.upstream.EmbedTexts(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch starting at %d: %w", start, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("%w: expected %d vectors, got %d", core.ErrEmbedding, end-start, len(batch))
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
