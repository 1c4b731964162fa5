package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docdex/docdex/core"
)

// recordingEmbedder captures the batch sizes it receives and returns a
// deterministic vector per input text.
type recordingEmbedder struct {
	batchSizes []int
	failAfter  int // fail on the nth EmbedTexts call, 0 disables
	calls      int
}

func (r *recordingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text))}, nil
}

func (r *recordingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	r.calls++
	if r.failAfter > 0 && r.calls >= r.failAfter {
		return nil, errors.New("upstream unavailable")
	}
	r.batchSizes = append(r.batchSizes, len(texts))

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text))}
	}
	return vectors, nil
}

func TestBatchedEmbedderSplitsRequests(t *testing.T) {
	upstream := &recordingEmbedder{}
	embedder, err := NewBatchedEmbedder(upstream, 3)
	require.NoError(t, err)

	texts := make([]string, 7)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%d", i)
	}

	vectors, err := embedder.EmbedTexts(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 7)
	assert.Equal(t, []int{3, 3, 1}, upstream.batchSizes)
}

func TestBatchedEmbedderPreservesOrder(t *testing.T) {
	upstream := &recordingEmbedder{}
	embedder, err := NewBatchedEmbedder(upstream, 2)
	require.NoError(t, err)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := embedder.EmbedTexts(context.Background(), texts)
	require.NoError(t, err)

	require.Len(t, vectors, len(texts))
	for i, text := range texts {
		assert.Equal(t, float32(len(text)), vectors[i][0], "vector %d should match input %d", i, i)
	}
}

func TestBatchedEmbedderEmptyInput(t *testing.T) {
	upstream := &recordingEmbedder{}
	embedder, err := NewBatchedEmbedder(upstream, 4)
	require.NoError(t, err)

	vectors, err := embedder.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Zero(t, upstream.calls)
}

func TestBatchedEmbedderPropagatesErrors(t *testing.T) {
	upstream := &recordingEmbedder{failAfter: 2}
	embedder, err := NewBatchedEmbedder(upstream, 2)
	require.NoError(t, err)

	_, err = embedder.EmbedTexts(context.Background(), []string{"a", "b", "c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream unavailable")
}

func TestNewBatchedEmbedderValidation(t *testing.T) {
	_, err := NewBatchedEmbedder(nil, 4)
	assert.True(t, errors.Is(err, core.ErrConfiguration))

	_, err = NewBatchedEmbedder(&recordingEmbedder{}, 0)
	assert.True(t, errors.Is(err, core.ErrConfiguration))
}
