package ingestion

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docdex/docdex/core"
)

func TestNewChunkerValidation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
		{"overlap exceeds size", 10, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChunker(tt.size, tt.overlap)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrConfiguration))
		})
	}
}

func TestChunkerHardCuts(t *testing.T) {
	chunker, err := NewChunker(4, 1)
	require.NoError(t, err)

	chunks := chunker.Split("abcdefghij")
	assert.Equal(t, []string{"abcd", "defg", "ghij"}, chunks)
}

func TestChunkerEmptyText(t *testing.T) {
	chunker, err := NewChunker(100, 10)
	require.NoError(t, err)

	assert.Empty(t, chunker.Split(""))
}

func TestChunkerShortTextSingleChunk(t *testing.T) {
	chunker, err := NewChunker(100, 10)
	require.NoError(t, err)

	chunks := chunker.Split("short text")
	assert.Equal(t, []string{"short text"}, chunks)
}

func TestChunkerExactSizeSingleChunk(t *testing.T) {
	chunker, err := NewChunker(5, 2)
	require.NoError(t, err)

	chunks := chunker.Split("abcde")
	assert.Equal(t, []string{"abcde"}, chunks)
}

func TestChunkerSentenceBoundary(t *testing.T) {
	chunker, err := NewChunker(20, 5)
	require.NoError(t, err)

	chunks := chunker.Split("Hello world. Foo bar baz.")
	require.Len(t, chunks, 2)
	assert.Equal(t, "Hello world.", chunks[0])
	assert.Equal(t, "rld. Foo bar baz.", chunks[1])
}

func TestChunkerParagraphBoundary(t *testing.T) {
	chunker, err := NewChunker(30, 5)
	require.NoError(t, err)

	chunks := chunker.Split("First paragraph.\n\nSecond paragraph here.")
	require.Len(t, chunks, 2)
	assert.Equal(t, "First paragraph.\n\n", chunks[0])
	assert.Equal(t, "aph.\n\nSecond paragraph here.", chunks[1])
}

func TestChunkerSizeBound(t *testing.T) {
	chunker, err := NewChunker(50, 10)
	require.NoError(t, err)

	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)
	chunks := chunker.Split(text)
	require.NotEmpty(t, chunks)

	for i, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk)), 50, "chunk %d exceeds size", i)
	}
}

func TestChunkerReconstruction(t *testing.T) {
	const overlap = 7
	chunker, err := NewChunker(40, overlap)
	require.NoError(t, err)

	text := "One sentence here. Another sentence follows it. Then a third one appears. " +
		"Finally a fourth sentence closes the paragraph without ceremony."
	chunks := chunker.Split(text)
	require.Greater(t, len(chunks), 1)

	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0])
	for _, chunk := range chunks[1:] {
		rebuilt.WriteString(string([]rune(chunk)[overlap:]))
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestChunkerAdjacentOverlap(t *testing.T) {
	const overlap = 3
	chunker, err := NewChunker(25, overlap)
	require.NoError(t, err)

	text := "Words and more words flow through this test sentence without pause or end"
	chunks := chunker.Split(text)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		curr := []rune(chunks[i])
		assert.Equal(t, string(prev[len(prev)-overlap:]), string(curr[:overlap]),
			"chunks %d and %d should share %d runes", i-1, i, overlap)
	}
}

func TestChunkerDeterministic(t *testing.T) {
	chunker, err := NewChunker(30, 6)
	require.NoError(t, err)

	text := "Determinism matters. The same input must always yield the same chunks, run after run."
	assert.Equal(t, chunker.Split(text), chunker.Split(text))
}

func TestChunkerMultiByteRunes(t *testing.T) {
	chunker, err := NewChunker(4, 1)
	require.NoError(t, err)

	chunks := chunker.Split("日本語のテキストです")
	require.NotEmpty(t, chunks)
	for i, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk)), 4, "chunk %d exceeds rune size", i)
	}
	assert.Equal(t, "日本語の", chunks[0])
}
