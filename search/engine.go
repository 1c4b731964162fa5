package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docdex/docdex/ai"
	"github.com/docdex/docdex/core"
	"github.com/docdex/docdex/storage"
)

// Engine answers queries by semantic retrieval over the vector index.
// Queries are transient: nothing about them is persisted.
type Engine struct {
	vectors  storage.VectorIndex
	embedder ai.Embedder
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEngine creates a new query engine.
func NewEngine(vectors storage.VectorIndex, provider ai.Provider, opts ...Option) (*Engine, error) {
	if vectors == nil {
		return nil, ErrVectorIndexRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	e := &Engine{
		vectors:  vectors,
		embedder: provider.Embedder(),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Answer runs a query end to end: embed, search, assemble a response.
func (e *Engine) Answer(ctx context.Context, query core.Query) (*core.Response, error) {
	return e.AnswerWithMonitor(ctx, query, nil)
}

// AnswerWithMonitor runs a query with monitoring callbacks at each stage.
//
// Unset query fields receive the retrieval defaults; a top-k above
// core.MaxTopK is clamped rather than rejected. A query that matches
// nothing is not an error: the response says so with confidence 0.0.
func (e *Engine) AnswerWithMonitor(ctx context.Context, query core.Query, monitor QueryMonitor) (*core.Response, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	query = normalize(query)
	if err := core.ValidateQuery(query); err != nil {
		return nil, err
	}

	monitor.Start(query)

	embedding, err := e.embedder.EmbedText(ctx, query.Text)
	if err != nil {
		e.logger.Error("error generating embedding for query", "err", err)
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	monitor.AfterEmbedding(len(embedding))

	results, err := e.vectors.Search(ctx, embedding, query.TopK, *query.Threshold)
	if err != nil {
		e.logger.Error("error searching vector index", "err", err)
		return nil, fmt.Errorf("searching index: %w", err)
	}
	monitor.AfterVectorSearch(results)

	response := assemble(results)
	monitor.Finish(response)

	e.logger.Debug("query answered", "sources", len(response.Sources), "confidence", response.Confidence)
	return response, nil
}

// normalize fills in retrieval defaults and clamps the result bound.
// Only an unset threshold gets the default: an explicit zero is kept and
// admits every match.
func normalize(q core.Query) core.Query {
	if q.TopK == 0 {
		q.TopK = core.DefaultTopK
	}
	if q.TopK > core.MaxTopK {
		q.TopK = core.MaxTopK
	}
	if q.Threshold == nil {
		q.Threshold = core.Float32(core.DefaultThreshold)
	}
	return q
}

// assemble builds the response from ranked results. Confidence is the
// arithmetic mean of the source scores, 0.0 when nothing qualified.
func assemble(results []*core.SearchResult) *core.Response {
	if len(results) == 0 {
		return &core.Response{
			Answer:     "No relevant documents were found for your query.",
			Sources:    []core.SearchResult{},
			Confidence: 0.0,
		}
	}

	sources := make([]core.SearchResult, len(results))
	var total float32
	for i, result := range results {
		sources[i] = *result
		total += result.Score
	}

	var answer strings.Builder
	answer.WriteString("Based on the retrieved documents:\n")
	for i, source := range sources {
		fmt.Fprintf(&answer, "\n[%d] %s", i+1, strings.TrimSpace(source.Text))
	}

	return &core.Response{
		Answer:     answer.String(),
		Sources:    sources,
		Confidence: total / float32(len(sources)),
	}
}
