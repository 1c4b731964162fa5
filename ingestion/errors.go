package ingestion

import "errors"

var (
	// ErrDocumentStoreRequired is returned when a pipeline is created without a document store.
	ErrDocumentStoreRequired = errors.New("document store is required")

	// ErrVectorIndexRequired is returned when a pipeline is created without a vector index.
	ErrVectorIndexRequired = errors.New("vector index is required")

	// ErrAIProviderRequired is returned when a pipeline is created without an AI provider.
	ErrAIProviderRequired = errors.New("AI provider is required")

	// ErrChunkerRequired is returned when a pipeline is created without a chunker.
	ErrChunkerRequired = errors.New("chunker is required")
)
