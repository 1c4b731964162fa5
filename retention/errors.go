package retention

import "errors"

var (
	// ErrDocumentStoreRequired is returned when a document store is not provided.
	ErrDocumentStoreRequired = errors.New("document store is required")

	// ErrVectorIndexRequired is returned when a vector index is not provided.
	ErrVectorIndexRequired = errors.New("vector index is required")

	// ErrPurgerRequired is returned when a sweeper is created without a purger.
	ErrPurgerRequired = errors.New("purger is required")

	// ErrSweepStalled is returned when every purge in a full sweep round failed,
	// which would otherwise retry the same documents forever.
	ErrSweepStalled = errors.New("sweep stalled: no document could be purged")
)
