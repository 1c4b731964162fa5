// Package reindex recomputes stored chunk embeddings in place.
//
// Vector IDs are derived from document ID and ordinal, so re-embedding a
// chunk upserts over its old vector instead of duplicating it. The run is
// resumable: interrupting it leaves a mix of old and new vectors, and
// running it again converges.
package reindex
