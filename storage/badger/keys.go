package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/docdex/docdex/core"
)

// Key prefixes for different data types. Prefixes always end with a colon
// when used for iteration so "doc:" never matches "docup:" keys.
const (
	documentPrefix       = "doc"
	documentUploadPrefix = "docup"
	chunkPrefix          = "chu"
	vectorPrefix         = "vec"
	collectionInfoPrefix = "vecinf"
	vectorSeqPrefix      = "vecseq"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", documentPrefix, id))
}

// makeUploadKey generates a composite key for the upload-time index.
// Format: prefix:timestamp:id, with the timestamp in BigEndian order so
// lexicographic iteration yields oldest documents first.
func makeUploadKey(uploadedAt time.Time, id string) []byte {
	prefix := documentUploadPrefix + ":"
	buf := make([]byte, len(prefix)+8+len(id))
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(uploadedAt.UnixMicro()))
	offset += 8
	copy(buf[offset:], id)
	return buf
}

// makePartialUploadKey generates a partial key for upload-time range scans.
func makePartialUploadKey(uploadedAt time.Time) []byte {
	prefix := documentUploadPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(uploadedAt.UnixMicro()))
	return buf
}

// makeChunkKey generates a composite key for a chunk row.
// Format: prefix:documentID:ordinal, with the ordinal in BigEndian order so
// iteration over a document's chunk prefix yields dense ordinal order.
func makeChunkKey(documentID string, ordinal int) []byte {
	prefix := fmt.Sprintf("%s:%s:", chunkPrefix, documentID)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(ordinal))
	return buf
}

// makeChunkIterPrefix generates the iteration prefix for a document's chunks.
func makeChunkIterPrefix(documentID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", chunkPrefix, documentID))
}

// makeVectorKey generates a key for a vector record within a collection.
func makeVectorKey(collection string, id core.ID) []byte {
	prefix := fmt.Sprintf("%s:%s:", vectorPrefix, collection)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeVectorIterPrefix generates the iteration prefix for a collection's vectors.
func makeVectorIterPrefix(collection string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", vectorPrefix, collection))
}

// makeCollectionInfoKey generates the key holding a collection's metadata.
func makeCollectionInfoKey(collection string) []byte {
	return []byte(fmt.Sprintf("%s:%s", collectionInfoPrefix, collection))
}

// vectorSeqName is the sequence name for a collection's insertion counter.
func vectorSeqName(collection string) string {
	return fmt.Sprintf("%s:%s", vectorSeqPrefix, collection)
}
