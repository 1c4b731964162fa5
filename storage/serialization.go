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


package storage

import (
	"math"
	"slices"
	"time"

	"github.com/docdex/docdex/core"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// VectorRecord is the stored form of an embedding vector. Seq preserves
// insertion order for stable tie-breaking in search results.
type VectorRecord struct {
	Id      core.ID
	Seq     uint64
	Vector  []float32
	Payload core.VectorPayload
}

// CollectionInfo pins a vector collection's dimensionality. Written on the
// first upsert; every later vector must match.
type CollectionInfo struct {
	Name      string
	Dimension int
}

// Serializer values for the stored record types. All serializers use the
// MUS format via hand-written field serialization; field order is part of
// the on-disk format and must not change.
var (
	DocumentMUS       = documentSer{}
	ChunkMUS          = chunkSer{}
	VectorRecordMUS   = vectorRecordSer{}
	CollectionInfoMUS = collectionInfoSer{}
)

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *core.Document) []byte {
	buf := make([]byte, DocumentMUS.Size(*doc))
	DocumentMUS.Marshal(*doc, buf)
	return buf
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	doc, _, err := DocumentMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(chunk *core.Chunk) []byte {
	buf := make([]byte, ChunkMUS.Size(*chunk))
	ChunkMUS.Marshal(*chunk, buf)
	return buf
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	chunk, _, err := ChunkMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// MarshalVectorRecord serializes a VectorRecord to bytes.
func MarshalVectorRecord(rec *VectorRecord) []byte {
	buf := make([]byte, VectorRecordMUS.Size(*rec))
	VectorRecordMUS.Marshal(*rec, buf)
	return buf
}

// UnmarshalVectorRecord deserializes a VectorRecord from bytes.
func UnmarshalVectorRecord(data []byte) (*VectorRecord, error) {
	rec, _, err := VectorRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// MarshalCollectionInfo serializes a CollectionInfo to bytes.
func MarshalCollectionInfo(info *CollectionInfo) []byte {
	buf := make([]byte, CollectionInfoMUS.Size(*info))
	CollectionInfoMUS.Marshal(*info, buf)
	return buf
}

// UnmarshalCollectionInfo deserializes a CollectionInfo from bytes.
func UnmarshalCollectionInfo(data []byte) (*CollectionInfo, error) {
	info, _, err := CollectionInfoMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

type documentSer struct{}

func (documentSer) Marshal(d core.Document, bs []byte) (n int) {
	n = ord.String.Marshal(d.Id, bs)
	n += ord.String.Marshal(d.Filename, bs[n:])
	n += ord.String.Marshal(d.ContentType, bs[n:])
	n += varint.Int64.Marshal(d.SizeBytes, bs[n:])
	n += varint.Int64.Marshal(d.StoredBytes, bs[n:])
	n += marshalTime(d.UploadedAt, bs[n:])
	n += marshalTime(d.UpdatedAt, bs[n:])
	n += varint.Int.Marshal(int(d.Status), bs[n:])
	n += ord.String.Marshal(d.FailureReason, bs[n:])
	n += marshalStringMap(d.Metadata, bs[n:])
	return
}

func (documentSer) Unmarshal(bs []byte) (d core.Document, n int, err error) {
	var n1 int
	d.Id, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	d.Filename, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.ContentType, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.SizeBytes, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.StoredBytes, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.UploadedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.UpdatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var status int
	status, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.Status = core.DocumentStatus(status)
	d.FailureReason, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.Metadata, n1, err = unmarshalStringMap(bs[n:])
	n += n1
	return
}

func (documentSer) Size(d core.Document) (size int) {
	size = ord.String.Size(d.Id)
	size += ord.String.Size(d.Filename)
	size += ord.String.Size(d.ContentType)
	size += varint.Int64.Size(d.SizeBytes)
	size += varint.Int64.Size(d.StoredBytes)
	size += sizeTime(d.UploadedAt)
	size += sizeTime(d.UpdatedAt)
	size += varint.Int.Size(int(d.Status))
	size += ord.String.Size(d.FailureReason)
	size += sizeStringMap(d.Metadata)
	return
}

type chunkSer struct{}

func (chunkSer) Marshal(c core.Chunk, bs []byte) (n int) {
	n = ord.String.Marshal(c.DocumentId, bs)
	n += varint.Int.Marshal(c.Ordinal, bs[n:])
	n += ord.String.Marshal(c.Text, bs[n:])
	n += varint.Uint64.Marshal(uint64(c.VectorId), bs[n:])
	return
}

func (chunkSer) Unmarshal(bs []byte) (c core.Chunk, n int, err error) {
	var n1 int
	c.DocumentId, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	c.Ordinal, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var vid uint64
	vid, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	c.VectorId = core.ID(vid)
	return
}

func (chunkSer) Size(c core.Chunk) (size int) {
	size = ord.String.Size(c.DocumentId)
	size += varint.Int.Size(c.Ordinal)
	size += ord.String.Size(c.Text)
	size += varint.Uint64.Size(uint64(c.VectorId))
	return
}

type vectorRecordSer struct{}

func (vectorRecordSer) Marshal(r VectorRecord, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(r.Id), bs)
	n += varint.Uint64.Marshal(r.Seq, bs[n:])
	n += marshalVector(r.Vector, bs[n:])
	n += ord.String.Marshal(r.Payload.Text, bs[n:])
	n += ord.String.Marshal(r.Payload.DocumentId, bs[n:])
	n += marshalStringMap(r.Payload.Metadata, bs[n:])
	return
}

func (vectorRecordSer) Unmarshal(bs []byte) (r VectorRecord, n int, err error) {
	var n1 int
	var id uint64
	id, n, err = varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	r.Id = core.ID(id)
	r.Seq, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.Vector, n1, err = unmarshalVector(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.Payload.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.Payload.DocumentId, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.Payload.Metadata, n1, err = unmarshalStringMap(bs[n:])
	n += n1
	return
}

func (vectorRecordSer) Size(r VectorRecord) (size int) {
	size = varint.Uint64.Size(uint64(r.Id))
	size += varint.Uint64.Size(r.Seq)
	size += sizeVector(r.Vector)
	size += ord.String.Size(r.Payload.Text)
	size += ord.String.Size(r.Payload.DocumentId)
	size += sizeStringMap(r.Payload.Metadata)
	return
}

type collectionInfoSer struct{}

func (collectionInfoSer) Marshal(i CollectionInfo, bs []byte) (n int) {
	n = ord.String.Marshal(i.Name, bs)
	n += varint.Int.Marshal(i.Dimension, bs[n:])
	return
}

func (collectionInfoSer) Unmarshal(bs []byte) (i CollectionInfo, n int, err error) {
	var n1 int
	i.Name, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	i.Dimension, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	return
}

func (collectionInfoSer) Size(i CollectionInfo) int {
	return ord.String.Size(i.Name) + varint.Int.Size(i.Dimension)
}

// Timestamps are stored as microseconds since the Unix epoch, matching the
// precision of the upload-time index keys.

func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	us, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(us).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

// String maps are stored with sorted keys so identical maps marshal to
// identical bytes.

func marshalStringMap(m map[string]string, bs []byte) (n int) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	n = varint.Int.Marshal(len(m), bs)
	for _, k := range keys {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(m[k], bs[n:])
	}
	return
}

func unmarshalStringMap(bs []byte) (m map[string]string, n int, err error) {
	var length int
	length, n, err = varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length < 0 {
		err = ErrSerializationFailed
		return
	}
	if length == 0 {
		return nil, n, nil
	}
	m = make(map[string]string, length)
	var n1 int
	var k, v string
	for i := 0; i < length; i++ {
		k, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		v, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		m[k] = v
	}
	return
}

func sizeStringMap(m map[string]string) (size int) {
	size = varint.Int.Size(len(m))
	for k, v := range m {
		size += ord.String.Size(k) + ord.String.Size(v)
	}
	return
}

func marshalVector(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += varint.Uint32.Marshal(math.Float32bits(f), bs[n:])
	}
	return
}

func unmarshalVector(bs []byte) (v []float32, n int, err error) {
	var length int
	length, n, err = varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length < 0 {
		err = ErrSerializationFailed
		return
	}
	if length == 0 {
		return nil, n, nil
	}
	v = make([]float32, length)
	var n1 int
	var bits uint32
	for i := 0; i < length; i++ {
		bits, n1, err = varint.Uint32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		v[i] = math.Float32frombits(bits)
	}
	return
}

func sizeVector(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += varint.Uint32.Size(math.Float32bits(f))
	}
	return
}
