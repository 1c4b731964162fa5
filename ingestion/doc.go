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


// Package ingestion turns uploaded files into indexed, searchable chunks.
//
// The Pipeline accepts an upload, records the document in status pending,
// and hands processing to a bounded worker pool: the file is decoded to
// plain text, split by the Chunker, embedded in batches, written to the
// vector index, and finally linked back to the document row. A document
// that fails anywhere along the way is marked failed with a reason;
// chunks persisted by earlier batches are kept.
package ingestion
