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


package core

import "errors"

// Error kinds for the ingestion and retrieval pipeline.
// Callers branch on these with errors.Is, never by inspecting messages.
var (
	// ErrConfiguration indicates invalid or missing settings. Fatal at startup.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrDecode indicates unreadable upload content. Terminates that
	// document's ingestion as failed without affecting other documents.
	ErrDecode = errors.New("decode failed")

	// ErrEmbedding indicates the embedding model is unavailable or an input
	// exceeded its maximum length.
	ErrEmbedding = errors.New("embedding failed")

	// ErrEmptyInput indicates an upload with no content.
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidQuery indicates query parameters outside their valid range.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrInvalidTransition indicates a document status change that violates
	// the pending -> processing -> {completed | failed} lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")
)
