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


// Package ai defines the embedding abstractions for docdex.
//
// The Embedder interface converts text into dense vectors. A production
// implementation lives in ai/openai and talks to any OpenAI-compatible
// embedding endpoint; a deterministic in-memory implementation lives in
// ai/mock for tests.
//
// NewBatchedEmbedder wraps any Embedder so that bulk embedding requests
// are split into bounded upstream calls. Batching exists purely as a
// resource control: for the same inputs the wrapped embedder returns the
// same vectors in the same order no matter how the batches fall.
package ai
