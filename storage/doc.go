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


// Package storage provides the storage abstraction layer for docdex.
//
// It defines the two store interfaces the pipeline is built on, with clearly
// separated responsibilities:
//
//   - DocumentStore: document metadata, lifecycle status, and chunk rows
//   - VectorIndex: embedding vectors and similarity search
//
// Public constructors in backend packages return these interfaces so
// consumers never couple to a specific engine:
//
//	docs, err := badger.NewDocumentRepository(backend)  // returns storage.DocumentStore
//
// The two stores are deliberately not joined by a distributed transaction.
// Ingestion writes chunk rows and vectors within the same pipeline step, and
// deletion removes vectors before document rows, so a crash between the two
// never leaves a vector referencing a document that is gone.
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access from
// multiple goroutines.
//
// # Context Support
//
// All methods accept context.Context for cancellation and timeout support.
package storage
