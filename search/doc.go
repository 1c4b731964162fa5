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


// Package search answers queries against the indexed document chunks.
//
// The Engine embeds the query text, runs a thresholded nearest-neighbor
// search over the vector index, and assembles a templated answer with its
// ranked sources and an aggregate confidence. Queries are read-only and
// never persisted. A QueryMonitor can observe each stage of execution.
package search
