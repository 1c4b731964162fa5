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

import "fmt"

// ValidateChunking validates a chunk size / overlap pair.
// Both must be positive and the overlap strictly smaller than the size.
// Violations are configuration errors raised at startup, not per call.
func ValidateChunking(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrConfiguration, size)
	}
	if overlap <= 0 {
		return fmt.Errorf("%w: chunk overlap must be positive, got %d", ErrConfiguration, overlap)
	}
	if overlap >= size {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", ErrConfiguration, overlap, size)
	}
	return nil
}

// ValidateQuery validates query parameters after defaults have been applied.
//
// Validation rules:
//   - Text must not be empty
//   - TopK must be >= 1
//   - Threshold, when set, must be in [0, 1]
func ValidateQuery(q Query) error {
	if q.Text == "" {
		return fmt.Errorf("%w: text must not be empty", ErrInvalidQuery)
	}
	if q.TopK < 1 {
		return fmt.Errorf("%w: top_k must be >= 1, got %d", ErrInvalidQuery, q.TopK)
	}
	if q.Threshold != nil && (*q.Threshold < 0 || *q.Threshold > 1) {
		return fmt.Errorf("%w: threshold must be in [0, 1], got %g", ErrInvalidQuery, *q.Threshold)
	}
	return nil
}

// ValidateTransition checks a document status change against the lifecycle.
// The status is monotonic: pending -> processing -> {completed | failed}.
// No other transition is valid.
func ValidateTransition(from, to DocumentStatus) error {
	valid := false
	switch from {
	case StatusPending:
		valid = to == StatusProcessing
	case StatusProcessing:
		valid = to == StatusCompleted || to == StatusFailed
	}
	if !valid {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
