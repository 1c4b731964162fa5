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


package ingestion

import (
	"unicode"

	"github.com/docdex/docdex/core"
)

// Chunker splits decoded document text into bounded, overlapping pieces.
//
// Sizes are measured in runes, not bytes, so multi-byte text never splits
// inside a character. Each chunk is at most Size runes, adjacent chunks
// share exactly Overlap runes, and concatenating the chunks with the
// overlap prefixes stripped reconstructs the input exactly. Splitting is
// deterministic: the same text with the same settings always yields the
// same chunks.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker with the given size and overlap, both in
// runes. The settings must pass core.ValidateChunking.
func NewChunker(size, overlap int) (*Chunker, error) {
	if err := core.ValidateChunking(size, overlap); err != nil {
		return nil, err
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the maximum chunk length in runes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the shared rune count between adjacent chunks.
func (c *Chunker) Overlap() int { return c.overlap }

// Split breaks text into chunks. When a chunk would end mid-text, the cut
// point is moved back to the latest natural boundary inside the chunk:
// a paragraph break first, then a sentence end, then a word break. When no
// boundary exists the chunk is cut at the size limit. Empty text yields no
// chunks.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for {
		end := start + c.size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		end = c.cut(runes, start, end)
		chunks = append(chunks, string(runes[start:end]))

		// Rewind by the overlap so adjacent chunks share context.
		start = end - c.overlap
	}
	return chunks
}

// cut picks the actual end of a chunk that would otherwise stop at the hard
// size limit. Candidates below low would stall the scan, so they are never
// taken.
func (c *Chunker) cut(runes []rune, start, end int) int {
	low := start + c.overlap + 1
	if low > end {
		return end
	}

	// Prefer ending right after a paragraph break.
	for j := end; j >= low; j-- {
		if j >= 2 && runes[j-1] == '\n' && runes[j-2] == '\n' {
			return j
		}
	}

	// Then right after a sentence end followed by whitespace.
	for j := end; j >= low; j-- {
		if isSentenceEnd(runes[j-1]) && j < len(runes) && unicode.IsSpace(runes[j]) {
			return j
		}
	}

	// Then at a word break.
	for j := end; j >= low; j-- {
		if unicode.IsSpace(runes[j-1]) {
			return j
		}
	}

	return end
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
