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


package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docdex/docdex/core"
	"github.com/docdex/docdex/storage"
)

// Sweeper removes documents older than the retention window, batch by
// batch, oldest first. A failed purge is logged and skipped; the sweep
// carries on with the rest of the batch.
type Sweeper struct {
	documents storage.DocumentStore
	purger    *Purger
	retention time.Duration
	batchSize int
	logger    *slog.Logger
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Scanned int // documents older than the cutoff that were examined
	Purged  int // documents fully removed
	Failed  int // documents whose purge failed; retried next sweep
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweeperLogger sets a custom logger.
// Default is slog.Default().
func WithSweeperLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSweeper creates a sweeper that purges documents uploaded more than
// retention ago, fetching at most batchSize candidates per round.
func NewSweeper(documents storage.DocumentStore, purger *Purger, retention time.Duration, batchSize int, opts ...SweeperOption) (*Sweeper, error) {
	if documents == nil {
		return nil, ErrDocumentStoreRequired
	}
	if purger == nil {
		return nil, ErrPurgerRequired
	}
	if retention <= 0 {
		return nil, fmt.Errorf("%w: retention must be positive, got %s", core.ErrConfiguration, retention)
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("%w: sweep batch size must be >= 1, got %d", core.ErrConfiguration, batchSize)
	}

	s := &Sweeper{
		documents: documents,
		purger:    purger,
		retention: retention,
		batchSize: batchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sweep purges every document older than the retention window. It loops
// over batches until a round comes back short. A round in which nothing
// could be purged stops the sweep with ErrSweepStalled, since the next
// round would fetch the same documents again.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	cutoff := time.Now().UTC().Add(-s.retention)
	var result SweepResult

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		ids, err := s.documents.ListOlderThan(ctx, cutoff, s.batchSize)
		if err != nil {
			return result, fmt.Errorf("listing expired documents: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		purgedThisRound := 0
		for _, id := range ids {
			result.Scanned++
			if err := s.purger.Purge(ctx, id); err != nil {
				s.logger.Error("failed to purge expired document", "document", id, "err", err)
				result.Failed++
				continue
			}
			result.Purged++
			purgedThisRound++
		}

		if len(ids) < s.batchSize {
			break
		}
		if purgedThisRound == 0 {
			return result, ErrSweepStalled
		}
	}

	if result.Scanned > 0 {
		s.logger.Info("retention sweep finished",
			"scanned", result.Scanned, "purged", result.Purged, "failed", result.Failed)
	}
	return result, nil
}

// Run sweeps on the given interval until the context is canceled.
// Errors are logged; the loop keeps going.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("retention sweeper started", "interval", interval, "retention", s.retention)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("retention sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("retention sweep failed", "err", err)
			}
		}
	}
}
