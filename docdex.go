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


// Package docdex wires the document index together: badger-backed stores,
// an OpenAI-compatible embedding provider, and the ingestion, search,
// retention, and health components on top of them.
package docdex

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/docdex/docdex/ai"
	"github.com/docdex/docdex/ai/openai"
	"github.com/docdex/docdex/core"
	"github.com/docdex/docdex/health"
	"github.com/docdex/docdex/ingestion"
	"github.com/docdex/docdex/reindex"
	"github.com/docdex/docdex/retention"
	"github.com/docdex/docdex/search"
	"github.com/docdex/docdex/storage"
	"github.com/docdex/docdex/storage/badger"
)

// Config holds the service configuration. Every field is validated at
// startup; an invalid value is fatal.
type Config struct {
	// StoragePath is the badger database directory. Ignored when InMemory is set.
	StoragePath string

	// InMemory runs storage without a disk directory. Test use only.
	InMemory bool

	// Collection names the vector collection.
	Collection string

	// ChunkSize and ChunkOverlap configure the splitter, in runes.
	ChunkSize    int
	ChunkOverlap int

	// AI configures the embedding service.
	AI *ai.Config

	// Retention is how long documents are kept.
	Retention time.Duration

	// SweepBatchSize bounds each retention round.
	SweepBatchSize int
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		StoragePath:    "./docdex-data",
		Collection:     "documents",
		ChunkSize:      1000,
		ChunkOverlap:   200,
		AI:             ai.DefaultConfig(),
		Retention:      30 * 24 * time.Hour,
		SweepBatchSize: 100,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.InMemory && c.StoragePath == "" {
		return fmt.Errorf("%w: storage path is required", core.ErrConfiguration)
	}
	if c.Collection == "" {
		return fmt.Errorf("%w: collection name is required", core.ErrConfiguration)
	}
	if err := core.ValidateChunking(c.ChunkSize, c.ChunkOverlap); err != nil {
		return err
	}
	if c.AI == nil {
		return fmt.Errorf("%w: embedding configuration is required", core.ErrConfiguration)
	}
	if err := c.AI.Validate(); err != nil {
		return err
	}
	if c.Retention <= 0 {
		return fmt.Errorf("%w: retention must be positive, got %s", core.ErrConfiguration, c.Retention)
	}
	if c.SweepBatchSize < 1 {
		return fmt.Errorf("%w: sweep batch size must be >= 1, got %d", core.ErrConfiguration, c.SweepBatchSize)
	}
	return nil
}

// Service owns the stores and the embedding provider and builds the
// components that run on top of them.
type Service struct {
	config   *Config
	backend  *badger.Backend
	docs     storage.DocumentStore
	vectors  storage.VectorIndex
	provider ai.Provider
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	provider ai.Provider
}

// WithProvider overrides the embedding provider. The default builds an
// OpenAI-compatible provider from the config; tests inject a mock here.
func WithProvider(provider ai.Provider) ServiceOption {
	return func(o *serviceOptions) {
		o.provider = provider
	}
}

// NewService validates the config, opens storage, and connects the
// embedding provider.
func NewService(config *Config, opts ...ServiceOption) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	options := &serviceOptions{}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(config.StoragePath, config.InMemory)
	if err != nil {
		return nil, err
	}

	docs, err := badger.NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	vectors, err := badger.NewVectorRepository(backend, config.Collection)
	if err != nil {
		docs.Close()
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(config.AI)
		if err != nil {
			vectors.Close()
			docs.Close()
			backend.Close()
			return nil, err
		}
	}

	return &Service{
		config:   config,
		backend:  backend,
		docs:     docs,
		vectors:  vectors,
		provider: provider,
		logger:   slog.Default(),
	}, nil
}

// Close shuts the service down: provider first, then the stores, then the
// backend. Every step runs even when an earlier one fails; the joined
// errors are returned.
func (s *Service) Close() error {
	var errs []error
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	if err := s.vectors.Close(); err != nil {
		s.logger.Error("error closing vector index", "err", err)
		errs = append(errs, err)
	}
	if err := s.docs.Close(); err != nil {
		s.logger.Error("error closing document store", "err", err)
		errs = append(errs, err)
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// DocumentStore returns the document store.
func (s *Service) DocumentStore() storage.DocumentStore {
	return s.docs
}

// VectorIndex returns the vector index.
func (s *Service) VectorIndex() storage.VectorIndex {
	return s.vectors
}

// NewIngestionPipeline builds the ingestion pipeline with the configured
// chunking settings.
func (s *Service) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	chunker, err := ingestion.NewChunker(s.config.ChunkSize, s.config.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	return ingestion.NewPipeline(s.docs, s.vectors, s.provider, chunker, opts...)
}

// NewQueryEngine builds the query engine.
func (s *Service) NewQueryEngine(opts ...search.Option) (*search.Engine, error) {
	return search.NewEngine(s.vectors, s.provider, opts...)
}

// NewPurger builds the document purger.
func (s *Service) NewPurger(opts ...retention.PurgerOption) (*retention.Purger, error) {
	return retention.NewPurger(s.docs, s.vectors, opts...)
}

// NewSweeper builds the retention sweeper with the configured window.
func (s *Service) NewSweeper(opts ...retention.SweeperOption) (*retention.Sweeper, error) {
	purger, err := s.NewPurger()
	if err != nil {
		return nil, err
	}
	return retention.NewSweeper(s.docs, purger, s.config.Retention, s.config.SweepBatchSize, opts...)
}

// NewHealthAggregator builds the health aggregator over the service's
// dependencies.
func (s *Service) NewHealthAggregator() *health.Aggregator {
	return health.NewAggregator(s.docs, s.vectors, s.provider.Embedder())
}

// NewReindexer builds a reindexer writing progress to the given writer.
func (s *Service) NewReindexer(config *reindex.Config, progress io.Writer) *reindex.Reindexer {
	return reindex.NewReindexer(s.docs, s.vectors, s.provider.Embedder(), config, progress)
}
