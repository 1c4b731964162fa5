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


package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/docdex/docdex"
	"github.com/docdex/docdex/ai"
	"github.com/docdex/docdex/reindex"
	"github.com/docdex/docdex/server"
)

func main() {
	// Missing .env is fine; the environment may be set another way.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "docdexd",
		Usage: "Document indexing and semantic retrieval service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				EnvVars: []string{"DOCDEX_LOG_LEVEL"},
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with background retention sweeping",
				Action: serveCommand,
				Flags: append(serviceFlags(),
					&cli.StringFlag{
						Name:    "addr",
						Usage:   "Listen address",
						EnvVars: []string{"DOCDEX_ADDR"},
						Value:   ":8080",
					},
					&cli.DurationFlag{
						Name:    "sweep-interval",
						Usage:   "How often the retention sweeper runs",
						EnvVars: []string{"DOCDEX_SWEEP_INTERVAL"},
						Value:   1 * time.Hour,
					},
				),
			},
			{
				Name:   "sweep",
				Usage:  "Run one retention sweep and exit",
				Action: sweepCommand,
				Flags:  serviceFlags(),
			},
			{
				Name:   "reindex",
				Usage:  "Recompute every stored chunk embedding and exit",
				Action: reindexCommand,
				Flags: append(serviceFlags(),
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// serviceFlags are the settings shared by every command that opens the
// service.
func serviceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "storage",
			Aliases: []string{"d"},
			Usage:   "Path to the storage directory",
			EnvVars: []string{"DOCDEX_STORAGE_PATH"},
			Value:   "./docdex-data",
		},
		&cli.StringFlag{
			Name:    "collection",
			Usage:   "Vector collection name",
			EnvVars: []string{"DOCDEX_COLLECTION"},
			Value:   "documents",
		},
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			EnvVars: []string{"DOCDEX_EMBEDDING_HOST"},
			Value:   "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			EnvVars: []string{"DOCDEX_EMBEDDING_MODEL"},
			Value:   "embeddinggemma",
		},
		&cli.StringFlag{
			Name:    "embedding-api-key",
			Usage:   "Embedding service API key",
			EnvVars: []string{"DOCDEX_EMBEDDING_API_KEY"},
			Value:   "none",
		},
		&cli.IntFlag{
			Name:    "embedding-batch-size",
			Usage:   "Texts per upstream embedding request",
			EnvVars: []string{"DOCDEX_EMBEDDING_BATCH_SIZE"},
			Value:   32,
		},
		&cli.Float64Flag{
			Name:    "embedding-rps",
			Usage:   "Upstream embedding requests per second (0 disables throttling)",
			EnvVars: []string{"DOCDEX_EMBEDDING_RPS"},
		},
		&cli.IntFlag{
			Name:    "chunk-size",
			Usage:   "Chunk size in runes",
			EnvVars: []string{"DOCDEX_CHUNK_SIZE"},
			Value:   1000,
		},
		&cli.IntFlag{
			Name:    "chunk-overlap",
			Usage:   "Chunk overlap in runes",
			EnvVars: []string{"DOCDEX_CHUNK_OVERLAP"},
			Value:   200,
		},
		&cli.IntFlag{
			Name:    "retention-days",
			Usage:   "Days to keep documents before they are purged",
			EnvVars: []string{"DOCDEX_RETENTION_DAYS"},
			Value:   30,
		},
		&cli.IntFlag{
			Name:    "cleanup-batch-size",
			Usage:   "Documents per retention sweep round",
			EnvVars: []string{"DOCDEX_CLEANUP_BATCH_SIZE"},
			Value:   100,
		},
	}
}

// serviceConfig builds the service configuration from CLI flags.
func serviceConfig(c *cli.Context) *docdex.Config {
	return &docdex.Config{
		StoragePath:  c.String("storage"),
		Collection:   c.String("collection"),
		ChunkSize:    c.Int("chunk-size"),
		ChunkOverlap: c.Int("chunk-overlap"),
		AI: ai.NewConfig(
			ai.WithHost(c.String("embedding-host")),
			ai.WithModel(c.String("embedding-model")),
			ai.WithAPIKey(c.String("embedding-api-key")),
			ai.WithBatchSize(c.Int("embedding-batch-size")),
			ai.WithRequestsPerSecond(c.Float64("embedding-rps")),
		),
		Retention:      time.Duration(c.Int("retention-days")) * 24 * time.Hour,
		SweepBatchSize: c.Int("cleanup-batch-size"),
	}
}

func serveCommand(c *cli.Context) error {
	svc, err := docdex.NewService(serviceConfig(c))
	if err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Close()

	pipeline, err := svc.NewIngestionPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	engine, err := svc.NewQueryEngine()
	if err != nil {
		return err
	}

	purger, err := svc.NewPurger()
	if err != nil {
		return err
	}

	sweeper, err := svc.NewSweeper()
	if err != nil {
		return err
	}

	srv, err := server.NewServer(pipeline, engine, purger, svc.NewHealthAggregator())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweeper.Run(ctx, c.Duration("sweep-interval"))

	httpServer := &http.Server{
		Addr:              c.String("addr"),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("docdex listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func sweepCommand(c *cli.Context) error {
	svc, err := docdex.NewService(serviceConfig(c))
	if err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Close()

	sweeper, err := svc.NewSweeper()
	if err != nil {
		return err
	}

	result, err := sweeper.Sweep(context.Background())
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Sweep complete: scanned %d, purged %d, failed %d\n",
		result.Scanned, result.Purged, result.Failed)
	return nil
}

func reindexCommand(c *cli.Context) error {
	svc, err := docdex.NewService(serviceConfig(c))
	if err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Close()

	config := &reindex.Config{
		BatchSize:      c.Int("cleanup-batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	reindexer := svc.NewReindexer(config, os.Stderr)
	if err := reindexer.Run(context.Background()); err != nil {
		return fmt.Errorf("reindexing failed: %w", err)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
