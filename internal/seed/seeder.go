package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/utafrali/search-provisioner/internal/domain"
	"github.com/utafrali/search-provisioner/internal/engine"
	"github.com/utafrali/search-provisioner/internal/event"
	"github.com/utafrali/search-provisioner/internal/repository"
	"github.com/utafrali/search-provisioner/internal/task"
)

// DocumentWriter is the slice of the engine client the seeder needs.
type DocumentWriter interface {
	AddDocuments(ctx context.Context, uid string, docs any) (*engine.TaskRef, error)
}

// TaskWaiter drives an enqueued engine task to completion.
type TaskWaiter interface {
	Wait(ctx context.Context, h task.Handle) (*task.Result, error)
}

// Config holds the tunables for a seeding run.
type Config struct {
	// BatchSize is the number of documents uploaded per engine task.
	BatchSize int

	// BatchesPerSecond caps the rate of document uploads so a large catalog
	// does not saturate the engine's task queue.
	BatchesPerSecond float64
}

// DefaultConfig returns the seeding defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:        500,
		BatchesPerSecond: 2,
	}
}

// Report summarizes a completed seeding run.
type Report struct {
	Documents int
	Batches   int
	Duration  time.Duration
}

// Seeder loads the published product catalog into the search index.
type Seeder struct {
	repo     repository.ProductRepository
	writer   DocumentWriter
	waiter   TaskWaiter
	producer *event.Producer
	limiter  *rate.Limiter
	cfg      Config
	logger   *slog.Logger
}

// NewSeeder creates a seeder. Zero config fields fall back to defaults.
func NewSeeder(
	repo repository.ProductRepository,
	writer DocumentWriter,
	waiter TaskWaiter,
	producer *event.Producer,
	cfg Config,
	logger *slog.Logger,
) *Seeder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.BatchesPerSecond <= 0 {
		cfg.BatchesPerSecond = DefaultConfig().BatchesPerSecond
	}

	return &Seeder{
		repo:     repo,
		writer:   writer,
		waiter:   waiter,
		producer: producer,
		limiter:  rate.NewLimiter(rate.Limit(cfg.BatchesPerSecond), 1),
		cfg:      cfg,
		logger:   logger,
	}
}

// Run pages through the published catalog and indexes it batch by batch,
// waiting for each engine task to finish before moving on. A failed batch
// aborts the run; already indexed batches stay indexed, and rerunning is
// safe because document upserts are keyed by product ID.
func (s *Seeder) Run(ctx context.Context, indexUID string) (*Report, error) {
	start := time.Now()

	total, err := s.repo.CountPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("count catalog: %w", err)
	}

	s.logger.InfoContext(ctx, "seeding catalog",
		slog.String("index_uid", indexUID),
		slog.Int("products", total),
		slog.Int("batch_size", s.cfg.BatchSize),
	)

	report := &Report{}
	afterID := ""

	for {
		page, err := s.repo.ListPublished(ctx, afterID, s.cfg.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("list catalog page after %q: %w", afterID, err)
		}
		if len(page.Products) == 0 {
			break
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		docs := make([]domain.Document, 0, len(page.Products))
		for i := range page.Products {
			docs = append(docs, page.Products[i].Document())
		}

		ref, err := s.writer.AddDocuments(ctx, indexUID, docs)
		if err != nil {
			return nil, fmt.Errorf("upload batch %d: %w", report.Batches+1, err)
		}

		result, err := s.waiter.Wait(ctx, ref.Handle())
		if err != nil {
			return nil, fmt.Errorf("index batch %d: %w", report.Batches+1, err)
		}
		if !result.OK {
			return nil, fmt.Errorf("index batch %d: task %s failed: %s",
				report.Batches+1, ref.Handle(), result.Cause.Message)
		}

		report.Batches++
		report.Documents += len(docs)
		afterID = page.LastID

		s.logger.DebugContext(ctx, "batch indexed",
			slog.Int("batch", report.Batches),
			slog.Int("documents", report.Documents),
			slog.String("task_handle", string(ref.Handle())),
		)
	}

	report.Duration = time.Since(start)

	s.logger.InfoContext(ctx, "catalog seeded",
		slog.String("index_uid", indexUID),
		slog.Int("documents", report.Documents),
		slog.Int("batches", report.Batches),
		slog.Duration("duration", report.Duration),
	)

	if err := s.producer.PublishCatalogSeeded(ctx, event.CatalogSeededData{
		IndexUID:  indexUID,
		Documents: report.Documents,
		Batches:   report.Batches,
		Duration:  report.Duration,
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to publish catalog_seeded event", slog.Any("error", err))
	}

	return report, nil
}
