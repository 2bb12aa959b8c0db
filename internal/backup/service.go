package backup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/search-provisioner/internal/engine"
	"github.com/utafrali/search-provisioner/internal/event"
	"github.com/utafrali/search-provisioner/internal/task"
)

// DumpTrigger is the slice of the engine client the backup service needs.
type DumpTrigger interface {
	CreateDump(ctx context.Context) (*engine.TaskRef, error)
}

// TaskWaiter drives an enqueued engine task to completion.
type TaskWaiter interface {
	Wait(ctx context.Context, h task.Handle) (*task.Result, error)
}

// Report summarizes a completed dump.
type Report struct {
	TaskUID  int64
	Duration time.Duration
}

// Service triggers engine dumps and waits for them to finish. The dump file
// lands in the engine's dump directory; restoring is done engine-side at
// startup from that file.
type Service struct {
	trigger  DumpTrigger
	waiter   TaskWaiter
	producer *event.Producer
	logger   *slog.Logger
}

// NewService creates a backup service.
func NewService(trigger DumpTrigger, waiter TaskWaiter, producer *event.Producer, logger *slog.Logger) *Service {
	return &Service{
		trigger:  trigger,
		waiter:   waiter,
		producer: producer,
		logger:   logger,
	}
}

// CreateDump triggers a dump and waits for the engine to write it. A failed
// dump task publishes a dump_failed event and returns an error.
func (s *Service) CreateDump(ctx context.Context) (*Report, error) {
	start := time.Now()

	ref, err := s.trigger.CreateDump(ctx)
	if err != nil {
		return nil, fmt.Errorf("trigger dump: %w", err)
	}

	s.logger.InfoContext(ctx, "dump enqueued", slog.Int64("task_uid", ref.TaskUID))

	result, err := s.waiter.Wait(ctx, ref.Handle())
	if err != nil {
		return nil, fmt.Errorf("wait for dump task %s: %w", ref.Handle(), err)
	}

	if !result.OK {
		data := event.DumpFailedData{TaskUID: ref.TaskUID}
		if result.Cause != nil {
			data.Message = result.Cause.Message
			data.Code = result.Cause.Code
		}
		if err := s.producer.PublishDumpFailed(ctx, data); err != nil {
			s.logger.WarnContext(ctx, "failed to publish dump_failed event", slog.Any("error", err))
		}

		if result.Cause != nil {
			return nil, fmt.Errorf("dump task %s failed: %s (%s)", ref.Handle(), result.Cause.Message, result.Cause.Code)
		}
		return nil, fmt.Errorf("dump task %s failed", ref.Handle())
	}

	report := &Report{
		TaskUID:  ref.TaskUID,
		Duration: time.Since(start),
	}

	s.logger.InfoContext(ctx, "dump completed",
		slog.Int64("task_uid", report.TaskUID),
		slog.Duration("duration", report.Duration),
	)

	if err := s.producer.PublishDumpCompleted(ctx, event.DumpCompletedData{
		TaskUID:  report.TaskUID,
		Duration: report.Duration,
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to publish dump_completed event", slog.Any("error", err))
	}

	return report, nil
}
