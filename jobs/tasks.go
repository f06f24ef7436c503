package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportWarmup recomputes the report summary so the first reader
	// after an invalidation does not pay the cold-load cost.
	TaskReportWarmup = "reports:warmup"
	// TaskIdempotencyCleanup prunes consumed idempotency tokens.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// ReportWarmer is the slice of the reports service the warmup task needs.
type ReportWarmer interface {
	Warm(ctx context.Context) error
}

// TokenPruner removes idempotency tokens older than the retention window.
type TokenPruner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// IdempotencyCleanupPayload controls how far back tokens are kept.
type IdempotencyCleanupPayload struct {
	RetainHours int `json:"retainHours"`
}

// NewReportWarmupTask constructs the warmup task.
func NewReportWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskReportWarmup, nil)
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(payload IdempotencyCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}

// HandleReportWarmup builds the handler for TaskReportWarmup.
func HandleReportWarmup(warmer ReportWarmer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		if err := warmer.Warm(ctx); err != nil {
			logger.Warn("report warmup failed", slog.Any("error", err))
			return err
		}
		return nil
	}
}

// HandleIdempotencyCleanup builds the handler for TaskIdempotencyCleanup.
func HandleIdempotencyCleanup(pruner TokenPruner, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload IdempotencyCleanupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		retain := payload.RetainHours
		if retain <= 0 {
			retain = 48
		}
		if err := pruner.Cleanup(ctx, time.Duration(retain)*time.Hour); err != nil {
			logger.Warn("idempotency cleanup failed", slog.Any("error", err))
			return err
		}
		return nil
	}
}
