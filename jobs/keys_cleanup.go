package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/invoiceflow/invoiceflow/internal/jobs"
)

// TaskKeysCleanup drops idempotency keys past their retention.
const TaskKeysCleanup = "idempotency:cleanup"

// KeyRetention is how long a submission key can be replayed.
const KeyRetention = 72 * time.Hour

// KeyStore prunes stored idempotency keys.
type KeyStore interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// KeysCleanupJob prunes idempotency keys.
type KeysCleanupJob struct {
	Store   KeyStore
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewKeysCleanupTask builds the cleanup task.
func NewKeysCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskKeysCleanup, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(1))
}

// Handle processes TaskKeysCleanup tasks.
func (j *KeysCleanupJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("keys cleanup: handler not configured")
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	err := metrics.Track(TaskKeysCleanup).End(j.Store.Cleanup(ctx, KeyRetention))
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err != nil {
		logger.Error("prune idempotency keys", slog.String("job", TaskKeysCleanup), slog.Any("error", err))
		return err
	}
	logger.Info("pruned idempotency keys", slog.String("job", TaskKeysCleanup), slog.Duration("retention", KeyRetention))
	return nil
}
