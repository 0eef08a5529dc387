package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/invoiceflow/invoiceflow/internal/jobs"
)

// OverdueMarker flags issued invoices due before a date.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, asOf time.Time) (int, error)
}

// OverdueSweepJob runs the daily overdue sweep.
type OverdueSweepJob struct {
	Invoices OverdueMarker
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewOverdueSweepJob wires dependencies for the sweep handler.
func NewOverdueSweepJob(invoices OverdueMarker, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueSweepJob {
	return &OverdueSweepJob{
		Invoices: invoices,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskOverdueSweep tasks.
func (j *OverdueSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Invoices == nil {
		return errors.New("overdue sweep: handler not configured")
	}
	var payload OverdueSweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("overdue sweep: decode payload: %w", asynq.SkipRetry)
		}
	}
	asOf := j.now()
	if payload.AsOf != "" {
		parsed, err := time.Parse(time.DateOnly, payload.AsOf)
		if err != nil {
			return fmt.Errorf("overdue sweep: invalid date %q: %w", payload.AsOf, asynq.SkipRetry)
		}
		asOf = parsed
	}

	tracker := j.metrics().Track(TaskOverdueSweep)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := time.Now()
	owners, err := j.Invoices.MarkOverdue(ctx, asOf)
	if err != nil {
		resultErr = err
		j.log().Error("mark overdue", slog.Any("error", err))
		return resultErr
	}
	j.metrics().AddOverdue(owners)
	j.log().Info("overdue sweep finished",
		slog.String("as_of", asOf.Format(time.DateOnly)),
		slog.Int("owners", owners),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *OverdueSweepJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *OverdueSweepJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskOverdueSweep))
	}
	return slog.Default().With(slog.String("job", TaskOverdueSweep))
}

func (j *OverdueSweepJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *OverdueSweepJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
