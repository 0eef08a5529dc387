package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/invoiceflow/invoiceflow/internal/jobs"
	"github.com/invoiceflow/invoiceflow/internal/platform/httpx"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// InvoiceRenderer renders a stored invoice and names the file.
type InvoiceRenderer interface {
	RenderPDF(ctx context.Context, ownerID string, id uuid.UUID) ([]byte, string, error)
}

// RenderPDFJob renders invoices in the background and writes them under Dir.
type RenderPDFJob struct {
	Invoices InvoiceRenderer
	Dir      string
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewRenderPDFJob wires dependencies for the render handler.
func NewRenderPDFJob(invoices InvoiceRenderer, dir string, logger *slog.Logger, metrics *jobmetrics.Metrics) *RenderPDFJob {
	return &RenderPDFJob{Invoices: invoices, Dir: dir, Logger: logger, Metrics: metrics}
}

// Handle processes TaskRenderPDF tasks. Missing invoices are not retried.
func (j *RenderPDFJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Invoices == nil || j.Dir == "" {
		return errors.New("render pdf: handler not configured")
	}
	var payload RenderPDFPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("render pdf: decode payload: %w", asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskRenderPDF)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.log().With(slog.String("owner", payload.OwnerID), slog.String("invoice_id", payload.InvoiceID.String()))
	data, name, err := j.Invoices.RenderPDF(ctx, payload.OwnerID, payload.InvoiceID)
	if errors.Is(err, httpx.ErrNotFound) {
		logger.Warn("invoice vanished before rendering")
		resultErr = fmt.Errorf("render pdf: %w: %w", err, asynq.SkipRetry)
		return resultErr
	}
	if err != nil {
		logger.Error("render invoice", slog.Any("error", err))
		resultErr = err
		return resultErr
	}

	path, err := j.store(payload.OwnerID, name, data)
	if err != nil {
		logger.Error("store invoice pdf", slog.Any("error", err))
		resultErr = err
		return resultErr
	}
	j.metrics().ObservePDF(len(data))
	logger.Info("stored invoice pdf", slog.String("path", path), slog.Int("bytes", len(data)))
	return resultErr
}

// store writes the file atomically into a per-owner directory.
func (j *RenderPDFJob) store(ownerID, name string, data []byte) (string, error) {
	dir := filepath.Join(j.Dir, safeSegment(ownerID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create storage dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".render-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write pdf: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close pdf: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(name))
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("move pdf into place: %w", err)
	}
	return path, nil
}

func safeSegment(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
	if cleaned == "" {
		return "_"
	}
	return cleaned
}

func (j *RenderPDFJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *RenderPDFJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskRenderPDF))
	}
	return slog.Default().With(slog.String("job", TaskRenderPDF))
}
