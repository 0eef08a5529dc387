package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/invoiceflow/invoiceflow/internal/jobs"
	"github.com/invoiceflow/invoiceflow/internal/platform/httpx"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeRenderer struct {
	data []byte
	name string
	err  error
	got  []string
}

func (f *fakeRenderer) RenderPDF(_ context.Context, ownerID string, id uuid.UUID) ([]byte, string, error) {
	f.got = append(f.got, ownerID+"/"+id.String())
	return f.data, f.name, f.err
}

func TestRenderPDFJobStoresFilePerOwner(t *testing.T) {
	dir := t.TempDir()
	renderer := &fakeRenderer{data: []byte("%PDF-1.4 body"), name: "invoice-INV-202601-0001.pdf"}
	job := NewRenderPDFJob(renderer, dir, discard, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	id := uuid.New()
	task, err := NewRenderPDFTask("acct/42", id)
	require.NoError(t, err)
	require.Equal(t, TaskRenderPDF, task.Type())

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, []string{"acct/42/" + id.String()}, renderer.got)

	data, err := os.ReadFile(filepath.Join(dir, "acct_42", "invoice-INV-202601-0001.pdf"))
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 body", string(data))

	entries, err := os.ReadDir(filepath.Join(dir, "acct_42"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRenderPDFJobSkipsRetryForMissingInvoice(t *testing.T) {
	renderer := &fakeRenderer{err: httpx.ErrNotFound}
	job := NewRenderPDFJob(renderer, t.TempDir(), discard, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewRenderPDFTask("owner-1", uuid.New())
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)

	renderer.err = errors.New("gotenberg down")
	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	require.NotErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(TaskRenderPDF, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestNewRenderPDFTaskRequiresIdentifiers(t *testing.T) {
	_, err := NewRenderPDFTask("", uuid.New())
	require.Error(t, err)
	_, err = NewRenderPDFTask("owner-1", uuid.Nil)
	require.Error(t, err)
}

type fakeMarker struct {
	asOf   time.Time
	owners int
	err    error
}

func (f *fakeMarker) MarkOverdue(_ context.Context, asOf time.Time) (int, error) {
	f.asOf = asOf
	return f.owners, f.err
}

func TestOverdueSweepUsesPayloadDateOrClock(t *testing.T) {
	marker := &fakeMarker{owners: 2}
	job := NewOverdueSweepJob(marker, discard, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.WithClock(func() time.Time { return time.Date(2026, 5, 2, 2, 0, 0, 0, time.UTC) })

	task, err := NewOverdueSweepTask("")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, time.Date(2026, 5, 2, 2, 0, 0, 0, time.UTC), marker.asOf)

	task, err = NewOverdueSweepTask("2026-04-30")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC), marker.asOf)

	_, err = NewOverdueSweepTask("30/04/2026")
	require.Error(t, err)

	require.ErrorIs(t, job.Handle(context.Background(), asynq.NewTask(TaskOverdueSweep, []byte(`{"as_of":"soon"}`))), asynq.SkipRetry)

	marker.err = errors.New("db down")
	require.Error(t, job.Handle(context.Background(), asynq.NewTask(TaskOverdueSweep, nil)))
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestHealthReportsQueueState(t *testing.T) {
	serve := func(inspector QueueInspector) *httptest.ResponseRecorder {
		r := chi.NewRouter()
		r.Route("/jobs", NewHandler(inspector, discard).MountRoutes)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
		return rr
	}

	rr := serve(nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"queue":"default","pending":0,"active":0,"retry":0,"archived":0,"paused":false,"processed_today":0,"failed_today":0}`, rr.Body.String())

	rr = serve(stubInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 4, Retry: 1}})
	require.Equal(t, http.StatusOK, rr.Code)
	var health queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	require.Equal(t, 4, health.Pending)
	require.Equal(t, 1, health.Retry)

	rr = serve(stubInspector{err: errors.New("redis down")})
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

type fakeKeyStore struct {
	olderThan time.Duration
	err       error
}

func (f *fakeKeyStore) Cleanup(_ context.Context, olderThan time.Duration) error {
	f.olderThan = olderThan
	return f.err
}

func TestKeysCleanupUsesRetention(t *testing.T) {
	store := &fakeKeyStore{}
	job := &KeysCleanupJob{Store: store, Logger: discard, Metrics: jobmetrics.NewMetrics(prometheus.NewRegistry())}

	require.NoError(t, job.Handle(context.Background(), NewKeysCleanupTask()))
	require.Equal(t, KeyRetention, store.olderThan)

	store.err = errors.New("db down")
	require.Error(t, job.Handle(context.Background(), NewKeysCleanupTask()))
}
