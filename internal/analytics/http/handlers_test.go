package analytichttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/invoiceflow/invoiceflow/internal/analytics"
	"github.com/invoiceflow/invoiceflow/internal/shared"
)

type stubService struct {
	filter analytics.SummaryFilter
	err    error
}

func (s *stubService) Summary(_ context.Context, filter analytics.SummaryFilter) (analytics.Summary, error) {
	s.filter = filter
	if s.err != nil {
		return analytics.Summary{}, s.err
	}
	return analytics.Summary{
		AsOf:   "2026-03-31",
		Months: 3,
		Currencies: []analytics.CurrencySummary{{
			Currency:    "EUR",
			Invoices:    2,
			Outstanding: decimal.RequireFromString("206.50"),
		}},
	}, nil
}

func newRouter(svc SummaryService) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	r.Use(shared.RequireOwner(logger))
	NewHandler(logger, svc).MountRoutes(r)
	return r
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set(shared.OwnerHeader, "owner-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestSummaryPassesFilter(t *testing.T) {
	svc := &stubService{}
	rr := get(newRouter(svc), "/dashboard/summary?months=3&as_of=2026-03-31")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "owner-1", svc.filter.OwnerID)
	require.Equal(t, 3, svc.filter.Months)
	require.Equal(t, "2026-03-31", svc.filter.AsOf.Format("2006-01-02"))

	var body analytics.Summary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.True(t, body.Currencies[0].Outstanding.Equal(decimal.RequireFromString("206.5")))
}

func TestSummaryRejectsInvalidFilter(t *testing.T) {
	rr := get(newRouter(&stubService{}), "/dashboard/summary?months=99&as_of=march")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Contains(t, rr.Body.String(), `"months"`)
	require.Contains(t, rr.Body.String(), `"as_of"`)
}

func TestSummaryServiceFailure(t *testing.T) {
	rr := get(newRouter(&stubService{err: errors.New("db down")}), "/dashboard/summary")
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}
