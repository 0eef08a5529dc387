package invoices

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/invoiceflow/invoiceflow/internal/shared"
)

const submitBody = `{
	"to": {"name": "Acme Ltd"},
	"from": {"name": "Studio North"},
	"issue_date": "2026-01-05",
	"due_date": "2026-02-04",
	"currency": "EUR",
	"items": [{"description": "Brand identity", "quantity": "1", "rate": 200, "discount": "10", "discount_type": "percent"}],
	"discount": "5",
	"discount_type": "fixed",
	"tax": {"mode": "standard", "name": "GST", "rate": "18"}
}`

func newTestRouter(t *testing.T) (http.Handler, *fixture) {
	t.Helper()
	f := newFixture(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	r.Use(shared.RequireOwner(logger))
	NewHandler(logger, f.svc).MountRoutes(r)
	return r, f
}

func doRequest(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(shared.OwnerHeader, owner)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestSubmitHandlerReplaysIdempotentRequests(t *testing.T) {
	router, _ := newTestRouter(t)
	headers := map[string]string{IdempotencyHeader: "abc-123"}

	rr := doRequest(router, http.MethodPost, "/invoices", submitBody, headers)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created Invoice
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.Equal(t, "INV-202601-0001", created.Number)
	requireDecimal(t, "206.50", created.Total)
	require.Equal(t, "/invoices/"+created.ID.String(), rr.Header().Get("Location"))

	rr = doRequest(router, http.MethodPost, "/invoices", submitBody, headers)
	require.Equal(t, http.StatusOK, rr.Code)
	var replayed Invoice
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &replayed))
	require.Equal(t, created.ID, replayed.ID)

	rr = doRequest(router, http.MethodGet, "/invoices/"+created.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"status":"issued"`)
}

func TestSubmitHandlerReportsFieldErrors(t *testing.T) {
	router, _ := newTestRouter(t)

	body := `{"issue_date":"2026-01-05","due_date":"2026-02-04","to":{"name":"Acme"},
		"items":[{"description":"Work","quantity":"-1","rate":"10"}]}`
	rr := doRequest(router, http.MethodPost, "/invoices", body, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	var problem struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	require.Equal(t, "must be a non-negative number", problem.Errors["items[0].quantity"])

	rr = doRequest(router, http.MethodPost, "/invoices", `{"items":`, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStatusHandlerRejectsForbiddenTransitions(t *testing.T) {
	router, f := newTestRouter(t)
	rr := doRequest(router, http.MethodPost, "/invoices", submitBody, nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created Invoice
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	path := "/invoices/" + created.ID.String() + "/status"

	rr = doRequest(router, http.MethodPatch, path, `{"status":"cancelled"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"status":"cancelled"`)

	rr = doRequest(router, http.MethodPatch, path, `{"status":"paid"}`, nil)
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = doRequest(router, http.MethodPatch, "/invoices/not-a-uuid/status", `{"status":"paid"}`, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	require.Equal(t, StatusCancelled, f.repo.invoices[created.ID].Status)
}

func TestListHandlerValidatesFilters(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := doRequest(router, http.MethodPost, "/invoices", submitBody, nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doRequest(router, http.MethodGet, "/invoices?status=issued", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"total":1`)

	rr = doRequest(router, http.MethodGet, "/invoices?status=draft", "", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = doRequest(router, http.MethodGet, "/invoices?client_id=x", "", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestPDFHandlers(t *testing.T) {
	router, f := newTestRouter(t)
	rr := doRequest(router, http.MethodPost, "/invoices", submitBody, nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created Invoice
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	rr = doRequest(router, http.MethodGet, "/invoices/"+created.ID.String()+"/pdf", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	require.Contains(t, rr.Header().Get("Content-Disposition"), "invoice-INV-202601-0001.pdf")
	require.Equal(t, "%PDF-1.4 stub", rr.Body.String())

	rr = doRequest(router, http.MethodPost, "/invoices/"+created.ID.String()+"/pdf/jobs", "", nil)
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Contains(t, rr.Body.String(), `"task_id":"task-`)

	f.renderer.err = errBoom
	rr = doRequest(router, http.MethodGet, "/invoices/"+created.ID.String()+"/pdf", "", nil)
	require.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestPreviewHandler(t *testing.T) {
	router, _ := newTestRouter(t)
	body := `{"items":[{"description":"Work","quantity":"3","rate":"12.5"}],"shipping":"","currency":"USD",
		"tax":{"mode":"multiple","taxes":[{"name":"State","rate":"5"},{"name":"City","rate":""}]}}`

	rr := doRequest(router, http.MethodPost, "/invoices/preview", body, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp PreviewResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	requireDecimal(t, "37.5", resp.Totals.Subtotal)
	requireDecimal(t, "1.88", resp.Totals.TaxAmount)
	requireDecimal(t, "39.38", resp.Totals.Total)
	require.Len(t, resp.Totals.Taxes, 1)
	require.Equal(t, "$39.38", resp.Summary[len(resp.Summary)-1].Amount)
}

func TestSubmitHandlerRequiresOwner(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(submitBody))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}
