package report

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/invoiceflow/invoiceflow/internal/calc"
	"github.com/invoiceflow/invoiceflow/internal/platform/httpx"
	"github.com/invoiceflow/invoiceflow/internal/render"
)

// Renderer produces PDF bytes for a document.
type Renderer interface {
	Render(ctx context.Context, doc render.Document) ([]byte, error)
}

// Handler exposes the health of the PDF backend and a sample rendering.
type Handler struct {
	client   *Client
	renderer Renderer
	logger   *slog.Logger
	now      func() time.Time
}

// NewHandler creates a report handler. client may be nil when Gotenberg is
// not configured; ping then reports the local engine as available.
func NewHandler(client *Client, renderer Renderer, logger *slog.Logger) *Handler {
	return &Handler{client: client, renderer: renderer, logger: logger, now: time.Now}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
	r.Get("/sample", h.sample)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if h.client == nil {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok", "engine": render.EngineGofpdf})
		return
	}
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "gotenberg is not reachable")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok", "engine": render.EngineGotenberg})
}

func (h *Handler) sample(w http.ResponseWriter, r *http.Request) {
	pdf, err := h.renderer.Render(r.Context(), SampleDocument(h.now()))
	if err != nil {
		h.logger.Error("render sample pdf", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "sample rendering failed")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename=sample.pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// SampleDocument is a fixed two-line invoice used to check a renderer end to end.
func SampleDocument(at time.Time) render.Document {
	items := []calc.LineItem{
		{Description: "Website redesign", Quantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(1200), Discount: decimal.NewFromInt(10), DiscountType: calc.DiscountPercent},
		{Description: "Hosting (12 months)", Quantity: decimal.NewFromInt(12), Rate: decimal.RequireFromString("14.99"), DiscountType: calc.DiscountPercent},
	}
	tax := calc.StandardTax{Name: "VAT", Rate: decimal.NewFromInt(20)}
	issue := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	return render.Document{
		Number:       "SAMPLE-0001",
		Status:       "issued",
		IssueDate:    issue,
		DueDate:      issue.AddDate(0, 0, 30),
		Currency:     "USD",
		From:         render.Party{Name: "Sample Studio", Email: "billing@sample.test", Address: "1 Sample Street"},
		To:           render.Party{Name: "Example Client", Address: "42 Example Road"},
		Items:        items,
		DiscountType: calc.DiscountPercent,
		Totals:       calc.ComputeTotals(calc.Input{Items: items, DiscountType: calc.DiscountPercent, Tax: tax}),
		Terms:        "Payment due within 30 days.",
	}
}
