package analytichttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/invoiceflow/invoiceflow/internal/platform/httpx"
	"github.com/invoiceflow/invoiceflow/internal/shared"
)

const (
	summaryLimit  = 60
	summaryWindow = time.Minute
)

// MountRoutes registers the dashboard summary, rate limited per owner.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(summaryLimit, summaryWindow,
		httprate.WithKeyFuncs(shared.OwnerRateKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "dashboard rate limit exceeded")
		}),
	)
	r.With(limiter).Get("/dashboard/summary", h.handleSummary)
}
