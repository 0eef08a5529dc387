package audithttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/invoiceflow/invoiceflow/internal/platform/httpx"
	"github.com/invoiceflow/invoiceflow/internal/shared"
)

const (
	feedLimit  = 30
	feedWindow = time.Minute
)

// MountRoutes registers the activity feed, rate limited per owner.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(feedLimit, feedWindow,
		httprate.WithKeyFuncs(shared.OwnerRateKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "activity feed rate limit exceeded")
		}),
	)
	r.With(limiter).Get("/audit", h.handleTimeline)
}
