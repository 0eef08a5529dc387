package analytichttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/invoiceflow/invoiceflow/internal/analytics"
	"github.com/invoiceflow/invoiceflow/internal/platform/httpx"
	"github.com/invoiceflow/invoiceflow/internal/shared"
)

const requestTimeout = 2 * time.Second

// SummaryService defines the dashboard data contract used by the handler.
type SummaryService interface {
	Summary(ctx context.Context, filter analytics.SummaryFilter) (analytics.Summary, error)
}

// Handler serves the dashboard summary.
type Handler struct {
	logger  *slog.Logger
	service SummaryService
}

// NewHandler constructs the analytics HTTP handler.
func NewHandler(logger *slog.Logger, service SummaryService) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter.OwnerID = shared.OwnerFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	summary, err := h.service.Summary(ctx, filter)
	if err != nil {
		h.logger.Error("load dashboard summary", slog.Any("error", err), slog.String("owner", filter.OwnerID))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=30")
	httpx.JSON(w, http.StatusOK, summary)
}

func parseFilter(r *http.Request) (analytics.SummaryFilter, error) {
	var filter analytics.SummaryFilter
	fields := shared.FieldErrors{}

	if raw := strings.TrimSpace(r.URL.Query().Get("months")); raw != "" {
		months, err := strconv.Atoi(raw)
		if err != nil || months <= 0 || months > analytics.MaxMonths {
			fields.Add("months", fmt.Sprintf("must be between 1 and %d", analytics.MaxMonths))
		}
		filter.Months = months
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("as_of")); raw != "" {
		asOf, err := time.Parse("2006-01-02", raw)
		if err != nil {
			fields.Add("as_of", "must be a date formatted YYYY-MM-DD")
		}
		filter.AsOf = asOf
	}
	return filter, fields.Err()
}
