package audithttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/invoiceflow/invoiceflow/internal/audit"
	"github.com/invoiceflow/invoiceflow/internal/platform/httpx"
	"github.com/invoiceflow/invoiceflow/internal/shared"
)

const (
	defaultDateRange = 30 * 24 * time.Hour
	maxDateRangeDays = 366
)

// TimelineService is the read side of the activity feed.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
}

// Handler serves the activity feed.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
	now     func() time.Time
}

// NewHandler builds the audit handler.
func NewHandler(logger *slog.Logger, service TimelineService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, now: time.Now}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.fail(w, "load audit timeline", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) parseFilters(r *http.Request) (audit.TimelineFilters, error) {
	q := r.URL.Query()
	errs := shared.FieldErrors{}
	now := h.now().UTC()

	toTime := now.Truncate(24 * time.Hour)
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		parsed, err := time.Parse(time.DateOnly, v)
		if err != nil {
			errs.Add("to", "must be a date in YYYY-MM-DD format")
		}
		toTime = parsed
	}
	fromTime := toTime.Add(-defaultDateRange)
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		parsed, err := time.Parse(time.DateOnly, v)
		if err != nil {
			errs.Add("from", "must be a date in YYYY-MM-DD format")
		}
		fromTime = parsed
	}
	if len(errs) == 0 {
		if fromTime.After(toTime) {
			errs.Add("from", "must not be after to")
		} else if toTime.Sub(fromTime) > maxDateRangeDays*24*time.Hour {
			errs.Add("from", "range must not exceed 366 days")
		}
	}

	page := positiveInt(q.Get("page"), 1, "page", errs)
	pageSize := positiveInt(q.Get("page_size"), 0, "page_size", errs)
	if err := errs.Err(); err != nil {
		return audit.TimelineFilters{}, err
	}
	return audit.TimelineFilters{
		OwnerID:  shared.OwnerFromContext(r.Context()),
		From:     fromTime,
		To:       toTime,
		Entity:   strings.TrimSpace(q.Get("entity")),
		EntityID: strings.TrimSpace(q.Get("entity_id")),
		Action:   strings.TrimSpace(q.Get("action")),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func positiveInt(raw string, fallback int, field string, errs shared.FieldErrors) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		errs.Add(field, "must be a positive integer")
		return fallback
	}
	return n
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if !errors.Is(err, httpx.ErrValidation) {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
