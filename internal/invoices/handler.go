package invoices

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/invoiceflow/invoiceflow/internal/platform/httpx"
	"github.com/invoiceflow/invoiceflow/internal/shared"
)

// IdempotencyHeader carries the client-chosen key that deduplicates submissions.
const IdempotencyHeader = "Idempotency-Key"

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

type listResponse struct {
	Data       []Invoice         `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.service.Preview(req))
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	owner := shared.OwnerFromContext(r.Context())
	inv, replayed, err := h.service.Submit(r.Context(), owner, req, r.Header.Get(IdempotencyHeader))
	if err != nil {
		h.fail(w, r, "submit invoice failed", err)
		return
	}
	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	w.Header().Set("Location", "/invoices/"+inv.ID.String())
	httpx.JSON(w, status, inv)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		OwnerID: shared.OwnerFromContext(r.Context()),
		Search:  r.URL.Query().Get("search"),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, ok := ParseStatus(raw)
		if !ok {
			httpx.RespondError(w, shared.FieldErrors{"status": "must be one of: issued paid overdue cancelled"})
			return
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("client_id")); raw != "" {
		clientID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || clientID <= 0 {
			httpx.RespondError(w, shared.FieldErrors{"client_id": "must be a positive integer"})
			return
		}
		filter.ClientID = &clientID
	}

	items, page, err := h.service.List(r.Context(), filter, shared.PageFromQuery(r))
	if err != nil {
		h.fail(w, r, "list invoices failed", err)
		return
	}
	if items == nil {
		items = []Invoice{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Data: items, Pagination: page})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Get(r.Context(), shared.OwnerFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, r, "get invoice failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req StatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.ChangeStatus(r.Context(), shared.OwnerFromContext(r.Context()), id, req)
	if err != nil {
		h.fail(w, r, "change invoice status failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), shared.OwnerFromContext(r.Context()), id); err != nil {
		h.fail(w, r, "delete invoice failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	data, filename, err := h.service.RenderPDF(r.Context(), shared.OwnerFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, r, "render invoice pdf failed", err)
		return
	}
	httpx.PDF(w, filename, data)
}

func (h *Handler) EnqueuePDF(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	taskID, err := h.service.EnqueueRender(r.Context(), shared.OwnerFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, r, "enqueue invoice pdf failed", err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"task_id": taskID})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, httpx.ErrNotFound), errors.Is(err, httpx.ErrValidation), errors.Is(err, httpx.ErrConflict):
		h.logger.Debug(msg, slog.Any("error", err), slog.String("path", r.URL.Path))
	default:
		h.logger.Error(msg, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}

func parseID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid invoice id", httpx.ErrValidation)
	}
	return id, nil
}
