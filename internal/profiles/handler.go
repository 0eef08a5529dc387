package profiles

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/invoiceflow/invoiceflow/internal/platform/httpx"
	"github.com/invoiceflow/invoiceflow/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context(), shared.OwnerFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, "list profiles failed", err)
		return
	}
	if items == nil {
		items = []Profile{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": items})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	profile, err := h.service.Get(r.Context(), shared.OwnerFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, r, "get profile failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

// ShowDefault returns the profile new invoices are issued from.
func (h *Handler) ShowDefault(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Default(r.Context(), shared.OwnerFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, "get default profile failed", err)
		return
	}
	if profile == nil {
		httpx.RespondError(w, ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	profile, err := h.service.Create(r.Context(), shared.OwnerFromContext(r.Context()), req)
	if err != nil {
		h.fail(w, r, "create profile failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, profile)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	profile, err := h.service.Update(r.Context(), shared.OwnerFromContext(r.Context()), id, req)
	if err != nil {
		h.fail(w, r, "update profile failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), shared.OwnerFromContext(r.Context()), id); err != nil {
		h.fail(w, r, "delete profile failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if !errors.Is(err, httpx.ErrNotFound) && !errors.Is(err, httpx.ErrValidation) {
		h.logger.Error(msg, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid profile id", httpx.ErrValidation)
	}
	return id, nil
}
