package shared

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/httprate"

	"github.com/invoiceflow/invoiceflow/internal/platform/httpx"
)

// OwnerHeader carries the opaque owner identifier set by the upstream gateway.
const OwnerHeader = "X-Owner-ID"

type ownerContextKey struct{}

// ContextWithOwner stores the owner identifier in context.
func ContextWithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerContextKey{}, owner)
}

// OwnerFromContext extracts the owner identifier from context.
func OwnerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ownerContextKey{}).(string)
	return owner
}

// RequireOwner rejects requests without an owner header and stores the owner
// in the request context.
func RequireOwner(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner := strings.TrimSpace(r.Header.Get(OwnerHeader))
			if owner == "" || len(owner) > 128 {
				if logger != nil {
					logger.Warn("request without owner", slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, ErrOwnerMissing)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithOwner(r.Context(), owner)))
		})
	}
}

// OwnerRateKey keys httprate limits by owner, falling back to the client IP
// outside the owner middleware.
func OwnerRateKey(r *http.Request) (string, error) {
	if owner := OwnerFromContext(r.Context()); owner != "" {
		return "owner:" + owner, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
