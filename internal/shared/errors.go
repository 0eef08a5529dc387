package shared

import (
	"fmt"
	"sort"
	"strings"

	"github.com/invoiceflow/invoiceflow/internal/platform/httpx"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = fmt.Errorf("not found: %w", httpx.ErrNotFound)
	// ErrOwnerMissing occurs when a request carries no owner identifier.
	ErrOwnerMissing = fmt.Errorf("owner identifier missing: %w", httpx.ErrUnauthorized)
)

// FieldErrors maps request fields to user-facing messages.
type FieldErrors map[string]string

// Add records msg for field unless the field already has a message.
func (f FieldErrors) Add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

// Err returns f as an error, or nil when empty.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return f
}

func (f FieldErrors) Error() string {
	fields := make([]string, 0, len(f))
	for k := range f {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return "invalid fields: " + strings.Join(fields, ", ")
}

// FieldMessages exposes the messages to httpx.RespondError.
func (f FieldErrors) FieldMessages() map[string]string {
	return f
}

// Unwrap lets errors.Is(err, httpx.ErrValidation) match.
func (f FieldErrors) Unwrap() error {
	return httpx.ErrValidation
}
