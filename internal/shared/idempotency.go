package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/invoiceflow/invoiceflow/internal/platform/db"
)

// IdempotencyStore persists processed keys per owner and module, together
// with the identifier of the resource the first request produced.
type IdempotencyStore struct {
	pool *pgxpool.Pool
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(pool *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{pool: pool}
}

// ErrIdempotencyConflict indicates a duplicate key.
var ErrIdempotencyConflict = errors.New("idempotent request already processed")

// CheckAndInsert reserves key for owner within module.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, owner, key, module string) error {
	if s == nil {
		return errors.New("idempotency store not initialised")
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	if module == "" {
		return errors.New("idempotency module required")
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO idempotency_keys (owner_id, key, module, created_at) VALUES ($1, $2, $3, $4)`, owner, key, module, time.Now())
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrIdempotencyConflict
		}
		return err
	}
	return nil
}

// Attach stores the resource produced for a reserved key.
func (s *IdempotencyStore) Attach(ctx context.Context, owner, key, module, resourceID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE idempotency_keys SET resource_id = $4 WHERE owner_id = $1 AND key = $2 AND module = $3`, owner, key, module, resourceID)
	return err
}

// Lookup returns the resource attached to key. An empty id means the first
// request is still in flight or failed before attaching.
func (s *IdempotencyStore) Lookup(ctx context.Context, owner, key, module string) (string, error) {
	var id *string
	err := s.pool.QueryRow(ctx, `SELECT resource_id FROM idempotency_keys WHERE owner_id = $1 AND key = $2 AND module = $3`, owner, key, module).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup idempotency key: %w", err)
	}
	if id == nil {
		return "", nil
	}
	return *id, nil
}

// Cleanup removes entries older than retention.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if s == nil {
		return nil
	}
	cutoff := time.Now().Add(-olderThan)
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	return err
}

// Delete removes a key, typically used to roll back failed processing.
func (s *IdempotencyStore) Delete(ctx context.Context, owner, key, module string) error {
	if s == nil {
		return nil
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE owner_id = $1 AND key = $2 AND module = $3`, owner, key, module)
	return err
}
