package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAuditIncomplete is returned for records missing a required field.
var ErrAuditIncomplete = errors.New("audit record incomplete")

// AuditLog is one row of audit_logs. The activity feed reads it back per owner.
type AuditLog struct {
	OwnerID  string
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// Validate checks that the record can be attributed and found again.
func (l AuditLog) Validate() error {
	for name, v := range map[string]string{"owner_id": l.OwnerID, "action": l.Action, "entity": l.Entity, "entity_id": l.EntityID} {
		if v == "" {
			return fmt.Errorf("%w: %s is empty", ErrAuditIncomplete, name)
		}
	}
	return nil
}

// AuditLogger appends records to audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns an AuditLogger on pool.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record inserts log. A zero At means the database clock.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.pool == nil {
		return errors.New("audit logger not initialised")
	}
	if err := log.Validate(); err != nil {
		return err
	}
	var meta []byte
	if len(log.Meta) > 0 {
		raw, err := json.Marshal(log.Meta)
		if err != nil {
			return fmt.Errorf("audit: encode meta: %w", err)
		}
		meta = raw
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	_, err := l.pool.Exec(ctx, `INSERT INTO audit_logs (owner_id, action, entity, entity_id, meta, occurred_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`,
		log.OwnerID, log.Action, log.Entity, log.EntityID, meta, at)
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}
