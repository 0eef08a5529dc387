package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads audit_logs.
type Repository interface {
	Window(ctx context.Context, filters TimelineFilters, offset, limit int) ([]TimelineRow, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const timelineQuery = `SELECT occurred_at, action, entity, entity_id, meta
FROM audit_logs
WHERE owner_id = $1
  AND ($2::timestamptz IS NULL OR occurred_at >= $2)
  AND ($3::timestamptz IS NULL OR occurred_at < $3)
  AND ($4::text IS NULL OR entity = $4)
  AND ($5::text IS NULL OR entity_id = $5)
  AND ($6::text IS NULL OR action = $6)
ORDER BY occurred_at DESC, id DESC`

func timelineArgs(f TimelineFilters) []any {
	to := pgtype.Timestamptz{}
	if !f.To.IsZero() {
		// To is inclusive of the whole day.
		to = pgtype.Timestamptz{Time: f.To.AddDate(0, 0, 1), Valid: true}
	}
	return []any{f.OwnerID, toPgTime(f.From), to, optionalText(f.Entity), optionalText(f.EntityID), optionalText(f.Action)}
}

func (r *repository) Window(ctx context.Context, filters TimelineFilters, offset, limit int) ([]TimelineRow, error) {
	args := append(timelineArgs(filters), limit, offset)
	rows, err := r.pool.Query(ctx, timelineQuery+` LIMIT $7 OFFSET $8`, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query timeline: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TimelineRow, error) {
		var (
			out  TimelineRow
			at   pgtype.Timestamptz
			meta []byte
		)
		if err := row.Scan(&at, &out.Action, &out.Entity, &out.EntityID, &meta); err != nil {
			return TimelineRow{}, err
		}
		if at.Valid {
			out.At = at.Time
		}
		if len(meta) > 0 && string(meta) != "null" {
			if err := json.Unmarshal(meta, &out.Meta); err != nil {
				return TimelineRow{}, fmt.Errorf("audit: decode meta: %w", err)
			}
		}
		return out, nil
	})
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}
