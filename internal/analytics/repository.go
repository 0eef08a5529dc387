package analytics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// StatusRow aggregates one owner's invoices of a currency and status.
type StatusRow struct {
	Currency string
	Status   string
	Count    int
	Total    decimal.Decimal
	PastDue  decimal.Decimal
}

// RevenueRow is the paid total of one calendar month.
type RevenueRow struct {
	Currency string
	Month    time.Time
	Total    decimal.Decimal
}

// Repository exposes the aggregate queries behind the dashboard.
type Repository interface {
	StatusTotals(ctx context.Context, owner string, asOf time.Time) ([]StatusRow, error)
	MonthlyRevenue(ctx context.Context, owner string, from time.Time) ([]RevenueRow, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) StatusTotals(ctx context.Context, owner string, asOf time.Time) ([]StatusRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT currency, status, COUNT(*),
		       COALESCE(SUM(total), 0),
		       COALESCE(SUM(total) FILTER (WHERE status = 'overdue' OR (status = 'issued' AND due_date < $2)), 0)
		FROM invoices
		WHERE owner_id = $1
		GROUP BY currency, status
		ORDER BY currency, status`, owner, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StatusRow
	for rows.Next() {
		var row StatusRow
		if err := rows.Scan(&row.Currency, &row.Status, &row.Count, &row.Total, &row.PastDue); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *pgRepository) MonthlyRevenue(ctx context.Context, owner string, from time.Time) ([]RevenueRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT currency, date_trunc('month', paid_at)::date AS month, SUM(total)
		FROM invoices
		WHERE owner_id = $1 AND status = 'paid' AND paid_at >= $2
		GROUP BY currency, month
		ORDER BY currency, month`, owner, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RevenueRow
	for rows.Next() {
		var row RevenueRow
		if err := rows.Scan(&row.Currency, &row.Month, &row.Total); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
