package profiles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/invoiceflow/invoiceflow/internal/platform/db"
	"github.com/invoiceflow/invoiceflow/internal/shared"
)

// ErrNotFound is returned when a profile does not exist for the owner.
var ErrNotFound = fmt.Errorf("profile %w", shared.ErrNotFound)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, ownerID string, id int64) (*Profile, error)
	GetDefault(ctx context.Context, ownerID string) (*Profile, error)
	List(ctx context.Context, ownerID string) ([]Profile, error)
	Create(ctx context.Context, profile Profile) (*Profile, error)
	Update(ctx context.Context, ownerID string, id int64, updates map[string]any) error
	ClearDefault(ctx context.Context, ownerID string) error
	Delete(ctx context.Context, ownerID string, id int64) error
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const profileColumns = `id, owner_id, name, email, phone, address, tax_id, currency,
	payment_method, payment_details, default_terms, is_default, created_at, updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Email, &p.Phone, &p.Address, &p.TaxID, &p.Currency,
		&p.PaymentMethod, &p.PaymentDetails, &p.DefaultTerms, &p.IsDefault, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) Get(ctx context.Context, ownerID string, id int64) (*Profile, error) {
	return scanProfile(r.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE owner_id = $1 AND id = $2`, ownerID, id))
}

func (r *repository) GetDefault(ctx context.Context, ownerID string) (*Profile, error) {
	return scanProfile(r.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles
		WHERE owner_id = $1 ORDER BY is_default DESC, id LIMIT 1`, ownerID))
}

func (r *repository) List(ctx context.Context, ownerID string) ([]Profile, error) {
	rows, err := r.db.Query(ctx, `SELECT `+profileColumns+` FROM profiles WHERE owner_id = $1 ORDER BY is_default DESC, name, id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, p Profile) (*Profile, error) {
	return scanProfile(r.db.QueryRow(ctx, `
		INSERT INTO profiles (owner_id, name, email, phone, address, tax_id, currency,
			payment_method, payment_details, default_terms, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+profileColumns,
		p.OwnerID, p.Name, p.Email, p.Phone, p.Address, p.TaxID, p.Currency,
		p.PaymentMethod, p.PaymentDetails, p.DefaultTerms, p.IsDefault))
}

var updatable = []string{"name", "email", "phone", "address", "tax_id", "currency",
	"payment_method", "payment_details", "default_terms", "is_default"}

func (r *repository) Update(ctx context.Context, ownerID string, id int64, updates map[string]any) error {
	query := "UPDATE profiles SET updated_at = NOW()"
	var args []any
	argPos := 1
	for _, col := range updatable {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}
	query += fmt.Sprintf(" WHERE owner_id = $%d AND id = $%d", argPos, argPos+1)
	args = append(args, ownerID, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ClearDefault(ctx context.Context, ownerID string) error {
	_, err := r.db.Exec(ctx, `UPDATE profiles SET is_default = FALSE, updated_at = NOW() WHERE owner_id = $1 AND is_default`, ownerID)
	return err
}

func (r *repository) Delete(ctx context.Context, ownerID string, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM profiles WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
