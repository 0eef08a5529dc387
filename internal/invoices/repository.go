package invoices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/invoiceflow/invoiceflow/internal/platform/db"
)

// Repository persists invoice records. Every read and write is scoped to an
// owner except the overdue sweep, which runs across owners.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	NextNumber(ctx context.Context, ownerID, period string) (int, error)
	Insert(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, ownerID string, id uuid.UUID) (*Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]Invoice, int, error)
	UpdateStatus(ctx context.Context, ownerID string, id uuid.UUID, from, to Status, paidAt *time.Time) error
	Delete(ctx context.Context, ownerID string, id uuid.UUID) error
	MarkOverdue(ctx context.Context, asOf time.Time) ([]string, error)
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

// NextNumber allocates the next sequence value of an owner's period.
func (r *repository) NextNumber(ctx context.Context, ownerID, period string) (int, error) {
	var seq int
	err := r.db.QueryRow(ctx, `
		INSERT INTO invoice_sequences (owner_id, period, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (owner_id, period) DO UPDATE SET last_value = invoice_sequences.last_value + 1
		RETURNING last_value`, ownerID, period).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("allocate invoice number: %w", err)
	}
	return seq, nil
}

const invoiceColumns = `id, owner_id, number, client_id, profile_id, from_party, to_party,
	issue_date, due_date, currency, items, discount, discount_type, tax_config, taxes,
	subtotal, discount_amount, net_amount, tax_amount, shipping, total, status,
	payment_method, payment_details, notes, terms, created_at, updated_at, paid_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var status string
	err := row.Scan(
		&inv.ID, &inv.OwnerID, &inv.Number, &inv.ClientID, &inv.ProfileID, &inv.From, &inv.To,
		&inv.IssueDate, &inv.DueDate, &inv.Currency, &inv.Items, &inv.Discount, &inv.DiscountType, &inv.TaxConfig, &inv.Taxes,
		&inv.Subtotal, &inv.DiscountAmount, &inv.NetAmount, &inv.TaxAmount, &inv.Shipping, &inv.Total, &status,
		&inv.PaymentMethod, &inv.PaymentDetails, &inv.Notes, &inv.Terms, &inv.CreatedAt, &inv.UpdatedAt, &inv.PaidAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	inv.Status = Status(status)
	return &inv, nil
}

func (r *repository) Insert(ctx context.Context, inv *Invoice) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO invoices (id, owner_id, number, client_id, profile_id, from_party, to_party,
			issue_date, due_date, currency, items, discount, discount_type, tax_config, taxes,
			subtotal, discount_amount, net_amount, tax_amount, shipping, total, status,
			payment_method, payment_details, notes, terms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
		RETURNING created_at, updated_at`,
		inv.ID, inv.OwnerID, inv.Number, inv.ClientID, inv.ProfileID, inv.From, inv.To,
		inv.IssueDate, inv.DueDate, inv.Currency, inv.Items, inv.Discount, string(inv.DiscountType), inv.TaxConfig, inv.Taxes,
		inv.Subtotal, inv.DiscountAmount, inv.NetAmount, inv.TaxAmount, inv.Shipping, inv.Total, string(inv.Status),
		inv.PaymentMethod, inv.PaymentDetails, inv.Notes, inv.Terms,
	).Scan(&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("invoice number %s already used: %w", inv.Number, err)
		}
		return err
	}
	return nil
}

func (r *repository) Get(ctx context.Context, ownerID string, id uuid.UUID) (*Invoice, error) {
	return scanInvoice(r.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE owner_id = $1 AND id = $2`, ownerID, id))
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Invoice, int, error) {
	conditions := []string{"owner_id = $1"}
	args := []any{filter.OwnerID}
	argPos := 2

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, string(filter.Status))
		argPos++
	}
	if filter.ClientID != nil {
		conditions = append(conditions, fmt.Sprintf("client_id = $%d", argPos))
		args = append(args, *filter.ClientID)
		argPos++
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		conditions = append(conditions, fmt.Sprintf("(number ILIKE $%d OR to_party->>'name' ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+search+"%")
		argPos++
	}
	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM invoices "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM invoices %s ORDER BY issue_date DESC, number DESC LIMIT $%d OFFSET $%d`,
		invoiceColumns, whereClause, argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *inv)
	}
	return out, total, rows.Err()
}

// UpdateStatus moves an invoice from one status to another. It fails with
// ErrInvalidTransition when the stored status is no longer from.
func (r *repository) UpdateStatus(ctx context.Context, ownerID string, id uuid.UUID, from, to Status, paidAt *time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE invoices SET status = $4, paid_at = $5, updated_at = NOW()
		WHERE owner_id = $1 AND id = $2 AND status = $3`,
		ownerID, id, string(from), string(to), paidAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: status changed concurrently", ErrInvalidTransition)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM invoices WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

// MarkOverdue flags issued invoices due before asOf and returns the owners
// whose invoices changed.
func (r *repository) MarkOverdue(ctx context.Context, asOf time.Time) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		WITH flagged AS (
			UPDATE invoices SET status = 'overdue', updated_at = NOW()
			WHERE status = 'issued' AND due_date < $1
			RETURNING owner_id
		)
		SELECT DISTINCT owner_id FROM flagged ORDER BY owner_id`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, err
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}
