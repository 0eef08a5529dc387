// Package invoices issues invoices: it validates a submitted draft, freezes
// the computed totals into an immutable record and manages the record's
// payment status afterwards.
package invoices

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/invoiceflow/invoiceflow/internal/calc"
	"github.com/invoiceflow/invoiceflow/internal/platform/httpx"
	"github.com/invoiceflow/invoiceflow/internal/render"
	"github.com/invoiceflow/invoiceflow/internal/shared"
)

// Status of an issued invoice.
type Status string

const (
	StatusIssued    Status = "issued"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

var (
	// ErrInvoiceNotFound is returned when an invoice does not exist for the owner.
	ErrInvoiceNotFound = fmt.Errorf("invoice %w", shared.ErrNotFound)
	// ErrInvalidTransition indicates a status change the lifecycle forbids.
	ErrInvalidTransition = fmt.Errorf("invoice status transition invalid: %w", httpx.ErrConflict)
	// ErrRequestInFlight is returned while an earlier request with the same
	// idempotency key has not finished.
	ErrRequestInFlight = fmt.Errorf("request with this idempotency key is still in progress: %w", httpx.ErrConflict)
)

// ParseStatus validates a status name.
func ParseStatus(raw string) (Status, bool) {
	switch s := Status(raw); s {
	case StatusIssued, StatusPaid, StatusOverdue, StatusCancelled:
		return s, true
	}
	return "", false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// ValidateTransition checks a status change against the lifecycle
// issued -> paid | overdue | cancelled, overdue -> paid | cancelled.
func ValidateTransition(current, target Status) error {
	if current == target {
		return nil
	}
	switch current {
	case StatusIssued:
		if target == StatusPaid || target == StatusOverdue || target == StatusCancelled {
			return nil
		}
	case StatusOverdue:
		if target == StatusPaid || target == StatusCancelled {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
}

// Party is the snapshot of a sender or recipient taken at submission.
type Party struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	TaxID   string `json:"tax_id,omitempty"`
}

// Item is a persisted line item with its computed amount.
type Item struct {
	Description  string            `json:"description"`
	Quantity     decimal.Decimal   `json:"quantity"`
	Rate         decimal.Decimal   `json:"rate"`
	Discount     decimal.Decimal   `json:"discount"`
	DiscountType calc.DiscountType `json:"discount_type"`
	Amount       decimal.Decimal   `json:"amount"`
}

// LineItem returns the engine view of the row.
func (it Item) LineItem() calc.LineItem {
	return calc.LineItem{
		Description:  it.Description,
		Quantity:     it.Quantity,
		Rate:         it.Rate,
		Discount:     it.Discount,
		DiscountType: it.DiscountType,
	}
}

// Invoice is an issued invoice. Everything but the status fields is frozen
// at submission.
type Invoice struct {
	ID             uuid.UUID         `json:"id"`
	OwnerID        string            `json:"-"`
	Number         string            `json:"number"`
	ClientID       *int64            `json:"client_id,omitempty"`
	ProfileID      *int64            `json:"profile_id,omitempty"`
	From           Party             `json:"from"`
	To             Party             `json:"to"`
	IssueDate      time.Time         `json:"issue_date"`
	DueDate        time.Time         `json:"due_date"`
	Currency       string            `json:"currency"`
	Items          []Item            `json:"items"`
	Discount       decimal.Decimal   `json:"discount"`
	DiscountType   calc.DiscountType `json:"discount_type"`
	TaxConfig      calc.TaxSpec      `json:"tax_config"`
	Taxes          []calc.AppliedTax `json:"taxes"`
	Subtotal       decimal.Decimal   `json:"subtotal"`
	DiscountAmount decimal.Decimal   `json:"discount_amount"`
	NetAmount      decimal.Decimal   `json:"net_amount"`
	TaxAmount      decimal.Decimal   `json:"tax_amount"`
	Shipping       decimal.Decimal   `json:"shipping"`
	Total          decimal.Decimal   `json:"total"`
	Status         Status            `json:"status"`
	PaymentMethod  string            `json:"payment_method,omitempty"`
	PaymentDetails string            `json:"payment_details,omitempty"`
	Notes          string            `json:"notes,omitempty"`
	Terms          string            `json:"terms,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	PaidAt         *time.Time        `json:"paid_at,omitempty"`
}

// applyTotals copies a computation result onto the record.
func (inv *Invoice) applyTotals(items []calc.LineItem, totals calc.Totals) {
	inv.Items = make([]Item, len(items))
	for i, li := range items {
		inv.Items[i] = Item{
			Description:  li.Description,
			Quantity:     li.Quantity,
			Rate:         li.Rate,
			Discount:     li.Discount,
			DiscountType: li.DiscountType,
			Amount:       totals.Items[i],
		}
	}
	inv.Taxes = totals.Taxes
	inv.Subtotal = totals.Subtotal
	inv.DiscountAmount = totals.DiscountAmount
	inv.NetAmount = totals.NetAmount
	inv.TaxAmount = totals.TaxAmount
	inv.Shipping = totals.Shipping
	inv.Total = totals.Total
}

// Totals returns the stored snapshot without recomputing it.
func (inv Invoice) Totals() calc.Totals {
	items := make([]decimal.Decimal, len(inv.Items))
	for i, it := range inv.Items {
		items[i] = it.Amount
	}
	taxes := inv.Taxes
	if taxes == nil {
		taxes = []calc.AppliedTax{}
	}
	return calc.Totals{
		Items:          items,
		Subtotal:       inv.Subtotal,
		DiscountAmount: inv.DiscountAmount,
		NetAmount:      inv.NetAmount,
		Taxes:          taxes,
		TaxAmount:      inv.TaxAmount,
		Shipping:       inv.Shipping,
		Total:          inv.Total,
	}
}

// Document converts the record into its printable form.
func (inv Invoice) Document() render.Document {
	items := make([]calc.LineItem, len(inv.Items))
	for i, it := range inv.Items {
		items[i] = it.LineItem()
	}
	return render.Document{
		Number:         inv.Number,
		Status:         string(inv.Status),
		IssueDate:      inv.IssueDate,
		DueDate:        inv.DueDate,
		Currency:       inv.Currency,
		From:           render.Party(inv.From),
		To:             render.Party(inv.To),
		Items:          items,
		Discount:       inv.Discount,
		DiscountType:   inv.DiscountType,
		Totals:         inv.Totals(),
		PaymentMethod:  inv.PaymentMethod,
		PaymentDetails: inv.PaymentDetails,
		Notes:          inv.Notes,
		Terms:          inv.Terms,
	}
}

// NumberPeriod is the YYYYMM bucket an invoice number is allocated in.
func NumberPeriod(issue time.Time) string {
	return issue.Format("200601")
}

// FormatNumber renders INV-YYYYMM-#### for the seq-th invoice of a period.
func FormatNumber(period string, seq int) string {
	return fmt.Sprintf("INV-%s-%04d", period, seq)
}
