// Package render turns a computed invoice into a downloadable document. The
// layout engine is independent of the output format; PDFRenderer draws it with
// gofpdf and GotenbergRenderer hands an HTML rendition to Gotenberg.
package render

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/invoiceflow/invoiceflow/internal/calc"
)

// Party is the sender or recipient block printed on the document.
type Party struct {
	Name    string
	Email   string
	Phone   string
	Address string
	TaxID   string
}

// Document carries everything printed on an invoice. Totals must come from
// calc.ComputeTotals over the same Items.
type Document struct {
	Number         string
	Status         string
	IssueDate      time.Time
	DueDate        time.Time
	Currency       string
	From           Party
	To             Party
	Items          []calc.LineItem
	Discount       decimal.Decimal
	DiscountType   calc.DiscountType
	Totals         calc.Totals
	PaymentMethod  string
	PaymentDetails string
	Notes          string
	Terms          string
}

// ItemAmount returns the computed amount for row i, falling back to a fresh
// computation when the totals do not cover the row.
func (d Document) ItemAmount(i int) decimal.Decimal {
	if i < len(d.Totals.Items) {
		return d.Totals.Items[i]
	}
	return d.Items[i].Amount()
}

// Renderer produces the bytes of a finished document.
type Renderer interface {
	Render(ctx context.Context, doc Document) ([]byte, error)
}

// FileName returns the download name for an invoice number.
func FileName(number string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(number) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case r == ' ' || r == '/' || r == '\\':
			b.WriteRune('_')
		}
	}
	name := strings.Trim(b.String(), "._")
	if name == "" {
		name = "draft"
	}
	return "invoice-" + name + ".pdf"
}

// Engine names accepted by New.
const (
	EngineGofpdf    = "gofpdf"
	EngineGotenberg = "gotenberg"
)

// New returns the renderer for engine. The converter is only used by the
// gotenberg engine.
func New(engine string, converter HTMLConverter) (Renderer, error) {
	switch engine {
	case "", EngineGofpdf:
		return NewPDFRenderer(), nil
	case EngineGotenberg:
		r, err := NewGotenbergRenderer(converter)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown pdf engine %q", engine)
	}
}
