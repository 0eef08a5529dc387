package invoices

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/invoiceflow/invoiceflow/internal/calc"
	"github.com/invoiceflow/invoiceflow/internal/shared"
)

const dateLayout = "2006-01-02"

// maxDescription caps an item description in characters.
const maxDescription = 2000

var hundred = decimal.NewFromInt(100)

// strict parses a raw numeric field without the draft-time leniency.
// present is false for blank input.
func strict(raw calc.Loose) (value decimal.Decimal, present, ok bool) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return decimal.Zero, false, true
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, true, false
	}
	return d, true, true
}

func checkNonNegative(fields shared.FieldErrors, field string, raw calc.Loose) {
	v, present, ok := strict(raw)
	if !present {
		return
	}
	if !ok || v.IsNegative() {
		fields.Add(field, "must be a non-negative number")
	}
}

func checkPercent(fields shared.FieldErrors, field string, raw calc.Loose, t calc.DiscountType) {
	checkNonNegative(fields, field, raw)
	if v, _, ok := strict(raw); ok && t != calc.DiscountFixed && v.GreaterThan(hundred) {
		fields.Add(field, "must not exceed 100 percent")
	}
}

// validateDraft runs the pre-submission checks on the raw request: required
// description, quantity and rate on every row, well-formed numbers, known
// tax mode and dates in order. A zero quantity is allowed.
func validateDraft(req SubmitRequest, fields shared.FieldErrors) (issue, due time.Time) {
	var err error
	if req.IssueDate != "" {
		if issue, err = time.Parse(dateLayout, req.IssueDate); err != nil {
			fields.Add("issue_date", "must be a date formatted YYYY-MM-DD")
		}
	}
	if req.DueDate != "" {
		if due, err = time.Parse(dateLayout, req.DueDate); err != nil {
			fields.Add("due_date", "must be a date formatted YYYY-MM-DD")
		}
	}
	if !issue.IsZero() && !due.IsZero() && due.Before(issue) {
		fields.Add("due_date", "must not be before the issue date")
	}

	for i, it := range req.Items {
		prefix := fmt.Sprintf("items[%d].", i)
		if strings.TrimSpace(it.Description) == "" {
			fields.Add(prefix+"description", "is required")
		} else if utf8.RuneCountInString(it.Description) > maxDescription {
			fields.Add(prefix+"description", fmt.Sprintf("must be at most %d characters", maxDescription))
		}
		switch q, present, ok := strict(it.Quantity); {
		case !present:
			fields.Add(prefix+"quantity", "is required")
		case !ok || q.IsNegative():
			fields.Add(prefix+"quantity", "must be a non-negative number")
		}
		if _, present, _ := strict(it.Rate); !present {
			fields.Add(prefix+"rate", "is required")
		} else {
			checkNonNegative(fields, prefix+"rate", it.Rate)
		}
		checkPercent(fields, prefix+"discount", it.Discount, it.DiscountType)
	}

	checkPercent(fields, "discount", req.Discount, req.DiscountType)
	checkNonNegative(fields, "shipping", req.Shipping)

	switch req.Tax.Mode {
	case "", calc.TaxModeNone:
	case calc.TaxModeStandard:
		checkNonNegative(fields, "tax.rate", req.Tax.Rate)
	case calc.TaxModeMultiple:
		for i, t := range req.Tax.Taxes {
			checkNonNegative(fields, fmt.Sprintf("tax.taxes[%d].rate", i), t.Rate)
		}
	default:
		fields.Add("tax.mode", "must be one of: none standard multiple")
	}
	return issue, due
}

// validateTotals rejects computed results that cannot be issued.
func validateTotals(totals calc.Totals, fields shared.FieldErrors) {
	for i, amount := range totals.Items {
		if amount.IsNegative() {
			fields.Add(fmt.Sprintf("items[%d].discount", i), "must not exceed the line value")
		}
	}
	if totals.Total.IsNegative() {
		fields.Add("discount", "must not exceed the subtotal")
	}
}
