package calc

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// DiscountType selects how a discount value is applied.
type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

// ParseDiscountType maps free-form input onto a DiscountType. Anything other
// than "fixed" is treated as a percentage.
func ParseDiscountType(raw string) DiscountType {
	switch raw {
	case string(DiscountFixed), "flat", "amount":
		return DiscountFixed
	default:
		return DiscountPercent
	}
}

// UnmarshalJSON normalises unknown values to DiscountPercent.
func (t *DiscountType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*t = DiscountPercent
		return nil
	}
	*t = ParseDiscountType(s)
	return nil
}

// apply reduces base by discount according to t.
func (t DiscountType) apply(base, discount decimal.Decimal) decimal.Decimal {
	return base.Sub(t.amountOf(base, discount))
}

// amountOf returns the unrounded reduction for base.
func (t DiscountType) amountOf(base, discount decimal.Decimal) decimal.Decimal {
	if t == DiscountFixed {
		return discount
	}
	return base.Mul(discount).Div(hundred)
}

// LineItem is one billable row. Its amount is always derived.
type LineItem struct {
	Description  string
	Quantity     decimal.Decimal
	Rate         decimal.Decimal
	Discount     decimal.Decimal
	DiscountType DiscountType
}

// Amount recomputes the line amount from the raw fields.
func (li LineItem) Amount() decimal.Decimal {
	return ComputeItemAmount(li.Quantity, li.Rate, li.Discount, li.DiscountType)
}

// ComputeItemAmount returns quantity*rate reduced by the discount, rounded to
// cents. The result is not clamped: a fixed discount larger than the gross
// value yields a negative amount.
func ComputeItemAmount(quantity, rate, discount decimal.Decimal, discountType DiscountType) decimal.Decimal {
	raw := quantity.Mul(rate)
	return Round2(discountType.apply(raw, discount))
}
