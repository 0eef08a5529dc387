package calc

import "github.com/shopspring/decimal"

// Input is everything ComputeTotals needs.
type Input struct {
	Items        []LineItem
	Discount     decimal.Decimal
	DiscountType DiscountType
	Tax          TaxConfig
	Shipping     decimal.Decimal
}

// AppliedTax is one computed tax amount.
type AppliedTax struct {
	ID     string          `json:"id,omitempty"`
	Name   string          `json:"name"`
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

// Totals is derived from an Input and never edited independently.
type Totals struct {
	Items          []decimal.Decimal `json:"items"`
	Subtotal       decimal.Decimal   `json:"subtotal"`
	DiscountAmount decimal.Decimal   `json:"discount_amount"`
	NetAmount      decimal.Decimal   `json:"net_amount"`
	Taxes          []AppliedTax      `json:"taxes"`
	TaxAmount      decimal.Decimal   `json:"tax_amount"`
	Shipping       decimal.Decimal   `json:"shipping"`
	Total          decimal.Decimal   `json:"total"`
}

// ComputeTotals derives every total bottom-up:
// items -> subtotal -> header discount -> net -> taxes -> shipping -> total.
func ComputeTotals(in Input) Totals {
	out := Totals{
		Items: make([]decimal.Decimal, len(in.Items)),
		Taxes: []AppliedTax{},
	}

	subtotal := decimal.Zero
	for i, item := range in.Items {
		amount := item.Amount()
		out.Items[i] = amount
		subtotal = subtotal.Add(amount)
	}
	out.Subtotal = Round2(subtotal)

	out.DiscountAmount = Round2(in.DiscountType.amountOf(out.Subtotal, in.Discount))
	out.NetAmount = out.Subtotal.Sub(out.DiscountAmount)

	out.Taxes = applyTaxes(in.Tax, out.NetAmount)
	out.TaxAmount = decimal.Zero
	for _, t := range out.Taxes {
		out.TaxAmount = out.TaxAmount.Add(t.Amount)
	}

	out.Shipping = in.Shipping
	if out.Shipping.IsNegative() {
		out.Shipping = decimal.Zero
	}
	out.Total = Round2(out.NetAmount.Add(out.TaxAmount).Add(out.Shipping))
	return out
}

// applyTaxes computes each tax independently on net. Zero rates produce no entry.
func applyTaxes(cfg TaxConfig, net decimal.Decimal) []AppliedTax {
	taxes := []AppliedTax{}
	switch c := cfg.(type) {
	case StandardTax:
		if c.Rate.IsPositive() {
			taxes = append(taxes, AppliedTax{Name: c.Name, Rate: c.Rate, Amount: taxOn(net, c.Rate)})
		}
	case MultipleTaxes:
		for _, t := range c.Taxes {
			if !t.Rate.IsPositive() {
				continue
			}
			taxes = append(taxes, AppliedTax{ID: t.ID, Name: t.Name, Rate: t.Rate, Amount: taxOn(net, t.Rate)})
		}
	}
	return taxes
}

func taxOn(net, rate decimal.Decimal) decimal.Decimal {
	return Round2(net.Mul(rate).Div(hundred))
}
