package calc

import "github.com/shopspring/decimal"

// DraftItem is a line item as typed: numeric fields stay raw text until the
// totals are computed.
type DraftItem struct {
	Description  string       `json:"description"`
	Quantity     Loose        `json:"quantity"`
	Rate         Loose        `json:"rate"`
	Discount     Loose        `json:"discount"`
	DiscountType DiscountType `json:"discount_type"`
}

// LineItem converts the raw row through the parse-or-zero boundary.
func (d DraftItem) LineItem() LineItem {
	return LineItem{
		Description:  d.Description,
		Quantity:     d.Quantity.Decimal(),
		Rate:         d.Rate.Decimal(),
		Discount:     d.Discount.Decimal(),
		DiscountType: d.DiscountType,
	}
}

// Draft is the authoring state of an invoice. It is treated as a value:
// Reduce never mutates its argument.
type Draft struct {
	Items        []DraftItem
	Discount     Loose
	DiscountType DiscountType
	Tax          TaxConfig
	Shipping     Loose
	Totals       Totals
}

// NewDraft returns a draft with one empty row and no tax.
func NewDraft() Draft {
	d := Draft{
		Items:        []DraftItem{{DiscountType: DiscountPercent}},
		DiscountType: DiscountPercent,
		Tax:          NoTax{},
	}
	d.Totals = ComputeTotals(d.Input())
	return d
}

// Input converts the raw draft into engine input.
func (d Draft) Input() Input {
	items := make([]LineItem, len(d.Items))
	for i, it := range d.Items {
		items[i] = it.LineItem()
	}
	tax := d.Tax
	if tax == nil {
		tax = NoTax{}
	}
	return Input{
		Items:        items,
		Discount:     d.Discount.Decimal(),
		DiscountType: d.DiscountType,
		Tax:          tax,
		Shipping:     d.Shipping.Decimal(),
	}
}

// ItemField names an editable column of a draft row.
type ItemField string

const (
	FieldDescription  ItemField = "description"
	FieldQuantity     ItemField = "quantity"
	FieldRate         ItemField = "rate"
	FieldDiscount     ItemField = "discount"
	FieldDiscountType ItemField = "discount_type"
)

// Action is a single edit applied by Reduce.
type Action interface {
	apply(d *Draft)
}

// AddItem appends an empty row.
type AddItem struct{}

// RemoveItem drops the row at Index.
type RemoveItem struct{ Index int }

// SetItemField replaces one column of the row at Index.
type SetItemField struct {
	Index int
	Field ItemField
	Value string
}

type SetDiscount struct{ Value string }

type SetDiscountType struct{ Type DiscountType }

type SetShipping struct{ Value string }

// SetTaxMode switches the tax variant via TransitionTaxMode.
type SetTaxMode struct{ Mode TaxMode }

// SetStandardTax edits the standard rate; ignored in other modes.
type SetStandardTax struct{ Name, Rate string }

// AddTaxLine appends an empty tax; ignored unless in multiple mode.
type AddTaxLine struct{}

type SetTaxLine struct {
	Index int
	Name  string
	Rate  string
}

// RemoveTaxLine drops a tax, keeping at least one editable row.
type RemoveTaxLine struct{ Index int }

// Reduce applies a to a copy of d and returns it with freshly computed totals.
func Reduce(d Draft, a Action) Draft {
	next := d.clone()
	if a != nil {
		a.apply(&next)
	}
	next.Totals = ComputeTotals(next.Input())
	return next
}

func (d Draft) clone() Draft {
	items := make([]DraftItem, len(d.Items))
	copy(items, d.Items)
	d.Items = items
	if d.Tax == nil {
		d.Tax = NoTax{}
	}
	d.Tax = cloneTaxConfig(d.Tax)
	d.Totals = Totals{}
	return d
}

func (AddItem) apply(d *Draft) {
	d.Items = append(d.Items, DraftItem{DiscountType: DiscountPercent})
}

func (a RemoveItem) apply(d *Draft) {
	if a.Index < 0 || a.Index >= len(d.Items) {
		return
	}
	d.Items = append(d.Items[:a.Index], d.Items[a.Index+1:]...)
}

func (a SetItemField) apply(d *Draft) {
	if a.Index < 0 || a.Index >= len(d.Items) {
		return
	}
	item := d.Items[a.Index]
	switch a.Field {
	case FieldDescription:
		item.Description = a.Value
	case FieldQuantity:
		item.Quantity = Loose(a.Value)
	case FieldRate:
		item.Rate = Loose(a.Value)
	case FieldDiscount:
		item.Discount = Loose(a.Value)
	case FieldDiscountType:
		item.DiscountType = ParseDiscountType(a.Value)
	default:
		return
	}
	d.Items[a.Index] = item
}

func (a SetDiscount) apply(d *Draft)     { d.Discount = Loose(a.Value) }
func (a SetDiscountType) apply(d *Draft) { d.DiscountType = a.Type }
func (a SetShipping) apply(d *Draft)     { d.Shipping = Loose(a.Value) }
func (a SetTaxMode) apply(d *Draft)      { d.Tax = TransitionTaxMode(d.Tax, a.Mode) }

func (a SetStandardTax) apply(d *Draft) {
	if d.Tax.Mode() != TaxModeStandard {
		return
	}
	d.Tax = StandardTax{Name: a.Name, Rate: ParseNonNegative(a.Rate)}
}

func (AddTaxLine) apply(d *Draft) {
	multi, ok := d.Tax.(MultipleTaxes)
	if !ok {
		return
	}
	multi.Taxes = append(multi.Taxes, NewTaxLine("", decimal.Zero))
	d.Tax = multi
}

func (a SetTaxLine) apply(d *Draft) {
	multi, ok := d.Tax.(MultipleTaxes)
	if !ok || a.Index < 0 || a.Index >= len(multi.Taxes) {
		return
	}
	line := multi.Taxes[a.Index]
	line.Name = a.Name
	line.Rate = ParseNonNegative(a.Rate)
	multi.Taxes[a.Index] = line
	d.Tax = multi
}

func (a RemoveTaxLine) apply(d *Draft) {
	multi, ok := d.Tax.(MultipleTaxes)
	if !ok || a.Index < 0 || a.Index >= len(multi.Taxes) {
		return
	}
	multi.Taxes = append(multi.Taxes[:a.Index], multi.Taxes[a.Index+1:]...)
	if len(multi.Taxes) == 0 {
		multi.Taxes = []TaxLine{NewTaxLine("", decimal.Zero)}
	}
	d.Tax = multi
}

// DraftSpec is the JSON form of a draft as posted by the authoring form.
type DraftSpec struct {
	Items        []DraftItem  `json:"items"`
	Discount     Loose        `json:"discount"`
	DiscountType DiscountType `json:"discount_type"`
	Tax          TaxSpec      `json:"tax"`
	Shipping     Loose        `json:"shipping"`
}

// Draft builds the draft value with its totals computed.
func (s DraftSpec) Draft() Draft {
	items := make([]DraftItem, len(s.Items))
	copy(items, s.Items)
	d := Draft{
		Items:        items,
		Discount:     s.Discount,
		DiscountType: s.DiscountType,
		Tax:          s.Tax.ToConfig(),
		Shipping:     s.Shipping,
	}
	d.Totals = ComputeTotals(d.Input())
	return d
}
