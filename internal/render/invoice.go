package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/invoiceflow/invoiceflow/internal/calc"
)

const dateLayout = "02 Jan 2006"

// Layout configures BuildInvoiceLayout. Zero fields fall back to A4, a
// CharMeasurer and FormatMoney.
type Layout struct {
	Page    PageSpec
	Measure Measurer
	Money   MoneyFormatter
}

func (l Layout) withDefaults() Layout {
	if l.Page == (PageSpec{}) {
		l.Page = A4
	}
	if l.Measure == nil {
		l.Measure = CharMeasurer{}
	}
	if l.Money == nil {
		l.Money = FormatMoney
	}
	return l
}

// item table column shares of the content width
var itemColumns = []struct {
	title string
	share float64
	align Align
}{
	{"Description", 0.44, AlignLeft},
	{"Qty", 0.11, AlignRight},
	{"Rate", 0.15, AlignRight},
	{"Discount", 0.13, AlignRight},
	{"Amount", 0.17, AlignRight},
}

// BuildInvoiceLayout turns a document into blocks ready for Paginate. Every
// free-text field is wrapped to the width it is printed in.
func BuildInvoiceLayout(doc Document, l Layout) []Block {
	l = l.withDefaults()
	b := builder{doc: doc, l: l, lh: l.Page.LineHeight, width: l.Page.ContentWidth()}
	if b.lh <= 0 {
		b.lh = 1
	}
	return []Block{
		b.header(),
		b.parties(),
		b.items(),
		b.totals(),
		b.section("payment", "Payment details", paymentText(doc)),
		b.section("notes", "Notes", doc.Notes),
		b.section("terms", "Terms", doc.Terms),
	}
}

type builder struct {
	doc   Document
	l     Layout
	lh    float64
	width float64
}

func (b builder) money(d decimal.Decimal) string {
	return b.l.Money(d, b.doc.Currency)
}

func (b builder) pad() float64 {
	return math.Max(b.width*0.01, 0.5)
}

func (b builder) text(style Style, lines ...string) Element {
	scale := 1.0
	switch style {
	case StyleTitle:
		scale = 2
	case StyleHeading:
		scale = 1.4
	}
	n := math.Max(float64(len(lines)), 1)
	return Element{Kind: KindText, Style: style, Lines: lines, Height: n * b.lh * scale}
}

func (b builder) row(style Style, border bool, cells ...Cell) Element {
	n := 1
	for _, c := range cells {
		if len(c.Lines) > n {
			n = len(c.Lines)
		}
	}
	h := float64(n) * b.lh
	if border {
		h += b.lh * 0.4
	}
	return Element{Kind: KindRow, Style: style, Cells: cells, Border: border, Height: h}
}

func (b builder) wrap(text string, width float64) []string {
	return Wrap(text, width-2*b.pad(), b.l.Measure)
}

func (b builder) header() Block {
	left := []string{"Invoice " + b.doc.Number}
	if b.doc.Status != "" {
		left = append(left, "Status: "+strings.ToUpper(b.doc.Status))
	}
	var right []string
	if !b.doc.IssueDate.IsZero() {
		right = append(right, "Issue date: "+b.doc.IssueDate.Format(dateLayout))
	}
	if !b.doc.DueDate.IsZero() {
		right = append(right, "Due date: "+b.doc.DueDate.Format(dateLayout))
	}
	half := b.width / 2
	return Block{
		Name: "header",
		Elements: []Element{
			b.text(StyleTitle, "INVOICE"),
			b.row(StyleBody, false,
				Cell{Lines: left, Width: half, Align: AlignLeft},
				Cell{Lines: right, Width: half, Align: AlignRight},
			),
		},
	}
}

func (b builder) partyLines(p Party, width float64) []string {
	var lines []string
	if p.Name != "" {
		lines = append(lines, b.wrap(p.Name, width)...)
	}
	lines = append(lines, b.wrap(p.Address, width)...)
	for _, extra := range []string{p.Email, p.Phone} {
		if extra != "" {
			lines = append(lines, b.wrap(extra, width)...)
		}
	}
	if p.TaxID != "" {
		lines = append(lines, b.wrap("Tax ID: "+p.TaxID, width)...)
	}
	return lines
}

func (b builder) parties() Block {
	half := b.width / 2
	return Block{
		Name: "parties",
		Gap:  b.lh,
		Elements: []Element{
			b.row(StyleStrong, false,
				Cell{Lines: []string{"From"}, Width: half, Align: AlignLeft},
				Cell{Lines: []string{"Bill to"}, Width: half, Align: AlignLeft},
			),
			b.row(StyleBody, false,
				Cell{Lines: b.partyLines(b.doc.From, half), Width: half, Align: AlignLeft},
				Cell{Lines: b.partyLines(b.doc.To, half), Width: half, Align: AlignLeft},
			),
		},
	}
}

func (b builder) itemCells(values []string, wrapFirst bool) []Cell {
	cells := make([]Cell, len(itemColumns))
	for i, col := range itemColumns {
		w := b.width * col.share
		lines := []string{values[i]}
		if i == 0 && wrapFirst {
			lines = b.wrap(values[i], w)
		}
		cells[i] = Cell{Lines: lines, Width: w, Align: col.align}
	}
	return cells
}

func (b builder) items() Block {
	titles := make([]string, len(itemColumns))
	for i, col := range itemColumns {
		titles[i] = col.title
	}
	block := Block{
		Name:   "items",
		Gap:    b.lh,
		Flow:   true,
		Header: []Element{b.row(StyleStrong, true, b.itemCells(titles, false)...)},
	}
	for i, it := range b.doc.Items {
		values := []string{
			it.Description,
			FormatNumber(it.Quantity),
			b.money(it.Rate),
			discountLabel(it, b.doc.Currency, b.l.Money),
			b.money(b.doc.ItemAmount(i)),
		}
		block.Elements = append(block.Elements, b.row(StyleBody, true, b.itemCells(values, true)...))
	}
	return block
}

func discountLabel(it calc.LineItem, currency string, money MoneyFormatter) string {
	if it.Discount.IsZero() {
		return ""
	}
	if it.DiscountType == calc.DiscountFixed {
		return money(it.Discount, currency)
	}
	return FormatNumber(it.Discount) + "%"
}

// SummaryLine is one labelled amount below the items table.
type SummaryLine struct {
	Label  string
	Amount decimal.Decimal
	Grand  bool
}

// SummaryLines lists subtotal, discount, each tax, shipping and total in
// print order. Zero discount and shipping are omitted.
func SummaryLines(doc Document) []SummaryLine {
	t := doc.Totals
	lines := []SummaryLine{{Label: "Subtotal", Amount: t.Subtotal}}
	if !t.DiscountAmount.IsZero() {
		label := "Discount"
		if doc.DiscountType != calc.DiscountFixed {
			label = fmt.Sprintf("Discount (%s%%)", FormatNumber(doc.Discount))
		}
		lines = append(lines,
			SummaryLine{Label: label, Amount: t.DiscountAmount.Neg()},
			SummaryLine{Label: "Net amount", Amount: t.NetAmount},
		)
	}
	for _, tax := range t.Taxes {
		name := tax.Name
		if name == "" {
			name = "Tax"
		}
		lines = append(lines, SummaryLine{Label: fmt.Sprintf("%s (%s%%)", name, FormatNumber(tax.Rate)), Amount: tax.Amount})
	}
	if t.Shipping.IsPositive() {
		lines = append(lines, SummaryLine{Label: "Shipping", Amount: t.Shipping})
	}
	return append(lines, SummaryLine{Label: "Total", Amount: t.Total, Grand: true})
}

func (b builder) totals() Block {
	labelWidth := b.width * 0.8
	var elements []Element
	for _, line := range SummaryLines(b.doc) {
		style := StyleBody
		if line.Grand {
			style = StyleStrong
			elements = append(elements, Element{Kind: KindRule, Height: b.lh * 0.5})
		}
		elements = append(elements, b.row(style, false,
			Cell{Lines: []string{line.Label}, Width: labelWidth, Align: AlignRight},
			Cell{Lines: []string{b.money(line.Amount)}, Width: b.width - labelWidth, Align: AlignRight},
		))
	}
	return Block{Name: "totals", Gap: b.lh, Elements: elements}
}

func paymentText(doc Document) string {
	var parts []string
	if doc.PaymentMethod != "" {
		parts = append(parts, "Method: "+doc.PaymentMethod)
	}
	if strings.TrimSpace(doc.PaymentDetails) != "" {
		parts = append(parts, doc.PaymentDetails)
	}
	return strings.Join(parts, "\n")
}

// section is a titled free-text block. Each wrapped line is its own element
// so a section longer than a page can still be split.
func (b builder) section(name, title, body string) Block {
	lines := b.wrap(body, b.width)
	if len(lines) == 0 {
		return Block{Name: name}
	}
	block := Block{
		Name:   name,
		Gap:    b.lh,
		Header: []Element{b.text(StyleHeading, title)},
	}
	for _, line := range lines {
		block.Elements = append(block.Elements, b.text(StyleBody, line))
	}
	return block
}
