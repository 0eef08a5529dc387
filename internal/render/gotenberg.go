package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/invoiceflow/invoiceflow/web"
)

// HTMLConverter turns an HTML page into PDF bytes. report.Client implements it.
type HTMLConverter interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// GotenbergRenderer renders the invoice template and converts it remotely.
type GotenbergRenderer struct {
	converter HTMLConverter
	templates *template.Template
}

// NewGotenbergRenderer parses the embedded invoice template.
func NewGotenbergRenderer(converter HTMLConverter) (*GotenbergRenderer, error) {
	tpl, err := template.New("invoice_pdf.html").ParseFS(web.Templates, web.InvoiceTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse invoice template: %w", err)
	}
	return &GotenbergRenderer{converter: converter, templates: tpl}, nil
}

// Render implements Renderer.
func (g *GotenbergRenderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	if g == nil || g.converter == nil {
		return nil, fmt.Errorf("gotenberg renderer not initialized")
	}
	html, err := g.HTML(doc)
	if err != nil {
		return nil, err
	}
	pdf, err := g.converter.RenderHTML(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("convert invoice %s: %w", doc.Number, err)
	}
	return pdf, nil
}

// HTML returns the page sent to Gotenberg.
func (g *GotenbergRenderer) HTML(doc Document) (string, error) {
	buf := &bytes.Buffer{}
	if err := g.templates.ExecuteTemplate(buf, "invoice_pdf.html", newHTMLView(doc)); err != nil {
		return "", fmt.Errorf("render invoice template: %w", err)
	}
	return buf.String(), nil
}

type htmlRow struct {
	Description string
	Quantity    string
	Rate        string
	Discount    string
	Amount      string
}

type htmlTotal struct {
	Label  string
	Amount string
	Grand  bool
}

type htmlView struct {
	Number    string
	Status    string
	IssueDate string
	DueDate   string
	From      []string
	To        []string
	Rows      []htmlRow
	Totals    []htmlTotal
	Payment   string
	Notes     string
	Terms     string
}

func newHTMLView(doc Document) htmlView {
	v := htmlView{
		Number:  doc.Number,
		Status:  strings.ToUpper(doc.Status),
		From:    partyFields(doc.From),
		To:      partyFields(doc.To),
		Payment: paymentText(doc),
		Notes:   strings.TrimSpace(doc.Notes),
		Terms:   strings.TrimSpace(doc.Terms),
	}
	if !doc.IssueDate.IsZero() {
		v.IssueDate = doc.IssueDate.Format(dateLayout)
	}
	if !doc.DueDate.IsZero() {
		v.DueDate = doc.DueDate.Format(dateLayout)
	}
	for i, it := range doc.Items {
		v.Rows = append(v.Rows, htmlRow{
			Description: it.Description,
			Quantity:    FormatNumber(it.Quantity),
			Rate:        FormatMoney(it.Rate, doc.Currency),
			Discount:    discountLabel(it, doc.Currency, FormatMoney),
			Amount:      FormatMoney(doc.ItemAmount(i), doc.Currency),
		})
	}
	for _, line := range SummaryLines(doc) {
		v.Totals = append(v.Totals, htmlTotal{Label: line.Label, Amount: FormatMoney(line.Amount, doc.Currency), Grand: line.Grand})
	}
	return v
}

func partyFields(p Party) []string {
	var out []string
	for _, field := range []string{p.Name, p.Address, p.Email, p.Phone} {
		for _, line := range strings.Split(strings.ReplaceAll(field, "\r\n", "\n"), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
	}
	if p.TaxID != "" {
		out = append(out, "Tax ID: "+p.TaxID)
	}
	return out
}
