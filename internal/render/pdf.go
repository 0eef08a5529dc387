package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const pdfFont = "Helvetica"

// PDFRenderer draws the paginated layout with the core PDF fonts.
type PDFRenderer struct {
	Page PageSpec
}

// NewPDFRenderer returns a renderer for A4 pages.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{Page: A4}
}

// Render implements Renderer.
func (r *PDFRenderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	spec := r.Page
	if spec == (PageSpec{}) {
		spec = A4
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: spec.Width, Ht: spec.Height},
	})
	pdf.SetMargins(spec.MarginLeft, spec.MarginTop, spec.MarginRight)
	pdf.SetAutoPageBreak(false, spec.MarginBottom)
	pdf.SetTitle("Invoice "+doc.Number, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// only body-style elements are wrapped
	measure := MeasureFunc(func(s string) float64 {
		setStyle(pdf, StyleBody)
		return pdf.GetStringWidth(tr(s))
	})
	blocks := BuildInvoiceLayout(doc, Layout{Page: spec, Measure: measure, Money: FormatMoneyFontSafe})
	pages := Paginate(blocks, spec)

	for _, page := range pages {
		pdf.AddPage()
		for _, placed := range page.Elements {
			drawElement(pdf, tr, spec, placed)
		}
		pdf.SetFont(pdfFont, "", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.SetXY(spec.MarginLeft, spec.Height-spec.MarginBottom+4)
		pdf.CellFormat(spec.ContentWidth(), 4, tr(fmt.Sprintf("%s - page %d of %d", doc.Number, page.Number, len(pages))), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func setStyle(pdf *gofpdf.Fpdf, style Style) {
	switch style {
	case StyleTitle:
		pdf.SetFont(pdfFont, "B", 18)
	case StyleHeading:
		pdf.SetFont(pdfFont, "B", 11)
	case StyleStrong:
		pdf.SetFont(pdfFont, "B", 10)
	case StyleMuted:
		pdf.SetFont(pdfFont, "", 8)
	default:
		pdf.SetFont(pdfFont, "", 10)
	}
}

func drawElement(pdf *gofpdf.Fpdf, tr func(string) string, spec PageSpec, placed Placed) {
	x := spec.MarginLeft
	y := spec.MarginTop + placed.Y
	setStyle(pdf, placed.Style)

	switch placed.Kind {
	case KindRule:
		mid := y + placed.Height/2
		pdf.Line(x+spec.ContentWidth()*0.6, mid, x+spec.ContentWidth(), mid)
	case KindText:
		lh := placed.Height / float64(max(len(placed.Lines), 1))
		for i, line := range placed.Lines {
			pdf.SetXY(x, y+float64(i)*lh)
			pdf.CellFormat(spec.ContentWidth(), lh, tr(line), "", 0, "L", false, 0, "")
		}
	case KindRow:
		pad := 0.0
		if placed.Border {
			pad = spec.LineHeight * 0.2
		}
		for _, cell := range placed.Cells {
			if placed.Border {
				pdf.Rect(x, y, cell.Width, placed.Height, "D")
			}
			for i, line := range cell.Lines {
				pdf.SetXY(x+1, y+pad+float64(i)*spec.LineHeight)
				pdf.CellFormat(cell.Width-2, spec.LineHeight, tr(line), "", 0, string(cell.Align), false, 0, "")
			}
			x += cell.Width
		}
	}
}
