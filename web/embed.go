// Package web holds the HTML assets handed to Gotenberg.
package web

import "embed"

// InvoiceTemplate is the path of the invoice page inside Templates.
const InvoiceTemplate = "templates/invoices/invoice_pdf.html"

//go:embed templates/invoices/*.html
var Templates embed.FS
