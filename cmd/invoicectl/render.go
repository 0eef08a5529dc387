package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/invoiceflow/invoiceflow/internal/render"
	"github.com/invoiceflow/invoiceflow/report"
)

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render [draft.json|-]",
		Short: "Render a JSON draft to PDF",
		Example: `  invoicectl render draft.json
  invoicectl render draft.json --engine gotenberg --gotenberg-url http://localhost:3000 -o out.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			f, err := parseDraft(data)
			if err != nil {
				return err
			}
			doc, err := documentOf(f)
			if err != nil {
				return err
			}

			engine, _ := cmd.Flags().GetString("engine")
			var converter render.HTMLConverter
			if engine == render.EngineGotenberg {
				url, _ := cmd.Flags().GetString("gotenberg-url")
				converter = report.NewClient(url)
			}
			renderer, err := render.New(engine, converter)
			if err != nil {
				return err
			}
			pdf, err := renderer.Render(cmd.Context(), doc)
			if err != nil {
				return err
			}

			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = render.FileName(doc.Number)
			}
			if out == "-" {
				_, err = cmd.OutOrStdout().Write(pdf)
				return err
			}
			if err := os.WriteFile(out, pdf, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			commandLogger(cmd).Info("rendered invoice", "file", filepath.Clean(out), "bytes", len(pdf), "engine", engine)
			return nil
		},
	}
	cmd.Flags().StringP("out", "o", "", "Output file, - for stdout (default invoice-<number>.pdf)")
	cmd.Flags().String("engine", render.EngineGofpdf, "PDF engine: gofpdf or gotenberg")
	cmd.Flags().String("gotenberg-url", "http://127.0.0.1:3000", "Gotenberg base URL")
	return cmd
}

func documentOf(f draftFile) (render.Document, error) {
	parse := func(field, raw string) (time.Time, error) {
		if raw == "" {
			return time.Time{}, nil
		}
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: expected YYYY-MM-DD, got %q", field, raw)
		}
		return t, nil
	}
	issue, err := parse("issue_date", f.IssueDate)
	if err != nil {
		return render.Document{}, err
	}
	due, err := parse("due_date", f.DueDate)
	if err != nil {
		return render.Document{}, err
	}
	draft := f.DraftSpec.Draft()
	input := draft.Input()
	return render.Document{
		Number:         f.Number,
		IssueDate:      issue,
		DueDate:        due,
		Currency:       f.Currency,
		From:           f.From.render(),
		To:             f.To.render(),
		Items:          input.Items,
		Discount:       input.Discount,
		DiscountType:   input.DiscountType,
		Totals:         draft.Totals,
		PaymentMethod:  f.PaymentMethod,
		PaymentDetails: f.PaymentDetails,
		Notes:          f.Notes,
		Terms:          f.Terms,
	}, nil
}
