package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/invoiceflow/invoiceflow/internal/calc"
	"github.com/invoiceflow/invoiceflow/internal/render"
)

// draftFile is the JSON accepted by compute and render.
type draftFile struct {
	calc.DraftSpec
	Number         string       `json:"number"`
	IssueDate      string       `json:"issue_date"`
	DueDate        string       `json:"due_date"`
	Currency       string       `json:"currency"`
	From           party        `json:"from"`
	To             party        `json:"to"`
	PaymentMethod  string       `json:"payment_method"`
	PaymentDetails string       `json:"payment_details"`
	Notes          string       `json:"notes"`
	Terms          string       `json:"terms"`
}

type party struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	TaxID   string `json:"tax_id"`
}

func (p party) render() render.Party {
	return render.Party{Name: p.Name, Email: p.Email, Phone: p.Phone, Address: p.Address, TaxID: p.TaxID}
}

func parseDraft(data []byte) (draftFile, error) {
	var f draftFile
	if err := json.Unmarshal(data, &f); err != nil {
		return draftFile{}, fmt.Errorf("decode draft: %w", err)
	}
	code := f.Currency
	if code == "" {
		code = "USD"
	}
	normalized, err := render.NormalizeCurrency(code)
	if err != nil {
		return draftFile{}, err
	}
	f.Currency = normalized
	return f, nil
}

func newComputeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compute [draft.json|-]",
		Short: "Compute the totals of a JSON draft",
		Example: `  invoicectl compute draft.json
  cat draft.json | invoicectl compute - --output json`,
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
			draft := f.DraftSpec.Draft()
			commandLogger(cmd).Debug("computed draft", "items", len(draft.Items), "tax_mode", draft.Tax.Mode())

			output, _ := cmd.Flags().GetString("output")
			switch output {
			case "json":
				return writeJSON(cmd.OutOrStdout(), draft.Totals)
			case "text":
				doc := render.Document{
					Currency:     f.Currency,
					Items:        draft.Input().Items,
					Discount:     draft.Input().Discount,
					DiscountType: draft.DiscountType,
					Totals:       draft.Totals,
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
				for _, line := range render.SummaryLines(doc) {
					fmt.Fprintf(tw, "%s\t%s\t\n", line.Label, render.FormatMoney(line.Amount, f.Currency))
				}
				return tw.Flush()
			default:
				return fmt.Errorf("unknown output %q (want text or json)", output)
			}
		},
	}
	cmd.Flags().StringP("output", "o", "text", "Output format: text or json")
	return cmd
}
