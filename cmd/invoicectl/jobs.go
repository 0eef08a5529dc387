package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/invoiceflow/invoiceflow/cmd/invoiceflow/cli"
	"github.com/invoiceflow/invoiceflow/internal/app"
	"github.com/invoiceflow/invoiceflow/jobs"
)

// openJobs is replaced in tests.
var openJobs = func() (*cli.JobsCLI, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	return cli.NewJobsCLI(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}), nil
}

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Trigger and inspect background jobs",
	}
	cmd.AddCommand(newJobsTriggerCmd(), newJobsStatsCmd(), newJobsScheduledCmd())
	return cmd
}

func newJobsTriggerCmd() *cobra.Command {
	var opts cli.TriggerOptions
	cmd := &cobra.Command{
		Use:   "trigger <job>",
		Short: "Enqueue a job now",
		Long: fmt.Sprintf(`Enqueue a job now. Supported jobs:

  %s   mark sent invoices past their due date as overdue (--as-of)
  %s      render and store an invoice PDF (--owner, --invoice)
  %s     purge expired idempotency keys`, jobs.TaskOverdueSweep, jobs.TaskRenderPDF, jobs.TaskKeysCleanup),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jc, err := openJobs()
			if err != nil {
				return err
			}
			defer jc.Close()

			info, err := jc.Trigger(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.AsOf, "as-of", "", "Sweep date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&opts.OwnerID, "owner", "", "Invoice owner for render")
	cmd.Flags().StringVar(&opts.InvoiceID, "invoice", "", "Invoice id for render")
	return cmd
}

func newJobsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show queue counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jc, err := openJobs()
			if err != nil {
				return err
			}
			defer jc.Close()

			stats, err := jc.InspectQueue(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}
}

func newJobsScheduledCmd() *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "scheduled",
		Short: "List scheduled tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jc, err := openJobs()
			if err != nil {
				return err
			}
			defer jc.Close()

			tasks, err := jc.ListScheduled(cmd.Context(), size)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tNEXT RUN")
			for _, t := range tasks {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ID, t.Type, t.NextProcessAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&size, "limit", 10, "Maximum tasks to list")
	return cmd
}
