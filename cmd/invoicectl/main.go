// Command invoicectl is the operator CLI: it computes and renders drafts
// offline, applies migrations and pokes the job queue.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "invoicectl: %v\n", err)
		stop()
		os.Exit(1)
	}
}
