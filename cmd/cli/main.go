// Package main is the entry point for pipeline-cost CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"pipeline-cost/cmd/cli/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
