// Command augr is an offline-first, patch-based time tracker.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/augr/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, &cli.RootOptions{}, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
