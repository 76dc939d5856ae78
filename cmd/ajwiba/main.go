// Package main is the ajwiba CLI entry point.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hyperjump/ajwiba/internal/cli"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.Version = version
	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
