package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Simplici0/albion-craft/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.Execute(ctx)
}
