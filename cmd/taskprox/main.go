package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/existflow/taskprox/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.ExecuteContext(ctx); err != nil {
		// cobra already printed the error
		stop()
		os.Exit(1)
	}
}
