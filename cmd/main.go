package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/desertthunder/stash/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := NewRunner(RunnerOpts{})
	if err := runner.App().Run(ctx, os.Args); err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			logger.Warn("interrupted")
			os.Exit(130)
		case errors.Is(err, shared.ErrUserAbandoned):
			logger.Warn("no input, giving up")
			os.Exit(1)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}
