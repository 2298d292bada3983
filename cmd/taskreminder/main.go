package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"task-reminder/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("command failed", "error", err)
		stop()
		os.Exit(1)
	}
}
