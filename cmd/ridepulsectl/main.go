package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ridepulse/ridepulse/internal/cli/ridepulsectl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(ridepulsectl.Run(ctx, os.Args[1:], ridepulsectl.Options{
		BaseURL: os.Getenv("RIDEPULSE_BASE_URL"),
		Timeout: 120 * time.Second,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}))
}
