package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/cardinal-cryptography/electionsx/app/monitor"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := monitor.Initialize(ctx)
	if err != nil {
		panic(err)
	}

	// Baseline before cron
	app.CheckOnce(ctx)

	// Start cron scheduler
	app.StartCron()

	// Setup server
	app.SetupServer()

	// Start server
	app.Start(ctx)
}
