package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"roomnav/internal/app"
	"roomnav/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := app.ConfigFromEnv(os.Getenv, telemetry.WrapLogger(log.Default()))
	if err := app.Run(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}
}
