package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/rl1809/apartment-sales/internal/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize app: %v", err)
	}

	runErr := app.Run(ctx)
	if runErr != nil {
		app.logger.Error("server error", runErr, nil)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	app.Shutdown(shutdownCtx)

	if runErr != nil {
		log.Fatal(runErr)
	}
}
