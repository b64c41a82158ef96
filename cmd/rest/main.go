package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"ai-finance-assistant-be/internal/bootstrap"
	"ai-finance-assistant-be/internal/config"
	"ai-finance-assistant-be/internal/server"
	"ai-finance-assistant-be/internal/tracer"
	"ai-finance-assistant-be/pkg/database"

	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Tracer is a no-op unless OTEL_ENABLED=true
	shutdownTracer := tracer.InitTracer(cfg.App.Environment)
	defer shutdownTracer(context.Background())

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.IsProduction())
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(gormDB, cfg)
	if err != nil {
		log.Fatalf("Bootstrap failed: %v", err)
	}
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. Background workers and server share one lifecycle.
	srv := server.New(cfg, container)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return container.AuditWriter.Run(gctx)
	})
	g.Go(func() error {
		return container.ConsumerService.Consume(gctx)
	})
	if container.AlertService != nil {
		// Alerts are best-effort; a failed subscription is logged by the service.
		g.Go(func() error {
			_ = container.AlertService.Start(gctx)
			return nil
		})
	}
	g.Go(srv.Run)
	g.Go(func() error {
		<-gctx.Done()
		return srv.Shutdown()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Shutdown with error: %v", err)
	}
}
