package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/todosync/internal/config"
	"github.com/wekeepgrowing/todosync/internal/infrastructure/bootstrap"
	grpcServer "github.com/wekeepgrowing/todosync/internal/infrastructure/grpc"
	httpServer "github.com/wekeepgrowing/todosync/internal/infrastructure/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := bootstrap.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{Migrate: true, Registerer: registry})
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer app.Close()

	grpcSrv := grpcServer.NewServer(cfg, logger)
	httpSrv := httpServer.NewServer(cfg, logger, httpServer.Services{
		Webhooks:    app.Webhooks,
		TaskGroups:  app.TaskGroups,
		Templates:   app.Templates,
		Rules:       app.Rules,
		SectionSync: app.SectionSync,
	}, httpServer.Metrics{Registerer: registry, Gatherer: registry})

	go func() {
		if err := grpcSrv.Start(); err != nil {
			logger.Fatal("Failed to start gRPC server", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.Start(); err != nil {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down servers...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := grpcSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown gRPC server", zap.Error(err))
	}

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	logger.Info("Servers shut down successfully")
}
