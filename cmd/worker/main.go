package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/wekeepgrowing/todosync/internal/config"
	"github.com/wekeepgrowing/todosync/internal/infrastructure/bootstrap"
	"github.com/wekeepgrowing/todosync/internal/infrastructure/worker"
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
	logger = logger.With(zap.String("process", "worker"))
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{})
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer app.Close()

	// jobs a previous worker popped but never finished
	if n, err := app.Queue.Recover(ctx); err != nil {
		logger.Error("Failed to recover in-flight jobs", zap.Error(err))
	} else if n > 0 {
		logger.Info("Recovered in-flight jobs", zap.Int("count", n))
	}

	pool := worker.New(app.Queue, app.Dispatcher, cfg.Worker.PollTimeout, logger)
	if err := pool.Start(ctx, cfg.Worker.Concurrency); err != nil {
		logger.Fatal("Failed to start worker pool", zap.Error(err))
	}

	<-ctx.Done()
	logger.Info("Shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := pool.Shutdown(shutdownCtx); err != nil {
		logger.Error("Worker pool did not stop in time", zap.Error(err))
	}
}
