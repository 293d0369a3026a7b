// Package bootstrap wires configuration into the repositories, clients and
// services shared by every todosync process.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/todosync/internal/config"
	"github.com/wekeepgrowing/todosync/internal/domain/repository"
	"github.com/wekeepgrowing/todosync/internal/infrastructure/database"
	"github.com/wekeepgrowing/todosync/internal/infrastructure/metrics"
	"github.com/wekeepgrowing/todosync/internal/infrastructure/provider/todoist"
	"github.com/wekeepgrowing/todosync/internal/infrastructure/queue"
	"github.com/wekeepgrowing/todosync/internal/infrastructure/ratelimit"
	"github.com/wekeepgrowing/todosync/internal/usecase"
	"github.com/wekeepgrowing/todosync/pkg/logger"
	"github.com/wekeepgrowing/todosync/pkg/messaging"
)

// NewLogger builds the process logger from the log section.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logger.NewZapLogger(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		FilePath:    cfg.Log.FilePath,
		Development: cfg.Log.Development,
	})
	if err != nil {
		return nil, err
	}
	return log.With(
		zap.String("service", cfg.Service.Name),
		zap.String("env", cfg.Service.Environment),
	), nil
}

// App holds the long lived dependencies of a process.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	DB    *gorm.DB
	Redis *redis.Client
	Repos *database.Repositories
	Queue repository.JobQueue

	Todoist    *todoist.Client
	Metrics    *metrics.Recorder
	Expander   *usecase.Expander
	Dispatcher *usecase.Dispatcher
	RuleEngine *usecase.RuleEngine

	Webhooks    *usecase.WebhookService
	TaskGroups  *usecase.TaskGroupService
	Templates   *usecase.TemplateService
	Rules       *usecase.RuleService
	SectionSync *usecase.SectionSyncService
}

// Options selects the optional parts of New.
type Options struct {
	// Migrate runs the schema migration after connecting.
	Migrate bool
	// Registerer receives the engine counters. Nil disables them.
	Registerer prometheus.Registerer
}

// New connects to Postgres and Redis and builds every service.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, opts Options) (*App, error) {
	db, err := database.NewConnection(&cfg.Database, cfg.Log.GormLevel, log)
	if err != nil {
		return nil, err
	}

	if opts.Migrate {
		if err := database.Migrate(db, log); err != nil {
			_ = database.Close(db, log)
			return nil, err
		}
	}

	rdb, err := messaging.NewRedisClient(ctx, messaging.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		_ = database.Close(db, log)
		return nil, err
	}

	app := &App{
		Config: cfg,
		Logger: log,
		DB:     db,
		Redis:  rdb,
		Repos:  database.NewRepositories(db, log),
		Queue:  queue.NewJobQueue(messaging.NewListQueue(rdb), cfg.Dispatcher.QueueKey),
	}

	var recorder usecase.Recorder = usecase.NoopRecorder
	if opts.Registerer != nil {
		app.Metrics, err = metrics.NewRecorder(opts.Registerer)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		recorder = app.Metrics
	}

	app.build(recorder)
	return app, nil
}

func (a *App) build(recorder usecase.Recorder) {
	cfg := a.Config
	repos := a.Repos

	a.Todoist = todoist.NewClient(&cfg.Todoist, &cfg.Retry, a.Logger)
	limiter := ratelimit.NewRedisStore(a.Redis, cfg.Dispatcher.RateLimitKey)

	a.Expander = usecase.NewExpander(repos.Task, a.Todoist, usecase.ExpanderConfig{
		DefaultProjectID: cfg.Todoist.ProjectID,
		HiddenPriority:   cfg.Todoist.HiddenPriority,
		HiddenLabel:      cfg.Todoist.HiddenLabel,
	}, a.Logger)

	a.Dispatcher = usecase.NewDispatcher(repos.Template, a.Expander, a.Todoist, limiter, a.Queue,
		usecase.DispatcherConfig{
			QueueThreshold: cfg.Dispatcher.QueueThreshold,
			RateLimitTTL:   cfg.Dispatcher.RateLimitTTL,
			MaxAttempts:    cfg.Worker.MaxAttempts,
		}, recorder, a.Logger)

	a.RuleEngine = usecase.NewRuleEngine(repos.Task, repos.Template, repos.Rule, repos.Section, a.Dispatcher, a.Logger)
	a.Webhooks = usecase.NewWebhookService(repos.Task, a.RuleEngine, recorder, a.Logger)
	a.TaskGroups = usecase.NewTaskGroupService(repos.Template, a.Expander, a.Dispatcher)
	a.Templates = usecase.NewTemplateService(repos.Template, repos.Label, a.Logger)
	a.Rules = usecase.NewRuleService(repos.Rule, repos.Label, repos.Section, a.Logger)
	a.SectionSync = usecase.NewSectionSyncService(a.Todoist, repos.Section, a.Logger)
}

// Close releases Redis and the database pool.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("Failed to close redis client", zap.Error(err))
		}
	}
	if a.DB != nil {
		if err := database.Close(a.DB, a.Logger); err != nil {
			a.Logger.Error("Failed to close database connection", zap.Error(err))
		}
	}
}
