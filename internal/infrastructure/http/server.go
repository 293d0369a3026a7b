package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	handlers "github.com/wekeepgrowing/todosync/internal/adapter/handler/http"
	"github.com/wekeepgrowing/todosync/internal/config"
	"github.com/wekeepgrowing/todosync/internal/middleware/auth"
	"github.com/wekeepgrowing/todosync/pkg/logger"
)

// Services are the use cases behind the HTTP routes.
type Services struct {
	Webhooks    handlers.WebhookProcessor
	TaskGroups  handlers.TaskGroupService
	Templates   handlers.TemplateService
	Rules       handlers.RuleService
	SectionSync handlers.SectionSyncService
}

// Metrics is where request metrics are registered and served from.
type Metrics struct {
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	services Services
	metrics  Metrics
}

func NewServer(cfg *config.Config, logger *zap.Logger, services Services, metrics Metrics) *Server {
	s := &Server{
		config:   cfg,
		logger:   logger,
		echo:     echo.New(),
		services: services,
		metrics:  metrics,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	addr := s.config.Server.HTTP.Addr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupMiddleware() {
	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewRequestValidator()
	logger.WithEchoLogger(e, s.logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(logger.NewEchoRequestLogger(s.logger))

	if s.metrics.Registerer != nil {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Subsystem:  "todosync",
			Registerer: s.metrics.Registerer,
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/metrics" || c.Path() == "/health"
			},
		}))
	}
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	if s.metrics.Gatherer != nil {
		s.echo.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
			Gatherer: s.metrics.Gatherer,
		}))
	}

	webhookHandler := handlers.NewTodoistWebhookHandler(s.logger, s.services.Webhooks, s.config.Todoist.WebhookSecret)
	taskGroupHandler := handlers.NewTaskGroupHandler(s.logger, s.services.TaskGroups)
	adminHandler := handlers.NewAdminHandler(s.logger, s.services.Templates, s.services.Rules,
		s.services.SectionSync, s.config.Todoist.ProjectID)

	// Non-POST requests get 405 from the handler itself.
	s.echo.Any("/webhooks/todoist", webhookHandler.Handle)

	v1 := s.echo.Group("/api/v1")
	if s.config.Auth.JWTSecret != "" {
		v1.Use(auth.JWTMiddleware(auth.JWTConfig{
			Secret:       s.config.Auth.JWTSecret,
			Logger:       s.logger,
			AllowedRoles: s.config.Auth.AllowedRoles,
		}))
	} else {
		s.logger.Warn("auth.jwt_secret is empty; admin API is unauthenticated")
	}

	v1.POST("/task-groups", taskGroupHandler.Create)
	v1.POST("/tasks/:id/push", taskGroupHandler.Push)
	v1.POST("/templates", adminHandler.CreateTemplate)
	v1.POST("/rules", adminHandler.CreateRule)
	v1.POST("/sections/sync", adminHandler.SyncSections)
}
