package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/wekeepgrowing/todosync/pkg/config"
)

// ServiceName is the config file name and the environment variable prefix.
const ServiceName = "todosync"

type Config struct {
	Service    ServiceConfig
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	Todoist    TodoistConfig
	Retry      RetryConfig
	Dispatcher DispatcherConfig
	Worker     WorkerConfig
	Auth       AuthConfig
}

type LogConfig struct {
	Level       string
	Format      string
	Output      string
	FilePath    string
	Development bool
	GormLevel   string
}

type AuthConfig struct {
	// JWTSecret protects /api/v1 when set.
	JWTSecret string
	// AllowedRoles limits the role claim. Empty accepts any role.
	AllowedRoles []string
}

// Load reads the todosync config file and fills defaults.
func Load() (*Config, error) {
	src, err := pkgconfig.Load(ServiceName)
	if err != nil {
		return nil, err
	}
	return FromSource(src)
}

// FromSource maps an already loaded config source onto Config.
func FromSource(src pkgconfig.Config) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        src.GetString("service.name"),
			Environment: src.GetString("service.environment"),
			Version:     src.GetString("service.version"),
		},
		Server: ServerConfig{
			HTTP: HTTPConfig{
				Host: src.GetString("server.http.host"),
				Port: src.GetInt("server.http.port"),
			},
			GRPC: GRPCConfig{
				Host: src.GetString("server.grpc.host"),
				Port: src.GetInt("server.grpc.port"),
			},
		},
		Database: DatabaseConfig{
			Host:            src.GetString("database.host"),
			Port:            src.GetInt("database.port"),
			Name:            src.GetString("database.name"),
			User:            src.GetString("database.user"),
			Password:        src.GetString("database.password"),
			SSLMode:         src.GetString("database.ssl_mode"),
			MaxOpenConns:    src.GetInt("database.max_open_conns"),
			MaxIdleConns:    src.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: src.GetDuration("database.conn_max_lifetime"),
			ConnMaxIdleTime: src.GetDuration("database.conn_max_idle_time"),
			SlowThreshold:   src.GetDuration("database.slow_threshold"),
		},
		Redis: RedisConfig{
			Addr:     src.GetString("redis.addr"),
			Password: src.GetString("redis.password"),
			DB:       src.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:       src.GetString("log.level"),
			Format:      src.GetString("log.format"),
			Output:      src.GetString("log.output"),
			FilePath:    src.GetString("log.file_path"),
			Development: src.GetBool("log.development"),
			GormLevel:   src.GetString("log.gorm_level"),
		},
		Todoist: TodoistConfig{
			APIToken:       src.GetString("todoist.api_token"),
			BaseURL:        src.GetString("todoist.base_url"),
			WebhookSecret:  src.GetString("todoist.webhook_secret"),
			ProjectID:      src.GetString("todoist.project_id"),
			HiddenPriority: src.GetInt("todoist.hidden_priority"),
			HiddenLabel:    src.GetString("todoist.hidden_label"),
			RequestTimeout: src.GetDuration("todoist.request_timeout"),
		},
		Retry: RetryConfig{
			MaxAttempts:     src.GetInt("retry.max_attempts"),
			InitialInterval: src.GetDuration("retry.initial_interval"),
			MaxInterval:     src.GetDuration("retry.max_interval"),
		},
		Dispatcher: DispatcherConfig{
			QueueThreshold: src.GetInt("dispatcher.queue_threshold"),
			RateLimitTTL:   src.GetDuration("dispatcher.rate_limit_ttl"),
			RateLimitKey:   src.GetString("dispatcher.rate_limit_key"),
			QueueKey:       src.GetString("dispatcher.queue_key"),
		},
		Worker: WorkerConfig{
			Concurrency: src.GetInt("worker.concurrency"),
			PollTimeout: src.GetDuration("worker.poll_timeout"),
			MaxAttempts: src.GetInt("worker.max_attempts"),
		},
		Auth: AuthConfig{
			JWTSecret:    src.GetString("auth.jwt_secret"),
			AllowedRoles: src.GetStringSlice("auth.allowed_roles"),
		},
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = ServiceName
	}
	if c.Service.Environment == "" {
		c.Service.Environment = "development"
	}
	if c.Server.HTTP.Port == 0 {
		c.Server.HTTP.Port = 8080
	}
	if c.Server.GRPC.Port == 0 {
		c.Server.GRPC.Port = 9090
	}
	c.Database.applyDefaults()
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.GormLevel == "" {
		c.Log.GormLevel = "warn"
	}
	c.Todoist.applyDefaults()
	c.Retry.applyDefaults()
	c.Dispatcher.applyDefaults()
	c.Worker.applyDefaults()
}

// Validate reports settings that make the process unusable.
func (c *Config) Validate() error {
	if c.Todoist.HiddenPriority < 0 || c.Todoist.HiddenPriority > 4 {
		return fmt.Errorf("todoist.hidden_priority must be between 0 and 4, got %d", c.Todoist.HiddenPriority)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be positive, got %d", c.Retry.MaxAttempts)
	}
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("worker.concurrency must be positive, got %d", c.Worker.Concurrency)
	}
	return nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Service.Environment == "production"
}

// durationOr returns d, or def when d is not positive.
func durationOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
