package config

import "time"

type ServiceConfig struct {
	Name        string
	Environment string
	Version     string
}

type TodoistConfig struct {
	APIToken      string
	BaseURL       string
	WebhookSecret string
	// ProjectID is used when a template has no project of its own.
	ProjectID string
	// HiddenPriority and HiddenLabel are applied to tasks whose template
	// entry is marked hidden. Zero and empty disable them.
	HiddenPriority int
	HiddenLabel    string
	RequestTimeout time.Duration
}

func (c *TodoistConfig) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.todoist.com/api/v1"
	}
	c.RequestTimeout = durationOr(c.RequestTimeout, 15*time.Second)
}

type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (c *RetryConfig) applyDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	c.InitialInterval = durationOr(c.InitialInterval, time.Second)
	c.MaxInterval = durationOr(c.MaxInterval, 10*time.Second)
}

type DispatcherConfig struct {
	QueueThreshold int
	RateLimitTTL   time.Duration
	RateLimitKey   string
	QueueKey       string
}

func (c *DispatcherConfig) applyDefaults() {
	if c.QueueThreshold <= 0 {
		c.QueueThreshold = 10
	}
	c.RateLimitTTL = durationOr(c.RateLimitTTL, 60*time.Second)
	if c.RateLimitKey == "" {
		c.RateLimitKey = "todosync:todoist_api_rate_limited"
	}
	if c.QueueKey == "" {
		c.QueueKey = "todosync:jobs"
	}
}

type WorkerConfig struct {
	Concurrency int
	PollTimeout time.Duration
	// MaxAttempts bounds how often a rate limited job is re-enqueued.
	MaxAttempts int
}

func (c *WorkerConfig) applyDefaults() {
	if c.Concurrency == 0 {
		c.Concurrency = 2
	}
	c.PollTimeout = durationOr(c.PollTimeout, 5*time.Second)
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
}
