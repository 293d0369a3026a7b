package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/wekeepgrowing/todosync/internal/domain/errors"
	"github.com/wekeepgrowing/todosync/internal/domain/model"
	"github.com/wekeepgrowing/todosync/internal/domain/provider"
	"github.com/wekeepgrowing/todosync/internal/domain/repository"
)

const (
	operationCreate = "create_tasks"
	operationMove   = "move_task"

	modeSync     = "sync"
	modeQueued   = "queued"
	modeRequeued = "requeued"
	modeDeferred = "deferred"
)

var jobOperations = map[string]string{
	model.JobCreateTasks: operationCreate,
	model.JobMoveTask:    operationMove,
}

// DispatcherConfig controls when work is deferred.
type DispatcherConfig struct {
	// QueueThreshold is the queue depth at which callers stop running
	// synchronously.
	QueueThreshold int
	// RateLimitTTL is how long the rate-limit flag stays raised when the
	// server does not ask for longer.
	RateLimitTTL time.Duration
	// MaxAttempts bounds how often a rate limited job goes back on the queue.
	MaxAttempts int
}

// DispatchResult is returned by DispatchCreate. A queued result carries no
// parent and a zero count.
type DispatchResult struct {
	Queued bool
	Parent *model.Task
	Count  int
}

// Dispatcher runs outbound work on the caller's goroutine while the
// upstream is healthy and the queue is short, and defers it otherwise.
type Dispatcher struct {
	templates repository.TemplateRepository
	expander  *Expander
	provider  provider.TaskProvider
	limiter   repository.RateLimitStore
	queue     repository.JobQueue
	cfg       DispatcherConfig
	metrics   Recorder
	logger    *zap.Logger
	now       func() time.Time
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(
	templates repository.TemplateRepository,
	expander *Expander,
	taskProvider provider.TaskProvider,
	limiter repository.RateLimitStore,
	queue repository.JobQueue,
	cfg DispatcherConfig,
	metrics Recorder,
	logger *zap.Logger,
) *Dispatcher {
	if cfg.QueueThreshold <= 0 {
		cfg.QueueThreshold = 10
	}
	if cfg.RateLimitTTL <= 0 {
		cfg.RateLimitTTL = 60 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Dispatcher{
		templates: templates,
		expander:  expander,
		provider:  taskProvider,
		limiter:   limiter,
		queue:     queue,
		cfg:       cfg,
		metrics:   recorderOrNoop(metrics),
		logger:    logger,
		now:       time.Now,
	}
}

// IsRateLimited reads the shared flag. A failed read counts as clear.
func (d *Dispatcher) IsRateLimited(ctx context.Context) bool {
	limited, err := d.limiter.IsRateLimited(ctx)
	if err != nil {
		d.logger.Warn("Failed to read rate-limit flag; assuming clear", zap.Error(err))
		return false
	}
	return limited
}

// isUnderLoad compares the queue depth with the threshold. A failed read
// counts as not loaded.
func (d *Dispatcher) isUnderLoad(ctx context.Context) bool {
	depth, err := d.queue.Len(ctx)
	if err != nil {
		d.logger.Warn("Failed to read queue depth; assuming idle", zap.Error(err))
		return false
	}
	if depth >= int64(d.cfg.QueueThreshold) {
		d.logger.Debug("Queue under load",
			zap.Int64("depth", depth),
			zap.Int("threshold", d.cfg.QueueThreshold))
		return true
	}
	return false
}

// ShouldRunSynchronously is true when the rate-limit flag is clear and the
// queue is shorter than the threshold.
func (d *Dispatcher) ShouldRunSynchronously(ctx context.Context) bool {
	return !d.IsRateLimited(ctx) && !d.isUnderLoad(ctx)
}

// DispatchCreate expands a template now, or queues the expansion.
func (d *Dispatcher) DispatchCreate(ctx context.Context, templateID int64, tokens map[string]string, description string) (*DispatchResult, error) {
	payload := model.CreateTasksPayload{TemplateID: templateID, Tokens: tokens, Description: description}

	if !d.ShouldRunSynchronously(ctx) {
		d.logger.Info("Queuing create_tasks", zap.Int64("template_id", templateID))
		if err := d.enqueue(ctx, model.JobCreateTasks, payload, 0); err != nil {
			return nil, err
		}
		d.metrics.ObserveDispatch(operationCreate, modeQueued)
		return &DispatchResult{Queued: true}, nil
	}

	result, err := d.createTasks(ctx, payload)
	if err != nil {
		if !provider.IsRateLimited(err) {
			return nil, err
		}
		d.logger.Warn("Rate limit hit during create_tasks; re-queuing",
			zap.Int64("template_id", templateID),
			zap.Error(err))
		d.raiseRateLimit(ctx, err)
		if err := d.enqueue(ctx, model.JobCreateTasks, payload, 0); err != nil {
			return nil, err
		}
		d.metrics.ObserveDispatch(operationCreate, modeQueued)
		return &DispatchResult{Queued: true}, nil
	}

	d.metrics.ObserveDispatch(operationCreate, modeSync)
	return &DispatchResult{Parent: result.Parent, Count: result.Count}, nil
}

// DispatchMove moves a task now, or queues the move.
func (d *Dispatcher) DispatchMove(ctx context.Context, externalID, sectionID string) error {
	payload := model.MoveTaskPayload{ExternalID: externalID, SectionID: sectionID}

	if !d.ShouldRunSynchronously(ctx) {
		d.logger.Info("Queuing move_task",
			zap.String("external_id", externalID),
			zap.String("section_id", sectionID))
		if err := d.enqueue(ctx, model.JobMoveTask, payload, 0); err != nil {
			return err
		}
		d.metrics.ObserveDispatch(operationMove, modeQueued)
		return nil
	}

	if err := d.moveTask(ctx, payload); err != nil {
		if !provider.IsRateLimited(err) {
			return err
		}
		d.logger.Warn("Rate limit hit during move_task; re-queuing",
			zap.String("external_id", externalID),
			zap.Error(err))
		d.raiseRateLimit(ctx, err)
		if err := d.enqueue(ctx, model.JobMoveTask, payload, 0); err != nil {
			return err
		}
		d.metrics.ObserveDispatch(operationMove, modeQueued)
		return nil
	}

	d.metrics.ObserveDispatch(operationMove, modeSync)
	return nil
}

// Execute runs a dequeued job through the same code as the synchronous
// path. While the rate-limit flag is raised the job goes back on the queue
// untouched. A job that hits a 429 itself raises the flag and is re-queued
// until it has used MaxAttempts. Both cases return ErrJobDeferred.
func (d *Dispatcher) Execute(ctx context.Context, job *model.Job) error {
	operation, ok := jobOperations[job.Name]
	if !ok {
		return fmt.Errorf("%w: %q", domainErrors.ErrUnknownJob, job.Name)
	}

	if d.IsRateLimited(ctx) {
		if err := d.requeue(ctx, job, job.Attempts); err != nil {
			return err
		}
		d.metrics.ObserveDispatch(operation, modeDeferred)
		return fmt.Errorf("job %s: %w", job.ID, domainErrors.ErrJobDeferred)
	}

	var err error
	switch job.Name {
	case model.JobCreateTasks:
		var payload model.CreateTasksPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("failed to decode %s payload: %w", job.Name, err)
		}
		_, err = d.createTasks(ctx, payload)
	case model.JobMoveTask:
		var payload model.MoveTaskPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("failed to decode %s payload: %w", job.Name, err)
		}
		err = d.moveTask(ctx, payload)
	}

	if err == nil {
		d.metrics.ObserveDispatch(operation, modeSync)
		return nil
	}
	if !provider.IsRateLimited(err) {
		return err
	}

	d.raiseRateLimit(ctx, err)

	attempts := job.Attempts + 1
	if attempts >= d.cfg.MaxAttempts {
		return fmt.Errorf("job %s gave up after %d attempts: %w", job.ID, attempts, err)
	}

	d.logger.Warn("Rate limit hit in worker; re-queuing job",
		zap.String("job_id", job.ID),
		zap.String("job", job.Name),
		zap.Int("attempts", attempts))

	if err := d.requeue(ctx, job, attempts); err != nil {
		return err
	}
	d.metrics.ObserveDispatch(operation, modeRequeued)
	return fmt.Errorf("job %s: %w", job.ID, domainErrors.ErrJobDeferred)
}

func (d *Dispatcher) requeue(ctx context.Context, job *model.Job, attempts int) error {
	requeued := *job
	requeued.Attempts = attempts
	requeued.EnqueuedAt = d.now()
	if err := d.queue.Enqueue(ctx, &requeued); err != nil {
		return fmt.Errorf("failed to re-queue job %s: %w", job.ID, err)
	}
	return nil
}

func (d *Dispatcher) createTasks(ctx context.Context, payload model.CreateTasksPayload) (*ExpandResult, error) {
	template, err := d.templates.GetByID(ctx, payload.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	if template == nil {
		return nil, fmt.Errorf("%w: %d", domainErrors.ErrTemplateNotFound, payload.TemplateID)
	}
	return d.expander.Expand(ctx, template, payload.Tokens, payload.Description)
}

func (d *Dispatcher) moveTask(ctx context.Context, payload model.MoveTaskPayload) error {
	if err := d.provider.MoveTask(ctx, payload.ExternalID, payload.SectionID); err != nil {
		return fmt.Errorf("failed to move task %s: %w", payload.ExternalID, err)
	}
	d.logger.Info("Task moved",
		zap.String("external_id", payload.ExternalID),
		zap.String("section_id", payload.SectionID))
	return nil
}

// raiseRateLimit sets the shared flag for the configured TTL, or for the
// server's Retry-After when that is longer.
func (d *Dispatcher) raiseRateLimit(ctx context.Context, cause error) {
	ttl := d.cfg.RateLimitTTL
	if retryAfter := provider.RetryAfter(cause); retryAfter > ttl {
		ttl = retryAfter
	}
	if err := d.limiter.SetRateLimited(ctx, ttl); err != nil {
		d.logger.Error("Failed to raise rate-limit flag", zap.Error(err))
		return
	}
	d.metrics.ObserveRateLimit()
	d.logger.Warn("Todoist rate limit hit; pausing synchronous calls", zap.Duration("ttl", ttl))
}

func (d *Dispatcher) enqueue(ctx context.Context, name string, payload interface{}, attempts int) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", name, err)
	}
	job := &model.Job{
		ID:         uuid.NewString(),
		Name:       name,
		Payload:    raw,
		Attempts:   attempts,
		EnqueuedAt: d.now(),
	}
	if err := d.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", name, err)
	}
	d.logger.Info("Job enqueued", zap.String("job_id", job.ID), zap.String("job", name))
	return nil
}
