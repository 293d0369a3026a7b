package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	domainErrors "github.com/wekeepgrowing/todosync/internal/domain/errors"
	"github.com/wekeepgrowing/todosync/internal/domain/model"
	"github.com/wekeepgrowing/todosync/internal/domain/repository"
)

var ErrPoolStarted = errors.New("worker pool already started")

// Executor runs one dequeued job.
type Executor interface {
	Execute(ctx context.Context, job *model.Job) error
}

type Pool struct {
	queue       repository.JobQueue
	executor    Executor
	pollTimeout time.Duration
	logger      *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

func New(queue repository.JobQueue, executor Executor, pollTimeout time.Duration, logger *zap.Logger) *Pool {
	if pollTimeout <= 0 {
		pollTimeout = 5 * time.Second
	}
	return &Pool{
		queue:       queue,
		executor:    executor,
		pollTimeout: pollTimeout,
		logger:      logger,
	}
}

// Start launches n consumers. They run until ctx is done or Shutdown is called.
func (p *Pool) Start(ctx context.Context, n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return ErrPoolStarted
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	p.logger.Info("Worker pool started", zap.Int("workers", n))
	return nil
}

// Shutdown stops polling and waits for in-flight jobs, or for ctx.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Worker pool stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.logger.With(zap.Int("worker", id))

	for {
		if ctx.Err() != nil {
			return
		}

		job, err := p.queue.Dequeue(ctx, p.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("Failed to dequeue job", zap.Error(err))
			p.sleep(ctx, time.Second)
			continue
		}
		if job == nil {
			continue
		}

		deferred := p.execute(log, job)
		if err := p.queue.Ack(context.Background(), job); err != nil {
			log.Error("Failed to ack job", zap.String("job_id", job.ID), zap.Error(err))
		}
		if deferred {
			// flag is raised; give it time to clear before popping again
			p.sleep(ctx, p.pollTimeout)
		}
	}
}

// execute detaches from the pool context so a job picked up before
// shutdown is allowed to finish. It reports whether the job was deferred.
func (p *Pool) execute(log *zap.Logger, job *model.Job) bool {
	start := time.Now()
	err := p.executor.Execute(context.Background(), job)
	if errors.Is(err, domainErrors.ErrJobDeferred) {
		log.Info("Job deferred while rate limited",
			zap.String("job_id", job.ID),
			zap.String("job", job.Name),
			zap.Int("attempts", job.Attempts))
		return true
	}
	if err != nil {
		log.Error("Job failed",
			zap.String("job_id", job.ID),
			zap.String("job", job.Name),
			zap.Int("attempts", job.Attempts),
			zap.Error(err))
		return false
	}
	log.Info("Job done",
		zap.String("job_id", job.ID),
		zap.String("job", job.Name),
		zap.Duration("elapsed", time.Since(start)))
	return false
}

func (p *Pool) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
