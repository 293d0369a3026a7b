package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainErrors "github.com/wekeepgrowing/todosync/internal/domain/errors"
	"github.com/wekeepgrowing/todosync/internal/domain/model"
)

// chanQueue blocks in Dequeue like BLMOVE does.
type chanQueue struct {
	jobs  chan *model.Job
	acked chan string
}

func newChanQueue() *chanQueue {
	return &chanQueue{jobs: make(chan *model.Job, 16), acked: make(chan string, 64)}
}

func (q *chanQueue) Ack(_ context.Context, job *model.Job) error {
	q.acked <- job.ID
	return nil
}

func (q *chanQueue) Recover(context.Context) (int, error) {
	return 0, nil
}

func (q *chanQueue) Enqueue(_ context.Context, job *model.Job) error {
	q.jobs <- job
	return nil
}

func (q *chanQueue) Dequeue(ctx context.Context, timeout time.Duration) (*model.Job, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-time.After(timeout):
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *chanQueue) Len(context.Context) (int64, error) {
	return int64(len(q.jobs)), nil
}

type recordingExecutor struct {
	mu    sync.Mutex
	seen  []string
	done  chan string
	delay time.Duration
	err   error
}

func newRecordingExecutor() *recordingExecutor {
	return &recordingExecutor{done: make(chan string, 16)}
}

func (e *recordingExecutor) Execute(_ context.Context, job *model.Job) error {
	time.Sleep(e.delay)
	e.mu.Lock()
	e.seen = append(e.seen, job.ID)
	e.mu.Unlock()
	e.done <- job.ID
	return e.err
}

func waitJob(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case id := <-ch:
		return id
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for job")
		return ""
	}
}

func TestPool_ExecutesQueuedJobs(t *testing.T) {
	queue := newChanQueue()
	exec := newRecordingExecutor()
	pool := New(queue, exec, 20*time.Millisecond, zap.NewNop())

	require.NoError(t, pool.Start(context.Background(), 2))
	t.Cleanup(func() { _ = pool.Shutdown(context.Background()) })

	require.NoError(t, queue.Enqueue(context.Background(), &model.Job{ID: "a", Name: model.JobMoveTask}))
	require.NoError(t, queue.Enqueue(context.Background(), &model.Job{ID: "b", Name: model.JobCreateTasks}))

	got := []string{waitJob(t, exec.done), waitJob(t, exec.done)}
	assert.ElementsMatch(t, []string{"a", "b"}, got)

	acked := []string{waitJob(t, queue.acked), waitJob(t, queue.acked)}
	assert.ElementsMatch(t, []string{"a", "b"}, acked)
}

func TestPool_FailedJobDoesNotStopWorker(t *testing.T) {
	queue := newChanQueue()
	exec := newRecordingExecutor()
	exec.err = errors.New("boom")
	pool := New(queue, exec, 20*time.Millisecond, zap.NewNop())

	require.NoError(t, pool.Start(context.Background(), 1))
	t.Cleanup(func() { _ = pool.Shutdown(context.Background()) })

	require.NoError(t, queue.Enqueue(context.Background(), &model.Job{ID: "1"}))
	require.NoError(t, queue.Enqueue(context.Background(), &model.Job{ID: "2"}))

	assert.Equal(t, "1", waitJob(t, exec.done))
	assert.Equal(t, "2", waitJob(t, exec.done))
	// failed jobs are acked too; the executor already decided their fate
	assert.Equal(t, "1", waitJob(t, queue.acked))
}

func TestPool_ShutdownWaitsForInFlightJob(t *testing.T) {
	queue := newChanQueue()
	exec := newRecordingExecutor()
	exec.delay = 50 * time.Millisecond
	pool := New(queue, exec, 20*time.Millisecond, zap.NewNop())

	require.NoError(t, pool.Start(context.Background(), 1))
	require.NoError(t, queue.Enqueue(context.Background(), &model.Job{ID: "slow"}))

	// let the worker pick the job up
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))

	exec.mu.Lock()
	defer exec.mu.Unlock()
	assert.Equal(t, []string{"slow"}, exec.seen)
}

// deferringExecutor re-queues every job while limited is set, like the
// dispatcher does while the rate-limit flag is raised.
type deferringExecutor struct {
	*recordingExecutor
	queue   *chanQueue
	mu      sync.Mutex
	limited bool
	passes  int
}

func (e *deferringExecutor) Execute(ctx context.Context, job *model.Job) error {
	e.mu.Lock()
	limited := e.limited
	e.passes++
	e.mu.Unlock()
	if limited {
		_ = e.queue.Enqueue(ctx, job)
		return fmt.Errorf("job %s: %w", job.ID, domainErrors.ErrJobDeferred)
	}
	return e.recordingExecutor.Execute(ctx, job)
}

func TestPool_DeferredJobPausesAndRunsLater(t *testing.T) {
	queue := newChanQueue()
	exec := &deferringExecutor{recordingExecutor: newRecordingExecutor(), queue: queue, limited: true}
	pool := New(queue, exec, 20*time.Millisecond, zap.NewNop())

	require.NoError(t, pool.Start(context.Background(), 1))
	t.Cleanup(func() { _ = pool.Shutdown(context.Background()) })
	require.NoError(t, queue.Enqueue(context.Background(), &model.Job{ID: "later"}))

	time.Sleep(100 * time.Millisecond)
	exec.mu.Lock()
	passes := exec.passes
	exec.limited = false
	exec.mu.Unlock()

	// one pass per poll interval rather than a hot loop
	assert.LessOrEqual(t, passes, 10)
	assert.Equal(t, "later", waitJob(t, exec.done))
}

func TestPool_StartTwice(t *testing.T) {
	pool := New(newChanQueue(), newRecordingExecutor(), 20*time.Millisecond, zap.NewNop())

	require.NoError(t, pool.Start(context.Background(), 0))
	assert.ErrorIs(t, pool.Start(context.Background(), 1), ErrPoolStarted)
	assert.NoError(t, pool.Shutdown(context.Background()))
}
