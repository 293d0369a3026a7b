// Package queue stores deferred jobs in a Redis list.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wekeepgrowing/todosync/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/todosync/internal/domain/repository"
	"github.com/wekeepgrowing/todosync/pkg/messaging"
)

type jobQueue struct {
	list messaging.ListQueue
	key  string

	mu sync.Mutex
	// raw payloads of dequeued jobs, needed to ack them byte for byte
	inFlight map[*model.Job][]byte
}

// NewJobQueue returns a JobQueue storing JSON encoded jobs under key.
func NewJobQueue(list messaging.ListQueue, key string) domainRepo.JobQueue {
	return &jobQueue{list: list, key: key, inFlight: make(map[*model.Job][]byte)}
}

func (q *jobQueue) Enqueue(ctx context.Context, job *model.Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job %s: %w", job.ID, err)
	}
	return q.list.Push(ctx, q.key, raw)
}

func (q *jobQueue) Dequeue(ctx context.Context, timeout time.Duration) (*model.Job, error) {
	raw, err := q.list.Pop(ctx, q.key, timeout)
	if errors.Is(err, messaging.ErrEmpty) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		// nothing can ever run it; drop it so Recover does not bring it back
		if ackErr := q.list.Ack(ctx, q.key, raw); ackErr != nil {
			return nil, fmt.Errorf("failed to decode job: %w (ack: %v)", err, ackErr)
		}
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}

	q.mu.Lock()
	q.inFlight[&job] = raw
	q.mu.Unlock()
	return &job, nil
}

func (q *jobQueue) Ack(ctx context.Context, job *model.Job) error {
	q.mu.Lock()
	raw, ok := q.inFlight[job]
	delete(q.inFlight, job)
	q.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s was not dequeued from this queue", job.ID)
	}
	return q.list.Ack(ctx, q.key, raw)
}

func (q *jobQueue) Recover(ctx context.Context) (int, error) {
	return q.list.Recover(ctx, q.key)
}

func (q *jobQueue) Len(ctx context.Context) (int64, error) {
	return q.list.Len(ctx, q.key)
}
