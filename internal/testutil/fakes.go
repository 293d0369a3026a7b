package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wekeepgrowing/todosync/internal/domain/model"
	"github.com/wekeepgrowing/todosync/internal/domain/provider"
)

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// RateLimitStore keeps the flag expiry in memory.
type RateLimitStore struct {
	mu      sync.Mutex
	clock   *Clock
	until   time.Time
	LastTTL time.Duration
	Err     error
}

func NewRateLimitStore(clock *Clock) *RateLimitStore {
	return &RateLimitStore{clock: clock}
}

func (s *RateLimitStore) SetRateLimited(_ context.Context, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.until = s.clock.Now().Add(ttl)
	s.LastTTL = ttl
	return nil
}

func (s *RateLimitStore) IsRateLimited(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	return s.clock.Now().Before(s.until), nil
}

// JobQueue is a FIFO slice.
type JobQueue struct {
	mu     sync.Mutex
	jobs   []*model.Job
	acked  []string
	LenErr error
}

func NewJobQueue() *JobQueue {
	return &JobQueue{}
}

func (q *JobQueue) Enqueue(_ context.Context, job *model.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	cp := *job
	q.jobs = append(q.jobs, &cp)
	return nil
}

func (q *JobQueue) Dequeue(ctx context.Context, _ time.Duration) (*model.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(q.jobs) == 0 {
		return nil, nil
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, nil
}

func (q *JobQueue) Len(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.LenErr != nil {
		return 0, q.LenErr
	}
	return int64(len(q.jobs)), nil
}

func (q *JobQueue) Ack(_ context.Context, job *model.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, job.ID)
	return nil
}

func (q *JobQueue) Recover(context.Context) (int, error) {
	return 0, nil
}

// Acked returns the ids of acknowledged jobs in order.
func (q *JobQueue) Acked() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.acked...)
}

// Jobs returns a snapshot of the queued jobs.
func (q *JobQueue) Jobs() []*model.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*model.Job(nil), q.jobs...)
}

// MoveCall records one MoveTask call.
type MoveCall struct {
	ExternalID string
	SectionID  string
}

// Provider records calls and hands out sequential external ids. Errors
// queued with FailNext are returned by the next calls in order.
type Provider struct {
	mu       sync.Mutex
	seq      int
	failures []error

	Created  []provider.CreateTaskRequest
	Moves    []MoveCall
	Updates  map[string]provider.UpdateTaskRequest
	Sections []provider.Section
}

func NewProvider() *Provider {
	return &Provider{Updates: make(map[string]provider.UpdateTaskRequest)}
}

// FailNext makes the next len(errs) calls fail with errs.
func (p *Provider) FailNext(errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = append(p.failures, errs...)
}

// FailAfter lets n calls succeed and fails the one after with err.
func (p *Provider) FailAfter(n int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < n; i++ {
		p.failures = append(p.failures, nil)
	}
	p.failures = append(p.failures, err)
}

func (p *Provider) nextFailure() error {
	if len(p.failures) == 0 {
		return nil
	}
	err := p.failures[0]
	p.failures = p.failures[1:]
	return err
}

func (p *Provider) CreateTask(_ context.Context, req *provider.CreateTaskRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.nextFailure(); err != nil {
		return "", err
	}
	p.seq++
	p.Created = append(p.Created, *req)
	return fmt.Sprintf("ext-%d", p.seq), nil
}

func (p *Provider) MoveTask(_ context.Context, externalID, sectionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.nextFailure(); err != nil {
		return err
	}
	p.Moves = append(p.Moves, MoveCall{ExternalID: externalID, SectionID: sectionID})
	return nil
}

func (p *Provider) UpdateTask(_ context.Context, externalID string, req *provider.UpdateTaskRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.nextFailure(); err != nil {
		return err
	}
	p.Updates[externalID] = *req
	return nil
}

func (p *Provider) ListSections(_ context.Context, projectID string) ([]provider.Section, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.nextFailure(); err != nil {
		return nil, err
	}
	if projectID == "" {
		return append([]provider.Section(nil), p.Sections...), nil
	}
	var out []provider.Section
	for _, s := range p.Sections {
		if s.ProjectID == projectID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (p *Provider) GetProviderName() string {
	return "fake"
}

// CallCount returns the number of successful CreateTask calls.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Created)
}

// RateLimited builds a 429 provider error.
func RateLimited(retryAfter time.Duration) error {
	return &provider.APIError{Op: "create task", StatusCode: 429, Body: "Too Many Requests", RetryAfter: retryAfter}
}

// Fatal builds a 400 provider error.
func Fatal() error {
	return &provider.APIError{Op: "create task", StatusCode: 400, Body: "bad request"}
}

// ErrBoom is a generic failure.
var ErrBoom = errors.New("boom")
