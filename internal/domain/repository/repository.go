package repository

import (
	"context"
	"time"

	"github.com/wekeepgrowing/todosync/internal/domain/model"
)

// Lookups return nil, nil when the record does not exist.

type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id int64) (*model.Task, error)
	GetByExternalID(ctx context.Context, externalID string) (*model.Task, error)
	// UpdateFields writes only the given columns.
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	ListChildren(ctx context.Context, parentID int64) ([]*model.Task, error)
}

type TemplateRepository interface {
	// Create stores the template and its tasks, resolving DependsOnRef links.
	Create(ctx context.Context, template *model.Template) error
	// GetByID loads the template with its tasks ordered by (order, id).
	GetByID(ctx context.Context, id int64) (*model.Template, error)
	GetByTitle(ctx context.Context, title string) (*model.Template, error)
	List(ctx context.Context) ([]*model.Template, error)
}

type SectionRepository interface {
	GetByKey(ctx context.Context, key string) (*model.Section, error)
	GetBySectionID(ctx context.Context, sectionID string) (*model.Section, error)
	KeyExists(ctx context.Context, key string) (bool, error)
	Create(ctx context.Context, section *model.Section) error
	Update(ctx context.Context, section *model.Section) error
	List(ctx context.Context) ([]*model.Section, error)
}

type LabelRepository interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
	// EnsureAll adds missing labels for the given names.
	EnsureAll(ctx context.Context, names []string) error
	List(ctx context.Context) ([]*model.Label, error)
}

type RuleRepository interface {
	Create(ctx context.Context, rule *model.Rule) error
	// ListForRouting returns rules with the given key and trigger whose task
	// type is taskType or empty, ordered by id.
	ListForRouting(ctx context.Context, ruleKey, trigger, taskType string) ([]*model.Rule, error)
}

// RateLimitStore holds the shared "upstream is throttling us" flag.
type RateLimitStore interface {
	SetRateLimited(ctx context.Context, ttl time.Duration) error
	IsRateLimited(ctx context.Context) (bool, error)
}

// JobQueue hands deferred work to the worker process.
type JobQueue interface {
	Enqueue(ctx context.Context, job *model.Job) error
	// Dequeue blocks up to timeout and returns nil, nil when nothing arrived.
	Dequeue(ctx context.Context, timeout time.Duration) (*model.Job, error)
	// Ack marks a dequeued job as handled. Jobs never acked are handed
	// out again by Recover.
	Ack(ctx context.Context, job *model.Job) error
	Recover(ctx context.Context) (int, error)
	Len(ctx context.Context) (int64, error)
}
