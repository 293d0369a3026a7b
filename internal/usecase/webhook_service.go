package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wekeepgrowing/todosync/internal/domain/dto"
	"github.com/wekeepgrowing/todosync/internal/domain/model"
	"github.com/wekeepgrowing/todosync/internal/domain/repository"
)

// Router routes a completed child's parent by label.
type Router interface {
	Route(ctx context.Context, child *model.Task, parentExternalID string, labels []string) (bool, error)
}

// WebhookOutcome describes what processing an event changed.
type WebhookOutcome struct {
	Tracked bool
	Updated []string
	Routed  bool
}

// WebhookService applies Todoist item events to local tasks.
type WebhookService struct {
	tasks   repository.TaskRepository
	router  Router
	metrics Recorder
	logger  *zap.Logger
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(tasks repository.TaskRepository, router Router, metrics Recorder, logger *zap.Logger) *WebhookService {
	return &WebhookService{
		tasks:   tasks,
		router:  router,
		metrics: recorderOrNoop(metrics),
		logger:  logger,
	}
}

// Process applies one event. Events for unknown ids are ignored. Only
// fields whose value differs are written, in a single update.
func (s *WebhookService) Process(ctx context.Context, payload *dto.WebhookPayload) (*WebhookOutcome, error) {
	item := payload.EventData
	event := payload.EventName

	log := s.logger.With(
		zap.String("event", event),
		zap.String("external_id", item.ID),
		zap.String("content", item.Content))
	log.Info("Webhook received")

	task, err := s.tasks.GetByExternalID(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	if task == nil {
		log.Info("Item not tracked; ignoring")
		s.metrics.ObserveWebhook(event, "untracked")
		return &WebhookOutcome{}, nil
	}

	updates, fields := diffTask(task, event, &item)

	if len(updates) > 0 {
		if err := s.tasks.UpdateFields(ctx, task.ID, updates); err != nil {
			return nil, fmt.Errorf("failed to update task: %w", err)
		}
		log.Info("Task updated", zap.Strings("fields", fields))
	} else {
		log.Debug("No changes for task")
	}

	outcome := &WebhookOutcome{Tracked: true, Updated: fields}

	if event == dto.EventItemCompleted && len(item.Labels) > 0 && item.ParentID != nil {
		routed, err := s.router.Route(ctx, task, *item.ParentID, item.Labels)
		if err != nil {
			// The local update is kept.
			log.Error("Failed to route parent task", zap.Strings("labels", item.Labels), zap.Error(err))
		}
		outcome.Routed = routed
	}

	result := "unchanged"
	if len(fields) > 0 {
		result = "updated"
	}
	s.metrics.ObserveWebhook(event, result)
	return outcome, nil
}

// diffTask computes the column updates an event implies for task.
func diffTask(task *model.Task, event string, item *dto.TodoistItem) (map[string]interface{}, []string) {
	updates := make(map[string]interface{})
	var fields []string

	setCompleted := func(v bool) {
		if task.Completed != v {
			updates["completed"] = v
			fields = append(fields, "completed")
		}
	}

	switch event {
	case dto.EventItemCompleted, dto.EventItemDeleted:
		setCompleted(true)
	case dto.EventItemUncompleted:
		setCompleted(false)
	case dto.EventItemUpdated, dto.EventItemAdded:
		setCompleted(item.Checked)

		due := item.Due.DueDate()
		if !sameDate(task.DueDate, due) {
			updates["due_date"] = due
			fields = append(fields, "due_date")
		}
	}

	if item.SectionID != nil && *item.SectionID != task.SectionID {
		updates["section_id"] = *item.SectionID
		fields = append(fields, "section_id")
	}

	return updates, fields
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Format(dueDateLayout) == b.Format(dueDateLayout)
}
