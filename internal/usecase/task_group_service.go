package usecase

import (
	"context"
	"fmt"

	"github.com/wekeepgrowing/todosync/internal/domain/dto"
	domainErrors "github.com/wekeepgrowing/todosync/internal/domain/errors"
	"github.com/wekeepgrowing/todosync/internal/domain/repository"
)

// TaskGroupService is the entry point for creating task groups from the API.
type TaskGroupService struct {
	templates  repository.TemplateRepository
	expander   *Expander
	dispatcher *Dispatcher
}

// NewTaskGroupService creates a new TaskGroupService
func NewTaskGroupService(templates repository.TemplateRepository, expander *Expander, dispatcher *Dispatcher) *TaskGroupService {
	return &TaskGroupService{
		templates:  templates,
		expander:   expander,
		dispatcher: dispatcher,
	}
}

// Create dispatches an expansion, or stamps local records when deferred.
func (s *TaskGroupService) Create(ctx context.Context, req *dto.CreateTaskGroupRequest) (*dto.TaskGroupResponse, error) {
	if req.Deferred {
		template, err := s.templates.GetByID(ctx, req.TemplateID)
		if err != nil {
			return nil, fmt.Errorf("failed to load template: %w", err)
		}
		if template == nil {
			return nil, fmt.Errorf("%w: %d", domainErrors.ErrTemplateNotFound, req.TemplateID)
		}
		res, err := s.expander.Stamp(ctx, template, req.Tokens, req.Description)
		if err != nil {
			return nil, err
		}
		parentID := res.Parent.ID
		return &dto.TaskGroupResponse{ParentTaskID: &parentID, TaskCount: res.Count}, nil
	}

	res, err := s.dispatcher.DispatchCreate(ctx, req.TemplateID, req.Tokens, req.Description)
	if err != nil {
		return nil, err
	}
	if res.Queued {
		return &dto.TaskGroupResponse{Queued: true}, nil
	}

	parentID := res.Parent.ID
	return &dto.TaskGroupResponse{
		ParentTaskID: &parentID,
		ExternalID:   res.Parent.ExternalID,
		TaskCount:    res.Count,
	}, nil
}

// Push promotes one stamped task.
func (s *TaskGroupService) Push(ctx context.Context, taskID int64) (*dto.PushTaskResponse, error) {
	task, created, err := s.expander.Push(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return &dto.PushTaskResponse{TaskID: task.ID, ExternalID: task.ExternalID, Created: created}, nil
}
