package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	domainErrors "github.com/wekeepgrowing/todosync/internal/domain/errors"
	"github.com/wekeepgrowing/todosync/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/todosync/internal/domain/repository"
)

type taskRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *gorm.DB, logger *zap.Logger) domainRepo.TaskRepository {
	return &taskRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a task record
func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	if task.Tags == nil {
		task.Tags = model.StringList{}
	}
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		r.logger.Error("Failed to create task",
			zap.String("title", task.Title),
			zap.Error(err))
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetByID retrieves a task by its local id
func (r *taskRepository) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	var task model.Task

	err := r.db.WithContext(ctx).First(&task, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get task",
			zap.Int64("task_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return &task, nil
}

// GetByExternalID retrieves a task by its Todoist id
func (r *taskRepository) GetByExternalID(ctx context.Context, externalID string) (*model.Task, error) {
	if externalID == "" {
		return nil, nil
	}

	var task model.Task
	err := r.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get task by external ID",
			zap.String("external_id", externalID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return &task, nil
}

// UpdateFields writes the given columns in one statement
func (r *taskRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).
		Model(&model.Task{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		r.logger.Error("Failed to update task",
			zap.Int64("task_id", id),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", domainErrors.ErrTaskNotFound, id)
	}

	return nil
}

// ListChildren returns the children of a parent task in creation order
func (r *taskRepository) ListChildren(ctx context.Context, parentID int64) ([]*model.Task, error) {
	var tasks []*model.Task

	err := r.db.WithContext(ctx).
		Where("parent_task_id = ?", parentID).
		Order("id ASC").
		Find(&tasks).Error
	if err != nil {
		r.logger.Error("Failed to list child tasks",
			zap.Int64("parent_task_id", parentID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list child tasks: %w", err)
	}

	return tasks, nil
}
