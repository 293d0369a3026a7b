package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/todosync/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/todosync/internal/domain/repository"
)

type templateRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *gorm.DB, logger *zap.Logger) domainRepo.TemplateRepository {
	return &templateRepository{
		db:     db,
		logger: logger,
	}
}

func orderedTasks(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC, id ASC")
}

// Create stores the template and its tasks in one transaction. Tasks are
// inserted first so that DependsOnRef can be resolved to row ids.
func (r *templateRepository) Create(ctx context.Context, template *model.Template) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if template.Tags == nil {
			template.Tags = model.StringList{}
		}
		if err := tx.Omit("Tasks").Create(template).Error; err != nil {
			return fmt.Errorf("failed to create template: %w", err)
		}

		byRef := make(map[string]int64, len(template.Tasks))
		for i := range template.Tasks {
			task := &template.Tasks[i]
			task.TemplateID = template.ID
			task.DependsOnID = nil
			if task.Tags == nil {
				task.Tags = model.StringList{}
			}
			if err := tx.Create(task).Error; err != nil {
				return fmt.Errorf("failed to create template task %q: %w", task.Title, err)
			}
			if task.Ref != "" {
				byRef[task.Ref] = task.ID
			}
		}

		for i := range template.Tasks {
			task := &template.Tasks[i]
			if task.DependsOnRef == "" {
				continue
			}
			depID, ok := byRef[task.DependsOnRef]
			if !ok {
				return fmt.Errorf("template task %q depends on unknown reference %q", task.Title, task.DependsOnRef)
			}
			if err := tx.Model(&model.TemplateTask{}).
				Where("id = ?", task.ID).
				Update("depends_on_id", depID).Error; err != nil {
				return fmt.Errorf("failed to link template task %q: %w", task.Title, err)
			}
			task.DependsOnID = &depID
		}

		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save template",
			zap.String("title", template.Title),
			zap.Error(err))
		return err
	}

	return nil
}

// GetByID retrieves a template with its tasks
func (r *templateRepository) GetByID(ctx context.Context, id int64) (*model.Template, error) {
	var template model.Template

	err := r.db.WithContext(ctx).
		Preload("Tasks", orderedTasks).
		First(&template, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get template",
			zap.Int64("template_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	return &template, nil
}

// GetByTitle retrieves the most recent template with the given title
func (r *templateRepository) GetByTitle(ctx context.Context, title string) (*model.Template, error) {
	var template model.Template

	err := r.db.WithContext(ctx).
		Preload("Tasks", orderedTasks).
		Where("title = ?", title).
		Order("id DESC").
		First(&template).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get template by title",
			zap.String("title", title),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	return &template, nil
}

// List returns every template with its tasks
func (r *templateRepository) List(ctx context.Context) ([]*model.Template, error) {
	var templates []*model.Template

	err := r.db.WithContext(ctx).
		Preload("Tasks", orderedTasks).
		Order("id ASC").
		Find(&templates).Error
	if err != nil {
		r.logger.Error("Failed to list templates", zap.Error(err))
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	return templates, nil
}
