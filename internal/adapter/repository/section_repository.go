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

type sectionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSectionRepository creates a new section repository
func NewSectionRepository(db *gorm.DB, logger *zap.Logger) domainRepo.SectionRepository {
	return &sectionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *sectionRepository) first(ctx context.Context, column, value string) (*model.Section, error) {
	var section model.Section

	err := r.db.WithContext(ctx).
		Where(column+" = ?", value).
		First(&section).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get section",
			zap.String(column, value),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get section: %w", err)
	}

	return &section, nil
}

// GetByKey retrieves a section by its slug key
func (r *sectionRepository) GetByKey(ctx context.Context, key string) (*model.Section, error) {
	return r.first(ctx, "key", key)
}

// GetBySectionID retrieves a section by its Todoist id
func (r *sectionRepository) GetBySectionID(ctx context.Context, sectionID string) (*model.Section, error) {
	return r.first(ctx, "section_id", sectionID)
}

// KeyExists reports whether a section uses key
func (r *sectionRepository) KeyExists(ctx context.Context, key string) (bool, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&model.Section{}).
		Where("key = ?", key).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check section key: %w", err)
	}

	return count > 0, nil
}

// Create inserts a section
func (r *sectionRepository) Create(ctx context.Context, section *model.Section) error {
	if err := r.db.WithContext(ctx).Create(section).Error; err != nil {
		r.logger.Error("Failed to create section",
			zap.String("key", section.Key),
			zap.String("section_id", section.SectionID),
			zap.Error(err))
		return fmt.Errorf("failed to create section: %w", err)
	}
	return nil
}

// Update saves name and project of an existing section
func (r *sectionRepository) Update(ctx context.Context, section *model.Section) error {
	err := r.db.WithContext(ctx).
		Model(&model.Section{}).
		Where("id = ?", section.ID).
		Updates(map[string]interface{}{
			"name":       section.Name,
			"project_id": section.ProjectID,
		}).Error
	if err != nil {
		r.logger.Error("Failed to update section",
			zap.String("key", section.Key),
			zap.Error(err))
		return fmt.Errorf("failed to update section: %w", err)
	}
	return nil
}

// List returns all sections ordered by key
func (r *sectionRepository) List(ctx context.Context) ([]*model.Section, error) {
	var sections []*model.Section

	if err := r.db.WithContext(ctx).Order("key ASC").Find(&sections).Error; err != nil {
		r.logger.Error("Failed to list sections", zap.Error(err))
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}

	return sections, nil
}
