package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wekeepgrowing/todosync/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/todosync/internal/domain/repository"
)

type labelRepository struct {
	db      *gorm.DB
	slugify func(string) string
	logger  *zap.Logger
}

// NewLabelRepository creates a new label repository. slugify derives the
// catalog key from a label name.
func NewLabelRepository(db *gorm.DB, slugify func(string) string, logger *zap.Logger) domainRepo.LabelRepository {
	return &labelRepository{
		db:      db,
		slugify: slugify,
		logger:  logger,
	}
}

// SlugExists reports whether the catalog has slug
func (r *labelRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&model.Label{}).
		Where("slug = ?", slug).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check label: %w", err)
	}

	return count > 0, nil
}

// EnsureAll inserts the labels that are not in the catalog yet
func (r *labelRepository) EnsureAll(ctx context.Context, names []string) error {
	labels := make([]model.Label, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		slug := r.slugify(name)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		labels = append(labels, model.Label{Name: name, Slug: slug})
	}
	if len(labels) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoNothing: true,
		}).
		Create(&labels).Error
	if err != nil {
		r.logger.Error("Failed to save labels",
			zap.Int("count", len(labels)),
			zap.Error(err))
		return fmt.Errorf("failed to save labels: %w", err)
	}

	return nil
}

// List returns the catalog ordered by slug
func (r *labelRepository) List(ctx context.Context) ([]*model.Label, error) {
	var labels []*model.Label

	if err := r.db.WithContext(ctx).Order("slug ASC").Find(&labels).Error; err != nil {
		r.logger.Error("Failed to list labels", zap.Error(err))
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}

	return labels, nil
}
