package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/todosync/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/todosync/internal/domain/repository"
)

type ruleRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewRuleRepository creates a new rule repository
func NewRuleRepository(db *gorm.DB, logger *zap.Logger) domainRepo.RuleRepository {
	return &ruleRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a rule
func (r *ruleRepository) Create(ctx context.Context, rule *model.Rule) error {
	if err := r.db.WithContext(ctx).Create(rule).Error; err != nil {
		r.logger.Error("Failed to create rule",
			zap.String("rule_key", rule.RuleKey),
			zap.Error(err))
		return fmt.Errorf("failed to create rule: %w", err)
	}
	return nil
}

// ListForRouting returns candidate rules in id order
func (r *ruleRepository) ListForRouting(ctx context.Context, ruleKey, trigger, taskType string) ([]*model.Rule, error) {
	var rules []*model.Rule

	err := r.db.WithContext(ctx).
		Where("rule_key = ? AND \"trigger\" = ?", ruleKey, trigger).
		Where("task_type = ? OR task_type = '' OR task_type IS NULL", taskType).
		Order("id ASC").
		Find(&rules).Error
	if err != nil {
		r.logger.Error("Failed to list rules",
			zap.String("rule_key", ruleKey),
			zap.String("trigger", trigger),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	return rules, nil
}
