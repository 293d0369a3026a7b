package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wekeepgrowing/todosync/internal/domain/dto"
	domainErrors "github.com/wekeepgrowing/todosync/internal/domain/errors"
	"github.com/wekeepgrowing/todosync/internal/domain/model"
	"github.com/wekeepgrowing/todosync/internal/domain/repository"
	"github.com/wekeepgrowing/todosync/internal/domain/tasktype"
)

// RuleService validates and stores routing rules.
type RuleService struct {
	rules    repository.RuleRepository
	labels   repository.LabelRepository
	sections repository.SectionRepository
	logger   *zap.Logger
}

// NewRuleService creates a new RuleService
func NewRuleService(rules repository.RuleRepository, labels repository.LabelRepository, sections repository.SectionRepository, logger *zap.Logger) *RuleService {
	return &RuleService{
		rules:    rules,
		labels:   labels,
		sections: sections,
		logger:   logger,
	}
}

// Create validates and stores a rule.
func (s *RuleService) Create(ctx context.Context, req *dto.CreateRuleRequest) (*model.Rule, error) {
	rule := &model.Rule{
		TaskType:  req.TaskType,
		RuleKey:   req.RuleKey,
		Trigger:   req.Trigger,
		Condition: req.Condition,
		Action:    req.Action,
	}

	if err := s.Validate(ctx, rule); err != nil {
		return nil, err
	}

	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to save rule: %w", err)
	}

	s.logger.Info("Rule saved",
		zap.Int64("rule_id", rule.ID),
		zap.String("rule_key", rule.RuleKey),
		zap.String("condition", rule.Condition),
		zap.String("action", rule.Action))
	return rule, nil
}

// Validate checks that a label: condition names a known label and a
// section: action names a known section key. Both are reported together.
// Conditions and actions in other forms are accepted as is.
func (s *RuleService) Validate(ctx context.Context, rule *model.Rule) error {
	verr := domainErrors.NewValidationError()

	if rule.TaskType != "" {
		if _, ok := tasktype.Lookup(rule.TaskType); !ok {
			verr.Add("task_type", fmt.Sprintf("unknown task type %q", rule.TaskType))
		}
	}

	if slug, ok := rule.ConditionLabel(); ok {
		exists, err := s.labels.SlugExists(ctx, slug)
		if err != nil {
			return fmt.Errorf("failed to check label: %w", err)
		}
		if !exists {
			verr.Add("condition", fmt.Sprintf("label %q does not exist", slug))
		}
	}

	if key, ok := rule.ActionSection(); ok {
		exists, err := s.sections.KeyExists(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to check section: %w", err)
		}
		if !exists {
			verr.Add("action", fmt.Sprintf("section %q does not exist", key))
		}
	}

	return verr.OrNil()
}
