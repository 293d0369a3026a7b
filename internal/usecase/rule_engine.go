package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wekeepgrowing/todosync/internal/domain/model"
	"github.com/wekeepgrowing/todosync/internal/domain/repository"
	"github.com/wekeepgrowing/todosync/internal/domain/tasktype"
)

// TaskMover moves an upstream task to a section.
type TaskMover interface {
	DispatchMove(ctx context.Context, externalID, sectionID string) error
}

// RuleEngine moves a parent task when one of its children is completed with
// a label that a routing rule maps to a section.
type RuleEngine struct {
	tasks     repository.TaskRepository
	templates repository.TemplateRepository
	rules     repository.RuleRepository
	sections  repository.SectionRepository
	mover     TaskMover
	logger    *zap.Logger
}

// NewRuleEngine creates a new RuleEngine
func NewRuleEngine(
	tasks repository.TaskRepository,
	templates repository.TemplateRepository,
	rules repository.RuleRepository,
	sections repository.SectionRepository,
	mover TaskMover,
	logger *zap.Logger,
) *RuleEngine {
	return &RuleEngine{
		tasks:     tasks,
		templates: templates,
		rules:     rules,
		sections:  sections,
		mover:     mover,
		logger:    logger,
	}
}

// Route evaluates the labels of a completed child in order. The first rule
// matching a label decides the section; later labels are not considered.
// It reports whether a move was dispatched.
func (e *RuleEngine) Route(ctx context.Context, child *model.Task, parentExternalID string, labels []string) (bool, error) {
	if parentExternalID == "" || len(labels) == 0 {
		return false, nil
	}

	parent, err := e.tasks.GetByExternalID(ctx, parentExternalID)
	if err != nil {
		return false, fmt.Errorf("failed to load parent task: %w", err)
	}
	if parent == nil || parent.TemplateID == nil {
		return false, nil
	}

	template, err := e.templates.GetByID(ctx, *parent.TemplateID)
	if err != nil {
		return false, fmt.Errorf("failed to load template: %w", err)
	}
	if template == nil {
		return false, nil
	}

	taskType := template.TaskType
	if taskType == "" {
		taskType = parent.TaskType
	}
	variant, ok := tasktype.Lookup(taskType)
	if !ok || variant.RuleKey() == "" {
		return false, nil
	}

	rules, err := e.rules.ListForRouting(ctx, variant.RuleKey(), model.TriggerCompletedTask, variant.Name())
	if err != nil {
		return false, fmt.Errorf("failed to load rules: %w", err)
	}
	if len(rules) == 0 {
		return false, nil
	}

	for _, label := range labels {
		rule := firstRuleForLabel(rules, label)
		if rule == nil {
			continue
		}

		key, ok := rule.ActionSection()
		if !ok {
			e.logger.Warn("Rule action is not a section; skipping",
				zap.Int64("rule_id", rule.ID),
				zap.String("action", rule.Action))
			continue
		}

		section, err := e.sections.GetByKey(ctx, key)
		if err != nil {
			return false, fmt.Errorf("failed to load section %q: %w", key, err)
		}
		if section == nil {
			e.logger.Warn("Rule points at a missing section; skipping",
				zap.Int64("rule_id", rule.ID),
				zap.String("section_key", key))
			continue
		}

		if err := e.mover.DispatchMove(ctx, parentExternalID, section.SectionID); err != nil {
			return false, err
		}

		e.logger.Info("Moved parent task by child label",
			zap.String("parent", parent.Title),
			zap.String("external_id", parentExternalID),
			zap.String("section_id", section.SectionID),
			zap.String("label", label),
			zap.Int64("child_id", childID(child)))
		return true, nil
	}

	return false, nil
}

func firstRuleForLabel(rules []*model.Rule, label string) *model.Rule {
	for _, rule := range rules {
		if l, ok := rule.ConditionLabel(); ok && l == label {
			return rule
		}
	}
	return nil
}

func childID(t *model.Task) int64 {
	if t == nil {
		return 0
	}
	return t.ID
}
