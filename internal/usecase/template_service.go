package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wekeepgrowing/todosync/internal/domain/dto"
	domainErrors "github.com/wekeepgrowing/todosync/internal/domain/errors"
	"github.com/wekeepgrowing/todosync/internal/domain/model"
	"github.com/wekeepgrowing/todosync/internal/domain/repository"
	"github.com/wekeepgrowing/todosync/internal/domain/tasktype"
)

// TemplateService validates and stores templates.
type TemplateService struct {
	templates repository.TemplateRepository
	labels    repository.LabelRepository
	logger    *zap.Logger
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(templates repository.TemplateRepository, labels repository.LabelRepository, logger *zap.Logger) *TemplateService {
	return &TemplateService{
		templates: templates,
		labels:    labels,
		logger:    logger,
	}
}

// Create validates req and stores the template with its tasks. Every tag
// used is added to the label catalog.
func (s *TemplateService) Create(ctx context.Context, req *dto.CreateTemplateRequest) (*model.Template, error) {
	template, err := BuildTemplate(req)
	if err != nil {
		return nil, err
	}

	if err := s.templates.Create(ctx, template); err != nil {
		return nil, fmt.Errorf("failed to save template: %w", err)
	}

	if err := s.labels.EnsureAll(ctx, templateTags(template)); err != nil {
		return nil, fmt.Errorf("failed to update label catalog: %w", err)
	}

	s.logger.Info("Template saved",
		zap.Int64("template_id", template.ID),
		zap.String("title", template.Title),
		zap.Int("tasks", len(template.Tasks)))
	return template, nil
}

// BuildTemplate converts a request into a template, checking the task type,
// the due date fields and the dependency graph.
func BuildTemplate(req *dto.CreateTemplateRequest) (*model.Template, error) {
	verr := domainErrors.NewValidationError()

	if req.Title == "" {
		verr.Add("title", "title is required")
	}
	if _, ok := tasktype.Lookup(req.TaskType); !ok {
		verr.Add("task_type", fmt.Sprintf("unknown task type %q, expected one of %v", req.TaskType, tasktype.Names()))
	}

	template := &model.Template{
		Title:       req.Title,
		TaskType:    req.TaskType,
		ProjectID:   req.ProjectID,
		Description: req.Description,
		Tags:        append(model.StringList{}, req.Tags...),
		Tasks:       make([]model.TemplateTask, 0, len(req.Tasks)),
	}

	nodes := make([]dependencyNode, 0, len(req.Tasks))
	for i, t := range req.Tasks {
		field := fmt.Sprintf("tasks[%d]", i)
		ref := t.Ref
		if ref == "" {
			ref = fmt.Sprintf("#%d", i+1)
		}

		tt := model.TemplateTask{
			Title:         t.Title,
			Description:   t.Description,
			DueOffsetDays: t.DueOffsetDays,
			Tags:          append(model.StringList{}, t.Tags...),
			Order:         t.Order,
			Hide:          t.Hide,
			Ref:           ref,
			DependsOnRef:  t.DependsOn,
		}

		if t.Title == "" {
			verr.Add(field+".title", "title is required")
		}
		if t.DueDate != "" {
			if t.DueOffsetDays != nil {
				verr.Add(field+".due_date", "set either due_date or due_offset_days")
			}
			due, err := time.Parse(dueDateLayout, t.DueDate)
			if err != nil {
				verr.Add(field+".due_date", "due_date must be YYYY-MM-DD")
			} else {
				tt.DueDate = &due
			}
		}
		if t.DueOffsetDays != nil && *t.DueOffsetDays < 0 {
			verr.Add(field+".due_offset_days", "due_offset_days cannot be negative")
		}

		template.Tasks = append(template.Tasks, tt)
		nodes = append(nodes, dependencyNode{Key: ref, DependsOn: t.DependsOn})
	}

	for key, problem := range validateDependencies(nodes) {
		verr.Add(dependencyField(key, template.Tasks), problem)
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return template, nil
}

func dependencyField(ref string, tasks []model.TemplateTask) string {
	for i, t := range tasks {
		if t.Ref == ref {
			return fmt.Sprintf("tasks[%d].depends_on", i)
		}
	}
	return ref
}

func templateTags(t *model.Template) []string {
	seen := make(map[string]bool)
	var tags []string
	add := func(list model.StringList) {
		for _, tag := range list {
			if tag != "" && !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	add(t.Tags)
	for _, tt := range t.Tasks {
		add(tt.Tags)
	}
	return tags
}
