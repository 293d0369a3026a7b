package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	domainErrors "github.com/wekeepgrowing/todosync/internal/domain/errors"
	"github.com/wekeepgrowing/todosync/internal/domain/model"
	"github.com/wekeepgrowing/todosync/internal/domain/provider"
	"github.com/wekeepgrowing/todosync/internal/domain/repository"
	"github.com/wekeepgrowing/todosync/internal/domain/tasktype"
)

const dueDateLayout = "2006-01-02"

// ExpanderConfig carries the settings applied to every expansion.
type ExpanderConfig struct {
	DefaultProjectID string
	HiddenPriority   int
	HiddenLabel      string
}

// ExpandResult is the outcome of an expansion. Count includes the parent.
type ExpandResult struct {
	Parent *model.Task
	Count  int
}

type expandMode int

const (
	modeLive expandMode = iota
	modeDryRun
	modeStamp
)

// Expander turns a template into a parent task and its children.
type Expander struct {
	tasks    repository.TaskRepository
	provider provider.TaskProvider
	cfg      ExpanderConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewExpander creates a new Expander
func NewExpander(tasks repository.TaskRepository, taskProvider provider.TaskProvider, cfg ExpanderConfig, logger *zap.Logger) *Expander {
	return &Expander{
		tasks:    tasks,
		provider: taskProvider,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Expand creates the parent and every child upstream and stores them. The
// first failed create stops the expansion; records created before it stay.
func (e *Expander) Expand(ctx context.Context, template *model.Template, tokens map[string]string, extraDescription string) (*ExpandResult, error) {
	return e.expand(ctx, template, tokens, extraDescription, modeLive)
}

// DryRun logs what Expand would create without calling the provider or
// writing records.
func (e *Expander) DryRun(ctx context.Context, template *model.Template, tokens map[string]string, extraDescription string) (*ExpandResult, error) {
	return e.expand(ctx, template, tokens, extraDescription, modeDryRun)
}

// Stamp stores the parent and children locally only. Use Push to create
// them upstream later.
func (e *Expander) Stamp(ctx context.Context, template *model.Template, tokens map[string]string, extraDescription string) (*ExpandResult, error) {
	return e.expand(ctx, template, tokens, extraDescription, modeStamp)
}

func (e *Expander) expand(ctx context.Context, template *model.Template, tokens map[string]string, extraDescription string, mode expandMode) (*ExpandResult, error) {
	variant, ok := tasktype.Lookup(template.TaskType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domainErrors.ErrUnknownTaskType, template.TaskType)
	}

	values := tasktype.PickTokens(variant, tokens)
	projectID := template.EffectiveProjectID(e.cfg.DefaultProjectID)

	parent := e.buildParent(template, variant, tokens, values, extraDescription, projectID)

	log := e.logger.With(
		zap.Int64("template_id", template.ID),
		zap.String("template", template.Title),
		zap.String("project_id", projectID),
	)
	log.Info("Expanding template", zap.Any("tokens", values), zap.Bool("dry_run", mode == modeDryRun))

	result := &ExpandResult{Parent: parent}
	dryRunSeq := 0

	switch mode {
	case modeLive:
		externalID, err := e.provider.CreateTask(ctx, &provider.CreateTaskRequest{
			Content:     parent.Title,
			Description: parent.Description,
			ProjectID:   projectID,
			Labels:      parent.Tags,
		})
		if err != nil {
			log.Error("Failed to create parent task", zap.String("title", parent.Title), zap.Error(err))
			return nil, fmt.Errorf("failed to create parent task: %w", err)
		}
		parent.ExternalID = externalID
	case modeDryRun:
		parent.ExternalID = fmt.Sprintf("dry_run_%d", dryRunSeq)
		dryRunSeq++
		log.Debug("Dry run: parent task", zap.String("title", parent.Title), zap.String("description", parent.Description))
	}

	if mode != modeDryRun {
		if err := e.tasks.Create(ctx, parent); err != nil {
			return nil, fmt.Errorf("failed to save parent task: %w", err)
		}
	}
	result.Count = 1

	plan := BuildPlan(template.Tasks)
	created := make([]*model.Task, len(plan))
	today := e.today()

	for i, planned := range plan {
		child := e.buildChild(planned.Task, parent, tokens, today)
		if pred := planned.Predecessor; pred >= 0 && created[pred] != nil && created[pred].ID != 0 {
			predID := created[planned.Predecessor].ID
			child.DependsOnID = &predID
		}

		switch mode {
		case modeLive:
			externalID, err := e.provider.CreateTask(ctx, childRequest(child, parent.ExternalID))
			if err != nil {
				log.Error("Expansion stopped; created tasks are kept",
					zap.String("title", child.Title),
					zap.Int("created", result.Count),
					zap.Error(err))
				return result, fmt.Errorf("failed to create task %q: %w", child.Title, err)
			}
			child.ExternalID = externalID
		case modeDryRun:
			child.ExternalID = fmt.Sprintf("dry_run_%d", dryRunSeq)
			dryRunSeq++
			log.Debug("Dry run: child task",
				zap.String("title", child.Title),
				zap.Strings("labels", child.Tags),
				zap.Int("priority", child.Priority),
				zap.String("due_date", formatDate(child.DueDate)))
		}

		if mode != modeDryRun {
			if err := e.tasks.Create(ctx, child); err != nil {
				return result, fmt.Errorf("failed to save task %q: %w", child.Title, err)
			}
		}
		created[i] = child
		result.Count++
	}

	log.Info("Task group complete", zap.Int("task_count", result.Count), zap.String("external_id", parent.ExternalID))
	return result, nil
}

// buildParent substitutes every caller token into the texts. Only the fields
// the variant declares are stored on the parent and feed its description.
func (e *Expander) buildParent(template *model.Template, variant tasktype.Variant, tokens, values map[string]string, extraDescription, projectID string) *model.Task {
	title := variant.Title(template, tokens)
	if title == "" {
		title = template.Title
	}

	parts := make([]string, 0, 3)
	for _, part := range []string{
		variant.Description(values),
		model.SubstituteTokens(template.Description, tokens),
		model.SubstituteTokens(extraDescription, tokens),
	} {
		if part != "" {
			parts = append(parts, part)
		}
	}

	tokenValues := make(map[string]interface{}, len(values))
	for k, v := range values {
		tokenValues[k] = v
	}

	templateID := template.ID
	return &model.Task{
		Kind:        model.TaskKindParent,
		Title:       title,
		Description: strings.Join(parts, "\n\n"),
		ProjectID:   projectID,
		Tags:        append(model.StringList{}, template.Tags...),
		TemplateID:  &templateID,
		TaskType:    variant.Name(),
		TokenValues: tokenValues,
	}
}

func (e *Expander) buildChild(tt *model.TemplateTask, parent *model.Task, tokens map[string]string, today time.Time) *model.Task {
	tags := append(model.StringList{}, tt.Tags...)
	priority := 0
	if tt.Hide {
		if e.cfg.HiddenPriority > 0 {
			priority = e.cfg.HiddenPriority
		}
		if e.cfg.HiddenLabel != "" && !tags.Contains(e.cfg.HiddenLabel) {
			tags = append(tags, e.cfg.HiddenLabel)
		}
	}

	var due *time.Time
	switch {
	case tt.DueDate != nil:
		d := *tt.DueDate
		due = &d
	case tt.DueOffsetDays != nil:
		d := today.AddDate(0, 0, *tt.DueOffsetDays)
		due = &d
	}

	templateTaskID := tt.ID
	return &model.Task{
		Kind:           model.TaskKindChild,
		Title:          model.SubstituteTokens(tt.Title, tokens),
		Description:    model.SubstituteTokens(tt.Description, tokens),
		DueDate:        due,
		ProjectID:      parent.ProjectID,
		Hide:           tt.Hide,
		Tags:           tags,
		Priority:       priority,
		TemplateTaskID: &templateTaskID,
		ParentTaskID:   parentIDPtr(parent),
	}
}

func (e *Expander) today() time.Time {
	now := e.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Push creates a stamped task upstream. It returns created=false when the
// task already has an external id. Children require a synced parent.
func (e *Expander) Push(ctx context.Context, taskID int64) (*model.Task, bool, error) {
	task, err := e.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load task: %w", err)
	}
	if task == nil {
		return nil, false, domainErrors.ErrTaskNotFound
	}
	if task.IsSynced() {
		return task, false, nil
	}

	parentExternalID := ""
	if task.ParentTaskID != nil {
		parent, err := e.tasks.GetByID(ctx, *task.ParentTaskID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to load parent task: %w", err)
		}
		if parent == nil || !parent.IsSynced() {
			return nil, false, domainErrors.ErrParentNotSynced
		}
		parentExternalID = parent.ExternalID
	}

	externalID, err := e.provider.CreateTask(ctx, childRequest(task, parentExternalID))
	if err != nil {
		return nil, false, fmt.Errorf("failed to push task %d: %w", task.ID, err)
	}

	if err := e.tasks.UpdateFields(ctx, task.ID, map[string]interface{}{"external_id": externalID}); err != nil {
		return nil, false, fmt.Errorf("failed to store external id: %w", err)
	}
	task.ExternalID = externalID

	e.logger.Info("Task pushed",
		zap.Int64("task_id", task.ID),
		zap.String("external_id", externalID))
	return task, true, nil
}

func childRequest(task *model.Task, parentExternalID string) *provider.CreateTaskRequest {
	return &provider.CreateTaskRequest{
		Content:     task.Title,
		Description: task.Description,
		ProjectID:   task.ProjectID,
		SectionID:   task.SectionID,
		ParentID:    parentExternalID,
		Labels:      task.Tags,
		Priority:    task.Priority,
		DueDate:     formatDate(task.DueDate),
	}
}

func parentIDPtr(parent *model.Task) *int64 {
	if parent.ID == 0 {
		return nil
	}
	id := parent.ID
	return &id
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dueDateLayout)
}
