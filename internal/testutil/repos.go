// Package testutil provides in-memory implementations of the domain
// repositories and the task provider for package tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wekeepgrowing/todosync/internal/domain/model"
)

type TaskRepo struct {
	mu     sync.RWMutex
	nextID int64
	tasks  map[int64]*model.Task
	// Writes counts UpdateFields calls.
	Writes int
}

func NewTaskRepo() *TaskRepo {
	return &TaskRepo{tasks: make(map[int64]*model.Task)}
}

func (r *TaskRepo) Create(_ context.Context, task *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	task.ID = r.nextID
	if task.Kind == "" {
		task.Kind = model.TaskKindChild
	}
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	cp := *task
	r.tasks[task.ID] = &cp
	return nil
}

func (r *TaskRepo) GetByID(_ context.Context, id int64) (*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *TaskRepo) GetByExternalID(_ context.Context, externalID string) (*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.tasks {
		if externalID != "" && t.ExternalID == externalID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *TaskRepo) UpdateFields(_ context.Context, id int64, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("task %d not found", id)
	}
	for k, v := range fields {
		switch k {
		case "completed":
			t.Completed = v.(bool)
		case "due_date":
			t.DueDate, _ = v.(*time.Time)
		case "section_id":
			t.SectionID = v.(string)
		case "external_id":
			t.ExternalID = v.(string)
		default:
			return fmt.Errorf("unsupported field %q", k)
		}
	}
	t.UpdatedAt = time.Now()
	r.Writes++
	return nil
}

func (r *TaskRepo) ListChildren(_ context.Context, parentID int64) ([]*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.Task
	for _, t := range r.tasks {
		if t.ParentTaskID != nil && *t.ParentTaskID == parentID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// All returns every stored task ordered by id.
func (r *TaskRepo) All() []*model.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type TemplateRepo struct {
	mu        sync.RWMutex
	nextID    int64
	nextTask  int64
	templates map[int64]*model.Template
}

func NewTemplateRepo() *TemplateRepo {
	return &TemplateRepo{templates: make(map[int64]*model.Template)}
}

// Create assigns ids and resolves DependsOnRef the way the gorm repository does.
func (r *TemplateRepo) Create(_ context.Context, template *model.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	template.ID = r.nextID

	byRef := make(map[string]int64, len(template.Tasks))
	for i := range template.Tasks {
		r.nextTask++
		template.Tasks[i].ID = r.nextTask
		template.Tasks[i].TemplateID = template.ID
		if ref := template.Tasks[i].Ref; ref != "" {
			byRef[ref] = template.Tasks[i].ID
		}
	}
	for i := range template.Tasks {
		if ref := template.Tasks[i].DependsOnRef; ref != "" {
			if id, ok := byRef[ref]; ok {
				template.Tasks[i].DependsOnID = &id
			}
		}
	}

	cp := *template
	cp.Tasks = append([]model.TemplateTask(nil), template.Tasks...)
	r.templates[template.ID] = &cp
	return nil
}

// Put stores template as is, keeping its ids.
func (r *TemplateRepo) Put(template *model.Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *template
	r.templates[template.ID] = &cp
}

func (r *TemplateRepo) GetByID(_ context.Context, id int64) (*model.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.templates[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	cp.Tasks = append([]model.TemplateTask(nil), t.Tasks...)
	return &cp, nil
}

func (r *TemplateRepo) GetByTitle(_ context.Context, title string) (*model.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.templates {
		if t.Title == title {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *TemplateRepo) List(_ context.Context) ([]*model.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Template, 0, len(r.templates))
	for _, t := range r.templates {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type SectionRepo struct {
	mu       sync.RWMutex
	nextID   int64
	sections map[int64]*model.Section
}

func NewSectionRepo(sections ...*model.Section) *SectionRepo {
	r := &SectionRepo{sections: make(map[int64]*model.Section)}
	for _, s := range sections {
		_ = r.Create(context.Background(), s)
	}
	return r
}

func (r *SectionRepo) find(match func(*model.Section) bool) *model.Section {
	for _, s := range r.sections {
		if match(s) {
			cp := *s
			return &cp
		}
	}
	return nil
}

func (r *SectionRepo) GetByKey(_ context.Context, key string) (*model.Section, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.find(func(s *model.Section) bool { return s.Key == key }), nil
}

func (r *SectionRepo) GetBySectionID(_ context.Context, sectionID string) (*model.Section, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.find(func(s *model.Section) bool { return s.SectionID == sectionID }), nil
}

func (r *SectionRepo) KeyExists(ctx context.Context, key string) (bool, error) {
	s, _ := r.GetByKey(ctx, key)
	return s != nil, nil
}

func (r *SectionRepo) Create(_ context.Context, section *model.Section) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sections {
		if s.Key == section.Key || s.SectionID == section.SectionID {
			return fmt.Errorf("duplicate section %q", section.Key)
		}
	}
	r.nextID++
	section.ID = r.nextID
	cp := *section
	r.sections[section.ID] = &cp
	return nil
}

func (r *SectionRepo) Update(_ context.Context, section *model.Section) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sections[section.ID]; !ok {
		return fmt.Errorf("section %d not found", section.ID)
	}
	cp := *section
	r.sections[section.ID] = &cp
	return nil
}

func (r *SectionRepo) List(_ context.Context) ([]*model.Section, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Section, 0, len(r.sections))
	for _, s := range r.sections {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type LabelRepo struct {
	mu     sync.RWMutex
	labels map[string]*model.Label
	// Slugify maps a name to its slug in EnsureAll.
	Slugify func(string) string
}

func NewLabelRepo(slugs ...string) *LabelRepo {
	r := &LabelRepo{labels: make(map[string]*model.Label), Slugify: func(s string) string { return s }}
	for _, slug := range slugs {
		r.labels[slug] = &model.Label{Name: slug, Slug: slug}
	}
	return r
}

func (r *LabelRepo) SlugExists(_ context.Context, slug string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.labels[slug]
	return ok, nil
}

func (r *LabelRepo) EnsureAll(_ context.Context, names []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		slug := r.Slugify(name)
		if _, ok := r.labels[slug]; !ok {
			r.labels[slug] = &model.Label{Name: name, Slug: slug}
		}
	}
	return nil
}

func (r *LabelRepo) List(_ context.Context) ([]*model.Label, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Label, 0, len(r.labels))
	for _, l := range r.labels {
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

type RuleRepo struct {
	mu     sync.RWMutex
	nextID int64
	rules  []*model.Rule
}

func NewRuleRepo(rules ...*model.Rule) *RuleRepo {
	r := &RuleRepo{}
	for _, rule := range rules {
		_ = r.Create(context.Background(), rule)
	}
	return r
}

func (r *RuleRepo) Create(_ context.Context, rule *model.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	rule.ID = r.nextID
	cp := *rule
	r.rules = append(r.rules, &cp)
	return nil
}

func (r *RuleRepo) ListForRouting(_ context.Context, ruleKey, trigger, taskType string) ([]*model.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.Rule
	for _, rule := range r.rules {
		if rule.RuleKey != ruleKey || rule.Trigger != trigger {
			continue
		}
		if rule.TaskType != "" && rule.TaskType != taskType {
			continue
		}
		cp := *rule
		out = append(out, &cp)
	}
	return out, nil
}
