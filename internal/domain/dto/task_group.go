package dto

// CreateTaskGroupRequest starts the expansion of a template.
type CreateTaskGroupRequest struct {
	TemplateID  int64             `json:"template_id" validate:"required,gt=0"`
	Tokens      map[string]string `json:"tokens"`
	Description string            `json:"description"`
	// Deferred stores the records locally without calling the provider.
	Deferred bool `json:"deferred"`
}

// TaskGroupResponse describes the outcome of a create request.
type TaskGroupResponse struct {
	Queued       bool   `json:"queued"`
	ParentTaskID *int64 `json:"parent_task_id"`
	ExternalID   string `json:"external_id,omitempty"`
	TaskCount    int    `json:"task_count"`
}

// PushTaskResponse describes a promoted task.
type PushTaskResponse struct {
	TaskID     int64  `json:"task_id"`
	ExternalID string `json:"external_id"`
	Created    bool   `json:"created"`
}

// CreateTemplateRequest is a template with its tasks. Tasks reference each
// other through Ref and DependsOnRef.
type CreateTemplateRequest struct {
	Title       string                      `json:"title" yaml:"title" validate:"required,max=255"`
	TaskType    string                      `json:"task_type" yaml:"task_type"`
	ProjectID   string                      `json:"project_id" yaml:"project_id"`
	Description string                      `json:"description" yaml:"description"`
	Tags        []string                    `json:"tags" yaml:"tags"`
	Tasks       []CreateTemplateTaskRequest `json:"tasks" yaml:"tasks" validate:"dive"`
}

type CreateTemplateTaskRequest struct {
	Ref           string   `json:"ref" yaml:"ref"`
	Title         string   `json:"title" yaml:"title" validate:"required,max=500"`
	Description   string   `json:"description" yaml:"description"`
	DueOffsetDays *int     `json:"due_offset_days" yaml:"due_offset_days" validate:"omitempty,min=0"`
	DueDate       string   `json:"due_date" yaml:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Tags          []string `json:"tags" yaml:"tags"`
	Order         int      `json:"order" yaml:"order"`
	DependsOn     string   `json:"depends_on" yaml:"depends_on"`
	Hide          bool     `json:"hide" yaml:"hide"`
}

type CreateRuleRequest struct {
	TaskType  string `json:"task_type"`
	RuleKey   string `json:"rule_key" validate:"required,max=100"`
	Trigger   string `json:"trigger" validate:"required,oneof=completed_task"`
	Condition string `json:"condition" validate:"required,max=255"`
	Action    string `json:"action" validate:"required,max=255"`
}

type SyncSectionsRequest struct {
	ProjectID string `json:"project_id"`
	DryRun    bool   `json:"dry_run"`
}
