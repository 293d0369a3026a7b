package model

import "time"

// Template is a reusable group of tasks created together under one parent.
type Template struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	TaskType    string         `gorm:"size:64" json:"task_type"`
	ProjectID   string         `gorm:"size:64" json:"project_id"`
	Description string         `gorm:"type:text" json:"description"`
	Tags        StringList     `gorm:"type:jsonb;default:'[]'" json:"tags"`
	Tasks       []TemplateTask `gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE" json:"tasks"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Template) TableName() string {
	return "templates"
}

// EffectiveProjectID returns the template's project, or fallback when unset.
func (t *Template) EffectiveProjectID(fallback string) string {
	if t.ProjectID != "" {
		return t.ProjectID
	}
	return fallback
}

// TemplateTask is one entry of a template. Due dates are either a literal
// DueDate or DueOffsetDays counted from the day of expansion.
type TemplateTask struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	TemplateID    int64      `gorm:"not null;index" json:"template_id"`
	Title         string     `gorm:"size:500;not null" json:"title"`
	Description   string     `gorm:"type:text" json:"description"`
	DueOffsetDays *int       `json:"due_offset_days,omitempty"`
	DueDate       *time.Time `gorm:"type:date" json:"due_date,omitempty"`
	Tags          StringList `gorm:"type:jsonb;default:'[]'" json:"tags"`
	Order         int        `gorm:"column:sort_order;not null;default:0" json:"order"`
	DependsOnID   *int64     `json:"depends_on_id,omitempty"`
	Hide          bool       `gorm:"not null;default:false" json:"hide"`

	// Ref and DependsOnRef name entries of a template that is not saved yet.
	Ref          string `gorm:"-" json:"ref,omitempty"`
	DependsOnRef string `gorm:"-" json:"depends_on_ref,omitempty"`
}

// TableName specifies the table name for GORM
func (TemplateTask) TableName() string {
	return "template_tasks"
}
