package model

import (
	"strings"
	"time"
)

// Section maps a stable slug key to a Todoist section.
type Section struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Key       string    `gorm:"size:100;uniqueIndex;not null" json:"key"`
	SectionID string    `gorm:"column:section_id;size:64;uniqueIndex;not null" json:"section_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	ProjectID string    `gorm:"size:64;index" json:"project_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Section) TableName() string {
	return "sections"
}

// Label is an entry of the tag catalog.
type Label struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Slug      string    `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Label) TableName() string {
	return "labels"
}

const (
	TriggerCompletedTask = "completed_task"

	conditionLabelPrefix = "label:"
	actionSectionPrefix  = "section:"
)

// Rule routes a parent task when a child event matches Condition.
type Rule struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TaskType  string    `gorm:"size:64" json:"task_type"`
	RuleKey   string    `gorm:"size:100;not null;index:idx_task_rules_key_trigger" json:"rule_key"`
	Trigger   string    `gorm:"size:50;not null;index:idx_task_rules_key_trigger" json:"trigger"`
	Condition string    `gorm:"size:255;not null" json:"condition"`
	Action    string    `gorm:"size:255;not null" json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Rule) TableName() string {
	return "task_rules"
}

// ConditionLabel returns the label slug of a label: condition.
func (r *Rule) ConditionLabel() (string, bool) {
	return cutPrefix(r.Condition, conditionLabelPrefix)
}

// ActionSection returns the section key of a section: action.
func (r *Rule) ActionSection() (string, bool) {
	return cutPrefix(r.Action, actionSectionPrefix)
}

func cutPrefix(s, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), prefix)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(rest), true
}
