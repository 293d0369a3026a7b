package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/todosync/internal/adapter/repository"
	domainRepo "github.com/wekeepgrowing/todosync/internal/domain/repository"
	"github.com/wekeepgrowing/todosync/internal/usecase"
)

// Repositories holds all repository instances
type Repositories struct {
	Task     domainRepo.TaskRepository
	Template domainRepo.TemplateRepository
	Section  domainRepo.SectionRepository
	Label    domainRepo.LabelRepository
	Rule     domainRepo.RuleRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Task:     repository.NewTaskRepository(db, logger),
		Template: repository.NewTemplateRepository(db, logger),
		Section:  repository.NewSectionRepository(db, logger),
		Label:    repository.NewLabelRepository(db, usecase.Slugify, logger),
		Rule:     repository.NewRuleRepository(db, logger),
	}
}
