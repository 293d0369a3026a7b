package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/todosync/internal/domain/model"
)

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running GORM auto-migrations...")
	err := db.AutoMigrate(
		&model.Template{},
		&model.TemplateTask{},
		&model.Task{},
		&model.Section{},
		&model.Label{},
		&model.Rule{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	logger.Info("Creating custom indexes...")
	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createCustomIndexes creates indexes GORM tags cannot express.
func createCustomIndexes(db *gorm.DB) error {
	// Unsynced tasks all carry an empty external id.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uniq_tasks_external_id ON tasks (external_id) WHERE external_id <> ''`).Error; err != nil {
		return err
	}

	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_template_tasks_order ON template_tasks (template_id, sort_order, id)`).Error; err != nil {
		return err
	}

	return nil
}
