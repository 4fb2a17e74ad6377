package migrations

import (
	"formdesk.link/configs/configslog"
	"formdesk.link/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MigrateFormsTables creates forms, questions and question_options.
func MigrateFormsTables(db *gorm.DB) error {
	configslog.SLog.Info("Migrating forms, questions & question_options tables...")
	err := db.AutoMigrate(&models.Form{}, &models.Question{}, &models.QuestionOption{})
	if err != nil {
		configslog.Log.Error("Failed to migrate forms, questions & question_options tables", zap.Error(err))
		return err
	}
	configslog.SLog.Info("Forms, questions & question_options tables migrated successfully")
	return nil
}
