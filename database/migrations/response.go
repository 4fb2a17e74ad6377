package migrations

import (
	"formdesk.link/configs/configslog"
	"formdesk.link/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MigrateResponsesTables creates form_responses and response_answers. It expects the form tables to exist.
func MigrateResponsesTables(db *gorm.DB) error {
	configslog.SLog.Info("Migrating form_responses & response_answers tables...")
	err := db.AutoMigrate(&models.FormResponse{}, &models.ResponseAnswer{})
	if err != nil {
		configslog.Log.Error("Failed to migrate form_responses & response_answers tables", zap.Error(err))
		return err
	}
	configslog.SLog.Info("Form_responses & response_answers tables migrated successfully")
	return nil
}
