package database

import (
	"errors"

	"formdesk.link/configs/configslog"
	"formdesk.link/database/migrations"
	"formdesk.link/database/seeders"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Initialize runs the requested migrations and seeders in one transaction.
func Initialize(db *gorm.DB, migrate bool, seed bool) error {
	if !migrate && !seed {
		configslog.SLog.Info("Neither migrate nor seed requested, nothing to do.")
		return nil
	}

	configslog.SLog.Info("Database initialization starting...")
	err := db.Transaction(func(tx *gorm.DB) error {
		if migrate {
			if err := RunMigrationsInOrder(tx); err != nil {
				return err
			}
		} else {
			configslog.SLog.Info("Migrate not requested, skipping migrations.")
		}

		if seed {
			if err := CheckAndRunSeeders(tx); err != nil {
				return err
			}
		} else {
			configslog.SLog.Info("Seed not requested, skipping seeders.")
		}
		return nil
	})
	if err != nil {
		configslog.Log.Error("Database initialization rolled back", zap.Error(err))
		return err
	}

	configslog.SLog.Info("Database initialization completed")
	return nil
}

// RunMigrationsInOrder creates the form tables before the response tables that reference them.
func RunMigrationsInOrder(db *gorm.DB) error {
	configslog.SLog.Info(" -> Form migrations running...")
	if err := migrations.MigrateFormsTables(db); err != nil {
		configslog.Log.Error("Forms tables migration failed", zap.Error(err))
		return err
	}

	configslog.SLog.Info(" -> Response migrations running...")
	if err := migrations.MigrateResponsesTables(db); err != nil {
		configslog.Log.Error("Responses tables migration failed", zap.Error(err))
		return err
	}

	configslog.SLog.Info("All migrations completed.")
	return nil
}

func CheckAndRunSeeders(db *gorm.DB) error {
	if !db.Migrator().HasTable("forms") {
		return errors.New("forms table missing, run migrations first")
	}

	configslog.SLog.Info(" -> Demo form seeder running...")
	if err := seeders.SeedDemoForm(db); err != nil {
		configslog.Log.Error("Demo form seeding failed", zap.Error(err))
		return err
	}
	return nil
}
