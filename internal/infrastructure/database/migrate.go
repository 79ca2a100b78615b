package database

import (
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate creates or updates the users, recipes and payment_events tables.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	if err := db.AutoMigrate(
		&model.User{},
		&model.Recipe{},
		&model.PaymentEvent{},
	); err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createCustomIndexes creates indexes GORM tags cannot express.
func createCustomIndexes(db *gorm.DB) error {
	// Abuse review lists users with recorded invalid requests.
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_users_invalid_requests ON users (last_invalid_request_at) WHERE invalid_request_count > 0`).Error; err != nil {
		return err
	}
	return nil
}
