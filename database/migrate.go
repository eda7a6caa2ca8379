package database

import (
	"fmt"

	"tradehub_backend/internal/logger"
	"tradehub_backend/internal/models"

	"gorm.io/gorm"
)

// Migrate выполняет миграцию всех моделей
func Migrate(db *gorm.DB) error {
	// uuid_generate_v4() для первичных ключей
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return fmt.Errorf("failed to create uuid-ossp extension: %w", err)
	}

	err := db.AutoMigrate(
		&models.Company{},
		&models.Location{},
		&models.User{},
		&models.RefreshToken{},
		&models.Plan{},
		&models.PlanPrice{},
		&models.AddOn{},
		&models.PlanAddOn{},
		&models.CompanyAddOn{},
		&models.CompanySubscription{},
		&models.SubscriptionPeriod{},
		&models.Transaction{},
		&models.OnboardingState{},
	)
	if err != nil {
		return fmt.Errorf("AutoMigrate failed: %w", err)
	}

	logger.Info("Database migration completed")
	return nil
}
