package repositories

import (
	"errors"
	"time"

	"tradehub_backend/internal/models"

	"gorm.io/gorm"
)

var ErrOnboardingNotFound = errors.New("onboarding state not found")

type OnboardingRepository interface {
	GetOrCreate(db *gorm.DB, companyID string) (*models.OnboardingState, error)
	Update(db *gorm.DB, state *models.OnboardingState) error
}

type OnboardingRepositoryImpl struct{}

func NewOnboardingRepository() OnboardingRepository {
	return &OnboardingRepositoryImpl{}
}

func (r *OnboardingRepositoryImpl) GetOrCreate(db *gorm.DB, companyID string) (*models.OnboardingState, error) {
	var state models.OnboardingState
	err := db.Where("company_id = ?", companyID).First(&state).Error
	if err == nil {
		return &state, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	state = models.OnboardingState{
		CompanyID:   companyID,
		CurrentStep: models.OnboardingStepCompany,
	}
	if err := db.Create(&state).Error; err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *OnboardingRepositoryImpl) Update(db *gorm.DB, state *models.OnboardingState) error {
	result := db.Model(state).Updates(map[string]interface{}{
		"current_step": state.CurrentStep,
		"data":         state.Data,
		"completed_at": state.CompletedAt,
		"updated_at":   time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOnboardingNotFound
	}
	return nil
}
