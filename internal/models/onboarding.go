package models

import (
	"time"

	"gorm.io/datatypes"
)

type OnboardingStep string

const (
	OnboardingStepCompany   OnboardingStep = "company"
	OnboardingStepLocations OnboardingStep = "locations"
	OnboardingStepTeam      OnboardingStep = "team"
	OnboardingStepPlan      OnboardingStep = "plan"
	OnboardingStepDone      OnboardingStep = "done"
)

// OnboardingState - прогресс мастера первоначальной настройки компании
type OnboardingState struct {
	BaseModel
	CompanyID   string         `gorm:"type:uuid;uniqueIndex;not null"`
	CurrentStep OnboardingStep `gorm:"default:'company'"`
	Data        datatypes.JSON `gorm:"type:jsonb"` // черновики шагов
	CompletedAt *time.Time

	Company Company `gorm:"foreignKey:CompanyID"`
}
