package services

import (
	"context"
	"fmt"
	"time"

	"tradehub_backend/internal/dto"
	"tradehub_backend/internal/logger"
	"tradehub_backend/internal/models"
	"tradehub_backend/internal/repositories"
	"tradehub_backend/pkg/apperrors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Порядок шагов онбординга. Пропуск вперед не допускается,
// возврат на уже пройденный шаг - можно.
var onboardingOrder = []models.OnboardingStep{
	models.OnboardingStepCompany,
	models.OnboardingStepLocations,
	models.OnboardingStepTeam,
	models.OnboardingStepPlan,
	models.OnboardingStepDone,
}

type OnboardingResult struct {
	State *models.OnboardingState `json:"state"`
	// Заполняется на шаге plan, когда подписке нужен 3DS
	Subscription *dto.SubscriptionResponse `json:"subscription,omitempty"`
}

type OnboardingService interface {
	GetState(ctx context.Context, db *gorm.DB, companyID string) (*models.OnboardingState, error)
	Advance(ctx context.Context, db *gorm.DB, companyID string, req *dto.AdvanceOnboardingRequest) (*OnboardingResult, error)
}

type OnboardingServiceImpl struct {
	onboardingRepo repositories.OnboardingRepository
	companyRepo    repositories.CompanyRepository
	subService     SubscriptionService
}

func NewOnboardingService(
	onboardingRepo repositories.OnboardingRepository,
	companyRepo repositories.CompanyRepository,
	subService SubscriptionService,
) OnboardingService {
	return &OnboardingServiceImpl{
		onboardingRepo: onboardingRepo,
		companyRepo:    companyRepo,
		subService:     subService,
	}
}

func (s *OnboardingServiceImpl) GetState(ctx context.Context, db *gorm.DB, companyID string) (*models.OnboardingState, error) {
	return s.onboardingRepo.GetOrCreate(db, companyID)
}

func (s *OnboardingServiceImpl) Advance(ctx context.Context, db *gorm.DB, companyID string, req *dto.AdvanceOnboardingRequest) (*OnboardingResult, error) {
	state, err := s.onboardingRepo.GetOrCreate(db, companyID)
	if err != nil {
		return nil, err
	}

	step := models.OnboardingStep(req.Step)
	if stepIndex(step) > stepIndex(state.CurrentStep)+1 {
		return nil, apperrors.ErrInvalidStatus("onboarding",
			fmt.Sprintf("Cannot advance from step %q to %q", state.CurrentStep, step))
	}

	result := &OnboardingResult{}

	// Шаг plan оформляет подписку через биллинг
	if step == models.OnboardingStepPlan && req.Plan != nil {
		subResp, err := s.subService.CreateSubscription(ctx, db, companyID, req.Plan)
		if err != nil {
			return nil, err
		}
		result.Subscription = subResp
	}

	state.CurrentStep = step
	if len(req.Data) > 0 {
		state.Data = datatypes.JSON(req.Data)
	}
	if step == models.OnboardingStepDone {
		now := time.Now()
		state.CompletedAt = &now
		if err := s.companyRepo.MarkOnboardingCompleted(db, companyID); err != nil {
			logger.CtxWithError(ctx, "failed to mark company onboarding completed", err,
				"company_id", companyID)
		}
	}

	if err := s.onboardingRepo.Update(db, state); err != nil {
		return nil, err
	}

	result.State = state
	return result, nil
}

func stepIndex(step models.OnboardingStep) int {
	for i, s := range onboardingOrder {
		if s == step {
			return i
		}
	}
	return -1
}
