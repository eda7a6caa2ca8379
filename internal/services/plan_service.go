package services

import (
	"context"

	"tradehub_backend/internal/models"
	"tradehub_backend/internal/repositories"
	"tradehub_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// PlanService - чтение каталога тарифов. Каталог наполняется сидом
// или админом напрямую, публичный API дает только чтение.
type PlanService interface {
	ListActive(ctx context.Context, db *gorm.DB) ([]models.Plan, error)
	GetByID(ctx context.Context, db *gorm.DB, planID string) (*models.Plan, error)
	ListPlanAddOns(ctx context.Context, db *gorm.DB, planID string) ([]models.PlanAddOn, error)
}

type PlanServiceImpl struct {
	planRepo repositories.PlanRepository
}

func NewPlanService(planRepo repositories.PlanRepository) PlanService {
	return &PlanServiceImpl{planRepo: planRepo}
}

func (s *PlanServiceImpl) ListActive(ctx context.Context, db *gorm.DB) ([]models.Plan, error) {
	return s.planRepo.FindActivePlans(db)
}

func (s *PlanServiceImpl) GetByID(ctx context.Context, db *gorm.DB, planID string) (*models.Plan, error) {
	plan, err := s.planRepo.FindPlanByID(db, planID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrPlanNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, err
	}
	return plan, nil
}

func (s *PlanServiceImpl) ListPlanAddOns(ctx context.Context, db *gorm.DB, planID string) ([]models.PlanAddOn, error) {
	if _, err := s.GetByID(ctx, db, planID); err != nil {
		return nil, err
	}
	return s.planRepo.ListPlanAddOns(db, planID)
}
