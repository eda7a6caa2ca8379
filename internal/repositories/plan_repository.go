package repositories

import (
	"errors"
	"time"

	"tradehub_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrPlanNotFound      = errors.New("plan not found")
	ErrPlanPriceNotFound = errors.New("plan price not found")
)

type PlanRepository interface {
	CreatePlan(db *gorm.DB, plan *models.Plan) error
	FindPlanByID(db *gorm.DB, id string) (*models.Plan, error)
	FindPlanByCode(db *gorm.DB, code string) (*models.Plan, error)
	FindActivePlans(db *gorm.DB) ([]models.Plan, error)
	UpdatePlan(db *gorm.DB, plan *models.Plan) error
	DeactivatePlan(db *gorm.DB, id string) error

	CreatePrice(db *gorm.DB, price *models.PlanPrice) error
	FindPriceByID(db *gorm.DB, id string) (*models.PlanPrice, error)
	FindPriceByStripeID(db *gorm.DB, stripePriceID string) (*models.PlanPrice, error)

	ListPlanAddOns(db *gorm.DB, planID string) ([]models.PlanAddOn, error)
}

type PlanRepositoryImpl struct{}

func NewPlanRepository() PlanRepository {
	return &PlanRepositoryImpl{}
}

func (r *PlanRepositoryImpl) CreatePlan(db *gorm.DB, plan *models.Plan) error {
	return db.Create(plan).Error
}

func (r *PlanRepositoryImpl) FindPlanByID(db *gorm.DB, id string) (*models.Plan, error) {
	var plan models.Plan
	err := db.Preload("Prices").First(&plan, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *PlanRepositoryImpl) FindPlanByCode(db *gorm.DB, code string) (*models.Plan, error) {
	var plan models.Plan
	err := db.Preload("Prices").Where("code = ?", code).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *PlanRepositoryImpl) FindActivePlans(db *gorm.DB) ([]models.Plan, error) {
	var plans []models.Plan
	err := db.Preload("Prices", "is_active = ?", true).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&plans).Error
	return plans, err
}

func (r *PlanRepositoryImpl) UpdatePlan(db *gorm.DB, plan *models.Plan) error {
	result := db.Model(plan).Updates(map[string]interface{}{
		"name":        plan.Name,
		"description": plan.Description,
		"tier":        plan.Tier,
		"features":    plan.Features,
		"is_active":   plan.IsActive,
		"updated_at":  time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPlanNotFound
	}
	return nil
}

func (r *PlanRepositoryImpl) DeactivatePlan(db *gorm.DB, id string) error {
	result := db.Model(&models.Plan{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_active":  false,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPlanNotFound
	}
	return nil
}

func (r *PlanRepositoryImpl) CreatePrice(db *gorm.DB, price *models.PlanPrice) error {
	return db.Create(price).Error
}

func (r *PlanRepositoryImpl) FindPriceByID(db *gorm.DB, id string) (*models.PlanPrice, error) {
	var price models.PlanPrice
	err := db.First(&price, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanPriceNotFound
		}
		return nil, err
	}
	return &price, nil
}

func (r *PlanRepositoryImpl) FindPriceByStripeID(db *gorm.DB, stripePriceID string) (*models.PlanPrice, error) {
	var price models.PlanPrice
	err := db.First(&price, "stripe_price_id = ?", stripePriceID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanPriceNotFound
		}
		return nil, err
	}
	return &price, nil
}

func (r *PlanRepositoryImpl) ListPlanAddOns(db *gorm.DB, planID string) ([]models.PlanAddOn, error) {
	var links []models.PlanAddOn
	err := db.Preload("AddOn").Where("plan_id = ?", planID).Find(&links).Error
	return links, err
}
