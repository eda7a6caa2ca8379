package repositories

import (
	"errors"
	"time"

	"tradehub_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrCompanyNotFound  = errors.New("company not found")
	ErrLocationNotFound = errors.New("location not found")
)

type CompanyRepository interface {
	Create(db *gorm.DB, company *models.Company) error
	FindByID(db *gorm.DB, id string) (*models.Company, error)
	FindByStripeCustomerID(db *gorm.DB, customerID string) (*models.Company, error)
	Update(db *gorm.DB, company *models.Company) error
	SetStripeCustomerID(db *gorm.DB, companyID, customerID string) error
	UpdateSubscriptionStatus(db *gorm.DB, companyID string, status models.SubscriptionStatus) error
	MarkOnboardingCompleted(db *gorm.DB, companyID string) error
}

type CompanyRepositoryImpl struct{}

func NewCompanyRepository() CompanyRepository {
	return &CompanyRepositoryImpl{}
}

func (r *CompanyRepositoryImpl) Create(db *gorm.DB, company *models.Company) error {
	return db.Create(company).Error
}

func (r *CompanyRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.Company, error) {
	var company models.Company
	err := db.First(&company, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}
	return &company, nil
}

func (r *CompanyRepositoryImpl) FindByStripeCustomerID(db *gorm.DB, customerID string) (*models.Company, error) {
	var company models.Company
	err := db.First(&company, "stripe_customer_id = ?", customerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}
	return &company, nil
}

func (r *CompanyRepositoryImpl) Update(db *gorm.DB, company *models.Company) error {
	result := db.Model(company).Updates(map[string]interface{}{
		"name":          company.Name,
		"trade":         company.Trade,
		"billing_email": company.BillingEmail,
		"phone":         company.Phone,
		"updated_at":    time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCompanyNotFound
	}
	return nil
}

func (r *CompanyRepositoryImpl) SetStripeCustomerID(db *gorm.DB, companyID, customerID string) error {
	result := db.Model(&models.Company{}).Where("id = ?", companyID).Updates(map[string]interface{}{
		"stripe_customer_id": customerID,
		"updated_at":         time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCompanyNotFound
	}
	return nil
}

func (r *CompanyRepositoryImpl) UpdateSubscriptionStatus(db *gorm.DB, companyID string, status models.SubscriptionStatus) error {
	result := db.Model(&models.Company{}).Where("id = ?", companyID).Updates(map[string]interface{}{
		"subscription_status": status,
		"updated_at":          time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCompanyNotFound
	}
	return nil
}

func (r *CompanyRepositoryImpl) MarkOnboardingCompleted(db *gorm.DB, companyID string) error {
	result := db.Model(&models.Company{}).Where("id = ?", companyID).Updates(map[string]interface{}{
		"onboarding_completed": true,
		"updated_at":           time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCompanyNotFound
	}
	return nil
}
