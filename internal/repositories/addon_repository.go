package repositories

import (
	"errors"
	"time"

	"tradehub_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrAddOnNotFound        = errors.New("add-on not found")
	ErrCompanyAddOnNotFound = errors.New("company add-on not found")
)

type AddOnRepository interface {
	FindByID(db *gorm.DB, id string) (*models.AddOn, error)
	FindByIDs(db *gorm.DB, ids []string) ([]models.AddOn, error)
	FindByCode(db *gorm.DB, code string) (*models.AddOn, error)
	FindActive(db *gorm.DB) ([]models.AddOn, error)

	// CompanyAddOn operations
	EnableForCompany(db *gorm.DB, link *models.CompanyAddOn) error
	DisableForCompany(db *gorm.DB, companyID, addOnID string) error
	FindCompanyAddOn(db *gorm.DB, companyID, addOnID string) (*models.CompanyAddOn, error)
	ListByCompany(db *gorm.DB, companyID string) ([]models.CompanyAddOn, error)
	SetStripeItemID(db *gorm.DB, id, stripeItemID string) error
}

type AddOnRepositoryImpl struct{}

func NewAddOnRepository() AddOnRepository {
	return &AddOnRepositoryImpl{}
}

func (r *AddOnRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.AddOn, error) {
	var addon models.AddOn
	err := db.First(&addon, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAddOnNotFound
		}
		return nil, err
	}
	return &addon, nil
}

func (r *AddOnRepositoryImpl) FindByIDs(db *gorm.DB, ids []string) ([]models.AddOn, error) {
	var addons []models.AddOn
	if len(ids) == 0 {
		return addons, nil
	}
	err := db.Where("id IN ?", ids).Find(&addons).Error
	return addons, err
}

func (r *AddOnRepositoryImpl) FindByCode(db *gorm.DB, code string) (*models.AddOn, error) {
	var addon models.AddOn
	err := db.Where("code = ?", code).First(&addon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAddOnNotFound
		}
		return nil, err
	}
	return &addon, nil
}

func (r *AddOnRepositoryImpl) FindActive(db *gorm.DB) ([]models.AddOn, error) {
	var addons []models.AddOn
	err := db.Where("is_active = ?", true).Order("created_at ASC").Find(&addons).Error
	return addons, err
}

// EnableForCompany создает связь company-addon, если ее еще нет.
// Повторное включение уже включенного add-on не является ошибкой.
func (r *AddOnRepositoryImpl) EnableForCompany(db *gorm.DB, link *models.CompanyAddOn) error {
	var existing models.CompanyAddOn
	err := db.Where("company_id = ? AND add_on_id = ?", link.CompanyID, link.AddOnID).
		First(&existing).Error
	if err == nil {
		*link = existing
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return db.Create(link).Error
}

func (r *AddOnRepositoryImpl) DisableForCompany(db *gorm.DB, companyID, addOnID string) error {
	result := db.Where("company_id = ? AND add_on_id = ?", companyID, addOnID).
		Delete(&models.CompanyAddOn{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCompanyAddOnNotFound
	}
	return nil
}

func (r *AddOnRepositoryImpl) FindCompanyAddOn(db *gorm.DB, companyID, addOnID string) (*models.CompanyAddOn, error) {
	var link models.CompanyAddOn
	err := db.Preload("AddOn").
		Where("company_id = ? AND add_on_id = ?", companyID, addOnID).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyAddOnNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *AddOnRepositoryImpl) ListByCompany(db *gorm.DB, companyID string) ([]models.CompanyAddOn, error) {
	var links []models.CompanyAddOn
	err := db.Preload("AddOn").Where("company_id = ?", companyID).Find(&links).Error
	return links, err
}

func (r *AddOnRepositoryImpl) SetStripeItemID(db *gorm.DB, id, stripeItemID string) error {
	result := db.Model(&models.CompanyAddOn{}).Where("id = ?", id).Updates(map[string]interface{}{
		"stripe_item_id": stripeItemID,
		"updated_at":     time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCompanyAddOnNotFound
	}
	return nil
}
