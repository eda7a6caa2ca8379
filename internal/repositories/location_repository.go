package repositories

import (
	"errors"
	"time"

	"tradehub_backend/internal/models"

	"gorm.io/gorm"
)

type LocationRepository interface {
	Create(db *gorm.DB, location *models.Location) error
	FindByID(db *gorm.DB, companyID, id string) (*models.Location, error)
	ListByCompany(db *gorm.DB, companyID string) ([]models.Location, error)
	Update(db *gorm.DB, location *models.Location) error
	Delete(db *gorm.DB, companyID, id string) error
	SetPrimary(db *gorm.DB, companyID, id string) error
}

type LocationRepositoryImpl struct{}

func NewLocationRepository() LocationRepository {
	return &LocationRepositoryImpl{}
}

func (r *LocationRepositoryImpl) Create(db *gorm.DB, location *models.Location) error {
	return db.Create(location).Error
}

func (r *LocationRepositoryImpl) FindByID(db *gorm.DB, companyID, id string) (*models.Location, error) {
	var location models.Location
	err := db.First(&location, "id = ? AND company_id = ?", id, companyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLocationNotFound
		}
		return nil, err
	}
	return &location, nil
}

func (r *LocationRepositoryImpl) ListByCompany(db *gorm.DB, companyID string) ([]models.Location, error) {
	var locations []models.Location
	err := db.Where("company_id = ?", companyID).
		Order("is_primary DESC, created_at ASC").
		Find(&locations).Error
	return locations, err
}

func (r *LocationRepositoryImpl) Update(db *gorm.DB, location *models.Location) error {
	result := db.Model(location).Where("company_id = ?", location.CompanyID).Updates(map[string]interface{}{
		"name":       location.Name,
		"address":    location.Address,
		"city":       location.City,
		"region":     location.Region,
		"postal":     location.Postal,
		"country":    location.Country,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLocationNotFound
	}
	return nil
}

func (r *LocationRepositoryImpl) Delete(db *gorm.DB, companyID, id string) error {
	result := db.Where("id = ? AND company_id = ?", id, companyID).Delete(&models.Location{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLocationNotFound
	}
	return nil
}

func (r *LocationRepositoryImpl) SetPrimary(db *gorm.DB, companyID, id string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Location{}).
			Where("company_id = ?", companyID).
			Update("is_primary", false).Error; err != nil {
			return err
		}
		result := tx.Model(&models.Location{}).
			Where("id = ? AND company_id = ?", id, companyID).
			Update("is_primary", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrLocationNotFound
		}
		return nil
	})
}
