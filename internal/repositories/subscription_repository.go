package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tradehub_backend/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrPeriodNotFound       = errors.New("subscription period not found")
)

type SubscriptionRepository interface {
	Create(db *gorm.DB, sub *models.CompanySubscription) error
	FindByID(db *gorm.DB, id string) (*models.CompanySubscription, error)
	FindByStripeID(db *gorm.DB, stripeSubscriptionID string) (*models.CompanySubscription, error)
	// FindCurrentByCompany возвращает самую свежую подписку в оплачиваемом статусе.
	FindCurrentByCompany(db *gorm.DB, companyID string) (*models.CompanySubscription, error)
	FindLatestByCompany(db *gorm.DB, companyID string) (*models.CompanySubscription, error)
	ListByCompany(db *gorm.DB, companyID string) ([]models.CompanySubscription, error)

	Update(db *gorm.DB, sub *models.CompanySubscription) error
	UpdateStatus(db *gorm.DB, id string, status models.SubscriptionStatus) error
	UpdateStatusAndPeriod(db *gorm.DB, id string, status models.SubscriptionStatus,
		periodStart, periodEnd, expiresAt *time.Time) error
	// MergeMetadata дописывает ключи в metadata, не трогая остальные поля
	MergeMetadata(db *gorm.DB, id string, patch map[string]interface{}) error

	// CreatePeriodIfAbsent создает оплаченное окно, если пары
	// (invoice_id, period_start) еще нет. Возвращает true при создании.
	CreatePeriodIfAbsent(db *gorm.DB, period *models.SubscriptionPeriod) (bool, error)
	ListPeriods(db *gorm.DB, subscriptionID string) ([]models.SubscriptionPeriod, error)
}

type SubscriptionRepositoryImpl struct{}

func NewSubscriptionRepository() SubscriptionRepository {
	return &SubscriptionRepositoryImpl{}
}

func (r *SubscriptionRepositoryImpl) Create(db *gorm.DB, sub *models.CompanySubscription) error {
	return db.Create(sub).Error
}

func (r *SubscriptionRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.CompanySubscription, error) {
	var sub models.CompanySubscription
	err := db.First(&sub, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepositoryImpl) FindByStripeID(db *gorm.DB, stripeSubscriptionID string) (*models.CompanySubscription, error) {
	var sub models.CompanySubscription
	err := db.First(&sub, "stripe_subscription_id = ?", stripeSubscriptionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepositoryImpl) FindCurrentByCompany(db *gorm.DB, companyID string) (*models.CompanySubscription, error) {
	var sub models.CompanySubscription
	err := db.Where("company_id = ? AND status IN ?", companyID,
		[]models.SubscriptionStatus{models.SubscriptionStatusActive, models.SubscriptionStatusTrialing}).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepositoryImpl) FindLatestByCompany(db *gorm.DB, companyID string) (*models.CompanySubscription, error) {
	var sub models.CompanySubscription
	err := db.Where("company_id = ?", companyID).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepositoryImpl) ListByCompany(db *gorm.DB, companyID string) ([]models.CompanySubscription, error) {
	var subs []models.CompanySubscription
	err := db.Where("company_id = ?", companyID).
		Order("created_at DESC").
		Find(&subs).Error
	return subs, err
}

func (r *SubscriptionRepositoryImpl) Update(db *gorm.DB, sub *models.CompanySubscription) error {
	result := db.Model(sub).Updates(map[string]interface{}{
		"stripe_customer_id":      sub.StripeCustomerID,
		"stripe_subscription_id":  sub.StripeSubscriptionID,
		"stripe_price_id":         sub.StripePriceID,
		"plan_id":                 sub.PlanID,
		"price_id":                sub.PriceID,
		"plan_snapshot":           sub.PlanSnapshot,
		"addons_snapshot":         sub.AddonsSnapshot,
		"addon_ids":               sub.AddonIDs,
		"max_users":               sub.MaxUsers,
		"status":                  sub.Status,
		"current_period_start":    sub.CurrentPeriodStart,
		"current_period_end":      sub.CurrentPeriodEnd,
		"subscription_expires_at": sub.SubscriptionExpiresAt,
		"metadata":                sub.Metadata,
		"updated_at":              time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) UpdateStatus(db *gorm.DB, id string, status models.SubscriptionStatus) error {
	result := db.Model(&models.CompanySubscription{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) UpdateStatusAndPeriod(db *gorm.DB, id string, status models.SubscriptionStatus,
	periodStart, periodEnd, expiresAt *time.Time) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if periodStart != nil {
		updates["current_period_start"] = periodStart
	}
	if periodEnd != nil {
		updates["current_period_end"] = periodEnd
	}
	if expiresAt != nil {
		updates["subscription_expires_at"] = expiresAt
	}

	result := db.Model(&models.CompanySubscription{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) MergeMetadata(db *gorm.DB, id string, patch map[string]interface{}) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var sub models.CompanySubscription
		if err := tx.First(&sub, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubscriptionNotFound
			}
			return err
		}

		meta := map[string]interface{}{}
		if len(sub.Metadata) > 0 {
			if err := json.Unmarshal(sub.Metadata, &meta); err != nil {
				return fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		for k, v := range patch {
			meta[k] = v
		}

		raw, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}

		return tx.Model(&sub).Updates(map[string]interface{}{
			"metadata":   datatypes.JSON(raw),
			"updated_at": time.Now(),
		}).Error
	})
}

func (r *SubscriptionRepositoryImpl) CreatePeriodIfAbsent(db *gorm.DB, period *models.SubscriptionPeriod) (bool, error) {
	var existing models.SubscriptionPeriod
	err := db.Where("invoice_id = ? AND period_start = ?", period.InvoiceID, period.PeriodStart).
		First(&existing).Error
	if err == nil {
		*period = existing
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if err := db.Create(period).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (r *SubscriptionRepositoryImpl) ListPeriods(db *gorm.DB, subscriptionID string) ([]models.SubscriptionPeriod, error) {
	var periods []models.SubscriptionPeriod
	err := db.Where("subscription_id = ?", subscriptionID).
		Order("period_start DESC").
		Find(&periods).Error
	return periods, err
}
