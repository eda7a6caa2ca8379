package repositories

import (
	"errors"

	"tradehub_backend/internal/models"

	"gorm.io/gorm"
)

var ErrTransactionNotFound = errors.New("transaction not found")

type TransactionRepository interface {
	// RecordIfAbsent - единственный путь записи в журнал. Если запись с таким
	// stripe_object_id уже есть, она возвращается без изменений (created=false).
	// Update-пути у журнала нет.
	RecordIfAbsent(db *gorm.DB, txn *models.Transaction) (bool, error)
	FindByStripeObjectID(db *gorm.DB, stripeObjectID string) (*models.Transaction, error)
	ListByCompany(db *gorm.DB, companyID string, limit, offset int) ([]models.Transaction, int64, error)
}

type TransactionRepositoryImpl struct{}

func NewTransactionRepository() TransactionRepository {
	return &TransactionRepositoryImpl{}
}

func (r *TransactionRepositoryImpl) RecordIfAbsent(db *gorm.DB, txn *models.Transaction) (bool, error) {
	var existing models.Transaction
	err := db.Where("stripe_object_id = ?", txn.StripeObjectID).First(&existing).Error
	if err == nil {
		*txn = existing
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if err := db.Create(txn).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (r *TransactionRepositoryImpl) FindByStripeObjectID(db *gorm.DB, stripeObjectID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := db.First(&txn, "stripe_object_id = ?", stripeObjectID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &txn, nil
}

func (r *TransactionRepositoryImpl) ListByCompany(db *gorm.DB, companyID string, limit, offset int) ([]models.Transaction, int64, error) {
	var txns []models.Transaction
	var total int64

	q := db.Model(&models.Transaction{}).Where("company_id = ?", companyID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&txns).Error
	return txns, total, err
}
