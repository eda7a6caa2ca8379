package services

import (
	"context"

	"tradehub_backend/internal/models"
	"tradehub_backend/internal/repositories"

	"gorm.io/gorm"
)

// LedgerService - чтение журнала платежных событий компании.
// Запись идет только через обработчик вебхуков.
type LedgerService interface {
	ListByCompany(ctx context.Context, db *gorm.DB, companyID string, limit, offset int) ([]models.Transaction, int64, error)
}

type LedgerServiceImpl struct {
	txnRepo repositories.TransactionRepository
}

func NewLedgerService(txnRepo repositories.TransactionRepository) LedgerService {
	return &LedgerServiceImpl{txnRepo: txnRepo}
}

func (s *LedgerServiceImpl) ListByCompany(ctx context.Context, db *gorm.DB, companyID string, limit, offset int) ([]models.Transaction, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.txnRepo.ListByCompany(db, companyID, limit, offset)
}
