package services

import (
	"context"

	"tradehub_backend/internal/dto"
	"tradehub_backend/internal/models"
	"tradehub_backend/internal/repositories"
	"tradehub_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type CompanyService interface {
	Get(ctx context.Context, db *gorm.DB, companyID string) (*models.Company, error)
	Update(ctx context.Context, db *gorm.DB, companyID string, req *dto.UpdateCompanyRequest) (*models.Company, error)
}

type CompanyServiceImpl struct {
	companyRepo repositories.CompanyRepository
}

func NewCompanyService(companyRepo repositories.CompanyRepository) CompanyService {
	return &CompanyServiceImpl{companyRepo: companyRepo}
}

func (s *CompanyServiceImpl) Get(ctx context.Context, db *gorm.DB, companyID string) (*models.Company, error) {
	company, err := s.companyRepo.FindByID(db, companyID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrCompanyNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, err
	}
	return company, nil
}

func (s *CompanyServiceImpl) Update(ctx context.Context, db *gorm.DB, companyID string, req *dto.UpdateCompanyRequest) (*models.Company, error) {
	company, err := s.Get(ctx, db, companyID)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		company.Name = req.Name
	}
	if req.Trade != "" {
		company.Trade = req.Trade
	}
	if req.BillingEmail != "" {
		company.BillingEmail = req.BillingEmail
	}
	if req.Phone != "" {
		company.Phone = req.Phone
	}

	if err := s.companyRepo.Update(db, company); err != nil {
		return nil, err
	}
	return company, nil
}
