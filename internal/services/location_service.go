package services

import (
	"context"

	"tradehub_backend/internal/dto"
	"tradehub_backend/internal/models"
	"tradehub_backend/internal/repositories"
	"tradehub_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type LocationService interface {
	Create(ctx context.Context, db *gorm.DB, companyID string, req *dto.CreateLocationRequest) (*models.Location, error)
	List(ctx context.Context, db *gorm.DB, companyID string) ([]models.Location, error)
	Update(ctx context.Context, db *gorm.DB, companyID, locationID string, req *dto.UpdateLocationRequest) (*models.Location, error)
	Delete(ctx context.Context, db *gorm.DB, companyID, locationID string) error
	SetPrimary(ctx context.Context, db *gorm.DB, companyID, locationID string) error
}

type LocationServiceImpl struct {
	locationRepo repositories.LocationRepository
}

func NewLocationService(locationRepo repositories.LocationRepository) LocationService {
	return &LocationServiceImpl{locationRepo: locationRepo}
}

func (s *LocationServiceImpl) Create(ctx context.Context, db *gorm.DB, companyID string, req *dto.CreateLocationRequest) (*models.Location, error) {
	location := &models.Location{
		CompanyID: companyID,
		Name:      req.Name,
		Address:   req.Address,
		City:      req.City,
		Region:    req.Region,
		Postal:    req.Postal,
		Country:   req.Country,
		IsPrimary: req.IsPrimary,
	}
	if err := s.locationRepo.Create(db, location); err != nil {
		return nil, err
	}
	if req.IsPrimary {
		if err := s.locationRepo.SetPrimary(db, companyID, location.ID); err != nil {
			return nil, err
		}
	}
	return location, nil
}

func (s *LocationServiceImpl) List(ctx context.Context, db *gorm.DB, companyID string) ([]models.Location, error) {
	return s.locationRepo.ListByCompany(db, companyID)
}

func (s *LocationServiceImpl) Update(ctx context.Context, db *gorm.DB, companyID, locationID string, req *dto.UpdateLocationRequest) (*models.Location, error) {
	location, err := s.locationRepo.FindByID(db, companyID, locationID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrLocationNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, err
	}

	if req.Name != "" {
		location.Name = req.Name
	}
	if req.Address != "" {
		location.Address = req.Address
	}
	if req.City != "" {
		location.City = req.City
	}
	if req.Region != "" {
		location.Region = req.Region
	}
	if req.Postal != "" {
		location.Postal = req.Postal
	}
	if req.Country != "" {
		location.Country = req.Country
	}

	if err := s.locationRepo.Update(db, location); err != nil {
		return nil, err
	}
	return location, nil
}

func (s *LocationServiceImpl) Delete(ctx context.Context, db *gorm.DB, companyID, locationID string) error {
	err := s.locationRepo.Delete(db, companyID, locationID)
	if apperrors.Is(err, repositories.ErrLocationNotFound) {
		return apperrors.ErrNotFound(err)
	}
	return err
}

func (s *LocationServiceImpl) SetPrimary(ctx context.Context, db *gorm.DB, companyID, locationID string) error {
	err := s.locationRepo.SetPrimary(db, companyID, locationID)
	if apperrors.Is(err, repositories.ErrLocationNotFound) {
		return apperrors.ErrNotFound(err)
	}
	return err
}
