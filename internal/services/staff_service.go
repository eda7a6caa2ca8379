package services

import (
	"context"
	"time"

	"tradehub_backend/internal/dto"
	"tradehub_backend/internal/logger"
	"tradehub_backend/internal/models"
	"tradehub_backend/internal/repositories"
	"tradehub_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// StaffService управляет сотрудниками компании. Лимит мест берется из
// снапшота активной подписки; без подписки действует лимит одного места.
type StaffService interface {
	Invite(ctx context.Context, db *gorm.DB, companyID string, req *dto.InviteStaffRequest) (*models.User, error)
	List(ctx context.Context, db *gorm.DB, companyID string) ([]models.User, error)
	Update(ctx context.Context, db *gorm.DB, companyID, userID string, req *dto.UpdateStaffRequest) (*models.User, error)
	Suspend(ctx context.Context, db *gorm.DB, companyID, userID string) error
	Activate(ctx context.Context, db *gorm.DB, companyID, userID string) error
	Remove(ctx context.Context, db *gorm.DB, companyID, userID string) error
}

type StaffServiceImpl struct {
	userRepo    repositories.UserRepository
	companyRepo repositories.CompanyRepository
	subRepo     repositories.SubscriptionRepository
	email       EmailService
}

func NewStaffService(
	userRepo repositories.UserRepository,
	companyRepo repositories.CompanyRepository,
	subRepo repositories.SubscriptionRepository,
	email EmailService,
) StaffService {
	return &StaffServiceImpl{
		userRepo:    userRepo,
		companyRepo: companyRepo,
		subRepo:     subRepo,
		email:       email,
	}
}

func (s *StaffServiceImpl) Invite(ctx context.Context, db *gorm.DB, companyID string, req *dto.InviteStaffRequest) (*models.User, error) {
	if err := s.checkSeatLimit(db, companyID); err != nil {
		return nil, err
	}

	inviteExpires := time.Now().Add(7 * 24 * time.Hour)
	user := &models.User{
		CompanyID:       companyID,
		Name:            req.Name,
		Email:           req.Email,
		PasswordHash:    generateRandomToken(), // заглушка до активации, логин невозможен
		Role:            models.UserRole(req.Role),
		Status:          models.UserStatusInvited,
		InviteToken:     generateRandomToken(),
		InviteExpiresAt: &inviteExpires,
	}

	if err := s.userRepo.Create(db, user); err != nil {
		if apperrors.Is(err, repositories.ErrUserAlreadyExists) {
			return nil, apperrors.ErrEmailAlreadyExists
		}
		return nil, apperrors.InternalError(err)
	}

	if s.email != nil {
		company, cErr := s.companyRepo.FindByID(db, companyID)
		companyName := ""
		if cErr == nil {
			companyName = company.Name
		}
		if mErr := s.email.SendInvite(user.Email, companyName, user.InviteToken); mErr != nil {
			logger.CtxWithError(ctx, "failed to send invite email", mErr, "user_id", user.ID)
		}
	}

	return user, nil
}

func (s *StaffServiceImpl) List(ctx context.Context, db *gorm.DB, companyID string) ([]models.User, error) {
	return s.userRepo.ListByCompany(db, companyID)
}

func (s *StaffServiceImpl) Update(ctx context.Context, db *gorm.DB, companyID, userID string, req *dto.UpdateStaffRequest) (*models.User, error) {
	user, err := s.findInCompany(db, companyID, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == models.UserRoleOwner && req.Role != "" {
		return nil, apperrors.ErrInsufficientPermissions
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Role != "" {
		user.Role = models.UserRole(req.Role)
	}
	if err := s.userRepo.Update(db, user); err != nil {
		return nil, apperrors.InternalError(err)
	}
	return user, nil
}

func (s *StaffServiceImpl) Suspend(ctx context.Context, db *gorm.DB, companyID, userID string) error {
	user, err := s.findInCompany(db, companyID, userID)
	if err != nil {
		return err
	}
	if user.Role == models.UserRoleOwner {
		return apperrors.ErrInsufficientPermissions
	}
	return s.userRepo.UpdateStatus(db, user.ID, models.UserStatusSuspended)
}

func (s *StaffServiceImpl) Activate(ctx context.Context, db *gorm.DB, companyID, userID string) error {
	user, err := s.findInCompany(db, companyID, userID)
	if err != nil {
		return err
	}
	if user.Status != models.UserStatusSuspended {
		return nil
	}
	// Возвращение из suspended занимает место
	if err := s.checkSeatLimit(db, companyID); err != nil {
		return err
	}
	return s.userRepo.UpdateStatus(db, user.ID, models.UserStatusActive)
}

func (s *StaffServiceImpl) Remove(ctx context.Context, db *gorm.DB, companyID, userID string) error {
	user, err := s.findInCompany(db, companyID, userID)
	if err != nil {
		return err
	}
	if user.Role == models.UserRoleOwner {
		return apperrors.ErrInsufficientPermissions
	}
	return s.userRepo.Delete(db, companyID, userID)
}

func (s *StaffServiceImpl) findInCompany(db *gorm.DB, companyID, userID string) (*models.User, error) {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	if user.CompanyID != companyID {
		return nil, apperrors.ErrNotFound(repositories.ErrUserNotFound)
	}
	return user, nil
}

// checkSeatLimit сравнивает число занятых мест с лимитом из снапшота
// подписки. nil MaxUsers означает безлимит.
func (s *StaffServiceImpl) checkSeatLimit(db *gorm.DB, companyID string) error {
	var limit *int
	sub, err := s.subRepo.FindCurrentByCompany(db, companyID)
	switch {
	case err == nil:
		limit = sub.MaxUsers
	case apperrors.Is(err, repositories.ErrSubscriptionNotFound):
		one := 1
		limit = &one
	default:
		return apperrors.InternalError(err)
	}

	if limit == nil {
		return nil
	}
	count, err := s.userRepo.CountActiveByCompany(db, companyID)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if count >= int64(*limit) {
		return apperrors.ErrSeatLimitReached
	}
	return nil
}
