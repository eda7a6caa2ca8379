package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"tradehub_backend/internal/auth"
	"tradehub_backend/internal/dto"
	"tradehub_backend/internal/logger"
	"tradehub_backend/internal/models"
	"tradehub_backend/internal/repositories"
	"tradehub_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type AuthService interface {
	// Register создает компанию и ее владельца одной транзакцией
	Register(ctx context.Context, db *gorm.DB, req *dto.RegisterRequest) (*dto.LoginResponse, error)
	Login(ctx context.Context, db *gorm.DB, req *dto.LoginRequest) (*dto.LoginResponse, error)
	RefreshToken(ctx context.Context, db *gorm.DB, refreshToken string) (*dto.LoginResponse, error)
	Logout(ctx context.Context, db *gorm.DB, refreshToken string) error
	AcceptInvite(ctx context.Context, db *gorm.DB, req *dto.AcceptInviteRequest) (*dto.LoginResponse, error)
	ChangePassword(ctx context.Context, db *gorm.DB, userID string, req *dto.ChangePasswordRequest) error
}

type AuthServiceImpl struct {
	userRepo    repositories.UserRepository
	companyRepo repositories.CompanyRepository
	email       EmailService
}

func NewAuthService(
	userRepo repositories.UserRepository,
	companyRepo repositories.CompanyRepository,
	email EmailService,
) AuthService {
	return &AuthServiceImpl{
		userRepo:    userRepo,
		companyRepo: companyRepo,
		email:       email,
	}
}

func (s *AuthServiceImpl) Register(ctx context.Context, db *gorm.DB, req *dto.RegisterRequest) (*dto.LoginResponse, error) {
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, apperrors.ErrWeakPassword
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	var user *models.User
	err = db.Transaction(func(tx *gorm.DB) error {
		company := &models.Company{
			Name:         req.CompanyName,
			Trade:        req.Trade,
			BillingEmail: req.Email,
			Phone:        req.Phone,
		}
		if err := s.companyRepo.Create(tx, company); err != nil {
			return err
		}

		user = &models.User{
			CompanyID:    company.ID,
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: hash,
			Role:         models.UserRoleOwner,
			Status:       models.UserStatusActive,
		}
		if err := s.userRepo.Create(tx, user); err != nil {
			if apperrors.Is(err, repositories.ErrUserAlreadyExists) {
				return apperrors.ErrEmailAlreadyExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.email != nil {
		if mErr := s.email.SendWelcome(user.Email, user.Name); mErr != nil {
			logger.CtxWithError(ctx, "failed to send welcome email", mErr, "user_id", user.ID)
		}
	}

	return s.issueTokens(db, user)
}

func (s *AuthServiceImpl) Login(ctx context.Context, db *gorm.DB, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userRepo.FindByEmail(db, req.Email)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.InternalError(err)
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if user.Status == models.UserStatusSuspended {
		return nil, apperrors.ErrUserSuspended
	}
	if user.Status == models.UserStatusInvited {
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := s.userRepo.UpdateLastLogin(db, user.ID); err != nil {
		logger.CtxWithError(ctx, "failed to record last login", err, "user_id", user.ID)
	}

	return s.issueTokens(db, user)
}

func (s *AuthServiceImpl) RefreshToken(ctx context.Context, db *gorm.DB, refreshToken string) (*dto.LoginResponse, error) {
	token, err := s.userRepo.FindRefreshToken(db, refreshToken)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	if time.Now().After(token.ExpiresAt) {
		s.userRepo.RevokeRefreshToken(db, refreshToken)
		return nil, apperrors.ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(db, token.UserID)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	if user.Status == models.UserStatusSuspended {
		return nil, apperrors.ErrUserSuspended
	}

	// Ротация: старый токен отзывается, выпускается новый
	if err := s.userRepo.RevokeRefreshToken(db, refreshToken); err != nil {
		return nil, apperrors.InternalError(err)
	}
	return s.issueTokens(db, user)
}

func (s *AuthServiceImpl) Logout(ctx context.Context, db *gorm.DB, refreshToken string) error {
	err := s.userRepo.RevokeRefreshToken(db, refreshToken)
	if apperrors.Is(err, repositories.ErrRefreshTokenNotFound) {
		return nil
	}
	return err
}

func (s *AuthServiceImpl) AcceptInvite(ctx context.Context, db *gorm.DB, req *dto.AcceptInviteRequest) (*dto.LoginResponse, error) {
	user, err := s.userRepo.FindByInviteToken(db, req.Token)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	if user.Status != models.UserStatusInvited {
		return nil, apperrors.ErrInvalidToken
	}
	if user.InviteExpiresAt == nil || time.Now().After(*user.InviteExpiresAt) {
		return nil, apperrors.ErrInvalidToken
	}

	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, apperrors.ErrWeakPassword
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	user.PasswordHash = hash
	user.Status = models.UserStatusActive
	user.InviteToken = ""
	user.InviteExpiresAt = nil
	if err := s.userRepo.Update(db, user); err != nil {
		return nil, apperrors.InternalError(err)
	}

	return s.issueTokens(db, user)
}

func (s *AuthServiceImpl) ChangePassword(ctx context.Context, db *gorm.DB, userID string, req *dto.ChangePasswordRequest) error {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		return apperrors.InternalError(err)
	}

	if !auth.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		return apperrors.ErrInvalidCredentials
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		return apperrors.ErrWeakPassword
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return apperrors.InternalError(err)
	}
	user.PasswordHash = hash
	return s.userRepo.Update(db, user)
}

// issueTokens выпускает пару access/refresh для пользователя
func (s *AuthServiceImpl) issueTokens(db *gorm.DB, user *models.User) (*dto.LoginResponse, error) {
	accessToken, err := auth.GenerateToken(user.ID, user.CompanyID, string(user.Role))
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	refreshToken := generateRandomToken()
	rt := &models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: time.Now().Add(30 * 24 * time.Hour),
	}
	if err := s.userRepo.CreateRefreshToken(db, rt); err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         dto.NewUserResponse(user),
	}, nil
}

// generateRandomToken генерирует криптостойкий случайный токен
func generateRandomToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand на поддерживаемых платформах не возвращает ошибку
		panic(err)
	}
	return hex.EncodeToString(buf)
}
