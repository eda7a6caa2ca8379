package repositories

import (
	"errors"
	"time"

	"tradehub_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
)

type UserRepository interface {
	Create(db *gorm.DB, user *models.User) error
	FindByID(db *gorm.DB, id string) (*models.User, error)
	FindByEmail(db *gorm.DB, email string) (*models.User, error)
	FindByInviteToken(db *gorm.DB, token string) (*models.User, error)
	ListByCompany(db *gorm.DB, companyID string) ([]models.User, error)
	CountActiveByCompany(db *gorm.DB, companyID string) (int64, error)
	Update(db *gorm.DB, user *models.User) error
	UpdateStatus(db *gorm.DB, userID string, status models.UserStatus) error
	UpdateLastLogin(db *gorm.DB, userID string) error
	Delete(db *gorm.DB, companyID, userID string) error

	CreateRefreshToken(db *gorm.DB, token *models.RefreshToken) error
	FindRefreshToken(db *gorm.DB, token string) (*models.RefreshToken, error)
	RevokeRefreshToken(db *gorm.DB, token string) error
	DeleteExpiredRefreshTokens(db *gorm.DB) error
}

type UserRepositoryImpl struct{}

func NewUserRepository() UserRepository {
	return &UserRepositoryImpl{}
}

func (r *UserRepositoryImpl) Create(db *gorm.DB, user *models.User) error {
	var existing models.User
	if err := db.Where("email = ?", user.Email).First(&existing).Error; err == nil {
		return ErrUserAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return db.Create(user).Error
}

func (r *UserRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	err := db.Preload("Company").First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByEmail(db *gorm.DB, email string) (*models.User, error) {
	var user models.User
	err := db.Preload("Company").First(&user, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByInviteToken(db *gorm.DB, token string) (*models.User, error) {
	var user models.User
	err := db.First(&user, "invite_token = ?", token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) ListByCompany(db *gorm.DB, companyID string) ([]models.User, error) {
	var users []models.User
	err := db.Where("company_id = ?", companyID).Order("created_at ASC").Find(&users).Error
	return users, err
}

func (r *UserRepositoryImpl) CountActiveByCompany(db *gorm.DB, companyID string) (int64, error) {
	var count int64
	err := db.Model(&models.User{}).
		Where("company_id = ? AND status <> ?", companyID, models.UserStatusSuspended).
		Count(&count).Error
	return count, err
}

func (r *UserRepositoryImpl) Update(db *gorm.DB, user *models.User) error {
	result := db.Model(user).Updates(map[string]interface{}{
		"name":              user.Name,
		"role":              user.Role,
		"status":            user.Status,
		"invite_token":      user.InviteToken,
		"invite_expires_at": user.InviteExpiresAt,
		"password_hash":     user.PasswordHash,
		"updated_at":        time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepositoryImpl) UpdateStatus(db *gorm.DB, userID string, status models.UserStatus) error {
	result := db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepositoryImpl) UpdateLastLogin(db *gorm.DB, userID string) error {
	now := time.Now()
	return db.Model(&models.User{}).Where("id = ?", userID).
		Update("last_login_at", &now).Error
}

func (r *UserRepositoryImpl) Delete(db *gorm.DB, companyID, userID string) error {
	result := db.Where("id = ? AND company_id = ?", userID, companyID).Delete(&models.User{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RefreshToken operations

func (r *UserRepositoryImpl) CreateRefreshToken(db *gorm.DB, token *models.RefreshToken) error {
	return db.Create(token).Error
}

func (r *UserRepositoryImpl) FindRefreshToken(db *gorm.DB, token string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	err := db.First(&rt, "token = ? AND revoked = false", token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, err
	}
	return &rt, nil
}

func (r *UserRepositoryImpl) RevokeRefreshToken(db *gorm.DB, token string) error {
	result := db.Model(&models.RefreshToken{}).Where("token = ?", token).Update("revoked", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRefreshTokenNotFound
	}
	return nil
}

func (r *UserRepositoryImpl) DeleteExpiredRefreshTokens(db *gorm.DB) error {
	return db.Where("expires_at < ?", time.Now()).Delete(&models.RefreshToken{}).Error
}
