package dto

import "tradehub_backend/internal/models"

// RegisterRequest - регистрация компании вместе с владельцем
type RegisterRequest struct {
	CompanyName string `json:"company_name" validate:"required,min=2,max=120"`
	Trade       string `json:"trade" validate:"omitempty,max=60"`
	Name        string `json:"name" validate:"required,min=2,max=120"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	Phone       string `json:"phone" validate:"omitempty,max=30"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LoginResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	User         *UserResponse `json:"user"`
}

type UserResponse struct {
	ID        string            `json:"id"`
	CompanyID string            `json:"company_id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Role      models.UserRole   `json:"role"`
	Status    models.UserStatus `json:"status"`
}

// AcceptInviteRequest - активация приглашенного сотрудника
type AcceptInviteRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

func NewUserResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		CompanyID: user.CompanyID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		Status:    user.Status,
	}
}
