package models

import "time"

type User struct {
	BaseModel
	CompanyID    string `gorm:"type:uuid;not null;index"`
	Name         string
	Email        string     `gorm:"uniqueIndex;not null"`
	PasswordHash string     `gorm:"not null"`
	Role         UserRole   `gorm:"default:'staff'"`
	Status       UserStatus `gorm:"default:'invited'"`

	InviteToken     string `gorm:"index"`
	InviteExpiresAt *time.Time
	LastLoginAt     *time.Time

	Company Company `gorm:"foreignKey:CompanyID"`
}

type RefreshToken struct {
	BaseModel
	UserID    string    `gorm:"type:uuid;not null;index"`
	Token     string    `gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	Revoked   bool      `gorm:"default:false"`
}
