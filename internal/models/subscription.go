package models

import (
	"time"

	"gorm.io/datatypes"
)

// CompanySubscription - локальная запись о подписке компании.
// StripeSubscriptionID после создания никогда не переназначается на другую
// удаленную подписку. Записи не удаляются, только меняют статус.
type CompanySubscription struct {
	BaseModel
	CompanyID string `gorm:"type:uuid;not null;index"`

	StripeCustomerID     string `gorm:"index"`
	StripeSubscriptionID string `gorm:"uniqueIndex"`
	StripePriceID        string

	PlanID  string `gorm:"type:uuid;index"`
	PriceID string `gorm:"type:uuid"`

	// Снапшот тарифа на момент покупки. После создания не перезаписывается
	// вебхуками - только явным override при апгрейде.
	PlanSnapshot   datatypes.JSON `gorm:"type:jsonb"`
	AddonsSnapshot datatypes.JSON `gorm:"type:jsonb"`
	AddonIDs       datatypes.JSON `gorm:"type:jsonb"`

	// Лимит мест. nil - безлимит (enterprise).
	MaxUsers *int

	Status SubscriptionStatus `gorm:"default:'incomplete';index"`

	CurrentPeriodStart    *time.Time
	CurrentPeriodEnd      *time.Time
	SubscriptionExpiresAt *time.Time `gorm:"index"`

	Metadata datatypes.JSON `gorm:"type:jsonb"`

	Company Company `gorm:"foreignKey:CompanyID"`
	Plan    Plan    `gorm:"foreignKey:PlanID"`
}

// SubscriptionPeriod - оплаченное окно подписки.
// Уникальность (invoice_id, period_start) защищает от повторной доставки
// одного и того же invoice-события.
type SubscriptionPeriod struct {
	BaseModel
	SubscriptionID string `gorm:"type:uuid;not null;index"`
	CompanyID      string `gorm:"type:uuid;not null;index"`

	InvoiceID   string    `gorm:"not null;uniqueIndex:idx_invoice_period"`
	PeriodStart time.Time `gorm:"not null;uniqueIndex:idx_invoice_period"`
	PeriodEnd   time.Time `gorm:"not null"`

	AmountCents int64
	Currency    string

	Subscription CompanySubscription `gorm:"foreignKey:SubscriptionID"`
}
