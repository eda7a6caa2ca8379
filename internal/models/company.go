package models

type Company struct {
	BaseModel
	Name         string `gorm:"not null"`
	Trade        string // plumbing, electrical, hvac и т.д.
	BillingEmail string
	Phone        string

	// Идентификатор клиента в Stripe. Заполняется при первом обращении к биллингу.
	StripeCustomerID string `gorm:"index"`

	// Денормализованное зеркало статуса подписки для быстрых проверок доступа.
	// Источник истины - company_subscriptions.
	SubscriptionStatus  SubscriptionStatus `gorm:"default:'incomplete'"`
	OnboardingCompleted bool               `gorm:"default:false"`
}

type Location struct {
	BaseModel
	CompanyID string `gorm:"type:uuid;not null;index"`
	Name      string `gorm:"not null"`
	Address   string
	City      string
	Region    string
	Postal    string
	Country   string
	IsPrimary bool `gorm:"default:false"`

	Company Company `gorm:"foreignKey:CompanyID"`
}
