package models

type AddOn struct {
	BaseModel
	Code        string `gorm:"uniqueIndex;not null"` // extra_seats, website, review_booster...
	Name        string `gorm:"not null"`
	Description string
	PriceCents  int64  `gorm:"not null"`
	Currency    string `gorm:"default:'usd'"`
	// Сколько дополнительных мест дает этот add-on (0 - не влияет на лимит)
	ExtraSeats int  `gorm:"default:0"`
	IsActive   bool `gorm:"default:true"`

	StripeProductID string `gorm:"index"`
	StripePriceID   string `gorm:"index"`
}

// PlanAddOn связывает тариф с доступным для него add-on'ом.
// Included=true означает, что add-on входит в тариф бесплатно.
type PlanAddOn struct {
	BaseModel
	PlanID  string `gorm:"type:uuid;not null;index;uniqueIndex:idx_plan_addon"`
	AddOnID string `gorm:"type:uuid;not null;index;uniqueIndex:idx_plan_addon"`

	Included bool `gorm:"default:false"`
	// Переопределение цены для конкретного тарифа. nil - цена из каталога.
	OverridePriceCents  *int64
	OverrideStripePrice string

	Plan  Plan  `gorm:"foreignKey:PlanID"`
	AddOn AddOn `gorm:"foreignKey:AddOnID"`
}

// CompanyAddOn - включенный для компании add-on.
// StripeItemID заполняется после привязки к подписке в Stripe.
type CompanyAddOn struct {
	BaseModel
	CompanyID string `gorm:"type:uuid;not null;index;uniqueIndex:idx_company_addon"`
	AddOnID   string `gorm:"type:uuid;not null;index;uniqueIndex:idx_company_addon"`

	StripeProductID string
	StripeItemID    string `gorm:"index"`

	Company Company `gorm:"foreignKey:CompanyID"`
	AddOn   AddOn   `gorm:"foreignKey:AddOnID"`
}
