package models

import "gorm.io/datatypes"

type Plan struct {
	BaseModel
	Code        string   `gorm:"uniqueIndex;not null"` // solo, team, pro, enterprise
	Name        string   `gorm:"not null"`
	Description string
	Tier        PlanTier       `gorm:"not null"`
	Features    datatypes.JSON `gorm:"type:jsonb"` // {"invoicing": true, "dispatch": true, ...}
	IsActive    bool           `gorm:"default:true"`

	StripeProductID string `gorm:"index"`

	Prices []PlanPrice `gorm:"foreignKey:PlanID"`
}

type PlanPrice struct {
	BaseModel
	PlanID      string `gorm:"type:uuid;not null;index"`
	AmountCents int64  `gorm:"not null"`
	Currency    string `gorm:"default:'usd'"`
	Interval    string `gorm:"not null"` // month, year
	IsActive    bool   `gorm:"default:true"`

	StripePriceID string `gorm:"index"`
}

// BaseSeatAllowance возвращает количество мест, включенное в тариф.
// nil означает безлимит.
func BaseSeatAllowance(tier PlanTier) *int {
	var n int
	switch tier {
	case PlanTierSolo:
		n = 1
	case PlanTierTeam:
		n = 5
	case PlanTierPro:
		n = 15
	case PlanTierEnterprise:
		return nil
	default:
		n = 1
	}
	return &n
}
