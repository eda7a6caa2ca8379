package models

import (
	"time"

	"gorm.io/datatypes"
)

// Transaction - append-only журнал платежных событий.
// StripeObjectID уникален: повторная доставка события не создает
// новую запись и не изменяет существующую.
type Transaction struct {
	BaseModel
	CompanyID      *string `gorm:"type:uuid;index"`
	SubscriptionID *string `gorm:"type:uuid;index"`

	StripeObjectID string `gorm:"uniqueIndex;not null"` // invoice id, charge id, payment_intent id
	ObjectType     string // invoice, charge, payment_intent
	EventType      string

	AmountCents int64
	Currency    string
	Status      TransactionStatus `gorm:"default:'unknown'"`

	Description string
	PaidAt      *time.Time

	// Сырой payload события - для разбора инцидентов
	RawPayload datatypes.JSON `gorm:"type:jsonb"`
}
