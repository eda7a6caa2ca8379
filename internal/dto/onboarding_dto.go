package dto

import "encoding/json"

// AdvanceOnboardingRequest - переход к следующему шагу онбординга.
// Data сохраняется как есть и интерпретируется шагом.
type AdvanceOnboardingRequest struct {
	Step string          `json:"step" validate:"required,oneof=company locations team plan done"`
	Data json.RawMessage `json:"data"`

	// Заполняется на шаге plan
	Plan *CreateSubscriptionRequest `json:"plan,omitempty"`
}
