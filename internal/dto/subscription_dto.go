package dto

import (
	"tradehub_backend/internal/models"
)

// CreateSubscriptionRequest - запрос на оформление подписки компании
type CreateSubscriptionRequest struct {
	PlanID          string   `json:"plan_id" validate:"required,uuid4"`
	PriceID         string   `json:"price_id" validate:"omitempty,uuid4"`
	PaymentMethodID string   `json:"payment_method_id"`
	CouponID        string   `json:"coupon_id"`
	AddOnIDs        []string `json:"addon_ids" validate:"omitempty,dive,uuid4"`
	ExtraSeats      int      `json:"extra_seats" validate:"omitempty,min=0,max=100"`
	HasWebsite      bool     `json:"has_website"`
}

// ConfirmSubscriptionRequest - подтверждение подписки после 3DS
type ConfirmSubscriptionRequest struct {
	StripeSubscriptionID string `json:"stripe_subscription_id" validate:"required"`
}

// SubscriptionResponse - ответ на создание подписки.
// RequiresAction=true означает, что клиент должен завершить 3DS
// с помощью ClientSecret, после чего вызвать confirm.
type SubscriptionResponse struct {
	RequiresAction bool                        `json:"requires_action"`
	ClientSecret   string                      `json:"client_secret,omitempty"`
	Subscription   *models.CompanySubscription `json:"subscription"`
}

// SubscriptionWithPeriods - подписка с оплаченными окнами для истории
type SubscriptionWithPeriods struct {
	Subscription models.CompanySubscription  `json:"subscription"`
	Periods      []models.SubscriptionPeriod `json:"periods"`
}

// EnableAddOnRequest - включение add-on для компании
type EnableAddOnRequest struct {
	AddOnID string `json:"addon_id" validate:"required,uuid4"`
}
