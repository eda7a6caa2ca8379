package models

type UserStatus string
type UserRole string
type PlanTier string
type SubscriptionStatus string
type TransactionStatus string

const (
	UserStatusInvited   UserStatus = "invited"
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"

	UserRoleOwner UserRole = "owner"
	UserRoleAdmin UserRole = "admin"
	UserRoleStaff UserRole = "staff"

	PlanTierSolo       PlanTier = "solo"
	PlanTierTeam       PlanTier = "team"
	PlanTierPro        PlanTier = "pro"
	PlanTierEnterprise PlanTier = "enterprise"

	// Статусы подписки повторяют статусы Stripe плюс локальный "expired",
	// который выставляет фоновый worker после окончания оплаченного окна.
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusExpired           SubscriptionStatus = "expired"

	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusSucceeded TransactionStatus = "succeeded"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusRefunded  TransactionStatus = "refunded"
	TransactionStatusUnknown   TransactionStatus = "unknown"
)

// IsPayingStatus - статусы, при которых доступ к платным функциям открыт
func IsPayingStatus(s SubscriptionStatus) bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusTrialing
}
