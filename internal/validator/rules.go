package validator

import (
	"log"

	"tradehub_backend/internal/models"

	"github.com/go-playground/validator/v10"
)

// registerCustomRules регистрирует кастомные правила валидации
// в переданном экземпляре валидатора.
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			// Ошибка регистрации правила - ошибка времени запуска
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	mustRegister("is-user-role", validateUserRole)
	mustRegister("is-subscription-status", validateSubscriptionStatus)
	mustRegister("is-plan-tier", validatePlanTier)
}

// Пустые значения пропускаются: для обязательности есть 'required'.

func validateUserRole(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch models.UserRole(value) {
	case models.UserRoleOwner, models.UserRoleAdmin, models.UserRoleStaff:
		return true
	default:
		return false
	}
}

func validateSubscriptionStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch models.SubscriptionStatus(value) {
	case models.SubscriptionStatusActive, models.SubscriptionStatusTrialing,
		models.SubscriptionStatusPastDue, models.SubscriptionStatusCanceled,
		models.SubscriptionStatusIncomplete, models.SubscriptionStatusIncompleteExpired,
		models.SubscriptionStatusUnpaid, models.SubscriptionStatusExpired:
		return true
	default:
		return false
	}
}

func validatePlanTier(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	switch models.PlanTier(value) {
	case models.PlanTierSolo, models.PlanTierTeam, models.PlanTierPro, models.PlanTierEnterprise:
		return true
	default:
		return false
	}
}
