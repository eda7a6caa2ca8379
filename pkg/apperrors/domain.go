package apperrors

import (
	"net/http"
)

/*
Этот файл содержит фабрики и предопределенные переменные
для общих ошибок бизнес-логики и домена.
*/

// =========================================================================
// Фабричные ФУНКЦИИ (Используются для оборачивания ошибок, напр. из репозитория)
// =========================================================================

// ErrNotFound - фабрика для ошибки "не найдено" (404)
// Используется, когда ошибка репозитория (типа gorm.ErrRecordNotFound)
// должна быть преобразована в AppError.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrAlreadyExists - фабрика для ошибки "уже существует" (409)
func ErrAlreadyExists(err error) *AppError {
	return Wrap(err, CodeAlreadyExists, "resource", "Resource already exists", http.StatusConflict)
}

// ErrConflict - общая фабрика для конфликтов (409)
func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

// ErrInvalidOperation - фабрика для невалидных операций (400)
func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

// ErrInvalidStatus - фабрика для невалидных статусов (400)
func ErrInvalidStatus(domain, message string) *AppError {
	return New(CodeInvalidStatus, domain, message, http.StatusBadRequest)
}

// ErrBillingProvider - оборачивает ошибку внешнего платежного провайдера (502)
func ErrBillingProvider(err error, message string) *AppError {
	return Wrap(err, CodeExternalServiceError, "billing", message, http.StatusBadGateway)
}

// =========================================================================
// Предопределенные ПЕРЕМЕННЫЕ (Для частых, статичных ошибок)
// =========================================================================

// ErrInsufficientPermissions - используется, когда не-админ пытается выполнить админ-действие.
var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)

// --- Auth & User Status ---

// ErrWeakPassword - пароль слишком слабый.
var ErrWeakPassword = New(
	CodeValidationFailed,
	"validation",
	"Password is too weak. Minimum 8 characters required.",
	http.StatusBadRequest,
)

// ErrEmailAlreadyExists - email уже используется.
var ErrEmailAlreadyExists = New(
	CodeAlreadyExists,
	"auth",
	"Email already in use",
	http.StatusConflict,
)

// ErrInvalidCredentials - неверный email или пароль.
var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password",
	http.StatusUnauthorized,
)

// ErrInvalidToken - неверный или просроченный токен (refresh, invite).
var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

// ErrUserSuspended - аккаунт временно заблокирован.
var ErrUserSuspended = New(
	CodeForbidden,
	"auth",
	"Your account has been suspended",
	http.StatusForbidden,
)

// --- Billing ---

// ErrBillingDisabled - платежный провайдер не сконфигурирован.
// Операции, требующие обращения к Stripe, в этом режиме недоступны.
var ErrBillingDisabled = New(
	CodeBillingDisabled,
	"billing",
	"Billing provider is not configured",
	http.StatusServiceUnavailable,
)

// ErrWebhookSignature - подпись webhook-события не прошла проверку.
var ErrWebhookSignature = New(
	CodeInvalidSignature,
	"billing",
	"Webhook signature verification failed",
	http.StatusBadRequest,
)

// ErrSubscriptionExists - у компании уже есть активная подписка.
var ErrSubscriptionExists = New(
	CodeConflict,
	"subscription",
	"Company already has an active subscription",
	http.StatusConflict,
)

// ErrSubscriptionCanceled - подписка уже отменена.
var ErrSubscriptionCanceled = New(
	CodeInvalidOperation,
	"subscription",
	"Subscription is already canceled",
	http.StatusBadRequest,
)

// ErrSeatLimitReached - достигнут лимит пользователей по тарифу.
var ErrSeatLimitReached = New(
	CodeLimitExceeded,
	"company",
	"User limit for the current plan has been reached",
	http.StatusForbidden,
)

// ErrAddOnNotAvailable - add-on недоступен для тарифа компании.
var ErrAddOnNotAvailable = New(
	CodeInvalidOperation,
	"addon",
	"Add-on is not available for the current plan",
	http.StatusBadRequest,
)
