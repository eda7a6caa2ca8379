package services

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	AuthService         AuthService
	CompanyService      CompanyService
	StaffService        StaffService
	LocationService     LocationService
	PlanService         PlanService
	SubscriptionService SubscriptionService
	AddOnService        AddOnService
	WebhookService      WebhookService
	LedgerService       LedgerService
	OnboardingService   OnboardingService
	EmailService        EmailService
}
