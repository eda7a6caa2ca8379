package handlers

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	AuthHandler         *AuthHandler
	CompanyHandler      *CompanyHandler
	StaffHandler        *StaffHandler
	LocationHandler     *LocationHandler
	PlanHandler         *PlanHandler
	SubscriptionHandler *SubscriptionHandler
	WebhookHandler      *WebhookHandler
	OnboardingHandler   *OnboardingHandler
}
