package routes

import (
	"tradehub_backend/internal/handlers"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterRoutes регистрирует все HTTP маршруты.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
) {
	api := ginRouter.Group("/api/v1")
	{
		appHandlers.AuthHandler.RegisterRoutes(api)
		appHandlers.CompanyHandler.RegisterRoutes(api)
		appHandlers.StaffHandler.RegisterRoutes(api)
		appHandlers.LocationHandler.RegisterRoutes(api)
		appHandlers.PlanHandler.RegisterRoutes(api)
		appHandlers.SubscriptionHandler.RegisterRoutes(api)
		appHandlers.OnboardingHandler.RegisterRoutes(api)
	}

	// Вебхуки Stripe живут вне /api/v1 и вне авторизации:
	// запрос аутентифицируется подписью поверх сырого тела.
	appHandlers.WebhookHandler.RegisterRoutes(&ginRouter.RouterGroup)

	ginRouter.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
