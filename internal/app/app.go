package app

import (
	"errors"
	"fmt"

	"tradehub_backend/database"
	"tradehub_backend/internal/auth"
	"tradehub_backend/internal/billing"
	"tradehub_backend/internal/config"
	"tradehub_backend/internal/email"
	"tradehub_backend/internal/handlers"
	"tradehub_backend/internal/logger"
	"tradehub_backend/internal/middleware"
	"tradehub_backend/internal/models"
	"tradehub_backend/internal/repositories"
	"tradehub_backend/internal/routes"
	"tradehub_backend/internal/services"
	"tradehub_backend/internal/validator"
	"tradehub_backend/internal/workers"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...")
	gormDB, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to GORM", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := database.Migrate(gormDB); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	if err := seedFirstAdmin(gormDB, cfg); err != nil {
		logger.Fatal("Failed to seed first admin user", "error", err)
	}

	ginRouter := SetupRouter(cfg, gormDB)

	// Фоновая проверка истекших подписок
	expiryWorker := workers.NewSubscriptionExpiryWorker(gormDB)
	go expiryWorker.Run()

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info(fmt.Sprintf("Server starting on %s", address))
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

func SetupRouter(cfg *config.Config, gormDB *gorm.DB) *gin.Engine {
	provider := billingProvider(cfg)
	serviceContainer := initializeServices(cfg, provider)
	appHandlers := initializeHandlers(serviceContainer, provider)

	ginRouter := initializeGinRouter(gormDB)
	routes.RegisterRoutes(ginRouter, appHandlers)

	return ginRouter
}

// billingProvider возвращает nil-интерфейс, когда Stripe не сконфигурирован.
// Присваивать нетипизированный nil-указатель в интерфейс нельзя:
// интерфейс перестанет сравниваться с nil.
func billingProvider(cfg *config.Config) billing.Provider {
	if !cfg.StripeEnabled() {
		logger.Warn("STRIPE_SECRET_KEY is not set. Billing runs in degraded, local-only mode.")
		return nil
	}
	return billing.NewStripeProvider(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
}

func initializeServices(cfg *config.Config, provider billing.Provider) *services.ServiceContainer {
	var sender email.Sender
	if cfg.Email.SMTPHost != "" {
		sender = email.NewGomailSender(cfg)
	} else {
		logger.Warn("SMTP is not configured. Outgoing email is disabled.")
		sender = email.NoopSender{}
	}
	emailService := services.NewEmailService(sender)

	userRepo := repositories.NewUserRepository()
	companyRepo := repositories.NewCompanyRepository()
	locationRepo := repositories.NewLocationRepository()
	planRepo := repositories.NewPlanRepository()
	addonRepo := repositories.NewAddOnRepository()
	subRepo := repositories.NewSubscriptionRepository()
	txnRepo := repositories.NewTransactionRepository()
	onboardingRepo := repositories.NewOnboardingRepository()

	snapshotService := services.NewSnapshotService(planRepo, addonRepo)
	authService := services.NewAuthService(userRepo, companyRepo, emailService)
	companyService := services.NewCompanyService(companyRepo)
	staffService := services.NewStaffService(userRepo, companyRepo, subRepo, emailService)
	locationService := services.NewLocationService(locationRepo)
	planService := services.NewPlanService(planRepo)
	subscriptionService := services.NewSubscriptionService(subRepo, companyRepo, planRepo, snapshotService, provider)
	addonService := services.NewAddOnService(addonRepo, subRepo, planRepo, provider)
	webhookService := services.NewWebhookService(subscriptionService, subRepo, companyRepo, txnRepo, provider, emailService)
	ledgerService := services.NewLedgerService(txnRepo)
	onboardingService := services.NewOnboardingService(onboardingRepo, companyRepo, subscriptionService)

	return &services.ServiceContainer{
		AuthService:         authService,
		CompanyService:      companyService,
		StaffService:        staffService,
		LocationService:     locationService,
		PlanService:         planService,
		SubscriptionService: subscriptionService,
		AddOnService:        addonService,
		WebhookService:      webhookService,
		LedgerService:       ledgerService,
		OnboardingService:   onboardingService,
		EmailService:        emailService,
	}
}

func initializeHandlers(services *services.ServiceContainer, provider billing.Provider) *handlers.AppHandlers {
	customValidator := validator.New()
	baseHandler := handlers.NewBaseHandler(customValidator)

	return &handlers.AppHandlers{
		AuthHandler:         handlers.NewAuthHandler(baseHandler, services.AuthService),
		CompanyHandler:      handlers.NewCompanyHandler(baseHandler, services.CompanyService, services.AuthService),
		StaffHandler:        handlers.NewStaffHandler(baseHandler, services.StaffService),
		LocationHandler:     handlers.NewLocationHandler(baseHandler, services.LocationService),
		PlanHandler:         handlers.NewPlanHandler(baseHandler, services.PlanService, services.AddOnService),
		SubscriptionHandler: handlers.NewSubscriptionHandler(baseHandler, services.SubscriptionService, services.AddOnService, services.LedgerService),
		WebhookHandler:      handlers.NewWebhookHandler(baseHandler, services.WebhookService, provider),
		OnboardingHandler:   handlers.NewOnboardingHandler(baseHandler, services.OnboardingService),
	}
}

func initializeGinRouter(db *gorm.DB) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.DBMiddleware(db))
	return router
}

// seedFirstAdmin создает компанию-владельца платформы при первом запуске
func seedFirstAdmin(db *gorm.DB, cfg *config.Config) error {
	adminEmail := cfg.FirstAdminEmail
	adminPassword := cfg.FirstAdminPassword

	if adminEmail == "" || adminPassword == "" {
		logger.Warn("FIRST_ADMIN_EMAIL or FIRST_ADMIN_PASSWORD is not set. Skipping admin seeding.")
		return nil
	}

	tx := db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer tx.Rollback()

	var adminUser models.User
	result := tx.Where("email = ?", adminEmail).First(&adminUser)
	if result.Error == nil {
		logger.Info("Admin user already exists. Skipping creation.", "email", adminEmail)
		tx.Rollback()
		return nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check for admin user: %w", result.Error)
	}

	logger.Warn("No admin user found with specified email. Creating first admin...", "email", adminEmail)

	hashedPassword, err := auth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	company := &models.Company{
		Name:         "TradeHub Administration",
		BillingEmail: adminEmail,
	}
	if err := tx.Create(company).Error; err != nil {
		return fmt.Errorf("failed to create admin company: %w", err)
	}

	newAdmin := &models.User{
		CompanyID:    company.ID,
		Name:         "Administrator",
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		Role:         models.UserRoleOwner,
		Status:       models.UserStatusActive,
	}
	if err := tx.Create(newAdmin).Error; err != nil {
		return fmt.Errorf("failed to create admin user in database: %w", err)
	}

	logger.Info("Successfully created first admin user", "email", adminEmail)

	return tx.Commit().Error
}
