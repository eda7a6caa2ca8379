package handlers

import (
	"net/http"

	"tradehub_backend/internal/billing"
	"tradehub_backend/internal/logger"
	"tradehub_backend/internal/services"
	"tradehub_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// WebhookHandler принимает события Stripe. Маршрут регистрируется
// без AuthMiddleware: аутентификация - подпись в Stripe-Signature
// поверх сырого тела запроса.
type WebhookHandler struct {
	*BaseHandler
	webhookService services.WebhookService
	provider       billing.Provider
}

func NewWebhookHandler(base *BaseHandler, webhookService services.WebhookService, provider billing.Provider) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:    base,
		webhookService: webhookService,
		provider:       provider,
	}
}

func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/stripe", h.HandleStripe)
}

func (h *WebhookHandler) HandleStripe(c *gin.Context) {
	ctx := c.Request.Context()

	if h.provider == nil {
		apperrors.HandleError(c, apperrors.ErrBillingDisabled)
		return
	}

	// Тело нужно сырым: проверка подписи идет по байтам
	payload, err := c.GetRawData()
	if err != nil {
		logger.CtxWithError(ctx, "failed to read webhook payload", err)
		apperrors.HandleError(c, apperrors.NewBadRequestError("Failed to read request body"))
		return
	}

	event, err := h.provider.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		logger.CtxWithError(ctx, "webhook signature verification failed", err,
			"ip", c.ClientIP())
		apperrors.HandleError(c, apperrors.ErrWebhookSignature)
		return
	}

	db := h.GetDB(c)

	// 500 заставит Stripe доставить событие повторно
	if err := h.webhookService.HandleEvent(ctx, db, event); err != nil {
		logger.CtxWithError(ctx, "webhook event processing failed", err,
			"event_id", event.ID, "event_type", event.Type)
		apperrors.HandleError(c, apperrors.InternalError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
