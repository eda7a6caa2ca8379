package handlers

import (
	"net/http"

	"tradehub_backend/internal/dto"
	"tradehub_backend/internal/middleware"
	"tradehub_backend/internal/models"
	"tradehub_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	*BaseHandler
	subService    services.SubscriptionService
	addonService  services.AddOnService
	ledgerService services.LedgerService
}

func NewSubscriptionHandler(
	base *BaseHandler,
	subService services.SubscriptionService,
	addonService services.AddOnService,
	ledgerService services.LedgerService,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		BaseHandler:   base,
		subService:    subService,
		addonService:  addonService,
		ledgerService: ledgerService,
	}
}

func (h *SubscriptionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	billing := rg.Group("/billing")
	billing.Use(middleware.AuthMiddleware())
	{
		billing.GET("/subscription", h.GetCurrent)
		billing.GET("/subscriptions", h.History)
		billing.GET("/transactions", h.ListTransactions)
		billing.GET("/addons", h.ListCompanyAddOns)

		manage := billing.Group("")
		manage.Use(middleware.RequireRoles(models.UserRoleOwner))
		{
			manage.POST("/subscription", h.Create)
			manage.POST("/subscription/confirm", h.Confirm)
			manage.DELETE("/subscription", h.Cancel)
			manage.POST("/addons", h.EnableAddOn)
			manage.DELETE("/addons/:id", h.DisableAddOn)
		}
	}
}

// Create godoc
// @Summary Оформление подписки компании
// @Description Создает подписку на выбранный тариф. При необходимости 3DS
// @Description возвращает requires_action=true и client_secret для завершения
// @Description оплаты на клиенте.
// @Tags billing
// @Accept json
// @Produce json
// @Param request body dto.CreateSubscriptionRequest true "Параметры подписки"
// @Success 201 {object} dto.SubscriptionResponse
// @Failure 400 {object} apperrors.AppError
// @Failure 502 {object} apperrors.AppError
// @Security BearerAuth
// @Router /billing/subscription [post]
func (h *SubscriptionHandler) Create(c *gin.Context) {
	companyID, ok := h.GetAndAuthorizeCompanyID(c)
	if !ok {
		return
	}

	var req dto.CreateSubscriptionRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	response, err := h.subService.CreateSubscription(c.Request.Context(), db, companyID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

func (h *SubscriptionHandler) Confirm(c *gin.Context) {
	if _, ok := h.GetAndAuthorizeCompanyID(c); !ok {
		return
	}

	var req dto.ConfirmSubscriptionRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	resp, err := h.subService.ConfirmSubscription(c.Request.Context(), db, req.StripeSubscriptionID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *SubscriptionHandler) GetCurrent(c *gin.Context) {
	companyID, ok := h.GetAndAuthorizeCompanyID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	sub, err := h.subService.GetCurrentSubscription(c.Request.Context(), db, companyID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, sub)
}

func (h *SubscriptionHandler) History(c *gin.Context) {
	companyID, ok := h.GetAndAuthorizeCompanyID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	history, err := h.subService.GetSubscriptionHistory(c.Request.Context(), db, companyID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscriptions": history})
}

func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	companyID, ok := h.GetAndAuthorizeCompanyID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	sub, err := h.subService.CancelSubscription(c.Request.Context(), db, companyID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, sub)
}

func (h *SubscriptionHandler) ListTransactions(c *gin.Context) {
	companyID, ok := h.GetAndAuthorizeCompanyID(c)
	if !ok {
		return
	}

	page, pageSize := ParsePagination(c)
	db := h.GetDB(c)

	txns, total, err := h.ledgerService.ListByCompany(c.Request.Context(), db, companyID, pageSize, (page-1)*pageSize)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": txns,
		"total":        total,
		"page":         page,
		"page_size":    pageSize,
	})
}

func (h *SubscriptionHandler) ListCompanyAddOns(c *gin.Context) {
	companyID, ok := h.GetAndAuthorizeCompanyID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	addons, err := h.addonService.ListForCompany(c.Request.Context(), db, companyID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"addons": addons})
}

func (h *SubscriptionHandler) EnableAddOn(c *gin.Context) {
	companyID, ok := h.GetAndAuthorizeCompanyID(c)
	if !ok {
		return
	}

	var req dto.EnableAddOnRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	link, err := h.addonService.EnableForCompany(c.Request.Context(), db, companyID, req.AddOnID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, link)
}

func (h *SubscriptionHandler) DisableAddOn(c *gin.Context) {
	companyID, ok := h.GetAndAuthorizeCompanyID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	if err := h.addonService.DisableForCompany(c.Request.Context(), db, companyID, c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Add-on disabled"})
}
