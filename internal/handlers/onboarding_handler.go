package handlers

import (
	"net/http"

	"tradehub_backend/internal/dto"
	"tradehub_backend/internal/middleware"
	"tradehub_backend/internal/models"
	"tradehub_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type OnboardingHandler struct {
	*BaseHandler
	onboardingService services.OnboardingService
}

func NewOnboardingHandler(base *BaseHandler, onboardingService services.OnboardingService) *OnboardingHandler {
	return &OnboardingHandler{
		BaseHandler:       base,
		onboardingService: onboardingService,
	}
}

func (h *OnboardingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	onboarding := rg.Group("/onboarding")
	onboarding.Use(middleware.AuthMiddleware())
	onboarding.Use(middleware.RequireRoles(models.UserRoleOwner, models.UserRoleAdmin))
	{
		onboarding.GET("", h.GetState)
		onboarding.POST("/advance", h.Advance)
	}
}

func (h *OnboardingHandler) GetState(c *gin.Context) {
	companyID, ok := h.GetAndAuthorizeCompanyID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	state, err := h.onboardingService.GetState(c.Request.Context(), db, companyID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

func (h *OnboardingHandler) Advance(c *gin.Context) {
	companyID, ok := h.GetAndAuthorizeCompanyID(c)
	if !ok {
		return
	}

	var req dto.AdvanceOnboardingRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	result, err := h.onboardingService.Advance(c.Request.Context(), db, companyID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
