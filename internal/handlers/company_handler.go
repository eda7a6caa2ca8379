package handlers

import (
	"net/http"

	"tradehub_backend/internal/dto"
	"tradehub_backend/internal/middleware"
	"tradehub_backend/internal/models"
	"tradehub_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type CompanyHandler struct {
	*BaseHandler
	companyService services.CompanyService
	authService    services.AuthService
}

func NewCompanyHandler(base *BaseHandler, companyService services.CompanyService, authService services.AuthService) *CompanyHandler {
	return &CompanyHandler{
		BaseHandler:    base,
		companyService: companyService,
		authService:    authService,
	}
}

func (h *CompanyHandler) RegisterRoutes(rg *gin.RouterGroup) {
	company := rg.Group("/company")
	company.Use(middleware.AuthMiddleware())
	{
		company.GET("", h.Get)
		company.PATCH("", middleware.RequireRoles(models.UserRoleOwner, models.UserRoleAdmin), h.Update)
		company.POST("/change-password", h.ChangePassword)
	}
}

func (h *CompanyHandler) Get(c *gin.Context) {
	companyID, ok := h.GetAndAuthorizeCompanyID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	company, err := h.companyService.Get(c.Request.Context(), db, companyID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, company)
}

func (h *CompanyHandler) Update(c *gin.Context) {
	companyID, ok := h.GetAndAuthorizeCompanyID(c)
	if !ok {
		return
	}

	var req dto.UpdateCompanyRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	company, err := h.companyService.Update(c.Request.Context(), db, companyID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, company)
}

func (h *CompanyHandler) ChangePassword(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	if err := h.authService.ChangePassword(c.Request.Context(), db, userID, &req); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed"})
}
