package handlers

import (
	"net/http"

	"tradehub_backend/internal/dto"
	"tradehub_backend/internal/middleware"
	"tradehub_backend/internal/models"
	"tradehub_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type StaffHandler struct {
	*BaseHandler
	staffService services.StaffService
}

func NewStaffHandler(base *BaseHandler, staffService services.StaffService) *StaffHandler {
	return &StaffHandler{
		BaseHandler:  base,
		staffService: staffService,
	}
}

func (h *StaffHandler) RegisterRoutes(rg *gin.RouterGroup) {
	staff := rg.Group("/staff")
	staff.Use(middleware.AuthMiddleware())
	{
		staff.GET("", h.List)

		manage := staff.Group("")
		manage.Use(middleware.RequireRoles(models.UserRoleOwner, models.UserRoleAdmin))
		{
			manage.POST("/invite", h.Invite)
			manage.PATCH("/:id", h.Update)
			manage.POST("/:id/suspend", h.Suspend)
			manage.POST("/:id/activate", h.Activate)
			manage.DELETE("/:id", h.Remove)
		}
	}
}

func (h *StaffHandler) List(c *gin.Context) {
	companyID, ok := h.GetAndAuthorizeCompanyID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	users, err := h.staffService.List(c.Request.Context(), db, companyID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"staff": users})
}

func (h *StaffHandler) Invite(c *gin.Context) {
	companyID, ok := h.GetAndAuthorizeCompanyID(c)
	if !ok {
		return
	}

	var req dto.InviteStaffRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	user, err := h.staffService.Invite(c.Request.Context(), db, companyID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewUserResponse(user))
}

func (h *StaffHandler) Update(c *gin.Context) {
	companyID, ok := h.GetAndAuthorizeCompanyID(c)
	if !ok {
		return
	}

	var req dto.UpdateStaffRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	user, err := h.staffService.Update(c.Request.Context(), db, companyID, c.Param("id"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}

func (h *StaffHandler) Suspend(c *gin.Context) {
	companyID, ok := h.GetAndAuthorizeCompanyID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	if err := h.staffService.Suspend(c.Request.Context(), db, companyID, c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User suspended"})
}

func (h *StaffHandler) Activate(c *gin.Context) {
	companyID, ok := h.GetAndAuthorizeCompanyID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	if err := h.staffService.Activate(c.Request.Context(), db, companyID, c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User activated"})
}

func (h *StaffHandler) Remove(c *gin.Context) {
	companyID, ok := h.GetAndAuthorizeCompanyID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	if err := h.staffService.Remove(c.Request.Context(), db, companyID, c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User removed"})
}
