package handlers

import (
	"net/http"

	"tradehub_backend/internal/dto"
	"tradehub_backend/internal/middleware"
	"tradehub_backend/internal/models"
	"tradehub_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type LocationHandler struct {
	*BaseHandler
	locationService services.LocationService
}

func NewLocationHandler(base *BaseHandler, locationService services.LocationService) *LocationHandler {
	return &LocationHandler{
		BaseHandler:     base,
		locationService: locationService,
	}
}

func (h *LocationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	locations := rg.Group("/locations")
	locations.Use(middleware.AuthMiddleware())
	{
		locations.GET("", h.List)

		manage := locations.Group("")
		manage.Use(middleware.RequireRoles(models.UserRoleOwner, models.UserRoleAdmin))
		{
			manage.POST("", h.Create)
			manage.PATCH("/:id", h.Update)
			manage.DELETE("/:id", h.Delete)
			manage.POST("/:id/primary", h.SetPrimary)
		}
	}
}

func (h *LocationHandler) List(c *gin.Context) {
	companyID, ok := h.GetAndAuthorizeCompanyID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	locations, err := h.locationService.List(c.Request.Context(), db, companyID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"locations": locations})
}

func (h *LocationHandler) Create(c *gin.Context) {
	companyID, ok := h.GetAndAuthorizeCompanyID(c)
	if !ok {
		return
	}

	var req dto.CreateLocationRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	location, err := h.locationService.Create(c.Request.Context(), db, companyID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, location)
}

func (h *LocationHandler) Update(c *gin.Context) {
	companyID, ok := h.GetAndAuthorizeCompanyID(c)
	if !ok {
		return
	}

	var req dto.UpdateLocationRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	location, err := h.locationService.Update(c.Request.Context(), db, companyID, c.Param("id"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, location)
}

func (h *LocationHandler) Delete(c *gin.Context) {
	companyID, ok := h.GetAndAuthorizeCompanyID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	if err := h.locationService.Delete(c.Request.Context(), db, companyID, c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Location deleted"})
}

func (h *LocationHandler) SetPrimary(c *gin.Context) {
	companyID, ok := h.GetAndAuthorizeCompanyID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	if err := h.locationService.SetPrimary(c.Request.Context(), db, companyID, c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Primary location updated"})
}
