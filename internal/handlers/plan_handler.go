package handlers

import (
	"net/http"

	"tradehub_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type PlanHandler struct {
	*BaseHandler
	planService  services.PlanService
	addonService services.AddOnService
}

func NewPlanHandler(base *BaseHandler, planService services.PlanService, addonService services.AddOnService) *PlanHandler {
	return &PlanHandler{
		BaseHandler:  base,
		planService:  planService,
		addonService: addonService,
	}
}

// RegisterRoutes - каталог тарифов публичный, авторизация не нужна
func (h *PlanHandler) RegisterRoutes(rg *gin.RouterGroup) {
	plans := rg.Group("/plans")
	{
		plans.GET("", h.List)
		plans.GET("/:id", h.Get)
		plans.GET("/:id/addons", h.ListPlanAddOns)
	}

	rg.GET("/addons", h.ListAddOns)
}

func (h *PlanHandler) List(c *gin.Context) {
	db := h.GetDB(c)

	plans, err := h.planService.ListActive(c.Request.Context(), db)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

func (h *PlanHandler) Get(c *gin.Context) {
	db := h.GetDB(c)

	plan, err := h.planService.GetByID(c.Request.Context(), db, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

func (h *PlanHandler) ListPlanAddOns(c *gin.Context) {
	db := h.GetDB(c)

	addons, err := h.planService.ListPlanAddOns(c.Request.Context(), db, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"addons": addons})
}

func (h *PlanHandler) ListAddOns(c *gin.Context) {
	db := h.GetDB(c)

	addons, err := h.addonService.ListCatalog(c.Request.Context(), db)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"addons": addons})
}
