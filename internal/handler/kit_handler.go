package handler

import (
	"net/http"

	"fleetmaint/internal/middleware"
	"fleetmaint/internal/service"
	"fleetmaint/pkg/pagination"
	"fleetmaint/pkg/response"

	"github.com/gin-gonic/gin"
)

type KitHandler struct {
	kitService service.KitService
}

func NewKitHandler(kitService service.KitService) *KitHandler {
	return &KitHandler{kitService: kitService}
}

func (h *KitHandler) RegisterRoutes(router *gin.RouterGroup) {
	kits := router.Group("/api/kits")
	{
		kits.GET("", middleware.RequirePermission("kits.read"), h.List)
		kits.GET("/resolve", middleware.RequirePermission("kits.read"), h.Resolve)
		kits.GET("/intervalos", middleware.RequirePermission("kits.read"), h.ListIntervalos)
		kits.GET("/:id", middleware.RequirePermission("kits.read"), h.GetByID)
		kits.POST("", middleware.RequirePermission("kits.write"), h.Create)
		kits.PUT("/:id", middleware.RequirePermission("kits.write"), h.Update)
		kits.DELETE("/:id", middleware.RequirePermission("kits.write"), h.Delete)
	}
}

// List returns paginated maintenance kits
// @Summary      List kits
// @Tags         kits
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/kits [get]
func (h *KitHandler) List(c *gin.Context) {
	params := pagination.Parse(c)

	kits, total, err := h.kitService.List(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"kits":  kits,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// Resolve returns the recommended tasks and parts for a model and interval
// @Summary      Resolve kit
// @Description  Prefers the admin-managed kit table, falling back to the built-in model catalogs; unknown combinations yield empty lists
// @Tags         kits
// @Security     BearerAuth
// @Produce      json
// @Param        marca      query     string  false  "Equipment brand"
// @Param        modelo     query     string  true   "Equipment model"
// @Param        intervalo  query     string  true   "PM1..PM4"
// @Success      200        {object}  response.Response{data=maintenance.IntervalKit}
// @Failure      400        {object}  response.Response
// @Router       /api/kits/resolve [get]
func (h *KitHandler) Resolve(c *gin.Context) {
	kit, err := h.kitService.Resolve(c.Request.Context(), c.Query("marca"), c.Query("modelo"), c.Query("intervalo"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, kit))
}

// ListIntervalos returns the PM interval definitions
// @Summary      List PM intervals
// @Tags         kits
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.IntervaloResponse}
// @Router       /api/kits/intervalos [get]
func (h *KitHandler) ListIntervalos(c *gin.Context) {
	intervalos, err := h.kitService.ListIntervalos(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, intervalos))
}

// GetByID returns one kit
// @Summary      Get kit
// @Tags         kits
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Kit ID"
// @Success      200  {object}  response.Response{data=service.KitResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/kits/{id} [get]
func (h *KitHandler) GetByID(c *gin.Context) {
	kit, err := h.kitService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, kit))
}

// Create registers a maintenance kit
// @Summary      Create kit
// @Tags         kits
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateKitRequest  true  "Kit payload"
// @Success      201      {object}  response.Response{data=service.KitResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/kits [post]
func (h *KitHandler) Create(c *gin.Context) {
	var req service.CreateKitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")
	kit, err := h.kitService.Create(c.Request.Context(), userID, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, kit))
}

// Update replaces a kit's tasks and parts
// @Summary      Update kit
// @Tags         kits
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Kit ID"
// @Param        payload  body      service.CreateKitRequest  true  "Kit payload"
// @Success      200      {object}  response.Response{data=service.KitResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/kits/{id} [put]
func (h *KitHandler) Update(c *gin.Context) {
	var req service.CreateKitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")
	kit, err := h.kitService.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, kit))
}

// Delete removes a kit
// @Summary      Delete kit
// @Tags         kits
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Kit ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/kits/{id} [delete]
func (h *KitHandler) Delete(c *gin.Context) {
	userID := c.GetString("userID")

	if err := h.kitService.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Kit deleted"))
}
