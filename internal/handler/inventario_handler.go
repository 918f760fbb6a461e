package handler

import (
	"net/http"

	"fleetmaint/internal/middleware"
	"fleetmaint/internal/service"
	"fleetmaint/pkg/pagination"
	"fleetmaint/pkg/response"

	"github.com/gin-gonic/gin"
)

type InventarioHandler struct {
	inventarioService service.InventarioService
}

func NewInventarioHandler(inventarioService service.InventarioService) *InventarioHandler {
	return &InventarioHandler{inventarioService: inventarioService}
}

func (h *InventarioHandler) RegisterRoutes(router *gin.RouterGroup) {
	inventario := router.Group("/api/inventario")
	{
		inventario.GET("", middleware.RequirePermission("inventario.read"), h.List)
		inventario.GET("/bajo-stock", middleware.RequirePermission("inventario.read"), h.ListBajoStock)
		inventario.GET("/:id", middleware.RequirePermission("inventario.read"), h.GetByID)
		inventario.POST("", middleware.RequirePermission("inventario.write"), h.Create)
		inventario.PUT("/:id", middleware.RequirePermission("inventario.write"), h.Update)
		inventario.DELETE("/:id", middleware.RequirePermission("inventario.write"), h.Delete)
		inventario.POST("/:id/movimientos", middleware.RequirePermission("inventario.write"), h.RegisterMovimiento)
		inventario.GET("/:id/movimientos", middleware.RequirePermission("inventario.read"), h.ListMovimientos)
	}
}

// List returns paginated inventory items
// @Summary      List inventory
// @Tags         inventario
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Param        search  query     string  false  "Search by name, part number or code"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/inventario [get]
func (h *InventarioHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	search := c.Query("search")

	items, total, err := h.inventarioService.List(c.Request.Context(), params.Page, params.Limit, search)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"items": items,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// ListBajoStock returns items at or below their minimum stock
// @Summary      List low-stock items
// @Tags         inventario
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.InventarioResponse}
// @Router       /api/inventario/bajo-stock [get]
func (h *InventarioHandler) ListBajoStock(c *gin.Context) {
	items, err := h.inventarioService.ListBajoStock(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// GetByID returns one inventory item
// @Summary      Get inventory item
// @Tags         inventario
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Item ID"
// @Success      200  {object}  response.Response{data=service.InventarioResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/inventario/{id} [get]
func (h *InventarioHandler) GetByID(c *gin.Context) {
	item, err := h.inventarioService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// Create registers a new inventory item
// @Summary      Create inventory item
// @Tags         inventario
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInventarioRequest  true  "Item payload"
// @Success      201      {object}  response.Response{data=service.InventarioResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/inventario [post]
func (h *InventarioHandler) Create(c *gin.Context) {
	var req service.CreateInventarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")
	item, err := h.inventarioService.Create(c.Request.Context(), userID, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, item))
}

// Update modifies an inventory item's metadata (stock changes go through movements)
// @Summary      Update inventory item
// @Tags         inventario
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                           true  "Item ID"
// @Param        payload  body      service.UpdateInventarioRequest  true  "Item payload"
// @Success      200      {object}  response.Response{data=service.InventarioResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/inventario/{id} [put]
func (h *InventarioHandler) Update(c *gin.Context) {
	var req service.UpdateInventarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")
	item, err := h.inventarioService.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// Delete soft-deletes an inventory item
// @Summary      Delete inventory item
// @Tags         inventario
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Item ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/inventario/{id} [delete]
func (h *InventarioHandler) Delete(c *gin.Context) {
	userID := c.GetString("userID")

	if err := h.inventarioService.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Inventory item deleted"))
}

// RegisterMovimiento applies a manual stock movement
// @Summary      Register stock movement
// @Description  ENTRADA adds stock, SALIDA removes (rejected when insufficient), AJUSTE applies a signed correction
// @Tags         inventario
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Item ID"
// @Param        payload  body      service.MovimientoRequest  true  "Movement payload"
// @Success      201      {object}  response.Response{data=service.MovimientoResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/inventario/{id}/movimientos [post]
func (h *InventarioHandler) RegisterMovimiento(c *gin.Context) {
	var req service.MovimientoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")
	mov, err := h.inventarioService.RegisterMovimiento(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, mov))
}

// ListMovimientos returns the movement history of an item
// @Summary      List stock movements
// @Tags         inventario
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true   "Item ID"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/inventario/{id}/movimientos [get]
func (h *InventarioHandler) ListMovimientos(c *gin.Context) {
	params := pagination.Parse(c)

	movs, total, err := h.inventarioService.ListMovimientos(c.Request.Context(), c.Param("id"), params.Page, params.Limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"movimientos": movs,
		"total":       total,
		"page":        params.Page,
		"limit":       params.Limit,
	}))
}
