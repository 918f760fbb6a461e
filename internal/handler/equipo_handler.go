package handler

import (
	"net/http"

	"fleetmaint/internal/middleware"
	"fleetmaint/internal/service"
	"fleetmaint/pkg/pagination"
	"fleetmaint/pkg/response"

	"github.com/gin-gonic/gin"
)

type EquipoHandler struct {
	equipoService service.EquipoService
}

func NewEquipoHandler(equipoService service.EquipoService) *EquipoHandler {
	return &EquipoHandler{equipoService: equipoService}
}

func (h *EquipoHandler) RegisterRoutes(router *gin.RouterGroup) {
	equipos := router.Group("/api/equipos")
	{
		equipos.GET("", middleware.RequirePermission("equipos.read"), h.List)
		equipos.GET("/selectable", middleware.RequirePermission("equipos.read"), h.ListSelectable)
		equipos.GET("/:id", middleware.RequirePermission("equipos.read"), h.GetByID)
		equipos.POST("", middleware.RequirePermission("equipos.write"), h.Create)
		equipos.PUT("/:id", middleware.RequirePermission("equipos.write"), h.Update)
	}
}

// List returns paginated equipment
// @Summary      List equipment
// @Tags         equipos
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Param        search  query     string  false  "Search by ficha, name or plate"
// @Param        activos query     bool    false  "Only active equipment"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/equipos [get]
func (h *EquipoHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	search := c.Query("search")
	soloActivos := c.Query("activos") == "true"

	equipos, total, err := h.equipoService.List(c.Request.Context(), params.Page, params.Limit, search, soloActivos)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"equipos": equipos,
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
	}))
}

// ListSelectable returns equipment eligible for readings and work orders
// @Summary      List selectable equipment
// @Description  Active equipment excluding sold units
// @Tags         equipos
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.EquipoResponse}
// @Router       /api/equipos/selectable [get]
func (h *EquipoHandler) ListSelectable(c *gin.Context) {
	equipos, err := h.equipoService.ListSelectable(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, equipos))
}

// GetByID returns one equipment
// @Summary      Get equipment
// @Tags         equipos
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Equipment ID"
// @Success      200  {object}  response.Response{data=service.EquipoResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/equipos/{id} [get]
func (h *EquipoHandler) GetByID(c *gin.Context) {
	equipo, err := h.equipoService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, equipo))
}

// Create registers a new equipment
// @Summary      Create equipment
// @Tags         equipos
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateEquipoRequest  true  "Equipment payload"
// @Success      201      {object}  response.Response{data=service.EquipoResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/equipos [post]
func (h *EquipoHandler) Create(c *gin.Context) {
	var req service.CreateEquipoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")
	equipo, err := h.equipoService.Create(c.Request.Context(), userID, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, equipo))
}

// Update modifies an existing equipment
// @Summary      Update equipment
// @Tags         equipos
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Equipment ID"
// @Param        payload  body      service.UpdateEquipoRequest  true  "Equipment payload"
// @Success      200      {object}  response.Response{data=service.EquipoResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/equipos/{id} [put]
func (h *EquipoHandler) Update(c *gin.Context) {
	var req service.UpdateEquipoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")
	equipo, err := h.equipoService.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, equipo))
}
