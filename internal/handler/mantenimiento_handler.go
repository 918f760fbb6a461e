package handler

import (
	"net/http"
	"strconv"

	"fleetmaint/internal/middleware"
	"fleetmaint/internal/service"
	"fleetmaint/pkg/pagination"
	"fleetmaint/pkg/response"

	"github.com/gin-gonic/gin"
)

type MantenimientoHandler struct {
	mantenimientoService service.MantenimientoService
}

func NewMantenimientoHandler(mantenimientoService service.MantenimientoService) *MantenimientoHandler {
	return &MantenimientoHandler{mantenimientoService: mantenimientoService}
}

func (h *MantenimientoHandler) RegisterRoutes(router *gin.RouterGroup) {
	mantenimientos := router.Group("/api/mantenimientos")
	{
		mantenimientos.GET("", middleware.RequirePermission("mantenimientos.read"), h.ListProgramados)
		mantenimientos.POST("", middleware.RequirePermission("mantenimientos.write"), h.CreateProgramado)
		mantenimientos.GET("/stale", middleware.RequirePermission("mantenimientos.read"), h.ListStale)
		mantenimientos.GET("/ficha/:ficha", middleware.RequirePermission("mantenimientos.read"), h.GetStatusByFicha)
		mantenimientos.GET("/ficha/:ficha/historial", middleware.RequirePermission("mantenimientos.read"), h.Historial)
		mantenimientos.GET("/ficha/:ficha/plan", middleware.RequirePermission("mantenimientos.read"), h.RoutePlan)
		mantenimientos.POST("/realizados", middleware.RequirePermission("mantenimientos.write"), h.RegisterRealizado)
	}
}

// ListProgramados returns scheduled maintenance with recomputed status
// @Summary      List scheduled maintenance
// @Description  Remaining life and status are recomputed per row; threshold tunes the upcoming window (default 100)
// @Tags         mantenimientos
// @Security     BearerAuth
// @Produce      json
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Items per page (default 20)"
// @Param        threshold  query     number  false  "Upcoming window in hours/km (default 100)"
// @Param        activos    query     bool    false  "Only active rows"
// @Success      200        {object}  response.Response{data=object}
// @Router       /api/mantenimientos [get]
func (h *MantenimientoHandler) ListProgramados(c *gin.Context) {
	params := pagination.Parse(c)
	threshold, _ := strconv.ParseFloat(c.DefaultQuery("threshold", "0"), 64)
	soloActivos := c.DefaultQuery("activos", "true") == "true"

	progs, total, err := h.mantenimientoService.ListProgramados(c.Request.Context(), params.Page, params.Limit, threshold, soloActivos)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"mantenimientos": progs,
		"total":          total,
		"page":           params.Page,
		"limit":          params.Limit,
	}))
}

// CreateProgramado registers a scheduled-maintenance row
// @Summary      Create scheduled maintenance
// @Tags         mantenimientos
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateProgramadoRequest  true  "Scheduled maintenance payload"
// @Success      201      {object}  response.Response{data=service.ProgramadoResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/mantenimientos [post]
func (h *MantenimientoHandler) CreateProgramado(c *gin.Context) {
	var req service.CreateProgramadoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")
	prog, err := h.mantenimientoService.CreateProgramado(c.Request.Context(), userID, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, prog))
}

// ListStale flags equipment whose readings have gone quiet
// @Summary      List stale scheduled maintenance
// @Description  Active rows whose last reading update is older than the given days (default 7)
// @Tags         mantenimientos
// @Security     BearerAuth
// @Produce      json
// @Param        dias  query     int  false  "Staleness cutoff in days (default 7)"
// @Success      200   {object}  response.Response{data=[]service.ProgramadoResponse}
// @Router       /api/mantenimientos/stale [get]
func (h *MantenimientoHandler) ListStale(c *gin.Context) {
	dias, _ := strconv.Atoi(c.DefaultQuery("dias", "7"))

	progs, err := h.mantenimientoService.ListStale(c.Request.Context(), dias)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, progs))
}

// GetStatusByFicha returns the scheduled rows of one ficha with recomputed status
// @Summary      Maintenance status by ficha
// @Tags         mantenimientos
// @Security     BearerAuth
// @Produce      json
// @Param        ficha      path      string  true   "Equipment ficha"
// @Param        threshold  query     number  false  "Upcoming window in hours/km (default 100)"
// @Success      200        {object}  response.Response{data=[]service.ProgramadoResponse}
// @Router       /api/mantenimientos/ficha/{ficha} [get]
func (h *MantenimientoHandler) GetStatusByFicha(c *gin.Context) {
	threshold, _ := strconv.ParseFloat(c.DefaultQuery("threshold", "0"), 64)

	progs, err := h.mantenimientoService.GetStatusByFicha(c.Request.Context(), c.Param("ficha"), threshold)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, progs))
}

// Historial returns the realized-maintenance history of a ficha
// @Summary      Maintenance history
// @Tags         mantenimientos
// @Security     BearerAuth
// @Produce      json
// @Param        ficha  path      string  true   "Equipment ficha"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/mantenimientos/ficha/{ficha}/historial [get]
func (h *MantenimientoHandler) Historial(c *gin.Context) {
	params := pagination.Parse(c)

	records, total, err := h.mantenimientoService.Historial(c.Request.Context(), c.Param("ficha"), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"historial": records,
		"total":     total,
		"page":      params.Page,
		"limit":     params.Limit,
	}))
}

// RoutePlan simulates the PM cycle of a ficha
// @Summary      PM cycle route plan
// @Description  Simulates the 2000h preventive cycle and attaches the recommended kit for the next interval
// @Tags         mantenimientos
// @Security     BearerAuth
// @Produce      json
// @Param        ficha  path      string  true  "Equipment ficha"
// @Success      200    {object}  response.Response{data=service.RoutePlanResponse}
// @Failure      400    {object}  response.Response
// @Router       /api/mantenimientos/ficha/{ficha}/plan [get]
func (h *MantenimientoHandler) RoutePlan(c *gin.Context) {
	plan, err := h.mantenimientoService.RoutePlan(c.Request.Context(), c.Param("ficha"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, plan))
}

// RegisterRealizado registers a completed maintenance directly
// @Summary      Register realized maintenance
// @Description  Creates the immutable history record, advances the scheduled baseline and discounts flagged inventory parts in one transaction
// @Tags         mantenimientos
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterRealizadoRequest  true  "Realized maintenance payload"
// @Success      201      {object}  response.Response{data=service.RealizadoResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/mantenimientos/realizados [post]
func (h *MantenimientoHandler) RegisterRealizado(c *gin.Context) {
	var req service.RegisterRealizadoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")
	record, err := h.mantenimientoService.RegisterRealizado(c.Request.Context(), userID, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, record))
}
