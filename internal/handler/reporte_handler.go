package handler

import (
	"net/http"
	"strconv"
	"time"

	"fleetmaint/internal/middleware"
	"fleetmaint/internal/model"
	"fleetmaint/internal/service"
	"fleetmaint/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReporteHandler struct {
	reporteService service.ReporteService
}

func NewReporteHandler(reporteService service.ReporteService) *ReporteHandler {
	return &ReporteHandler{reporteService: reporteService}
}

func (h *ReporteHandler) RegisterRoutes(router *gin.RouterGroup) {
	reportes := router.Group("/api/reportes")
	{
		reportes.GET("/flota", middleware.RequirePermission("reportes.read"), h.FlotaStatus)
		reportes.GET("/mensual", middleware.RequirePermission("reportes.read"), h.Mensual)
		reportes.GET("/partes", middleware.RequirePermission("reportes.read"), h.TopPartes)
	}
}

func parseRango(c *gin.Context) model.ReporteRango {
	var rango model.ReporteRango
	if desde, err := time.Parse("2006-01-02", c.Query("desde")); err == nil {
		rango.Desde = desde
	}
	if hasta, err := time.Parse("2006-01-02", c.Query("hasta")); err == nil {
		// Include the whole end day
		rango.Hasta = hasta.Add(24*time.Hour - time.Second)
	}
	return rango
}

// FlotaStatus aggregates maintenance status across the fleet
// @Summary      Fleet status report
// @Description  Recomputes every active scheduled row and aggregates vencido/proximo/normal counts, fleet-wide and per category
// @Tags         reportes
// @Security     BearerAuth
// @Produce      json
// @Param        threshold  query     number  false  "Upcoming window in hours/km (default 100)"
// @Success      200        {object}  response.Response{data=model.FlotaStatusResponse}
// @Router       /api/reportes/flota [get]
func (h *ReporteHandler) FlotaStatus(c *gin.Context) {
	threshold, _ := strconv.ParseFloat(c.DefaultQuery("threshold", "0"), 64)

	report, err := h.reporteService.FlotaStatus(c.Request.Context(), threshold)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// Mensual returns monthly realized-maintenance activity
// @Summary      Monthly report
// @Tags         reportes
// @Security     BearerAuth
// @Produce      json
// @Param        desde  query     string  false  "Start date YYYY-MM-DD (default 12 months ago)"
// @Param        hasta  query     string  false  "End date YYYY-MM-DD (default today)"
// @Success      200    {object}  response.Response{data=[]model.MensualReportRow}
// @Failure      400    {object}  response.Response
// @Router       /api/reportes/mensual [get]
func (h *ReporteHandler) Mensual(c *gin.Context) {
	rows, err := h.reporteService.Mensual(c.Request.Context(), parseRango(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}

// TopPartes ranks spare parts by consumption
// @Summary      Parts consumption report
// @Tags         reportes
// @Security     BearerAuth
// @Produce      json
// @Param        desde  query     string  false  "Start date YYYY-MM-DD"
// @Param        hasta  query     string  false  "End date YYYY-MM-DD"
// @Param        limit  query     int     false  "Number of parts to return (default 10)"
// @Success      200    {object}  response.Response{data=[]model.ParteConsumoRow}
// @Failure      400    {object}  response.Response
// @Router       /api/reportes/partes [get]
func (h *ReporteHandler) TopPartes(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	rows, err := h.reporteService.TopPartes(c.Request.Context(), parseRango(c), limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}
