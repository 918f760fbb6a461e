package handler

import (
	"net/http"

	"fleetmaint/internal/middleware"
	"fleetmaint/internal/service"
	"fleetmaint/pkg/pagination"
	"fleetmaint/pkg/response"

	"github.com/gin-gonic/gin"
)

type LecturaHandler struct {
	lecturaService service.LecturaService
}

func NewLecturaHandler(lecturaService service.LecturaService) *LecturaHandler {
	return &LecturaHandler{lecturaService: lecturaService}
}

func (h *LecturaHandler) RegisterRoutes(router *gin.RouterGroup) {
	lecturas := router.Group("/api/lecturas")
	{
		lecturas.POST("", middleware.RequirePermission("lecturas.write"), h.Register)
		lecturas.GET("/ficha/:ficha", middleware.RequirePermission("mantenimientos.read"), h.ListByFicha)
	}
}

// Register appends an hours/km reading
// @Summary      Register reading
// @Description  Appends a reading and refreshes the equipment's scheduled maintenance; readings below the last recorded value are rejected
// @Tags         lecturas
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterLecturaRequest  true  "Reading payload"
// @Success      201      {object}  response.Response{data=service.LecturaResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/lecturas [post]
func (h *LecturaHandler) Register(c *gin.Context) {
	var req service.RegisterLecturaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")
	lectura, err := h.lecturaService.Register(c.Request.Context(), userID, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, lectura))
}

// ListByFicha returns the reading history of a ficha
// @Summary      List readings
// @Tags         lecturas
// @Security     BearerAuth
// @Produce      json
// @Param        ficha  path      string  true   "Equipment ficha"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/lecturas/ficha/{ficha} [get]
func (h *LecturaHandler) ListByFicha(c *gin.Context) {
	params := pagination.Parse(c)

	lecturas, total, err := h.lecturaService.ListByFicha(c.Request.Context(), c.Param("ficha"), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"lecturas": lecturas,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}
