package handler

import (
	"errors"
	"net/http"

	"fleetmaint/internal/service"
	"fleetmaint/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeServiceError maps the service error taxonomy onto HTTP status codes:
// validation failures are 400, state conflicts 409, integration failures 500.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case service.IsValidationError(err):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	case errors.Is(err, service.ErrStateConflict):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	case service.IsIntegrationError(err):
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
	default:
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	}
}
