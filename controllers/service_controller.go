package controllers

import (
	"errors"
	"net/http"

	"devhost-keeper/internal/config"
	"devhost-keeper/internal/models"
	"devhost-keeper/internal/rpc"
	"devhost-keeper/services"

	"github.com/gin-gonic/gin"
)

type ServiceController struct {
	server *services.Server
}

/**
 * Create new Service controller instance
 * @param {*services.Server} server - Status server backend
 * @returns {*ServiceController} New Service controller instance
 */
func NewServiceController(server *services.Server) *ServiceController {
	return &ServiceController{
		server: server,
	}
}

/**
 * Register all service API routes to Gin engine
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - Registers routes for:
 *   - Declared service listing
 *   - On-demand readiness check of one service
 */
func (s *ServiceController) RegisterRoutes(r *gin.Engine) {
	api := r.Group(rpc.APIPrefix)
	// 服务查询接口
	api.GET("/services", s.ListServices)
	api.POST("/services/:name/check", s.CheckService)
}

// ListServices lists declared services
//
//	@Summary		List services
//	@Description	Get the services selected for this host's profile, in start order
//	@Tags			Services
//	@Produce		json
//	@Success		200	{array}		config.ServiceConfig	"Declared services"
//	@Failure		500	{object}	models.ErrorResponse	"Internal server error response"
//	@Router			/devhost/api/v1/services [get]
func (s *ServiceController) ListServices(c *gin.Context) {
	selected, err := s.server.Services().Selected(nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:  "service.list_failed",
			Error: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, selected)
}

// CheckService probes one service now
//
//	@Summary		Check service
//	@Description	Run the readiness probe of a service once and report matching processes and unit state
//	@Tags			Services
//	@Produce		json
//	@Param			name	path		string						true	"Service name"
//	@Success		200		{object}	models.ServiceCheckResult	"Probe result, healthy or not"
//	@Failure		404		{object}	models.ErrorResponse		"Service not found error response"
//	@Failure		500		{object}	models.ErrorResponse		"Internal server error response"
//	@Router			/devhost/api/v1/services/{name}/check [post]
func (s *ServiceController) CheckService(c *gin.Context) {
	name := c.Param("name")
	res, err := s.server.CheckService(c.Request.Context(), name)
	if errors.Is(err, config.ErrServiceNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Code:  "service.not_found",
			Error: err.Error(),
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:  "service.check_failed",
			Error: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, res)
}
