package controllers

import (
	"errors"
	"net/http"

	"devhost-keeper/internal/models"
	"devhost-keeper/internal/rpc"
	"devhost-keeper/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type APIController struct {
	server *services.Server
}

/**
 * Create new API controller instance
 * @param {*services.Server} server - Status server backend
 * @returns {*APIController} New API controller instance
 * @example
 * server := services.NewServer(&config.Config, run, version)
 * controller := controllers.NewAPIController(server)
 */
func NewAPIController(server *services.Server) *APIController {
	return &APIController{
		server: server,
	}
}

/**
 * Register all API routes to Gin engine
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - Registers routes for:
 *   - Liveness (/healthz)
 *   - Prometheus scrape endpoint (/metrics)
 *   - Last bootstrap report
 */
func (a *APIController) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", a.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET(rpc.APIPrefix+"/report", a.Report)
}

// @Summary 业务就绪探针
// @Description 返回服务版本、启动时间、健康状态和最近一次引导的关键指标
// @Tags System
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /healthz [get]
func (a *APIController) Healthz(c *gin.Context) {
	response := a.server.GetHealthz()
	c.JSON(http.StatusOK, response)
}

// @Summary 最近一次引导报告
// @Description 返回最近一次引导运行中每个服务的最终状态、探测次数、备用启动和失败原因
// @Tags System
// @Produce json
// @Success 200 {object} models.BootstrapReport
// @Failure 404 {object} models.ErrorResponse "本机尚未执行过引导"
// @Failure 500 {object} models.ErrorResponse
// @Router /devhost/api/v1/report [get]
func (a *APIController) Report(c *gin.Context) {
	report, err := a.server.Report()
	if errors.Is(err, services.ErrNoReport) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Code:  "report.not_found",
			Error: err.Error(),
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:  "report.load_failed",
			Error: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, report)
}
