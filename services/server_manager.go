package services

import (
	"context"
	"errors"
	"os"
	"time"

	"devhost-keeper/internal/config"
	"devhost-keeper/internal/host"
	"devhost-keeper/internal/logger"
	"devhost-keeper/internal/models"
)

// ErrNoReport is returned when no bootstrap has run on this host yet.
var ErrNoReport = errors.New("no bootstrap report")

type Server struct {
	cfg       *config.AppConfig
	run       host.RunConfig
	service   *ServiceManager
	startTime time.Time
	version   string
}

/**
 * Create the status server backend
 * @param {*config.AppConfig} cfg - Application configuration
 * @param {host.RunConfig} run - Detected host capabilities
 * @param {string} version - Version reported by /healthz
 * @returns {Server} Returns new server instance
 * @description
 * - Reads stored credentials so probes can render password templates
 * - Never starts services itself; bootstrapping stays a CLI operation
 */
func NewServer(cfg *config.AppConfig, run host.RunConfig, version string) *Server {
	creds, err := LoadCredentials(cfg, run)
	if err != nil {
		logger.Warnf("Load credentials failed: %v", err)
	}
	return &Server{
		cfg:       cfg,
		run:       run,
		service:   NewServiceManager(cfg, run, creds),
		startTime: time.Now(),
		version:   version,
	}
}

func (s *Server) Services() *ServiceManager {
	return s.service
}

// Report returns the latest persisted bootstrap report.
func (s *Server) Report() (*models.BootstrapReport, error) {
	report, err := LoadReport(s.run.Dirs.Cache)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoReport
	}
	return report, err
}

// CheckService probes one declared service now.
func (s *Server) CheckService(ctx context.Context, name string) (models.ServiceCheckResult, error) {
	res, err := s.service.Check(ctx, name)
	if err == nil {
		RecordServiceReady(name, res.Healthy)
	}
	return res, err
}

/**
 * Start monitoring declared services
 * @param {context.Context} ctx - Stops monitoring when done
 * @description
 * - Probes every selected service once per server.monitor_interval
 * - Updates the readiness gauge and logs services that are not ready
 */
func (s *Server) StartMonitoring(ctx context.Context) {
	interval := s.cfg.Server.MonitorInterval
	if interval <= 0 {
		logger.Info("Service monitoring is disabled (interval <= 0)")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.checkAll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) checkAll(ctx context.Context) {
	selected, err := s.service.Selected(nil)
	if err != nil {
		logger.Errorf("Service monitoring error: %v", err)
		return
	}
	for _, svc := range selected {
		res, err := s.CheckService(ctx, svc.Name)
		if err != nil {
			logger.Errorf("Check [%s] failed: %v", svc.Name, err)
			continue
		}
		if !res.Healthy {
			logger.Warnf("Service [%s] is not ready: %s", svc.Name, res.Error)
		}
	}
}

/**
 * Build the /healthz response
 * @returns {models.HealthResponse} Version, uptime, request counters and last run summary
 * @description Status is degraded while the last recorded run has failed services
 */
func (s *Server) GetHealthz() models.HealthResponse {
	uptime := time.Since(s.startTime)

	summary := models.HealthSummary{
		TotalRequests: GetTotalRequestCount(),
		ErrorRequests: GetTotalErrorCount(),
	}
	if selected, err := s.service.Selected(nil); err == nil {
		summary.DeclaredServices = len(selected)
	}
	status := models.HealthOK
	if report, err := s.Report(); err == nil {
		summary.LastRunID = report.RunID
		summary.ReadyServices = report.Succeeded
		summary.FailedServices = report.Failed
		if report.Failed > 0 {
			status = models.HealthDegraded
		}
	}

	return models.HealthResponse{
		Version:   s.version,
		StartTime: s.startTime.Format(time.RFC3339),
		Status:    status,
		Uptime:    uptime.Truncate(time.Second).String(),
		Summary:   summary,
	}
}
