package controllers

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"devhost-keeper/internal/config"
	"devhost-keeper/internal/host"
	"devhost-keeper/internal/models"
	"devhost-keeper/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, probeAddr string) (*gin.Engine, host.RunConfig) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	cfg := &config.AppConfig{
		Artifacts: config.ArtifactsConfig{CredentialsPath: dir + "/credentials.env"},
		Services: []config.ServiceConfig{{
			Name:    "cache",
			Unit:    "cache",
			Mode:    config.ModeDaemon,
			Command: []string{"cache-server"},
			Match:   "cache-server",
			Probe: config.ProbeConfig{
				Type:        "tcp",
				Address:     probeAddr,
				MaxAttempts: 1,
				Interval:    time.Millisecond,
			},
		}},
	}
	run := host.RunConfig{
		User:     "dev",
		Home:     dir,
		Strategy: host.NoSystemd,
		Profile:  "full",
		Dirs:     host.Dirs{State: dir, Logs: dir, Cache: dir},
	}

	server := services.NewServer(cfg, run, "test")
	r := gin.New()
	NewAPIController(server).RegisterRoutes(r)
	NewServiceController(server).RegisterRoutes(r)
	return r, run
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t, "127.0.0.1:1")

	w := serve(r, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.HealthOK, resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.Equal(t, 1, resp.Summary.DeclaredServices)
}

func TestReportNotFoundThenServed(t *testing.T) {
	r, run := newTestRouter(t, "127.0.0.1:1")

	w := serve(r, http.MethodGet, "/devhost/api/v1/report")
	assert.Equal(t, http.StatusNotFound, w.Code)

	report := &models.BootstrapReport{
		RunID:    "run-42",
		Services: []models.ServiceResult{{Name: "cache", State: models.StateTimedOut, Attempts: 60, FallbackUsed: true}},
	}
	report.Tally()
	require.NoError(t, services.SaveReport(run.Dirs.Cache, report))

	w = serve(r, http.MethodGet, "/devhost/api/v1/report")
	require.Equal(t, http.StatusOK, w.Code)
	var got models.BootstrapReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "run-42", got.RunID)
	assert.Equal(t, 1, got.Failed)
	assert.True(t, got.Services[0].FallbackUsed)

	w = serve(r, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	var health models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, models.HealthDegraded, health.Status)
	assert.Equal(t, "run-42", health.Summary.LastRunID)
	assert.Equal(t, 1, health.Summary.FailedServices)
}

func TestCheckService(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	r, _ := newTestRouter(t, ln.Addr().String())

	w := serve(r, http.MethodPost, "/devhost/api/v1/services/cache/check")
	require.Equal(t, http.StatusOK, w.Code)
	var res models.ServiceCheckResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Healthy)
	assert.Equal(t, "tcp", res.Probe)

	w = serve(r, http.MethodPost, "/devhost/api/v1/services/ghost/check")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListServicesAndMetrics(t *testing.T) {
	r, _ := newTestRouter(t, "127.0.0.1:1")

	w := serve(r, http.MethodGet, "/devhost/api/v1/services")
	require.Equal(t, http.StatusOK, w.Code)
	var list []config.ServiceConfig
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "cache", list[0].Name)

	services.RecordServiceReady("cache", true)
	w = serve(r, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `devhost_service_ready{service="cache"} 1`)
}
