package services

import (
	"sync/atomic"

	"devhost-keeper/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	bootstrapRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devhost_bootstrap_runs_total",
			Help: "Bootstrap runs by outcome",
		},
		[]string{"outcome"},
	)

	serviceResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devhost_service_results_total",
			Help: "Final service states reached by bootstrap runs",
		},
		[]string{"service", "state"},
	)

	serviceStartDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devhost_service_start_duration_seconds",
			Help:    "Time from start request to final state",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"service"},
	)

	probeAttempts = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devhost_probe_attempts",
			Help:    "Readiness probes needed per service",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 30, 60},
		},
		[]string{"service"},
	)

	serviceReady = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "devhost_service_ready",
			Help: "1 when the service's readiness probe last succeeded",
		},
		[]string{"service"},
	)

	requestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devhost_http_requests_total",
			Help: "Total status API requests",
		},
		[]string{"path"},
	)

	errorCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devhost_http_errors_total",
			Help: "Status API requests answered with status >= 400",
		},
		[]string{"path"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devhost_http_request_duration_seconds",
			Help:    "Duration of status API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	// 本地计数器，供健康检查接口直接读取
	totalRequests int64
	totalErrors   int64
)

func init() {
	prometheus.MustRegister(bootstrapRuns)
	prometheus.MustRegister(serviceResults)
	prometheus.MustRegister(serviceStartDuration)
	prometheus.MustRegister(probeAttempts)
	prometheus.MustRegister(serviceReady)
	prometheus.MustRegister(requestCount)
	prometheus.MustRegister(errorCount)
	prometheus.MustRegister(requestDuration)
}

// RecordServiceResult is the Bootstrapper.OnResult hook.
func RecordServiceResult(res models.ServiceResult) {
	serviceResults.WithLabelValues(res.Name, string(res.State)).Inc()
	RecordServiceReady(res.Name, res.State.Succeeded())
	serviceStartDuration.WithLabelValues(res.Name).Observe(res.Duration.Seconds())
	if res.Attempts > 0 {
		probeAttempts.WithLabelValues(res.Name).Observe(float64(res.Attempts))
	}
}

// RecordRun counts a finished run as ok, degraded, aborted or fatal.
func RecordRun(report *models.BootstrapReport) {
	outcome := "ok"
	switch {
	case report.FatalError != "":
		outcome = "fatal"
	case report.Aborted:
		outcome = "aborted"
	case report.Failed > 0:
		outcome = "degraded"
	}
	bootstrapRuns.WithLabelValues(outcome).Inc()
}

// RecordServiceReady updates the readiness gauge from a live probe.
func RecordServiceReady(name string, ready bool) {
	v := 0.0
	if ready {
		v = 1
	}
	serviceReady.WithLabelValues(name).Set(v)
}

func IncrementRequestCount(path string) {
	requestCount.WithLabelValues(path).Inc()
	atomic.AddInt64(&totalRequests, 1)
}

func IncrementErrorCount(path string) {
	errorCount.WithLabelValues(path).Inc()
	atomic.AddInt64(&totalErrors, 1)
}

func RecordRequestDuration(path string, seconds float64) {
	requestDuration.WithLabelValues(path).Observe(seconds)
}

func GetTotalRequestCount() int64 { return atomic.LoadInt64(&totalRequests) }

func GetTotalErrorCount() int64 { return atomic.LoadInt64(&totalErrors) }

/**
 * Push bootstrap metrics to a Pushgateway
 * @param {string} addr - Pushgateway URL
 * @param {string} job - Job label
 * @param {string} instance - Grouping label, usually the host address
 * @returns {error} Push error
 */
func PushMetrics(addr, job, instance string) error {
	return push.New(addr, job).
		Grouping("instance", instance).
		Collector(bootstrapRuns).
		Collector(serviceResults).
		Collector(serviceStartDuration).
		Collector(probeAttempts).
		Push()
}
