package models

// Status server health states.
const (
	HealthOK       = "ok"       // no service failed in the last run, or no run recorded yet
	HealthDegraded = "degraded" // the last run left at least one service not ready
)

/**
 * Payload of GET /healthz on the status server
 * @property {string} version - devhost build version
 * @property {string} startTime - When the status server started, RFC3339
 * @property {string} status - ok/degraded, from the last recorded bootstrap run
 * @property {string} uptime - Server uptime truncated to seconds
 * @property {HealthSummary} summary - Request counters and the last run tally
 */
type HealthResponse struct {
	Version   string        `json:"version" example:"v0.3.0"`
	StartTime string        `json:"startTime" example:"2026-10-19T08:00:00Z"`
	Status    string        `json:"status" example:"ok"`
	Uptime    string        `json:"uptime" example:"2h5m0s"`
	Summary   HealthSummary `json:"summary"`
}

// HealthSummary 请求计数和最近一次引导的服务统计
type HealthSummary struct {
	TotalRequests    int64  `json:"totalRequests" example:"120"`
	ErrorRequests    int64  `json:"errorRequests" example:"2"`
	LastRunID        string `json:"lastRunId,omitempty"`
	ReadyServices    int    `json:"readyServices" example:"4"`
	FailedServices   int    `json:"failedServices" example:"1"`
	DeclaredServices int    `json:"declaredServices" example:"5"`
}
