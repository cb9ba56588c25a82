package models

import (
	"time"
)

// ServiceCheckResult 服务检查结果
// @Description 单次就绪探测结果
type ServiceCheckResult struct {
	Name      string        `json:"name" example:"postgresql" description:"服务名称"`
	Probe     string        `json:"probe" example:"postgres" description:"探测类型"`
	Healthy   bool          `json:"healthy" example:"true" description:"是否就绪"`
	Processes []int         `json:"processes,omitempty" description:"匹配的进程ID"`
	Unit      string        `json:"unit,omitempty" example:"active" description:"systemd单元状态"`
	Error     string        `json:"error,omitempty" description:"探测错误"`
	Elapsed   time.Duration `json:"elapsed" description:"探测耗时"`
	Timestamp time.Time     `json:"timestamp" description:"检查时间戳"`
}
