package models

import "time"

// ServiceState is where a service is in one bootstrap run.
type ServiceState string

const (
	// 尚未处理
	StateNotStarted ServiceState = "not_started"
	// 已发出启动请求，正在等待就绪
	StateStarting ServiceState = "starting"
	// 探测成功
	StateReady ServiceState = "ready"
	// 就绪且初始化动作已执行或标记已存在
	StateInitialized ServiceState = "initialized"
	// 启动命令本身失败
	StateStartFailed ServiceState = "start_failed"
	// 探测次数耗尽(包括一次备用启动之后)
	StateTimedOut ServiceState = "timed_out"
	// 就绪但初始化动作失败
	StateInitFailed ServiceState = "init_failed"
	// 因abort策略未被处理
	StateSkipped ServiceState = "skipped"
)

// Failed reports whether the state is a terminal failure.
func (s ServiceState) Failed() bool {
	switch s {
	case StateStartFailed, StateTimedOut, StateInitFailed:
		return true
	}
	return false
}

// Succeeded reports whether the service ended up usable.
func (s ServiceState) Succeeded() bool {
	return s == StateReady || s == StateInitialized
}

/**
 * Outcome of one service in a bootstrap run
 * @property {string} name - Service name
 * @property {ServiceState} state - Final state
 * @property {string} strategy - How the service was started (systemd/daemon/nohup)
 * @property {int} attempts - Readiness probes performed, fallback wait included
 * @property {bool} fallbackUsed - Whether the one-shot fallback start ran
 * @property {bool} initRan - Whether the init action executed in this run
 * @property {string} error - Failure message
 * @property {string} cause - Best-guess failure cause
 * @property {[]string} logTail - Last lines of the service log on failure
 */
type ServiceResult struct {
	Name         string        `json:"name"`
	State        ServiceState  `json:"state"`
	Strategy     string        `json:"strategy,omitempty"`
	Attempts     int           `json:"attempts"`
	FallbackUsed bool          `json:"fallbackUsed,omitempty"`
	InitRan      bool          `json:"initRan,omitempty"`
	Error        string        `json:"error,omitempty"`
	Cause        string        `json:"cause,omitempty"`
	LogTail      []string      `json:"logTail,omitempty"`
	Duration     time.Duration `json:"duration"`
}
