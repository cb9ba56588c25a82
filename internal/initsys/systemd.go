// Package initsys drives the host init manager. It shells out to systemctl
// through a command runner so that privilege escalation and tests share one path.
package initsys

import (
	"context"
	"fmt"
	"strings"

	"devhost-keeper/internal/utils"
)

// Systemd manages units through systemctl.
type Systemd struct {
	runner utils.Runner
}

func NewSystemd(runner utils.Runner) *Systemd {
	return &Systemd{runner: runner}
}

// Enable marks the unit to start at boot.
func (s *Systemd) Enable(ctx context.Context, unit string) error {
	return s.systemctl(ctx, "enable", unit)
}

// Start starts the unit, a no-op for systemd when it is already active.
func (s *Systemd) Start(ctx context.Context, unit string) error {
	return s.systemctl(ctx, "start", unit)
}

// Reload asks the unit to reload its configuration.
func (s *Systemd) Reload(ctx context.Context, unit string) error {
	return s.systemctl(ctx, "reload", unit)
}

// DaemonReload re-reads unit files after one was written.
func (s *Systemd) DaemonReload(ctx context.Context) error {
	if _, err := s.runner.Run(ctx, "systemctl", "daemon-reload"); err != nil {
		return fmt.Errorf("systemctl daemon-reload: %w", err)
	}
	return nil
}

// IsActive is true if systemctl reports the unit active.
func (s *Systemd) IsActive(ctx context.Context, unit string) bool {
	_, err := s.runner.Run(ctx, "systemctl", "is-active", "--quiet", unit)
	return err == nil
}

// Status returns the unit's active state, e.g. "active", "inactive" or "failed".
func (s *Systemd) Status(ctx context.Context, unit string) string {
	// is-active以非零退出码表示未激活，但仍输出状态
	out, _ := s.runner.Run(ctx, "systemctl", "is-active", unit)
	if state := strings.TrimSpace(string(out)); state != "" {
		return state
	}
	return "unknown"
}

func (s *Systemd) systemctl(ctx context.Context, verb, unit string) error {
	if _, err := s.runner.Run(ctx, "systemctl", verb, unit); err != nil {
		return fmt.Errorf("systemctl %s %s: %w", verb, unit, err)
	}
	return nil
}
