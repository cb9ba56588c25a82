package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"devhost-keeper/internal/artifact"
	"devhost-keeper/internal/initsys"
	"devhost-keeper/internal/logger"
	"devhost-keeper/internal/utils"
)

/**
 * SystemdStarter starts a unit through the init/service manager
 * @property {string} Unit - Unit name, e.g. "postgresql" or "code-server@dev"
 * @property {bool} Reload - Reload instead of start when the unit is already active
 */
type SystemdStarter struct {
	Systemd *initsys.Systemd
	Unit    string
	Reload  bool
}

func (s *SystemdStarter) Strategy() string { return "systemd" }

// Start enables and starts the unit; systemctl start is a no-op for active units.
func (s *SystemdStarter) Start(ctx context.Context) error {
	if s.Reload && s.Systemd.IsActive(ctx, s.Unit) {
		logger.Infof("Unit [%s] is active, reloading", s.Unit)
		return s.Systemd.Reload(ctx, s.Unit)
	}
	if err := s.Systemd.Enable(ctx, s.Unit); err != nil {
		return err
	}
	return s.Systemd.Start(ctx, s.Unit)
}

// processLauncher is satisfied by *ProcessInstance.
type processLauncher interface {
	StartProcess(ctx context.Context) error
	FindRunning() []int
	CommandLine() string
	Argv() []string
	Fragment() string
}

// DaemonStarter launches the service's foreground command detached from the
// session, unless a matching process already runs.
type DaemonStarter struct {
	Proc processLauncher
}

func (d *DaemonStarter) Strategy() string { return "daemon" }

func (d *DaemonStarter) Start(ctx context.Context) error {
	if pids := d.Proc.FindRunning(); len(pids) > 0 {
		logger.Infof("Process '%s' already running (PID: %v), not starting another", d.Proc.CommandLine(), pids)
		return nil
	}
	return d.Proc.StartProcess(ctx)
}

/**
 * NohupStarter launches like DaemonStarter and persists a guard
 * @property {string} GuardPath - Shell script starting the process when it is not running
 * @property {string} RCFile - Login shell rc file that sources the guard
 * @property {string} Owner - User owning the guard and rc file
 * @description
 * - The guard brings the editor back on the next login after the process died,
 *   covering hosts with no init system to supervise it
 * - The rc hook is appended once; re-runs leave the rc file untouched
 */
type NohupStarter struct {
	DaemonStarter
	GuardPath string
	RCFile    string
	Owner     string
	LogFile   string
	Installer artifact.Installer
}

func (n *NohupStarter) Strategy() string { return "nohup" }

func (n *NohupStarter) Start(ctx context.Context) error {
	if err := n.DaemonStarter.Start(ctx); err != nil {
		return err
	}
	if _, err := n.Installer.Install(ctx, artifact.File{
		Path:  n.GuardPath,
		Data:  []byte(GuardScript(n.Proc.Fragment(), n.Proc.Argv(), n.LogFile)),
		Mode:  0755,
		Owner: n.Owner,
	}); err != nil {
		return fmt.Errorf("write guard script: %w", err)
	}
	return n.installHook(ctx)
}

func (n *NohupStarter) installHook(ctx context.Context) error {
	hook := RCHook(n.GuardPath)
	rc, err := os.ReadFile(n.RCFile)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read %s: %w", n.RCFile, err)
	}
	if strings.Contains(string(rc), hook) {
		return nil
	}
	content := string(rc)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += hook + "\n"
	if _, err := n.Installer.Install(ctx, artifact.File{Path: n.RCFile, Data: []byte(content), Mode: 0644, Owner: n.Owner}); err != nil {
		return fmt.Errorf("install rc hook: %w", err)
	}
	logger.Infof("Guard hook added to %s", n.RCFile)
	return nil
}

// GuardScript returns a POSIX sh script running argv in the background when
// no process runs the executable named by fragment. The awk filter follows
// utils.MatchCommandLine.
func GuardScript(fragment string, argv []string, logFile string) string {
	if logFile == "" {
		logFile = "/dev/null"
	}
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = shellQuote(a)
	}
	exe, rest, _ := strings.Cut(strings.Join(strings.Fields(fragment), " "), " ")
	return fmt.Sprintf(`#!/bin/sh
# generated by devhost: start the service if it is not running
if ! ps -e -o args= | awk -v exe=%s -v rest=%s -v interp=%s '
BEGIN { n = split(interp, list, " "); for (k = 1; k <= n; k++) isinterp[list[k]] = 1 }
{
    for (i = 1; i <= 2 && i <= NF; i++) {
        if (i == 2) { b = $1; sub(/.*\//, "", b); if (!(b in isinterp)) break }
        b = $i; sub(/.*\//, "", b)
        if (b != exe) continue
        tail = ""
        for (j = i + 1; j <= NF; j++) tail = tail (j > i + 1 ? " " : "") $j
        if (rest == "" || index(tail, rest) > 0) { found = 1; exit }
    }
}
END { exit !found }'; then
    nohup %s >>%s 2>&1 </dev/null &
fi
`, shellQuote(exe), shellQuote(rest), shellQuote(strings.Join(utils.Interpreters, " ")),
		strings.Join(quoted, " "), shellQuote(logFile))
}

// RCHook is the line sourcing the guard from a login shell.
func RCHook(guardPath string) string {
	return fmt.Sprintf("[ -f %s ] && . %s # devhost guard", shellQuote(guardPath), shellQuote(guardPath))
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// CommandStarter runs a one-shot start command, used as the fallback mechanism
// (e.g. a cluster-control helper for the database).
type CommandStarter struct {
	Argv   []string
	Runner utils.Runner
}

func (c *CommandStarter) Strategy() string { return "command" }

func (c *CommandStarter) Start(ctx context.Context) error {
	logger.Infof("Executing fallback: %s", strings.Join(c.Argv, " "))
	_, err := c.Runner.Run(ctx, c.Argv[0], c.Argv[1:]...)
	return err
}
