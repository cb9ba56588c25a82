package services

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"devhost-keeper/internal/artifact"
	"devhost-keeper/internal/config"
	"devhost-keeper/internal/host"
	"devhost-keeper/internal/initsys"
	"devhost-keeper/internal/logger"
	"devhost-keeper/internal/models"
	"devhost-keeper/internal/probe"
	"devhost-keeper/internal/utils"

	"github.com/jackc/pgx/v5/pgconn"
)

// TemplateData is what configuration templates are rendered against:
// the run configuration plus the generated credentials.
type TemplateData struct {
	host.RunConfig
	Credentials artifact.Credentials
}

/**
 * ServiceManager turns declared services into runtime specs for one run
 * @property {*config.AppConfig} cfg - Loaded configuration
 * @property {host.RunConfig} run - Frozen host description
 * @property {utils.Runner} runner - Privileged command runner
 */
type ServiceManager struct {
	cfg       *config.AppConfig
	run       host.RunConfig
	runner    utils.Runner
	systemd   *initsys.Systemd
	installer artifact.Installer
	creds     artifact.Credentials
}

/**
 * Create a service manager
 * @param {*config.AppConfig} cfg - Loaded configuration
 * @param {host.RunConfig} run - Detected host capabilities
 * @param {artifact.Credentials} creds - Generated credentials, may be empty
 * @returns {*ServiceManager} Manager using sudo when the run is not root
 */
func NewServiceManager(cfg *config.AppConfig, run host.RunConfig, creds artifact.Credentials) *ServiceManager {
	runner := utils.ExecRunner{Sudo: run.Sudo()}
	return newServiceManager(cfg, run, creds, runner)
}

func newServiceManager(cfg *config.AppConfig, run host.RunConfig, creds artifact.Credentials, runner utils.Runner) *ServiceManager {
	if creds == nil {
		creds = artifact.Credentials{}
	}
	return &ServiceManager{
		cfg:       cfg,
		run:       run,
		runner:    runner,
		systemd:   initsys.NewSystemd(runner),
		installer: artifact.Installer{Runner: runner, Sudo: run.Sudo()},
		creds:     creds,
	}
}

func (sm *ServiceManager) data() TemplateData {
	return TemplateData{RunConfig: sm.run, Credentials: sm.creds}
}

/**
 * Select services for this run
 * @param {[]string} only - Restrict to these names, empty selects all
 * @returns {[]*config.ServiceConfig} Services in declared order
 * @returns {error} config.ErrServiceNotFound for an unknown name in only
 * @description
 * - Disabled services and services outside the run's profile are left out
 * - Services named in only are kept even when outside the profile
 */
func (sm *ServiceManager) Selected(only []string) ([]*config.ServiceConfig, error) {
	want := make(map[string]bool, len(only))
	for _, name := range only {
		if _, err := sm.cfg.FindService(name); err != nil {
			return nil, err
		}
		want[name] = true
	}

	var selected []*config.ServiceConfig
	for i := range sm.cfg.Services {
		svc := &sm.cfg.Services[i]
		switch {
		case len(want) > 0 && !want[svc.Name]:
			continue
		case svc.Disabled:
			logger.Debugf("Service [%s] is disabled", svc.Name)
			continue
		case len(want) == 0 && !svc.InProfile(sm.run.Profile):
			logger.Debugf("Service [%s] is not in profile %s", svc.Name, sm.run.Profile)
			continue
		}
		selected = append(selected, svc)
	}
	return selected, nil
}

// BuildSpecs builds runtime specs for the selected services.
func (sm *ServiceManager) BuildSpecs(only []string) ([]ServiceSpec, error) {
	selected, err := sm.Selected(only)
	if err != nil {
		return nil, err
	}
	specs := make([]ServiceSpec, 0, len(selected))
	for _, svc := range selected {
		spec, err := sm.BuildSpec(svc)
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", svc.Name, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// resolved holds a service's configuration strings after template rendering.
type resolved struct {
	unit    string
	argv    []string
	match   string
	runAs   string
	logFile string
}

func (sm *ServiceManager) resolve(svc *config.ServiceConfig) (resolved, error) {
	var r resolved
	var err error
	data := sm.data()
	if r.unit, err = utils.RenderTemplate(svc.Unit, data); err != nil {
		return r, err
	}
	if r.argv, err = utils.GetCommandLine(svc.Command, data); err != nil {
		return r, err
	}
	if r.match, err = utils.RenderTemplate(svc.Match, data); err != nil {
		return r, err
	}
	if r.runAs, err = utils.RenderTemplate(svc.RunAs, data); err != nil {
		return r, err
	}
	if r.logFile, err = utils.RenderTemplate(svc.LogFile, data); err != nil {
		return r, err
	}
	if r.logFile == "" {
		r.logFile = filepath.Join(sm.run.Dirs.Logs, svc.Name+".log")
	}
	return r, nil
}

/**
 * Build the runtime spec of one service
 * @param {*config.ServiceConfig} svc - Declared service
 * @returns {ServiceSpec} Spec with starter, fallback, probe, init action and diagnostics
 * @returns {error} Template or probe configuration error
 */
func (sm *ServiceManager) BuildSpec(svc *config.ServiceConfig) (ServiceSpec, error) {
	r, err := sm.resolve(svc)
	if err != nil {
		return ServiceSpec{}, err
	}
	checker, err := probe.FromConfig(svc, sm.data())
	if err != nil {
		return ServiceSpec{}, err
	}

	spec := ServiceSpec{
		Name:             svc.Name,
		Starter:          sm.starter(svc, r),
		Probe:            checker,
		MaxProbeAttempts: svc.Probe.MaxAttempts,
		ProbeInterval:    svc.Probe.Interval,
	}
	if len(svc.Fallback) > 0 {
		argv, err := utils.GetCommandLine(svc.Fallback, sm.data())
		if err != nil {
			return ServiceSpec{}, err
		}
		spec.Fallback = &CommandStarter{Argv: argv, Runner: sm.runner}
	}
	if svc.Init != nil {
		if spec.Init, err = sm.initializer(svc); err != nil {
			return ServiceSpec{}, err
		}
	}

	systemd := sm.run.Strategy == host.SystemdAvailable
	spec.LogTail = func(ctx context.Context, n int) []string {
		if systemd {
			out, err := sm.runner.Run(ctx, "journalctl", "-u", r.unit, "-n", strconv.Itoa(n), "--no-pager", "-o", "cat")
			if err != nil {
				return nil
			}
			return strings.Split(strings.TrimRight(string(out), "\n"), "\n")
		}
		lines, _ := utils.TailFile(r.logFile, n)
		return lines
	}
	endpoint := probeEndpoint(svc.Probe, sm.data())
	spec.Diagnose = func(ctx context.Context) string {
		return diagnose(diagnosis{
			running:  len(utils.FindProcesses(r.match)) > 0,
			portOpen: endpoint != "" && utils.CheckPortConnectable(endpoint),
			systemd:  systemd,
			active:   systemd && sm.systemd.IsActive(ctx, r.unit),
		})
	}
	return spec, nil
}

// unavailableStarter reports a service that cannot start under the run's strategy.
type unavailableStarter struct {
	strategy string
	reason   string
}

func (u *unavailableStarter) Strategy() string { return u.strategy }

func (u *unavailableStarter) Start(context.Context) error { return fmt.Errorf("%s", u.reason) }

func (sm *ServiceManager) starter(svc *config.ServiceConfig, r resolved) Starter {
	if sm.run.Strategy == host.SystemdAvailable {
		return &SystemdStarter{Systemd: sm.systemd, Unit: r.unit, Reload: svc.Reload}
	}
	if svc.Mode == config.ModeSystemdOnly || len(r.argv) == 0 {
		return &unavailableStarter{strategy: svc.Mode, reason: "service requires systemd, which is not running on this host"}
	}

	proc := NewProcessInstance("service "+svc.Name, r.match, r.argv)
	proc.LogFile = r.logFile
	proc.Sudo = sm.run.Sudo()
	if r.runAs != "" && r.runAs != currentUserName() {
		proc.RunAs = r.runAs
	}
	if svc.Mode == config.ModeNohup {
		return &NohupStarter{
			DaemonStarter: DaemonStarter{Proc: proc},
			GuardPath:     filepath.Join(sm.run.Home, ".devhost", svc.Name+"-guard.sh"),
			RCFile:        filepath.Join(sm.run.Home, ".bashrc"),
			Owner:         sm.run.User,
			LogFile:       r.logFile,
			Installer:     sm.installer,
		}
	}
	return &DaemonStarter{Proc: proc}
}

func (sm *ServiceManager) initializer(svc *config.ServiceConfig) (Initializer, error) {
	data := sm.data()
	switch svc.Init.Type {
	case "postgres-database":
		dsn, err := utils.RenderTemplate(svc.Init.DSN, data)
		if err != nil {
			return nil, err
		}
		return &PostgresDatabase{
			DSN:      dsn,
			Database: svc.Init.Database,
			Role:     svc.Init.Role,
			Password: sm.creds[artifact.KeyDatabasePassword],
			Runner:   sm.runner,
		}, nil
	case "file-marker":
		argv, err := utils.GetCommandLine(svc.Init.Command, data)
		if err != nil {
			return nil, err
		}
		return &FileMarker{
			Path:   filepath.Join(sm.run.Dirs.State, "markers", svc.Name),
			Argv:   argv,
			Runner: sm.runner,
		}, nil
	}
	return nil, fmt.Errorf("unknown init action %q", svc.Init.Type)
}

/**
 * Probe one service once
 * @param {context.Context} ctx - Bounds the probe
 * @param {string} name - Service name
 * @returns {models.ServiceCheckResult} Probe outcome with process and unit state
 * @returns {error} config.ErrServiceNotFound or a configuration error
 */
func (sm *ServiceManager) Check(ctx context.Context, name string) (models.ServiceCheckResult, error) {
	svc, err := sm.cfg.FindService(name)
	if err != nil {
		return models.ServiceCheckResult{}, err
	}
	r, err := sm.resolve(svc)
	if err != nil {
		return models.ServiceCheckResult{}, err
	}
	checker, err := probe.FromConfig(svc, sm.data())
	if err != nil {
		return models.ServiceCheckResult{}, err
	}

	res := models.ServiceCheckResult{
		Name:      name,
		Probe:     svc.Probe.Type,
		Processes: utils.FindProcesses(r.match),
		Timestamp: time.Now(),
	}
	if sm.run.Strategy == host.SystemdAvailable {
		res.Unit = sm.systemd.Status(ctx, r.unit)
	}
	checkCtx, cancel := context.WithTimeout(ctx, probe.CheckTimeout)
	defer cancel()
	err = checker.Check(checkCtx)
	res.Elapsed = time.Since(res.Timestamp)
	res.Healthy = err == nil
	if err != nil {
		res.Error = err.Error()
	}
	return res, nil
}

// probeEndpoint extracts the host:port a probe talks to, empty when it has none.
func probeEndpoint(cfg config.ProbeConfig, data interface{}) string {
	addr, err := utils.RenderTemplate(cfg.Address, data)
	if err != nil || addr == "" {
		return ""
	}
	switch cfg.Type {
	case "tcp", "grpc", "redis":
		return addr
	case "http":
		u, err := url.Parse(addr)
		if err != nil {
			return ""
		}
		if u.Port() != "" {
			return u.Host
		}
		if u.Scheme == "https" {
			return net.JoinHostPort(u.Hostname(), "443")
		}
		return net.JoinHostPort(u.Hostname(), "80")
	case "postgres":
		pc, err := pgconn.ParseConfig(addr)
		if err != nil || strings.HasPrefix(pc.Host, "/") {
			return ""
		}
		return net.JoinHostPort(pc.Host, strconv.Itoa(int(pc.Port)))
	}
	return ""
}

func currentUserName() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	return u.Username
}
