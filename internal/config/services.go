package config

import (
	"path/filepath"
	"strings"
	"time"
)

// Launch modes used on hosts without systemd.
const (
	ModeDaemon      = "daemon"       // detached process, output redirected to a log file
	ModeNohup       = "nohup"        // detached process plus a login-shell guard script
	ModeSystemdOnly = "systemd-only" // never launched directly
)

/**
 * Service configuration
 * @property {string} name - Service name
 * @property {string} unit - Systemd unit name, defaults to name
 * @property {string} mode - Launch mode without systemd: daemon/nohup/systemd-only
 * @property {[]string} command - Foreground command used without systemd
 * @property {string} match - Command line fragment identifying the running process
 * @property {string} run_as - User the directly launched process runs as
 * @property {bool} reload - Reload the unit instead of starting it when already active
 * @property {[]string} fallback - Alternate start command tried once after a readiness timeout
 * @property {[]string} profiles - Profiles the service belongs to, empty means all
 * @property {bool} disabled - Skip the service entirely
 * @property {string} log_file - Log file for the directly launched process
 * @property {ProbeConfig} probe - Readiness probe
 * @property {InitConfig} init - One-time initialization action
 *
 * String fields are text/template strings rendered against the run configuration,
 * e.g. "{{.Home}}/.config/code-server/config.yaml".
 */
type ServiceConfig struct {
	Name     string      `mapstructure:"name" json:"name" validate:"required,hostname_rfc1123"`
	Unit     string      `mapstructure:"unit" json:"unit,omitempty"`
	Mode     string      `mapstructure:"mode" json:"mode,omitempty" validate:"oneof=daemon nohup systemd-only"`
	Command  []string    `mapstructure:"command" json:"command,omitempty"`
	Match    string      `mapstructure:"match" json:"match,omitempty"`
	RunAs    string      `mapstructure:"run_as" json:"runAs,omitempty"`
	Reload   bool        `mapstructure:"reload" json:"reload,omitempty"`
	Fallback []string    `mapstructure:"fallback" json:"fallback,omitempty"`
	Profiles []string    `mapstructure:"profiles" json:"profiles,omitempty" validate:"dive,oneof=full plain"`
	Disabled bool        `mapstructure:"disabled" json:"disabled,omitempty"`
	LogFile  string      `mapstructure:"log_file" json:"logFile,omitempty"`
	Probe    ProbeConfig `mapstructure:"probe" json:"probe"`
	Init     *InitConfig `mapstructure:"init" json:"init,omitempty"`
}

/**
 * Readiness probe configuration
 * @property {string} type - tcp/http/grpc/postgres/redis/docker/process/command
 * @property {string} address - host:port, URL (http) or DSN (postgres)
 * @property {string} path - HTTP path, default "/"
 * @property {bool} insecure - Skip TLS verification for https probes
 * @property {string} password - Redis password
 * @property {[]string} command - Command whose exit status is the probe result
 * @property {int} max_attempts - Maximum probes before the service is timed out
 * @property {time.Duration} interval - Delay between probes
 */
type ProbeConfig struct {
	Type        string        `mapstructure:"type" json:"type" validate:"required,oneof=tcp http grpc postgres redis docker process command"`
	Address     string        `mapstructure:"address" json:"address,omitempty"`
	Path        string        `mapstructure:"path" json:"path,omitempty"`
	Insecure    bool          `mapstructure:"insecure" json:"insecure,omitempty"`
	Password    string        `mapstructure:"password" json:"-"`
	Command     []string      `mapstructure:"command" json:"command,omitempty"`
	MaxAttempts int           `mapstructure:"max_attempts" json:"maxAttempts" validate:"gte=0"`
	Interval    time.Duration `mapstructure:"interval" json:"interval" validate:"gte=0"`
}

/**
 * One-time initialization action
 * @property {string} type - postgres-database/file-marker
 * @property {string} dsn - Admin connection string (postgres-database)
 * @property {string} database - Database to create, its existence is the marker
 * @property {string} role - Role owning the database, password comes from the credentials store
 * @property {[]string} command - Command run once (file-marker)
 */
type InitConfig struct {
	Type     string   `mapstructure:"type" json:"type" validate:"required,oneof=postgres-database file-marker"`
	DSN      string   `mapstructure:"dsn" json:"-"`
	Database string   `mapstructure:"database" json:"database,omitempty"`
	Role     string   `mapstructure:"role" json:"role,omitempty"`
	Command  []string `mapstructure:"command" json:"command,omitempty"`
}

func (s *ServiceConfig) applyDefaults() {
	if s.Unit == "" {
		s.Unit = s.Name
	}
	if s.Mode == "" {
		s.Mode = ModeDaemon
	}
	if s.Match == "" && len(s.Command) > 0 {
		s.Match = strings.Join(append([]string{filepath.Base(s.Command[0])}, s.Command[1:]...), " ")
	}
	if s.Probe.MaxAttempts == 0 {
		s.Probe.MaxAttempts = DefaultMaxProbeAttempts
	}
	if s.Probe.Interval == 0 {
		s.Probe.Interval = DefaultProbeInterval
	}
}

/**
 * Check whether the service belongs to a profile
 * @param {string} profile - Active profile
 * @returns {bool} True when the service has no profile list or lists the profile
 */
func (s *ServiceConfig) InProfile(profile string) bool {
	if len(s.Profiles) == 0 {
		return true
	}
	for _, p := range s.Profiles {
		if p == profile {
			return true
		}
	}
	return false
}

// DefaultPackages is installed unless packages.install is set.
func DefaultPackages() []string {
	return []string{"ca-certificates", "curl", "git", "postgresql", "redis-server", "nginx", "docker.io"}
}

/**
 * Built-in service catalog, in start order
 * @returns {[]ServiceConfig} database and cache first, docker next, proxy and editor last
 */
func DefaultServices() []ServiceConfig {
	return []ServiceConfig{
		{
			Name:     "postgresql",
			Unit:     "postgresql",
			Mode:     ModeDaemon,
			RunAs:    "postgres",
			Command:  []string{"/usr/lib/postgresql/16/bin/postgres", "-D", "/var/lib/postgresql/16/main", "-c", "config_file=/etc/postgresql/16/main/postgresql.conf"},
			Match:    "postgres -D",
			Fallback: []string{"pg_ctlcluster", "16", "main", "start"},
			Probe: ProbeConfig{
				Type:    "postgres",
				Address: "host=127.0.0.1 port=5432 user=postgres dbname=postgres connect_timeout=2",
			},
			Init: &InitConfig{
				Type:     "postgres-database",
				DSN:      "host=/var/run/postgresql user=postgres dbname=postgres",
				Database: "devhost",
				Role:     "devhost",
			},
		},
		{
			Name:    "redis",
			Unit:    "redis-server",
			Mode:    ModeDaemon,
			Command: []string{"redis-server", "--bind", "127.0.0.1", "--port", "6379"},
			Match:   "redis-server",
			Probe: ProbeConfig{
				Type:    "redis",
				Address: "127.0.0.1:6379",
			},
		},
		{
			Name:    "docker",
			Unit:    "docker",
			Mode:    ModeDaemon,
			Command: []string{"dockerd"},
			Match:   "dockerd",
			Probe: ProbeConfig{
				Type: "docker",
			},
		},
		{
			Name:     "nginx",
			Unit:     "nginx",
			Mode:     ModeDaemon,
			Reload:   true,
			Command:  []string{"nginx", "-g", "daemon off;"},
			Match:    "nginx: master",
			Profiles: []string{"full"},
			Probe: ProbeConfig{
				Type:     "http",
				Address:  "https://127.0.0.1:443",
				Path:     "/",
				Insecure: true,
			},
		},
		{
			Name:     "code-server",
			Unit:     "code-server@{{.User}}",
			Mode:     ModeNohup,
			RunAs:    "{{.User}}",
			Command:  []string{"code-server", "--config", "{{.Home}}/.config/code-server/config.yaml"},
			Match:    "code-server",
			Profiles: []string{"full"},
			Probe: ProbeConfig{
				Type:    "http",
				Address: "http://127.0.0.1:8080",
				Path:    "/healthz",
			},
		},
	}
}
