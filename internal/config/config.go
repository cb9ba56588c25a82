package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"devhost-keeper/internal/env"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

/**
 * Server configuration parameters
 * @property {string} address - Status server listening address (e.g. "127.0.0.1:8899")
 * @property {string} socket - Unix socket the server also listens on, empty disables it
 * @property {string} mode - Gin mode (debug/release/test)
 * @property {time.Duration} monitor_interval - How often the server re-probes services, 0 disables
 */
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	Socket          string        `mapstructure:"socket"`
	Mode            string        `mapstructure:"mode" validate:"omitempty,oneof=debug release test"`
	MonitorInterval time.Duration `mapstructure:"monitor_interval" validate:"gte=0"`
}

/**
 * Logging configuration
 * @property {string} level - Log level (debug/info/warn/error)
 * @property {string} path - Log file path, "console" writes to stderr only
 */
type LogConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Path  string `mapstructure:"path"`
}

/**
 * Metrics configuration
 * @property {string} pushgateway - Pushgateway address, empty disables pushing
 * @property {string} job - Job label used when pushing
 */
type MetricsConfig struct {
	Pushgateway string `mapstructure:"pushgateway" validate:"omitempty,url"`
	Job         string `mapstructure:"job"`
}

/**
 * Host configuration
 * @property {string} address - Host address, empty means auto-detect
 * @property {string} mode - Address family used for detection and listeners: ipv4/ipv6
 * @property {string} user - Target user owning the editor and its files
 * @property {string} profile - full (proxy + editor) or plain (terminal only)
 */
type HostConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode" validate:"oneof=ipv4 ipv6"`
	User    string `mapstructure:"user"`
	Profile string `mapstructure:"profile" validate:"oneof=full plain"`
}

type DirectoryConfig struct {
	State string `mapstructure:"state"`
	Logs  string `mapstructure:"logs"`
	Cache string `mapstructure:"cache"`
}

/**
 * Failure policy
 * @property {string} on_service_failure - continue/abort when a service does not become ready
 */
type PolicyConfig struct {
	OnServiceFailure string `mapstructure:"on_service_failure" validate:"oneof=continue abort"`
}

type PackagesConfig struct {
	Install []string `mapstructure:"install"`
	Skip    bool     `mapstructure:"skip"`
}

var ErrServiceNotFound = errors.New("service not found")

type AppConfig struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Host      HostConfig      `mapstructure:"host"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Policy    PolicyConfig    `mapstructure:"policy"`
	Packages  PackagesConfig  `mapstructure:"packages"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Services  []ServiceConfig `mapstructure:"services" validate:"dive"`
}

var Config AppConfig

/**
 * Get loaded application configuration
 * @returns {*AppConfig} Returns pointer to the process-wide configuration
 */
func Get() *AppConfig {
	return &Config
}

/**
 * Find service configuration by name
 * @param {string} name - Service name
 * @returns {*ServiceConfig} Matching service configuration
 * @returns {error} ErrServiceNotFound if no service has that name
 */
func (c *AppConfig) FindService(name string) (*ServiceConfig, error) {
	for i := range c.Services {
		if c.Services[i].Name == name {
			return &c.Services[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "127.0.0.1:8899")
	v.SetDefault("server.socket", filepath.Join(env.DevhostDir, "run", "devhost.sock"))
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.monitor_interval", 5*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "")
	v.SetDefault("metrics.job", "devhost")
	v.SetDefault("host.mode", "ipv4")
	v.SetDefault("host.profile", "full")
	v.SetDefault("policy.on_service_failure", "continue")
	v.SetDefault("directory.state", env.DevhostDir)
	v.SetDefault("directory.logs", filepath.Join(env.DevhostDir, "logs"))
	v.SetDefault("directory.cache", filepath.Join(env.DevhostDir, "cache"))
	v.SetDefault("packages.install", DefaultPackages())
	setArtifactDefaults(v)
}

/**
 * Load application configuration
 * @param {string} path - Explicit config file, empty searches the default locations
 * @returns {*AppConfig} Decoded and validated configuration
 * @returns {error} Error if the file is unreadable, undecodable or invalid
 * @description
 * - Loads .env from the working directory first so DEVHOST_* variables can come from it
 * - Searches devhost.yaml in ., $HOME/.devhost and /etc/devhost
 * - A missing config file is not an error, defaults are used
 * - Falls back to the built-in service catalog when no services are declared
 */
func Load(path string) (*AppConfig, error) {
	// .env是可选的
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("DEVHOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("devhost")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(env.DevhostDir)
		v.AddConfigPath("/etc/devhost")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if len(cfg.Services) == 0 {
		cfg.Services = DefaultServices()
	}
	for i := range cfg.Services {
		cfg.Services[i].applyDefaults()
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

/**
 * Load configuration into the process-wide Config value
 * @param {string} path - Explicit config file, may be empty
 * @returns {error} Error from Load
 */
func LoadGlobal(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	Config = *cfg
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and cross-field rules.
func Validate(cfg *AppConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	seen := make(map[string]bool, len(cfg.Services))
	for _, svc := range cfg.Services {
		if seen[svc.Name] {
			return fmt.Errorf("invalid config: duplicate service %q", svc.Name)
		}
		seen[svc.Name] = true
		if svc.Mode != ModeSystemdOnly && len(svc.Command) == 0 {
			return fmt.Errorf("invalid config: service %q has no command for hosts without systemd", svc.Name)
		}
	}
	return nil
}

// probe defaults shared by every service
const (
	DefaultMaxProbeAttempts = 30
	DefaultProbeInterval    = time.Second
)
