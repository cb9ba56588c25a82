package host

import (
	"context"
	"fmt"
	"os"
	"os/user"

	"devhost-keeper/internal/config"
)

type Dirs struct {
	State string `json:"state"`
	Logs  string `json:"logs"`
	Cache string `json:"cache"`
}

/**
 * RunConfig is the immutable description of the host for one run
 * @property {string} HostAddress - Address clients reach the host on
 * @property {string} AddressMode - ipv4 or ipv6
 * @property {string} User - Target user owning the editor
 * @property {string} Home - Home directory of the target user
 * @property {OSInfo} OS - Detected operating system
 * @property {Privilege} Privilege - How privileged commands are run
 * @property {InitStrategy} Strategy - Init strategy applied to every service
 * @property {string} Profile - full or plain
 * @property {Dirs} Dirs - State, log and cache directories
 *
 * Built once by Detect and passed by value; its fields double as template data
 * for configuration strings ({{.User}}, {{.Home}}, {{.HostAddress}}).
 */
type RunConfig struct {
	HostAddress string       `json:"hostAddress"`
	AddressMode string       `json:"addressMode"`
	User        string       `json:"user"`
	Home        string       `json:"home"`
	OS          OSInfo       `json:"os"`
	Privilege   Privilege    `json:"privilege"`
	Strategy    InitStrategy `json:"strategy"`
	Profile     string       `json:"profile"`
	Dirs        Dirs         `json:"dirs"`
}

// Sudo reports whether privileged commands need a sudo prefix.
func (r RunConfig) Sudo() bool {
	return r.Privilege == PrivilegeSudo
}

// RequirePrivilege fails unless root or passwordless sudo is available.
func (r RunConfig) RequirePrivilege() error {
	if r.Privilege == PrivilegeUnprivileged {
		return ErrNoPrivilege
	}
	return nil
}

/**
 * DetectOptions controls Detect
 * @property {string} Root - Filesystem root inspected for os-release and systemd
 * @property {AddressSources} Addresses - Address lookups
 * @property {func} Privilege - Privilege detection
 */
type DetectOptions struct {
	Root      string
	Addresses AddressSources
	Privilege func(ctx context.Context) Privilege
}

// DefaultDetectOptions inspects the real host.
func DefaultDetectOptions() DetectOptions {
	return DetectOptions{
		Root:      "/",
		Addresses: SystemAddressSources(),
		Privilege: DetectPrivilege,
	}
}

/**
 * Detect host capabilities once and freeze them into a RunConfig
 * @param {context.Context} ctx - Bounds external lookups
 * @param {*config.AppConfig} cfg - Loaded configuration
 * @param {DetectOptions} opts - Detection sources
 * @returns {RunConfig} Run configuration
 * @returns {error} ErrUnknownOS or a user lookup error, both fatal
 */
func Detect(ctx context.Context, cfg *config.AppConfig, opts DetectOptions) (RunConfig, error) {
	osInfo, err := DetectOS(opts.Root)
	if err != nil {
		return RunConfig{}, err
	}

	username, home, err := targetUser(cfg.Host.User)
	if err != nil {
		return RunConfig{}, err
	}

	return RunConfig{
		HostAddress: DetectAddress(ctx, cfg.Host.Address, cfg.Host.Mode, opts.Addresses),
		AddressMode: cfg.Host.Mode,
		User:        username,
		Home:        home,
		OS:          osInfo,
		Privilege:   opts.Privilege(ctx),
		Strategy:    DetectInitStrategy(opts.Root),
		Profile:     cfg.Host.Profile,
		Dirs: Dirs{
			State: cfg.Directory.State,
			Logs:  cfg.Directory.Logs,
			Cache: cfg.Directory.Cache,
		},
	}, nil
}

// targetUser resolves the configured user, the sudo caller, or the current user.
func targetUser(configured string) (string, string, error) {
	name := configured
	if name == "" {
		name = os.Getenv("SUDO_USER")
	}
	var u *user.User
	var err error
	if name == "" {
		u, err = user.Current()
	} else {
		u, err = user.Lookup(name)
	}
	if err != nil {
		return "", "", fmt.Errorf("resolve target user %q: %w", name, err)
	}
	return u.Username, u.HomeDir, nil
}
