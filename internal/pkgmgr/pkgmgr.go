// Package pkgmgr ensures OS packages are installed. Every failure here is fatal
// for the run; there is no partial recovery at this layer.
package pkgmgr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"devhost-keeper/internal/host"
	"devhost-keeper/internal/logger"
	"devhost-keeper/internal/utils"
)

var ErrUnsupported = errors.New("unsupported package manager")

/**
 * Manager describes one OS package manager
 * @property {string} Name - Display name
 * @property {[]string} Query - Command checking one installed package, the package is appended
 * @property {[]string} Refresh - Command refreshing package indexes, may be empty
 * @property {[]string} Install - Non-interactive install command, packages are appended
 */
type Manager struct {
	Name    string
	Query   []string
	Refresh []string
	Install []string
	runner  utils.Runner
}

var (
	apt = Manager{
		Name:    "apt-get",
		Query:   []string{"dpkg-query", "-W", "-f=${Status}"},
		Refresh: []string{"apt-get", "update", "-q"},
		Install: []string{"env", "DEBIAN_FRONTEND=noninteractive", "apt-get", "install", "-y", "-q", "--no-install-recommends"},
	}
	dnf = Manager{
		Name:    "dnf",
		Query:   []string{"rpm", "-q"},
		Install: []string{"dnf", "install", "-y", "-q"},
	}
	apk = Manager{
		Name:    "apk",
		Query:   []string{"apk", "info", "-e"},
		Refresh: []string{"apk", "update", "-q"},
		Install: []string{"apk", "add", "-q", "--no-progress"},
	}
	pacman = Manager{
		Name:    "pacman",
		Query:   []string{"pacman", "-Q"},
		Refresh: []string{"pacman", "-Sy", "--noconfirm"},
		Install: []string{"pacman", "-S", "--noconfirm", "--needed"},
	}
)

/**
 * Select the package manager for an OS
 * @param {host.OSInfo} osInfo - Detected OS
 * @param {utils.Runner} runner - Runner for privileged commands
 * @returns {*Manager} The matching manager
 * @returns {error} ErrUnsupported for unknown distributions
 */
func ForOS(osInfo host.OSInfo, runner utils.Runner) (*Manager, error) {
	var m Manager
	switch {
	case osInfo.Family("debian") || osInfo.Family("ubuntu"):
		m = apt
	case osInfo.Family("fedora") || osInfo.Family("rhel") || osInfo.Family("centos"):
		m = dnf
	case osInfo.Family("alpine"):
		m = apk
	case osInfo.Family("arch"):
		m = pacman
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, osInfo.ID)
	}
	m.runner = runner
	return &m, nil
}

// Installed reports whether a package is present.
func (m *Manager) Installed(ctx context.Context, pkg string) bool {
	args := append(append([]string{}, m.Query[1:]...), pkg)
	out, err := m.runner.Run(ctx, m.Query[0], args...)
	if err != nil {
		return false
	}
	// dpkg-query对已删除但保留配置的包也会返回0
	if m.Name == apt.Name {
		return strings.Contains(string(out), "install ok installed")
	}
	return true
}

/**
 * Ensure packages are installed
 * @param {context.Context} ctx - Cancels package operations
 * @param {[]string} pkgs - Package names
 * @returns {[]string} Packages that were missing and got installed
 * @returns {error} Refresh or install failure
 * @description
 * - Queries each package first so already provisioned hosts run no install at all
 * - Installs every missing package with one non-interactive command
 */
func (m *Manager) EnsureInstalled(ctx context.Context, pkgs []string) ([]string, error) {
	var missing []string
	for _, pkg := range pkgs {
		if !m.Installed(ctx, pkg) {
			missing = append(missing, pkg)
		}
	}
	if len(missing) == 0 {
		logger.Infof("All %d packages already installed", len(pkgs))
		return nil, nil
	}

	logger.Infof("Installing packages with %s: %s", m.Name, strings.Join(missing, " "))
	if len(m.Refresh) > 0 {
		if _, err := m.runner.Run(ctx, m.Refresh[0], m.Refresh[1:]...); err != nil {
			return nil, fmt.Errorf("refresh package index: %w", err)
		}
	}
	args := append(append([]string{}, m.Install[1:]...), missing...)
	if _, err := m.runner.Run(ctx, m.Install[0], args...); err != nil {
		return nil, fmt.Errorf("install %s: %w", strings.Join(missing, " "), err)
	}
	return missing, nil
}
