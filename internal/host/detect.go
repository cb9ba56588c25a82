package host

import (
	"bufio"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// InitStrategy is the mechanism used to supervise long-running services.
type InitStrategy string

const (
	SystemdAvailable InitStrategy = "systemd"
	NoSystemd        InitStrategy = "no-systemd"
)

// Privilege is how devhost can perform privileged operations.
type Privilege string

const (
	PrivilegeRoot         Privilege = "root"
	PrivilegeSudo         Privilege = "sudo"
	PrivilegeUnprivileged Privilege = "unprivileged"
)

var (
	ErrUnknownOS   = errors.New("cannot detect operating system")
	ErrNoPrivilege = errors.New("root or passwordless sudo is required")
)

/**
 * OS release information
 * @property {string} id - ID from os-release (e.g. "ubuntu")
 * @property {[]string} idLike - ID_LIKE entries (e.g. ["debian"])
 * @property {string} versionID - VERSION_ID (e.g. "24.04")
 */
type OSInfo struct {
	ID        string   `json:"id"`
	IDLike    []string `json:"idLike,omitempty"`
	VersionID string   `json:"versionId,omitempty"`
	Pretty    string   `json:"prettyName,omitempty"`
}

// Family reports whether the OS is id or declares itself like id.
func (o OSInfo) Family(id string) bool {
	if o.ID == id {
		return true
	}
	for _, like := range o.IDLike {
		if like == id {
			return true
		}
	}
	return false
}

/**
 * Detect the init strategy of the host
 * @param {string} root - Filesystem root, "/" on a real host
 * @returns {InitStrategy} SystemdAvailable when systemd is PID 1, NoSystemd otherwise
 * @description
 * - /run/systemd/system exists only when systemd booted the host
 * - /proc/1/comm is checked as well, containers often ship the directory without running systemd
 */
func DetectInitStrategy(root string) InitStrategy {
	if _, err := os.Stat(filepath.Join(root, "run", "systemd", "system")); err != nil {
		return NoSystemd
	}
	comm, err := os.ReadFile(filepath.Join(root, "proc", "1", "comm"))
	if err != nil {
		return NoSystemd
	}
	if strings.TrimSpace(string(comm)) != "systemd" {
		return NoSystemd
	}
	return SystemdAvailable
}

/**
 * Detect the operating system from os-release
 * @param {string} root - Filesystem root
 * @returns {OSInfo} Parsed release information
 * @returns {error} ErrUnknownOS when no os-release file yields an ID
 */
func DetectOS(root string) (OSInfo, error) {
	for _, name := range []string{"etc/os-release", "usr/lib/os-release"} {
		info, err := parseOSRelease(filepath.Join(root, name))
		if err == nil && info.ID != "" {
			return info, nil
		}
	}
	return OSInfo{}, ErrUnknownOS
}

func parseOSRelease(path string) (OSInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return OSInfo{}, err
	}
	defer f.Close()

	var info OSInfo
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok || strings.HasPrefix(key, "#") {
			continue
		}
		value = strings.Trim(value, `"'`)
		switch key {
		case "ID":
			info.ID = strings.ToLower(value)
		case "ID_LIKE":
			info.IDLike = strings.Fields(strings.ToLower(value))
		case "VERSION_ID":
			info.VersionID = value
		case "PRETTY_NAME":
			info.Pretty = value
		}
	}
	return info, scanner.Err()
}

/**
 * Detect how privileged operations can be performed
 * @param {context.Context} ctx - Bounds the sudo check
 * @returns {Privilege} Root, Sudo (passwordless) or Unprivileged
 */
func DetectPrivilege(ctx context.Context) Privilege {
	if os.Geteuid() == 0 {
		return PrivilegeRoot
	}
	if _, err := exec.LookPath("sudo"); err != nil {
		return PrivilegeUnprivileged
	}
	if err := exec.CommandContext(ctx, "sudo", "-n", "true").Run(); err != nil {
		return PrivilegeUnprivileged
	}
	return PrivilegeSudo
}
