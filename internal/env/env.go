package env

import (
	"os"
	"path/filepath"
)

// Daemon is set when devhost runs as the long-lived status server.
var Daemon bool = false

// (default: $HOME/.devhost, /var/lib/devhost when running as root)
var DevhostDir string = GetDevhostDir()

/**
 * Get devhost state directory path
 * @returns {string} Returns devhost directory path
 * @description
 * - DEVHOST_HOME overrides the default location
 * - root keeps its state under /var/lib/devhost so that sudo runs and
 *   systemd units agree on one location
 */
func GetDevhostDir() string {
	if dir := os.Getenv("DEVHOST_HOME"); dir != "" {
		return dir
	}
	if os.Geteuid() == 0 {
		return "/var/lib/devhost"
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".devhost")
}
