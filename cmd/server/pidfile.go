package server

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"devhost-keeper/internal/config"
	"devhost-keeper/internal/utils"
)

func pidFilePath() string {
	return filepath.Join(config.Config.Directory.State, "run", "devhost.pid")
}

// runningServer returns the PID of a live server recorded in the pid file, 0 otherwise.
func runningServer() int {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 || pid == os.Getpid() {
		return 0
	}
	if running, err := utils.IsProcessRunning(pid); err != nil || !running {
		return 0
	}
	return pid
}

func writePidFile() error {
	path := pidFilePath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644)
}

func removePidFile() {
	os.Remove(pidFilePath())
}
