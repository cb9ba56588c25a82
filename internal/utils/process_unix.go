//go:build unix

package utils

import (
	"fmt"
	"os"
	"os/exec"
	"path"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"
)

/**
 * Find processes running a service
 * @param {string} fragment - Executable name optionally followed by arguments, e.g. "postgres -D" or "nginx: master"
 * @returns {[]int} PIDs of matching processes, excluding the current process and its parent
 * @description
 * - Uses "ps -e -o pid,args" which works on both Linux and Darwin
 * - The first word of fragment must equal the basename of the executable, or of
 *   the script when the executable is an interpreter (code-server runs under node)
 * - The remaining words must appear in the arguments after it, so "postgres -D"
 *   does not match a psql client and "sudo devhost service start code-server" is not code-server
 */
func FindProcesses(fragment string) []int {
	var pids []int
	if fragment == "" {
		return pids
	}

	output, err := exec.Command("ps", "-e", "-o", "pid=,args=").Output()
	if err != nil {
		return pids
	}
	return matchProcessTable(string(output), fragment, os.Getpid(), os.Getppid())
}

// Interpreters is the set of executables whose first argument names the program.
var Interpreters = []string{"node", "python", "python3", "perl", "ruby", "bash", "sh"}

func matchProcessTable(table, fragment string, skip ...int) []int {
	var pids []int
	want := strings.Fields(fragment)
	if len(want) == 0 {
		return pids
	}
	rest := strings.Join(want[1:], " ")

	for _, line := range strings.Split(table, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil || slices.Contains(skip, pid) {
			continue
		}
		if MatchCommandLine(fields[1:], want[0], rest) {
			pids = append(pids, pid)
		}
	}
	return pids
}

// MatchCommandLine reports whether args runs exe with rest among the following arguments.
func MatchCommandLine(args []string, exe, rest string) bool {
	for i := 0; i < len(args) && i < 2; i++ {
		if i == 1 && !slices.Contains(Interpreters, path.Base(args[0])) {
			break
		}
		if path.Base(args[i]) != exe {
			continue
		}
		if rest == "" || strings.Contains(strings.Join(args[i+1:], " "), rest) {
			return true
		}
	}
	return false
}

/**
 * Kill process gracefully with SIGTERM first, then SIGKILL if needed
 * @param {int} pid - Process ID to kill
 * @returns {error} Returns error if process killing fails, nil on success
 */
func KillProcessGracefully(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process (PID: %d): %v", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err == nil {
		for i := 0; i < 10; i++ {
			if err := process.Signal(syscall.Signal(0)); err != nil {
				return nil
			}
			time.Sleep(100 * time.Millisecond)
		}
	}

	if err := process.Signal(syscall.SIGKILL); err != nil {
		return fmt.Errorf("failed to kill process (PID: %d): %v", pid, err)
	}
	return nil
}

// IsProcessRunning 检查进程是否正在运行
func IsProcessRunning(pid int) (bool, error) {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false, fmt.Errorf("failed to find process with PID %d: %v", pid, err)
	}
	if err := process.Signal(syscall.Signal(0)); err != nil {
		return false, nil
	}
	return true, nil
}
