//go:build linux

package utils

import (
	"fmt"
	"os/exec"
	"os/user"
	"strconv"
	"syscall"
)

// SetNewPG 设置进程属性，使子进程在父进程退出后继续运行
func SetNewPG(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setsid = true
}

/**
 * Run the command as another user
 * @param {*exec.Cmd} cmd - Command not yet started
 * @param {string} username - Target user, empty or the current user is a no-op
 * @returns {error} Lookup or parse error
 */
func SetCredential(cmd *exec.Cmd, username string) error {
	if username == "" {
		return nil
	}
	u, err := user.Lookup(username)
	if err != nil {
		return fmt.Errorf("lookup user %s: %w", username, err)
	}
	current, err := user.Current()
	if err == nil && current.Uid == u.Uid {
		return nil
	}
	uid, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return fmt.Errorf("parse uid of %s: %w", username, err)
	}
	gid, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return fmt.Errorf("parse gid of %s: %w", username, err)
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Credential = &syscall.Credential{Uid: uint32(uid), Gid: uint32(gid)}
	cmd.Env = append(cmd.Environ(), "HOME="+u.HomeDir, "USER="+u.Username)
	return nil
}
