//go:build !linux

package utils

import (
	"errors"
	"os/exec"
)

// SetNewPG 默认实现，用于不支持的构建目标
func SetNewPG(cmd *exec.Cmd) {
}

// SetCredential is only supported on Linux.
func SetCredential(cmd *exec.Cmd, username string) error {
	if username == "" {
		return nil
	}
	return errors.New("running as another user is only supported on linux")
}
