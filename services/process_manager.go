package services

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"devhost-keeper/internal/logger"
	"devhost-keeper/internal/utils"
)

/**
 * ProcessInstance 以脱离会话方式启动的服务进程
 * @property {string} Title - 显示用的名字
 * @property {string} Match - 命令行片段，用于在进程表中识别该进程
 * @property {string} Command - 执行命令
 * @property {[]string} Args - 命令参数
 * @property {string} RunAs - 以该用户身份运行，空表示当前用户
 * @property {bool} Sudo - 通过"sudo -n"提权启动
 * @property {string} LogFile - 标准输出和标准错误重定向的文件
 */
type ProcessInstance struct {
	Title     string
	Match     string
	Command   string
	Args      []string
	WorkDir   string
	RunAs     string
	Sudo      bool
	LogFile   string
	Pid       int
	StartTime time.Time
	mutex     sync.Mutex
}

/**
 * NewProcessInstance 创建新的进程实例
 * @param {string} title - 进程标题
 * @param {string} match - 进程表中识别进程的命令行片段
 * @param {[]string} argv - 命令及参数
 * @returns {ProcessInstance} 返回创建的进程实例
 */
func NewProcessInstance(title, match string, argv []string) *ProcessInstance {
	return &ProcessInstance{
		Title:   title,
		Match:   match,
		Command: argv[0],
		Args:    argv[1:],
	}
}

// CommandLine returns the command as typed in a shell.
func (pi *ProcessInstance) CommandLine() string {
	return strings.Join(append([]string{pi.Command}, pi.Args...), " ")
}

// Argv returns the command without privilege escalation.
func (pi *ProcessInstance) Argv() []string {
	return append([]string{pi.Command}, pi.Args...)
}

// Fragment is the command line fragment identifying the process.
func (pi *ProcessInstance) Fragment() string {
	return pi.Match
}

// FindRunning returns PIDs of processes matching the instance.
func (pi *ProcessInstance) FindRunning() []int {
	return utils.FindProcesses(pi.Match)
}

// argv prefixes the command with sudo when the run is not root.
func (pi *ProcessInstance) argv() (string, []string) {
	if !pi.Sudo {
		return pi.Command, pi.Args
	}
	args := []string{"-n"}
	if pi.RunAs != "" {
		args = append(args, "-u", pi.RunAs)
	}
	args = append(args, "--", pi.Command)
	return "sudo", append(args, pi.Args...)
}

/**
 * StartProcess 启动进程
 * @param {context.Context} ctx - 仅用于取消启动本身，进程在ctx结束后继续运行
 * @returns {error} 返回错误信息
 * @description
 * - 进程放入新会话，devhost退出后继续运行
 * - 标准输出和标准错误追加到LogFile
 * - root运行时直接切换到RunAs用户，否则经sudo切换
 */
func (pi *ProcessInstance) StartProcess(ctx context.Context) error {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	name, args := pi.argv()
	logger.Infof("Executing command: %s", pi.CommandLine())

	// 不使用CommandContext，进程需要比本次运行活得更久
	cmd := exec.Command(name, args...)
	if pi.WorkDir != "" {
		cmd.Dir = pi.WorkDir
	}
	utils.SetNewPG(cmd)
	if !pi.Sudo && pi.RunAs != "" {
		if err := utils.SetCredential(cmd, pi.RunAs); err != nil {
			return err
		}
	}

	if pi.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(pi.LogFile), 0755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		out, err := os.OpenFile(pi.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer out.Close()
		cmd.Stdout = out
		cmd.Stderr = out
	}

	if err := cmd.Start(); err != nil {
		logger.Errorf("Failed to start process '%s', error: %v", pi.Title, err)
		return err
	}
	pi.Pid = cmd.Process.Pid
	pi.StartTime = time.Now()
	// 释放子进程资源，不等待其退出
	if err := cmd.Process.Release(); err != nil {
		logger.Warnf("Release process '%s' (PID: %d) failed: %v", pi.Title, pi.Pid, err)
	}
	logger.Infof("Process '%s' started (PID: %d)", pi.Title, pi.Pid)
	return nil
}
