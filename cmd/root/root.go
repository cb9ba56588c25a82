package root

import (
	"context"
	"fmt"

	"devhost-keeper/internal/config"
	"devhost-keeper/internal/env"
	"devhost-keeper/internal/host"
	"devhost-keeper/internal/logger"

	"github.com/spf13/cobra"
)

var cfgFile string

var RootCmd = &cobra.Command{
	Use:   "devhost",
	Short: "开发主机引导工具",
	Long: `devhost把一台全新的Linux主机准备成开发环境：
安装系统包、生成凭据与配置文件、按顺序启动数据库/缓存/容器/代理/编辑器等服务，
并在有无systemd的主机上都能确认服务就绪。`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadGlobal(cfgFile); err != nil {
			return err
		}
		env.Daemon = cmd.Name() == "server"
		logger.InitLogger(config.Config.Log.Path, config.Config.Log.Level, env.Daemon)
		return nil
	},
}

/**
 * ExitError carries the process exit status of a command
 * @property {int} Code - Exit status
 * @property {error} Err - Underlying error, may be nil when only the status matters
 */
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// DetectHost builds the run configuration from the loaded config and the real host.
func DetectHost(ctx context.Context) (host.RunConfig, error) {
	return host.Detect(ctx, &config.Config, host.DefaultDetectOptions())
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径(默认查找 ./devhost.yaml, $HOME/.devhost, /etc/devhost)")
}
