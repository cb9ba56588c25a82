package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"devhost-keeper/cmd/root"
	"devhost-keeper/internal/config"
	"devhost-keeper/internal/logger"
	"devhost-keeper/internal/models"
	"devhost-keeper/internal/utils"
	"devhost-keeper/services"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	only         []string
	skipPackages bool
	profile      string
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "引导开发主机",
	Long: `按顺序执行: 主机探测、权限检查、系统包安装、凭据生成、配置文件落盘、服务启动与就绪确认。
退出码: 0 成功(含部分服务失败), 1 前置步骤失败, 2 abort策略下服务失败。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if profile != "" && profile != "full" && profile != "plain" {
			return fmt.Errorf("unknown profile %q (full/plain)", profile)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runBootstrap(ctx)
	},
}

/**
 * Run the bootstrap and print its summary
 * @param {context.Context} ctx - Cancelled on SIGINT/SIGTERM
 * @returns {error} ExitError carrying the run's exit status, nil on success
 */
func runBootstrap(ctx context.Context) error {
	report, err := services.RunBootstrap(ctx, &config.Config, services.BootstrapOptions{
		Only:         only,
		SkipPackages: skipPackages,
		Profile:      profile,
	})
	printSummary(report)

	code := services.ExitCode(report, err)
	if code == services.ExitOK {
		return nil
	}
	if err != nil {
		logger.Errorf("Bootstrap %s failed: %v", report.RunID, err)
	}
	return &root.ExitError{Code: code, Err: err}
}

func printSummary(report *models.BootstrapReport) {
	if len(report.Packages) > 0 {
		fmt.Printf("Installed packages: %s\n", strings.Join(report.Packages, " "))
	}
	for _, path := range report.Artifacts {
		fmt.Printf("Updated: %s\n", path)
	}
	if len(report.Services) == 0 {
		return
	}

	var rows []table.Row
	for _, res := range report.Services {
		detail := res.Error
		if res.Cause != "" {
			detail = res.Cause + ": " + res.Error
		}
		fallback := ""
		if res.FallbackUsed {
			fallback = "yes"
		}
		rows = append(rows, table.Row{
			res.Name,
			utils.Colorize(string(res.State), !res.State.Failed()),
			res.Strategy,
			res.Attempts,
			fallback,
			res.Duration.Round(100 * time.Millisecond),
			detail,
		})
	}
	utils.PrintTable(os.Stdout, table.Row{"Service", "State", "Strategy", "Probes", "Fallback", "Time", "Detail"}, rows)
	fmt.Printf("Run %s: %d ready, %d failed", report.RunID, report.Succeeded, report.Failed)
	if report.Aborted {
		fmt.Print(", aborted")
	}
	fmt.Println()

	for _, res := range report.Services {
		if len(res.LogTail) == 0 {
			continue
		}
		fmt.Printf("\n--- %s: last %d log lines ---\n", res.Name, len(res.LogTail))
		for _, line := range res.LogTail {
			fmt.Println(line)
		}
	}
}

const bootstrapExample = `  # 引导整台主机
  sudo devhost bootstrap

  # 仅启动数据库与缓存, 跳过系统包安装
  sudo devhost bootstrap --only postgresql,redis --skip-packages

  # 终端开发环境(不含代理与编辑器)
  sudo devhost bootstrap --profile plain`

func init() {
	root.RootCmd.AddCommand(bootstrapCmd)
	bootstrapCmd.Flags().SortFlags = false
	bootstrapCmd.Flags().StringSliceVar(&only, "only", nil, "只处理这些服务(逗号分隔)")
	bootstrapCmd.Flags().BoolVar(&skipPackages, "skip-packages", false, "跳过系统包安装")
	bootstrapCmd.Flags().StringVar(&profile, "profile", "", "覆盖host.profile (full/plain)")
	bootstrapCmd.Example = bootstrapExample
}
