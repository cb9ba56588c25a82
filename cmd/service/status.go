package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"devhost-keeper/cmd/root"
	"devhost-keeper/internal/config"
	"devhost-keeper/internal/logger"
	"devhost-keeper/internal/models"
	"devhost-keeper/internal/rpc"
	"devhost-keeper/internal/utils"
	"devhost-keeper/services"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [服务名称]",
	Short: "查看服务状态",
	Long:  "对每个服务执行一次就绪探测并显示匹配的进程和systemd单元状态。如果指定了服务名称，则只探测该服务，并优先通过正在运行的状态服务器探测。",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showServiceStatus(context.Background(), args)
	},
}

/**
 * Show service status information
 * @param {context.Context} ctx - Context for request cancellation and timeout
 * @param {[]string} args - Command line arguments, optionally containing service name
 * @returns {error} Returns error if the host cannot be detected or the service is unknown
 */
func showServiceStatus(ctx context.Context, args []string) error {
	if len(args) == 1 {
		res, err := checkViaServer(ctx, args[0])
		if err == nil {
			printStatus([]models.ServiceCheckResult{res})
			return nil
		}
		if errors.Is(err, rpc.ErrNotFound) {
			return fmt.Errorf("%w: %s", config.ErrServiceNotFound, args[0])
		}
		logger.Debugf("Status server unavailable, probing locally: %v", err)
	}

	run, err := root.DetectHost(ctx)
	if err != nil {
		return err
	}
	creds, err := services.LoadCredentials(&config.Config, run)
	if err != nil {
		return err
	}
	manager := services.NewServiceManager(&config.Config, run, creds)

	selected, err := manager.Selected(args)
	if err != nil {
		return err
	}
	var results []models.ServiceCheckResult
	for _, svc := range selected {
		res, err := manager.Check(ctx, svc.Name)
		if err != nil {
			return fmt.Errorf("check %s: %w", svc.Name, err)
		}
		results = append(results, res)
	}
	printStatus(results)
	return nil
}

// checkViaServer asks a running status server to probe one service.
func checkViaServer(ctx context.Context, name string) (models.ServiceCheckResult, error) {
	client := rpc.NewHTTPClient(rpc.DefaultHTTPConfig(config.Config.Server))
	defer client.Close()
	return rpc.CheckService(ctx, client, name)
}

func printStatus(results []models.ServiceCheckResult) {
	if len(results) == 0 {
		fmt.Println("没有找到服务")
		return
	}
	var rows []table.Row
	for _, res := range results {
		status := "运行中"
		if !res.Healthy {
			status = "未就绪"
		}
		pids := make([]string, 0, len(res.Processes))
		for _, pid := range res.Processes {
			pids = append(pids, strconv.Itoa(pid))
		}
		unit := res.Unit
		if unit == "" {
			unit = "-"
		}
		rows = append(rows, table.Row{
			res.Name,
			utils.Colorize(status, res.Healthy),
			res.Probe,
			unit,
			strings.Join(pids, ","),
			res.Elapsed.Round(time.Millisecond),
			res.Error,
		})
	}
	utils.PrintTable(os.Stdout, table.Row{"名称", "状态", "探测", "单元", "进程", "耗时", "错误"}, rows)
}

func init() {
	serviceCmd.AddCommand(statusCmd)
}
