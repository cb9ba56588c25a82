package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
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

var asJSON bool

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "显示最近一次引导的结果",
	Long:  "优先从运行中的状态服务读取最近一次引导报告，状态服务未运行时读取本地缓存。",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := loadReport(context.Background())
		if err != nil {
			return err
		}
		return printReport(report)
	},
}

/**
 * Load the latest bootstrap report
 * @param {context.Context} ctx - Request context
 * @returns {*models.BootstrapReport} Latest report
 * @returns {error} Error when neither the server nor the cache has one
 */
func loadReport(ctx context.Context) (*models.BootstrapReport, error) {
	client := rpc.NewHTTPClient(rpc.DefaultHTTPConfig(config.Config.Server))
	defer client.Close()

	report, err := rpc.FetchReport(ctx, client)
	if err == nil {
		return report, nil
	}
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, services.ErrNoReport
	}
	logger.Debugf("Status server unavailable, reading cached report: %v", err)

	report, err = services.LoadReport(config.Config.Directory.Cache)
	if errors.Is(err, os.ErrNotExist) {
		return nil, services.ErrNoReport
	}
	return report, err
}

func printReport(report *models.BootstrapReport) error {
	if asJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Run %s at %s (%s)\n", report.RunID,
		report.StartTime.Format(time.RFC3339), report.EndTime.Sub(report.StartTime).Round(time.Second))
	if report.FatalError != "" {
		fmt.Printf("Fatal: %s\n", utils.Colorize(report.FatalError, false))
	}
	var rows []table.Row
	for _, res := range report.Services {
		rows = append(rows, table.Row{
			res.Name,
			utils.Colorize(string(res.State), !res.State.Failed()),
			res.Attempts,
			res.InitRan,
			res.Cause,
		})
	}
	utils.PrintTable(os.Stdout, table.Row{"Service", "State", "Probes", "Init", "Cause"}, rows)
	return nil
}

func init() {
	root.RootCmd.AddCommand(reportCmd)
	reportCmd.Flags().BoolVar(&asJSON, "json", false, "以JSON格式输出")
}
