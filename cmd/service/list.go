package service

import (
	"fmt"
	"os"
	"strings"

	"devhost-keeper/internal/config"
	"devhost-keeper/internal/utils"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "列出声明的服务",
	Long:  "按启动顺序列出配置中声明的服务, 包括启动方式、探测方式和所属profile。",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		listServices(config.Config.Services)
	},
}

func listServices(list []config.ServiceConfig) {
	if len(list) == 0 {
		fmt.Println("No services declared")
		return
	}
	var rows []table.Row
	for _, svc := range list {
		profiles := "all"
		if len(svc.Profiles) > 0 {
			profiles = strings.Join(svc.Profiles, ",")
		}
		probe := svc.Probe.Type
		if svc.Probe.Address != "" {
			probe += " " + svc.Probe.Address
		}
		action := "-"
		if svc.Init != nil {
			action = svc.Init.Type
		}
		name := svc.Name
		if svc.Disabled {
			name += " (disabled)"
		}
		rows = append(rows, table.Row{name, svc.Unit, svc.Mode, probe, action, profiles})
	}
	utils.PrintTable(os.Stdout, table.Row{"Name", "Unit", "Mode", "Probe", "Init", "Profiles"}, rows)
}

func init() {
	serviceCmd.AddCommand(listCmd)
}
