package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"devhost-keeper/cmd/root"
	"devhost-keeper/internal/host"
	"devhost-keeper/internal/utils"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var asJSON bool

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "显示主机探测结果",
	Long:  "探测操作系统、初始化系统、权限、主机地址和目标用户，不做任何修改。",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		run, err := root.DetectHost(context.Background())
		if err != nil {
			return err
		}
		return printRunConfig(run)
	},
}

func printRunConfig(run host.RunConfig) error {
	if asJSON {
		data, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	rows := []table.Row{
		{"OS", fmt.Sprintf("%s %s (%s)", run.OS.ID, run.OS.VersionID, run.OS.Pretty)},
		{"Init strategy", run.Strategy},
		{"Privilege", utils.Colorize(string(run.Privilege), run.Privilege != host.PrivilegeUnprivileged)},
		{"Host address", run.HostAddress},
		{"Address mode", run.AddressMode},
		{"User", run.User},
		{"Home", run.Home},
		{"Profile", run.Profile},
		{"State dir", run.Dirs.State},
		{"Log dir", run.Dirs.Logs},
		{"Cache dir", run.Dirs.Cache},
	}
	utils.PrintTable(os.Stdout, table.Row{"Item", "Value"}, rows)
	return nil
}

func init() {
	root.RootCmd.AddCommand(detectCmd)
	detectCmd.Flags().BoolVar(&asJSON, "json", false, "以JSON格式输出")
}
