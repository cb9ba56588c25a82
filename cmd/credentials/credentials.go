package credentials

import (
	"context"
	"fmt"
	"os"

	"devhost-keeper/cmd/root"
	"devhost-keeper/internal/artifact"
	"devhost-keeper/internal/config"
	"devhost-keeper/internal/utils"
	"devhost-keeper/services"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	show     bool
	generate bool
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "查看生成的凭据",
	Long: `列出凭据文件中的条目。默认隐藏密码, 使用 --show 显示。
--generate 补齐缺失的条目, 已有的密码不会被改动。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showCredentials(context.Background())
	},
}

func showCredentials(ctx context.Context) error {
	run, err := root.DetectHost(ctx)
	if err != nil {
		return err
	}
	path, err := services.CredentialsPath(&config.Config, run)
	if err != nil {
		return err
	}

	var creds artifact.Credentials
	if generate {
		var created bool
		creds, created, err = artifact.EnsureCredentials(path, artifact.DefaultCredentialKeys)
		if err == nil && created {
			fmt.Printf("Generated missing credentials in %s\n", path)
		}
	} else {
		creds, err = artifact.LoadCredentials(path)
	}
	if err != nil {
		return err
	}
	if len(creds) == 0 {
		fmt.Printf("No credentials in %s, run 'devhost bootstrap' first\n", path)
		return nil
	}

	var rows []table.Row
	for _, key := range creds.Keys() {
		value := "********"
		if show {
			value = creds[key]
		}
		rows = append(rows, table.Row{key, value})
	}
	fmt.Println(path)
	utils.PrintTable(os.Stdout, table.Row{"Key", "Value"}, rows)
	return nil
}

func init() {
	root.RootCmd.AddCommand(credentialsCmd)
	credentialsCmd.Flags().BoolVar(&show, "show", false, "显示密码明文")
	credentialsCmd.Flags().BoolVar(&generate, "generate", false, "补齐缺失的凭据")
}
