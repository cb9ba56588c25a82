package cmd

import (
	"fmt"

	"devhost-keeper/cmd/root"
	"devhost-keeper/internal/utils"

	"github.com/spf13/cobra"
)

func PrintVersions() {
	fmt.Printf("Version %s\n", utils.SoftwareVer)
	fmt.Printf("Build Time: %s\n", utils.BuildTime)
	fmt.Printf("Build Tag: %s\n", utils.BuildTag)
	fmt.Printf("Build Commit ID: %s\n", utils.BuildCommitId)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long:  `The 'version' command shows version details including git commit and build time`,
	// 版本信息不依赖配置文件
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		PrintVersions()
	},
}

func init() {
	root.RootCmd.AddCommand(versionCmd)

	versionCmd.Example = `  devhost version`
}
