package server

import (
	"fmt"

	"devhost-keeper/internal/utils"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "停止状态服务",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pid := runningServer()
		if pid == 0 {
			fmt.Println("devhost server is not running")
			return nil
		}
		if err := utils.KillProcessGracefully(pid); err != nil {
			return err
		}
		removePidFile()
		fmt.Printf("devhost server (PID %d) stopped\n", pid)
		return nil
	},
}

func init() {
	serverCmd.AddCommand(stopCmd)
}
