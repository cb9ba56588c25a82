package service

import (
	"devhost-keeper/cmd/root"

	"github.com/spf13/cobra"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Service operations (list/start/status)",
	Long:  `Service operations (list/start/status)`,
}

const serviceExample = `  # start one service and wait until it is ready
  sudo devhost service start postgresql

  # probe every declared service once
  devhost service status`

func init() {
	root.RootCmd.AddCommand(serviceCmd)

	serviceCmd.Example = serviceExample
}
