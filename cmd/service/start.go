package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"devhost-keeper/cmd/root"
	"devhost-keeper/internal/config"
	"devhost-keeper/services"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start [service name]",
	Short: "Start service and wait until it is ready",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return startService(ctx, args[0])
	},
}

/**
 * Start one service the way bootstrap does
 * @param {context.Context} ctx - Context for request cancellation
 * @param {string} serviceName - Name of the service to start
 * @returns {error} Returns error if the service did not become ready
 * @description
 * - Generates missing credentials so one-time init never runs without a password
 * - Artifacts are not placed, run bootstrap for that
 * - Runs the same start, readiness wait, fallback and init sequence as bootstrap
 */
func startService(ctx context.Context, serviceName string) error {
	run, err := root.DetectHost(ctx)
	if err != nil {
		return err
	}
	if err := run.RequirePrivilege(); err != nil {
		return err
	}
	creds, err := services.EnsureCredentials(&config.Config, run)
	if err != nil {
		return err
	}
	specs, err := services.NewServiceManager(&config.Config, run, creds).BuildSpecs([]string{serviceName})
	if err != nil {
		return err
	}

	res := services.NewBootstrapper(services.PolicyContinue).RunService(ctx, specs[0])
	if res.State.Failed() {
		for _, line := range res.LogTail {
			fmt.Println(line)
		}
		return fmt.Errorf("service %s %s after %d probes: %s (%s)", serviceName, res.State, res.Attempts, res.Error, res.Cause)
	}
	fmt.Printf("Service %s is %s after %d probes via %s\n", serviceName, res.State, res.Attempts, res.Strategy)
	return nil
}

func init() {
	serviceCmd.AddCommand(startCmd)
}
