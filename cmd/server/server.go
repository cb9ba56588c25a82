package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"devhost-keeper/cmd/root"
	"devhost-keeper/controllers"
	"devhost-keeper/internal/config"
	"devhost-keeper/internal/logger"
	"devhost-keeper/internal/middleware"
	"devhost-keeper/internal/utils"
	"devhost-keeper/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动状态服务",
	Long: `启动HTTP状态服务: 提供 /healthz、/metrics、最近一次引导报告和按需服务探测,
并按 server.monitor_interval 周期性探测所有服务。状态服务不会启动任何服务。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return startServer(ctx)
	},
}

/**
 * Run the status server until ctx is cancelled
 * @param {context.Context} ctx - Cancelled on SIGINT/SIGTERM
 * @returns {error} Error if the server cannot listen or fails while serving
 * @description
 * - Refuses to start when another server holds the pid file
 * - Listens on server.address and, when set, the server.socket unix socket
 * - Shuts down gracefully within 5 seconds
 */
func startServer(ctx context.Context) error {
	cfg := &config.Config
	if pid := runningServer(); pid != 0 {
		return fmt.Errorf("devhost server is already running (PID %d)", pid)
	}
	if !utils.CheckPortListenable(cfg.Server.Address) {
		return fmt.Errorf("address %s is already in use", cfg.Server.Address)
	}

	run, err := root.DetectHost(ctx)
	if err != nil {
		return err
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.MetricsMiddleware())

	server := services.NewServer(cfg, run, utils.VersionString())
	controllers.NewAPIController(server).RegisterRoutes(router)
	controllers.NewServiceController(server).RegisterRoutes(router)

	addrs := []ListenAddr{{Network: "tcp", Address: cfg.Server.Address}}
	if cfg.Server.Socket != "" {
		addrs = append(addrs, ListenAddr{Network: "unix", Address: cfg.Server.Socket})
	}
	listeners, err := CreateListeners(addrs)
	if len(listeners) == 0 {
		return fmt.Errorf("no listener could be created: %w", err)
	}
	if err := writePidFile(); err != nil {
		logger.Warnf("Write pid file failed: %v", err)
	}
	defer removePidFile()

	go server.StartMonitoring(ctx)

	httpServer := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, len(listeners))
	for _, l := range listeners {
		logger.Infof("Status server listening on %s://%s", l.Addr().Network(), l.Addr().String())
		go func(l net.Listener) {
			errCh <- httpServer.Serve(l)
		}(l)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down status server")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	return nil
}

func init() {
	root.RootCmd.AddCommand(serverCmd)
}
