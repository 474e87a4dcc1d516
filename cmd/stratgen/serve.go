package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"stratgen/internal/app"
	"stratgen/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with the periodic metrics summary",
	Long: `Start the HTTP surface:
  POST /api/strategies       generate a strategy from candles
  GET  /api/metrics          performance metrics
  POST /api/metrics/reset    reset metrics
  GET  /healthz              liveness`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "override app.http_addr")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.App.HTTPAddr = serveAddr
	}
	a, err := app.NewApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	logger.Infof("✓ 配置加载成功（环境=%s，监听=%s）", cfg.App.Env, cfg.App.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := a.Run(ctx); err != nil {
		logger.Errorf("服务异常退出: %v", err)
		return err
	}
	logger.Infof("服务已停止")
	return nil
}
