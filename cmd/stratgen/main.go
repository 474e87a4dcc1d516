package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"stratgen/internal/config"
	"stratgen/internal/logger"
)

var (
	cfgPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "stratgen",
	Short: "Three-phase investment strategy generator",
	Long: `stratgen turns a candle window and its indicators into a three-phase investment plan.

A generative model is tried first when a credential is configured, then the
indicator rule set, then a fixed conservative template; a plan is always produced.`,
	SilenceUsage: true,
}

func init() {
	defPath := os.Getenv("STRATGEN_CONFIG")
	if defPath == "" {
		defPath = "configs/config.toml"
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", defPath, "config file (TOML)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "override app.log_level (debug, info, warn, error)")
}

// loadConfig 读取配置并应用命令行覆盖。
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}
	if lvl := strings.TrimSpace(logLevel); lvl != "" {
		cfg.App.LogLevel = lvl
	}
	return cfg, nil
}

func main() {
	defer func() { _ = logger.Sync() }()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
