package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stratgen/internal/app"
	"stratgen/internal/store"
)

var (
	seedSymbols []string
	seedCount   int
	seedValue   int64
	seedDB      string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the report history database with mock outcomes",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringSliceVar(&seedSymbols, "symbols", []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}, "symbols to seed")
	seedCmd.Flags().IntVarP(&seedCount, "count", "n", 40, "outcomes per symbol")
	seedCmd.Flags().Int64Var(&seedValue, "seed", 42, "random seed")
	seedCmd.Flags().StringVar(&seedDB, "db", "", "override app.db_path")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if seedDB != "" {
		cfg.App.DBPath = seedDB
	}
	if strings.TrimSpace(cfg.App.DBPath) == "" {
		return fmt.Errorf("seed 需要 sqlite 路径：设置 app.db_path 或 --db")
	}
	if seedCount <= 0 {
		return fmt.Errorf("--count 必须大于 0")
	}
	a, err := app.NewApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	outcomes := store.MockOutcomes(seedSymbols, seedCount, seedValue, time.Now())
	n, err := store.Seed(cmd.Context(), a.Store(), outcomes)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "✓ %d mock outcomes seeded into %s\n", n, cfg.App.DBPath)
	return err
}
