package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"stratgen/internal/app"
	"stratgen/internal/market"
	"stratgen/internal/pkg/format"
	"stratgen/internal/report"
	"stratgen/internal/strategy"
)

var (
	genInput   string
	genSymbol  string
	genHorizon string
	genTable   bool
	genTimeout time.Duration
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one strategy from a candle file",
	Long: `Read a request (or a bare candle array) from --input and print the report.

The input is either {"symbol":{...},"horizon":"swing","candles":[...]} or a JSON
array of candles together with --symbol.`,
	Example: `  stratgen generate --input candles.json --symbol BTCUSDT --horizon medium
  cat request.json | stratgen generate --input - --table`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVarP(&genInput, "input", "i", "", "request or candle JSON file, - for stdin")
	generateCmd.Flags().StringVarP(&genSymbol, "symbol", "s", "", "symbol code (overrides the file)")
	generateCmd.Flags().StringVar(&genHorizon, "horizon", "", "swing | medium | long (overrides the file)")
	generateCmd.Flags().BoolVar(&genTable, "table", false, "print a table instead of JSON")
	generateCmd.Flags().DurationVar(&genTimeout, "timeout", 2*time.Minute, "overall deadline")
	_ = generateCmd.MarkFlagRequired("input")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	raw, err := readInput(cmd.InOrStdin(), genInput)
	if err != nil {
		return err
	}
	req, err := decodeRequest(raw)
	if err != nil {
		return err
	}
	if s := strings.TrimSpace(genSymbol); s != "" {
		req.Symbol.Code = s
	}
	if h := strings.TrimSpace(genHorizon); h != "" {
		req.Horizon = h
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := app.NewApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), genTimeout)
	defer cancel()
	rep, err := a.Service().Generate(ctx, req)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if genTable {
		_, err = fmt.Fprintln(out, renderReport(rep))
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取输入失败: %w", err)
	}
	return buf, nil
}

// decodeRequest accepts a full request object or a bare candle array.
func decodeRequest(raw []byte) (report.ContextRequest, error) {
	raw = bytes.TrimSpace(raw)
	var req report.ContextRequest
	if len(raw) > 0 && raw[0] == '[' {
		var candles market.Candles
		if err := json.Unmarshal(raw, &candles); err != nil {
			return req, fmt.Errorf("解析 K 线数组失败: %w", err)
		}
		req.Candles = candles
		return req, nil
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, fmt.Errorf("解析请求失败: %w", err)
	}
	return req, nil
}

func renderReport(rep report.Report) string {
	res := rep.Result
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("%s · %s · %s volatility", rep.Symbol, rep.Horizon, rep.Volatility))
	t.AppendHeader(table.Row{"section", "detail"})
	t.AppendRow(table.Row{"levels", fmt.Sprintf("entry %s  t1 %s  t2 %s  stop %s",
		format.Float(rep.EntryPrice, 4), format.Float(rep.TargetPrice1, 4), format.Float(rep.TargetPrice2, 4), format.Float(rep.StopLossPrice, 4))})
	t.AppendRow(table.Row{"source", fmt.Sprintf("%s (confidence %.1f, analysis %.2f, %s)",
		res.Source, res.Confidence, res.Metadata.AnalysisConfidence, format.Duration(res.Metadata.GenerationTimeMs))})
	if res.Strategy != nil {
		appendStrategy(t, *res.Strategy)
	}
	if rep.History != nil {
		t.AppendRow(table.Row{"history", rep.History.Insight})
	}
	for _, e := range res.Errors {
		t.AppendRow(table.Row{"error", e})
	}
	return t.Render()
}

func appendStrategy(t table.Writer, s strategy.InvestmentStrategy) {
	p1 := s.Phase1
	t.AppendSeparator()
	t.AppendRow(table.Row{"phase1", fmt.Sprintf("enter %s%%: %s", format.Float(p1.EntryRatio, 0), p1.EntryTiming)})
	t.AppendRow(table.Row{"stop", fmt.Sprintf("%s (%s%%) %s", format.Float(p1.StopLoss.Price, 4), format.Float(p1.StopLoss.Percent, 2), p1.StopLoss.Timing)})
	t.AppendSeparator()
	for _, sc := range []struct {
		name string
		s    strategy.Scenario
	}{{"bullish", s.Phase2.Bullish}, {"sideways", s.Phase2.Sideways}, {"bearish", s.Phase2.Bearish}} {
		detail := fmt.Sprintf("%s -> %s", sc.s.Condition, sc.s.Action)
		switch {
		case sc.s.ActionRatio != nil:
			detail += fmt.Sprintf(" (+%s%%)", format.Float(*sc.s.ActionRatio, 0))
		case sc.s.ExitRatio != nil:
			detail += fmt.Sprintf(" (-%s%%)", format.Float(*sc.s.ExitRatio, 0))
		}
		t.AppendRow(table.Row{sc.name, detail})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"target1", fmt.Sprintf("%s: %s %s%%", s.Phase3.Target1.Price, s.Phase3.Target1.Action, format.Float(s.Phase3.Target1.ExitRatio, 0))})
	t.AppendRow(table.Row{"target2", fmt.Sprintf("%s: %s %s%%", s.Phase3.Target2.Price, s.Phase3.Target2.Action, format.Float(s.Phase3.Target2.ExitRatio, 0))})
}
