package store

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"stratgen/internal/history"
)

// 中文说明：
// 生成模拟的历史报告结果，用于本地演示与历史形态分析调试。
// 同一 seed 下输出确定。

var mockSources = []string{"ai", "rule-based", "fallback"}
var mockHorizons = []string{"swing", "medium", "long"}

// MockOutcomes returns perSymbol outcomes per symbol spread over the last 60 days.
func MockOutcomes(symbols []string, perSymbol int, seed int64, now time.Time) []history.Outcome {
	rng := rand.New(rand.NewSource(seed))
	out := make([]history.Outcome, 0, len(symbols)*perSymbol)
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		price := 50 + rng.Float64()*950
		for i := 0; i < perSymbol; i++ {
			rsi := 20 + rng.Float64()*60
			hist := rng.NormFloat64()
			// 动量为正、RSI 中性偏强时收益略高
			drift := 0.0
			if hist > 0 && rsi > 45 && rsi < 70 {
				drift = 1.5
			}
			ret := math.Round((drift+rng.NormFloat64()*4)*100) / 100
			out = append(out, history.Outcome{
				Symbol:        sym,
				Source:        mockSources[rng.Intn(len(mockSources))],
				Horizon:       mockHorizons[rng.Intn(len(mockHorizons))],
				RSI:           math.Round(rsi*10) / 10,
				MACDHistogram: math.Round(hist*1000) / 1000,
				EntryPrice:    math.Round(price*100) / 100,
				ReturnPct:     ret,
				Success:       ret > 0,
				GeneratedAt:   now.Add(-time.Duration(rng.Intn(60*24)) * time.Hour),
			})
			price *= 1 + ret/100
		}
	}
	return out
}

// Seed writes outcomes and returns how many were stored.
func Seed(ctx context.Context, s ReportStore, outcomes []history.Outcome) (int, error) {
	n := 0
	for _, o := range outcomes {
		if _, err := s.RecordOutcome(ctx, o); err != nil {
			return n, fmt.Errorf("seed %s: %w", o.Symbol, err)
		}
		n++
	}
	return n, nil
}
