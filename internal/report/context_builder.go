package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"stratgen/internal/decision"
	"stratgen/internal/history"
	"stratgen/internal/indicator"
	"stratgen/internal/logger"
	"stratgen/internal/market"
	"stratgen/internal/scoring"
)

// 中文说明：
// ContextBuilder 把 "标的 + K 线窗口" 组装成生成上下文：
// 指标 -> 波动率 -> 目标价/止损 -> 历史相似形态。
// 历史查询失败只降级为无历史，不阻断生成。

// ErrInvalidRequest marks caller input problems (bad horizon, too few candles, bad prices).
var ErrInvalidRequest = errors.New("invalid request")

// ContextRequest is what HTTP and CLI callers provide.
type ContextRequest struct {
	Symbol  market.Symbol  `json:"symbol"`
	Horizon string         `json:"horizon"`
	Candles market.Candles `json:"candles"`
	// Indicators 可选；为空时由 K 线计算。
	Indicators *market.IndicatorSnapshot `json:"indicators,omitempty"`
	// Volatility 可选；为空时按布林带宽度分级。
	Volatility string `json:"volatility,omitempty"`
}

type ContextBuilder struct {
	targets  *scoring.TargetPriceCalculator
	analyzer *history.Analyzer
	settings indicator.Settings
	// RecentBars 保留进上下文的最近 K 线数量。
	RecentBars int
}

func NewContextBuilder(targets *scoring.TargetPriceCalculator, analyzer *history.Analyzer) *ContextBuilder {
	return &ContextBuilder{targets: targets, analyzer: analyzer, RecentBars: 60}
}

// Build validates the request and assembles a decision.Context.
func (b *ContextBuilder) Build(ctx context.Context, req ContextRequest) (decision.Context, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Symbol.Code))
	if code == "" {
		return decision.Context{}, fmt.Errorf("%w: symbol code is required", ErrInvalidRequest)
	}
	sym := req.Symbol
	sym.Code = code

	horizon := market.HorizonSwing
	if strings.TrimSpace(req.Horizon) != "" {
		h, err := market.ParseHorizon(req.Horizon)
		if err != nil {
			return decision.Context{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		horizon = h
	}

	latest, ok := req.Candles.Last()
	if !ok {
		return decision.Context{}, fmt.Errorf("%w: candles are required", ErrInvalidRequest)
	}
	if !(latest.Close > 0) {
		return decision.Context{}, fmt.Errorf("%w: latest close must be positive", ErrInvalidRequest)
	}

	var ind market.IndicatorSnapshot
	if req.Indicators != nil {
		ind = *req.Indicators
	} else {
		snap, err := indicator.Compute(req.Candles, b.settings)
		if err != nil {
			return decision.Context{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		ind = snap
	}

	vol := indicator.ClassifyVolatility(ind.BandWidth())
	if strings.TrimSpace(req.Volatility) != "" {
		v, err := market.ParseVolatility(req.Volatility)
		if err != nil {
			return decision.Context{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		vol = v
	}

	entry := latest.Close
	t := b.targets.Calculate(code, horizon, entry, vol)

	hist, err := b.analyzer.Analyze(ctx, code, ind)
	if err != nil {
		logger.Warnf("历史形态查询失败，按无历史处理 %s: %v", code, err)
		hist = nil
	}

	bars := b.RecentBars
	if bars <= 0 {
		bars = 60
	}
	c, err := decision.NewContext(decision.Context{
		Symbol:        sym,
		EntryPrice:    entry,
		TargetPrice1:  t.Target1,
		TargetPrice2:  t.Target2,
		StopLossPrice: t.StopLoss,
		LatestCandle:  latest,
		Indicators:    ind,
		RecentCandles: req.Candles.Tail(bars),
		Horizon:       horizon,
		Volatility:    vol,
		History:       hist,
	})
	if err != nil {
		return decision.Context{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return c, nil
}
