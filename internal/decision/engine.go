package decision

// 中文说明：
// 生成管线的输入上下文与输出结果。Context 每个请求构造一次，之后只读。

import (
	"fmt"
	"time"

	"stratgen/internal/history"
	"stratgen/internal/market"
	"stratgen/internal/scoring"
	"stratgen/internal/strategy"
)

// Context is the StrategyGenerationContext.
type Context struct {
	Symbol        market.Symbol            `json:"symbol"`
	EntryPrice    float64                  `json:"entryPrice"`
	TargetPrice1  float64                  `json:"targetPrice1"`
	TargetPrice2  float64                  `json:"targetPrice2"`
	StopLossPrice float64                  `json:"stopLossPrice"`
	LatestCandle  market.Candle            `json:"latestCandle"`
	Indicators    market.IndicatorSnapshot `json:"indicators"`
	RecentCandles market.Candles           `json:"recentCandles,omitempty"`
	Horizon       market.Horizon           `json:"horizon"`
	Volatility    market.VolatilityLevel   `json:"volatility"`
	History       *history.Context         `json:"history,omitempty"`
}

// NewContext validates c and returns a copy that shares no slices with the caller.
func NewContext(c Context) (Context, error) {
	if err := c.Validate(); err != nil {
		return Context{}, err
	}
	if len(c.RecentCandles) > 0 {
		c.RecentCandles = append(market.Candles(nil), c.RecentCandles...)
	}
	if c.History != nil {
		h := *c.History
		c.History = &h
	}
	return c, nil
}

// Validate 所有价格必须为正，目标价高于入场价，止损低于入场价，枚举必须合法。
func (c Context) Validate() error {
	if c.Symbol.Code == "" {
		return fmt.Errorf("symbol 必填")
	}
	for name, v := range map[string]float64{
		"entryPrice":    c.EntryPrice,
		"targetPrice1":  c.TargetPrice1,
		"targetPrice2":  c.TargetPrice2,
		"stopLossPrice": c.StopLossPrice,
	} {
		if !(v > 0) {
			return fmt.Errorf("%s 必须为正，当前 %v", name, v)
		}
	}
	if c.TargetPrice1 <= c.EntryPrice {
		return fmt.Errorf("targetPrice1 %.4f 必须高于 entryPrice %.4f", c.TargetPrice1, c.EntryPrice)
	}
	if c.TargetPrice2 < c.TargetPrice1 {
		return fmt.Errorf("targetPrice2 不能低于 targetPrice1")
	}
	if c.StopLossPrice >= c.EntryPrice {
		return fmt.Errorf("stopLossPrice %.4f 必须低于 entryPrice %.4f", c.StopLossPrice, c.EntryPrice)
	}
	if !c.Horizon.Valid() {
		return fmt.Errorf("horizon 非法: %q", c.Horizon)
	}
	if !c.Volatility.Valid() {
		return fmt.Errorf("volatility 非法: %q", c.Volatility)
	}
	return nil
}

// Source is the closed set of tiers that can produce a strategy.
type Source string

const (
	SourceAI        Source = "ai"
	SourceRuleBased Source = "rule-based"
	SourceFallback  Source = "fallback"
)

func (s Source) Valid() bool {
	switch s {
	case SourceAI, SourceRuleBased, SourceFallback:
		return true
	}
	return false
}

// Provenance confidence per source.
const (
	ConfidenceAI         = 0.9
	ConfidenceAIRepaired = 0.8
	ConfidenceRuleBased  = 0.6
	ConfidenceFallback   = 0.3
)

// ProvenanceConfidence maps a successful source to its fixed confidence.
func ProvenanceConfidence(src Source, repaired bool) float64 {
	switch src {
	case SourceAI:
		if repaired {
			return ConfidenceAIRepaired
		}
		return ConfidenceAI
	case SourceRuleBased:
		return ConfidenceRuleBased
	default:
		return ConfidenceFallback
	}
}

type Metadata struct {
	RequestID           string                       `json:"requestId"`
	GenerationTimeMs    int64                        `json:"generationTimeMs"`
	TokensUsed          *int                         `json:"tokensUsed,omitempty"`
	ValidationPassed    bool                         `json:"validationPassed"`
	ValidationErrors    []string                     `json:"validationErrors,omitempty"`
	AttemptedSources    []Source                     `json:"attemptedSources"`
	Repaired            bool                         `json:"repaired"`
	FixedFields         []string                     `json:"fixedFields,omitempty"`
	AnalysisConfidence  float64                      `json:"analysisConfidence"`
	ConfidenceBreakdown *scoring.ConfidenceBreakdown `json:"confidenceBreakdown,omitempty"`
	GeneratedAt         time.Time                    `json:"generatedAt"`
	ValidUntil          time.Time                    `json:"validUntil"`
}

// Result is the StrategyResult: exactly one per Generate call.
type Result struct {
	Success    bool                         `json:"success"`
	Strategy   *strategy.InvestmentStrategy `json:"strategy,omitempty"`
	Source     Source                       `json:"source"`
	Confidence float64                      `json:"confidence"`
	Metadata   Metadata                     `json:"metadata"`
	Errors     []string                     `json:"errors,omitempty"`
}
