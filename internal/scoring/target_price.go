package scoring

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"stratgen/internal/config"
	"stratgen/internal/market"
)

// Targets holds derived exit prices for one entry.
type Targets struct {
	Target1  float64 `json:"target1"`
	Target2  float64 `json:"target2"`
	StopLoss float64 `json:"stop_loss"`
}

// HorizonParams 合并覆盖后的有效参数。
type HorizonParams struct {
	Target1Percent       float64
	Target2Percent       float64
	StopLossPercent      float64
	VolatilityMultiplier config.VolatilityMultiplier
}

// Multiplier returns the factor for a volatility level.
func (p HorizonParams) Multiplier(v market.VolatilityLevel) float64 {
	switch v {
	case market.VolatilityHigh:
		return p.VolatilityMultiplier.High
	case market.VolatilityLow:
		return p.VolatilityMultiplier.Low
	default:
		return p.VolatilityMultiplier.Medium
	}
}

// TargetPriceCalculator derives target1/target2/stop-loss from an entry price.
type TargetPriceCalculator struct {
	cfg config.TargetsConfig
}

func NewTargetPriceCalculator(cfg config.TargetsConfig) *TargetPriceCalculator {
	return &TargetPriceCalculator{cfg: cfg}
}

// Params resolves the base horizon config shallow-merged with the symbol override.
func (c *TargetPriceCalculator) Params(symbol string, horizon market.Horizon) HorizonParams {
	var base config.HorizonTargets
	switch horizon {
	case market.HorizonMedium:
		base = c.cfg.Medium
	case market.HorizonLong:
		base = c.cfg.Long
	default:
		base = c.cfg.Swing
	}
	p := HorizonParams{
		Target1Percent:       base.Target1Percent,
		Target2Percent:       base.Target2Percent,
		StopLossPercent:      base.StopLossPercent,
		VolatilityMultiplier: c.cfg.VolatilityMultiplier,
	}
	ov, ok := c.lookupOverride(symbol)
	if !ok {
		return p
	}
	if ov.Target1Percent != nil {
		p.Target1Percent = *ov.Target1Percent
	}
	if ov.Target2Percent != nil {
		p.Target2Percent = *ov.Target2Percent
	}
	if ov.StopLossPercent != nil {
		p.StopLossPercent = *ov.StopLossPercent
	}
	if ov.VolatilityMultiplier != nil {
		p.VolatilityMultiplier = *ov.VolatilityMultiplier
	}
	return p
}

func (c *TargetPriceCalculator) lookupOverride(symbol string) (config.TargetOverride, bool) {
	if len(c.cfg.Overrides) == 0 {
		return config.TargetOverride{}, false
	}
	if ov, ok := c.cfg.Overrides[symbol]; ok {
		return ov, true
	}
	ov, ok := c.cfg.Overrides[strings.ToUpper(strings.TrimSpace(symbol))]
	return ov, ok
}

// Calculate 目标价按波动倍数放大；止损不做波动调整。
// 小数位随入场价量级变化（见 pricePlaces），低价标的不会被舍入到入场价上。
func (c *TargetPriceCalculator) Calculate(symbol string, horizon market.Horizon, entry float64, volatility market.VolatilityLevel) Targets {
	p := c.Params(symbol, horizon)
	e := decimal.NewFromFloat(entry)
	mult := decimal.NewFromFloat(p.Multiplier(volatility))
	hundred := decimal.NewFromInt(100)
	one := decimal.NewFromInt(1)
	places := pricePlaces(entry)

	up := func(pct float64) float64 {
		factor := one.Add(decimal.NewFromFloat(pct).Mul(mult).Div(hundred))
		return roundAway(e.Mul(factor), e, places)
	}
	stop := one.Sub(decimal.NewFromFloat(p.StopLossPercent).Abs().Div(hundred))
	return Targets{
		Target1:  up(p.Target1Percent),
		Target2:  up(p.Target2Percent),
		StopLoss: roundAway(e.Mul(stop), e, places),
	}
}

// pricePlaces 保留约 4 位有效数字，且不少于 2 位小数。
func pricePlaces(entry float64) int32 {
	if !(entry > 0) {
		return 2
	}
	places := int32(3 - math.Floor(math.Log10(entry)))
	if places < 2 {
		return 2
	}
	return places
}

// roundAway 舍入后若与入场价重合则保留原值。
func roundAway(v, entry decimal.Decimal, places int32) float64 {
	if r := v.Round(places); !r.Equal(entry) || v.Equal(entry) {
		return r.InexactFloat64()
	}
	return v.InexactFloat64()
}

// PercentChange returns (to-from)/from*100 rounded to 2 decimals.
func PercentChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	f := decimal.NewFromFloat(from)
	return decimal.NewFromFloat(to).Sub(f).Div(f).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}
