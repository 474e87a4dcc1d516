package decision

import (
	"stratgen/internal/market"
	"stratgen/internal/pkg/format"
	"stratgen/internal/scoring"
)

// 指标定性标签，提示词与规则层共用。
const (
	rsiOverbought  = 70
	rsiOversold    = 30
	volumeSurge    = 1.5
	volumeIncrease = 1.0
)

func rsiLabel(rsi float64) string {
	switch {
	case rsi >= rsiOverbought:
		return "overbought"
	case rsi <= rsiOversold:
		return "oversold"
	default:
		return "neutral"
	}
}

func macdLabel(ind market.IndicatorSnapshot) string {
	if ind.MACDHistogram() >= 0 {
		return "bullish-cross"
	}
	return "bearish-cross"
}

func maLabel(ind market.IndicatorSnapshot) string {
	if !scoring.MAAligned(ind) {
		return "mixed"
	}
	if ind.MA5 > ind.MA20 {
		return "bullish-alignment"
	}
	return "bearish-alignment"
}

func bollingerLabel(price float64, ind market.IndicatorSnapshot) string {
	switch {
	case ind.BBUpper > 0 && price > ind.BBUpper:
		return "above-upper-band"
	case ind.BBLower > 0 && price < ind.BBLower:
		return "below-lower-band"
	default:
		return "inside-band"
	}
}

func volumeLabel(ratio float64) string {
	switch {
	case ratio > volumeSurge:
		return "surge"
	case ratio > volumeIncrease:
		return "increase"
	default:
		return "weak"
	}
}

func horizonLabel(h market.Horizon) string {
	switch h {
	case market.HorizonMedium:
		return "medium-term (1-3 months)"
	case market.HorizonLong:
		return "long-term (3+ months)"
	default:
		return "swing (1-2 weeks)"
	}
}

// price 按量级选择小数位。
func price(v float64) string {
	return format.Float(v, priceDecimals(v))
}

func priceDecimals(v float64) int {
	switch {
	case v >= 100:
		return 2
	case v >= 1:
		return 4
	default:
		return 6
	}
}

// priceBetween 格式化 lo 与 hi 之间的价位；与两端文本相同时逐位加精度。
func priceBetween(v, lo, hi float64) string {
	d := priceDecimals(v)
	out := format.Float(v, d)
	for d < 12 && (out == price(lo) || out == price(hi)) {
		d++
		out = format.Float(v, d)
	}
	return out
}
