package indicator

import (
	"fmt"
	"math"

	talib "github.com/markcheno/go-talib"

	"stratgen/internal/market"
)

// 中文说明：
// 从 K 线窗口计算 IndicatorSnapshot。生成管线本身只消费快照，
// 这里仅为只有 K 线数据的调用方（HTTP/CLI）提供适配。

// Settings 指标参数；零值使用默认。
type Settings struct {
	RSIPeriod    int
	MACDFast     int
	MACDSlow     int
	MACDSignal   int
	BBPeriod     int
	BBDeviation  float64
	VolumePeriod int
}

func (s Settings) withDefaults() Settings {
	if s.RSIPeriod <= 0 {
		s.RSIPeriod = 14
	}
	if s.MACDFast <= 0 {
		s.MACDFast = 12
	}
	if s.MACDSlow <= 0 {
		s.MACDSlow = 26
	}
	if s.MACDSignal <= 0 {
		s.MACDSignal = 9
	}
	if s.BBPeriod <= 0 {
		s.BBPeriod = 20
	}
	if s.BBDeviation <= 0 {
		s.BBDeviation = 2
	}
	if s.VolumePeriod <= 0 {
		s.VolumePeriod = 20
	}
	return s
}

// MinCandles 计算全部指标所需的最少 K 线数量（MA60 决定下限）。
const MinCandles = 60

// Compute derives an IndicatorSnapshot from the newest values of each series.
func Compute(candles market.Candles, settings Settings) (market.IndicatorSnapshot, error) {
	if len(candles) < MinCandles {
		return market.IndicatorSnapshot{}, fmt.Errorf("insufficient history: need %d got %d", MinCandles, len(candles))
	}
	s := settings.withDefaults()
	closes := candles.Closes()
	volumes := candles.Volumes()

	macd, signal, _ := talib.Macd(closes, s.MACDFast, s.MACDSlow, s.MACDSignal)
	upper, _, lower := talib.BBands(closes, s.BBPeriod, s.BBDeviation, s.BBDeviation, talib.SMA)

	snap := market.IndicatorSnapshot{
		RSI:        last(talib.Rsi(closes, s.RSIPeriod)),
		MACD:       last(macd),
		MACDSignal: last(signal),
		MA5:        last(talib.Sma(closes, 5)),
		MA20:       last(talib.Sma(closes, 20)),
		MA60:       last(talib.Sma(closes, 60)),
		BBUpper:    last(upper),
		BBLower:    last(lower),
	}
	if avgVol := last(talib.Sma(volumes, s.VolumePeriod)); avgVol > 0 {
		snap.VolumeRatio = volumes[len(volumes)-1] / avgVol
	}
	for name, v := range map[string]float64{"rsi": snap.RSI, "macd": snap.MACD, "ma60": snap.MA60} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return market.IndicatorSnapshot{}, fmt.Errorf("indicator %s is not finite", name)
		}
	}
	return snap, nil
}

// ClassifyVolatility maps a band-width ratio onto the closed volatility enum (0.15 / 0.10).
func ClassifyVolatility(bandWidth float64) market.VolatilityLevel {
	switch {
	case bandWidth > 0.15:
		return market.VolatilityHigh
	case bandWidth > 0.10:
		return market.VolatilityMedium
	default:
		return market.VolatilityLow
	}
}

func last(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}
