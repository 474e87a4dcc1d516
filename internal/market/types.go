package market

import (
	"fmt"
	"strings"
)

// Symbol 标的标识，由外部行情模块提供。
type Symbol struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Market string `json:"market"`
}

func (s Symbol) String() string {
	if s.Name == "" {
		return s.Code
	}
	return fmt.Sprintf("%s (%s)", s.Name, s.Code)
}

// Candle 单根 K 线；时间为毫秒时间戳。
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// IndicatorSnapshot is read-only input computed by external analytics.
type IndicatorSnapshot struct {
	RSI         float64 `json:"rsi"`
	MACD        float64 `json:"macd"`
	MACDSignal  float64 `json:"macd_signal"`
	MA5         float64 `json:"ma5"`
	MA20        float64 `json:"ma20"`
	MA60        float64 `json:"ma60"`
	BBUpper     float64 `json:"bb_upper"`
	BBLower     float64 `json:"bb_lower"`
	VolumeRatio float64 `json:"volume_ratio"`
}

// MACDHistogram returns MACD minus its signal line.
func (s IndicatorSnapshot) MACDHistogram() float64 {
	return s.MACD - s.MACDSignal
}

// BandWidth is the Bollinger width proxy (upper-lower)/MA20; 0 when MA20 is unknown.
func (s IndicatorSnapshot) BandWidth() float64 {
	if s.MA20 <= 0 {
		return 0
	}
	return (s.BBUpper - s.BBLower) / s.MA20
}

// Horizon 投资周期，闭合枚举。
type Horizon string

const (
	HorizonSwing  Horizon = "swing"
	HorizonMedium Horizon = "medium"
	HorizonLong   Horizon = "long"
)

func ParseHorizon(s string) (Horizon, error) {
	switch h := Horizon(strings.ToLower(strings.TrimSpace(s))); h {
	case HorizonSwing, HorizonMedium, HorizonLong:
		return h, nil
	}
	return "", fmt.Errorf("unknown investment horizon %q", s)
}

// Valid accepts only the canonical constants.
func (h Horizon) Valid() bool {
	switch h {
	case HorizonSwing, HorizonMedium, HorizonLong:
		return true
	}
	return false
}

// VolatilityLevel 波动等级，闭合枚举。
type VolatilityLevel string

const (
	VolatilityLow    VolatilityLevel = "low"
	VolatilityMedium VolatilityLevel = "medium"
	VolatilityHigh   VolatilityLevel = "high"
)

func ParseVolatility(s string) (VolatilityLevel, error) {
	switch v := VolatilityLevel(strings.ToLower(strings.TrimSpace(s))); v {
	case VolatilityLow, VolatilityMedium, VolatilityHigh:
		return v, nil
	}
	return "", fmt.Errorf("unknown volatility level %q", s)
}

func (v VolatilityLevel) Valid() bool {
	switch v {
	case VolatilityLow, VolatilityMedium, VolatilityHigh:
		return true
	}
	return false
}
