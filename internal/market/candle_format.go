package market

import (
	"fmt"
	"math"
	"strings"
	"time"

	"stratgen/internal/pkg/format"
)

// Candles wraps a slice of Candle for helper methods.
type Candles []Candle

// TimeString formats close time (fallback to open time) in UTC.
func (c Candle) TimeString() string {
	ts := c.CloseTime
	if ts == 0 {
		ts = c.OpenTime
	}
	if ts <= 0 {
		return "-"
	}
	return time.UnixMilli(ts).UTC().Format("01-02 15:04") + "Z"
}

// Last returns the newest candle, or false for an empty window.
func (cs Candles) Last() (Candle, bool) {
	if len(cs) == 0 {
		return Candle{}, false
	}
	return cs[len(cs)-1], true
}

// Tail returns at most n newest candles.
func (cs Candles) Tail(n int) Candles {
	if n <= 0 || n >= len(cs) {
		return cs
	}
	return cs[len(cs)-n:]
}

// Closes extracts close prices in order.
func (cs Candles) Closes() []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Close
	}
	return out
}

// Volumes extracts volumes in order.
func (cs Candles) Volumes() []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Volume
	}
	return out
}

// RangeWidth 窗口内 (最高-最低)/平均收盘价，用作波动宽度的近似。
func (cs Candles) RangeWidth() float64 {
	if len(cs) == 0 {
		return 0
	}
	sum := 0.0
	for _, bar := range cs {
		sum += bar.Close
	}
	avg := sum / float64(len(cs))
	if avg <= 0 {
		return 0
	}
	low, high := cs.bounds()
	return (high - low) / avg
}

func (cs Candles) bounds() (low, high float64) {
	low, high = math.MaxFloat64, -math.MaxFloat64
	for _, bar := range cs {
		low = math.Min(low, bar.Low)
		high = math.Max(high, bar.High)
	}
	return low, high
}

// Snapshot 一行描述窗口：根数、收盘、区间涨跌（首根开盘到末根收盘）、高低点、均量与时间跨度。
func (cs Candles) Snapshot() string {
	last, ok := cs.Last()
	if !ok {
		return ""
	}
	first := cs[0]
	low, high := cs.bounds()
	vol := 0.0
	for _, bar := range cs {
		vol += bar.Volume
	}

	parts := []string{
		fmt.Sprintf("%d bars", len(cs)),
		"close " + format.Float(last.Close, 4),
	}
	if first.Open > 0 {
		parts = append(parts, fmt.Sprintf("change %+.2f%%", (last.Close-first.Open)/first.Open*100))
	}
	parts = append(parts,
		fmt.Sprintf("low %s / high %s", format.Float(low, 4), format.Float(high, 4)),
		fmt.Sprintf("avg volume %.0f", vol/float64(len(cs))),
	)
	if from := first.TimeString(); from != "-" {
		parts = append(parts, from+" to "+last.TimeString())
	}
	return strings.Join(parts, ", ")
}
