package scoring

import (
	"math"

	"stratgen/internal/config"
	"stratgen/internal/market"
)

// 中文说明：
// 置信度评分：base + 历史准确率 + 数据充分度 + 指标一致性 + 量能 - 波动惩罚，
// 行情状态（volatile/stable）会先替换历史准确率与波动两项权重，最终夹在 bounds 内。
// 纯函数，无 I/O。

// Condition is the coarse market regime used to pick weights.
type Condition string

const (
	ConditionNormal   Condition = "normal"
	ConditionVolatile Condition = "volatile"
	ConditionStable   Condition = "stable"
)

// ConfidenceInput 评分所需的全部信号。
type ConfidenceInput struct {
	Indicators      market.IndicatorSnapshot
	EntryPrice      float64
	CandlesAnalyzed int
	RecentCandles   market.Candles
	// HistoryCases == 0 表示没有历史数据。
	HistoryCases       int
	HistorySuccessRate float64 // 0-100
}

// ConfidenceBreakdown records every contribution so callers can log or display it.
type ConfidenceBreakdown struct {
	Condition         Condition `json:"condition"`
	Base              float64   `json:"base"`
	Historical        float64   `json:"historical"`
	SampleSizeBonus   float64   `json:"sample_size_bonus"`
	DataQuality       float64   `json:"data_quality"`
	AgreementCount    int       `json:"agreement_count"`
	SignalCount       int       `json:"signal_count"`
	Agreement         float64   `json:"agreement"`
	Volume            float64   `json:"volume"`
	VolatilityPenalty float64   `json:"volatility_penalty"`
	Raw               float64   `json:"raw"`
	Score             float64   `json:"score"`
}

type ConfidenceScorer struct {
	cfg config.ConfidenceConfig
}

func NewConfidenceScorer(cfg config.ConfidenceConfig) *ConfidenceScorer {
	return &ConfidenceScorer{cfg: cfg}
}

// ClassifyCondition buckets the market by band width and by how much the last
// five candles widened relative to the candles before them.
func (s *ConfidenceScorer) ClassifyCondition(width float64, recent market.Candles) Condition {
	th := s.cfg.Thresholds
	if width > th.VolatilityHigh {
		return ConditionVolatile
	}
	if len(recent) > 5 {
		prior := recent[:len(recent)-5].RangeWidth()
		if prior > 0 && recent.Tail(5).RangeWidth() > th.WidthJump*prior {
			return ConditionVolatile
		}
	}
	if width > 0 && width < th.StableWidth {
		return ConditionStable
	}
	return ConditionNormal
}

// weightsFor 按行情状态替换 historicalAccuracy 与 volatility 权重；
// volatility 的 high/medium 按基础比例缩放。
func (s *ConfidenceScorer) weightsFor(cond Condition) config.ConfidenceWeights {
	w := s.cfg.Weights
	var over config.ConditionWeights
	switch cond {
	case ConditionVolatile:
		over = s.cfg.Conditions.Volatile
	case ConditionStable:
		over = s.cfg.Conditions.Stable
	default:
		return w
	}
	ratio := 0.5
	if w.Volatility.High > 0 {
		ratio = w.Volatility.Medium / w.Volatility.High
	}
	w.HistoricalAccuracy = over.HistoricalAccuracy
	w.Volatility.High = over.Volatility
	w.Volatility.Medium = over.Volatility * ratio
	return w
}

// Score computes the bounded analysis confidence.
func (s *ConfidenceScorer) Score(in ConfidenceInput) ConfidenceBreakdown {
	th := s.cfg.Thresholds
	width := in.Indicators.BandWidth()
	cond := s.ClassifyCondition(width, in.RecentCandles)
	w := s.weightsFor(cond)

	b := ConfidenceBreakdown{Condition: cond, Base: s.cfg.Base}

	if in.HistoryCases >= th.MinCases {
		b.Historical = in.HistorySuccessRate / 100 * w.HistoricalAccuracy
		if in.HistoryCases >= th.SampleSize {
			b.SampleSizeBonus = th.SampleSizeBonus
		}
	}

	switch {
	case in.CandlesAnalyzed >= th.DataHigh:
		b.DataQuality = w.DataQuality.High
	case in.CandlesAnalyzed >= th.DataMedium:
		b.DataQuality = w.DataQuality.Medium
	}

	signals := s.signals(in)
	b.SignalCount = len(signals)
	for _, fired := range signals {
		if fired {
			b.AgreementCount++
		}
	}
	if b.SignalCount > 0 {
		b.Agreement = float64(b.AgreementCount) / float64(b.SignalCount) * w.IndicatorAgreement
	}

	switch vr := in.Indicators.VolumeRatio; {
	case vr > th.VolumeSurge:
		b.Volume = w.Volume.Surge
	case vr > th.VolumeIncrease:
		b.Volume = w.Volume.Increase
	}

	switch {
	case width > th.VolatilityHigh:
		b.VolatilityPenalty = w.Volatility.High
	case width > th.VolatilityMedium:
		b.VolatilityPenalty = w.Volatility.Medium
	}

	b.Raw = b.Base + b.Historical + b.SampleSizeBonus + b.DataQuality + b.Agreement + b.Volume - b.VolatilityPenalty
	b.Score = clamp(round4(b.Raw), s.cfg.Bounds.Min, s.cfg.Bounds.Max)
	return b
}

// signals: RSI 极值、MACD 与信号线背离、均线排列。
func (s *ConfidenceScorer) signals(in ConfidenceInput) []bool {
	th := s.cfg.Thresholds
	ind := in.Indicators
	rsiExtreme := ind.RSI >= th.RSIOverbought || ind.RSI <= th.RSIOversold
	divergence := false
	if in.EntryPrice > 0 {
		divergence = math.Abs(ind.MACDHistogram())/in.EntryPrice*100 > th.MACDDivergencePct
	}
	return []bool{rsiExtreme, divergence, MAAligned(ind)}
}

// MAAligned reports MA5>MA20>MA60 or the reverse.
func MAAligned(ind market.IndicatorSnapshot) bool {
	if ind.MA5 == 0 || ind.MA20 == 0 || ind.MA60 == 0 {
		return false
	}
	return (ind.MA5 > ind.MA20 && ind.MA20 > ind.MA60) || (ind.MA5 < ind.MA20 && ind.MA20 < ind.MA60)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo || math.IsNaN(v) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
