package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// lookupFunc matches os.LookupEnv so tests can pass a map-backed source.
type lookupFunc func(string) (string, bool)

type floatBinding struct {
	key string
	dst *float64
}

type intBinding struct {
	key string
	dst *int
}

// applyEnv 叠加 STRATGEN_* 环境变量。数值解析失败或为 NaN/Inf 时立即返回错误（fail fast）。
func applyEnv(c *Config, lookup lookupFunc) error {
	strs := map[string]*string{
		"STRATGEN_ENV":        &c.App.Env,
		"STRATGEN_LOG_LEVEL":  &c.App.LogLevel,
		"STRATGEN_HTTP_ADDR":  &c.App.HTTPAddr,
		"STRATGEN_DB_PATH":    &c.App.DBPath,
		"STRATGEN_AI_API_KEY": &c.AI.APIKey,
		"STRATGEN_AI_API_URL": &c.AI.APIURL,
		"STRATGEN_AI_MODEL":   &c.AI.Model,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	cc := &c.Confidence
	floats := []floatBinding{
		{"STRATGEN_CONFIDENCE_BASE", &cc.Base},
		{"STRATGEN_CONFIDENCE_MIN", &cc.Bounds.Min},
		{"STRATGEN_CONFIDENCE_MAX", &cc.Bounds.Max},
		{"STRATGEN_WEIGHT_HISTORICAL", &cc.Weights.HistoricalAccuracy},
		{"STRATGEN_WEIGHT_DATA_HIGH", &cc.Weights.DataQuality.High},
		{"STRATGEN_WEIGHT_DATA_MEDIUM", &cc.Weights.DataQuality.Medium},
		{"STRATGEN_WEIGHT_AGREEMENT", &cc.Weights.IndicatorAgreement},
		{"STRATGEN_WEIGHT_VOLUME_SURGE", &cc.Weights.Volume.Surge},
		{"STRATGEN_WEIGHT_VOLUME_INCREASE", &cc.Weights.Volume.Increase},
		{"STRATGEN_WEIGHT_VOLATILITY_HIGH", &cc.Weights.Volatility.High},
		{"STRATGEN_WEIGHT_VOLATILITY_MEDIUM", &cc.Weights.Volatility.Medium},
		{"STRATGEN_THRESHOLD_VOLUME_SURGE", &cc.Thresholds.VolumeSurge},
		{"STRATGEN_THRESHOLD_VOLUME_INCREASE", &cc.Thresholds.VolumeIncrease},
		{"STRATGEN_THRESHOLD_VOLATILITY_HIGH", &cc.Thresholds.VolatilityHigh},
		{"STRATGEN_THRESHOLD_VOLATILITY_MEDIUM", &cc.Thresholds.VolatilityMedium},
		{"STRATGEN_SWING_TARGET1_PERCENT", &c.Targets.Swing.Target1Percent},
		{"STRATGEN_SWING_TARGET2_PERCENT", &c.Targets.Swing.Target2Percent},
		{"STRATGEN_SWING_STOP_LOSS_PERCENT", &c.Targets.Swing.StopLossPercent},
		{"STRATGEN_MEDIUM_TARGET1_PERCENT", &c.Targets.Medium.Target1Percent},
		{"STRATGEN_MEDIUM_TARGET2_PERCENT", &c.Targets.Medium.Target2Percent},
		{"STRATGEN_MEDIUM_STOP_LOSS_PERCENT", &c.Targets.Medium.StopLossPercent},
		{"STRATGEN_LONG_TARGET1_PERCENT", &c.Targets.Long.Target1Percent},
		{"STRATGEN_LONG_TARGET2_PERCENT", &c.Targets.Long.Target2Percent},
		{"STRATGEN_LONG_STOP_LOSS_PERCENT", &c.Targets.Long.StopLossPercent},
		{"STRATGEN_VOLATILITY_MULTIPLIER_HIGH", &c.Targets.VolatilityMultiplier.High},
		{"STRATGEN_VOLATILITY_MULTIPLIER_MEDIUM", &c.Targets.VolatilityMultiplier.Medium},
		{"STRATGEN_VOLATILITY_MULTIPLIER_LOW", &c.Targets.VolatilityMultiplier.Low},
		{"STRATGEN_AI_TEMPERATURE", &c.AI.Temperature},
	}
	for _, b := range floats {
		raw, ok := lookup(b.key)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("环境变量 %s 不是合法数值 %q: %w", b.key, raw, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("环境变量 %s 必须为有限数值，当前 %q", b.key, raw)
		}
		*b.dst = v
	}

	ints := []intBinding{
		{"STRATGEN_SAMPLE_SIZE_THRESHOLD", &cc.Thresholds.SampleSize},
		{"STRATGEN_REPORT_VALIDITY_HOURS", &c.Report.ValidityHours},
		{"STRATGEN_AI_TIMEOUT_SECONDS", &c.AI.TimeoutSeconds},
		{"STRATGEN_AI_MAX_TOKENS", &c.AI.MaxTokens},
		{"STRATGEN_HISTORY_LOOKBACK_DAYS", &c.History.LookbackDays},
	}
	for _, b := range ints {
		raw, ok := lookup(b.key)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("环境变量 %s 不是合法整数 %q: %w", b.key, raw, err)
		}
		*b.dst = v
	}
	return nil
}
