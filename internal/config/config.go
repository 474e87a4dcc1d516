package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config 在启动时组装一次，之后只读，按指针传入各组件构造函数。
type Config struct {
	App        AppConfig        `toml:"app"`
	AI         AIConfig         `toml:"ai"`
	Targets    TargetsConfig    `toml:"targets"`
	Confidence ConfidenceConfig `toml:"confidence"`
	History    HistoryConfig    `toml:"history"`
	Report     ReportConfig     `toml:"report"`
	Monitor    MonitorConfig    `toml:"monitor"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	DBPath   string `toml:"db_path"` // 报告历史库（sqlite）；为空时使用内存实现
}

// AIConfig 生成式模型配置；APIKey 为空即视为未配置，AI 层直接跳过。
type AIConfig struct {
	ID             string            `toml:"id"`
	APIURL         string            `toml:"api_url"`
	APIKey         string            `toml:"api_key"`
	Model          string            `toml:"model"`
	TimeoutSeconds int               `toml:"timeout_seconds"`
	Temperature    float64           `toml:"temperature"`
	MaxTokens      int               `toml:"max_tokens"`
	Headers        map[string]string `toml:"headers"`
}

// Configured reports whether a credential is present.
func (c AIConfig) Configured() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// HorizonTargets 单个持仓周期的基础百分比。
type HorizonTargets struct {
	Target1Percent  float64 `toml:"target1_percent"`
	Target2Percent  float64 `toml:"target2_percent"`
	StopLossPercent float64 `toml:"stop_loss_percent"`
}

type VolatilityMultiplier struct {
	High   float64 `toml:"high"`
	Medium float64 `toml:"medium"`
	Low    float64 `toml:"low"`
}

// TargetOverride 按标的覆盖；未给出的字段沿用基础配置。
// VolatilityMultiplier 为 nil 时整张基础倍数表保留，不做部分合并。
type TargetOverride struct {
	Target1Percent       *float64              `toml:"target1_percent"`
	Target2Percent       *float64              `toml:"target2_percent"`
	StopLossPercent      *float64              `toml:"stop_loss_percent"`
	VolatilityMultiplier *VolatilityMultiplier `toml:"volatility_multiplier"`
}

type TargetsConfig struct {
	Swing                HorizonTargets            `toml:"swing"`
	Medium               HorizonTargets            `toml:"medium"`
	Long                 HorizonTargets            `toml:"long"`
	VolatilityMultiplier VolatilityMultiplier      `toml:"volatility_multiplier"`
	Overrides            map[string]TargetOverride `toml:"overrides"`
}

type DataQualityWeights struct {
	High   float64 `toml:"high"`
	Medium float64 `toml:"medium"`
}

type VolumeWeights struct {
	Surge    float64 `toml:"surge"`
	Increase float64 `toml:"increase"`
}

type VolatilityWeights struct {
	High   float64 `toml:"high"`
	Medium float64 `toml:"medium"`
}

type ConfidenceWeights struct {
	HistoricalAccuracy float64            `toml:"historical_accuracy"`
	DataQuality        DataQualityWeights `toml:"data_quality"`
	IndicatorAgreement float64            `toml:"indicator_agreement"`
	Volume             VolumeWeights      `toml:"volume"`
	Volatility         VolatilityWeights  `toml:"volatility"`
}

type ConfidenceThresholds struct {
	MinCases          int     `toml:"min_cases"`
	SampleSize        int     `toml:"sample_size"`
	SampleSizeBonus   float64 `toml:"sample_size_bonus"`
	DataHigh          int     `toml:"data_high"`
	DataMedium        int     `toml:"data_medium"`
	RSIOverbought     float64 `toml:"rsi_overbought"`
	RSIOversold       float64 `toml:"rsi_oversold"`
	MACDDivergencePct float64 `toml:"macd_divergence_pct"`
	VolumeSurge       float64 `toml:"volume_surge"`
	VolumeIncrease    float64 `toml:"volume_increase"`
	VolatilityHigh    float64 `toml:"volatility_high"`
	VolatilityMedium  float64 `toml:"volatility_medium"`
	StableWidth       float64 `toml:"stable_width"`
	WidthJump         float64 `toml:"width_jump"`
}

type ConfidenceBounds struct {
	Min float64 `toml:"min"`
	Max float64 `toml:"max"`
}

// ConditionWeights 行情状态下替换的两项权重。
type ConditionWeights struct {
	HistoricalAccuracy float64 `toml:"historical_accuracy"`
	Volatility         float64 `toml:"volatility"`
}

type ConditionOverrides struct {
	Volatile ConditionWeights `toml:"volatile"`
	Stable   ConditionWeights `toml:"stable"`
}

type ConfidenceConfig struct {
	Base       float64              `toml:"base"`
	Weights    ConfidenceWeights    `toml:"weights"`
	Thresholds ConfidenceThresholds `toml:"thresholds"`
	Bounds     ConfidenceBounds     `toml:"bounds"`
	Conditions ConditionOverrides   `toml:"conditions"`
}

type HistoryConfig struct {
	LookbackDays int     `toml:"lookback_days"`
	RSIWindow    float64 `toml:"rsi_window"`
}

type ReportConfig struct {
	ValidityHours int `toml:"validity_hours"`
}

type MonitorConfig struct {
	WindowSize   int    `toml:"window_size"`
	SummaryEvery int    `toml:"summary_every"`
	SummaryCron  string `toml:"summary_cron"`
}

// Load 以默认值为底解码 TOML（文件不存在时仅用默认值），再叠加 .env 与环境变量覆盖，最后校验。
// 文件中显式写出的 0 会保留；数值型环境变量无法解析或非有限值时直接报错。
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if len(data) > 0 {
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("解析 TOML 失败: %w", err)
			}
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("读取 .env 失败: %w", err)
	}
	applyDefaults(cfg)
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default 返回仅含默认值的配置，供测试与 CLI 无配置文件时使用。
func Default() *Config {
	cfg := Config{
		AI: AIConfig{Temperature: 0.3},
		Targets: TargetsConfig{
			Swing:                HorizonTargets{Target1Percent: 3, Target2Percent: 6, StopLossPercent: -3},
			Medium:               HorizonTargets{Target1Percent: 7, Target2Percent: 12, StopLossPercent: -5},
			Long:                 HorizonTargets{Target1Percent: 12, Target2Percent: 20, StopLossPercent: -8},
			VolatilityMultiplier: VolatilityMultiplier{High: 1.5, Medium: 1.0, Low: 0.8},
		},
		Confidence: ConfidenceConfig{
			Base: 0.5,
			Weights: ConfidenceWeights{
				HistoricalAccuracy: 0.15,
				DataQuality:        DataQualityWeights{High: 0.10, Medium: 0.05},
				IndicatorAgreement: 0.15,
				Volume:             VolumeWeights{Surge: 0.05, Increase: 0.02},
				Volatility:         VolatilityWeights{High: 0.10, Medium: 0.05},
			},
			Thresholds: ConfidenceThresholds{
				SampleSizeBonus:   0.05,
				RSIOverbought:     70,
				RSIOversold:       30,
				MACDDivergencePct: 0.1,
				VolumeSurge:       1.5,
				VolumeIncrease:    1.0,
				VolatilityHigh:    0.15,
				VolatilityMedium:  0.10,
				StableWidth:       0.05,
				WidthJump:         1.5,
			},
			Bounds: ConfidenceBounds{Min: 0.35, Max: 0.95},
			Conditions: ConditionOverrides{
				Volatile: ConditionWeights{HistoricalAccuracy: 0.08, Volatility: 0.15},
				Stable:   ConditionWeights{HistoricalAccuracy: 0.20, Volatility: 0.02},
			},
		},
		History: HistoryConfig{RSIWindow: 10},
	}
	applyDefaults(&cfg)
	return &cfg
}

// applyDefaults 只补字符串与必须为正的整数；浮点默认值在 Default 中给出，
// 这样配置文件里显式的 0 不会被覆盖。
func applyDefaults(c *Config) {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = ":8080"
	}
	if c.AI.ID == "" {
		c.AI.ID = "openai"
	}
	if c.AI.Model == "" {
		c.AI.Model = "gpt-4o-mini"
	}
	setDefaultInt(&c.AI.TimeoutSeconds, 30)
	setDefaultInt(&c.AI.MaxTokens, 2000)

	th := &c.Confidence.Thresholds
	setDefaultInt(&th.MinCases, 5)
	setDefaultInt(&th.SampleSize, 20)
	setDefaultInt(&th.DataHigh, 100)
	setDefaultInt(&th.DataMedium, 50)

	setDefaultInt(&c.History.LookbackDays, 90)
	setDefaultInt(&c.Report.ValidityHours, 24)
	setDefaultInt(&c.Monitor.WindowSize, 100)
	setDefaultInt(&c.Monitor.SummaryEvery, 10)
	if c.Monitor.SummaryCron == "" {
		c.Monitor.SummaryCron = "@every 5m"
	}
}

func setDefaultInt(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

// 基础校验
func validate(c *Config) error {
	if err := checkFinite(reflect.ValueOf(c).Elem(), ""); err != nil {
		return err
	}
	b := c.Confidence.Bounds
	if b.Min < 0 || b.Max > 1 || b.Min > b.Max {
		return fmt.Errorf("confidence.bounds 需满足 0 <= min <= max <= 1，当前 [%.2f, %.2f]", b.Min, b.Max)
	}
	if c.Confidence.Base < 0 || c.Confidence.Base > 1 {
		return fmt.Errorf("confidence.base 需在 [0,1]，当前 %.2f", c.Confidence.Base)
	}
	for name, h := range map[string]HorizonTargets{"swing": c.Targets.Swing, "medium": c.Targets.Medium, "long": c.Targets.Long} {
		if h.Target1Percent <= 0 || h.Target2Percent <= 0 {
			return fmt.Errorf("targets.%s 目标百分比必须为正", name)
		}
		if h.Target2Percent < h.Target1Percent {
			return fmt.Errorf("targets.%s target2_percent 不能小于 target1_percent", name)
		}
		if h.StopLossPercent >= 0 || h.StopLossPercent <= -100 {
			return fmt.Errorf("targets.%s stop_loss_percent 需在 (-100, 0)，当前 %v", name, h.StopLossPercent)
		}
	}
	vm := c.Targets.VolatilityMultiplier
	if vm.High <= 0 || vm.Medium <= 0 || vm.Low <= 0 {
		return fmt.Errorf("targets.volatility_multiplier 必须为正")
	}
	if c.Confidence.Thresholds.DataMedium > c.Confidence.Thresholds.DataHigh {
		return fmt.Errorf("confidence.thresholds.data_medium 不能大于 data_high")
	}
	if c.History.RSIWindow <= 0 {
		return fmt.Errorf("history.rsi_window 必须为正")
	}
	return nil
}

// checkFinite 递归检查所有 float64 字段（含 overrides 中的指针），拒绝 NaN 与 ±Inf。
func checkFinite(v reflect.Value, path string) error {
	switch v.Kind() {
	case reflect.Float64:
		if f := v.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%s 必须为有限数值，当前 %v", path, f)
		}
	case reflect.Pointer:
		if !v.IsNil() {
			return checkFinite(v.Elem(), path)
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			name, _, _ := strings.Cut(t.Field(i).Tag.Get("toml"), ",")
			if err := checkFinite(v.Field(i), joinPath(path, name)); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if err := checkFinite(iter.Value(), joinPath(path, fmt.Sprint(iter.Key().Interface()))); err != nil {
				return err
			}
		}
	}
	return nil
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}
