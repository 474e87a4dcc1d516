package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(m map[string]string) lookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 3.0, cfg.Targets.Swing.Target1Percent)
	assert.Equal(t, 1.5, cfg.Targets.VolatilityMultiplier.High)
	assert.Equal(t, 0.35, cfg.Confidence.Bounds.Min)
	assert.Equal(t, 0.95, cfg.Confidence.Bounds.Max)
	assert.Equal(t, 20, cfg.Confidence.Thresholds.SampleSize)
	assert.Equal(t, 1.5, cfg.Confidence.Thresholds.VolumeSurge)
	assert.Equal(t, 0.15, cfg.Confidence.Thresholds.VolatilityHigh)
	assert.Equal(t, 100, cfg.Monitor.WindowSize)
	assert.Equal(t, 10, cfg.Monitor.SummaryEvery)
	assert.False(t, cfg.AI.Configured())
	require.NoError(t, validate(cfg))
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[app]
log_level = "debug"

[ai]
api_key = "sk-test"
model = "gpt-4o"

[targets.swing]
target1_percent = 4
target2_percent = 8
stop_loss_percent = -2

[targets.overrides."005930"]
target1_percent = 5

[confidence.bounds]
min = 0.4
max = 0.9
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.True(t, cfg.AI.Configured())
	assert.Equal(t, 4.0, cfg.Targets.Swing.Target1Percent)
	assert.Equal(t, 7.0, cfg.Targets.Medium.Target1Percent)
	require.Contains(t, cfg.Targets.Overrides, "005930")
	require.NotNil(t, cfg.Targets.Overrides["005930"].Target1Percent)
	assert.Equal(t, 5.0, *cfg.Targets.Overrides["005930"].Target1Percent)
	assert.Nil(t, cfg.Targets.Overrides["005930"].VolatilityMultiplier)
	assert.Equal(t, 0.4, cfg.Confidence.Bounds.Min)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, 24, cfg.Report.ValidityHours)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := applyEnv(cfg, mapLookup(map[string]string{
		"STRATGEN_CONFIDENCE_MIN":        "0.3",
		"STRATGEN_AI_API_KEY":            " key ",
		"STRATGEN_REPORT_VALIDITY_HOURS": "48",
	}))
	require.NoError(t, err)
	assert.Equal(t, 0.3, cfg.Confidence.Bounds.Min)
	assert.Equal(t, "key", cfg.AI.APIKey)
	assert.Equal(t, 48, cfg.Report.ValidityHours)
}

func TestApplyEnvFailsFastOnNonNumeric(t *testing.T) {
	cfg := Default()
	err := applyEnv(cfg, mapLookup(map[string]string{"STRATGEN_CONFIDENCE_MAX": "high"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STRATGEN_CONFIDENCE_MAX")
	assert.Equal(t, 0.95, cfg.Confidence.Bounds.Max)

	err = applyEnv(cfg, mapLookup(map[string]string{"STRATGEN_REPORT_VALIDITY_HOURS": "1.5"}))
	require.Error(t, err)
}

func TestValidateRejectsInvertedBounds(t *testing.T) {
	cfg := Default()
	cfg.Confidence.Bounds.Min = 0.9
	cfg.Confidence.Bounds.Max = 0.5
	assert.Error(t, validate(cfg))
}

func TestLoadShippedExample(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.toml"))
	require.NoError(t, err)
	def := Default()
	assert.Equal(t, def.Targets.Medium, cfg.Targets.Medium)
	assert.Equal(t, def.Confidence.Thresholds, cfg.Confidence.Thresholds)
	assert.Equal(t, def.Confidence.Conditions, cfg.Confidence.Conditions)
	assert.Equal(t, def.Monitor, cfg.Monitor)
	require.Contains(t, cfg.Targets.Overrides, "SOLUSDT")
	assert.Equal(t, 4.0, *cfg.Targets.Overrides["SOLUSDT"].Target1Percent)
}

func TestApplyEnvRejectsNonFinite(t *testing.T) {
	for _, raw := range []string{"NaN", "nan", "Inf", "-Inf", "+Infinity"} {
		cfg := Default()
		err := applyEnv(cfg, mapLookup(map[string]string{"STRATGEN_CONFIDENCE_MAX": raw}))
		require.Error(t, err, raw)
		assert.Contains(t, err.Error(), "STRATGEN_CONFIDENCE_MAX")
		assert.Equal(t, 0.95, cfg.Confidence.Bounds.Max)
	}
}

func TestLoadRejectsNaNFromEnv(t *testing.T) {
	t.Setenv("STRATGEN_CONFIDENCE_MAX", "NaN")
	_, err := Load("")
	require.Error(t, err)

	t.Setenv("STRATGEN_CONFIDENCE_MAX", "")
	t.Setenv("STRATGEN_WEIGHT_AGREEMENT", "NaN")
	_, err = Load("")
	require.Error(t, err)
}

func TestValidateRejectsNonFiniteFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bounds", func(c *Config) { c.Confidence.Bounds.Min = math.NaN() }, "confidence.bounds.min"},
		{"weight", func(c *Config) { c.Confidence.Weights.IndicatorAgreement = math.NaN() }, "confidence.weights.indicator_agreement"},
		{"threshold", func(c *Config) { c.Confidence.Thresholds.VolumeSurge = math.Inf(1) }, "confidence.thresholds.volume_surge"},
		{"condition", func(c *Config) { c.Confidence.Conditions.Stable.Volatility = math.Inf(-1) }, "confidence.conditions.stable.volatility"},
		{"override", func(c *Config) {
			nan := math.NaN()
			c.Targets.Overrides = map[string]TargetOverride{"BTCUSDT": {Target1Percent: &nan}}
		}, "targets.overrides.BTCUSDT.target1_percent"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestLoadKeepsExplicitZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[ai]
temperature = 0

[confidence.weights.volatility]
high = 0
medium = 0

[confidence.bounds]
min = 0
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.Confidence.Weights.Volatility.High)
	assert.Zero(t, cfg.Confidence.Weights.Volatility.Medium)
	assert.Zero(t, cfg.Confidence.Bounds.Min)
	assert.Zero(t, cfg.AI.Temperature)
	// 未写出的键仍取默认值
	assert.Equal(t, 0.95, cfg.Confidence.Bounds.Max)
	assert.Equal(t, 0.15, cfg.Confidence.Weights.IndicatorAgreement)
	assert.Equal(t, 30, cfg.AI.TimeoutSeconds)
}

func TestLoadPartialHorizonKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[targets.swing]\ntarget1_percent = 4\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, HorizonTargets{Target1Percent: 4, Target2Percent: 6, StopLossPercent: -3}, cfg.Targets.Swing)
}
