package decision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratgen/internal/config"
	"stratgen/internal/gateway/provider"
	"stratgen/internal/history"
	"stratgen/internal/logger"
	"stratgen/internal/market"
	"stratgen/internal/monitor"
	"stratgen/internal/scoring"
	"stratgen/internal/strategy"
)

func init() { logger.Discard() }

type fakeProvider struct {
	enabled bool
	content string
	tokens  int
	err     error
	calls   int
	last    provider.ChatPayload
}

func (f *fakeProvider) ID() string    { return "fake" }
func (f *fakeProvider) Enabled() bool { return f.enabled }
func (f *fakeProvider) Call(_ context.Context, p provider.ChatPayload) (provider.ChatResult, error) {
	f.calls++
	f.last = p
	if f.err != nil {
		return provider.ChatResult{}, f.err
	}
	return provider.ChatResult{Content: f.content, TokensUsed: f.tokens}, nil
}

type panicTier struct{ src Source }

func (p panicTier) Source() Source { return p.src }
func (p panicTier) Generate(context.Context, Context) TierOutcome {
	panic("boom")
}

func testContext(t *testing.T) Context {
	t.Helper()
	candles := make(market.Candles, 30)
	for i := range candles {
		candles[i] = market.Candle{Open: 9900, High: 10100, Low: 9800, Close: 10000, Volume: 1000}
	}
	c, err := NewContext(Context{
		Symbol:        market.Symbol{Code: "BTCUSDT", Name: "Bitcoin", Market: "crypto"},
		EntryPrice:    10000,
		TargetPrice1:  10450,
		TargetPrice2:  10900,
		StopLossPrice: 9700,
		LatestCandle:  candles[len(candles)-1],
		Indicators: market.IndicatorSnapshot{
			RSI: 60, MACD: 12, MACDSignal: 7,
			MA5: 10050, MA20: 9900, MA60: 9600,
			BBUpper: 10400, BBLower: 9400, VolumeRatio: 1.2,
		},
		RecentCandles: candles,
		Horizon:       market.HorizonSwing,
		Volatility:    market.VolatilityMedium,
	})
	require.NoError(t, err)
	return c
}

type harness struct {
	gen *Generator
	mon *monitor.Service
	ai  *fakeProvider
}

func newHarness(ai *fakeProvider) harness {
	cfg := config.Default()
	mon := monitor.NewService(cfg.Monitor, func(monitor.Snapshot) {})
	v := strategy.NewValidator()
	tiers := []Tier{
		NewAITier(ai, NewPromptBuilder(), v, cfg.AI.MaxTokens),
		NewRuleTier(v),
		NewFallbackTier(),
	}
	return harness{
		gen: NewGenerator(tiers, mon, scoring.NewConfidenceScorer(cfg.Confidence), cfg.Report),
		mon: mon,
		ai:  ai,
	}
}

func validAIContent(t *testing.T, c Context, mutate func(map[string]any)) string {
	t.Helper()
	buf, err := json.Marshal(BuildRuleStrategy(c))
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf, &m))
	if mutate != nil {
		mutate(m)
	}
	out, err := json.Marshal(m)
	require.NoError(t, err)
	return "Here is the plan:\n```json\n" + string(out) + "\n```"
}

func TestGenerateWithoutCredentialSkipsAI(t *testing.T) {
	h := newHarness(&fakeProvider{enabled: false})
	res := h.gen.Generate(context.Background(), testContext(t))

	require.True(t, res.Success)
	require.NotNil(t, res.Strategy)
	assert.Equal(t, SourceRuleBased, res.Source)
	assert.Equal(t, 0.6, res.Confidence)
	assert.Equal(t, []Source{SourceRuleBased}, res.Metadata.AttemptedSources)
	assert.Nil(t, res.Metadata.TokensUsed)
	assert.Empty(t, res.Errors)
	assert.Zero(t, h.ai.calls)

	snap := h.mon.Snapshot()
	_, tracked := snap.Sources["ai"]
	assert.False(t, tracked)
	assert.Equal(t, 1, snap.Sources["rule-based"].Successes)
}

func TestGenerateAISuccess(t *testing.T) {
	c := testContext(t)
	ai := &fakeProvider{enabled: true, tokens: 420}
	ai.content = validAIContent(t, c, nil)
	h := newHarness(ai)

	res := h.gen.Generate(context.Background(), c)
	require.True(t, res.Success)
	assert.Equal(t, SourceAI, res.Source)
	assert.Equal(t, 0.9, res.Confidence)
	assert.False(t, res.Metadata.Repaired)
	assert.True(t, res.Metadata.ValidationPassed)
	require.NotNil(t, res.Metadata.TokensUsed)
	assert.Equal(t, 420, *res.Metadata.TokensUsed)
	assert.Equal(t, []Source{SourceAI}, res.Metadata.AttemptedSources)
	assert.Equal(t, SystemInstruction, ai.last.System)
	assert.True(t, ai.last.ExpectJSON)
	assert.Contains(t, ai.last.User, "BTCUSDT")
	assert.NotEmpty(t, res.Metadata.RequestID)
	assert.Equal(t, 24*time.Hour, res.Metadata.ValidUntil.Sub(res.Metadata.GeneratedAt))
}

func TestGenerateAIRepaired(t *testing.T) {
	c := testContext(t)
	ai := &fakeProvider{enabled: true}
	ai.content = validAIContent(t, c, func(m map[string]any) {
		m["phase1"].(map[string]any)["entryRatio"] = 90
	})
	res := newHarness(ai).gen.Generate(context.Background(), c)
	require.True(t, res.Success)
	assert.Equal(t, SourceAI, res.Source)
	assert.Equal(t, 0.8, res.Confidence)
	assert.True(t, res.Metadata.Repaired)
	assert.Equal(t, []string{"phase1.entryRatio"}, res.Metadata.FixedFields)
	assert.Equal(t, 50.0, res.Strategy.Phase1.EntryRatio)
}

func TestGenerateAIFailuresFallThrough(t *testing.T) {
	c := testContext(t)
	cases := []struct {
		name string
		ai   *fakeProvider
		kind ErrorKind
	}{
		{"transport", &fakeProvider{enabled: true, err: errors.New("connection refused")}, KindTransportFailure},
		{"malformed", &fakeProvider{enabled: true, content: "I cannot help with that."}, KindMalformedResponse},
		{"malformed body", &fakeProvider{enabled: true, err: fmt.Errorf("%w: decode completion: invalid character '<'", provider.ErrMalformedBody)}, KindMalformedResponse},
		{"schema", &fakeProvider{enabled: true, content: `{"phase1":{"entryRatio":30}}`}, KindSchemaViolation},
		{"wrong types", &fakeProvider{enabled: true, content: `{"phase1":"soon"}`}, KindSchemaViolation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(tc.ai)
			res := h.gen.Generate(context.Background(), c)
			require.True(t, res.Success)
			assert.Equal(t, SourceRuleBased, res.Source)
			assert.Equal(t, 0.6, res.Confidence)
			assert.Equal(t, []Source{SourceAI, SourceRuleBased}, res.Metadata.AttemptedSources)
			require.Len(t, res.Errors, 1)
			assert.Contains(t, res.Errors[0], string(tc.kind))
			assert.Equal(t, 1, tc.ai.calls)

			snap := h.mon.Snapshot()
			assert.Equal(t, 1, snap.Sources["ai"].Failures)
			assert.Equal(t, 0.0, snap.Sources["ai"].SuccessRate)
			assert.Equal(t, 2, snap.TotalAttempts)
		})
	}
}

func TestGenerateRulePanicUsesFallback(t *testing.T) {
	cfg := config.Default()
	mon := monitor.NewService(cfg.Monitor, func(monitor.Snapshot) {})
	gen := NewGenerator([]Tier{
		NewAITier(nil, nil, nil, 0),
		panicTier{src: SourceRuleBased},
		NewFallbackTier(),
	}, mon, nil, cfg.Report)

	res := gen.Generate(context.Background(), testContext(t))
	require.True(t, res.Success)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, 0.3, res.Confidence)
	assert.Equal(t, []Source{SourceRuleBased, SourceFallback}, res.Metadata.AttemptedSources)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], string(KindInternalException))
	assert.Equal(t, 1, mon.Snapshot().Sources["rule-based"].Failures)
}

func TestGenerateAppendsFallbackWhenMissing(t *testing.T) {
	gen := NewGenerator([]Tier{panicTier{src: SourceRuleBased}}, nil, nil, config.ReportConfig{})
	res := gen.Generate(context.Background(), testContext(t))
	assert.True(t, res.Success)
	assert.Equal(t, SourceFallback, res.Source)
}

func TestTotalityAcrossRegimes(t *testing.T) {
	h := newHarness(&fakeProvider{enabled: false})
	base := testContext(t)
	for _, rsi := range []float64{5, 29, 45, 50, 55, 71, 95} {
		for _, hist := range []float64{-50, 0, 50} {
			for _, hz := range []market.Horizon{market.HorizonSwing, market.HorizonMedium, market.HorizonLong} {
				c := base
				c.Indicators.RSI = rsi
				c.Indicators.MACDSignal = c.Indicators.MACD - hist
				c.Horizon = hz
				res := h.gen.Generate(context.Background(), c)
				require.True(t, res.Success)
				require.NotNil(t, res.Strategy)
				assert.Equal(t, SourceRuleBased, res.Source)
			}
		}
	}
}

func TestProvenanceConfidence(t *testing.T) {
	assert.Equal(t, 0.9, ProvenanceConfidence(SourceAI, false))
	assert.Equal(t, 0.8, ProvenanceConfidence(SourceAI, true))
	assert.Equal(t, 0.6, ProvenanceConfidence(SourceRuleBased, false))
	assert.Equal(t, 0.6, ProvenanceConfidence(SourceRuleBased, true))
	assert.Equal(t, 0.3, ProvenanceConfidence(SourceFallback, false))
}

func TestRuleEntryRatio(t *testing.T) {
	assert.Equal(t, 40.0, RuleEntryRatio(60, 5))
	assert.Equal(t, 35.0, RuleEntryRatio(52, 2))
	assert.Equal(t, 25.0, RuleEntryRatio(40, -1))
	assert.Equal(t, 25.0, RuleEntryRatio(60, -1))
	assert.Equal(t, 30.0, RuleEntryRatio(48, 0))
	assert.Equal(t, 30.0, RuleEntryRatio(50, 1))
}

func TestRuleStrategyShape(t *testing.T) {
	c := testContext(t)
	s := BuildRuleStrategy(c)
	assert.Equal(t, 40.0, s.Phase1.EntryRatio)
	assert.Equal(t, 70.0, *s.Phase2.Bearish.ExitRatio)
	assert.Equal(t, 50.0, s.Phase3.Target1.ExitRatio)
	assert.Equal(t, 100.0, s.Phase3.Target2.ExitRatio)
	assert.Equal(t, 9700.0, s.Phase1.StopLoss.Price)
	assert.Equal(t, -3.0, s.Phase1.StopLoss.Percent)
	assert.Equal(t, "price holds above 10225", s.Phase2.Bullish.Condition)
	assert.Equal(t, "10450", s.Phase3.Target1.Price)
	for _, factor := range []string{"Technical: RSI 60.0", "Trend: MA5", "Support/resistance:", "Volume: volume ratio 1.20x"} {
		assert.Contains(t, s.Phase1.Reasoning, factor)
	}
	assert.NotContains(t, s.Phase1.Reasoning, "%!")

	vr := strategy.NewValidator().Validate(s.Draft())
	assert.True(t, vr.Success)
	assert.False(t, vr.Fixed)
}

func TestBullishTriggerBelowTarget1(t *testing.T) {
	pairs := [][2]float64{
		{10000, 10450}, {100, 101}, {100, 100.5}, {0.5, 0.52}, {1, 1.0001}, {99.9, 100.2}, {12345.67, 12345.68},
	}
	for _, p := range pairs {
		got := BullishTriggerPrice(p[0], p[1])
		assert.Less(t, got, p[1], "entry=%v target1=%v", p[0], p[1])
		assert.Greater(t, got, p[0], "entry=%v target1=%v", p[0], p[1])
	}
	assert.Equal(t, 10225.0, BullishTriggerPrice(10000, 10450))
	assert.Equal(t, 100.5, BullishTriggerPrice(100, 101))
}

func TestFallbackStrategy(t *testing.T) {
	c := testContext(t)
	for _, hz := range []market.Horizon{market.HorizonSwing, market.HorizonMedium, market.HorizonLong} {
		c.Horizon = hz
		s := BuildFallbackStrategy(c)
		assert.Equal(t, 30.0, s.Phase1.EntryRatio)
		assert.Equal(t, 20.0, *s.Phase2.Bullish.ActionRatio)
		assert.Equal(t, 100.0, *s.Phase2.Bearish.ExitRatio)
		assert.Equal(t, 50.0, s.Phase3.Target1.ExitRatio)
		assert.Equal(t, 100.0, s.Phase3.Target2.ExitRatio)
		assert.Equal(t, fallbackPhrases[hz].timing, s.Phase1.EntryTiming)
		assert.True(t, strategy.NewValidator().Validate(s.Draft()).Success)
	}
}

func TestNewContextValidation(t *testing.T) {
	good := testContext(t)

	bad := good
	bad.EntryPrice = 0
	_, err := NewContext(bad)
	assert.Error(t, err)

	bad = good
	bad.TargetPrice1 = good.EntryPrice
	_, err = NewContext(bad)
	assert.Error(t, err)

	bad = good
	bad.StopLossPrice = good.EntryPrice + 1
	_, err = NewContext(bad)
	assert.Error(t, err)

	bad = good
	bad.Horizon = "weekly"
	_, err = NewContext(bad)
	assert.Error(t, err)

	bad = good
	bad.Volatility = "HIGH"
	_, err = NewContext(bad)
	assert.Error(t, err)

	copied, err := NewContext(good)
	require.NoError(t, err)
	copied.RecentCandles[0].Close = 1
	assert.Equal(t, 10000.0, good.RecentCandles[0].Close)
}

func TestPromptBuilder(t *testing.T) {
	c := testContext(t)
	c.History = history.Summarize([]history.Outcome{{ReturnPct: 4, Success: true}, {ReturnPct: 2, Success: true}, {ReturnPct: -1}})
	p := NewPromptBuilder().Build(c)

	for _, want := range []string{
		"Bitcoin (BTCUSDT)",
		"horizon: swing (1-2 weeks)",
		"RSI 60.0: neutral",
		"bullish-cross",
		"bullish-alignment",
		"inside-band",
		"volume ratio 1.20x: increase",
		"target1: 10450 (+4.50%)",
		"target2: 10900 (+9.00%)",
		"stop-loss: 9700 (-3.00%)",
		"## Recent window",
		"volumes (last 5): [1000, 1000, 1000, 1000, 1000]",
		"3 similar setups",
		"moderate",
	} {
		assert.Contains(t, p, want)
	}
	assert.LessOrEqual(t, len(p), MaxPromptLength)
	assert.Equal(t, p, NewPromptBuilder().Build(c))
}

func TestPromptLabels(t *testing.T) {
	assert.Equal(t, "overbought", rsiLabel(75))
	assert.Equal(t, "oversold", rsiLabel(25))
	assert.Equal(t, "bearish-cross", macdLabel(market.IndicatorSnapshot{MACD: 1, MACDSignal: 2}))
	assert.Equal(t, "bearish-alignment", maLabel(market.IndicatorSnapshot{MA5: 1, MA20: 2, MA60: 3}))
	assert.Equal(t, "mixed", maLabel(market.IndicatorSnapshot{MA5: 2, MA20: 1, MA60: 3}))
	assert.Equal(t, "above-upper-band", bollingerLabel(11, market.IndicatorSnapshot{BBUpper: 10, BBLower: 5}))
	assert.Equal(t, "below-lower-band", bollingerLabel(4, market.IndicatorSnapshot{BBUpper: 10, BBLower: 5}))
	assert.Equal(t, "surge", volumeLabel(2))
	assert.Equal(t, "weak", volumeLabel(0.5))
	assert.True(t, strings.HasPrefix(horizonLabel(market.HorizonLong), "long-term"))
}

func TestTierErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp")
	err := error(&TierError{Kind: KindTransportFailure, Source: SourceAI, Err: cause})
	assert.ErrorIs(t, err, cause)
	var te *TierError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, KindTransportFailure, te.Kind)
	assert.Equal(t, "ai: transport_failure: dial tcp", err.Error())
}

func TestMonitorSummaryAfterTenRequests(t *testing.T) {
	cfg := config.Default()
	fired := 0
	mon := monitor.NewService(cfg.Monitor, func(monitor.Snapshot) { fired++ })
	gen := NewGenerator([]Tier{NewRuleTier(nil), NewFallbackTier()}, mon, nil, cfg.Report)
	c := testContext(t)
	for i := 0; i < 10; i++ {
		gen.Generate(context.Background(), c)
	}
	assert.Equal(t, 1, fired)
	assert.Equal(t, 100.0, mon.Snapshot().Sources["rule-based"].SuccessRate)
}

func TestAITierHTMLBodyIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>maintenance</body></html>"))
	}))
	defer srv.Close()

	cfg := config.Default().AI
	cfg.APIURL = srv.URL
	cfg.APIKey = "sk-test"
	tier := NewAITier(provider.NewOpenAIModelProvider(cfg), nil, nil, cfg.MaxTokens)

	out := tier.Generate(context.Background(), testContext(t))
	assert.True(t, out.Attempted)
	require.NotNil(t, out.Err)
	assert.Equal(t, KindMalformedResponse, out.Err.Kind)
	assert.ErrorIs(t, out.Err, provider.ErrMalformedBody)
}

func TestPromptBuilderCutsOnRuneBoundary(t *testing.T) {
	c := testContext(t)
	for pad := 0; pad < 3; pad++ {
		// 前缀长度变化使截断点落在不同的字节偏移上
		c.Symbol.Name = strings.Repeat("a", pad) + strings.Repeat("삼성전자", 700)
		p := NewPromptBuilder().Build(c)
		assert.LessOrEqual(t, len(p), MaxPromptLength)
		assert.Greater(t, len(p), MaxPromptLength-4)
		assert.True(t, utf8.ValidString(p), "pad=%d", pad)
	}
}

func TestRuleTriggerTextDistinctFromLevels(t *testing.T) {
	for _, p := range [][2]float64{{10000, 10000.01}, {100, 100.01}, {12345.67, 12345.68}, {10000, 10450}} {
		c := testContext(t)
		c.EntryPrice, c.TargetPrice1, c.TargetPrice2 = p[0], p[1], p[1]
		c.StopLossPrice = p[0] * 0.97

		s := BuildRuleStrategy(c)
		got := strings.TrimPrefix(s.Phase2.Bullish.Condition, "price holds above ")
		assert.NotEqual(t, price(p[0]), got, "entry %v", p[0])
		assert.NotEqual(t, price(p[1]), got, "target1 %v", p[1])
		assert.Contains(t, s.Phase1.EntryTiming, "above "+got)
	}
}

func TestPriceBetween(t *testing.T) {
	assert.Equal(t, "10000.005", priceBetween(10000.005, 10000, 10000.01))
	assert.Equal(t, "10225", priceBetween(10225, 10000, 10450))
	assert.Equal(t, "0.52", priceBetween(0.52, 0.5, 0.54))
}
